package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/core/search"
)

// SearchFlags は search コマンドのフラグ
func SearchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "query",
			Usage: "検索テキスト（Embedding を生成して検索）",
		},
		&cli.StringFlag{
			Name:  "node",
			Usage: "ノードID（保存済みベクトルに近いノードを検索）",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "表示件数",
			Value: search.DefaultLimit,
		},
	}
}

// SearchAction は保存済みベクトルから類似ノードを検索する
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	params := search.SearchParams{
		Query:  cmd.String("query"),
		NodeID: cmd.String("node"),
		Limit:  int(cmd.Int("limit")),
	}
	if (params.Query == "") == (params.NodeID == "") {
		return fmt.Errorf("--query と --node のどちらか一方を指定してください")
	}

	appCtx, err := NewAppContext(ctx, cmd.String("env"), nil)
	if err != nil {
		return err
	}
	defer appCtx.Close(ctx)

	svc, err := appCtx.Container.SearchService(params.Query != "")
	if err != nil {
		return fmt.Errorf("failed to initialize search service: %w", err)
	}

	results, err := svc.Search(ctx, params)
	if err != nil {
		return err
	}

	renderSearchResults(cmd.Root().Writer, results)
	return nil
}

// renderSearchResults は検索結果をテーブル形式で表示します
func renderSearchResults(w io.Writer, results []*search.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No similar nodes found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Score", "ID", "Label", "Name")

	for _, r := range results {
		table.Append(fmt.Sprintf("%.4f", r.Score), r.ID, r.Label, r.DisplayName)
	}

	table.Render()
}
