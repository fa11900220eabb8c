package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// FailuresAction はセッションの失敗をエラーメッセージごとに集計して表示する
func FailuresAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")

	appCtx, err := NewAppContext(ctx, cmd.String("env"), nil)
	if err != nil {
		return err
	}
	defer appCtx.Close(ctx)

	groups, err := appCtx.Container.Reporter.FailureBreakdown(ctx, sessionID)
	if err != nil {
		return err
	}

	renderFailuresTable(cmd.Root().Writer, sessionID, groups)
	return nil
}

// renderFailuresTable は失敗理由の内訳をテーブル形式で表示します
func renderFailuresTable(w io.Writer, sessionID string, groups []*embedding.FailureGroup) {
	if len(groups) == 0 {
		fmt.Fprintf(w, "No failures recorded for session %s.\n", sessionID)
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Count", "Error")

	for _, g := range groups {
		table.Append(fmt.Sprintf("%d", g.Count), g.ErrorMessage)
	}

	table.Render()
}
