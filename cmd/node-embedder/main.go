package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/cmd/node-embedder/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:           "node-embedder",
		Usage:          "グラフのノードを再開可能なバッチで Embedding し pgvector に保存する",
		DefaultCommand: "run",
		// --env はサブコマンドにも引き継がれる
		Flags: []cli.Flag{commands.EnvFlag()},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "未処理のノードを Embedding する（未完了セッションがあれば再開を確認）",
				Flags:  commands.RunFlags(),
				Action: commands.RunAction,
			},
			{
				Name:   "progress",
				Usage:  "セッションごとの進捗を表示",
				Action: commands.ProgressAction,
			},
			{
				Name:   "failures",
				Usage:  "セッションの失敗理由の内訳を表示",
				Flags:  []cli.Flag{commands.SessionFlag()},
				Action: commands.FailuresAction,
			},
			{
				Name:   "retry",
				Usage:  "失敗したノードを pending に戻す",
				Flags:  []cli.Flag{commands.SessionFlag()},
				Action: commands.RetryAction,
			},
			{
				Name:   "search",
				Usage:  "保存済みベクトルから類似ノードを検索",
				Flags:  commands.SearchFlags(),
				Action: commands.SearchAction,
			},
		},
	}

	// ExitCoder は cli が終了コード付きで処理する
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
