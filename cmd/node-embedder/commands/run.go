package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/marcosbolanos/pgvector-age/internal/platform/config"
	"github.com/marcosbolanos/pgvector-age/internal/platform/container"
)

// RunFlags は run コマンドのフラグ
func RunFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "1トランザクションあたりのノード数（EMBEDDING_BATCH_SIZE より優先）",
		},
		&cli.BoolFlag{
			Name:  "resume",
			Usage: "確認せずに最新の未完了セッションを再開",
		},
		&cli.BoolFlag{
			Name:  "new",
			Usage: "未完了セッションがあっても新しいセッションを開始",
		},
	}
}

// RunAction はグラフのノードを列挙し、未処理のノードの Embedding を生成する
func RunAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), func(cfg *config.Config) {
		if n := cmd.Int("batch-size"); n != 0 {
			cfg.Embedding.BatchSize = int(n)
		}
		if cmd.Bool("resume") {
			cfg.Session.ForceResume = true
		}
		if cmd.Bool("new") {
			cfg.Session.ForceNew = true
		}
	}, container.WithContainerPrompter(newTerminalPrompter()), container.WithContainerOutput(cmd.Root().Writer))
	if err != nil {
		return err
	}
	defer appCtx.Close(ctx)

	svc, err := appCtx.Container.EmbeddingService(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding service: %w", err)
	}

	result, err := svc.Run(ctx, embedding.RunParams{
		Session: embedding.SessionOptions{
			ForceResume: appCtx.Config.Session.ForceResume,
			ForceNew:    appCtx.Config.Session.ForceNew,
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && result != nil && result.Summary != nil {
			return cli.Exit("", ExitPendingItems)
		}
		return err
	}

	return exitForCounts(result.Summary.Final)
}

// exitForCounts は最終集計から終了コードを決める
func exitForCounts(counts embedding.StatusCounts) error {
	switch {
	case counts.Failed > 0:
		return cli.Exit("", ExitFailedItems)
	case counts.Pending > 0:
		return cli.Exit("", ExitPendingItems)
	default:
		return nil
	}
}
