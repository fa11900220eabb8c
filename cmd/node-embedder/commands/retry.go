package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RetryAction は失敗したエントリを pending に戻す
func RetryAction(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")

	appCtx, err := NewAppContext(ctx, cmd.String("env"), nil)
	if err != nil {
		return err
	}
	defer appCtx.Close(ctx)

	n, err := appCtx.Container.Retry.Reset(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Reset %d failed entries to pending in session %s\n", n, sessionID)
	if n > 0 {
		fmt.Fprintf(cmd.Root().Writer, "Run `node-embedder run --resume` to retry them.\n")
	}
	return nil
}
