package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// ProgressAction はセッションごとの進捗を表示する
func ProgressAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), nil)
	if err != nil {
		return err
	}
	defer appCtx.Close(ctx)

	sessions, err := appCtx.Container.Reporter.ListSessions(ctx)
	if err != nil {
		return err
	}

	renderSessionsTable(cmd.Root().Writer, sessions)
	return nil
}

// renderSessionsTable はセッション一覧をテーブル形式で表示します
func renderSessionsTable(w io.Writer, sessions []*embedding.SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No embedding sessions found.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Session", "Total", "Completed", "Failed", "Pending", "Rate", "Started", "Last Updated")

	for _, s := range sessions {
		table.Append(
			s.SessionID,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%d", s.Completed),
			fmt.Sprintf("%d", s.Failed),
			fmt.Sprintf("%d", s.Pending),
			fmt.Sprintf("%.1f%%", s.CompletionRate()),
			s.StartedAt.Format("2006-01-02 15:04:05"),
			s.LastUpdated.Format("2006-01-02 15:04:05"),
		)
	}

	table.Render()
}
