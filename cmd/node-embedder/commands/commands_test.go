package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/marcosbolanos/pgvector-age/internal/core/search"
)

func TestRenderSessionsTable(t *testing.T) {
	var buf bytes.Buffer
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	renderSessionsTable(&buf, []*embedding.SessionSummary{
		{SessionID: "embedding_session_1_abcd1234", Total: 4, Completed: 3, Failed: 1, StartedAt: started, LastUpdated: started},
	})

	out := buf.String()
	assert.Contains(t, out, "embedding_session_1_abcd1234")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "2025-01-02 03:04:05")
}

func TestRenderSessionsTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderSessionsTable(&buf, nil)
	assert.Equal(t, "No embedding sessions found.\n", buf.String())
}

func TestRenderFailuresTable(t *testing.T) {
	var buf bytes.Buffer
	renderFailuresTable(&buf, "s1", []*embedding.FailureGroup{
		{ErrorMessage: "Empty node name", Count: 2},
		{ErrorMessage: "rate limited", Count: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "Empty node name")
	assert.Contains(t, out, "rate limited")

	buf.Reset()
	renderFailuresTable(&buf, "s1", nil)
	assert.Equal(t, "No failures recorded for session s1.\n", buf.String())
}

func TestExitForCounts(t *testing.T) {
	assert.NoError(t, exitForCounts(embedding.StatusCounts{Completed: 3}))

	var exitErr cli.ExitCoder
	err := exitForCounts(embedding.StatusCounts{Completed: 1, Failed: 1, Pending: 1})
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitFailedItems, exitErr.ExitCode())

	err = exitForCounts(embedding.StatusCounts{Completed: 1, Pending: 1})
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitPendingItems, exitErr.ExitCode())
}

func TestTerminalPrompter_NotATerminal(t *testing.T) {
	p := &terminalPrompter{isTerminal: func() bool { return false }}

	ok, err := p.Confirm(context.Background(), "Resume previous session")
	assert.False(t, ok)
	assert.ErrorIs(t, err, embedding.ErrPromptUnavailable)
}

func TestTerminalPrompter_CanceledContext(t *testing.T) {
	p := &terminalPrompter{isTerminal: func() bool { return true }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := p.Confirm(ctx, "Resume previous session")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderSearchResults(t *testing.T) {
	var buf bytes.Buffer
	renderSearchResults(&buf, []*search.SearchResult{
		{ID: "n2", DisplayName: "Beta", Label: "Concept", Score: 0.98765},
	})

	out := buf.String()
	assert.Contains(t, out, "0.9877")
	assert.Contains(t, out, "Beta")

	buf.Reset()
	renderSearchResults(&buf, nil)
	assert.Equal(t, "No similar nodes found.\n", buf.String())
}
