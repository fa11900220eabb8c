package embedding_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	testutil "github.com/marcosbolanos/pgvector-age/internal/core/embedding/testing"
	"github.com/marcosbolanos/pgvector-age/internal/infra/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLedger(t *testing.T, store embedding.Store, sessionID string, items []embedding.WorkItem) {
	t.Helper()
	_, err := embedding.NewLedgerInitializer(store, discardLogger()).Initialize(context.Background(), sessionID, items)
	require.NoError(t, err)
}

func newRunner(store embedding.Store, embedder embedding.Embedder, opts ...embedding.BatchRunnerOption) *embedding.BatchRunner {
	opts = append([]embedding.BatchRunnerOption{embedding.WithRunnerLogger(discardLogger())}, opts...)
	return embedding.NewBatchRunner(store, embedder, opts...)
}

func status(t *testing.T, store *testutil.MemoryStore, sessionID, itemID string) embedding.Status {
	t.Helper()
	e, ok := store.Entry(sessionID, itemID)
	require.True(t, ok, "entry %s not found", itemID)
	return e.Status
}

func TestBatchRunner_ThreeItemSingleRun(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", ""}, [2]string{"c", "Gamma"})
	initLedger(t, store, "s1", items)

	embedder := &testutil.StubEmbedder{Dim: 5}
	summary, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, []string{"Concept: Alpha", "Concept: Gamma"}, embedder.Calls)
	assert.Equal(t, embedding.StatusCounts{Completed: 2, Failed: 1}, summary.Final)
	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", "a"))
	assert.Equal(t, embedding.StatusFailed, status(t, store, "s1", "b"))
	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", "c"))

	for _, id := range []string{"a", "c"} {
		got, err := store.GetResult(ctx, id)
		require.NoError(t, err)
		result, ok := got.Get()
		require.True(t, ok, "result %s not stored", id)
		assert.Len(t, result.Vector, 5)
	}
	assert.Equal(t, 2, store.ResultCount())
}

func TestBatchRunner_ThrottleWaitIsNotPartOfEmbedTimeout(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"}, [2]string{"c", "Gamma"})
	initLedger(t, store, "s1", items)

	// 600 rpm = 100ms 間隔。枠の間隔がタイムアウトより長くても失敗しない
	embedder := &testutil.StubEmbedder{Dim: 3}
	runner := newRunner(store, embedder,
		embedding.WithRunnerConfig(embedding.RunnerConfig{EmbedTimeout: 50 * time.Millisecond}),
		embedding.WithThrottle(ratelimit.New(600)),
	)

	start := time.Now()
	summary, err := runner.Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	assert.Len(t, embedder.Calls, 3)
	assert.Equal(t, embedding.StatusCounts{Completed: 3}, summary.Final)
	assert.Zero(t, summary.Failed)
}

func TestBatchRunner_ThrottleCancellationAbortsBatch(t *testing.T) {
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"})
	initLedger(t, store, "s1", items)

	ctx, cancel := context.WithCancel(context.Background())
	throttle := &cancelingThrottle{cancel: cancel}
	embedder := &testutil.StubEmbedder{Dim: 3}

	_, err := newRunner(store, embedder, embedding.WithThrottle(throttle)).Run(ctx, "s1", items)
	require.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, embedder.Calls)
	assert.Equal(t, embedding.StatusPending, status(t, store, "s1", "a"))
	assert.Equal(t, embedding.StatusPending, status(t, store, "s1", "b"))
}

// cancelingThrottle は待機中にキャンセルされた状況を再現する
type cancelingThrottle struct {
	cancel context.CancelFunc
}

func (c *cancelingThrottle) Wait(ctx context.Context) error {
	c.cancel()
	<-ctx.Done()
	return ctx.Err()
}

func TestBatchRunner_ThreeItemScenario(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"A", "Alpha"}, [2]string{"B", ""}, [2]string{"C", "Gamma"})
	initLedger(t, store, "s1", items)

	embedder := &testutil.StubEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			if strings.Contains(text, "Gamma") {
				return nil, errors.New("rate limited")
			}
			return []float32{0.1, 0.2, 0.3}, nil
		},
	}

	summary, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, []string{"Concept: Alpha", "Concept: Gamma"}, embedder.Calls)
	assert.Equal(t, 1, summary.Embedded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, embedding.StatusCounts{Completed: 1, Failed: 2}, summary.Final)

	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", "A"))
	b, _ := store.Entry("s1", "B")
	require.NotNil(t, b.ErrorMessage)
	assert.Equal(t, "Empty node name", *b.ErrorMessage)
	c, _ := store.Entry("s1", "C")
	require.NotNil(t, c.ErrorMessage)
	assert.Equal(t, "rate limited", *c.ErrorMessage)
	assert.Equal(t, 1, store.ResultCount())

	groups, err := embedding.NewProgressReporter(store).FailureBreakdown(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// リトライ後はBのみ失敗が残り、Aは再度 Embedding されない
	reset, err := embedding.NewRetryResetter(store, discardLogger()).Reset(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, reset)

	embedder.EmbedFunc = nil
	embedder.Calls = nil
	summary, err = newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, []string{"Concept: Gamma"}, embedder.Calls)
	assert.Equal(t, embedding.StatusCounts{Completed: 2, Failed: 1}, summary.Final)
	assert.Equal(t, embedding.StatusFailed, status(t, store, "s1", "B"))
	assert.Equal(t, 2, store.ResultCount())
}

func TestBatchRunner_ResumeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"}, [2]string{"c", "Gamma"})
	initLedger(t, store, "s1", items)
	embedder := &testutil.StubEmbedder{}

	_, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)
	require.Len(t, embedder.Calls, 3)

	initLedger(t, store, "s1", items)
	summary, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Len(t, embedder.Calls, 3)
	assert.Zero(t, summary.Remaining)
	assert.Zero(t, summary.Embedded)
	assert.Equal(t, embedding.StatusCounts{Completed: 3}, summary.Final)
	assert.Equal(t, 3, store.ResultCount())
}

func TestBatchRunner_ExistingResultIsCaughtUpWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"})
	store.SeedResult(&embedding.Result{ID: "a", DisplayName: "Alpha", Label: "Concept", Vector: []float32{9, 9, 9}})
	initLedger(t, store, "s2", items)
	embedder := &testutil.StubEmbedder{}

	summary, err := newRunner(store, embedder).Run(ctx, "s2", items)
	require.NoError(t, err)

	assert.Equal(t, []string{"Concept: Beta"}, embedder.Calls)
	assert.Equal(t, 1, summary.CaughtUp)
	assert.Equal(t, 1, summary.Embedded)
	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s2", "a"))
	assert.Equal(t, 2, store.ResultCount())

	// 既存の結果は上書きされない
	res, err := store.GetResult(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9}, res.MustGet().Vector)
}

func TestBatchRunner_CommitFailureRollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"}, [2]string{"c", "Gamma"}, [2]string{"d", "Delta"})
	initLedger(t, store, "s1", items)

	base := store.Commits()
	store.FailCommit = func(n int) error {
		if n == base+1 {
			return errors.New("connection reset")
		}
		return nil
	}

	var out bytes.Buffer
	runner := newRunner(store, &testutil.StubEmbedder{},
		embedding.WithRunnerConfig(embedding.RunnerConfig{BatchSize: 2}),
		embedding.WithProgressWriter(&out),
	)

	summary, err := runner.Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BatchErrors)
	assert.Equal(t, 2, summary.Embedded)
	assert.Equal(t, embedding.StatusCounts{Completed: 2, Pending: 2}, summary.Final)

	// 失敗したバッチはレジャーにも結果にも痕跡を残さない
	for _, id := range []string{"a", "b"} {
		assert.Equal(t, embedding.StatusPending, status(t, store, "s1", id))
		exists, err := store.ResultExists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
	}
	for _, id := range []string{"c", "d"} {
		assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", id))
	}
	assert.Contains(t, out.String(), "Error committing batch 1")

	store.FailCommit = nil
	summary, err = newRunner(store, &testutil.StubEmbedder{}).Run(ctx, "s1", items)
	require.NoError(t, err)
	assert.Equal(t, embedding.StatusCounts{Completed: 4}, summary.Final)
}

func TestBatchRunner_EmbedTimeoutIsRecordedAsFailure(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"slow", "Slow"}, [2]string{"fast", "Fast"})
	initLedger(t, store, "s1", items)

	embedder := &testutil.StubEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			if strings.Contains(text, "Slow") {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []float32{1, 2, 3}, nil
		},
	}
	runner := newRunner(store, embedder,
		embedding.WithRunnerConfig(embedding.RunnerConfig{EmbedTimeout: 10 * time.Millisecond}))

	summary, err := runner.Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	slow, _ := store.Entry("s1", "slow")
	assert.Equal(t, embedding.StatusFailed, slow.Status)
	require.NotNil(t, slow.ErrorMessage)
	assert.Contains(t, *slow.ErrorMessage, "deadline exceeded")
	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", "fast"))
}

func TestBatchRunner_CancellationRollsBackInFlightBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"})
	initLedger(t, store, "s1", items)
	commits := store.Commits()

	embedder := &testutil.StubEmbedder{
		EmbedFunc: func(callCtx context.Context, text string) ([]float32, error) {
			if strings.Contains(text, "Beta") {
				cancel()
				return nil, callCtx.Err()
			}
			return []float32{1, 2, 3}, nil
		},
	}

	summary, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)

	assert.Equal(t, commits, store.Commits())
	assert.Equal(t, embedding.StatusCounts{Pending: 2}, summary.Final)
	assert.Zero(t, store.ResultCount())
}

func TestBatchRunner_OrphanedEntriesAreLeftUntouched(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	initLedger(t, store, "s1", testutil.Items([2]string{"a", "Alpha"}, [2]string{"gone", "Removed"}))
	embedder := &testutil.StubEmbedder{}

	summary, err := newRunner(store, embedder).Run(ctx, "s1", testutil.Items([2]string{"a", "Alpha"}))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Orphaned)
	assert.Equal(t, 2, summary.Remaining)
	assert.Equal(t, embedding.StatusPending, status(t, store, "s1", "gone"))
	assert.Equal(t, []string{"Concept: Alpha"}, embedder.Calls)
}

func TestBatchRunner_StoreFailureForOneItemMarksItFailed(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"})
	initLedger(t, store, "s1", items)
	store.UpsertErr = func(id string) error {
		if id == "a" {
			return errors.New("value too long")
		}
		return nil
	}

	summary, err := newRunner(store, &testutil.StubEmbedder{}).Run(ctx, "s1", items)
	require.NoError(t, err)

	a, _ := store.Entry("s1", "a")
	assert.Equal(t, embedding.StatusFailed, a.Status)
	require.NotNil(t, a.ErrorMessage)
	assert.Equal(t, "upsert result: value too long", *a.ErrorMessage)
	assert.Equal(t, embedding.StatusCompleted, status(t, store, "s1", "b"))
	assert.Equal(t, 1, store.ResultCount())
	assert.Zero(t, summary.BatchErrors)
}

func TestBatchRunner_FailureToRecordFailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"}, [2]string{"b", "Beta"}, [2]string{"c", ""})
	initLedger(t, store, "s1", items)
	store.MarkFailedErr = func(string) error { return errors.New("disk full") }

	summary, err := newRunner(store, &testutil.StubEmbedder{},
		embedding.WithRunnerConfig(embedding.RunnerConfig{BatchSize: 3})).Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BatchErrors)
	assert.Equal(t, embedding.StatusPending, status(t, store, "s1", "a"))
	assert.Zero(t, store.ResultCount())
}

func TestBatchRunner_DimensionMismatchIsEmbeddingError(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "Alpha"})
	initLedger(t, store, "s1", items)
	embedder := &testutil.StubEmbedder{
		Dim: 4,
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 2, 3}, nil
		},
	}

	_, err := newRunner(store, embedder).Run(ctx, "s1", items)
	require.NoError(t, err)

	a, _ := store.Entry("s1", "a")
	assert.Equal(t, embedding.StatusFailed, a.Status)
	assert.Contains(t, *a.ErrorMessage, "unexpected embedding dimension")
}

func TestBatchRunner_TokenLimit(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"short", "Hi"}, [2]string{"long", strings.Repeat("x", 50)})
	initLedger(t, store, "s1", items)
	embedder := &testutil.StubEmbedder{}

	runner := newRunner(store, embedder,
		embedding.WithRunnerConfig(embedding.RunnerConfig{TokenLimit: 20}),
		embedding.WithTokenCounter(testutil.StubTokenCounter{}),
	)
	_, err := runner.Run(ctx, "s1", items)
	require.NoError(t, err)

	assert.Equal(t, []string{"Concept: Hi"}, embedder.Calls)
	long, _ := store.Entry("s1", "long")
	assert.Equal(t, embedding.StatusFailed, long.Status)
	assert.Equal(t, "input exceeds token limit (59 > 20)", *long.ErrorMessage)
}

func TestBatchRunner_ProgressOutput(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	items := testutil.Items([2]string{"a", "A"}, [2]string{"b", "B"}, [2]string{"c", "C"}, [2]string{"d", "D"})
	initLedger(t, store, "s1", items)

	var out bytes.Buffer
	runner := newRunner(store, &testutil.StubEmbedder{},
		embedding.WithRunnerConfig(embedding.RunnerConfig{BatchSize: 3, ProgressInterval: 2}),
		embedding.WithProgressWriter(&out),
	)
	_, err := runner.Run(ctx, "s1", items)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Processing batch 1/2...")
	assert.Contains(t, text, "Processing batch 2/2...")
	assert.Contains(t, text, "Embedded 2 in this session (2 total completed)")
	assert.Contains(t, text, "Embedded 4 in this session (4 total completed)")
	assert.Contains(t, text, "Session s1 Summary:")
	assert.Contains(t, text, "Successfully embedded: 4")
}
