package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct{ called bool }

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.called = true
	return []float32{1, 2, 3}, nil
}

type stubSearchRepo struct {
	results      []*SearchResult
	vectors      map[string][]float32
	lastLimit    int
	lastExclude  string
	lastVector   []float32
	getVectorErr error
}

func (r *stubSearchRepo) SearchSimilar(ctx context.Context, queryVector []float32, excludeID string, limit int) ([]*SearchResult, error) {
	r.lastVector = queryVector
	r.lastExclude = excludeID
	r.lastLimit = limit
	return r.results, nil
}

func (r *stubSearchRepo) GetVector(ctx context.Context, id string) (mo.Option[[]float32], error) {
	if r.getVectorErr != nil {
		return mo.None[[]float32](), r.getVectorErr
	}
	if v, ok := r.vectors[id]; ok {
		return mo.Some(v), nil
	}
	return mo.None[[]float32](), nil
}

func newTestService(repo Repository, embedder Embedder) *SearchService {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{AddSource: false}))
	return NewSearchService(repo, embedder, WithSearchLogger(logger))
}

func TestSearchService_SearchUsesDefaultLimitAndEmbedder(t *testing.T) {
	repo := &stubSearchRepo{
		results: []*SearchResult{{ID: "n2", DisplayName: "Beta", Label: "Concept", Score: 0.9}},
	}
	embedder := &stubEmbedder{}
	svc := newTestService(repo, embedder)

	results, err := svc.Search(context.Background(), SearchParams{
		Query: "hello",
		Limit: 0, // default should be applied
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, DefaultLimit, repo.lastLimit)
	assert.Equal(t, "", repo.lastExclude)
	assert.True(t, embedder.called)
}

func TestSearchService_SearchByNodeExcludesItself(t *testing.T) {
	repo := &stubSearchRepo{vectors: map[string][]float32{"n1": {0.1, 0.2, 0.3}}}
	embedder := &stubEmbedder{}
	svc := newTestService(repo, embedder)

	_, err := svc.Search(context.Background(), SearchParams{NodeID: "n1", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "n1", repo.lastExclude)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, repo.lastVector)
	assert.Equal(t, 5, repo.lastLimit)
	assert.False(t, embedder.called)
}

func TestSearchService_NodeWithoutEmbedding(t *testing.T) {
	svc := newTestService(&stubSearchRepo{}, nil)

	_, err := svc.Search(context.Background(), SearchParams{NodeID: "missing"})
	assert.ErrorIs(t, err, ErrNodeNotEmbedded)
}

func TestSearchService_InvalidParams(t *testing.T) {
	svc := newTestService(&stubSearchRepo{}, &stubEmbedder{})

	_, err := svc.Search(context.Background(), SearchParams{})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = svc.Search(context.Background(), SearchParams{Query: "q", NodeID: "n1"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSearchService_QueryRequiresEmbedder(t *testing.T) {
	svc := newTestService(&stubSearchRepo{}, nil)

	_, err := svc.Search(context.Background(), SearchParams{Query: "hello"})
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearchService_RepositoryError(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(&stubSearchRepo{getVectorErr: boom}, nil)

	_, err := svc.Search(context.Background(), SearchParams{NodeID: "n1"})
	assert.ErrorIs(t, err, boom)
}
