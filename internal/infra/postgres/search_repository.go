package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"

	"github.com/marcosbolanos/pgvector-age/internal/core/search"
	"github.com/marcosbolanos/pgvector-age/internal/infra/postgres/sqlc"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	q sqlc.Querier
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(q sqlc.Querier) *SearchRepository {
	return &SearchRepository{q: q}
}

var _ search.Repository = (*SearchRepository)(nil)

func (r *SearchRepository) SearchSimilar(ctx context.Context, queryVector []float32, excludeID string, limit int) ([]*search.SearchResult, error) {
	rows, err := r.q.SearchSimilarDocumentVectors(ctx, sqlc.SearchSimilarDocumentVectorsParams{
		QueryVector: Float32ToVector(queryVector),
		ExcludeID:   excludeID,
		RowLimit:    int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search similar vectors: %w", err)
	}

	results := make([]*search.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, &search.SearchResult{
			ID:          row.ID,
			DisplayName: row.NodeName,
			Label:       row.NodeLabel,
			Score:       row.Score,
		})
	}
	return results, nil
}

func (r *SearchRepository) GetVector(ctx context.Context, id string) (mo.Option[[]float32], error) {
	row, err := r.q.GetDocumentVector(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[[]float32](), nil
		}
		return mo.None[[]float32](), fmt.Errorf("failed to get document vector: %w", err)
	}
	return mo.Some(VectorToFloat32(row.Embedding)), nil
}
