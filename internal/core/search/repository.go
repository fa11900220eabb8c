package search

import (
	"context"

	"github.com/samber/mo"
)

// Repository は保存済みベクトルへの読み取りアクセスを提供する
type Repository interface {
	// SearchSimilar はコサイン類似度の高い順に結果を返す（excludeID は除外する）
	SearchSimilar(ctx context.Context, queryVector []float32, excludeID string, limit int) ([]*SearchResult, error)

	// GetVector はノードの保存済みベクトルを取得する
	GetVector(ctx context.Context, id string) (mo.Option[[]float32], error)
}
