package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultLimit は Limit 未指定時の件数
const DefaultLimit = 10

var (
	// ErrInvalidParams は Query と NodeID の指定が不正な場合のエラー
	ErrInvalidParams = errors.New("exactly one of query or node ID is required")

	// ErrNodeNotEmbedded は指定ノードのベクトルがまだ保存されていない場合のエラー
	ErrNodeNotEmbedded = errors.New("node has no stored embedding")

	// ErrEmbedderRequired はテキスト検索で Embedder が設定されていない場合のエラー
	ErrEmbedderRequired = errors.New("embedder is required for text queries")
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService は検索のビジネスロジックを提供する
type SearchService struct {
	repo     Repository
	embedder Embedder
	logger   *slog.Logger
}

// SearchOption は SearchService のオプション
type SearchOption func(*SearchService)

// WithSearchLogger はロガーを設定する
func WithSearchLogger(logger *slog.Logger) SearchOption {
	return func(s *SearchService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSearchService は新しいSearchServiceを作成する
// ノードID検索のみ行う場合 embedder は nil でよい
func NewSearchService(repo Repository, embedder Embedder, opts ...SearchOption) *SearchService {
	s := &SearchService{
		repo:     repo,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search はクエリテキストまたは既存ノードのベクトルに近いノードを返す
func (s *SearchService) Search(ctx context.Context, params SearchParams) ([]*SearchResult, error) {
	// バリデーション
	if (params.Query == "") == (params.NodeID == "") {
		return nil, ErrInvalidParams
	}

	// デフォルトのLimit設定
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		queryVector []float32
		excludeID   string
	)
	if params.NodeID != "" {
		stored, err := s.repo.GetVector(ctx, params.NodeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load node vector: %w", err)
		}
		vector, ok := stored.Get()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotEmbedded, params.NodeID)
		}
		queryVector = vector
		excludeID = params.NodeID
	} else {
		if s.embedder == nil {
			return nil, ErrEmbedderRequired
		}
		// クエリをEmbeddingに変換
		vector, err := s.embedder.Embed(ctx, params.Query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		queryVector = vector
	}

	results, err := s.repo.SearchSimilar(ctx, queryVector, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Debug("similarity search completed",
		"nodeID", params.NodeID,
		"limit", limit,
		"results", len(results),
	)
	return results, nil
}
