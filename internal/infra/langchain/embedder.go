package langchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider は langchaingo 経由で利用するバックエンドの種類です
type Provider string

const (
	// ProviderCompatible は OpenAI 互換 API（ローカルサーバーなど）
	ProviderCompatible Provider = "compatible"
	// ProviderOllama は Ollama サーバー
	ProviderOllama Provider = "ollama"
)

// Config は Embedder の設定です
type Config struct {
	Provider  Provider
	BaseURL   string
	Token     string
	Model     string
	Dimension int
}

// Embedder は langchaingo の Embedder をラップします
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
	model     string
	logger    *slog.Logger
}

// NewEmbedder は新しい Embedder を作成します
func NewEmbedder(cfg Config, logger *slog.Logger) (*Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case ProviderCompatible:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for %s provider", cfg.Provider)
		}
		// 認証不要なローカルサーバー向けにダミートークンを使う
		token := cfg.Token
		if token == "" {
			token = "none"
		}
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(token),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai-compatible client: %w", err)
		}
		client = llm

	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = llm

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		embedder:  embedder,
		dimension: cfg.Dimension,
		model:     cfg.Model,
		logger:    logger.With("component", "langchain-embedder", "provider", string(cfg.Provider)),
	}, nil
}

var _ embedding.Embedder = (*Embedder)(nil)

// Embed はテキスト1件の Embedding を生成します
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "model", e.model, "length", len(text))

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// Dimension は設定されたベクトル次元を返します
func (e *Embedder) Dimension() int {
	return e.dimension
}
