package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/marcosbolanos/pgvector-age/internal/core/search"
	"github.com/marcosbolanos/pgvector-age/internal/infra/age"
	"github.com/marcosbolanos/pgvector-age/internal/infra/langchain"
	neo4jinfra "github.com/marcosbolanos/pgvector-age/internal/infra/neo4j"
	"github.com/marcosbolanos/pgvector-age/internal/infra/openai"
	"github.com/marcosbolanos/pgvector-age/internal/infra/postgres"
	"github.com/marcosbolanos/pgvector-age/internal/infra/postgres/sqlc"
	"github.com/marcosbolanos/pgvector-age/internal/infra/ratelimit"
	"github.com/marcosbolanos/pgvector-age/internal/infra/tokens"
	"github.com/marcosbolanos/pgvector-age/internal/platform/config"
	"github.com/marcosbolanos/pgvector-age/internal/platform/database"
)

// ServiceContainer は埋め込み処理に必要な依存関係を保持する。
// レポート系コマンドは Embedder を必要としないため、EmbeddingService は呼び出し時に構築する。
type ServiceContainer struct {
	Store    *postgres.Store
	Reporter *embedding.ProgressReporter
	Retry    *embedding.RetryResetter

	cfg      *config.Config
	options  containerOptions
	logger   *slog.Logger
	database *database.Database
	closers  []func(context.Context) error
}

type containerOptions struct {
	logger     *slog.Logger
	embedder   embedding.Embedder
	enumerator embedding.Enumerator
	prompter   embedding.Prompter
	output     io.Writer
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder embedding.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerEnumerator はグラフ列挙を差し替える
func WithContainerEnumerator(enumerator embedding.Enumerator) ContainerOption {
	return func(opts *containerOptions) {
		opts.enumerator = enumerator
	}
}

// WithContainerPrompter はセッション再開の確認方法を設定する
func WithContainerPrompter(prompter embedding.Prompter) ContainerOption {
	return func(opts *containerOptions) {
		opts.prompter = prompter
	}
}

// WithContainerOutput は進捗出力先を設定する（デフォルトは標準出力）
func WithContainerOutput(w io.Writer) ContainerOption {
	return func(opts *containerOptions) {
		opts.output = w
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LoadAGE:  cfg.Graph.Source == config.GraphSourceAGE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, db.Pool, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, err
	}

	return NewContainerWithDB(cfg, db, opts...), nil
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) *ServiceContainer {
	options := containerOptions{logger: slog.Default(), output: os.Stdout}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	store := postgres.NewStore(db.Pool)

	return &ServiceContainer{
		Store:    store,
		Reporter: embedding.NewProgressReporter(store),
		Retry:    embedding.NewRetryResetter(store, options.logger),
		cfg:      cfg,
		options:  options,
		logger:   options.logger,
		database: db,
	}
}

// EmbeddingService はグラフ列挙・Embedder・バッチ処理を組み立てて Service を返す。
func (c *ServiceContainer) EmbeddingService(ctx context.Context) (*embedding.Service, error) {
	enumerator, err := c.newEnumerator(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := c.newEmbedder()
	if err != nil {
		return nil, err
	}

	runnerOpts := []embedding.BatchRunnerOption{
		embedding.WithRunnerLogger(c.logger),
		embedding.WithProgressWriter(c.options.output),
		embedding.WithRunnerConfig(embedding.RunnerConfig{
			BatchSize:        c.cfg.Embedding.BatchSize,
			ProgressInterval: c.cfg.Embedding.ProgressInterval,
			EmbedTimeout:     c.cfg.Embedding.Timeout,
			TokenLimit:       c.cfg.Embedding.TokenLimit,
		}),
	}
	if c.cfg.Embedding.RateLimit > 0 {
		runnerOpts = append(runnerOpts, embedding.WithThrottle(ratelimit.New(c.cfg.Embedding.RateLimit)))
	}
	if c.cfg.Embedding.TokenLimit > 0 {
		counter, err := tokens.NewCounter(tokens.DefaultEncoding)
		if err != nil {
			return nil, err
		}
		runnerOpts = append(runnerOpts, embedding.WithTokenCounter(counter))
	}

	runner := embedding.NewBatchRunner(c.Store, embedder, runnerOpts...)
	resolver := embedding.NewSessionResolver(c.Store, c.options.prompter, embedding.WithResolverLogger(c.logger))

	return embedding.NewService(c.Store, enumerator, resolver, runner,
		embedding.WithServiceLogger(c.logger),
		embedding.WithServiceOutput(c.options.output),
		embedding.WithSessionLocker(database.NewLocker(c.database.Pool)),
	), nil
}

// SearchService は保存済みベクトルの類似検索サービスを返す。
// withEmbedder が false の場合はノードID検索のみ利用できる。
func (c *ServiceContainer) SearchService(withEmbedder bool) (*search.SearchService, error) {
	var embedder search.Embedder
	if withEmbedder {
		e, err := c.newEmbedder()
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	repo := postgres.NewSearchRepository(sqlc.New(c.database.Pool))
	return search.NewSearchService(repo, embedder, search.WithSearchLogger(c.logger)), nil
}

func (c *ServiceContainer) newEnumerator(ctx context.Context) (embedding.Enumerator, error) {
	if c.options.enumerator != nil {
		return c.options.enumerator, nil
	}

	switch c.cfg.Graph.Source {
	case config.GraphSourceNeo4j:
		client, err := neo4jinfra.NewClient(ctx, neo4jinfra.Config{
			URI:      c.cfg.Graph.Neo4jURI,
			User:     c.cfg.Graph.Neo4jUser,
			Password: c.cfg.Graph.Neo4jPassword,
			Database: c.cfg.Graph.Neo4jDatabase,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", embedding.ErrConnection, err)
		}
		c.closers = append(c.closers, client.Close)
		return neo4jinfra.NewEnumerator(client), nil
	default:
		enumerator, err := age.NewEnumerator(c.database.Pool, c.cfg.Graph.Name, c.logger)
		if err != nil {
			return nil, err
		}
		return enumerator, nil
	}
}

func (c *ServiceContainer) newEmbedder() (embedding.Embedder, error) {
	if c.options.embedder != nil {
		return c.options.embedder, nil
	}

	switch c.cfg.Embedding.Provider {
	case config.ProviderCompatible, config.ProviderOllama:
		embedder, err := langchain.NewEmbedder(langchain.Config{
			Provider:  langchain.Provider(c.cfg.Embedding.Provider),
			BaseURL:   c.cfg.Embedding.BaseURL,
			Token:     c.cfg.OpenAI.APIKey,
			Model:     c.cfg.Embedding.Model,
			Dimension: c.cfg.OpenAI.EmbeddingDimension,
		}, c.logger)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		embedder, err := openai.NewEmbedder(
			c.cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(c.cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(c.cfg.OpenAI.EmbeddingDimension),
		)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	}
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.database != nil {
		c.database.Close()
	}
	return errors.Join(errs...)
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
