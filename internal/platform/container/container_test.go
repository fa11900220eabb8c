package container

import (
	"context"
	"io"
	"log/slog"
	"testing"

	testutil "github.com/marcosbolanos/pgvector-age/internal/core/embedding/testing"
	"github.com/marcosbolanos/pgvector-age/internal/infra/openai"
	"github.com/marcosbolanos/pgvector-age/internal/platform/config"
	"github.com/marcosbolanos/pgvector-age/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		OpenAI: config.OpenAIConfig{EmbeddingModel: "text-embedding-3-small", EmbeddingDimension: 3},
		Embedding: config.EmbeddingConfig{
			Provider:         config.ProviderOpenAI,
			BatchSize:        10,
			ProgressInterval: 5,
		},
		Graph: config.GraphConfig{Source: config.GraphSourceAGE, Name: "from_csv"},
	}
}

func TestEmbeddingService_UsesInjectedDependencies(t *testing.T) {
	c := NewContainerWithDB(testConfig(), &database.Database{},
		WithContainerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithContainerEmbedder(&testutil.StubEmbedder{Dim: 3}),
		WithContainerEnumerator(&testutil.StubEnumerator{}),
		WithContainerOutput(io.Discard),
	)

	svc, err := c.EmbeddingService(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.NotNil(t, c.Reporter)
	assert.NotNil(t, c.Retry)
}

func TestEmbeddingService_RequiresAPIKeyForOpenAI(t *testing.T) {
	c := NewContainerWithDB(testConfig(), &database.Database{},
		WithContainerEnumerator(&testutil.StubEnumerator{}),
	)

	_, err := c.EmbeddingService(context.Background())
	assert.ErrorIs(t, err, openai.ErrAPIKeyNotSet)
}

func TestEmbeddingService_RejectsInvalidGraphName(t *testing.T) {
	cfg := testConfig()
	cfg.Graph.Name = "bad name;"
	c := NewContainerWithDB(cfg, &database.Database{},
		WithContainerEmbedder(&testutil.StubEmbedder{Dim: 3}),
	)

	_, err := c.EmbeddingService(context.Background())
	assert.Error(t, err)
}

func TestSearchService_NodeSearchDoesNotNeedEmbedder(t *testing.T) {
	// APIキー未設定でもノードID検索用のサービスは構築できる
	c := NewContainerWithDB(testConfig(), &database.Database{})

	svc, err := c.SearchService(false)
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = c.SearchService(true)
	assert.ErrorIs(t, err, openai.ErrAPIKeyNotSet)
}
