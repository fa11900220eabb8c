package langchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_Validation(t *testing.T) {
	_, err := NewEmbedder(Config{Provider: ProviderCompatible, Model: "m"}, nil)
	assert.ErrorContains(t, err, "base URL is required")

	_, err = NewEmbedder(Config{Provider: "unknown", Model: "m"}, nil)
	assert.ErrorContains(t, err, "unsupported embedding provider")

	_, err = NewEmbedder(Config{Provider: ProviderOllama}, nil)
	assert.ErrorContains(t, err, "model is required")
}

func TestEmbedder_CompatibleServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}],
			"model": "nomic-embed-text",
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	embedder, err := NewEmbedder(Config{
		Provider:  ProviderCompatible,
		BaseURL:   server.URL,
		Model:     "nomic-embed-text",
		Dimension: 3,
	}, nil)
	require.NoError(t, err)

	vector, err := embedder.Embed(context.Background(), "Person: Ada")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, 3, embedder.Dimension())
}
