package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongjiahong/qa-system/internal/adapter/ollama"
	"github.com/dongjiahong/qa-system/internal/domain"
)

func TestGenerator_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "{\"question\": \"什么是接口？\", \"background\": \"\"}",
			"done":     true,
		})
	}))
	defer srv.Close()

	g := ollama.NewGenerator(srv.URL, "qwen3:8b", nil)

	resp, err := g.Generate(context.Background(), "生成一个问题", domain.GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	require.NoError(t, err)
	assert.True(t, resp.Done)
	assert.Contains(t, resp.Text, "什么是接口")

	assert.Equal(t, "/api/generate", gotPath)
	assert.Equal(t, "qwen3:8b", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
	opts := gotBody["options"].(map[string]interface{})
	assert.InDelta(t, 0.7, opts["temperature"], 0.001)
	assert.InDelta(t, 1000, opts["num_predict"], 0.001)
}

func TestGenerator_ServerErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := ollama.NewGenerator(srv.URL, "qwen3:8b", nil)

	_, err := g.Generate(context.Background(), "p", domain.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestGenerator_ConnectionFailureMapsToUnavailable(t *testing.T) {
	g := ollama.NewGenerator("http://127.0.0.1:1", "qwen3:8b", nil)

	_, err := g.Generate(context.Background(), "p", domain.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestGenerator_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "   ", "done": true})
	}))
	defer srv.Close()

	g := ollama.NewGenerator(srv.URL, "qwen3:8b", nil)

	_, err := g.Generate(context.Background(), "p", domain.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrModelResponse)
}

func TestGenerator_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	g := ollama.NewGenerator(srv.URL, "qwen3:8b", nil)

	_, err := g.Generate(ctx, "p", domain.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	e := ollama.NewEmbedder(srv.URL, "mxbai-embed-large", 0)

	vectors, err := e.Encode(context.Background(), []string{"一段文本"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Len(t, vectors[0], 3)
}

func TestEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{},
		})
	}))
	defer srv.Close()

	e := ollama.NewEmbedder(srv.URL, "mxbai-embed-large", 0)

	_, err := e.Encode(context.Background(), []string{"一段文本"})
	assert.Error(t, err)
}
