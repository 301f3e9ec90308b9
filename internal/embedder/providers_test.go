package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status *atomic.Int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}

		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingsResponse{Model: req.Model}
		// Reverse order to exercise index handling
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(req.Input[i])), 0, 0}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testHTTPProvider(t *testing.T, url string) *HTTPProvider {
	t.Helper()
	p, err := NewHTTPProvider(HTTPConfig{
		Name:      ProviderOpenAI,
		BaseURL:   url + "/",
		APIKey:    "test-key",
		Model:     DefaultOpenAIModel,
		Dimension: 3,
		Retry:     RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	}, NewCache(10))
	require.NoError(t, err)
	return p
}

func TestHTTPProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("batch preserves input order", func(t *testing.T) {
		var status, calls atomic.Int32
		status.Store(http.StatusOK)
		server := newTestServer(t, &status, &calls)
		defer server.Close()

		p := testHTTPProvider(t, server.URL)
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "bbb", "cc"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
		assert.Equal(t, float32(3), resp.Embeddings[1].Vector[0])
		assert.Equal(t, float32(2), resp.Embeddings[2].Vector[0])
		assert.Equal(t, ComputeHash("bbb"), resp.Embeddings[1].Hash)
		assert.Equal(t, ProviderOpenAI, resp.Provider)
	})

	t.Run("single embedding is cached", func(t *testing.T) {
		var status, calls atomic.Int32
		status.Store(http.StatusOK)
		server := newTestServer(t, &status, &calls)
		defer server.Close()

		p := testHTTPProvider(t, server.URL)
		first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)
		second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
		require.NoError(t, err)

		assert.Equal(t, first.Vector, second.Vector)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var status, calls atomic.Int32
		status.Store(http.StatusServiceUnavailable)
		server := newTestServer(t, &status, &calls)
		defer server.Close()

		p := testHTTPProvider(t, server.URL)
		_, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"x"}})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var status, calls atomic.Int32
		status.Store(http.StatusUnauthorized)
		server := newTestServer(t, &status, &calls)
		defer server.Close()

		p := testHTTPProvider(t, server.URL)
		_, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"x"}})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewHTTPProvider(HTTPConfig{Name: ProviderJina, BaseURL: JinaBaseURL, Model: DefaultJinaModel}, nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "The quick brown fox."})
		require.NoError(t, err)
		b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the QUICK brown fox"})
		require.NoError(t, err)

		require.Len(t, a.Vector, LocalDimension)
		assert.Equal(t, a.Vector, b.Vector, "case and punctuation are ignored")

		var norm float64
		for _, v := range a.Vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})

	t.Run("shared vocabulary scores higher", func(t *testing.T) {
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{
			"sentence segmentation splits documents",
			"documents are split by sentence segmentation",
			"bananas ripen in warm kitchens",
		}})
		require.NoError(t, err)

		related := dot(resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
		unrelated := dot(resp.Embeddings[0].Vector, resp.Embeddings[2].Vector)
		assert.Greater(t, related, unrelated)
	})

	t.Run("punctuation only yields zero vector", func(t *testing.T) {
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "..."})
		require.NoError(t, err)
		for _, v := range emb.Vector {
			assert.Zero(t, v)
		}
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
