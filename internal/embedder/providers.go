package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Environment variables
	EnvProvider     = "DOCCHUNK_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"

	// Default endpoints
	OpenAIBaseURL = "https://api.openai.com/v1"
	JinaBaseURL   = "https://api.jina.ai/v1"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hashed-bow"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	defaultHTTPTimeout = 30 * time.Second
)

// HTTPConfig describes an OpenAI-compatible embeddings endpoint
type HTTPConfig struct {
	Name      string // Provider name reported by Provider()
	BaseURL   string // Endpoint root; "/embeddings" is appended
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
	Retry     RetryConfig
}

// presetConfig returns the endpoint defaults for a named provider
func presetConfig(name string) (HTTPConfig, error) {
	switch name {
	case ProviderOpenAI:
		return HTTPConfig{
			Name:      ProviderOpenAI,
			BaseURL:   OpenAIBaseURL,
			APIKey:    os.Getenv(EnvOpenAIAPIKey),
			Model:     DefaultOpenAIModel,
			Dimension: OpenAIDimension,
		}, nil
	case ProviderJina:
		return HTTPConfig{
			Name:      ProviderJina,
			BaseURL:   JinaBaseURL,
			APIKey:    os.Getenv(EnvJinaAPIKey),
			Model:     DefaultJinaModel,
			Dimension: JinaDimension,
		}, nil
	default:
		return HTTPConfig{}, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, name)
	}
}

// HTTPProvider implements Embedder against any endpoint speaking the
// OpenAI embeddings wire format. OpenAI and Jina both do.
type HTTPProvider struct {
	cfg        HTTPConfig
	httpClient *http.Client
	cache      *Cache
}

// NewHTTPProvider creates an embedder for an OpenAI-compatible endpoint
func NewHTTPProvider(cfg HTTPConfig, cache *Cache) (*HTTPProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key for %s not set", ErrNoProviderEnabled, cfg.Name)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url for %s not set", ErrInvalidInput, cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model for %s not set", ErrInvalidInput, cfg.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}, nil
}

// NewOpenAIProvider creates an OpenAI embedder. An empty apiKey falls
// back to OPENAI_API_KEY.
func NewOpenAIProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	cfg, _ := presetConfig(ProviderOpenAI)
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	return NewHTTPProvider(cfg, cache)
}

// NewJinaProvider creates a Jina AI embedder. An empty apiKey falls
// back to JINA_API_KEY.
func NewJinaProvider(apiKey string, cache *Cache) (*HTTPProvider, error) {
	cfg, _ := presetConfig(ProviderJina)
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	return NewHTTPProvider(cfg, cache)
}

func (h *HTTPProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = h.cfg.Model
	}

	// Check cache
	hash := ComputeHash(req.Text)
	if h.cache != nil {
		if emb, ok := h.cache.Get(cacheKey(model, hash)); ok {
			return emb, nil
		}
	}

	// Use batch API for consistency
	resp, err := h.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (h *HTTPProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = h.cfg.Model
	}

	embeddings, err := retryWithBackoff(ctx, h.cfg.Retry, func() ([]*Embedding, error) {
		return h.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(embeddings), len(req.Texts))
	}

	for i, emb := range embeddings {
		emb.Hash = ComputeHash(req.Texts[i])
		if h.cache != nil {
			h.cache.Set(cacheKey(model, emb.Hash), emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   h.cfg.Name,
		Model:      model,
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (h *HTTPProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: model})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if !retryableStatus(resp.StatusCode) {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Responses may arrive out of order; index is authoritative.
	embeddings := make([]*Embedding, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, permanent(fmt.Errorf("response index %d out of range", data.Index))
		}
		responseModel := apiResp.Model
		if responseModel == "" {
			responseModel = model
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  h.cfg.Name,
			Model:     responseModel,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, permanent(fmt.Errorf("missing embedding for index %d", i))
		}
	}

	return embeddings, nil
}

// retryableStatus reports whether an HTTP status is worth retrying
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (h *HTTPProvider) Dimension() int {
	return h.cfg.Dimension
}

func (h *HTTPProvider) Provider() string {
	return h.cfg.Name
}

func (h *HTTPProvider) Model() string {
	return h.cfg.Model
}

func (h *HTTPProvider) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic feature-hashed bag-of-words
// vectors. No network, no model files; similar vocabulary yields similar
// vectors, which is enough for offline search and tests.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: LocalDimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	key := cacheKey(l.model, hash)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    l.vectorize(req.Text),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}
	if l.cache != nil {
		l.cache.Set(key, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

// vectorize hashes lowercased word tokens into buckets. A second hash
// picks the sign so collisions tend to cancel instead of accumulate.
func (l *LocalProvider) vectorize(text string) []float32 {
	vector := make([]float32, l.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		bucket := sum % uint64(l.dimension)
		if (sum>>32)&1 == 1 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}
	return NormalizeVector(vector)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector scales v to unit length in place. A zero vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	magnitude := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= magnitude
	}

	return v
}
