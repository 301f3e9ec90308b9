package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string `toml:"provider"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	CacheSize int    `toml:"cache_size"`
}

// DefaultConfig returns a local-provider configuration
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderLocal,
		CacheSize: DefaultCacheSize,
	}
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. DOCCHUNK_EMBEDDING_PROVIDER (jina, openai, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	cfg := DefaultConfig()
	cfg.Provider = DetectProvider()
	return New(cfg)
}

// New creates an embedder with explicit configuration. BaseURL, Model
// and Dimension override the provider preset when set.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderLocal {
		return NewLocalProvider(cache)
	}

	preset, err := presetConfig(provider)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey != "" {
		preset.APIKey = cfg.APIKey
	}
	if cfg.BaseURL != "" {
		preset.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		preset.Model = cfg.Model
	}
	if cfg.Dimension > 0 {
		preset.Dimension = cfg.Dimension
	}

	emb, err := NewHTTPProvider(preset, cache)
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", provider, err)
	}
	return emb, nil
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
