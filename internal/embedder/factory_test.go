package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		jina     string
		openai   string
		want     string
	}{
		{name: "explicit wins", provider: "OpenAI", jina: "j", want: ProviderOpenAI},
		{name: "jina key", jina: "j", openai: "o", want: ProviderJina},
		{name: "openai key", openai: "o", want: ProviderOpenAI},
		{name: "nothing set", want: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvJinaAPIKey, tt.jina)
			t.Setenv(EnvOpenAIAPIKey, tt.openai)
			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvJinaAPIKey, "")

	t.Run("local by default", func(t *testing.T) {
		emb, err := New(Config{})
		require.NoError(t, err)
		assert.Equal(t, ProviderLocal, emb.Provider())
		assert.Equal(t, LocalDimension, emb.Dimension())
	})

	t.Run("overrides preset", func(t *testing.T) {
		emb, err := New(Config{
			Provider:  "openai",
			APIKey:    "k",
			BaseURL:   "http://localhost:9999/v1",
			Model:     "custom",
			Dimension: 64,
		})
		require.NoError(t, err)
		assert.Equal(t, "custom", emb.Model())
		assert.Equal(t, 64, emb.Dimension())
	})

	t.Run("jina preset", func(t *testing.T) {
		emb, err := New(Config{Provider: ProviderJina, APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, ProviderJina, emb.Provider())
		assert.Equal(t, JinaDimension, emb.Dimension())
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderOpenAI})
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "mystery"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
}
