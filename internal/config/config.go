package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/embedder"
	"github.com/dshills/docchunk-mcp/internal/ingest"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/segmenter"
)

// Environment variables that override file values
const (
	EnvDBPath      = "DOCCHUNK_DB_PATH"
	EnvLogLevel    = "DOCCHUNK_LOG_LEVEL"
	EnvLogJSON     = "DOCCHUNK_LOG_JSON"
	EnvMetricsAddr = "DOCCHUNK_METRICS_ADDR"
	EnvWorkers     = "DOCCHUNK_WORKERS"
	EnvSegmenter   = "DOCCHUNK_SEGMENTER"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the application configuration
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Embedding embedder.Config `toml:"embedding"`
	Chunking  chunker.Config  `toml:"chunking"`
	Ingest    IngestConfig    `toml:"ingest"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// StorageConfig locates the SQLite database
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// IngestConfig controls path ingestion
type IngestConfig struct {
	Workers       int      `toml:"workers"`
	BatchSize     int      `toml:"batch_size"`
	Extensions    []string `toml:"extensions"`
	IncludeHidden bool     `toml:"include_hidden"`
}

// LogConfig controls logger output
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Dir returns the default configuration directory, ~/.docchunk
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".docchunk"), nil
}

// Default returns the built-in configuration
func Default() *Config {
	dbPath := "docchunk.db"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "docchunk.db")
	}

	return &Config{
		Storage:   StorageConfig{DBPath: dbPath},
		Embedding: embedder.DefaultConfig(),
		Chunking:  chunker.DefaultConfig(),
		Ingest: IngestConfig{
			Workers:    runtime.NumCPU(),
			BatchSize:  embedder.DefaultBatchSize,
			Extensions: slices.Clone(ingest.DefaultExtensions),
		},
		Log: LogConfig{Level: string(logger.InfoLevel)},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path tries ~/.docchunk/config.toml; a missing default file is
// not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err == nil {
			path = filepath.Join(dir, "config.toml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with DOCCHUNK_* variables
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvSegmenter); v != "" {
		strategy, err := segmenter.ParseStrategy(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvSegmenter, err)
		}
		c.Chunking.Segmenter = strategy
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvLogJSON, v)
		}
		c.Log.JSON = b
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvWorkers, v)
		}
		c.Ingest.Workers = n
	}
	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		return fmt.Errorf("%w: storage.db_path is required", ErrInvalid)
	}
	if !validLevel(c.Log.Level) {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("%w: ingest.workers must be positive", ErrInvalid)
	}
	if c.Ingest.BatchSize < 1 || c.Ingest.BatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("%w: ingest.batch_size must be in [1, %d]", ErrInvalid, embedder.MaxBatchSize)
	}
	for _, ext := range c.Ingest.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: ingest extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("%w: chunking: %v", ErrInvalid, err)
	}
	return nil
}

// ChunkingConfig returns a copy of the engine configuration
func (c *Config) ChunkingConfig() chunker.Config {
	return c.Chunking
}

func validLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// IngestPathConfig builds the path ingestion configuration
func (c *Config) IngestPathConfig() *ingest.Config {
	return &ingest.Config{
		Workers:       c.Ingest.Workers,
		Extensions:    slices.Clone(c.Ingest.Extensions),
		IncludeHidden: c.Ingest.IncludeHidden,
		Chunking:      c.Chunking,
	}
}

// LoggerConfig builds the logger configuration
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(c.Log.Level)
	lc.JSON = c.Log.JSON
	return lc
}
