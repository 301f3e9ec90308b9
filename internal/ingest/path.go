package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// DefaultExtensions are the file extensions picked up by IngestPath
var DefaultExtensions = []string{".txt", ".md", ".text"}

// Config contains configuration for path ingestion
type Config struct {
	Workers       int            // Number of concurrent workers (default: runtime.NumCPU())
	Extensions    []string       // File extensions to ingest (default: DefaultExtensions)
	IncludeHidden bool           // Whether to descend into dot directories (default: false)
	Chunking      chunker.Config // Engine configuration applied to every file
}

// DefaultConfig returns the default path ingestion configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		Extensions: slices.Clone(DefaultExtensions),
		Chunking:   chunker.DefaultConfig(),
	}
}

// Statistics contains statistics about a path ingestion
type Statistics struct {
	DocumentsIngested int
	DocumentsSkipped  int
	DocumentsFailed   int
	ChunksCreated     int
	ForcedSplits      int
	EmbeddingsCreated int
	Duration          time.Duration
	ErrorMessages     []string
}

// IngestPath ingests every matching text file under root. Only one path
// ingestion runs at a time; a concurrent call gets ErrIngestInProgress.
// Per-file failures are collected in Statistics.ErrorMessages.
func (i *Ingester) IngestPath(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !i.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer i.lock.Release()

	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions
	}
	if err := config.Chunking.Validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()

	files, err := discoverFiles(root, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	i.log.Info("ingesting path", "root", root, "files", len(files), "workers", config.Workers)

	stats := &Statistics{ErrorMessages: make([]string, 0)}
	if err := i.ingestFiles(ctx, files, config, stats); err != nil {
		return nil, fmt.Errorf("failed to ingest files: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// discoverFiles finds all files with a configured extension
func discoverFiles(root string, config *Config) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && !config.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if slices.Contains(config.Extensions, ext) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// ingestFiles ingests files concurrently, bounded by config.Workers
func (i *Ingester) ingestFiles(ctx context.Context, files []string, config *Config, stats *Statistics) error {
	sem := semaphore.NewWeighted(int64(config.Workers))

	var (
		ingested   atomic.Int32
		skipped    atomic.Int32
		failed     atomic.Int32
		chunks     atomic.Int32
		forced     atomic.Int32
		embeddings atomic.Int32
	)
	var mu sync.Mutex // Protect stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			result, err := i.ingestFile(gctx, path, config.Chunking)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				// Continue with other files
				return nil
			}

			if result.Skipped {
				skipped.Add(1)
				return nil
			}
			ingested.Add(1)
			chunks.Add(int32(result.ChunksCreated))
			forced.Add(int32(result.ForcedSplits))
			embeddings.Add(int32(result.Embedded))
			if result.EmbeddingError != "" {
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: embedding: %s", path, result.EmbeddingError))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats.DocumentsIngested = int(ingested.Load())
	stats.DocumentsSkipped = int(skipped.Load())
	stats.DocumentsFailed = int(failed.Load())
	stats.ChunksCreated = int(chunks.Load())
	stats.ForcedSplits = int(forced.Load())
	stats.EmbeddingsCreated = int(embeddings.Load())

	return nil
}

// ingestFile reads one file and ingests it as a document
func (i *Ingester) ingestFile(ctx context.Context, path string, cfg chunker.Config) (*DocumentResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	doc := types.Document{
		ExternalID: ExternalIDFor(path),
		Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath: path,
		Text:       string(content),
	}
	return i.IngestDocument(ctx, doc, cfg)
}
