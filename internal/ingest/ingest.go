package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/embedder"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

var (
	// ErrIngestInProgress is returned when a path ingestion is already running
	ErrIngestInProgress = errors.New("ingestion already in progress")
	// ErrInvalidEncoding is returned for files that are not UTF-8 text
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// Outcome classifies a single document ingestion
type Outcome string

const (
	OutcomeIngested Outcome = "ingested"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Recorder receives one observation per document ingestion
type Recorder interface {
	ObserveIngest(outcome Outcome, chunks int, elapsed time.Duration)
}

// Ingester coordinates the ingestion pipeline: chunk -> store -> embed
type Ingester struct {
	chunker   *chunker.Chunker
	storage   storage.Storage
	embedder  embedder.Embedder
	log       logger.Logger
	recorder  Recorder
	lock      IngestLock
	batchSize int
}

// Option configures an Ingester
type Option func(*Ingester)

// WithChunker sets the chunking engine. Attach observers to it before
// passing it in.
func WithChunker(c *chunker.Chunker) Option {
	return func(i *Ingester) {
		if c != nil {
			i.chunker = c
		}
	}
}

// WithEmbedder enables embedding generation after chunks are stored
func WithEmbedder(e embedder.Embedder) Option {
	return func(i *Ingester) {
		i.embedder = e
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(i *Ingester) {
		if l != nil {
			i.log = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(i *Ingester) {
		i.recorder = r
	}
}

// WithEmbedBatchSize sets how many chunk texts go into one embedding request
func WithEmbedBatchSize(n int) Option {
	return func(i *Ingester) {
		if n > 0 && n <= embedder.MaxBatchSize {
			i.batchSize = n
		}
	}
}

// New creates a new Ingester instance
func New(store storage.Storage, opts ...Option) *Ingester {
	i := &Ingester{
		storage:   store,
		log:       logger.NewNop(),
		batchSize: embedder.DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.chunker == nil {
		i.chunker = chunker.New(chunker.WithLogger(i.log))
	}
	return i
}

// Lock exposes the path ingestion lock so callers can report whether an
// ingestion is running.
func (i *Ingester) Lock() *IngestLock {
	return &i.lock
}

// DocumentResult describes what happened to one document
type DocumentResult struct {
	ExternalID     string
	DocumentID     int64
	Skipped        bool
	ChunksCreated  int
	ForcedSplits   int
	Embedded       int
	EmbeddingError string
	Duration       time.Duration
}

// IngestDocument chunks doc with cfg, replaces its stored chunk rows in
// one transaction and embeds the new chunks. An unchanged document
// chunked with identical settings is skipped.
//
// Embedding failures do not fail the call; the stored chunks stay and
// the error is reported in DocumentResult.EmbeddingError. A later call for
// the same unchanged document embeds the chunks still missing vectors
// without re-chunking.
func (i *Ingester) IngestDocument(ctx context.Context, doc types.Document, cfg chunker.Config) (result *DocumentResult, err error) {
	start := time.Now()
	defer func() {
		i.observe(result, err, time.Since(start))
	}()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if doc.ExternalID == "" {
		doc.ExternalID = ExternalIDFor(doc.SourcePath)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	settings, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode chunk settings: %w", err)
	}

	hash := doc.ContentHash()
	existing, err := i.storage.GetDocument(ctx, doc.ExternalID)
	switch {
	case err == nil:
		if existing.ContentHash == hash && existing.ChunkSettings == string(settings) {
			return i.resumeEmbedding(ctx, existing, start)
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	metadata := doc.CloneMetadata()
	records, err := i.chunker.Chunk(doc.Text, metadata, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	row := &storage.Document{
		ExternalID:    doc.ExternalID,
		Title:         doc.Title,
		SourcePath:    doc.SourcePath,
		ContentHash:   hash,
		SizeBytes:     int64(len(doc.Text)),
		Metadata:      metadata,
		TotalChunks:   len(records),
		ChunkSettings: string(settings),
		LastChunkedAt: time.Now(),
	}
	chunks, err := i.replaceChunks(ctx, row, records)
	if err != nil {
		return nil, err
	}

	result = &DocumentResult{
		ExternalID:    doc.ExternalID,
		DocumentID:    row.ID,
		ChunksCreated: len(chunks),
	}
	for _, c := range chunks {
		if c.IsForcedSplit {
			result.ForcedSplits++
		}
	}

	if i.embedder != nil && len(chunks) > 0 {
		embedded, embedErr := i.embedChunks(ctx, chunks)
		result.Embedded = embedded
		if embedErr != nil {
			i.log.Warn("embedding failed, chunks stored without vectors",
				"external_id", doc.ExternalID, "err", embedErr)
			result.EmbeddingError = embedErr.Error()
		}
	}

	result.Duration = time.Since(start)
	i.log.Info("document ingested",
		"external_id", doc.ExternalID, "chunks", result.ChunksCreated,
		"forced", result.ForcedSplits, "embedded", result.Embedded)
	return result, nil
}

// resumeEmbedding handles an unchanged document. It is skipped unless an
// embedder is configured and some stored chunks have no vector, in which
// case only those chunks are embedded.
func (i *Ingester) resumeEmbedding(ctx context.Context, existing *storage.Document, start time.Time) (*DocumentResult, error) {
	result := &DocumentResult{
		ExternalID: existing.ExternalID,
		DocumentID: existing.ID,
		Skipped:    true,
	}

	if i.embedder != nil {
		missing, err := i.storage.ListChunksWithoutEmbedding(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list unembedded chunks: %w", err)
		}
		if len(missing) > 0 {
			result.Skipped = false
			embedded, embedErr := i.embedChunks(ctx, missing)
			result.Embedded = embedded
			if embedErr != nil {
				i.log.Warn("embedding retry failed",
					"external_id", existing.ExternalID, "missing", len(missing), "err", embedErr)
				result.EmbeddingError = embedErr.Error()
			} else {
				i.log.Info("embedded chunks missing vectors",
					"external_id", existing.ExternalID, "embedded", embedded)
			}
		}
	}

	if result.Skipped {
		i.log.Debug("document unchanged, skipping", "external_id", existing.ExternalID)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// replaceChunks upserts the document and swaps its chunk rows atomically
func (i *Ingester) replaceChunks(ctx context.Context, row *storage.Document, records []types.ChunkRecord) ([]*storage.Chunk, error) {
	tx, err := i.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertDocument(ctx, row); err != nil {
		return nil, err
	}

	if err := tx.DeleteChunksByDocument(ctx, row.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old chunks: %w", err)
	}

	chunks := make([]*storage.Chunk, 0, len(records))
	for idx := range records {
		chunk := storage.FromRecord(row.ID, &records[idx])
		if err := tx.UpsertChunk(ctx, chunk); err != nil {
			return nil, fmt.Errorf("failed to store chunk %d: %w", idx, err)
		}
		chunks = append(chunks, chunk)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return chunks, nil
}

// embedChunks embeds chunk content in batches and stores the vectors. It
// returns how many vectors were stored before any failure.
func (i *Ingester) embedChunks(ctx context.Context, chunks []*storage.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Content
	}

	stored := 0
	offset := 0
	for _, batch := range embedder.Batches(texts, i.batchSize) {
		resp, err := i.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: batch})
		if err != nil {
			return stored, err
		}
		for j, emb := range resp.Embeddings {
			row := &storage.Embedding{
				ChunkID:   chunks[offset+j].ID,
				Vector:    storage.SerializeVector(emb.Vector),
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			}
			if err := i.storage.UpsertEmbedding(ctx, row); err != nil {
				return stored, fmt.Errorf("failed to store embedding: %w", err)
			}
			stored++
		}
		offset += len(batch)
	}
	return stored, nil
}

func (i *Ingester) observe(result *DocumentResult, err error, elapsed time.Duration) {
	if i.recorder == nil {
		return
	}
	switch {
	case err != nil:
		i.recorder.ObserveIngest(OutcomeFailed, 0, elapsed)
	case result.Skipped:
		i.recorder.ObserveIngest(OutcomeSkipped, 0, elapsed)
	default:
		i.recorder.ObserveIngest(OutcomeIngested, result.ChunksCreated, elapsed)
	}
}

// ExternalIDFor derives a document ID. Files get a stable SHA1 UUID of
// their absolute path so re-ingesting updates in place; anything else
// gets a random UUID.
func ExternalIDFor(sourcePath string) string {
	if sourcePath == "" {
		return uuid.New().String()
	}
	if abs, err := filepath.Abs(sourcePath); err == nil {
		sourcePath = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(sourcePath))).String()
}
