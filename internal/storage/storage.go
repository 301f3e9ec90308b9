package storage

import (
	"context"
	"time"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying chunked documents
type Storage interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, externalID string) (*Document, error)
	GetDocumentByID(ctx context.Context, documentID int64) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	DeleteDocument(ctx context.Context, documentID int64) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error)
	ListChunksWithoutEmbedding(ctx context.Context, documentID int64) ([]*Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Document represents a chunked source document
type Document struct {
	ID            int64
	ExternalID    string
	Title         string
	SourcePath    string
	ContentHash   [32]byte
	SizeBytes     int64
	Metadata      map[string]any
	TotalChunks   int
	ChunkSettings string // JSON of the chunk configuration that produced the rows
	LastChunkedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is one stored chunk record
type Chunk struct {
	ID            int64
	DocumentID    int64
	SequenceIndex int
	TotalChunks   int
	Content       string
	ContentHash   [32]byte
	SentenceCount int
	HasOverlap    bool
	OverlapText   *string // Nullable
	IsForcedSplit bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	DocumentIDs   []string // External document IDs
	SourcePattern string   // Glob pattern for source paths
	ExcludeForced bool     // Skip chunks produced by size-driven splits
	MinRelevance  float64  // Minimum relevance score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   int64
	BM25Score float64
}

// Status contains statistics about the chunk store
type Status struct {
	DocumentsCount    int
	ChunksCount       int
	ForcedChunksCount int
	EmbeddingsCount   int
	IndexSizeMB       float64
	LastChunkedAt     time.Time
	Health            HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}

// FromRecord converts a chunk record into a storage row for documentID
func FromRecord(documentID int64, r *types.ChunkRecord) *Chunk {
	c := &Chunk{
		DocumentID:    documentID,
		SequenceIndex: r.SequenceIndex,
		TotalChunks:   r.TotalChunks,
		Content:       r.Text,
		ContentHash:   r.ContentHash(),
		SentenceCount: r.SentenceCount,
		HasOverlap:    r.HasOverlap,
		IsForcedSplit: r.IsForcedSplit,
	}
	if r.HasOverlap {
		overlap := r.Overlap()
		c.OverlapText = &overlap
	}
	return c
}

// ToRecord converts a storage row back into a chunk record
func (c *Chunk) ToRecord(metadata map[string]any) types.ChunkRecord {
	r := types.ChunkRecord{
		Text:          c.Content,
		SequenceIndex: c.SequenceIndex,
		TotalChunks:   c.TotalChunks,
		SentenceCount: c.SentenceCount,
		HasOverlap:    c.HasOverlap,
		Metadata:      metadata,
		IsForcedSplit: c.IsForcedSplit,
	}
	if c.OverlapText != nil {
		overlap := *c.OverlapText
		r.OverlapText = &overlap
	}
	return r
}
