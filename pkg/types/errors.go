package types

import "errors"

// Domain errors for type validation
var (
	// Chunk record errors
	ErrEmptyContent        = errors.New("content cannot be empty")
	ErrCeilingExceeded     = errors.New("chunk exceeds ceiling")
	ErrInvalidSequence     = errors.New("invalid chunk sequence")
	ErrEmptyExternalID     = errors.New("document external ID is required")
	ErrMissingDocumentInfo = errors.New("document info is required")

	// Search result errors
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
)
