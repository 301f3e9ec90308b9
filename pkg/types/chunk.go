package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ChunkRecord is one bounded-size piece of a document, ready for embedding
// and storage. Records are produced in order and never mutated afterwards.
type ChunkRecord struct {
	// Content
	Text          string `json:"text"`
	SentenceCount int    `json:"sentence_count"`

	// Position
	SequenceIndex int `json:"sequence_index"`
	TotalChunks   int `json:"total_chunks"`

	// Overlap carried over from the previous chunk, nil when none was applied
	HasOverlap  bool    `json:"has_overlap"`
	OverlapText *string `json:"overlap_text"`

	// Caller metadata, passed through unmodified
	Metadata map[string]any `json:"metadata"`

	// Set when the text was produced by a size-driven split instead of
	// sentence packing
	IsForcedSplit bool `json:"is_forced_split"`
}

// Length returns the text length in runes.
func (c *ChunkRecord) Length() int {
	return utf8.RuneCountInString(c.Text)
}

// Overlap returns the overlap prefix or "" when none was applied.
func (c *ChunkRecord) Overlap() string {
	if c.OverlapText == nil {
		return ""
	}
	return *c.OverlapText
}

// Body returns the text with the overlap prefix removed.
func (c *ChunkRecord) Body() string {
	if !c.HasOverlap {
		return c.Text
	}
	prefix := c.Overlap() + " "
	if len(c.Text) >= len(prefix) && c.Text[:len(prefix)] == prefix {
		return c.Text[len(prefix):]
	}
	return c.Text
}

// ContentHash returns the SHA-256 of the chunk text.
func (c *ChunkRecord) ContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Text))
}

// Validate checks the per-record invariants against the given ceiling.
// A ceiling <= 0 skips the length check.
func (c *ChunkRecord) Validate(ceiling int) error {
	if c.Text == "" {
		return ErrEmptyContent
	}

	if ceiling > 0 && c.Length() > ceiling {
		return fmt.Errorf("%w: %d runes > %d", ErrCeilingExceeded, c.Length(), ceiling)
	}

	if c.TotalChunks <= 0 || c.SequenceIndex < 0 || c.SequenceIndex >= c.TotalChunks {
		return fmt.Errorf("%w: %d of %d", ErrInvalidSequence, c.SequenceIndex, c.TotalChunks)
	}

	if c.HasOverlap != (c.Overlap() != "") {
		return errors.New("has_overlap does not match overlap_text")
	}

	return nil
}

// ValidateSequence checks that records carry indices 0..n-1 in order and
// agree on the total.
func ValidateSequence(records []ChunkRecord) error {
	for i := range records {
		if records[i].SequenceIndex != i {
			return fmt.Errorf("%w: position %d has index %d", ErrInvalidSequence, i, records[i].SequenceIndex)
		}
		if records[i].TotalChunks != len(records) {
			return fmt.Errorf("%w: position %d reports total %d, want %d",
				ErrInvalidSequence, i, records[i].TotalChunks, len(records))
		}
	}
	return nil
}
