package types

import (
	"crypto/sha256"
	"strings"
)

// Document is a unit of already-extracted UTF-8 text submitted for chunking.
type Document struct {
	// Identification, optional for pure chunking
	ExternalID string
	Title      string
	SourcePath string

	// Content
	Text     string
	Metadata map[string]any
}

// ContentHash returns the SHA-256 of the document text.
func (d *Document) ContentHash() [32]byte {
	return sha256.Sum256([]byte(d.Text))
}

// Validate checks the fields required for ingestion.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ExternalID) == "" {
		return ErrEmptyExternalID
	}
	return nil
}

// CloneMetadata returns a shallow copy of the metadata map, nil stays nil.
func (d *Document) CloneMetadata() map[string]any {
	if d.Metadata == nil {
		return nil
	}
	out := make(map[string]any, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}
