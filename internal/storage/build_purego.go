//go:build purego || !sqlite_vec

package storage

// Default build: pure Go SQLite, no C toolchain required. FTS5 is built in;
// cosine similarity is computed in Go.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
