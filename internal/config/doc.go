// Package config loads docchunk settings from a TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the TOML file, DOCCHUNK_*
// environment variables, command-line flags (applied by the caller).
//
//	[storage]
//	db_path = "~/.docchunk/docchunk.db"
//
//	[embedding]
//	provider = "local"
//
//	[chunking]
//	target_size = 300
//	overlap_budget = 30
//	segmenter = "unicode"
//
//	[ingest]
//	workers = 4
//	extensions = [".md", ".txt"]
package config
