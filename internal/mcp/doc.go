// Package mcp implements the Model Context Protocol (MCP) server for docchunk.
//
// The server exposes five tools:
//   - chunk_text: split text into bounded chunks without storing anything
//   - ingest_document: chunk, store and embed one document
//   - ingest_path: ingest every text file under a directory
//   - search_chunks: hybrid, vector or keyword search over stored chunks
//   - get_status: counts, index size and health
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. Stdout carries protocol messages only;
// all logging goes to stderr.
//
//	docchunk serve
//
// # Tool: chunk_text
//
//	Request:
//	{
//	  "text": "First sentence. Second sentence.",
//	  "target_size": 300,
//	  "segmenter": "unicode",
//	  "metadata": {"source": "notes"}
//	}
//
// Response carries the chunk records in order, each with its text,
// sentence count, sequence index, total count, overlap text and forced
// split flag.
//
// Size overrides are accepted by chunk_text, ingest_document and
// ingest_path and start from the configured [chunking] values.
//
// # Tool: ingest_path
//
// Only one path ingestion runs at a time. A second call while one is
// running fails with ErrorCodeIngestInProgress.
//
// # Error Codes
//
//   - -32602: invalid parameters (including invalid chunk settings)
//   - -32603: internal error
//   - -32001: path not found
//   - -32002: ingestion already in progress
//   - -32004: empty query
package mcp
