// Package ingest runs documents through the chunking engine and persists
// the results.
//
// IngestDocument chunks one document, replaces its chunk rows inside a
// single transaction and then embeds the new chunks in batches. A
// document whose content hash and chunk settings match the stored row is
// skipped.
//
// IngestPath walks a directory for text files and ingests them
// concurrently, bounded by a weighted semaphore. Only one path ingestion
// may run per Ingester; IngestLock enforces that without blocking.
package ingest
