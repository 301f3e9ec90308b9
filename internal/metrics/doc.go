// Package metrics exports chunking and ingestion counters to Prometheus.
//
// A Recorder owns a private registry, so tests and multiple servers in one
// process never collide on the global default registerer.
package metrics
