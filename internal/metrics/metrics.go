package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/ingest"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

const namespace = "docchunk"

// Recorder collects chunking and ingestion metrics on its own registry.
// It implements chunker.Observer and ingest.Recorder.
type Recorder struct {
	registry *prom.Registry

	documentsChunked *prom.CounterVec
	chunksEmitted    prom.Counter
	overlapRejected  prom.Counter
	forcedSplits     prom.Counter
	fallbacks        prom.Counter
	chunkLength      prom.Histogram

	documentsIngested *prom.CounterVec
	ingestDuration    prom.Histogram
}

var (
	_ chunker.Observer = (*Recorder)(nil)
	_ ingest.Recorder  = (*Recorder)(nil)
)

// New creates a Recorder with every collector registered
func New() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		documentsChunked: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_chunked_total",
			Help:      "Documents run through the chunking engine, by segmenter strategy.",
		}, []string{"strategy"}),
		chunksEmitted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Chunk records produced.",
		}),
		overlapRejected: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "overlap_rejected_total",
			Help:      "Overlap prefixes dropped because they would exceed the ceiling.",
		}),
		forcedSplits: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "forced_splits_total",
			Help:      "Chunk records produced by size-driven splitting.",
		}),
		fallbacks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "window_fallbacks_total",
			Help:      "Chunking calls answered by the fixed-window fallback.",
		}),
		chunkLength: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_length_runes",
			Help:      "Length of emitted chunks in runes.",
			Buckets:   []float64{50, 100, 200, 300, 400, 600, 800, 1000, 1200, 1300, 1400},
		}),
		documentsIngested: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Document ingestions by outcome.",
		}, []string{"outcome"}),
		ingestDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time to ingest one document.",
			Buckets:   prom.DefBuckets,
		}),
	}

	r.registry.MustRegister(
		r.documentsChunked,
		r.chunksEmitted,
		r.overlapRejected,
		r.forcedSplits,
		r.fallbacks,
		r.chunkLength,
		r.documentsIngested,
		r.ingestDuration,
	)
	return r
}

// ObserveChunking implements chunker.Observer
func (r *Recorder) ObserveChunking(stats chunker.Stats, records []types.ChunkRecord) {
	r.documentsChunked.WithLabelValues(stats.Strategy).Inc()
	r.chunksEmitted.Add(float64(len(records)))
	r.overlapRejected.Add(float64(stats.OverlapRejected))
	r.forcedSplits.Add(float64(stats.ForcedSplits))
	if stats.Fallback {
		r.fallbacks.Inc()
	}
	for i := range records {
		r.chunkLength.Observe(float64(records[i].Length()))
	}
}

// ObserveIngest implements ingest.Recorder
func (r *Recorder) ObserveIngest(outcome ingest.Outcome, chunks int, elapsed time.Duration) {
	r.documentsIngested.WithLabelValues(string(outcome)).Inc()
	if outcome == ingest.OutcomeIngested {
		r.ingestDuration.Observe(elapsed.Seconds())
	}
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
