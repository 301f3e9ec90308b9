package chunker

import (
	"errors"
	"fmt"

	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/segmenter"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// Pipeline stage names reported by PipelineError.
const (
	StageSegment  = "segment"
	StageAssemble = "assemble"
	StageEnforce  = "enforce"
	StageValidate = "validate"
)

// PipelineError is a structural failure of the sentence-aware path. The
// orchestrator answers it with the window fallback.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("chunk pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Stats describes one chunking call.
type Stats struct {
	Strategy        string
	Sentences       int
	Chunks          int
	ForcedSplits    int
	OverlapRejected int
	Fallback        bool
}

// Observer receives the outcome of every successful chunking call.
type Observer interface {
	ObserveChunking(stats Stats, records []types.ChunkRecord)
}

// Chunker runs the normalize, segment, assemble, enforce pipeline. A
// Chunker is immutable after New and safe for concurrent use.
type Chunker struct {
	segmenters map[segmenter.Strategy]segmenter.Segmenter
	override   segmenter.Segmenter
	log        logger.Logger
	observer   Observer
	assemble   assembleFunc
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSegmenter forces one segmenter regardless of Config.Segmenter.
func WithSegmenter(s segmenter.Segmenter) Option {
	return func(c *Chunker) {
		c.override = s
	}
}

// WithLogger sets the logger. Overlap downgrades log at debug, fallbacks at
// warn.
func WithLogger(l logger.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver registers a statistics observer.
func WithObserver(o Observer) Option {
	return func(c *Chunker) {
		c.observer = o
	}
}

// New creates a new Chunker instance
func New(opts ...Option) *Chunker {
	c := &Chunker{
		log:      logger.NewNop(),
		assemble: assemble,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.segmenters = make(map[segmenter.Strategy]segmenter.Segmenter, len(segmenter.Strategies()))
	for _, s := range segmenter.Strategies() {
		seg, err := segmenter.New(s, c.log)
		if err != nil {
			// every listed strategy has a constructor
			panic(err)
		}
		c.segmenters[s] = seg
	}

	return c
}

// Chunk splits text into ordered records with New() defaults for
// collaborators.
func Chunk(text string, metadata map[string]any, cfg Config) ([]types.ChunkRecord, error) {
	return New().Chunk(text, metadata, cfg)
}

// Chunk normalizes text and splits it into records no longer than the
// effective ceiling. Metadata is attached to every record unchanged.
//
// Only configuration errors are returned. Any failure in the
// sentence-aware path falls back to fixed windows.
func (c *Chunker) Chunk(text string, metadata map[string]any, cfg Config) ([]types.ChunkRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	normalized := segmenter.Normalize(text)
	if normalized == "" {
		return []types.ChunkRecord{}, nil
	}

	seg := c.segmenterFor(cfg)
	stats := Stats{Strategy: seg.Name()}

	records, err := c.primary(normalized, cfg, seg, &stats)
	if err != nil {
		var pipeErr *PipelineError
		if !errors.As(err, &pipeErr) {
			return nil, err
		}
		c.log.Warn("sentence chunking failed, using window fallback",
			"stage", pipeErr.Stage, "err", pipeErr.Err, "length", runeLen(normalized))
		stats = Stats{Strategy: seg.Name(), Fallback: true}
		records = windowSplit(normalized, cfg.EffectiveCeiling())
		stats.ForcedSplits = len(records)
	}

	finalize(records, metadata)
	for i := range records {
		if err := records[i].Validate(cfg.AbsoluteCeiling); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	stats.Chunks = len(records)
	if c.observer != nil {
		c.observer.ObserveChunking(stats, records)
	}
	return records, nil
}

func (c *Chunker) segmenterFor(cfg Config) segmenter.Segmenter {
	if c.override != nil {
		return c.override
	}
	strategy, err := segmenter.ParseStrategy(string(cfg.Segmenter))
	if err != nil {
		strategy = segmenter.StrategyRegex
	}
	return c.segmenters[strategy]
}

// primary is the sentence-aware path. Every stage failure, panics
// included, comes back as a *PipelineError.
func (c *Chunker) primary(text string, cfg Config, seg segmenter.Segmenter, stats *Stats) ([]types.ChunkRecord, error) {
	var sentences []string
	if err := runStage(StageSegment, func() (err error) {
		sentences, err = seg.Segment(text)
		if err == nil && len(sentences) == 0 {
			err = errors.New("no sentences in non-empty text")
		}
		return err
	}); err != nil {
		return nil, err
	}
	stats.Sentences = len(sentences)

	var assembled []assembledChunk
	if err := runStage(StageAssemble, func() (err error) {
		assembled, err = c.assemble(sentences, cfg)
		return err
	}); err != nil {
		return nil, err
	}
	for i := range assembled {
		if assembled[i].forced {
			stats.ForcedSplits++
		}
	}

	var records []types.ChunkRecord
	if err := runStage(StageEnforce, func() error {
		e := &enforcer{
			words:   cfg.OverlapWords(),
			ceiling: cfg.EffectiveCeiling(),
			log:     c.log,
			stats:   stats,
		}
		records = e.apply(assembled)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := runStage(StageValidate, func() error {
		if len(records) == 0 {
			return errors.New("no chunks produced")
		}
		ceiling := cfg.EffectiveCeiling()
		for i := range records {
			if n := records[i].Length(); n == 0 || n > ceiling {
				return fmt.Errorf("chunk %d has length %d, ceiling %d", i, n, ceiling)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return records, nil
}

func runStage(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PipelineError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &PipelineError{Stage: stage, Err: err}
	}
	return nil
}

// finalize assigns sequence positions once every fragment exists.
func finalize(records []types.ChunkRecord, metadata map[string]any) {
	for i := range records {
		records[i].SequenceIndex = i
		records[i].TotalChunks = len(records)
		records[i].Metadata = metadata
	}
}
