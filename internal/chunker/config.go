package chunker

import (
	"errors"
	"fmt"

	"github.com/dshills/docchunk-mcp/internal/segmenter"
)

// Default sizes, in characters (runes).
const (
	DefaultTargetSize      = 300
	DefaultOverlapBudget   = 30
	DefaultMaxSentenceSize = 1200
	DefaultAbsoluteCeiling = 1400
	DefaultSafetyMargin    = 100

	// charsPerOverlapWord converts the overlap budget into a word count.
	charsPerOverlapWord = 10
)

// ErrInvalidConfig is returned for size configurations that cannot produce
// valid chunks. It is never recovered by the fallback path.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Config holds the size parameters of one chunking call. It is a plain
// value; callers own their copy.
type Config struct {
	// TargetSize is the soft upper bound for sentence packing.
	TargetSize int `json:"target_size" toml:"target_size"`
	// OverlapBudget is the overlap allowance in characters. The number of
	// trailing words carried forward is OverlapBudget / 10.
	OverlapBudget int `json:"overlap_budget" toml:"overlap_budget"`
	// MaxSentenceSize is the hard limit for a single sentence.
	MaxSentenceSize int `json:"max_sentence_size" toml:"max_sentence_size"`
	// AbsoluteCeiling is the largest chunk the downstream index accepts.
	AbsoluteCeiling int `json:"absolute_ceiling" toml:"absolute_ceiling"`
	// SafetyMargin is subtracted from AbsoluteCeiling when validating.
	SafetyMargin int `json:"safety_margin" toml:"safety_margin"`
	// Segmenter selects the sentence segmentation strategy.
	Segmenter segmenter.Strategy `json:"segmenter" toml:"segmenter"`
}

// DefaultConfig returns a fresh default configuration.
func DefaultConfig() Config {
	return Config{
		TargetSize:      DefaultTargetSize,
		OverlapBudget:   DefaultOverlapBudget,
		MaxSentenceSize: DefaultMaxSentenceSize,
		AbsoluteCeiling: DefaultAbsoluteCeiling,
		SafetyMargin:    DefaultSafetyMargin,
		Segmenter:       segmenter.StrategyRegex,
	}
}

// EffectiveCeiling is the limit every chunk is validated against.
func (c Config) EffectiveCeiling() int {
	return c.AbsoluteCeiling - c.SafetyMargin
}

// OverlapWords is the number of trailing words carried into the next chunk.
func (c Config) OverlapWords() int {
	return c.OverlapBudget / charsPerOverlapWord
}

// Validate checks the configuration, wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.TargetSize <= 0:
		return fmt.Errorf("%w: target_size must be positive, got %d", ErrInvalidConfig, c.TargetSize)
	case c.MaxSentenceSize <= 0:
		return fmt.Errorf("%w: max_sentence_size must be positive, got %d", ErrInvalidConfig, c.MaxSentenceSize)
	case c.AbsoluteCeiling <= 0:
		return fmt.Errorf("%w: absolute_ceiling must be positive, got %d", ErrInvalidConfig, c.AbsoluteCeiling)
	case c.OverlapBudget < 0:
		return fmt.Errorf("%w: overlap_budget must not be negative, got %d", ErrInvalidConfig, c.OverlapBudget)
	case c.SafetyMargin < 0:
		return fmt.Errorf("%w: safety_margin must not be negative, got %d", ErrInvalidConfig, c.SafetyMargin)
	case c.SafetyMargin >= c.AbsoluteCeiling:
		return fmt.Errorf("%w: safety_margin %d leaves no room under absolute_ceiling %d",
			ErrInvalidConfig, c.SafetyMargin, c.AbsoluteCeiling)
	case c.TargetSize > c.EffectiveCeiling():
		return fmt.Errorf("%w: target_size %d exceeds effective ceiling %d",
			ErrInvalidConfig, c.TargetSize, c.EffectiveCeiling())
	}

	if _, err := segmenter.ParseStrategy(string(c.Segmenter)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
