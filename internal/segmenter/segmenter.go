package segmenter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/docchunk-mcp/internal/logger"
)

// ErrUnknownStrategy is returned when a strategy name has no implementation.
var ErrUnknownStrategy = errors.New("unknown segmenter strategy")

// Strategy names a sentence segmentation implementation.
type Strategy string

const (
	// StrategyRegex cuts after . ! or ? followed by whitespace.
	StrategyRegex Strategy = "regex"
	// StrategyUnicode uses UAX #29 sentence boundaries and falls back to
	// StrategyRegex when it fails.
	StrategyUnicode Strategy = "unicode"
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyRegex, StrategyUnicode}
}

// ParseStrategy resolves a strategy name. The empty name is the baseline.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "", StrategyRegex:
		return StrategyRegex, nil
	case StrategyUnicode:
		return StrategyUnicode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Segmenter splits text into an ordered list of trimmed, non-empty
// sentences.
type Segmenter interface {
	Name() string
	Segment(text string) ([]string, error)
}

// New builds the segmenter for strategy. Optional strategies come wrapped
// so that a failure falls back to the regex baseline for that call.
func New(strategy Strategy, log logger.Logger) (Segmenter, error) {
	if log == nil {
		log = logger.NewNop()
	}
	switch strategy {
	case "", StrategyRegex:
		return NewRegex(), nil
	case StrategyUnicode:
		return WithFallback(NewUnicode(), NewRegex(), log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// RegexSegmenter is the baseline segmenter. It never fails.
type RegexSegmenter struct{}

// NewRegex creates the baseline segmenter.
func NewRegex() *RegexSegmenter {
	return &RegexSegmenter{}
}

// Name implements Segmenter.
func (s *RegexSegmenter) Name() string { return string(StrategyRegex) }

// Segment implements Segmenter. Text without terminal punctuation comes
// back as a single sentence.
func (s *RegexSegmenter) Segment(text string) ([]string, error) {
	sentences := make([]string, 0, 8)
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// keep the punctuation mark, drop the whitespace after it
		sentences = appendTrimmed(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	sentences = appendTrimmed(sentences, text[start:])
	return sentences, nil
}

func appendTrimmed(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		dst = append(dst, s)
	}
	return dst
}

// fallbackSegmenter runs primary and switches to baseline when primary
// errors, panics, or yields nothing for non-empty input.
type fallbackSegmenter struct {
	primary  Segmenter
	baseline Segmenter
	log      logger.Logger
}

// WithFallback wraps primary so its failures are absorbed by baseline.
func WithFallback(primary, baseline Segmenter, log logger.Logger) Segmenter {
	if log == nil {
		log = logger.NewNop()
	}
	return &fallbackSegmenter{primary: primary, baseline: baseline, log: log}
}

func (f *fallbackSegmenter) Name() string { return f.primary.Name() }

func (f *fallbackSegmenter) Segment(text string) ([]string, error) {
	sentences, err := f.tryPrimary(text)
	if err == nil && (len(sentences) > 0 || strings.TrimSpace(text) == "") {
		return sentences, nil
	}
	if err == nil {
		err = errors.New("no sentences produced")
	}
	f.log.Debug("segmenter fallback", "strategy", f.primary.Name(), "baseline", f.baseline.Name(), "err", err)
	return f.baseline.Segment(text)
}

func (f *fallbackSegmenter) tryPrimary(text string) (sentences []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segmenter %s panicked: %v", f.primary.Name(), r)
		}
	}()
	return f.primary.Segment(text)
}
