// Package chunker splits document text into overlapping chunks that never
// exceed a hard character ceiling.
//
// # Basic Usage
//
//	c := chunker.New(chunker.WithLogger(log))
//	records, err := c.Chunk(text, metadata, chunker.DefaultConfig())
//	if err != nil {
//	    return err // only configuration errors reach the caller
//	}
//
// # Pipeline
//
// Text flows through four stages:
//   - Normalize: strip disallowed characters, collapse whitespace
//   - Segment: split into sentences (regex or UAX #29 strategy)
//   - Assemble: greedy sentence packing under TargetSize; sentences over
//     MaxSentenceSize are force-split at word boundaries
//   - Enforce: prepend the previous chunk's trailing OverlapBudget/10 words
//     when the result still fits, then force-split anything over
//     AbsoluteCeiling - SafetyMargin
//
// Sequence indices are assigned after the last stage, so records are
// always numbered 0..n-1 in emission order.
//
// # Sizes
//
// All lengths are counted in runes. Defaults:
//   - TargetSize: 300
//   - OverlapBudget: 30 (three words)
//   - MaxSentenceSize: 1200
//   - AbsoluteCeiling: 1400, SafetyMargin: 100 (effective ceiling 1300)
//
// # Fallback
//
// Any failure in the sentence-aware path, including a panic, is reported as
// a *PipelineError and answered with fixed windows of the effective ceiling.
// Fallback records carry no overlap and are marked IsForcedSplit. A word
// longer than the ceiling is cut into raw rune slices; it is never an error.
package chunker
