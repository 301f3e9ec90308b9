// Package segmenter normalizes raw document text and splits it into
// sentences.
//
// Normalize is a pure leaf function. Sentence splitting is a capability
// behind the Segmenter interface with two strategies:
//
//   - regex: cuts after '.', '!' or '?' followed by whitespace. The baseline;
//     it never fails.
//   - unicode: UAX #29 sentence boundaries (github.com/rivo/uniseg), wrapped
//     so any failure falls back to the baseline for that call.
//
// Strategies are chosen once, at construction:
//
//	seg, err := segmenter.New(segmenter.StrategyUnicode, log)
//	if err != nil {
//	    return err
//	}
//	sentences, err := seg.Segment(segmenter.Normalize(raw))
package segmenter
