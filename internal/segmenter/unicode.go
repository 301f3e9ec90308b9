package segmenter

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// UnicodeSegmenter finds sentence boundaries with the UAX #29 rules.
// It handles abbreviations and closing quotes better than the regex
// baseline.
type UnicodeSegmenter struct{}

// NewUnicode creates a UAX #29 segmenter.
func NewUnicode() *UnicodeSegmenter {
	return &UnicodeSegmenter{}
}

// Name implements Segmenter.
func (s *UnicodeSegmenter) Name() string { return string(StrategyUnicode) }

// Segment implements Segmenter. A UAX #29 boundary that is not followed
// by whitespace (as in "Stop?Then") is not a cut; that sentence is merged
// into the next one so joining the sentences with single spaces gives
// back the normalized text.
func (s *UnicodeSegmenter) Segment(text string) ([]string, error) {
	sentences := make([]string, 0, 8)
	state := -1
	var sentence, pending string
	for len(text) > 0 {
		sentence, text, state = uniseg.FirstSentenceInString(text, state)
		pending += sentence
		if len(text) > 0 && !endsInSpace(pending) {
			continue
		}
		sentences = appendTrimmed(sentences, pending)
		pending = ""
	}
	return sentences, nil
}

func endsInSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}
