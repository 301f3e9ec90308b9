package segmenter

import (
	"strings"
	"unicode"
)

// punctuation kept by Normalize; everything else that is not a word
// character or whitespace is deleted.
const keptPunctuation = ".!?,:;-()"

// Normalize deletes disallowed characters and collapses every whitespace
// run, newlines included, to a single space. Deletion runs before
// collapsing so Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return -1
	}, text)

	return strings.Join(strings.Fields(cleaned), " ")
}

func allowed(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsMark(r):
		return true
	case r == '_':
		return true
	case unicode.IsSpace(r):
		return true
	default:
		return strings.ContainsRune(keptPunctuation, r)
	}
}
