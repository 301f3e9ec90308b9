package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// splitWords packs whitespace-separated words into fragments of at most
// limit runes, joined by single spaces. A word longer than limit is cut
// into raw rune slices, each its own fragment.
func splitWords(text string, limit int) []string {
	var (
		fragments []string
		current   strings.Builder
		curLen    int
	)

	flush := func() {
		if curLen > 0 {
			fragments = append(fragments, current.String())
			current.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		n := runeLen(word)

		if n > limit {
			flush()
			fragments = append(fragments, sliceRunes(word, limit)...)
			continue
		}

		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			current.WriteByte(' ')
			curLen++
		}
		current.WriteString(word)
		curLen += n
	}
	flush()

	return fragments
}

// sliceRunes cuts s into consecutive pieces of at most size runes.
func sliceRunes(s string, size int) []string {
	pieces := make([]string, 0, runeLen(s)/size+1)
	for s != "" {
		end, count := 0, 0
		for end < len(s) && count < size {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
			count++
		}
		pieces = append(pieces, s[:end])
		s = s[end:]
	}
	return pieces
}

// windowSplit is the last-resort splitter: consecutive windows of size
// runes with no regard for sentence or word boundaries.
func windowSplit(text string, size int) []types.ChunkRecord {
	windows := sliceRunes(text, size)
	records := make([]types.ChunkRecord, 0, len(windows))
	for _, w := range windows {
		records = append(records, types.ChunkRecord{
			Text:          w,
			IsForcedSplit: true,
		})
	}
	return records
}

// trailingWords returns the last n words of text joined by single spaces.
func trailingWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
