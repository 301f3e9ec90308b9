package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "a b c", 10, []string{"a b c"}},
		{"packs greedily", "aa bb cc dd", 5, []string{"aa bb", "cc dd"}},
		{"exact fit", "abc de", 6, []string{"abc de"}},
		{"long word sliced", "xx " + strings.Repeat("y", 7) + " zz", 3, []string{"xx", "yyy", "yyy", "y", "zz"}},
		{"empty", "", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitWords(tt.text, tt.limit))
		})
	}
}

func TestSliceRunes_MultiByte(t *testing.T) {
	pieces := sliceRunes(strings.Repeat("é", 5), 2)
	assert.Equal(t, []string{"éé", "éé", "é"}, pieces)
}

func TestWindowSplit(t *testing.T) {
	text := strings.Repeat("abcdefghij", 25)
	records := windowSplit(text, 100)

	assert.Len(t, records, 3)
	var rebuilt strings.Builder
	for _, r := range records {
		assert.LessOrEqual(t, r.Length(), 100)
		assert.True(t, r.IsForcedSplit)
		assert.False(t, r.HasOverlap)
		rebuilt.WriteString(r.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestTrailingWords(t *testing.T) {
	assert.Equal(t, "three four five.", trailingWords("one two three four five.", 3))
	assert.Equal(t, "one two", trailingWords("one two", 3))
	assert.Equal(t, "", trailingWords("one two", 0))
	assert.Equal(t, "", trailingWords("", 3))
}
