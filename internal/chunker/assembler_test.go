package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(chunks []assembledChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.text
	}
	return out
}

func TestAssemble_GreedyPacking(t *testing.T) {
	cfg := Config{TargetSize: 20, MaxSentenceSize: 50}
	sentences := []string{"Short one.", "Tiny.", "Another sentence.", "End."}

	chunks, err := assemble(sentences, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"Short one. Tiny.", "Another sentence.", "End."}, texts(chunks))
	assert.Equal(t, 2, chunks[0].sentences)
	assert.False(t, chunks[0].forced)
}

func TestAssemble_ExactFitStays(t *testing.T) {
	// "aaaa." + " " + "bbbb." is exactly 11
	cfg := Config{TargetSize: 11, MaxSentenceSize: 50}

	chunks, err := assemble([]string{"aaaa.", "bbbb.", "c."}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa. bbbb.", "c."}, texts(chunks))
}

func TestAssemble_SentenceAboveTargetStandsAlone(t *testing.T) {
	cfg := Config{TargetSize: 10, MaxSentenceSize: 50}
	long := "This sentence is longer than ten."

	chunks, err := assemble([]string{"Hi.", long, "Bye."}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi.", long, "Bye."}, texts(chunks))
	for _, c := range chunks {
		assert.False(t, c.forced)
	}
}

func TestAssemble_OversizedSentenceForced(t *testing.T) {
	cfg := Config{TargetSize: 20, MaxSentenceSize: 12}
	oversized := "alpha beta gamma delta epsilon."

	chunks, err := assemble([]string{"Open.", oversized, "Close."}, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"Open.", "alpha beta", "gamma delta", "epsilon.", "Close."}, texts(chunks))
	assert.False(t, chunks[0].forced)
	for _, c := range chunks[1:4] {
		assert.True(t, c.forced)
		assert.Equal(t, 1, c.sentences)
		assert.LessOrEqual(t, runeLen(c.text), cfg.MaxSentenceSize)
	}
	assert.False(t, chunks[4].forced)
}

func TestAssemble_OversizedWordSliced(t *testing.T) {
	cfg := Config{TargetSize: 5, MaxSentenceSize: 4}

	chunks, err := assemble([]string{strings.Repeat("z", 10)}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"zzzz", "zzzz", "zz"}, texts(chunks))
}

func TestAssemble_Empty(t *testing.T) {
	chunks, err := assemble(nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
