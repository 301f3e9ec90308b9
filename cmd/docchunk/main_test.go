package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// execute runs the root command with args against an isolated HOME and
// database, returning stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOCCHUNK_DB_PATH", filepath.Join(home, "docchunk.db"))

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd.PersistentFlags())
		for _, c := range rootCmd.Commands() {
			resetFlags(c.Flags())
		}
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores defaults so flag state does not leak between tests
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docchunk-mcp dev")
	assert.Contains(t, out, "SQLite Driver:")
}

func TestChunkCmd(t *testing.T) {
	text := strings.Repeat("Short sentences pack together. ", 40)

	t.Run("stdin", func(t *testing.T) {
		out, err := execute(t, text, "chunk", "--target", "120", "--overlap", "20")
		require.NoError(t, err)

		var records []types.ChunkRecord
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		require.Greater(t, len(records), 1)
		for i, r := range records {
			assert.Equal(t, i, r.SequenceIndex)
			assert.Equal(t, len(records), r.TotalChunks)
		}
		assert.True(t, records[1].HasOverlap)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		require.NoError(t, os.WriteFile(path, []byte("One sentence only."), 0o600))

		out, err := execute(t, "", "chunk", path)
		require.NoError(t, err)

		var records []types.ChunkRecord
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		require.Len(t, records, 1)
		assert.Equal(t, "One sentence only.", records[0].Text)
	})

	t.Run("invalid segmenter", func(t *testing.T) {
		_, err := execute(t, text, "chunk", "--segmenter", "spacy")
		assert.Error(t, err)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := execute(t, "bad \xff byte", "chunk", "-")
		assert.Error(t, err)
	})
}

func TestIngestAndSearchCmd(t *testing.T) {
	home := t.TempDir()
	docs := filepath.Join(home, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide.md"),
		[]byte("Retention policies expire old snapshots. Backups run nightly."), 0o600))

	dbPath := filepath.Join(home, "shared.db")

	out, err := execute(t, "", "--db", dbPath, "ingest", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested: 1")

	out, err = execute(t, "", "--db", dbPath, "search", "snapshots", "--mode", "keyword")
	require.NoError(t, err)
	assert.Contains(t, out, "] guide (")
	assert.Contains(t, out, "Retention policies")

	_, err = execute(t, "", "--db", dbPath, "search", "   ")
	assert.Error(t, err)

	_, err = execute(t, "", "--db", dbPath, "ingest", filepath.Join(home, "missing"))
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n  b\tc", 10))
	assert.Equal(t, "héll...", snippet("héllo world", 4))
}
