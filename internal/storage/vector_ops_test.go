package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

type searchFixture struct {
	storage *SQLiteStorage
	chunks  map[string]int64
}

// setupSearchData stores two documents with hand-made 3-d embeddings.
func setupSearchData(t *testing.T) *searchFixture {
	t.Helper()
	storage := setupTestDB(t)
	ctx := context.Background()
	f := &searchFixture{storage: storage, chunks: map[string]int64{}}

	rows := []struct {
		doc    string
		index  int
		text   string
		vector []float32
		forced bool
	}{
		{"guide", 0, "Install the package with the installer.", []float32{1, 0, 0}, false},
		{"guide", 1, "Configure logging and metrics.", []float32{0, 1, 0}, false},
		{"guide", 2, "installerinstallerinstaller", []float32{0.9, 0.1, 0}, true},
		{"notes", 0, "Release notes mention the installer.", []float32{0.7, 0.7, 0}, false},
	}

	docs := map[string]*Document{}
	for _, r := range rows {
		doc, ok := docs[r.doc]
		if !ok {
			doc = createTestDocument(t, storage, r.doc)
			docs[r.doc] = doc
		}
		record := types.ChunkRecord{Text: r.text, SequenceIndex: r.index, TotalChunks: 3, IsForcedSplit: r.forced}
		chunk := FromRecord(doc.ID, &record)
		require.NoError(t, storage.UpsertChunk(ctx, chunk))
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			ChunkID: chunk.ID, Vector: SerializeVector(r.vector), Dimension: len(r.vector),
			Provider: "test", Model: "fixed",
		}))
		f.chunks[r.doc+"/"+r.text[:5]] = chunk.ID
	}
	return f
}

func TestSearchVector(t *testing.T) {
	f := setupSearchData(t)
	ctx := context.Background()

	results, err := f.storage.SearchVector(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, f.chunks["guide/Insta"], results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].SimilarityScore, results[i].SimilarityScore)
	}
}

func TestSearchVector_Filters(t *testing.T) {
	f := setupSearchData(t)
	ctx := context.Background()
	query := []float32{1, 0, 0}

	t.Run("limit", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 2, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("zero limit", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("document ids", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 10, &SearchFilters{DocumentIDs: []string{"notes"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, f.chunks["notes/Relea"], results[0].ChunkID)
	})

	t.Run("source pattern", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 10, &SearchFilters{SourcePattern: "/docs/gui*"})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("exclude forced", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 10, &SearchFilters{ExcludeForced: true})
		require.NoError(t, err)
		assert.Len(t, results, 3)
		for _, r := range results {
			assert.NotEqual(t, f.chunks["guide/insta"], r.ChunkID)
		}
	})

	t.Run("min relevance", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, query, 10, &SearchFilters{MinRelevance: 0.8})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		results, err := f.storage.SearchVector(ctx, []float32{1, 0}, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearchText(t *testing.T) {
	f := setupSearchData(t)
	ctx := context.Background()

	results, err := f.storage.SearchText(ctx, "installer", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Greater(t, r.BM25Score, 0.0)
		assert.LessOrEqual(t, r.BM25Score, 1.0)
	}

	results, err = f.storage.SearchText(ctx, "logging", 10, &SearchFilters{DocumentIDs: []string{"notes"}})
	require.NoError(t, err)
	assert.Empty(t, results)

	// FTS syntax in user input is treated as plain terms
	results, err = f.storage.SearchText(ctx, `metrics" OR (NOT *`, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, f.chunks["guide/Confi"], results[0].ChunkID)

	_, err = f.storage.SearchText(ctx, "  ***  ", 10, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchText_UpdatedContentReindexed(t *testing.T) {
	f := setupSearchData(t)
	ctx := context.Background()

	doc, err := f.storage.GetDocument(ctx, "notes")
	require.NoError(t, err)
	record := types.ChunkRecord{Text: "Completely different words now.", SequenceIndex: 0, TotalChunks: 1}
	require.NoError(t, f.storage.UpsertChunk(ctx, FromRecord(doc.ID, &record)))

	results, err := f.storage.SearchText(ctx, "Release", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.storage.SearchText(ctx, "different", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{"hello world", `"hello" OR "world"`},
		{`"quoted" (group) *`, `"quoted" OR "group"`},
		{"AND OR NOT", `"AND" OR "OR" OR "NOT"`},
		{"snake_case 42", `"snake_case" OR "42"`},
		{"  --  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in))
		})
	}
}

func TestVectorSerialization(t *testing.T) {
	in := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := SerializeVector(in)
	assert.Len(t, blob, 16)
	assert.Equal(t, in, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func BenchmarkSearchVectorFallback(b *testing.B) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(b, err)
	defer func() { _ = storage.Close() }()
	ctx := context.Background()

	doc := &Document{ExternalID: "bench"}
	require.NoError(b, storage.UpsertDocument(ctx, doc))
	for i := 0; i < 500; i++ {
		record := types.ChunkRecord{Text: "benchmark chunk text", SequenceIndex: i, TotalChunks: 500}
		chunk := FromRecord(doc.ID, &record)
		require.NoError(b, storage.UpsertChunk(ctx, chunk))
		vec := make([]float32, 64)
		vec[i%64] = 1
		require.NoError(b, storage.UpsertEmbedding(ctx, &Embedding{
			ChunkID: chunk.ID, Vector: SerializeVector(vec), Dimension: 64, Provider: "bench", Model: "bench",
		}))
	}

	query := make([]float32, 64)
	query[3] = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := searchVectorFallback(ctx, storage.querier(), query, 10, nil); err != nil {
			b.Fatal(err)
		}
	}
}
