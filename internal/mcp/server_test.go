package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docchunk-mcp/internal/config"
	"github.com/dshills/docchunk-mcp/internal/embedder"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

func setupServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Storage.DBPath = ":memory:"
	components := NewComponents(store, emb, cfg, nil, metrics.New())
	t.Cleanup(func() { _ = components.Close() })

	s, err := NewServer(components, cfg, nil)
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult unmarshals the single text content of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

const document = "Chunking keeps sentences whole. Each chunk stays under the ceiling. " +
	"Overlap carries trailing words forward. Search then finds the right passage."

func TestChunkText(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	t.Run("returns ordered records", func(t *testing.T) {
		result, err := s.handleChunkText(ctx, callRequest("chunk_text", map[string]interface{}{
			"text":           document,
			"target_size":    float64(70),
			"overlap_budget": float64(20),
			"metadata":       map[string]interface{}{"source": "notes"},
		}))
		require.NoError(t, err)

		out := decodeResult(t, result)
		chunks := out["chunks"].([]interface{})
		require.Greater(t, len(chunks), 1)
		assert.Equal(t, float64(len(chunks)), out["total_chunks"])

		for i, raw := range chunks {
			chunk := raw.(map[string]interface{})
			assert.Equal(t, float64(i), chunk["sequence_index"])
			assert.Equal(t, float64(len(chunks)), chunk["total_chunks"])
			assert.Equal(t, "notes", chunk["metadata"].(map[string]interface{})["source"])
		}
		second := chunks[1].(map[string]interface{})
		assert.Equal(t, true, second["has_overlap"])
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		result, err := s.handleChunkText(ctx, callRequest("chunk_text", map[string]interface{}{"text": "   "}))
		require.NoError(t, err)
		out := decodeResult(t, result)
		assert.Equal(t, float64(0), out["total_chunks"])
	})

	t.Run("missing text", func(t *testing.T) {
		_, err := s.handleChunkText(ctx, callRequest("chunk_text", map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("invalid overrides", func(t *testing.T) {
		_, err := s.handleChunkText(ctx, callRequest("chunk_text", map[string]interface{}{
			"text":        document,
			"target_size": float64(0),
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = s.handleChunkText(ctx, callRequest("chunk_text", map[string]interface{}{
			"text":      document,
			"segmenter": "nltk",
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestIngestAndSearch(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	result, err := s.handleIngestDocument(ctx, callRequest("ingest_document", map[string]interface{}{
		"text":        document,
		"external_id": "notes-1",
		"title":       "Notes",
		"target_size": float64(70),
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "notes-1", out["external_id"])
	assert.Equal(t, false, out["skipped"])
	assert.Equal(t, out["chunks_created"], out["embedded"])

	again, err := s.handleIngestDocument(ctx, callRequest("ingest_document", map[string]interface{}{
		"text":        document,
		"external_id": "notes-1",
		"target_size": float64(70),
	}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, again)["skipped"])

	t.Run("search finds ingested chunk", func(t *testing.T) {
		result, err := s.handleSearchChunks(ctx, callRequest("search_chunks", map[string]interface{}{
			"query": "ceiling",
			"limit": float64(3),
		}))
		require.NoError(t, err)

		out := decodeResult(t, result)
		results := out["results"].([]interface{})
		require.NotEmpty(t, results)
		top := results[0].(map[string]interface{})
		assert.Contains(t, top["content"], "ceiling")
		doc := top["document"].(map[string]interface{})
		assert.Equal(t, "notes-1", doc["external_id"])
		assert.Equal(t, "Notes", doc["title"])
	})

	t.Run("filters by document", func(t *testing.T) {
		result, err := s.handleSearchChunks(ctx, callRequest("search_chunks", map[string]interface{}{
			"query":       "ceiling",
			"search_mode": "keyword",
			"filters":     map[string]interface{}{"document_ids": []interface{}{"other"}},
		}))
		require.NoError(t, err)
		assert.Empty(t, decodeResult(t, result)["results"])
	})

	t.Run("validation", func(t *testing.T) {
		_, err := s.handleSearchChunks(ctx, callRequest("search_chunks", map[string]interface{}{"query": " "}))
		requireMCPError(t, err, ErrorCodeEmptyQuery)

		_, err = s.handleSearchChunks(ctx, callRequest("search_chunks", map[string]interface{}{"query": "x", "limit": float64(500)}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = s.handleSearchChunks(ctx, callRequest("search_chunks", map[string]interface{}{"query": "x", "search_mode": "fuzzy"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("status reflects ingestion", func(t *testing.T) {
		result, err := s.handleGetStatus(ctx, callRequest("get_status", nil))
		require.NoError(t, err)

		out := decodeResult(t, result)
		assert.Equal(t, true, out["ingested"])
		assert.Equal(t, false, out["ingest_in_progress"])
		stats := out["statistics"].(map[string]interface{})
		assert.Equal(t, float64(1), stats["documents_count"])
		assert.Equal(t, stats["chunks_count"], stats["embeddings_count"])
		assert.Equal(t, embedder.ProviderLocal, out["embedder"].(map[string]interface{})["provider"])
	})
}

func TestIngestPath(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte(document), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte(strings.Repeat("More words here. ", 30)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.csv"), []byte("a,b"), 0o600))

	t.Run("ingests directory", func(t *testing.T) {
		result, err := s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{
			"path":    root,
			"workers": float64(2),
		}))
		require.NoError(t, err)

		out := decodeResult(t, result)
		assert.Equal(t, float64(2), out["documents_ingested"])
		assert.Equal(t, float64(0), out["documents_failed"])
		assert.NotContains(t, out, "errors")
	})

	t.Run("custom extensions", func(t *testing.T) {
		result, err := s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{
			"path":       root,
			"extensions": []interface{}{".csv"},
		}))
		require.NoError(t, err)
		assert.Equal(t, float64(1), decodeResult(t, result)["documents_ingested"])
	})

	t.Run("rejects while another ingestion runs", func(t *testing.T) {
		lock := s.components.Ingester.Lock()
		require.True(t, lock.TryAcquire())
		defer lock.Release()

		_, err := s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{"path": root}))
		requireMCPError(t, err, ErrorCodeIngestInProgress)
	})

	t.Run("path validation", func(t *testing.T) {
		_, err := s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{"path": "relative/dir"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)

		_, err = s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{"path": filepath.Join(root, "missing")}))
		requireMCPError(t, err, ErrorCodePathNotFound)

		_, err = s.handleIngestPath(ctx, callRequest("ingest_path", map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{chunkTextTool(), ingestDocumentTool(), ingestPathTool(), searchChunksTool(), getStatusTool()}

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, []string{"chunk_text", "ingest_document", "ingest_path", "search_chunks", "get_status"}, names)

	for _, tool := range tools[:3] {
		assert.Contains(t, tool.InputSchema.Properties, "target_size", tool.Name)
		assert.Contains(t, tool.InputSchema.Properties, "segmenter", tool.Name)
	}
	assert.Contains(t, searchChunksTool().InputSchema.Required, "query")
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := expandHome("~/data/docchunk.db")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/data/docchunk.db", got)

	got, err = expandHome("/abs/path.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path.db", got)
}

func TestOpenComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "nested", "docchunk.db")

	components, err := OpenComponents(cfg, nil, nil)
	require.NoError(t, err)
	defer func() { _ = components.Close() }()

	_, err = os.Stat(cfg.Storage.DBPath)
	assert.NoError(t, err)
	assert.Equal(t, embedder.ProviderLocal, components.Embedder.Provider())
}
