package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/ingest"
	"github.com/dshills/docchunk-mcp/internal/searcher"
	"github.com/dshills/docchunk-mcp/internal/segmenter"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound     = -32001 // Specified path does not exist
	ErrorCodeIngestInProgress = -32002 // Another path ingestion is already running
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// maxErrorsReported caps per-file errors echoed back to the client
const maxErrorsReported = 5

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing or not a string",
		})
	}

	cfg, err := s.chunkingConfig(args)
	if err != nil {
		return nil, err
	}
	metadata, _ := args["metadata"].(map[string]interface{})

	records, err := s.components.Chunker.Chunk(text, metadata, cfg)
	if err != nil {
		return nil, chunkingError(err)
	}

	response := map[string]interface{}{
		"total_chunks": len(records),
		"chunks":       records,
		"config":       cfg,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing or not a string",
		})
	}

	cfg, err := s.chunkingConfig(args)
	if err != nil {
		return nil, err
	}
	metadata, _ := args["metadata"].(map[string]interface{})

	doc := types.Document{
		ExternalID: getStringDefault(args, "external_id", ""),
		Title:      getStringDefault(args, "title", ""),
		SourcePath: getStringDefault(args, "source_path", ""),
		Text:       text,
		Metadata:   metadata,
	}

	result, err := s.components.Ingester.IngestDocument(ctx, doc, cfg)
	if err != nil {
		return nil, chunkingError(err)
	}
	if !result.Skipped {
		s.components.Searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"external_id":    result.ExternalID,
		"skipped":        result.Skipped,
		"chunks_created": result.ChunksCreated,
		"forced_splits":  result.ForcedSplits,
		"embedded":       result.Embedded,
		"duration_ms":    result.Duration.Milliseconds(),
	}
	if result.EmbeddingError != "" {
		response["embedding_error"] = result.EmbeddingError
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestPath handles the ingest_path tool invocation
func (s *Server) handleIngestPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) {
			code = ErrorCodePathNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	cfg, err := s.chunkingConfig(args)
	if err != nil {
		return nil, err
	}

	pathCfg := s.cfg.IngestPathConfig()
	pathCfg.Chunking = cfg
	pathCfg.Workers = getIntDefault(args, "workers", pathCfg.Workers)
	pathCfg.IncludeHidden = getBoolDefault(args, "include_hidden", pathCfg.IncludeHidden)
	if exts := getStringSlice(args, "extensions"); len(exts) > 0 {
		pathCfg.Extensions = exts
	}

	stats, err := s.components.Ingester.IngestPath(ctx, path, pathCfg)
	if errors.Is(err, ingest.ErrIngestInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.components.Searcher.InvalidateCache()

	response := map[string]interface{}{
		"documents_ingested": stats.DocumentsIngested,
		"documents_skipped":  stats.DocumentsSkipped,
		"documents_failed":   stats.DocumentsFailed,
		"chunks_created":     stats.ChunksCreated,
		"forced_splits":      stats.ForcedSplits,
		"embeddings_created": stats.EmbeddingsCreated,
		"duration_ms":        stats.Duration.Milliseconds(),
	}

	if errorCount := len(stats.ErrorMessages); errorCount > 0 {
		if errorCount > maxErrorsReported {
			response["errors"] = stats.ErrorMessages[:maxErrorsReported]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchChunks handles the search_chunks tool invocation
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	searchMode := searcher.SearchMode(getStringDefault(args, "search_mode", string(searcher.SearchModeHybrid)))
	switch searchMode {
	case searcher.SearchModeHybrid, searcher.SearchModeVector, searcher.SearchModeKeyword:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   searchMode,
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	resp, err := s.components.Searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     searchMode,
		Filters:  parseFilters(args),
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		result := map[string]interface{}{
			"rank":            r.Rank,
			"relevance_score": r.RelevanceScore,
			"content":         r.Content,
			"is_forced_split": r.IsForced,
		}
		if r.OverlapText != "" {
			result["overlap_text"] = r.OverlapText
		}
		if r.Document != nil {
			result["document"] = map[string]interface{}{
				"external_id":    r.Document.ExternalID,
				"title":          r.Document.Title,
				"source_path":    r.Document.SourcePath,
				"sequence_index": r.Document.SequenceIndex,
				"total_chunks":   r.Document.TotalChunks,
			}
		}
		results[i] = result
	}

	response := map[string]interface{}{
		"results":        results,
		"total_results":  resp.TotalResults,
		"search_mode":    resp.SearchMode,
		"cache_hit":      resp.CacheHit,
		"vector_results": resp.VectorResults,
		"text_results":   resp.TextResults,
		"duration_ms":    resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.components.Storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ingested":           status.DocumentsCount > 0,
		"ingest_in_progress": s.components.Ingester.Lock().Held(),
		"statistics": map[string]interface{}{
			"documents_count":     status.DocumentsCount,
			"chunks_count":        status.ChunksCount,
			"forced_chunks_count": status.ForcedChunksCount,
			"embeddings_count":    status.EmbeddingsCount,
			"index_size_mb":       fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
		"build": map[string]interface{}{
			"mode":             storage.BuildMode,
			"driver":           storage.DriverName,
			"vector_extension": storage.VectorExtensionAvailable,
		},
	}
	if !status.LastChunkedAt.IsZero() {
		response["last_chunked_at"] = status.LastChunkedAt.Format(time.RFC3339)
	}
	if emb := s.components.Embedder; emb != nil {
		response["embedder"] = map[string]interface{}{
			"provider":  emb.Provider(),
			"model":     emb.Model(),
			"dimension": emb.Dimension(),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// chunkingConfig starts from the configured engine settings and applies
// per-call overrides
func (s *Server) chunkingConfig(args map[string]interface{}) (chunker.Config, error) {
	cfg := s.cfg.ChunkingConfig()
	cfg.TargetSize = getIntDefault(args, "target_size", cfg.TargetSize)
	cfg.OverlapBudget = getIntDefault(args, "overlap_budget", cfg.OverlapBudget)
	cfg.MaxSentenceSize = getIntDefault(args, "max_sentence_size", cfg.MaxSentenceSize)
	cfg.AbsoluteCeiling = getIntDefault(args, "absolute_ceiling", cfg.AbsoluteCeiling)
	cfg.SafetyMargin = getIntDefault(args, "safety_margin", cfg.SafetyMargin)

	if name, ok := args["segmenter"].(string); ok {
		strategy, err := segmenter.ParseStrategy(name)
		if err != nil {
			return cfg, newMCPError(ErrorCodeInvalidParams, "invalid segmenter", map[string]interface{}{
				"param":   "segmenter",
				"value":   name,
				"allowed": segmenter.Strategies(),
			})
		}
		cfg.Segmenter = strategy
	}

	if err := cfg.Validate(); err != nil {
		return cfg, newMCPError(ErrorCodeInvalidParams, "invalid chunking configuration", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return cfg, nil
}

// chunkingError maps engine and ingestion errors to MCP errors
func chunkingError(err error) error {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return err
	}
	if errors.Is(err, chunker.ErrInvalidConfig) || errors.Is(err, types.ErrEmptyExternalID) {
		return newMCPError(ErrorCodeInvalidParams, "invalid request", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return newMCPError(ErrorCodeInternalError, "chunking failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// parseFilters converts the filters argument into storage filters
func parseFilters(args map[string]interface{}) *storage.SearchFilters {
	raw, ok := args["filters"].(map[string]interface{})
	if !ok {
		return nil
	}
	return &storage.SearchFilters{
		DocumentIDs:   getStringSlice(raw, "document_ids"),
		SourcePattern: getStringDefault(raw, "source_pattern", ""),
		ExcludeForced: getBoolDefault(raw, "exclude_forced", false),
		MinRelevance:  getFloatDefault(raw, "min_relevance", 0),
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that an absolute path exists and is readable
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return ErrPathNotReadable
		}
		_ = f.Close()
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an array of strings, skipping other element types
func getStringSlice(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
