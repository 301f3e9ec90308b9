package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// chunkingProperties are the per-call engine overrides shared by the
// chunking and ingestion tools
func chunkingProperties() map[string]interface{} {
	return map[string]interface{}{
		"target_size": map[string]interface{}{
			"type":        "integer",
			"description": "Preferred chunk length in characters",
			"minimum":     1,
		},
		"overlap_budget": map[string]interface{}{
			"type":        "integer",
			"description": "Overlap budget; one trailing word is carried per 10 units",
			"minimum":     0,
		},
		"max_sentence_size": map[string]interface{}{
			"type":        "integer",
			"description": "Sentences longer than this are split at word boundaries",
			"minimum":     1,
		},
		"absolute_ceiling": map[string]interface{}{
			"type":        "integer",
			"description": "Hard upper bound on chunk length",
			"minimum":     1,
		},
		"safety_margin": map[string]interface{}{
			"type":        "integer",
			"description": "Subtracted from the ceiling before enforcement",
			"minimum":     0,
		},
		"segmenter": map[string]interface{}{
			"type":        "string",
			"description": "Sentence segmentation strategy",
			"enum":        []string{"regex", "unicode"},
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split text into sentence-aware, size-bounded chunks with word overlap. Nothing is stored.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(chunkingProperties(), map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Plain text to chunk",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Attached unchanged to every chunk",
				},
			}),
			Required: []string{"text"},
		},
	}
}

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Chunk a document, store the chunks and embed them for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(chunkingProperties(), map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Document text",
				},
				"external_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable document ID; re-ingesting the same ID replaces its chunks. Generated when omitted.",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Human-readable title",
				},
				"source_path": map[string]interface{}{
					"type":        "string",
					"description": "Where the text came from",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Attached to every chunk",
				},
			}),
			Required: []string{"text"},
		},
	}
}

// ingestPathTool returns the tool definition for ingest_path
func ingestPathTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_path",
		Description: "Ingest every text file under a directory (or a single file)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(chunkingProperties(), map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a directory or file",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to include (default: .txt, .md, .text)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Concurrent files",
					"minimum":     1,
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, descend into dot directories",
					"default":     false,
				},
			}),
			Required: []string{"path"},
		},
	}
}

// searchChunksTool returns the tool definition for search_chunks
func searchChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_chunks",
		Description: "Search stored chunks with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"document_ids": map[string]interface{}{
							"type":        "array",
							"description": "Only search these documents (external IDs)",
							"items": map[string]interface{}{
								"type": "string",
							},
						},
						"source_pattern": map[string]interface{}{
							"type":        "string",
							"description": "Glob pattern for source paths (e.g., '/docs/*')",
						},
						"exclude_forced": map[string]interface{}{
							"type":        "boolean",
							"description": "Skip chunks produced by size-driven splits",
						},
						"min_relevance": map[string]interface{}{
							"type":        "number",
							"description": "Minimum relevance score threshold (0.0-1.0)",
							"minimum":     0.0,
							"maximum":     1.0,
						},
					},
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), vector (semantic only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report stored document and chunk counts, index size and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
