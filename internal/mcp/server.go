package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/config"
	"github.com/dshills/docchunk-mcp/internal/embedder"
	"github.com/dshills/docchunk-mcp/internal/ingest"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/searcher"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docchunk-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Components are the collaborators shared by the MCP server and the CLI
type Components struct {
	Storage  storage.Storage
	Embedder embedder.Embedder
	Chunker  *chunker.Chunker
	Ingester *ingest.Ingester
	Searcher *searcher.Searcher
}

// OpenComponents opens the database at cfg.Storage.DBPath and wires one
// embedder into both ingestion and search. rec may be nil.
func OpenComponents(cfg *config.Config, log logger.Logger, rec *metrics.Recorder) (*Components, error) {
	dbPath, err := expandHome(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return NewComponents(store, emb, cfg, log, rec), nil
}

// NewComponents wires already-open collaborators. emb may be nil to
// disable embeddings and vector search.
func NewComponents(store storage.Storage, emb embedder.Embedder, cfg *config.Config, log logger.Logger, rec *metrics.Recorder) *Components {
	if log == nil {
		log = logger.NewNop()
	}

	chunkOpts := []chunker.Option{chunker.WithLogger(log.With("component", "chunker"))}
	ingestOpts := []ingest.Option{
		ingest.WithLogger(log.With("component", "ingest")),
		ingest.WithEmbedBatchSize(cfg.Ingest.BatchSize),
	}
	if rec != nil {
		chunkOpts = append(chunkOpts, chunker.WithObserver(rec))
		ingestOpts = append(ingestOpts, ingest.WithRecorder(rec))
	}
	if emb != nil {
		ingestOpts = append(ingestOpts, ingest.WithEmbedder(emb))
	}

	c := chunker.New(chunkOpts...)
	ingestOpts = append(ingestOpts, ingest.WithChunker(c))

	return &Components{
		Storage:  store,
		Embedder: emb,
		Chunker:  c,
		Ingester: ingest.New(store, ingestOpts...),
		Searcher: searcher.NewSearcher(store, emb, log.With("component", "searcher")),
	}
}

// Close releases the embedder and the database
func (c *Components) Close() error {
	var errs []error
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	errs = append(errs, c.Storage.Close())
	return errors.Join(errs...)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	components *Components
	cfg        *config.Config
	log        logger.Logger
}

// NewServer creates a new MCP server instance over components
func NewServer(components *Components, cfg *config.Config, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:        mcpServer,
		components: components,
		cfg:        cfg,
		log:        log,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(chunkTextTool(), s.handleChunkText)
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(ingestPathTool(), s.handleIngestPath)
	s.mcp.AddTool(searchChunksTool(), s.handleSearchChunks)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}

// expandHome resolves a leading ~ to the user's home directory
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
