package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docchunk-mcp/internal/mcp"
)

var (
	ingestWorkers int
	ingestHidden  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Chunk, store and embed every document under a path",
	Long: `Walks a file or directory, chunks each text document and stores the
chunks with their embeddings. Unchanged documents are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "parallel documents (overrides config)")
	ingestCmd.Flags().BoolVar(&ingestHidden, "hidden", false, "include dot files and directories")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	components, err := mcp.OpenComponents(cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	pathCfg := cfg.IngestPathConfig()
	if cmd.Flags().Changed("workers") {
		pathCfg.Workers = ingestWorkers
	}
	if cmd.Flags().Changed("hidden") {
		pathCfg.IncludeHidden = ingestHidden
	}

	stats, err := components.Ingester.IngestPath(cmdContext(cmd), root, pathCfg)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested: %d  Skipped: %d  Failed: %d\n",
		stats.DocumentsIngested, stats.DocumentsSkipped, stats.DocumentsFailed)
	cmd.Printf("Chunks: %d  Forced splits: %d  Embeddings: %d\n",
		stats.ChunksCreated, stats.ForcedSplits, stats.EmbeddingsCreated)
	cmd.Printf("Duration: %s\n", stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		cmd.PrintErrf("  error: %s\n", msg)
	}
	return nil
}
