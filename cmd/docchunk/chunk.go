package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/segmenter"
)

var (
	chunkTarget    int
	chunkOverlap   int
	chunkSegmenter string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file|-]",
	Short: "Chunk a document and print the records as JSON",
	Long: `Reads a UTF-8 document from a file, or stdin when the argument is "-"
or missing, and prints its chunk records as a JSON array. Nothing is stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkTarget, "target", 0, "target chunk size in characters (overrides config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "overlap budget in characters (overrides config)")
	chunkCmd.Flags().StringVar(&chunkSegmenter, "segmenter", "", "sentence segmenter: unicode or regex")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	chunkCfg := cfg.ChunkingConfig()
	flags := cmd.Flags()
	if flags.Changed("target") {
		chunkCfg.TargetSize = chunkTarget
	}
	if flags.Changed("overlap") {
		chunkCfg.OverlapBudget = chunkOverlap
	}
	if flags.Changed("segmenter") {
		strategy, err := segmenter.ParseStrategy(chunkSegmenter)
		if err != nil {
			return err
		}
		chunkCfg.Segmenter = strategy
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	c := chunker.New(chunker.WithLogger(log.With("component", "chunker")))

	records, err := c.Chunk(text, nil, chunkCfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// readInput reads the named file, or stdin for "-" or no argument
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errors.New("input is not valid UTF-8")
	}
	return string(data), nil
}
