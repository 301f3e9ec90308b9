package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docchunk-mcp/internal/mcp"
	"github.com/dshills/docchunk-mcp/internal/searcher"
)

var (
	searchLimit int
	searchMode  string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks",
	Long: `Runs a hybrid (vector plus BM25 keyword) search over stored chunks.
Use --mode to restrict to vector or keyword search.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "maximum number of results")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(searcher.SearchModeHybrid), "hybrid, vector or keyword")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[0])
	if query == "" {
		return errors.New("query cannot be empty")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	components, err := mcp.OpenComponents(cfg, newLogger(cfg), nil)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	resp, err := components.Searcher.Search(cmdContext(cmd), searcher.SearchRequest{
		Query: query,
		Limit: searchLimit,
		Mode:  searcher.SearchMode(searchMode),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp.Results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for _, r := range resp.Results {
		title := ""
		if r.Document != nil {
			title = r.Document.Title
			if title == "" {
				title = r.Document.SourcePath
			}
			if title == "" {
				title = r.Document.ExternalID
			}
		}
		cmd.Printf("  [%d] %s (%.3f)\n", r.Rank, title, r.RelevanceScore)
		cmd.Printf("      %s\n", snippet(r.Content, 160))
	}
	return nil
}

// snippet flattens whitespace and truncates to limit runes
func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
