package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docchunk-mcp/internal/mcp"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Starts the MCP server on stdin/stdout. Logs go to stderr.
With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}

	log := newLogger(cfg)
	log.Info("docchunk MCP server starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"vector_extension", storage.VectorExtensionAvailable)

	rec := metrics.New()
	components, err := mcp.OpenComponents(cfg, log, rec)
	if err != nil {
		return fmt.Errorf("failed to open components: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}()

	server, err := mcp.NewServer(components, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return rec.Serve(ctx, cfg.Metrics.Addr, log.With("component", "metrics"))
		})
	}
	g.Go(func() error {
		log.Info("MCP server ready, listening on stdio")
		err := server.Serve(ctx)
		stop()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

// cmdContext returns the command context, falling back to Background
// when the command runs outside Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
