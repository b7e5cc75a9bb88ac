package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a3tai/html-fillable-pdf/internal/config"
	"github.com/a3tai/html-fillable-pdf/internal/mcp"
	"github.com/a3tai/html-fillable-pdf/internal/pipeline"
	"github.com/a3tai/html-fillable-pdf/internal/render"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging returns the process logger. In stdio mode stdout carries the
// MCP protocol, so logs go to stderr and only when debug is enabled.
func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	out := stderr
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// runConvert performs one conversion and prints the artifact paths to stdout
func runConvert(ctx context.Context, cfg *config.Config, renderer render.Renderer, logger *slog.Logger, stdout io.Writer) error {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	report, err := pipeline.New(renderer, logger).Run(ctx, opts)
	if err != nil {
		return err
	}

	for _, path := range report.Artifacts.Paths() {
		fmt.Fprintln(stdout, path)
	}
	return nil
}

// runStdio serves the conversion tools over MCP until the client disconnects
func runStdio(ctx context.Context, cfg *config.Config, renderer render.Renderer, logger *slog.Logger) error {
	server, err := mcp.NewServer(cfg, pipeline.New(renderer, logger), logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	cfg, err := config.LoadFromFlags()
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		printVersion(os.Stdout)
		return
	case errors.Is(err, pflag.ErrHelp):
		return
	case errors.Is(err, config.ErrMissingSource):
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stderr)
	logger.Debug("Starting with configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer := render.NewChromeRenderer(cfg.ChromePath, cfg.RenderTimeout, logger)

	if cfg.IsStdioMode() {
		if err := runStdio(ctx, cfg, renderer, logger); err != nil {
			logger.Error("Server error", "error", err)
			stop()
			os.Exit(1)
		}
		return
	}

	if err := runConvert(ctx, cfg, renderer, logger, os.Stdout); err != nil {
		logger.Error("Conversion failed", "source", cfg.SourcePath, "error", err)
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "HTML Fillable PDF\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
