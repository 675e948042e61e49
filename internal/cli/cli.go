package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/buildinfo"
	"github.com/matzehuels/flowcanvas/pkg/config"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flowcanvas"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; empty means the default location.
	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "flowcanvas edits and renders dataflow patches",
		Long:         `flowcanvas is a node-based patch editor: boxes with typed inlets and outlets wired into a dataflow graph. Edit patches in the terminal, render them to SVG, DOT, PNG or JSON, or preview them in a browser.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.editCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completeCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. A cache that cannot be
// opened degrades to no caching with a warning.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) *pipeline.Runner {
	if noCache {
		return pipeline.NewRunner(nil, nil, c.Logger)
	}
	store, err := cfg.OpenCache(ctx)
	if err != nil {
		c.Logger.Warn("artifact cache unavailable, rendering without it", "err", err)
		return pipeline.NewRunner(nil, nil, c.Logger)
	}
	return pipeline.NewRunner(store, cfg.Keyer(), c.Logger)
}

// pipelineOptions translates the configuration into render defaults.
func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	lib, err := cfg.LoadLibrary()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Metrics:  cfg.Canvas.Metrics,
		GridSize: cfg.Canvas.GridSize,
		ShowGrid: cfg.Canvas.ShowGrid,
		Library:  lib,
		TTL:      cfg.TTL(),
	}, nil
}
