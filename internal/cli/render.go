package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/pipeline"
	"github.com/matzehuels/flowcanvas/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file path (or base path for multiple outputs)
	formats   []string // output formats: "svg", "dot", "png", "json"
	metrics   string   // layout preset: "pixel" or "cell"
	gridSize  int      // grid spacing in canvas units
	showGrid  bool     // paint the grid
	selection []string // node IDs drawn selected
	noCache   bool     // skip the artifact cache entirely
	refresh   bool     // re-render and overwrite cached artifacts
}

// renderCommand creates the render command for batch rendering a patch.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr, selectStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [patch]",
		Short: "Render a patch to svg, dot, png or json",
		Long: `Render a patch file (JSON or YAML) the way the editor paints it.

svg and json paint the editor scene; dot exports the graph for Graphviz with
pinned positions, and png is rendered from that DOT in-process.`,
		Example: `  flowcanvas render synth.json
  flowcanvas render synth.yaml -f svg,png -o out/synth
  flowcanvas render synth.json --grid --select osc,gain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = pipeline.ParseFormats(formatsStr)
			if len(opts.formats) == 0 {
				opts.formats = slices.Clone(pipeline.DefaultFormats)
			}
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if selectStr != "" {
				opts.selection = strings.Split(selectStr, ",")
			}
			opts.showGrid = opts.showGrid || cmd.Flags().Changed("grid-size")
			return c.runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): "+strings.Join(render.Formats, ", ")+" (comma-separated, default svg)")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "layout metrics: pixel or cell (default from config)")
	cmd.Flags().IntVar(&opts.gridSize, "grid-size", 0, "grid spacing (default from config)")
	cmd.Flags().BoolVar(&opts.showGrid, "grid", false, "paint the grid")
	cmd.Flags().StringVar(&selectStr, "select", "", "node IDs to draw selected (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")

	return cmd
}

// runRender executes the pipeline for input and writes one file per format.
func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	popts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}
	popts.PatchPath = input
	popts.Formats = opts.formats
	popts.Selection = opts.selection
	popts.Refresh = opts.refresh
	popts.ShowGrid = popts.ShowGrid || opts.showGrid
	popts.Logger = logger
	if opts.metrics != "" {
		popts.Metrics = opts.metrics
	}
	if opts.gridSize != 0 {
		popts.GridSize = opts.gridSize
	}

	runner := c.newRunner(ctx, cfg, opts.noCache)
	defer runner.Close()

	result, err := c.executeWithSpinner(ctx, runner, popts)
	if err != nil {
		return err
	}

	paths := outputPaths(opts.output, input, popts.Formats)
	for _, format := range popts.Formats {
		if err := writeOutput(paths[format], result.Artifacts[format]); err != nil {
			return err
		}
		logger.Debug("wrote artifact", "format", format, "bytes", len(result.Artifacts[format]), "path", paths[format])
	}

	prog.done("Rendered " + input)
	printSuccess("Rendered %s", filepath.Base(input))
	printStats(result.Stats.NodeCount, result.Stats.ConnectionCount, result.Stats.InvalidCount, result.CacheInfo.RenderHit)
	for _, format := range popts.Formats {
		printFile(paths[format])
	}
	return nil
}

// executeWithSpinner shows a spinner while Graphviz renders PNG output,
// which is the only slow format.
func (c *CLI) executeWithSpinner(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	if !slices.Contains(opts.Formats, render.FormatPNG) {
		return runner.Execute(ctx, opts)
	}
	spinner := newSpinnerWithContext(ctx, "Rendering with Graphviz...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	spinner.Stop()
	return result, err
}

// outputPaths maps each format to its output file. A single format with an
// explicit output is written exactly there; otherwise files are named
// base.format where base is the output without a known format extension,
// or the input without its extension. A derived path that would overwrite
// the input gets a ".scene" infix.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if output != "" && len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		p := base + "." + f
		if filepath.Clean(p) == filepath.Clean(input) {
			p = base + ".scene." + f
		}
		paths[f] = p
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if slices.Contains(render.Formats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
