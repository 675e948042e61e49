package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/config"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/library"
	"github.com/matzehuels/flowcanvas/pkg/patch"
)

// editCommand creates the terminal editor command.
func (c *CLI) editCommand() *cobra.Command {
	var gridSize int
	var logFile string

	cmd := &cobra.Command{
		Use:   "edit [patch]",
		Short: "Edit a patch in the terminal",
		Long: `Open a patch in the interactive terminal editor. A missing file starts an
empty patch that is created on the first save.

Double click empty canvas to create a node, double click a node to edit its
label, drag from an outlet to an inlet to connect. Press ? for all keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := c.loadConfig()
			if err != nil {
				return err
			}
			// Pixel grid sizes are meaningless on a cell surface.
			cfg := *loaded
			cfg.Canvas.GridSize = gridSize
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closeLog, err := editorLogger(logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			model, err := newEditor(&cfg, args[0], logger)
			if err != nil {
				return err
			}
			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithMouseAllMotion(),
				tea.WithReportFocus(),
				tea.WithContext(cmd.Context()),
			)
			final, err := p.Run()
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			if m, ok := final.(EditorModel); ok && m.Dirty() {
				printWarning("Quit with unsaved changes to %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&gridSize, "grid", 1, "grid size in cells")
	cmd.Flags().StringVar(&logFile, "log", "", "write editor logs to this file")
	return cmd
}

// newEditor loads path (or starts empty) and builds the editor model over a
// cell-metric canvas.
func newEditor(cfg *config.Config, path string, logger *log.Logger) (EditorModel, error) {
	lib, err := cfg.LoadLibrary()
	if err != nil {
		return EditorModel{}, err
	}
	g, err := loadGraph(path, lib, logger)
	if err != nil {
		return EditorModel{}, err
	}

	opts := cfg.CanvasOptions(logger)
	opts.Metrics = canvas.CellMetrics()
	opts.Measurer = canvas.CellMeasurer{}
	opts.Completion = cfg.CompletionProvider(lib)
	return NewEditorModel(canvas.New(opts), g, path, logger), nil
}

// loadGraph imports path into a graph over lib. A missing file yields an
// empty graph.
func loadGraph(path string, lib *library.Library, logger *log.Logger) (*memory.Graph, error) {
	p, err := patch.Import(path)
	switch {
	case errors.Is(err, errors.ErrCodeFileNotFound):
		logger.Info("starting new patch", "path", path)
		return memory.New(memory.WithLibrary(lib), memory.WithLogger(logger)), nil
	case err != nil:
		return nil, err
	}
	return p.Build(memory.WithLibrary(lib), memory.WithLogger(logger))
}

// editorLogger discards logs unless a file is given; the alt screen owns
// the terminal.
func editorLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, log.DebugLevel), func() { f.Close() }, nil
}
