// Package pipeline provides the batch render pipeline for flowcanvas.
//
// The pipeline loads a patch document, rebuilds it as an in-memory model,
// attaches a canvas to it, and paints the resulting scene into one or more
// output formats. The CLI's render command and the preview server both go
// through it so caching and instrumentation behave the same everywhere.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Load: Read and validate the patch, then build a [memory.Graph] with
//     the class library so ports and validity are resolved
//  2. Render: Attach a [canvas.Canvas], take its [canvas.Scene], and paint
//     each requested format (svg, dot, png, json)
//
// Artifacts are cached by a hash of the canonical patch and the render
// options, so re-rendering an unchanged file is a cache read.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    PatchPath: "synth.json",
//	    Formats:   []string{"svg", "png"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// [memory.Graph]: github.com/matzehuels/flowcanvas/pkg/dataflow/memory.Graph
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/library"
	"github.com/matzehuels/flowcanvas/pkg/patch"
	"github.com/matzehuels/flowcanvas/pkg/render"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMetrics is the layout preset for rendered artifacts.
	DefaultMetrics = "pixel"

	// DefaultGridSize matches the editor's default grid.
	DefaultGridSize = 10
)

// DefaultFormats is used when no format is requested.
var DefaultFormats = []string{render.FormatSVG}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
type Options struct {
	// Source: exactly one of PatchPath and Patch.
	PatchPath string       `json:"patch_path,omitempty"`
	Patch     *patch.Patch `json:"patch,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Metrics   string   `json:"metrics,omitempty"`
	GridSize  int      `json:"grid_size,omitempty"`
	ShowGrid  bool     `json:"show_grid,omitempty"`
	Selection []string `json:"selection,omitempty"` // node IDs drawn selected
	Refresh   bool     `json:"refresh,omitempty"`   // bypass cached artifacts

	// Runtime options (not serialized)
	Library *library.Library `json:"-"`
	TTL     time.Duration    `json:"-"`
	Logger  *log.Logger      `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the model rebuilt from the patch.
	Graph *memory.Graph

	// Patch is the canonical document captured from Graph, with resolved
	// port counts.
	Patch *patch.Patch

	// PatchHash is the content hash of the canonical document.
	PatchHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount       int
	ConnectionCount int
	InvalidCount    int
	LoadTime        time.Duration
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits for the render stage.
type CacheInfo struct {
	RenderHit bool     // Whether all artifacts came from cache
	Hits      []string // Formats served from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	return errors.ValidateFormats(formats, render.Formats)
}

// ValidateMetrics checks the layout preset name.
func ValidateMetrics(name string) error {
	if _, ok := canvas.MetricsByName(name); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown metrics %q (valid: pixel, cell)", name)
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the patch source.
func (o *Options) ValidateForLoad() error {
	if o.PatchPath == "" && o.Patch == nil {
		return errors.New(errors.ErrCodeInvalidInput, "patch path or patch is required")
	}
	if o.PatchPath != "" && o.Patch != nil {
		return errors.New(errors.ErrCodeInvalidInput, "patch path and patch are mutually exclusive")
	}
	if o.Library == nil {
		o.Library = library.Builtin()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	for i, f := range o.Formats {
		o.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if o.Metrics == "" {
		o.Metrics = DefaultMetrics
	}
	if o.GridSize == 0 {
		o.GridSize = DefaultGridSize
	}
	if o.TTL == 0 {
		o.TTL = cache.DefaultTTL
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateMetrics(o.Metrics); err != nil {
		return err
	}
	if o.GridSize < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "grid size must be at least 1, got %d", o.GridSize)
	}
	return nil
}

// Source names the patch for logs and hooks.
func (o *Options) Source() string {
	if o.PatchPath != "" {
		return o.PatchPath
	}
	return "<inline>"
}

// CanvasOptions returns the canvas configuration used to build the scene.
// Artifacts are static, so hover feedback and tooltips stay off.
func (o *Options) CanvasOptions() canvas.Options {
	m, _ := canvas.MetricsByName(o.Metrics)
	return canvas.Options{
		Metrics:  m,
		Logger:   o.Logger,
		GridSize: o.GridSize,
		ShowGrid: o.ShowGrid,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	sel := slices.Clone(o.Selection)
	slices.Sort(sel)
	return cache.ArtifactKeyOpts{
		Format:    format,
		Metrics:   o.Metrics,
		ShowGrid:  o.ShowGrid,
		GridSize:  o.GridSize,
		Selection: sel,
	}
}
