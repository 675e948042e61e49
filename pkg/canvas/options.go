package canvas

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/completion"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// =============================================================================
// Metrics
// =============================================================================

// Metrics are the fixed sizes node and port layout is computed from.
type Metrics struct {
	PortWidth    float64 // width of one inlet or outlet
	PortHeight   float64 // height of a port, also the header band height
	PortSpacing  float64 // horizontal gap between adjacent ports
	HitTolerance float64 // extra hit margin around ports

	TooltipOffset float64 // vertical distance between a port and its tooltip
	TooltipMargin float64 // padding inside the tooltip bubble
	TooltipTip    float64 // width of the tooltip's pointer

	CandidateGap float64 // gap between a node and its candidate list
}

// PixelMetrics are the defaults for pixel surfaces such as SVG.
func PixelMetrics() Metrics {
	return Metrics{
		PortWidth:     10,
		PortHeight:    4,
		PortSpacing:   13,
		HitTolerance:  5,
		TooltipOffset: 20,
		TooltipMargin: 4,
		TooltipTip:    6,
		CandidateGap:  2,
	}
}

// CellMetrics are the defaults for terminal surfaces where one unit is one
// character cell.
func CellMetrics() Metrics {
	return Metrics{
		PortWidth:     1,
		PortHeight:    1,
		PortSpacing:   1,
		HitTolerance:  0,
		TooltipOffset: 2,
		TooltipMargin: 0,
		TooltipTip:    1,
		CandidateGap:  0,
	}
}

// MetricsByName returns the preset called "pixel" or "cell".
func MetricsByName(name string) (Metrics, bool) {
	switch name {
	case "", "pixel":
		return PixelMetrics(), true
	case "cell":
		return CellMetrics(), true
	}
	return Metrics{}, false
}

// rowWidth is the width of n ports laid out side by side.
func (m Metrics) rowWidth(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n)*(m.PortWidth+m.PortSpacing) - m.PortSpacing
}

// portCenterX is the local x of the i-th port center.
func (m Metrics) portCenterX(i int) float64 {
	return m.PortWidth/2 + float64(i)*(m.PortWidth+m.PortSpacing)
}

// =============================================================================
// Collaborators
// =============================================================================

// TextMeasurer sizes label and candidate text.
type TextMeasurer interface {
	Measure(s string) (w, h float64)
}

// CellMeasurer measures text in terminal cells using lipgloss, so wide runes
// and ANSI sequences are accounted for.
type CellMeasurer struct{}

// Measure returns the cell width and line count of s.
func (CellMeasurer) Measure(s string) (float64, float64) {
	return float64(lipgloss.Width(s)), float64(lipgloss.Height(s))
}

// FixedMeasurer scales cell measurements to a fixed glyph box, a good
// approximation for monospace pixel rendering.
type FixedMeasurer struct {
	CharWidth  float64
	LineHeight float64
}

// Measure returns the pixel size of s.
func (f FixedMeasurer) Measure(s string) (float64, float64) {
	w, h := CellMeasurer{}.Measure(s)
	return w * f.CharWidth, h * f.LineHeight
}

// DefaultPixelMeasurer matches the 12px monospace font used by the SVG
// painter.
var DefaultPixelMeasurer = FixedMeasurer{CharWidth: 7.2, LineHeight: 16}

// Surface receives the canvas rectangles that need repainting.
type Surface interface {
	Invalidate(r geom.Rect)
}

// SurfaceFunc adapts a function to [Surface].
type SurfaceFunc func(r geom.Rect)

// Invalidate calls f.
func (f SurfaceFunc) Invalidate(r geom.Rect) { f(r) }

type nopSurface struct{}

func (nopSurface) Invalidate(geom.Rect) {}

// =============================================================================
// Options
// =============================================================================

// Options configure a Canvas. The zero value is usable: pixel metrics, the
// matching fixed measurer, no completion, the default logger, grid size 1.
type Options struct {
	Metrics    Metrics
	Measurer   TextMeasurer
	Surface    Surface
	Completion completion.Provider
	Logger     *log.Logger

	// Display modes. PortTooltips excludes the two hover modes; when all
	// three are set PortTooltips wins.
	NodeHover       bool
	ConnectionHover bool
	PortTooltips    bool

	GridSize   int
	SnapToGrid bool
	ShowGrid   bool
}

func (o Options) withDefaults() Options {
	if o.Metrics == (Metrics{}) {
		o.Metrics = PixelMetrics()
	}
	if o.Measurer == nil {
		if o.Metrics.PortWidth <= 1 {
			o.Measurer = CellMeasurer{}
		} else {
			o.Measurer = DefaultPixelMeasurer
		}
	}
	if o.Surface == nil {
		o.Surface = nopSurface{}
	}
	if o.Completion == nil {
		o.Completion = completion.None
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.GridSize < 1 {
		o.GridSize = 1
	}
	return o
}
