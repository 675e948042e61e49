package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// =============================================================================
// Styles
// =============================================================================

// TermStyles are the lipgloss styles used by [RenderTerm].
type TermStyles struct {
	Node               lipgloss.Style
	Selected           lipgloss.Style
	Hovered            lipgloss.Style
	Invalid            lipgloss.Style
	Port               lipgloss.Style
	Connection         lipgloss.Style
	ConnectionSelected lipgloss.Style
	DragNeutral        lipgloss.Style
	DragValid          lipgloss.Style
	DragInvalid        lipgloss.Style
	Caret              lipgloss.Style
	LabelSelection     lipgloss.Style
	Candidate          lipgloss.Style
	CandidateHighlight lipgloss.Style
	Tooltip            lipgloss.Style
	Grid               lipgloss.Style
}

// DefaultTermStyles returns the terminal editor palette.
func DefaultTermStyles() TermStyles {
	return TermStyles{
		Node:               lipgloss.NewStyle(),
		Selected:           lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		Hovered:            lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true),
		Invalid:            lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		Port:               lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Connection:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		ConnectionSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		DragNeutral:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		DragValid:          lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		DragInvalid:        lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		Caret:              lipgloss.NewStyle().Reverse(true),
		LabelSelection:     lipgloss.NewStyle().Background(lipgloss.Color("24")),
		Candidate:          lipgloss.NewStyle().Background(lipgloss.Color("236")),
		CandidateHighlight: lipgloss.NewStyle().Background(lipgloss.Color("33")).Foreground(lipgloss.Color("231")),
		Tooltip:            lipgloss.NewStyle().Background(lipgloss.Color("229")).Foreground(lipgloss.Color("16")),
		Grid:               lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}

// TermOptions configures [RenderTerm].
type TermOptions struct {
	Width, Height int
	// Origin is the canvas point shown in the top-left cell.
	Origin geom.Vec
	Styles *TermStyles
}

// =============================================================================
// Cell grid
// =============================================================================

type termCell struct {
	r     rune
	style *lipgloss.Style
}

type termGrid struct {
	w, h   int
	origin geom.Vec
	cells  []termCell
}

func newTermGrid(w, h int, origin geom.Vec) *termGrid {
	g := &termGrid{w: w, h: h, origin: origin, cells: make([]termCell, w*h)}
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

// cell converts a canvas point to grid coordinates.
func (g *termGrid) cell(v geom.Vec) (int, int) {
	return int(math.Floor(v.X - g.origin.X)), int(math.Floor(v.Y - g.origin.Y))
}

func (g *termGrid) set(x, y int, r rune, st *lipgloss.Style) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y*g.w+x] = termCell{r: r, style: st}
}

func (g *termGrid) restyle(x, y int, st *lipgloss.Style) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y*g.w+x].style = st
}

func (g *termGrid) text(x, y int, s string, st *lipgloss.Style) {
	for _, r := range s {
		g.set(x, y, r, st)
		x++
	}
}

// fill paints every cell of r with ch.
func (g *termGrid) fill(r geom.Rect, ch rune, st *lipgloss.Style) {
	x0, y0 := g.cell(r.Min)
	x1, y1 := g.cell(r.Max)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, ch, st)
		}
	}
}

// line draws a Bresenham line choosing box characters by step direction.
func (g *termGrid) line(from, to geom.Vec, st *lipgloss.Style) {
	x0, y0 := g.cell(from)
	x1, y1 := g.cell(to)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		stepX, stepY := false, false
		if x0 == x1 && y0 == y1 {
			g.set(x0, y0, lineRune(dx != 0, dy != 0, sx, sy), st)
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			stepX = true
		}
		if e2 <= dx {
			stepY = true
		}
		g.set(x0, y0, lineRune(stepX, stepY, sx, sy), st)
		if stepX {
			e += dy
			x0 += sx
		}
		if stepY {
			e += dx
			y0 += sy
		}
	}
}

func lineRune(stepX, stepY bool, sx, sy int) rune {
	switch {
	case stepX && stepY:
		if sx == sy {
			return '╲'
		}
		return '╱'
	case stepX:
		return '─'
	}
	return '│'
}

func (g *termGrid) String() string {
	var b strings.Builder
	for y := range g.h {
		row := g.cells[y*g.w : (y+1)*g.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].style == row[i].style {
				run.WriteRune(row[j].r)
				j++
			}
			if row[i].style != nil {
				b.WriteString(row[i].style.Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			i = j
		}
		if y < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// =============================================================================
// Painting
// =============================================================================

// RenderTerm paints a scene laid out with [canvas.CellMetrics] into a
// Width x Height character grid. Inlets are drawn as ▾ in the top band,
// outlets as ▴ in the bottom band; invalid nodes use dashed bands.
func RenderTerm(s canvas.Scene, opts TermOptions) string {
	if opts.Width <= 0 || opts.Height <= 0 {
		return ""
	}
	st := opts.Styles
	if st == nil {
		d := DefaultTermStyles()
		st = &d
	}
	g := newTermGrid(opts.Width, opts.Height, opts.Origin)

	if s.ShowGrid && s.GridSize > 1 {
		paintTermGrid(g, s.GridSize, &st.Grid)
	}
	for _, sh := range s.Shapes {
		switch x := sh.(type) {
		case *canvas.NodeShape:
			paintTermNode(g, x, st)
		case *canvas.ConnectionShape:
			cs := &st.Connection
			if x.Selected || x.Hovered {
				cs = &st.ConnectionSelected
			}
			g.line(x.From, x.To, cs)
		}
	}
	if d := s.Drag; d != nil {
		ds := &st.DragNeutral
		switch d.Style {
		case canvas.LineValid:
			ds = &st.DragValid
		case canvas.LineInvalid:
			ds = &st.DragInvalid
		}
		g.line(d.From, d.To, ds)
	}
	if c := s.Candidates; c != nil {
		x, y := g.cell(c.Rect.Min)
		w := int(math.Ceil(c.Rect.Dx()))
		for i, cand := range c.Candidates {
			cs := &st.Candidate
			if i == c.Highlight {
				cs = &st.CandidateHighlight
			}
			g.text(x, y+i, padRight(cand, w), cs)
		}
	}
	if t := s.Tooltip; t != nil {
		x, y := g.cell(t.Rect.Min)
		g.text(x, y, t.Text, &st.Tooltip)
	}
	return g.String()
}

func paintTermGrid(g *termGrid, size int, st *lipgloss.Style) {
	step := float64(size)
	startX := math.Ceil(g.origin.X/step) * step
	startY := math.Ceil(g.origin.Y/step) * step
	for y := startY; y < g.origin.Y+float64(g.h); y += step {
		for x := startX; x < g.origin.X+float64(g.w); x += step {
			cx, cy := g.cell(geom.V(x, y))
			g.set(cx, cy, '·', st)
		}
	}
}

func paintTermNode(g *termGrid, n *canvas.NodeShape, st *TermStyles) {
	ns := &st.Node
	switch {
	case n.Selected:
		ns = &st.Selected
	case !n.Valid:
		ns = &st.Invalid
	case n.Hovered:
		ns = &st.Hovered
	}
	band := '─'
	if !n.Valid {
		band = '╌'
	}

	g.fill(n.Frame, ' ', ns)
	g.fill(n.InputHeader, band, ns)
	g.fill(n.OutputHeader, band, ns)
	for _, p := range n.Inlets {
		x, y := g.cell(p.Rect.Min)
		g.set(x, y, '▾', &st.Port)
	}
	for _, p := range n.Outlets {
		x, y := g.cell(p.Rect.Min)
		g.set(x, y, '▴', &st.Port)
	}

	x, y := g.cell(n.Body.Min)
	g.text(x, y, n.Label, ns)
	if n.Editing {
		for i := n.SelStart; i < n.SelEnd; i++ {
			g.restyle(x+i, y, &st.LabelSelection)
		}
		if n.SelStart == n.SelEnd {
			g.restyle(x+n.Caret, y, &st.Caret)
		}
	}
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
