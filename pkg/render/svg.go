package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// =============================================================================
// Palette
// =============================================================================

// Palette holds the colors used by [RenderSVG].
type Palette struct {
	Background string
	Fill       string
	Stroke     string
	Selected   string
	Hovered    string
	Invalid    string
	Port       string
	Text       string
	Grid       string
	DragLine   string
	Tooltip    string
}

// DefaultPalette is black on white with a blue selection.
var DefaultPalette = Palette{
	Background: "white",
	Fill:       "white",
	Stroke:     "black",
	Selected:   "#1e6fd9",
	Hovered:    "#6b6b6b",
	Invalid:    "#c62828",
	Port:       "black",
	Text:       "black",
	Grid:       "#c8c8c8",
	DragLine:   "#808080",
	Tooltip:    "#fff8d0",
}

// =============================================================================
// Options
// =============================================================================

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	palette    Palette
	padding    float64
	background bool
}

// WithPalette replaces the default colors.
func WithPalette(p Palette) SVGOption { return func(r *svgRenderer) { r.palette = p } }

// WithPadding sets the margin around the scene bounds (default 8).
func WithPadding(p float64) SVGOption { return func(r *svgRenderer) { r.padding = p } }

// WithTransparentBackground omits the background rectangle.
func WithTransparentBackground() SVGOption { return func(r *svgRenderer) { r.background = false } }

// =============================================================================
// Rendering
// =============================================================================

// RenderSVG paints the scene. Shapes are drawn in scene order, then the
// drag line, the candidate list and the tooltip.
func RenderSVG(s canvas.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{palette: DefaultPalette, padding: 8, background: true}
	for _, opt := range opts {
		opt(&r)
	}

	view := s.Bounds.Inset(r.padding)
	if s.Bounds.Empty() {
		view = geom.R(0, 0, 2*r.padding, 2*r.padding)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%.0f" height="%.0f">`+"\n",
		num(view.Min.X), num(view.Min.Y), num(view.Dx()), num(view.Dy()), view.Dx(), view.Dy())
	buf.WriteString(`  <style>text { font-family: monospace; white-space: pre; }</style>` + "\n")

	if r.background {
		fmt.Fprintf(&buf, `  <rect class="background" x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
			num(view.Min.X), num(view.Min.Y), num(view.Dx()), num(view.Dy()), r.palette.Background)
	}
	if s.ShowGrid && s.GridSize > 1 {
		r.renderGrid(&buf, view, s.GridSize)
	}

	for _, sh := range s.Shapes {
		switch x := sh.(type) {
		case *canvas.NodeShape:
			r.renderNode(&buf, x)
		case *canvas.ConnectionShape:
			r.renderConnection(&buf, x)
		}
	}
	if s.Drag != nil {
		r.renderDrag(&buf, *s.Drag)
	}
	if s.Candidates != nil {
		r.renderCandidates(&buf, *s.Candidates)
	}
	if s.Tooltip != nil {
		r.renderTooltip(&buf, *s.Tooltip)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderGrid(buf *bytes.Buffer, view geom.Rect, size int) {
	g := float64(size)
	fmt.Fprintf(buf, `  <defs><pattern id="grid" width="%s" height="%s" patternUnits="userSpaceOnUse">`+
		`<circle cx="0" cy="0" r="0.8" fill="%s"/></pattern></defs>`+"\n", num(g), num(g), r.palette.Grid)
	fmt.Fprintf(buf, `  <rect class="grid" x="%s" y="%s" width="%s" height="%s" fill="url(#grid)"/>`+"\n",
		num(view.Min.X), num(view.Min.Y), num(view.Dx()), num(view.Dy()))
}

func (r *svgRenderer) nodeStroke(n *canvas.NodeShape) string {
	switch {
	case n.Selected:
		return r.palette.Selected
	case !n.Valid:
		return r.palette.Invalid
	case n.Hovered:
		return r.palette.Hovered
	}
	return r.palette.Stroke
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, n *canvas.NodeShape) {
	stroke := r.nodeStroke(n)
	dash := ""
	if !n.Valid {
		dash = ` stroke-dasharray="4 2"`
	}
	width := 1.0
	if n.Selected || n.Hovered {
		width = 2
	}

	fmt.Fprintf(buf, `  <g class="node" id="node-%s">`+"\n", escapeXML(n.ID))
	fmt.Fprintf(buf, `    <rect class="frame" %s fill="%s" stroke="%s" stroke-width="%s"%s/>`+"\n",
		rectAttrs(n.Frame), r.palette.Fill, stroke, num(width), dash)
	for _, y := range []float64{n.InputHeader.Max.Y, n.OutputHeader.Min.Y} {
		fmt.Fprintf(buf, `    <line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="0.5"%s/>`+"\n",
			num(n.Frame.Min.X), num(y), num(n.Frame.Max.X), num(y), stroke, dash)
	}
	for _, p := range n.Inlets {
		fmt.Fprintf(buf, `    <rect class="inlet" %s fill="%s"><title>%s</title></rect>`+"\n",
			rectAttrs(p.Rect), r.palette.Port, escapeXML(p.Type))
	}
	for _, p := range n.Outlets {
		fmt.Fprintf(buf, `    <rect class="outlet" %s fill="%s"><title>%s</title></rect>`+"\n",
			rectAttrs(p.Rect), r.palette.Port, escapeXML(p.Type))
	}

	if n.Editing {
		r.renderEditing(buf, n)
	}
	fontSize := n.Body.Dy() * 0.8
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="%s" fill="%s">%s</text>`+"\n",
		num(n.Body.Min.X), num(n.Body.Min.Y+n.Body.Dy()*0.78), num(fontSize), r.palette.Text, escapeXML(n.Label))
	buf.WriteString("  </g>\n")
}

// renderEditing draws the selection highlight and the caret of a label
// being edited. Glyphs are assumed to have equal advance.
func (r *svgRenderer) renderEditing(buf *bytes.Buffer, n *canvas.NodeShape) {
	runes := utf8.RuneCountInString(n.Label)
	adv := 0.0
	if runes > 0 {
		adv = n.LabelWidth / float64(runes)
	}
	x := func(i int) float64 { return n.Body.Min.X + adv*float64(i) }
	if n.SelEnd > n.SelStart {
		sel := geom.Rect{
			Min: geom.V(x(n.SelStart), n.Body.Min.Y),
			Max: geom.V(x(n.SelEnd), n.Body.Max.Y),
		}
		fmt.Fprintf(buf, `    <rect class="selection" %s fill="%s" fill-opacity="0.3"/>`+"\n",
			rectAttrs(sel), r.palette.Selected)
	}
	cx := x(n.Caret)
	fmt.Fprintf(buf, `    <line class="caret" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"/>`+"\n",
		num(cx), num(n.Body.Min.Y), num(cx), num(n.Body.Max.Y), r.palette.Text)
}

func (r *svgRenderer) renderConnection(buf *bytes.Buffer, c *canvas.ConnectionShape) {
	stroke, width := r.palette.Stroke, 1.5
	switch {
	case c.Selected:
		stroke, width = r.palette.Selected, 2.5
	case c.Hovered:
		stroke, width = r.palette.Hovered, 2.5
	}
	fmt.Fprintf(buf, `  <line class="connection" id="conn-%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`+"\n",
		escapeXML(c.ID), num(c.From.X), num(c.From.Y), num(c.To.X), num(c.To.Y), stroke, num(width))
}

func (r *svgRenderer) renderDrag(buf *bytes.Buffer, d canvas.DragLine) {
	stroke, width, dash := r.palette.DragLine, 1.0, ` stroke-dasharray="4 3"`
	switch d.Style {
	case canvas.LineValid:
		stroke, width, dash = r.palette.Stroke, 2, ""
	case canvas.LineInvalid:
		stroke = r.palette.Invalid
	}
	fmt.Fprintf(buf, `  <line class="drag %s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"%s/>`+"\n",
		d.Style, num(d.From.X), num(d.From.Y), num(d.To.X), num(d.To.Y), stroke, num(width), dash)
}

func (r *svgRenderer) renderCandidates(buf *bytes.Buffer, c canvas.CandidateList) {
	if len(c.Candidates) == 0 {
		return
	}
	row := c.Rect.Dy() / float64(len(c.Candidates))
	buf.WriteString(`  <g class="candidates">` + "\n")
	fmt.Fprintf(buf, `    <rect %s fill="%s" stroke="%s"/>`+"\n", rectAttrs(c.Rect), r.palette.Fill, r.palette.Stroke)
	for i, text := range c.Candidates {
		top := c.Rect.Min.Y + row*float64(i)
		fill := r.palette.Text
		if i == c.Highlight {
			fmt.Fprintf(buf, `    <rect class="highlight" %s fill="%s"/>`+"\n",
				rectAttrs(geom.R(c.Rect.Min.X, top, c.Rect.Dx(), row)), r.palette.Selected)
			fill = r.palette.Fill
		}
		fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="%s" fill="%s">%s</text>`+"\n",
			num(c.Rect.Min.X), num(top+row*0.78), num(row*0.8), fill, escapeXML(text))
	}
	buf.WriteString("  </g>\n")
}

func (r *svgRenderer) renderTooltip(buf *bytes.Buffer, t canvas.Tooltip) {
	// The pointer triangle joins the bubble edge facing the port.
	edge := t.Rect.Max.Y
	if !t.Above {
		edge = t.Rect.Min.Y
	}
	half := math.Min(3, t.Rect.Dx()/2)
	cx := t.Tip.X
	buf.WriteString(`  <g class="tooltip">` + "\n")
	fmt.Fprintf(buf, `    <path d="M%s,%s L%s,%s L%s,%s Z" fill="%s" stroke="%s"/>`+"\n",
		num(cx-half), num(edge), num(t.Tip.X), num(t.Tip.Y), num(cx+half), num(edge), r.palette.Tooltip, r.palette.Stroke)
	fmt.Fprintf(buf, `    <rect %s rx="2" fill="%s" stroke="%s"/>`+"\n", rectAttrs(t.Rect), r.palette.Tooltip, r.palette.Stroke)
	fmt.Fprintf(buf, `    <text x="%s" y="%s" font-size="%s" text-anchor="middle" fill="%s">%s</text>`+"\n",
		num(t.Rect.Center().X), num(t.Rect.Min.Y+t.Rect.Dy()*0.72), num(t.Rect.Dy()*0.6), r.palette.Text, escapeXML(t.Text))
	buf.WriteString("  </g>\n")
}

// =============================================================================
// Helpers
// =============================================================================

func rectAttrs(r geom.Rect) string {
	return fmt.Sprintf(`x="%s" y="%s" width="%s" height="%s"`, num(r.Min.X), num(r.Min.Y), num(r.Dx()), num(r.Dy()))
}

// num formats a coordinate rounded to two decimals without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100+0, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
