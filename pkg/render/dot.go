package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Pinned keeps the model positions (neato with fixed nodes). When false
	// Graphviz lays the graph out top to bottom.
	Pinned bool

	// Scale converts model units to points for pinned layouts (default 1).
	Scale float64

	// PortTypes adds the port type tags to the port cells.
	PortTypes bool
}

// ToDOT converts a model to Graphviz DOT. Nodes become record shapes with
// one cell per inlet above the label and one per outlet below; connections
// attach to those cells. Invalid nodes are drawn dashed.
func ToDOT(m dataflow.Model, opts DOTOptions) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	var buf bytes.Buffer
	buf.WriteString("digraph patch {\n")
	if opts.Pinned {
		buf.WriteString("  layout=neato;\n")
		buf.WriteString("  splines=line;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
		buf.WriteString("  ranksep=0.5;\n")
		buf.WriteString("  nodesep=0.3;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=record, fontname=\"monospace\", fontsize=12, height=0.3];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("\n")

	for _, n := range m.Nodes() {
		attrs := []string{"label=" + dotQuote(recordLabel(n, opts.PortTypes))}
		if opts.Pinned {
			p := n.Pos()
			// Graphviz y grows upwards.
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtPt(float64(p.X)*scale), fmtPt(-float64(p.Y)*scale)))
		}
		if !n.Valid() {
			attrs = append(attrs, "style=dashed", "color=red")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", dotQuote(n.ID()), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range m.Connections() {
		e := dataflow.EndpointsOf(c)
		fmt.Fprintf(&buf, "  %s:o%d:s -> %s:i%d:n;\n", dotQuote(e.Source), e.SourceIndex, dotQuote(e.Dest), e.DestIndex)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// recordLabel builds "{{<i0>|<i1>}|text|{<o0>}}", omitting empty port rows.
func recordLabel(n dataflow.Node, types bool) string {
	row := func(prefix string, count int, typ func(int) string) string {
		cells := make([]string, count)
		for i := range count {
			cells[i] = fmt.Sprintf("<%s%d>", prefix, i)
			if types {
				cells[i] += " " + escapeRecord(typ(i))
			}
		}
		return "{" + strings.Join(cells, "|") + "}"
	}

	var parts []string
	if n.InletCount() > 0 {
		parts = append(parts, row("i", n.InletCount(), func(i int) string { return n.Inlet(i).Type() }))
	}
	parts = append(parts, escapeRecord(n.Text()))
	if n.OutletCount() > 0 {
		parts = append(parts, row("o", n.OutletCount(), func(i int) string { return n.Outlet(i).Type() }))
	}
	return "{" + strings.Join(parts, "|") + "}"
}

var recordSpecial = strings.NewReplacer(
	`\`, `\\`, `{`, `\{`, `}`, `\}`, `|`, `\|`, `<`, `\<`, `>`, `\>`,
)

func escapeRecord(s string) string {
	if s == "" {
		return " "
	}
	return recordSpecial.Replace(s)
}

// dotQuote quotes s as a DOT string. Only double quotes are escaped: DOT
// keeps other backslash sequences for the record parser.
func dotQuote(s string) string { return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"` }

func fmtPt(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// =============================================================================
// Graphviz
// =============================================================================

// GraphvizSVG renders DOT to SVG in-process.
func GraphvizSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderGraphviz(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// GraphvizPNG renders DOT to PNG in-process.
func GraphvizPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg element with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
