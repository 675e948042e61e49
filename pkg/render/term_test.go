package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

func cellOptions() canvas.Options {
	return canvas.Options{Metrics: canvas.CellMetrics(), Measurer: canvas.CellMeasurer{}}
}

func TestRenderTermNode(t *testing.T) {
	g := newGraph(t)
	mustAdd(t, g, memory.NodeSpec{ID: "n", Pos: geom.Pt(1, 1), Text: "add", Inlets: []string{"any", "any"}, Outlets: []string{"any"}})
	c := attach(g, cellOptions())

	got := RenderTerm(c.Scene(), TermOptions{Width: 5, Height: 5})
	want := strings.Join([]string{
		"     ",
		" ▾─▾ ",
		" add ",
		" ▴── ",
		"     ",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RenderTerm() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTermInvalidAndOrigin(t *testing.T) {
	g := newGraph(t)
	mustAdd(t, g, memory.NodeSpec{ID: "n", Pos: geom.Pt(10, 10), Text: "zz", Invalid: true})
	c := attach(g, cellOptions())

	got := RenderTerm(c.Scene(), TermOptions{Width: 4, Height: 3, Origin: geom.V(9, 10)})
	want := strings.Join([]string{
		" ╌╌ ",
		" zz ",
		" ╌╌ ",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RenderTerm() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTermClipsAndEmpty(t *testing.T) {
	if got := RenderTerm(canvas.Scene{}, TermOptions{}); got != "" {
		t.Errorf("zero viewport = %q, want empty", got)
	}
	got := RenderTerm(canvas.Scene{}, TermOptions{Width: 3, Height: 2})
	if got != "   \n   " {
		t.Errorf("empty scene = %q", got)
	}
}

func TestTermGridLine(t *testing.T) {
	tests := []struct {
		name     string
		from, to geom.Vec
		want     []string
	}{
		{"vertical", geom.V(1, 0), geom.V(1, 2), []string{" │ ", " │ ", " │ "}},
		{"horizontal", geom.V(0, 1), geom.V(2, 1), []string{"   ", "───", "   "}},
		{"diagonal down", geom.V(0, 0), geom.V(2, 2), []string{"╲  ", " ╲ ", "  ╲"}},
		{"diagonal up", geom.V(0, 2), geom.V(2, 0), []string{"  ╱", " ╱ ", "╱  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTermGrid(3, 3, geom.Vec{})
			g.line(tt.from, tt.to, nil)
			if diff := cmp.Diff(strings.Join(tt.want, "\n"), g.String()); diff != "" {
				t.Errorf("line mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderTermGrid(t *testing.T) {
	s := canvas.Scene{ShowGrid: true, GridSize: 2}
	got := RenderTerm(s, TermOptions{Width: 4, Height: 2})
	if got != "· · \n    " {
		t.Errorf("grid = %q", got)
	}
}
