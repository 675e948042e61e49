package render

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newGraph(t *testing.T) *memory.Graph {
	t.Helper()
	return memory.New(memory.WithLogger(quietLogger()), memory.WithIDGenerator(memory.SequentialIDs("c")))
}

func mustAdd(t *testing.T, g *memory.Graph, spec memory.NodeSpec) {
	t.Helper()
	if _, err := g.Add(spec); err != nil {
		t.Fatalf("Add(%s): %v", spec.ID, err)
	}
}

func mustConnect(t *testing.T, g *memory.Graph, from string, o int, to string, i int) {
	t.Helper()
	src, _ := g.Node(from)
	dst, _ := g.Node(to)
	if _, err := g.Connect(src, o, dst, i); err != nil {
		t.Fatalf("Connect(%s:%d, %s:%d): %v", from, o, to, i, err)
	}
}

// sampleGraph is number -> add with a dangling invalid node.
func sampleGraph(t *testing.T) *memory.Graph {
	g := newGraph(t)
	mustAdd(t, g, memory.NodeSpec{ID: "a", Pos: geom.Pt(40, 40), Text: "number", Outlets: []string{"number"}})
	mustAdd(t, g, memory.NodeSpec{ID: "b", Pos: geom.Pt(40, 120), Text: "add", Inlets: []string{"number", "number"}, Outlets: []string{"number"}})
	mustConnect(t, g, "a", 0, "b", 1)
	return g
}

func attach(g *memory.Graph, opts canvas.Options) *canvas.Canvas {
	opts.Logger = quietLogger()
	c := canvas.New(opts)
	c.Attach(g)
	return c
}
