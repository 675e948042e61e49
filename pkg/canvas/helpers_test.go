package canvas

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/library"
)

// recordingModel records every command the canvas issues before forwarding
// it to an in-memory graph.
type recordingModel struct {
	*memory.Graph
	calls   []string
	dropPos bool // swallow SetNodePos without notifying
}

func (r *recordingModel) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingModel) CreateNode(pos geom.Point, text string, in, out int) (dataflow.Node, error) {
	r.record("create %s %q", pos, text)
	return r.Graph.CreateNode(pos, text, in, out)
}

func (r *recordingModel) RemoveNode(n dataflow.Node) error {
	r.record("remove %s", n.ID())
	return r.Graph.RemoveNode(n)
}

func (r *recordingModel) SetNodeText(n dataflow.Node, text string) error {
	r.record("text %s %q", n.ID(), text)
	return r.Graph.SetNodeText(n, text)
}

func (r *recordingModel) SetNodePos(n dataflow.Node, p geom.Point) error {
	r.record("pos %s %s", n.ID(), p)
	if r.dropPos {
		return nil
	}
	return r.Graph.SetNodePos(n, p)
}

func (r *recordingModel) Connect(src dataflow.Node, o int, dst dataflow.Node, i int) (dataflow.Connection, error) {
	r.record("connect %s:%d %s:%d", src.ID(), o, dst.ID(), i)
	return r.Graph.Connect(src, o, dst, i)
}

func (r *recordingModel) Disconnect(src dataflow.Node, o int, dst dataflow.Node, i int) error {
	r.record("disconnect %s:%d %s:%d", src.ID(), o, dst.ID(), i)
	return r.Graph.Disconnect(src, o, dst, i)
}

func (r *recordingModel) reset() { r.calls = nil }

func quietLogger() *log.Logger { return log.New(io.Discard) }

// testMeasurer makes every glyph 10x20 so layouts are easy to compute.
var testMeasurer = FixedMeasurer{CharWidth: 10, LineHeight: 20}

func testOptions() Options {
	return Options{
		Metrics:  PixelMetrics(),
		Measurer: testMeasurer,
		Logger:   quietLogger(),
	}
}

// setup returns an attached canvas over a library-backed graph with IDs
// n1, n2, ... shared by nodes and connections.
func setup(t *testing.T, opts Options) (*Canvas, *recordingModel) {
	t.Helper()
	g := memory.New(
		memory.WithLogger(quietLogger()),
		memory.WithIDGenerator(memory.SequentialIDs("n")),
		memory.WithLibrary(library.Builtin()),
	)
	m := &recordingModel{Graph: g}
	c := New(opts)
	c.Attach(m)
	return c, m
}

// setupPlain is setup without class resolution: nodes keep the requested
// untyped port counts.
func setupPlain(t *testing.T, opts Options) (*Canvas, *recordingModel) {
	t.Helper()
	g := memory.New(
		memory.WithLogger(quietLogger()),
		memory.WithIDGenerator(memory.SequentialIDs("n")),
	)
	m := &recordingModel{Graph: g}
	c := New(opts)
	c.Attach(m)
	return c, m
}

func mustNode(t *testing.T, m dataflow.Model, pos geom.Point, text string, in, out int) dataflow.Node {
	t.Helper()
	n, err := m.CreateNode(pos, text, in, out)
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", text, err)
	}
	return n
}

// checkMirror asserts the structural invariants between canvas and model.
func checkMirror(t *testing.T, c *Canvas, m dataflow.Model) {
	t.Helper()
	nodes := m.Nodes()
	if len(c.Nodes()) != len(nodes) {
		t.Fatalf("canvas has %d node visuals, model has %d nodes", len(c.Nodes()), len(nodes))
	}
	for _, n := range nodes {
		nv, ok := c.Node(n.ID())
		if !ok {
			t.Fatalf("no visual for node %s", n.ID())
		}
		if len(nv.Inlets()) != n.InletCount() || len(nv.Outlets()) != n.OutletCount() {
			t.Errorf("node %s: visual ports %d/%d, model %d/%d",
				n.ID(), len(nv.Inlets()), len(nv.Outlets()), n.InletCount(), n.OutletCount())
		}
	}
	conns := m.Connections()
	if len(c.Connections()) != len(conns) {
		t.Fatalf("canvas has %d connection visuals, model has %d", len(c.Connections()), len(conns))
	}
	for _, conn := range conns {
		cv, ok := c.Connection(conn.ID())
		if !ok {
			t.Fatalf("no visual for connection %s", conn.ID())
		}
		if cv.Source().Node().ID() != conn.Source().Node().ID() || cv.Source().Index() != conn.Source().Index() ||
			cv.Dest().Node().ID() != conn.Dest().Node().ID() || cv.Dest().Index() != conn.Dest().Index() {
			t.Errorf("connection %s endpoints differ from model", conn.ID())
		}
	}
	editing := 0
	for _, nv := range c.Nodes() {
		if nv.Editing() {
			editing++
		}
		for _, p := range append(nv.Inlets(), nv.Outlets()...) {
			for _, cv := range p.Connections() {
				if _, ok := c.Connection(cv.ID()); !ok {
					t.Errorf("port %s:%d holds destroyed connection %s", nv.ID(), p.Index(), cv.ID())
				}
			}
		}
	}
	if editing > 1 {
		t.Errorf("%d nodes in edit mode", editing)
	}
}
