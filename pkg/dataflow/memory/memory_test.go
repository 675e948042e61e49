package memory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/library"
)

// recorder logs every notification as a short string.
type recorder struct{ events []string }

func (r *recorder) add(format string, args ...any) { r.events = append(r.events, fmt.Sprintf(format, args...)) }

func (r *recorder) NodeAdded(n dataflow.Node)   { r.add("added %s", n.ID()) }
func (r *recorder) NodeRemoved(n dataflow.Node) { r.add("removed %s", n.ID()) }
func (r *recorder) NodeValidChanged(n dataflow.Node, v bool) {
	r.add("valid %s %v", n.ID(), v)
}
func (r *recorder) NodePosChanged(n dataflow.Node, p geom.Point) { r.add("pos %s %s", n.ID(), p) }
func (r *recorder) NodeTextChanged(n dataflow.Node, s string)    { r.add("text %s %q", n.ID(), s) }
func (r *recorder) NodeInletCountChanged(n dataflow.Node, c int) {
	r.add("inlets %s %d", n.ID(), c)
}
func (r *recorder) NodeOutletCountChanged(n dataflow.Node, c int) {
	r.add("outlets %s %d", n.ID(), c)
}
func (r *recorder) ConnectionAdded(c dataflow.Connection)   { r.add("connected %s", c.ID()) }
func (r *recorder) ConnectionRemoved(c dataflow.Connection) { r.add("disconnected %s", c.ID()) }

func quiet() Option { return WithLogger(log.New(nilWriter{})) }

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func newGraph(t *testing.T, opts ...Option) (*Graph, *recorder) {
	t.Helper()
	g := New(append([]Option{quiet(), WithIDGenerator(SequentialIDs("id"))}, opts...)...)
	r := &recorder{}
	g.Subscribe(r)
	return g, r
}

func TestCreateNodeWithoutLibrary(t *testing.T) {
	g, r := newGraph(t)
	n, err := g.CreateNode(geom.Pt(10, 20), "anything", 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !n.Valid() || n.InletCount() != 2 || n.OutletCount() != 1 {
		t.Errorf("node = valid %v, %d/%d ports", n.Valid(), n.InletCount(), n.OutletCount())
	}
	if n.Inlet(0).Type() != dataflow.AnyType {
		t.Errorf("inlet type = %q, want any", n.Inlet(0).Type())
	}
	if n.Inlet(2) != nil || n.Outlet(-1) != nil {
		t.Error("out-of-range ports should be nil")
	}
	if diff := cmp.Diff([]string{"added id1"}, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateNodeResolvesClass(t *testing.T) {
	g, _ := newGraph(t, WithLibrary(library.Builtin()))
	add, _ := g.CreateNode(geom.Pt(0, 0), "add 1", 0, 0)
	if !add.Valid() || add.InletCount() != 2 || add.OutletCount() != 1 {
		t.Errorf("add = valid %v, %d/%d ports", add.Valid(), add.InletCount(), add.OutletCount())
	}
	bad, _ := g.CreateNode(geom.Pt(0, 0), "nosuch", 3, 3)
	if bad.Valid() || bad.InletCount() != 0 || bad.OutletCount() != 0 {
		t.Errorf("nosuch = valid %v, %d/%d ports", bad.Valid(), bad.InletCount(), bad.OutletCount())
	}
}

func TestSetNodeTextChangesClass(t *testing.T) {
	g, r := newGraph(t, WithLibrary(library.Builtin()))
	n, _ := g.CreateNode(geom.Pt(0, 0), "", 0, 0)
	r.events = nil

	if err := g.SetNodeText(n, "split"); err != nil {
		t.Fatal(err)
	}
	want := []string{`text id1 "split"`, "inlets id1 1", "outlets id1 3", "valid id1 true"}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	r.events = nil
	if err := g.SetNodeText(n, "split"); err != nil {
		t.Fatal(err)
	}
	if len(r.events) != 0 {
		t.Errorf("unchanged text should not notify, got %v", r.events)
	}
}

func TestShrinkingPortsDisconnectsFirst(t *testing.T) {
	g, r := newGraph(t, WithLibrary(library.Builtin()))
	src, _ := g.CreateNode(geom.Pt(0, 0), "split", 0, 0)
	dst, _ := g.CreateNode(geom.Pt(0, 50), "print", 0, 0)
	c, err := g.Connect(src, 2, dst, 0)
	if err != nil {
		t.Fatal(err)
	}
	r.events = nil

	if err := g.SetNodeText(src, "tostring"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		`text id1 "tostring"`,
		"disconnected " + c.ID(),
		"outlets id1 1",
	}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if g.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", g.ConnectionCount())
	}
}

func TestConnect(t *testing.T) {
	g, _ := newGraph(t, WithLibrary(library.Builtin()))
	num, _ := g.CreateNode(geom.Pt(0, 0), "number", 0, 0)
	str, _ := g.CreateNode(geom.Pt(0, 0), "string", 0, 0)
	add, _ := g.CreateNode(geom.Pt(0, 0), "add", 0, 0)
	anyNode, _ := g.CreateNode(geom.Pt(0, 0), "print", 0, 0)

	tests := []struct {
		name    string
		src     dataflow.Node
		outlet  int
		dst     dataflow.Node
		inlet   int
		wantErr error
	}{
		{"matching types", num, 0, add, 0, nil},
		{"duplicate", num, 0, add, 0, dataflow.ErrDuplicateConnection},
		{"mismatched types", str, 0, add, 1, dataflow.ErrIncompatiblePorts},
		{"wildcard inlet", str, 0, anyNode, 0, nil},
		{"outlet out of range", num, 5, add, 0, dataflow.ErrPortOutOfRange},
		{"inlet out of range", num, 0, add, 9, dataflow.ErrPortOutOfRange},
		{"self loop", num, 0, num, 0, dataflow.ErrIncompatiblePorts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Connect(tt.src, tt.outlet, tt.dst, tt.inlet)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if g.ConnectionCount() != 2 {
		t.Errorf("ConnectionCount() = %d, want 2", g.ConnectionCount())
	}
}

func TestRemoveNodeDisconnectsFirst(t *testing.T) {
	g, r := newGraph(t)
	a, _ := g.CreateNode(geom.Pt(0, 0), "a", 0, 2)
	b, _ := g.CreateNode(geom.Pt(0, 0), "b", 1, 0)
	c1, _ := g.Connect(a, 0, b, 0)
	c2, _ := g.Connect(a, 1, b, 0)
	r.events = nil

	if err := g.RemoveNode(b); err != nil {
		t.Fatal(err)
	}
	want := []string{"disconnected " + c1.ID(), "disconnected " + c2.ID(), "removed id2"}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if err := g.RemoveNode(b); !errors.Is(err, dataflow.ErrUnknownNode) {
		t.Errorf("second RemoveNode() error = %v, want ErrUnknownNode", err)
	}
	if err := g.SetNodePos(b, geom.Pt(1, 1)); !errors.Is(err, dataflow.ErrUnknownNode) {
		t.Errorf("SetNodePos(removed) error = %v, want ErrUnknownNode", err)
	}
}

func TestDisconnect(t *testing.T) {
	g, _ := newGraph(t)
	a, _ := g.CreateNode(geom.Pt(0, 0), "a", 0, 1)
	b, _ := g.CreateNode(geom.Pt(0, 0), "b", 1, 0)
	if err := g.Disconnect(a, 0, b, 0); !errors.Is(err, dataflow.ErrUnknownConnection) {
		t.Errorf("Disconnect(missing) error = %v", err)
	}
	c, _ := g.Connect(a, 0, b, 0)
	if err := g.Disconnect(a, 0, b, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Connection(c.ID()); ok {
		t.Error("connection still present after Disconnect")
	}
}

func TestSetNodePos(t *testing.T) {
	g, r := newGraph(t)
	n, _ := g.CreateNode(geom.Pt(0, 0), "a", 0, 0)
	r.events = nil
	_ = g.SetNodePos(n, geom.Pt(0, 0))
	_ = g.SetNodePos(n, geom.Pt(5, 6))
	if diff := cmp.Diff([]string{"pos id1 (5,6)"}, r.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestMultipleObserversAndUnsubscribe(t *testing.T) {
	g, first := newGraph(t)
	second := &recorder{}
	unsubscribe := g.Subscribe(second)

	_, _ = g.CreateNode(geom.Pt(0, 0), "a", 0, 0)
	unsubscribe()
	_, _ = g.CreateNode(geom.Pt(0, 0), "b", 0, 0)

	if len(first.events) != 2 {
		t.Errorf("first observer got %d events, want 2", len(first.events))
	}
	if diff := cmp.Diff([]string{"added id1"}, second.events); diff != "" {
		t.Errorf("second observer mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	g, _ := newGraph(t)
	if _, err := g.Add(NodeSpec{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add(NodeSpec{ID: "x"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateID", err)
	}
}

func TestNodesInCreationOrder(t *testing.T) {
	g, _ := newGraph(t)
	for _, s := range []string{"c", "a", "b"} {
		_, _ = g.CreateNode(geom.Pt(0, 0), s, 0, 0)
	}
	var got []string
	for _, n := range g.Nodes() {
		got = append(got, n.Text())
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, got); diff != "" {
		t.Errorf("Nodes() order mismatch (-want +got):\n%s", diff)
	}
}
