package canvas

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/observability"
)

type gestureHooks struct {
	observability.NoopEditorHooks
	finished []string
}

func (h *gestureHooks) OnGestureFinished(gesture, outcome string) {
	h.finished = append(h.finished, gesture+":"+outcome)
}

// Node "number" at the origin has its outlet centered at (5,26); node "add"
// at (0,100) has inlet 0 centered at (5,102).
var (
	outletOfA = geom.V(5, 26)
	inletOfB  = geom.V(5, 102)
)

func TestConnectDragCompatible(t *testing.T) {
	hooks := &gestureHooks{}
	observability.SetEditorHooks(hooks)
	defer observability.Reset()

	c, m := setup(t, testOptions())
	a := mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	b := mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)
	m.reset()

	c.PointerPress(outletOfA, false)
	if c.ConnectState() != GestureDragging {
		t.Fatalf("ConnectState() = %v, want dragging", c.ConnectState())
	}
	c.PointerMove(geom.V(200, 60))
	if d, _ := c.DragLine(); d.Style != LineNeutral {
		t.Errorf("style over empty space = %v, want neutral", d.Style)
	}
	c.PointerMove(inletOfB)
	d, ok := c.DragLine()
	if !ok || d.Style != LineValid {
		t.Errorf("style over compatible inlet = %v, want valid", d.Style)
	}
	if len(m.calls) != 0 {
		t.Errorf("drag touched the model: %v", m.calls)
	}

	c.PointerRelease(inletOfB)
	if diff := cmp.Diff([]string{"connect n1:0 n2:0"}, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if c.ConnectState() != GestureIdle {
		t.Errorf("ConnectState() = %v, want idle", c.ConnectState())
	}
	if _, ok := c.DragLine(); ok {
		t.Error("drag line survived release")
	}
	if len(c.Connections()) != 1 {
		t.Fatalf("connection visuals = %d, want 1", len(c.Connections()))
	}
	cv := c.Connections()[0]
	if cv.Source().Node().ID() != a.ID() || cv.Dest().Node().ID() != b.ID() {
		t.Error("connection visual has wrong endpoints")
	}
	if diff := cmp.Diff([]string{"connect:committed"}, hooks.finished); diff != "" {
		t.Errorf("gestures mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectDragIncompatible(t *testing.T) {
	c, m := setup(t, testOptions())
	mustNode(t, m, geom.Pt(0, 0), "string", 0, 0)
	mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)
	m.reset()

	c.PointerPress(outletOfA, false)
	c.PointerMove(inletOfB)
	if d, _ := c.DragLine(); d.Style != LineInvalid {
		t.Errorf("style = %v, want invalid", d.Style)
	}
	c.PointerRelease(inletOfB)

	if diff := cmp.Diff([]string{"connect n1:0 n2:0"}, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if len(c.Connections()) != 0 {
		t.Errorf("refused connection produced %d visuals", len(c.Connections()))
	}
	checkMirror(t, c, m)
}

func TestConnectDragAborted(t *testing.T) {
	hooks := &gestureHooks{}
	observability.SetEditorHooks(hooks)
	defer observability.Reset()

	c, m := setup(t, testOptions())
	mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)
	m.reset()

	c.PointerPress(outletOfA, false)
	c.PointerRelease(geom.V(300, 300))
	c.PointerPress(outletOfA, false)
	c.KeyPress(KeyEscape)

	if len(m.calls) != 0 {
		t.Errorf("aborted drags issued %v", m.calls)
	}
	want := []string{"connect:aborted", "connect:aborted"}
	if diff := cmp.Diff(want, hooks.finished); diff != "" {
		t.Errorf("gestures mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectDragSourceRemoved(t *testing.T) {
	c, m := setup(t, testOptions())
	a := mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)

	c.PointerPress(outletOfA, false)
	_ = m.RemoveNode(a)
	if c.ConnectState() != GestureIdle {
		t.Error("drag should abort when its source disappears")
	}
	m.reset()
	c.PointerRelease(inletOfB)
	if len(m.calls) != 0 {
		t.Errorf("release after abort issued %v", m.calls)
	}
}

func TestOutOfOrderPointerEventsAreIgnored(t *testing.T) {
	c, m := setup(t, testOptions())
	mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)
	m.reset()

	c.PointerMove(inletOfB)
	c.PointerRelease(inletOfB)
	if len(m.calls) != 0 || c.ConnectState() != GestureIdle {
		t.Error("move/release while idle should do nothing")
	}

	c.PointerPress(outletOfA, false)
	from, _ := c.DragLine()
	c.PointerPress(geom.V(300, 300), false)
	c.DoubleClick(geom.V(300, 300))
	if d, ok := c.DragLine(); !ok || d.From != from.From {
		t.Error("press while dragging should be ignored")
	}
	if len(m.calls) != 0 {
		t.Errorf("events during drag issued %v", m.calls)
	}
}

func TestMoveIssuesSetNodePos(t *testing.T) {
	c, m := setupPlain(t, testOptions())
	n := mustNode(t, m, geom.Pt(0, 0), "abc", 0, 0)
	m.reset()

	c.PointerPress(geom.V(10, 10), false)
	c.PointerMove(geom.V(17, 23))
	c.PointerRelease(geom.V(17, 23))

	if diff := cmp.Diff([]string{"pos n1 (7,13)"}, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	nv, _ := c.Node(n.ID())
	if nv.Pos() != geom.V(7, 13) {
		t.Errorf("Pos() = %v, want (7,13)", nv.Pos())
	}
}

func TestMoveWaitsForModel(t *testing.T) {
	c, m := setupPlain(t, testOptions())
	n := mustNode(t, m, geom.Pt(0, 0), "abc", 0, 0)
	m.dropPos = true

	c.PointerPress(geom.V(10, 10), false)
	c.PointerMove(geom.V(50, 50))
	nv, _ := c.Node(n.ID())
	if nv.Pos() != geom.V(0, 0) {
		t.Errorf("visual moved to %v without a notification", nv.Pos())
	}
}

func TestMoveSnapsToGrid(t *testing.T) {
	o := testOptions()
	o.GridSize = 10
	o.SnapToGrid = true
	c, m := setupPlain(t, o)
	mustNode(t, m, geom.Pt(0, 0), "abc", 0, 0)
	mustNode(t, m, geom.Pt(100, 0), "def", 0, 0)
	c.SetSelection([]string{"n1", "n2"}, nil)
	m.reset()

	c.PointerPress(geom.V(10, 10), false)
	c.PointerMove(geom.V(13, 12)) // rounds back to the start: nothing to do
	c.PointerMove(geom.V(17, 26))
	c.PointerRelease(geom.V(17, 26))

	want := []string{"pos n1 (10,20)", "pos n2 (110,20)"}
	if diff := cmp.Diff(want, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestPressSelection(t *testing.T) {
	c, m := setupPlain(t, testOptions())
	a := mustNode(t, m, geom.Pt(0, 0), "a", 0, 1)
	b := mustNode(t, m, geom.Pt(200, 0), "b", 1, 0)
	conn, _ := m.Connect(a, 0, b, 0)
	av, _ := c.Node(a.ID())
	bv, _ := c.Node(b.ID())
	cv, _ := c.Connection(conn.ID())

	c.PointerPress(av.Body().Center(), false)
	c.PointerRelease(av.Body().Center())
	if !av.Selected() || bv.Selected() {
		t.Fatal("plain press should select exactly the pressed node")
	}
	c.PointerPress(bv.Body().Center(), true)
	c.PointerRelease(bv.Body().Center())
	if !av.Selected() || !bv.Selected() {
		t.Fatal("shift press should add to the selection")
	}

	mid := cv.From().Add(cv.To()).Scale(0.5)
	c.PointerPress(mid, false)
	if av.Selected() || bv.Selected() || !cv.Selected() {
		t.Error("press on a connection should select only it")
	}

	c.PointerPress(geom.V(500, 500), false)
	if len(c.SelectedNodes())+len(c.SelectedConnections()) != 0 {
		t.Error("press on empty canvas should clear the selection")
	}
}

func TestDoubleClickOnNodeEntersEditMode(t *testing.T) {
	c, m := setupPlain(t, testOptions())
	n := mustNode(t, m, geom.Pt(0, 0), "abc", 0, 0)
	nv, _ := c.Node(n.ID())
	m.reset()

	c.DoubleClick(nv.Body().Center())
	if c.EditingNode() != nv {
		t.Error("double click on a node should edit it")
	}
	if len(m.calls) != 0 {
		t.Errorf("double click on a node issued %v", m.calls)
	}
}

func TestHoverAndTooltips(t *testing.T) {
	o := testOptions()
	o.NodeHover = true
	c, m := setup(t, o)
	a := mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	av, _ := c.Node(a.ID())

	c.PointerMove(geom.V(40, 14))
	if !av.Hovered() {
		t.Error("node hover not flagged")
	}
	c.PointerMove(geom.V(400, 400))
	if av.Hovered() {
		t.Error("hover not cleared")
	}

	c.SetPortTooltips(true)
	c.PointerMove(outletOfA)
	if c.TooltipPort() != av.Outlet(0) {
		t.Fatal("tooltip not shown for hovered outlet")
	}
	tip := av.Outlet(0).Tooltip()
	if tip.Text != "number" || tip.Above {
		t.Errorf("outlet tooltip = %+v, want number below", tip)
	}
	if tip.Rect.Min.Y != 26+20 {
		t.Errorf("tooltip top = %v, want 46", tip.Rect.Min.Y)
	}
	if in := av.Inlet(0).Tooltip(); !in.Above || in.Text != "any" {
		t.Errorf("inlet tooltip = %+v, want any above", in)
	}

	c.PointerMove(geom.V(400, 400))
	if c.TooltipPort() != nil {
		t.Error("tooltip not hidden")
	}
}

// connectedPair builds number (n1) at the origin wired to add (n2) at
// (0,100) through the canvas, leaving the connection n3 on top of both.
func connectedPair(t *testing.T, o Options) (*Canvas, *recordingModel) {
	t.Helper()
	c, m := setup(t, o)
	mustNode(t, m, geom.Pt(0, 0), "number", 0, 0)
	mustNode(t, m, geom.Pt(0, 100), "add", 0, 0)
	c.PointerPress(outletOfA, false)
	c.PointerRelease(inletOfB)
	if len(c.Connections()) != 1 {
		t.Fatalf("connection visuals = %d, want 1", len(c.Connections()))
	}
	m.reset()
	return c, m
}

func TestConnectionDoesNotCoverItsPorts(t *testing.T) {
	c, _ := connectedPair(t, testOptions())
	for _, p := range []geom.Vec{outletOfA, inletOfB} {
		if _, ok := c.ItemAt(p).(*Port); !ok {
			t.Errorf("ItemAt(%v) = %T, want *Port", p, c.ItemAt(p))
		}
	}
	cv := c.Connections()[0]
	if !cv.Contains(geom.V(5, 64)) {
		t.Error("connection should contain points along its span")
	}
	if cv.Contains(cv.To().Add(geom.V(0, 1))) || cv.Contains(cv.From().Sub(geom.V(0, 1))) {
		t.Error("connection band should stop at its endpoints")
	}
}

func TestConnectDragIntoConnectedInlet(t *testing.T) {
	c, m := connectedPair(t, testOptions())
	mustNode(t, m, geom.Pt(100, 0), "number", 0, 0)
	m.reset()

	c.PointerPress(geom.V(105, 26), false)
	c.PointerMove(inletOfB)
	if d, _ := c.DragLine(); d.Style != LineValid {
		t.Errorf("style over connected inlet = %v, want valid", d.Style)
	}
	c.PointerRelease(inletOfB)

	if diff := cmp.Diff([]string{"connect n4:0 n2:0"}, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if len(c.Connections()) != 2 {
		t.Errorf("connection visuals = %d, want 2", len(c.Connections()))
	}
	checkMirror(t, c, m)
}

func TestConnectDragFromConnectedOutlet(t *testing.T) {
	c, m := connectedPair(t, testOptions())

	c.PointerPress(outletOfA, false)
	if c.ConnectState() != GestureDragging {
		t.Fatalf("ConnectState() = %v, want dragging", c.ConnectState())
	}
	if len(c.SelectedConnections()) != 0 {
		t.Error("press on a connected outlet selected its connection")
	}
	inlet1 := geom.V(28, 102)
	c.PointerRelease(inlet1)

	if diff := cmp.Diff([]string{"connect n1:0 n2:1"}, m.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	checkMirror(t, c, m)
}

func TestTooltipsOverConnectedPorts(t *testing.T) {
	o := testOptions()
	o.PortTooltips = true
	c, _ := connectedPair(t, o)
	av, _ := c.Node("n1")
	bv, _ := c.Node("n2")

	c.PointerMove(inletOfB)
	if c.TooltipPort() != bv.Inlet(0) {
		t.Errorf("TooltipPort() = %v, want inlet 0 of n2", c.TooltipPort())
	}
	c.PointerMove(outletOfA)
	if c.TooltipPort() != av.Outlet(0) {
		t.Errorf("TooltipPort() = %v, want outlet 0 of n1", c.TooltipPort())
	}
}
