package canvas

import (
	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// GestureState is the state of the connection-drag state machine. Committed
// and Aborted are terminal: the gesture reports them and returns to Idle.
type GestureState int

const (
	GestureIdle GestureState = iota
	GestureDragging
	GestureCommitted
	GestureAborted
)

func (s GestureState) String() string {
	switch s {
	case GestureDragging:
		return "dragging"
	case GestureCommitted:
		return "committed"
	case GestureAborted:
		return "aborted"
	}
	return "idle"
}

// LineStyle is the validity feedback of the connection being dragged.
type LineStyle int

const (
	// LineNeutral: the pointer is not over an inlet.
	LineNeutral LineStyle = iota
	// LineValid: both compatibility predicates hold for the inlet under the
	// pointer.
	LineValid
	// LineInvalid: the inlet under the pointer would be refused.
	LineInvalid
)

func (s LineStyle) String() string {
	switch s {
	case LineValid:
		return "valid"
	case LineInvalid:
		return "invalid"
	}
	return "neutral"
}

// =============================================================================
// Connection drag
// =============================================================================

type connectGesture struct {
	state  GestureState
	source *Port
	target *Port
	from   geom.Vec
	to     geom.Vec
	style  LineStyle
}

// DragLine is the transient line of an in-progress connection drag.
type DragLine struct {
	From  geom.Vec  `json:"from"`
	To    geom.Vec  `json:"to"`
	Style LineStyle `json:"style"`
}

func (d DragLine) bounds(halfWidth float64) geom.Rect {
	return geom.RectFromPoints(d.From, d.To).Inset(halfWidth)
}

// ConnectState reports the connection-drag state.
func (c *Canvas) ConnectState() GestureState { return c.connect.state }

// DragLine returns the in-progress connection line, or false when idle.
func (c *Canvas) DragLine() (DragLine, bool) {
	if c.connect.state != GestureDragging {
		return DragLine{}, false
	}
	return DragLine{From: c.connect.from, To: c.connect.to, Style: c.connect.style}, true
}

func (c *Canvas) invalidateDrag() {
	if d, ok := c.DragLine(); ok {
		c.invalidate(d.bounds(c.opts.Metrics.PortHeight))
	}
}

// beginConnect starts dragging from an outlet.
func (c *Canvas) beginConnect(out *Port, p geom.Vec) {
	if c.connect.state == GestureDragging {
		return
	}
	c.raiseNode(out.node)
	c.connect = connectGesture{
		state:  GestureDragging,
		source: out,
		from:   out.ConnectionPoint(),
		to:     p,
		style:  LineNeutral,
	}
	c.invalidateDrag()
	c.logger.Debug("connect drag started", "node", out.node.id, "outlet", out.index)
}

// dragConnect moves the free end and recomputes the validity style from the
// topmost inlet under the pointer. The model is not touched.
func (c *Canvas) dragConnect(p geom.Vec) {
	if c.connect.state != GestureDragging {
		return
	}
	c.invalidateDrag()
	c.connect.to = p
	c.connect.target = c.inletAt(p)
	c.connect.style = c.connectStyle(c.connect.source, c.connect.target)
	c.invalidateDrag()
}

func (c *Canvas) connectStyle(src, dst *Port) LineStyle {
	if dst == nil {
		return LineNeutral
	}
	if dataflow.CanConnect(src.modelOutlet(), dst.modelInlet()) {
		return LineValid
	}
	return LineInvalid
}

// inletAt returns the topmost inlet under p. Connections and node bodies
// stacked above it are skipped.
func (c *Canvas) inletAt(p geom.Vec) *Port { return c.portAt(p, KindInlet) }

// endConnect finishes the drag. Over an inlet a connect command is issued
// whatever the feedback style was; the model has the final say.
func (c *Canvas) endConnect(p geom.Vec) {
	if c.connect.state != GestureDragging {
		return
	}
	c.invalidateDrag()
	g := c.connect
	target := c.inletAt(p)
	if target == nil {
		c.finishConnect(GestureAborted)
		return
	}
	c.finishConnect(GestureCommitted)

	src, ok := c.liveNode(g.source.node)
	if !ok {
		return
	}
	dst, ok := c.liveNode(target.node)
	if !ok {
		return
	}
	oi, ii := g.source.index, target.index
	c.command("connect", []any{"from", src.ID(), "outlet", oi, "to", dst.ID(), "inlet", ii}, func(m dataflow.Model) error {
		_, err := m.Connect(src, oi, dst, ii)
		return err
	})
}

func (c *Canvas) abortConnect() {
	if c.connect.state != GestureDragging {
		return
	}
	c.invalidateDrag()
	c.finishConnect(GestureAborted)
}

func (c *Canvas) finishConnect(outcome GestureState) {
	c.connect.state = outcome
	c.logger.Debug("connect drag finished", "outcome", outcome)
	c.hooks.OnGestureFinished("connect", outcome.String())
	c.connect = connectGesture{}
}

// =============================================================================
// Move
// =============================================================================

type moveGesture struct {
	active bool
	anchor geom.Vec
	nodes  []*NodeVisual
	start  []geom.Vec
	moved  bool
}

func (g *moveGesture) forget(nv *NodeVisual) {
	for i, x := range g.nodes {
		if x == nv {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			g.start = append(g.start[:i], g.start[i+1:]...)
			return
		}
	}
}

func (c *Canvas) beginMove(p geom.Vec) {
	sel := c.SelectedNodes()
	if len(sel) == 0 {
		return
	}
	g := moveGesture{active: true, anchor: p, nodes: sel}
	for _, nv := range sel {
		g.start = append(g.start, nv.pos)
	}
	c.move = g
}

// dragMove issues SetNodePos for every moved node. Visuals follow only when
// the model notifies.
func (c *Canvas) dragMove(p geom.Vec) {
	if !c.move.active {
		return
	}
	delta := p.Sub(c.move.anchor)
	for i, nv := range c.move.nodes {
		target := c.SnapPoint(c.move.start[i].Add(delta))
		if target.Vec() == nv.pos {
			continue
		}
		c.move.moved = true
		c.setNodePos(nv, target)
	}
}

func (c *Canvas) endMove() {
	if !c.move.active {
		return
	}
	outcome := "none"
	if c.move.moved {
		outcome = "moved"
	}
	c.hooks.OnGestureFinished("move", outcome)
	c.move = moveGesture{}
}

// MarshalText encodes the style by name.
func (s LineStyle) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
