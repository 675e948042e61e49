package canvas

import (
	"slices"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// NodeVisual mirrors one live model node: header bands, body, label and
// ordered port lists whose lengths always equal the model's port counts.
//
// Local layout, origin at the node position:
//
//	+---------------------+  input header band, inlets centered in it
//	| label               |  body, sized by the label
//	+---------------------+  output header band, outlets centered in it
//
// The body width is the widest of the label and the two port rows.
type NodeVisual struct {
	canvas *Canvas
	node   dataflow.Node
	id     string
	pos    geom.Vec
	text   string
	valid  bool

	inlets  []*Port
	outlets []*Port

	labelSize geom.Vec
	size      geom.Vec // frame size: body width by body height plus bands

	z        float64
	seq      uint64
	selected bool
	hovered  bool

	edit    *labelEditor // non-nil while in edit mode
	oldText string       // text captured on selection and on entering edit mode
}

func (nv *NodeVisual) Kind() ItemKind  { return KindNode }
func (nv *NodeVisual) Z() float64      { return nv.z }
func (nv *NodeVisual) ID() string      { return nv.id }
func (nv *NodeVisual) Pos() geom.Vec   { return nv.pos }
func (nv *NodeVisual) Valid() bool     { return nv.valid }
func (nv *NodeVisual) Selected() bool  { return nv.selected }
func (nv *NodeVisual) Hovered() bool   { return nv.hovered }
func (nv *NodeVisual) Editing() bool   { return nv.edit != nil }
func (nv *NodeVisual) stack() stackKey { return stackKey{z: nv.z, seq: nv.seq} }

// Text is the model label as last notified.
func (nv *NodeVisual) Text() string { return nv.text }

// DisplayText is the label as painted: the edit buffer while editing.
func (nv *NodeVisual) DisplayText() string {
	if nv.edit != nil {
		return nv.edit.String()
	}
	return nv.text
}

// Inlets returns the inlet visuals in index order.
func (nv *NodeVisual) Inlets() []*Port { return slices.Clone(nv.inlets) }

// Outlets returns the outlet visuals in index order.
func (nv *NodeVisual) Outlets() []*Port { return slices.Clone(nv.outlets) }

// Inlet returns the i-th inlet visual or nil.
func (nv *NodeVisual) Inlet(i int) *Port {
	if i < 0 || i >= len(nv.inlets) {
		return nil
	}
	return nv.inlets[i]
}

// Outlet returns the i-th outlet visual or nil.
func (nv *NodeVisual) Outlet(i int) *Port {
	if i < 0 || i >= len(nv.outlets) {
		return nil
	}
	return nv.outlets[i]
}

// modelNode returns the freshest model handle for the node.
func (nv *NodeVisual) modelNode() dataflow.Node {
	if m := nv.canvas.model; m != nil {
		if n, ok := m.Node(nv.id); ok {
			return n
		}
	}
	return nv.node
}

// =============================================================================
// Geometry
// =============================================================================

func (nv *NodeVisual) headerHeight() float64 { return nv.canvas.opts.Metrics.PortHeight }

// Frame is the node rectangle: both header bands and the body.
func (nv *NodeVisual) Frame() geom.Rect {
	return geom.R(nv.pos.X, nv.pos.Y, nv.size.X, nv.size.Y)
}

// InputHeader is the band holding the inlets.
func (nv *NodeVisual) InputHeader() geom.Rect {
	return geom.R(nv.pos.X, nv.pos.Y, nv.size.X, nv.headerHeight())
}

// Body is the label area.
func (nv *NodeVisual) Body() geom.Rect {
	return geom.R(nv.pos.X, nv.pos.Y+nv.headerHeight(), nv.size.X, nv.labelSize.Y)
}

// OutputHeader is the band holding the outlets.
func (nv *NodeVisual) OutputHeader() geom.Rect {
	hh := nv.headerHeight()
	return geom.R(nv.pos.X, nv.pos.Y+hh+nv.labelSize.Y, nv.size.X, hh)
}

// Bounds is the frame grown by the header height on every side.
func (nv *NodeVisual) Bounds() geom.Rect { return nv.Frame().Inset(nv.headerHeight()) }

// Contains reports whether p lies within the frame.
func (nv *NodeVisual) Contains(p geom.Vec) bool { return nv.Frame().Contains(p) }

// relayout recomputes the label size, the frame and every port offset, then
// moves attached connections and invalidates the old and new bounds.
func (nv *NodeVisual) relayout() {
	c := nv.canvas
	m := c.opts.Metrics
	old := nv.Bounds()

	w, h := c.opts.Measurer.Measure(nv.DisplayText())
	if w <= 0 {
		w, _ = c.opts.Measurer.Measure(" ")
	}
	if h <= 0 {
		_, h = c.opts.Measurer.Measure(" ")
	}
	nv.labelSize = geom.V(w, h)

	width := max(w, m.rowWidth(len(nv.inlets)), m.rowWidth(len(nv.outlets)))
	nv.size = geom.V(width, h+2*m.PortHeight)

	for i, p := range nv.inlets {
		p.local = geom.V(m.portCenterX(i), m.PortHeight/2)
	}
	for i, p := range nv.outlets {
		p.local = geom.V(m.portCenterX(i), m.PortHeight+h+m.PortHeight/2)
	}
	nv.updateConnections()
	c.invalidate(old.Union(nv.Bounds()))
}

func (nv *NodeVisual) updateConnections() {
	for _, cv := range nv.connections() {
		cv.updateGeometry()
	}
}

// connections returns the distinct connection visuals attached to any port,
// in creation order.
func (nv *NodeVisual) connections() []*ConnectionVisual {
	var out []*ConnectionVisual
	for _, ports := range [][]*Port{nv.inlets, nv.outlets} {
		for _, p := range ports {
			for _, cv := range p.conns {
				if !slices.Contains(out, cv) {
					out = append(out, cv)
				}
			}
		}
	}
	slices.SortFunc(out, func(a, b *ConnectionVisual) int { return compareSeq(a.seq, b.seq) })
	return out
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// =============================================================================
// Mutators
// =============================================================================

func (nv *NodeVisual) setPos(p geom.Vec) {
	if nv.pos == p {
		return
	}
	old := nv.Bounds()
	nv.pos = p
	nv.updateConnections()
	nv.canvas.invalidate(old.Union(nv.Bounds()))
}

func (nv *NodeVisual) setValid(v bool) {
	if nv.valid == v {
		return
	}
	nv.valid = v
	nv.canvas.invalidate(nv.Bounds())
}

// setPortCount resizes one port list. Shrinking destroys the connection
// visuals attached to the dropped ports first, in creation order; growth
// appends ports at the next indices. Existing ports keep their index.
func (nv *NodeVisual) setPortCount(kind ItemKind, count int) {
	count = max(count, 0)
	ports := &nv.inlets
	if kind == KindOutlet {
		ports = &nv.outlets
	}
	if count == len(*ports) {
		return
	}
	if count < len(*ports) {
		dropped := (*ports)[count:]
		var doomed []*ConnectionVisual
		for _, p := range dropped {
			doomed = append(doomed, p.conns...)
		}
		slices.SortFunc(doomed, func(a, b *ConnectionVisual) int { return compareSeq(a.seq, b.seq) })
		for _, cv := range doomed {
			nv.canvas.destroyConnection(cv)
		}
		for _, p := range dropped {
			nv.canvas.forgetPort(p)
		}
		*ports = slices.Clip((*ports)[:count])
	} else {
		for i := len(*ports); i < count; i++ {
			*ports = append(*ports, &Port{node: nv, kind: kind, index: i})
		}
	}
	nv.relayout()
}
