package canvas

import (
	"slices"

	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// Scene is a z-ordered display list of the canvas, bottom to top. Painters
// draw Shapes in order, then the drag line, the candidate list and the
// tooltip, which always float above everything else.
type Scene struct {
	Bounds     geom.Rect      `json:"bounds"`
	Metrics    Metrics        `json:"metrics"`
	GridSize   int            `json:"grid_size"`
	ShowGrid   bool           `json:"show_grid"`
	Shapes     []Shape        `json:"shapes"`
	Drag       *DragLine      `json:"drag,omitempty"`
	Candidates *CandidateList `json:"candidates,omitempty"`
	Tooltip    *Tooltip       `json:"tooltip,omitempty"`
}

// Shape is a *NodeShape or a *ConnectionShape.
type Shape interface {
	ShapeKind() ItemKind
}

// NodeShape is the paintable state of a node visual.
type NodeShape struct {
	Kind         string      `json:"kind"`
	ID           string      `json:"id"`
	Frame        geom.Rect   `json:"frame"`
	InputHeader  geom.Rect   `json:"input_header"`
	Body         geom.Rect   `json:"body"`
	OutputHeader geom.Rect   `json:"output_header"`
	Label        string      `json:"label"`
	LabelWidth   float64     `json:"label_width"`
	Valid        bool        `json:"valid"`
	Selected     bool        `json:"selected,omitempty"`
	Hovered      bool        `json:"hovered,omitempty"`
	Editing      bool        `json:"editing,omitempty"`
	Caret        int         `json:"caret,omitempty"`
	SelStart     int         `json:"sel_start,omitempty"`
	SelEnd       int         `json:"sel_end,omitempty"`
	Inlets       []PortShape `json:"inlets,omitempty"`
	Outlets      []PortShape `json:"outlets,omitempty"`
}

// PortShape is one painted port. Ports of invalid nodes are not painted.
type PortShape struct {
	Index int       `json:"index"`
	Rect  geom.Rect `json:"rect"`
	Type  string    `json:"type,omitempty"`
}

// ConnectionShape is the paintable state of a connection visual.
type ConnectionShape struct {
	Kind     string   `json:"kind"`
	ID       string   `json:"id"`
	From     geom.Vec `json:"from"`
	To       geom.Vec `json:"to"`
	Selected bool     `json:"selected,omitempty"`
	Hovered  bool     `json:"hovered,omitempty"`
}

// CandidateList is the completion overlay geometry.
type CandidateList struct {
	Rect       geom.Rect `json:"rect"`
	Candidates []string  `json:"candidates"`
	Highlight  int       `json:"highlight"`
}

func (*NodeShape) ShapeKind() ItemKind       { return KindNode }
func (*ConnectionShape) ShapeKind() ItemKind { return KindConnection }

// SceneRect is the union of all node and connection bounds.
func (c *Canvas) SceneRect() geom.Rect {
	var r geom.Rect
	for _, nv := range c.nodeOrder {
		r = r.Union(nv.Bounds())
	}
	for _, cv := range c.connOrder {
		r = r.Union(cv.Bounds())
	}
	return r
}

// Scene builds the display list.
func (c *Canvas) Scene() Scene {
	s := Scene{
		Metrics:  c.opts.Metrics,
		GridSize: c.opts.GridSize,
		ShowGrid: c.opts.ShowGrid,
	}

	items := make([]Item, 0, len(c.nodeOrder)+len(c.connOrder))
	for _, nv := range c.nodeOrder {
		items = append(items, nv)
	}
	for _, cv := range c.connOrder {
		items = append(items, cv)
	}
	slices.SortStableFunc(items, func(a, b Item) int { return compareStack(a.stack(), b.stack()) })

	for _, it := range items {
		switch x := it.(type) {
		case *NodeVisual:
			s.Shapes = append(s.Shapes, c.nodeShape(x))
		case *ConnectionVisual:
			s.Shapes = append(s.Shapes, &ConnectionShape{
				Kind:     KindConnection.String(),
				ID:       x.id,
				From:     x.from,
				To:       x.to,
				Selected: x.selected,
				Hovered:  x.hovered,
			})
		}
	}
	s.Bounds = c.SceneRect()

	if d, ok := c.DragLine(); ok {
		s.Drag = &d
		s.Bounds = s.Bounds.Union(d.bounds(c.opts.Metrics.PortHeight))
	}
	if c.overlay != nil {
		r := c.overlayRect()
		s.Candidates = &CandidateList{
			Rect:       r,
			Candidates: slices.Clone(c.overlay.Candidates),
			Highlight:  c.overlay.Highlight,
		}
		s.Bounds = s.Bounds.Union(r)
	}
	if c.tooltipPort != nil {
		t := c.tooltipPort.Tooltip()
		s.Tooltip = &t
		s.Bounds = s.Bounds.Union(t.bounds())
	}
	return s
}

func (c *Canvas) nodeShape(nv *NodeVisual) *NodeShape {
	ns := &NodeShape{
		Kind:         KindNode.String(),
		ID:           nv.id,
		Frame:        nv.Frame(),
		InputHeader:  nv.InputHeader(),
		Body:         nv.Body(),
		OutputHeader: nv.OutputHeader(),
		Label:        nv.DisplayText(),
		LabelWidth:   nv.labelSize.X,
		Valid:        nv.valid,
		Selected:     nv.selected,
		Hovered:      nv.hovered,
		Editing:      nv.edit != nil,
	}
	if nv.edit != nil {
		ns.Caret = nv.edit.caret
		ns.SelStart, ns.SelEnd = nv.edit.selection()
	}
	if nv.valid {
		for _, p := range nv.inlets {
			ns.Inlets = append(ns.Inlets, PortShape{Index: p.index, Rect: p.Rect(), Type: p.Type()})
		}
		for _, p := range nv.outlets {
			ns.Outlets = append(ns.Outlets, PortShape{Index: p.index, Rect: p.Rect(), Type: p.Type()})
		}
	}
	return ns
}
