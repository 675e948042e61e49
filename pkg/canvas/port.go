package canvas

import (
	"slices"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// Port is the visual of one inlet or outlet slot of a node.
// A port owns the connection visuals terminating at it.
type Port struct {
	node  *NodeVisual
	kind  ItemKind // KindInlet or KindOutlet
	index int
	local geom.Vec // center, relative to the node position
	conns []*ConnectionVisual
}

func (p *Port) Kind() ItemKind    { return p.kind }
func (p *Port) Z() float64        { return p.node.z }
func (p *Port) Index() int        { return p.index }
func (p *Port) Node() *NodeVisual { return p.node }

func (p *Port) stack() stackKey { return stackKey{z: p.node.z, seq: p.node.seq, sub: 1 + p.index} }

// Connections returns the attached connection visuals in attachment order.
func (p *Port) Connections() []*ConnectionVisual { return slices.Clone(p.conns) }

// Center is the port center in canvas coordinates.
func (p *Port) Center() geom.Vec { return p.node.pos.Add(p.local) }

// Rect is the painted port rectangle.
func (p *Port) Rect() geom.Rect {
	m := p.node.canvas.opts.Metrics
	c := p.Center()
	return geom.R(c.X-m.PortWidth/2, c.Y-m.PortHeight/2, m.PortWidth, m.PortHeight)
}

// Bounds is the hit rectangle: Rect grown by the hit tolerance.
func (p *Port) Bounds() geom.Rect {
	return p.Rect().Inset(p.node.canvas.opts.Metrics.HitTolerance)
}

func (p *Port) Contains(v geom.Vec) bool { return p.Bounds().Contains(v) }

// ConnectionPoint is where edges attach: the outer edge of the port, below
// an outlet and above an inlet.
func (p *Port) ConnectionPoint() geom.Vec {
	half := p.node.canvas.opts.Metrics.PortHeight / 2
	if p.kind == KindOutlet {
		return p.Center().Add(geom.V(0, half))
	}
	return p.Center().Sub(geom.V(0, half))
}

// Type returns the model port's type tag, or "" when the model no longer
// has the slot.
func (p *Port) Type() string {
	if p.kind == KindInlet {
		if in := p.modelInlet(); in != nil {
			return in.Type()
		}
		return ""
	}
	if out := p.modelOutlet(); out != nil {
		return out.Type()
	}
	return ""
}

func (p *Port) modelInlet() dataflow.Inlet {
	if n := p.node.modelNode(); n != nil {
		return n.Inlet(p.index)
	}
	return nil
}

func (p *Port) modelOutlet() dataflow.Outlet {
	if n := p.node.modelNode(); n != nil {
		return n.Outlet(p.index)
	}
	return nil
}

func (p *Port) attach(cv *ConnectionVisual) { p.conns = append(p.conns, cv) }

func (p *Port) detach(cv *ConnectionVisual) {
	p.conns = slices.DeleteFunc(p.conns, func(x *ConnectionVisual) bool { return x == cv })
}

// Tooltip is the bubble naming a port's type. Inlet tooltips sit above the
// port, outlet tooltips below.
type Tooltip struct {
	Text  string    `json:"text"`
	Rect  geom.Rect `json:"rect"`
	Tip   geom.Vec  `json:"tip"` // point of the bubble's pointer, at the port
	Above bool      `json:"above"`
}

// Tooltip computes the port's tooltip geometry.
func (p *Port) Tooltip() Tooltip {
	c := p.node.canvas
	m := c.opts.Metrics
	text := p.Type()
	if text == "" {
		text = dataflow.AnyType
	}
	w, h := c.opts.Measurer.Measure(text)
	w += 2 * m.TooltipMargin
	h += 2 * m.TooltipMargin

	center := p.Center()
	t := Tooltip{Text: text, Above: p.kind == KindInlet}
	if t.Above {
		t.Tip = center.Sub(geom.V(0, m.PortHeight/2))
		t.Rect = geom.R(center.X-w/2, center.Y-m.TooltipOffset-h, w, h)
	} else {
		t.Tip = center.Add(geom.V(0, m.PortHeight/2))
		t.Rect = geom.R(center.X-w/2, center.Y+m.TooltipOffset, w, h)
	}
	return t
}

func (t Tooltip) bounds() geom.Rect {
	return t.Rect.Union(geom.RectFromPoints(t.Tip, t.Tip))
}
