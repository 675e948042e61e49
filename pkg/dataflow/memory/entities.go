package memory

import (
	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// Node is a node of a [Graph].
type Node struct {
	g       *Graph
	id      string
	pos     geom.Point
	text    string
	valid   bool
	removed bool
	inlets  []*Inlet
	outlets []*Outlet
}

func (n *Node) ID() string       { return n.id }
func (n *Node) Pos() geom.Point  { return n.pos }
func (n *Node) Text() string     { return n.text }
func (n *Node) Valid() bool      { return n.valid }
func (n *Node) InletCount() int  { return len(n.inlets) }
func (n *Node) OutletCount() int { return len(n.outlets) }

// Removed reports whether the node has been removed from its graph.
func (n *Node) Removed() bool { return n.removed }

// Inlet returns the i-th inlet or nil.
func (n *Node) Inlet(i int) dataflow.Inlet {
	if i < 0 || i >= len(n.inlets) {
		return nil
	}
	return n.inlets[i]
}

// Outlet returns the i-th outlet or nil.
func (n *Node) Outlet(i int) dataflow.Outlet {
	if i < 0 || i >= len(n.outlets) {
		return nil
	}
	return n.outlets[i]
}

// InletTypes returns the inlet type tags in index order.
func (n *Node) InletTypes() []string {
	out := make([]string, len(n.inlets))
	for i, in := range n.inlets {
		out[i] = in.typ
	}
	return out
}

// OutletTypes returns the outlet type tags in index order.
func (n *Node) OutletTypes() []string {
	out := make([]string, len(n.outlets))
	for i, o := range n.outlets {
		out[i] = o.typ
	}
	return out
}

// setInletTypes resizes the inlet list, retyping surviving ports in place
// so that existing connections keep their port identity.
func (n *Node) setInletTypes(types []string) {
	if len(types) < len(n.inlets) {
		n.inlets = n.inlets[:len(types)]
	}
	for i, t := range types {
		if i < len(n.inlets) {
			n.inlets[i].typ = t
			continue
		}
		n.inlets = append(n.inlets, &Inlet{node: n, index: i, typ: t})
	}
}

func (n *Node) setOutletTypes(types []string) {
	if len(types) < len(n.outlets) {
		n.outlets = n.outlets[:len(types)]
	}
	for i, t := range types {
		if i < len(n.outlets) {
			n.outlets[i].typ = t
			continue
		}
		n.outlets = append(n.outlets, &Outlet{node: n, index: i, typ: t})
	}
}

// Inlet is an input port of a [Node].
type Inlet struct {
	node  *Node
	index int
	typ   string
}

func (i *Inlet) Node() dataflow.Node { return i.node }
func (i *Inlet) Index() int          { return i.index }
func (i *Inlet) Type() string        { return i.typ }

// CanAcceptConnectionFrom applies [dataflow.Compatible] and rejects
// connections from the node's own outlets.
func (i *Inlet) CanAcceptConnectionFrom(o dataflow.Outlet) bool {
	if o == nil || dataflow.SameNode(o.Node(), i.node) {
		return false
	}
	return dataflow.Compatible(o.Type(), i.typ)
}

// Outlet is an output port of a [Node].
type Outlet struct {
	node  *Node
	index int
	typ   string
}

func (o *Outlet) Node() dataflow.Node { return o.node }
func (o *Outlet) Index() int          { return o.index }
func (o *Outlet) Type() string        { return o.typ }

// CanMakeConnectionTo applies [dataflow.Compatible].
func (o *Outlet) CanMakeConnectionTo(i dataflow.Inlet) bool {
	if i == nil {
		return false
	}
	return dataflow.Compatible(o.typ, i.Type())
}

// Connection is an edge of a [Graph].
type Connection struct {
	id  string
	src *Outlet
	dst *Inlet
}

func (c *Connection) ID() string              { return c.id }
func (c *Connection) Source() dataflow.Outlet { return c.src }
func (c *Connection) Dest() dataflow.Inlet    { return c.dst }
