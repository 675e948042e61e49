package canvas

import (
	"cmp"
	"slices"

	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// ItemKind is the closed set of hit-testable canvas items.
type ItemKind int

const (
	KindNode ItemKind = iota
	KindInlet
	KindOutlet
	KindConnection
)

func (k ItemKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindInlet:
		return "inlet"
	case KindOutlet:
		return "outlet"
	case KindConnection:
		return "connection"
	}
	return "unknown"
}

// Item is a visual that can be hit-tested and stacked. It is implemented by
// *NodeVisual, *Port and *ConnectionVisual only.
type Item interface {
	Kind() ItemKind
	// Bounds is the canvas rectangle the item may paint into.
	Bounds() geom.Rect
	// Contains reports whether p hits the item's shape.
	Contains(p geom.Vec) bool
	// Z is the stacking order set by Raise.
	Z() float64

	stack() stackKey
}

// stackKey orders items bottom to top: by z, then creation sequence, then
// sub-layer (ports above their node).
type stackKey struct {
	z   float64
	seq uint64
	sub int
}

func compareStack(a, b stackKey) int {
	if c := cmp.Compare(a.z, b.z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.seq, b.seq); c != 0 {
		return c
	}
	return cmp.Compare(a.sub, b.sub)
}

// =============================================================================
// Hit-testing
// =============================================================================

// ItemsAt returns every item whose shape contains p, topmost first. Ports of
// invalid nodes are not hit-testable.
func (c *Canvas) ItemsAt(p geom.Vec) []Item {
	var hits []Item
	for _, nv := range c.nodeOrder {
		if nv.Contains(p) {
			hits = append(hits, nv)
		}
		if !nv.valid {
			continue
		}
		for _, pt := range nv.inlets {
			if pt.Contains(p) {
				hits = append(hits, pt)
			}
		}
		for _, pt := range nv.outlets {
			if pt.Contains(p) {
				hits = append(hits, pt)
			}
		}
	}
	for _, cv := range c.connOrder {
		if cv.Contains(p) {
			hits = append(hits, cv)
		}
	}
	slices.SortStableFunc(hits, func(a, b Item) int { return compareStack(b.stack(), a.stack()) })
	return hits
}

// ItemAt returns the topmost item at p, or nil.
func (c *Canvas) ItemAt(p geom.Vec) Item {
	if hits := c.ItemsAt(p); len(hits) > 0 {
		return hits[0]
	}
	return nil
}

// portAt returns the topmost port of one of the given kinds under p, or nil.
func (c *Canvas) portAt(p geom.Vec, kinds ...ItemKind) *Port {
	for _, it := range c.ItemsAt(p) {
		if pt, ok := it.(*Port); ok && slices.Contains(kinds, pt.kind) {
			return pt
		}
	}
	return nil
}

// =============================================================================
// Stacking
// =============================================================================

// Raise puts item above everything it overlaps: its z becomes one more than
// the highest z among overlapping nodes and connections, or 1 when nothing
// overlaps. Raising a node also raises every connection attached to its
// ports, so edges stay visible above the node they leave or enter.
func (c *Canvas) Raise(item Item) {
	switch it := item.(type) {
	case *NodeVisual:
		c.raiseNode(it)
	case *Port:
		c.raiseNode(it.node)
	case *ConnectionVisual:
		c.raiseConnection(it)
	}
}

func (c *Canvas) raiseNode(nv *NodeVisual) {
	nv.z = c.topZ(nv, nv.Bounds()) + 1
	c.invalidate(nv.Bounds())
	for _, cv := range nv.connections() {
		c.raiseConnection(cv)
	}
}

func (c *Canvas) raiseConnection(cv *ConnectionVisual) {
	cv.z = c.topZ(cv, cv.Bounds()) + 1
	c.invalidate(cv.Bounds())
}

// topZ is the highest z among items other than self overlapping r, at least 0.
func (c *Canvas) topZ(self Item, r geom.Rect) float64 {
	top := 0.0
	for _, nv := range c.nodeOrder {
		if Item(nv) != self && nv.Bounds().Overlaps(r) {
			top = max(top, nv.z)
		}
	}
	for _, cv := range c.connOrder {
		if Item(cv) != self && cv.Bounds().Overlaps(r) {
			top = max(top, cv.z)
		}
	}
	return top
}
