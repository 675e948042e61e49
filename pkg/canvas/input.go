package canvas

import (
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// =============================================================================
// Pointer
// =============================================================================

// PointerPress dispatches a primary button press at p.
//
//   - On a valid node's outlet it starts a connection drag.
//   - On a node or inlet it selects the node (shift toggles) and starts a
//     move of the selection.
//   - On a connection it selects the connection (shift toggles).
//   - On empty canvas it clears the selection unless shift is held.
//
// A press while a connection drag is in progress is ignored.
func (c *Canvas) PointerPress(p geom.Vec, shift bool) {
	if c.connect.state == GestureDragging {
		return
	}
	switch it := c.ItemAt(p).(type) {
	case *Port:
		if it.kind == KindOutlet {
			c.beginConnect(it, p)
			return
		}
		c.pressNode(it.node, p, shift)
	case *NodeVisual:
		c.pressNode(it, p, shift)
	case *ConnectionVisual:
		if shift {
			c.setConnSelected(it, !it.selected)
		} else {
			c.selectOnly(nil, []*ConnectionVisual{it})
		}
	default:
		if !shift {
			c.ClearSelection()
		}
	}
}

func (c *Canvas) pressNode(nv *NodeVisual, p geom.Vec, shift bool) {
	if c.editing == nv {
		return
	}
	switch {
	case shift:
		c.setNodeSelected(nv, !nv.selected)
		if !nv.selected {
			return
		}
	case !nv.selected:
		c.selectOnly([]*NodeVisual{nv}, nil)
	default:
		c.raiseNode(nv)
	}
	c.beginMove(p)
}

// PointerMove dispatches pointer motion: it drives an active connection drag
// or move, and otherwise updates hover feedback and tooltips.
func (c *Canvas) PointerMove(p geom.Vec) {
	switch {
	case c.connect.state == GestureDragging:
		c.dragConnect(p)
	case c.move.active:
		c.dragMove(p)
	default:
		c.hover(p)
	}
}

// PointerRelease ends an active gesture. A release with no gesture in
// progress is ignored.
func (c *Canvas) PointerRelease(p geom.Vec) {
	switch {
	case c.connect.state == GestureDragging:
		c.endConnect(p)
	case c.move.active:
		c.endMove()
	}
}

// DoubleClick activates p: on empty canvas it asks the model for a new empty
// node there, on a node it enters edit mode.
func (c *Canvas) DoubleClick(p geom.Vec) {
	if c.connect.state == GestureDragging {
		return
	}
	c.endMove()
	var nv *NodeVisual
	switch it := c.ItemAt(p).(type) {
	case *NodeVisual:
		nv = it
	case *Port:
		nv = it.node
	case *ConnectionVisual:
		return
	default:
		c.createNode(c.SnapPoint(p))
		return
	}
	if nv.Editing() {
		return
	}
	c.selectOnly([]*NodeVisual{nv}, nil)
	c.enterEditMode(nv)
}

// CreateNodeAt asks the model for a new empty node at p, the keyboard
// equivalent of double clicking empty canvas. An active edit is committed
// first.
func (c *Canvas) CreateNodeAt(p geom.Vec) {
	if c.connect.state == GestureDragging {
		return
	}
	if c.editing != nil {
		c.exitEditMode(true)
	}
	c.createNode(c.SnapPoint(p))
}

// =============================================================================
// Hover and tooltips
// =============================================================================

func (c *Canvas) hover(p geom.Vec) {
	if c.opts.PortTooltips {
		if pt := c.portAt(p, KindInlet, KindOutlet); pt != nil {
			c.showTooltip(pt)
		} else {
			c.hideTooltip()
		}
		return
	}
	it := c.ItemAt(p)

	var nv *NodeVisual
	var cv *ConnectionVisual
	switch x := it.(type) {
	case *NodeVisual:
		nv = x
	case *Port:
		nv = x.node
	case *ConnectionVisual:
		cv = x
	}
	if c.opts.NodeHover {
		c.setHoverNode(nv)
	}
	if c.opts.ConnectionHover {
		c.setHoverConn(cv)
	}
}

func (c *Canvas) setHoverNode(nv *NodeVisual) {
	if c.hoverNode == nv {
		return
	}
	if c.hoverNode != nil {
		c.hoverNode.hovered = false
		c.invalidate(c.hoverNode.Bounds())
	}
	c.hoverNode = nv
	if nv != nil {
		nv.hovered = true
		c.invalidate(nv.Bounds())
	}
}

func (c *Canvas) setHoverConn(cv *ConnectionVisual) {
	if c.hoverConn == cv {
		return
	}
	if c.hoverConn != nil {
		c.hoverConn.hovered = false
		c.invalidate(c.hoverConn.Bounds())
	}
	c.hoverConn = cv
	if cv != nil {
		cv.hovered = true
		c.invalidate(cv.Bounds())
	}
}

func (c *Canvas) showTooltip(p *Port) {
	if c.tooltipPort == p {
		return
	}
	c.hideTooltip()
	c.tooltipPort = p
	c.invalidate(p.Tooltip().bounds())
}

func (c *Canvas) hideTooltip() {
	if c.tooltipPort == nil {
		return
	}
	c.invalidate(c.tooltipPort.Tooltip().bounds())
	c.tooltipPort = nil
}

// TooltipPort returns the port whose tooltip is shown, or nil.
func (c *Canvas) TooltipPort() *Port { return c.tooltipPort }

// =============================================================================
// Keyboard
// =============================================================================

// Key is a non-text key the canvas reacts to.
type Key int

const (
	KeyEscape Key = iota
	KeyEnter
	KeyUp
	KeyDown
	KeyTab
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
)

// KeyPress dispatches a key and reports whether the canvas consumed it.
// While a node is being edited keys drive the edit state machine; otherwise
// Delete and Backspace delete the selection and Escape aborts a drag.
func (c *Canvas) KeyPress(k Key) bool {
	if c.editing == nil {
		switch k {
		case KeyDelete, KeyBackspace:
			c.DeleteSelection()
			return true
		case KeyEscape:
			if c.connect.state == GestureDragging {
				c.abortConnect()
				return true
			}
		}
		return false
	}

	e := c.editing.edit
	switch k {
	case KeyEscape:
		if c.overlay != nil {
			c.hideOverlay()
		} else {
			c.exitEditMode(false)
		}
	case KeyEnter:
		if !c.AcceptCompletion() {
			c.exitEditMode(true)
		}
	case KeyDown:
		c.CycleCompletion(1)
	case KeyUp:
		c.CycleCompletion(-1)
	case KeyTab:
		// swallowed
	case KeyBackspace:
		if e.backspace() {
			c.textEdited()
		}
	case KeyDelete:
		if e.del() {
			c.textEdited()
		}
	case KeyLeft:
		if e.hasSelection() {
			lo, _ := e.selection()
			e.moveTo(lo)
		} else {
			e.moveTo(e.caret - 1)
		}
		c.invalidate(c.editing.Body())
	case KeyRight:
		if e.hasSelection() {
			_, hi := e.selection()
			e.moveTo(hi)
		} else {
			e.moveTo(e.caret + 1)
		}
		c.invalidate(c.editing.Body())
	case KeyHome:
		e.moveTo(0)
		c.invalidate(c.editing.Body())
	case KeyEnd:
		e.moveTo(len(e.text))
		c.invalidate(c.editing.Body())
	default:
		return false
	}
	return true
}
