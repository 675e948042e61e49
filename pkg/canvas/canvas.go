package canvas

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/observability"
)

// Canvas keeps a visual mirror of a [dataflow.Model] and turns pointer and
// key events into model commands.
//
// A Canvas is not safe for concurrent use. Every method, including the
// [dataflow.Observer] callbacks, must run on the goroutine that owns it.
type Canvas struct {
	opts   Options
	logger *log.Logger
	hooks  observability.EditorHooks

	model       dataflow.Model
	unsubscribe func()
	replaying   bool

	nodes     map[string]*NodeVisual
	nodeOrder []*NodeVisual
	conns     map[string]*ConnectionVisual
	connOrder []*ConnectionVisual
	seq       uint64

	editing *NodeVisual
	overlay *EditOverlay

	connect connectGesture
	move    moveGesture

	hoverNode   *NodeVisual
	hoverConn   *ConnectionVisual
	tooltipPort *Port
}

// New creates a detached canvas.
func New(opts Options) *Canvas {
	opts = opts.withDefaults()
	c := &Canvas{
		opts:   opts,
		logger: opts.Logger,
		hooks:  observability.Editor(),
		nodes:  make(map[string]*NodeVisual),
		conns:  make(map[string]*ConnectionVisual),
	}
	if opts.PortTooltips {
		c.opts.NodeHover, c.opts.ConnectionHover = false, false
	}
	return c
}

// Options returns the current options, display toggles included.
func (c *Canvas) Options() Options { return c.opts }

// Model returns the attached model, or nil.
func (c *Canvas) Model() dataflow.Model { return c.model }

func (c *Canvas) invalidate(r geom.Rect) {
	if r == (geom.Rect{}) {
		return
	}
	c.opts.Surface.Invalidate(r)
}

// =============================================================================
// Model registration
// =============================================================================

// Attach subscribes to m and replays its current nodes and connections as
// added notifications. A previously attached model is detached first.
func (c *Canvas) Attach(m dataflow.Model) {
	if c.model != nil {
		c.Detach()
	}
	c.model = m
	c.unsubscribe = m.Subscribe(c)

	c.replaying = true
	defer func() { c.replaying = false }()
	for _, n := range m.Nodes() {
		c.NodeAdded(n)
	}
	for _, conn := range m.Connections() {
		c.ConnectionAdded(conn)
	}
	c.logger.Debug("canvas attached", "nodes", len(c.nodeOrder), "connections", len(c.connOrder))
}

// Detach unsubscribes from the model and destroys every visual:
// connections first, then nodes, each in creation order.
func (c *Canvas) Detach() {
	if c.model == nil {
		return
	}
	c.exitEditMode(false)
	c.abortConnect()
	c.move = moveGesture{}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	for _, cv := range slices.Clone(c.connOrder) {
		c.destroyConnection(cv)
	}
	for _, nv := range slices.Clone(c.nodeOrder) {
		c.destroyNode(nv)
	}
	c.model, c.unsubscribe = nil, nil
	c.logger.Debug("canvas detached")
}

// =============================================================================
// Index
// =============================================================================

// Nodes returns every node visual in creation order.
func (c *Canvas) Nodes() []*NodeVisual { return slices.Clone(c.nodeOrder) }

// Connections returns every connection visual in creation order.
func (c *Canvas) Connections() []*ConnectionVisual { return slices.Clone(c.connOrder) }

// Node returns the visual of the node with the given ID.
func (c *Canvas) Node(id string) (*NodeVisual, bool) {
	nv, ok := c.nodes[id]
	return nv, ok
}

// Connection returns the visual of the connection with the given ID.
func (c *Canvas) Connection(id string) (*ConnectionVisual, bool) {
	cv, ok := c.conns[id]
	return cv, ok
}

// LookupNode is Node with a NOT_FOUND error for unknown IDs. The miss is
// logged as a sync inconsistency.
func (c *Canvas) LookupNode(id string) (*NodeVisual, error) {
	if nv, ok := c.nodes[id]; ok {
		return nv, nil
	}
	err := errors.New(errors.ErrCodeNotFound, "no visual for node %s", id)
	c.inconsistent("node", id, err)
	return nil, err
}

// LookupConnection is Connection with a NOT_FOUND error for unknown IDs.
func (c *Canvas) LookupConnection(id string) (*ConnectionVisual, error) {
	if cv, ok := c.conns[id]; ok {
		return cv, nil
	}
	err := errors.New(errors.ErrCodeNotFound, "no visual for connection %s", id)
	c.inconsistent("connection", id, err)
	return nil, err
}

func (c *Canvas) inconsistent(entity, id string, err error) {
	c.logger.Warn("sync inconsistency", "entity", entity, "id", id, "err", err)
	c.hooks.OnSyncInconsistency(entity, id)
}

func (c *Canvas) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// =============================================================================
// Notifications
// =============================================================================

// NodeAdded creates the node's visual. A node with an empty label enters
// edit mode at once, unless it is being replayed by Attach.
func (c *Canvas) NodeAdded(n dataflow.Node) {
	c.hooks.OnNotification("node_added")
	if nv, ok := c.nodes[n.ID()]; ok {
		c.logger.Debug("node already mirrored", "node", n.ID())
		nv.node = n
		c.syncNode(nv, n)
		return
	}
	nv := &NodeVisual{
		canvas: c,
		node:   n,
		id:     n.ID(),
		pos:    n.Pos().Vec(),
		text:   n.Text(),
		valid:  n.Valid(),
		seq:    c.nextSeq(),
	}
	for i := range n.InletCount() {
		nv.inlets = append(nv.inlets, &Port{node: nv, kind: KindInlet, index: i})
	}
	for i := range n.OutletCount() {
		nv.outlets = append(nv.outlets, &Port{node: nv, kind: KindOutlet, index: i})
	}
	c.nodes[nv.id] = nv
	c.nodeOrder = append(c.nodeOrder, nv)
	nv.relayout()
	c.logger.Debug("node visual created", "node", nv.id, "text", nv.text)

	if nv.text == "" && !c.replaying {
		c.selectOnly([]*NodeVisual{nv}, nil)
		c.enterEditMode(nv)
	}
}

// syncNode pulls every mirrored attribute from n.
func (c *Canvas) syncNode(nv *NodeVisual, n dataflow.Node) {
	nv.setPos(n.Pos().Vec())
	nv.setValid(n.Valid())
	nv.setPortCount(KindInlet, n.InletCount())
	nv.setPortCount(KindOutlet, n.OutletCount())
	c.applyText(nv, n.Text())
}

// NodeRemoved destroys the node's visual. A node in edit mode reverts its
// edit first.
func (c *Canvas) NodeRemoved(n dataflow.Node) {
	c.hooks.OnNotification("node_removed")
	nv, ok := c.nodes[n.ID()]
	if !ok {
		c.inconsistent("node", n.ID(), errors.New(errors.ErrCodeSyncInconsistency, "removed node %s was never mirrored", n.ID()))
		return
	}
	c.destroyNode(nv)
}

// NodeValidChanged restyles the node. An invalid node also loses the port
// tooltip it was showing.
func (c *Canvas) NodeValidChanged(n dataflow.Node, valid bool) {
	c.hooks.OnNotification("node_valid_changed")
	if nv, err := c.LookupNode(n.ID()); err == nil {
		nv.setValid(valid)
		if !valid && c.tooltipPort != nil && c.tooltipPort.node == nv {
			c.hideTooltip()
		}
	}
}

// NodePosChanged moves the node visual; attached connections follow.
func (c *Canvas) NodePosChanged(n dataflow.Node, pos geom.Point) {
	c.hooks.OnNotification("node_pos_changed")
	if nv, err := c.LookupNode(n.ID()); err == nil {
		nv.setPos(pos.Vec())
	}
}

// NodeTextChanged mirrors the new label. During an edit the buffer is
// replaced and completion re-queried.
func (c *Canvas) NodeTextChanged(n dataflow.Node, text string) {
	c.hooks.OnNotification("node_text_changed")
	if nv, err := c.LookupNode(n.ID()); err == nil {
		c.applyText(nv, text)
	}
}

// applyText mirrors a model label. A label equal to the one displayed leaves
// the edit buffer and its candidates untouched.
func (c *Canvas) applyText(nv *NodeVisual, text string) {
	if nv.edit == nil {
		if nv.text == text {
			return
		}
		nv.text = text
		nv.relayout()
		return
	}
	nv.text = text
	if nv.edit.String() == text {
		return
	}
	nv.edit.setText(text)
	c.textEdited()
}

// NodeInletCountChanged resizes the node's inlet ports.
func (c *Canvas) NodeInletCountChanged(n dataflow.Node, count int) {
	c.hooks.OnNotification("node_inlet_count_changed")
	if nv, err := c.LookupNode(n.ID()); err == nil {
		nv.setPortCount(KindInlet, count)
	}
}

// NodeOutletCountChanged resizes the node's outlet ports.
func (c *Canvas) NodeOutletCountChanged(n dataflow.Node, count int) {
	c.hooks.OnNotification("node_outlet_count_changed")
	if nv, err := c.LookupNode(n.ID()); err == nil {
		nv.setPortCount(KindOutlet, count)
	}
}

// ConnectionAdded creates and raises the connection's visual. Both endpoint
// ports must already be mirrored.
func (c *Canvas) ConnectionAdded(conn dataflow.Connection) {
	c.hooks.OnNotification("connection_added")
	if _, ok := c.conns[conn.ID()]; ok {
		return
	}
	src, dst := conn.Source(), conn.Dest()
	sn, err := c.LookupNode(src.Node().ID())
	if err != nil {
		return
	}
	dn, err := c.LookupNode(dst.Node().ID())
	if err != nil {
		return
	}
	sp, dp := sn.Outlet(src.Index()), dn.Inlet(dst.Index())
	if sp == nil || dp == nil {
		c.inconsistent("connection", conn.ID(), errors.New(errors.ErrCodeSyncInconsistency,
			"connection %s references unmirrored port %s:%d -> %s:%d", conn.ID(), sn.id, src.Index(), dn.id, dst.Index()))
		return
	}
	cv := &ConnectionVisual{
		canvas: c,
		conn:   conn,
		id:     conn.ID(),
		src:    sp,
		dst:    dp,
		from:   sp.ConnectionPoint(),
		to:     dp.ConnectionPoint(),
		seq:    c.nextSeq(),
	}
	sp.attach(cv)
	dp.attach(cv)
	c.conns[cv.id] = cv
	c.connOrder = append(c.connOrder, cv)
	c.invalidate(cv.Bounds())
	c.raiseConnection(cv)
	c.logger.Debug("connection visual created", "conn", cv.id)
}

// ConnectionRemoved destroys the connection's visual. A connection that
// was never mirrored is reported as a sync inconsistency.
func (c *Canvas) ConnectionRemoved(conn dataflow.Connection) {
	c.hooks.OnNotification("connection_removed")
	cv, ok := c.conns[conn.ID()]
	if !ok {
		c.inconsistent("connection", conn.ID(), errors.New(errors.ErrCodeSyncInconsistency, "removed connection %s was never mirrored", conn.ID()))
		return
	}
	c.destroyConnection(cv)
}

var _ dataflow.Observer = (*Canvas)(nil)

// =============================================================================
// Destruction
// =============================================================================

func (c *Canvas) destroyConnection(cv *ConnectionVisual) {
	if _, ok := c.conns[cv.id]; !ok {
		return
	}
	cv.src.detach(cv)
	cv.dst.detach(cv)
	delete(c.conns, cv.id)
	c.connOrder = slices.DeleteFunc(c.connOrder, func(x *ConnectionVisual) bool { return x == cv })
	if c.hoverConn == cv {
		c.hoverConn = nil
	}
	cv.selected = false
	c.invalidate(cv.Bounds())
	c.logger.Debug("connection visual destroyed", "conn", cv.id)
}

func (c *Canvas) destroyNode(nv *NodeVisual) {
	if c.editing == nv {
		c.exitEditMode(false)
	}
	for _, cv := range nv.connections() {
		c.destroyConnection(cv)
	}
	for _, p := range nv.inlets {
		c.forgetPort(p)
	}
	for _, p := range nv.outlets {
		c.forgetPort(p)
	}
	c.move.forget(nv)
	if c.hoverNode == nv {
		c.hoverNode = nil
	}
	nv.selected = false
	delete(c.nodes, nv.id)
	c.nodeOrder = slices.DeleteFunc(c.nodeOrder, func(x *NodeVisual) bool { return x == nv })
	c.invalidate(nv.Bounds())
	c.logger.Debug("node visual destroyed", "node", nv.id)
}

// forgetPort drops transient references to a port that is going away.
func (c *Canvas) forgetPort(p *Port) {
	if c.tooltipPort == p {
		c.hideTooltip()
	}
	if c.connect.source == p || c.connect.target == p {
		c.abortConnect()
	}
}

// =============================================================================
// Commands
// =============================================================================

// command issues one model command. Results are only logged: the view
// learns about the effect through notifications.
func (c *Canvas) command(name string, kv []any, fn func(dataflow.Model) error) {
	if c.model == nil {
		c.logger.Debug("command dropped, no model", append([]any{"cmd", name}, kv...)...)
		return
	}
	err := fn(c.model)
	c.hooks.OnCommand(name, err)
	if err != nil {
		c.logger.Debug("command refused", append([]any{"cmd", name, "err", err}, kv...)...)
		return
	}
	c.logger.Debug("command issued", append([]any{"cmd", name}, kv...)...)
}

// liveNode re-validates a visual against the model before a command.
func (c *Canvas) liveNode(nv *NodeVisual) (dataflow.Node, bool) {
	if c.model == nil {
		return nil, false
	}
	n, ok := c.model.Node(nv.id)
	if !ok {
		c.inconsistent("node", nv.id, errors.New(errors.ErrCodeNotFound, "model has no node %s", nv.id))
	}
	return n, ok
}

func (c *Canvas) setNodeText(nv *NodeVisual, text string) {
	n, ok := c.liveNode(nv)
	if !ok {
		return
	}
	c.command("set_node_text", []any{"node", nv.id, "text", text}, func(m dataflow.Model) error {
		return m.SetNodeText(n, text)
	})
}

func (c *Canvas) setNodePos(nv *NodeVisual, p geom.Point) {
	n, ok := c.liveNode(nv)
	if !ok {
		return
	}
	c.command("set_node_pos", []any{"node", nv.id, "pos", p}, func(m dataflow.Model) error {
		return m.SetNodePos(n, p)
	})
}

func (c *Canvas) createNode(p geom.Point) {
	c.command("create_node", []any{"pos", p}, func(m dataflow.Model) error {
		_, err := m.CreateNode(p, "", 0, 0)
		return err
	})
}

// SnapPoint rounds a canvas position to model coordinates, snapping to the
// grid when enabled.
func (c *Canvas) SnapPoint(v geom.Vec) geom.Point {
	if c.opts.SnapToGrid {
		v = v.Snap(float64(c.opts.GridSize))
	}
	return v.Round()
}

// =============================================================================
// Selection
// =============================================================================

// SelectedNodes returns the selected node visuals in creation order.
func (c *Canvas) SelectedNodes() []*NodeVisual {
	var out []*NodeVisual
	for _, nv := range c.nodeOrder {
		if nv.selected {
			out = append(out, nv)
		}
	}
	return out
}

// SelectedConnections returns the selected connection visuals in creation
// order.
func (c *Canvas) SelectedConnections() []*ConnectionVisual {
	var out []*ConnectionVisual
	for _, cv := range c.connOrder {
		if cv.selected {
			out = append(out, cv)
		}
	}
	return out
}

// SetSelection replaces the selection with the given node and connection
// IDs, as reported by a shell's marquee. Unknown IDs are logged and skipped.
func (c *Canvas) SetSelection(nodeIDs, connIDs []string) {
	var nodes []*NodeVisual
	var conns []*ConnectionVisual
	for _, id := range nodeIDs {
		if nv, err := c.LookupNode(id); err == nil {
			nodes = append(nodes, nv)
		}
	}
	for _, id := range connIDs {
		if cv, err := c.LookupConnection(id); err == nil {
			conns = append(conns, cv)
		}
	}
	c.selectOnly(nodes, conns)
}

// ClearSelection deselects everything, committing a pending edit.
func (c *Canvas) ClearSelection() { c.selectOnly(nil, nil) }

// ToggleNode flips the selection of one node.
func (c *Canvas) ToggleNode(id string) {
	if nv, err := c.LookupNode(id); err == nil {
		c.setNodeSelected(nv, !nv.selected)
	}
}

// ToggleConnection flips the selection of one connection.
func (c *Canvas) ToggleConnection(id string) {
	if cv, err := c.LookupConnection(id); err == nil {
		c.setConnSelected(cv, !cv.selected)
	}
}

// selectOnly makes nodes and conns the exact selection. Deselection happens
// before selection so that an editing node commits before anything else is
// raised.
func (c *Canvas) selectOnly(nodes []*NodeVisual, conns []*ConnectionVisual) {
	for _, nv := range c.SelectedNodes() {
		if !slices.Contains(nodes, nv) {
			c.setNodeSelected(nv, false)
		}
	}
	for _, cv := range c.SelectedConnections() {
		if !slices.Contains(conns, cv) {
			c.setConnSelected(cv, false)
		}
	}
	for _, nv := range nodes {
		c.setNodeSelected(nv, true)
	}
	for _, cv := range conns {
		c.setConnSelected(cv, true)
	}
}

// setNodeSelected selects or deselects a node. Selecting raises the node and
// captures its label; deselecting an editing node commits the edit.
func (c *Canvas) setNodeSelected(nv *NodeVisual, on bool) {
	if nv.selected == on {
		return
	}
	nv.selected = on
	if on {
		nv.oldText = nv.text
		c.raiseNode(nv)
	} else if c.editing == nv {
		c.exitEditMode(true)
	}
	c.invalidate(nv.Bounds())
}

func (c *Canvas) setConnSelected(cv *ConnectionVisual, on bool) {
	if cv.selected == on {
		return
	}
	cv.selected = on
	c.invalidate(cv.Bounds())
}

// =============================================================================
// Delete gesture
// =============================================================================

// DeleteSelection disconnects every selected connection, then removes every
// selected node. It does nothing while a node is being edited. Each command
// re-validates its target against the model first.
func (c *Canvas) DeleteSelection() {
	if c.IsAnyNodeEditing() || c.model == nil {
		return
	}
	conns, nodes := c.SelectedConnections(), c.SelectedNodes()
	for _, cv := range conns {
		conn, ok := c.model.Connection(cv.id)
		if !ok {
			c.inconsistent("connection", cv.id, errors.New(errors.ErrCodeNotFound, "model has no connection %s", cv.id))
			continue
		}
		src, dst := conn.Source(), conn.Dest()
		c.command("disconnect", []any{"conn", cv.id}, func(m dataflow.Model) error {
			return m.Disconnect(src.Node(), src.Index(), dst.Node(), dst.Index())
		})
	}
	for _, nv := range nodes {
		n, ok := c.liveNode(nv)
		if !ok {
			continue
		}
		c.command("remove_node", []any{"node", nv.id}, func(m dataflow.Model) error {
			return m.RemoveNode(n)
		})
	}
	c.hooks.OnGestureFinished("delete", "committed")
}

// =============================================================================
// Display modes
// =============================================================================

// SetNodeHover toggles node hover feedback. Enabling it disables port
// tooltips.
func (c *Canvas) SetNodeHover(on bool) {
	c.opts.NodeHover = on
	if on {
		c.setPortTooltips(false)
	} else {
		c.setHoverNode(nil)
	}
}

// SetConnectionHover toggles connection hover feedback. Enabling it disables
// port tooltips.
func (c *Canvas) SetConnectionHover(on bool) {
	c.opts.ConnectionHover = on
	if on {
		c.setPortTooltips(false)
	} else {
		c.setHoverConn(nil)
	}
}

// SetPortTooltips toggles port type tooltips. Enabling them disables both
// hover modes.
func (c *Canvas) SetPortTooltips(on bool) {
	c.setPortTooltips(on)
	if on {
		c.opts.NodeHover, c.opts.ConnectionHover = false, false
		c.setHoverNode(nil)
		c.setHoverConn(nil)
	}
}

func (c *Canvas) setPortTooltips(on bool) {
	c.opts.PortTooltips = on
	if !on {
		c.hideTooltip()
	}
}

// SetGridSize sets the grid spacing, clamped to at least 1.
func (c *Canvas) SetGridSize(n int) {
	c.opts.GridSize = max(n, 1)
	if c.opts.ShowGrid {
		c.invalidate(c.SceneRect())
	}
}

// GridSize returns the grid spacing.
func (c *Canvas) GridSize() int { return c.opts.GridSize }

// SetSnapToGrid toggles snapping of model positions written by the canvas.
func (c *Canvas) SetSnapToGrid(on bool) { c.opts.SnapToGrid = on }

// SetShowGrid toggles grid painting.
func (c *Canvas) SetShowGrid(on bool) {
	if c.opts.ShowGrid == on {
		return
	}
	c.opts.ShowGrid = on
	c.invalidate(c.SceneRect())
}
