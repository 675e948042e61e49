// Package memory implements [dataflow.Model] in memory.
//
// Graph is the reference model behind the flowcanvas tools and tests. It
// assigns uuid identities, keeps nodes and connections in creation order,
// and delivers notifications synchronously to every subscribed observer in
// the order changes are applied.
//
// When a [library.Library] is attached with [WithLibrary], a node's label
// decides its ports: a label whose first word names a class gets that class's
// typed inlets and outlets and is valid; any other label leaves the node
// invalid with no ports. Shrinking a port list disconnects the affected
// connections first, so observers see every ConnectionRemoved before the
// matching count change.
//
// Graph is not safe for concurrent use.
package memory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/library"
)

// ErrDuplicateID is returned by [Graph.Add] when the requested node ID is
// already in use.
var ErrDuplicateID = errors.New("duplicate node ID")

// =============================================================================
// Graph
// =============================================================================

// Graph is an in-memory dataflow model.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []*Node
	conns     map[string]*Connection
	connOrder []*Connection

	subs   []*subscription
	lib    *library.Library
	logger *log.Logger
	newID  func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithLibrary enables class resolution from node labels.
func WithLibrary(l *library.Library) Option { return func(g *Graph) { g.lib = l } }

// WithLogger sets the logger used for command tracing.
func WithLogger(l *log.Logger) Option { return func(g *Graph) { g.logger = l } }

// WithIDGenerator replaces uuid identities, typically with [SequentialIDs] in
// tests.
func WithIDGenerator(f func() string) Option { return func(g *Graph) { g.newID = f } }

// SequentialIDs returns a generator yielding prefix1, prefix2, ...
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		conns:  make(map[string]*Connection),
		logger: log.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Library returns the attached class library, or nil.
func (g *Graph) Library() *library.Library { return g.lib }

type subscription struct {
	obs    dataflow.Observer
	active bool
}

// Subscribe registers o for notifications.
func (g *Graph) Subscribe(o dataflow.Observer) func() {
	s := &subscription{obs: o, active: true}
	g.subs = append(g.subs, s)
	return func() {
		s.active = false
		g.subs = slices.DeleteFunc(g.subs, func(x *subscription) bool { return x == s })
	}
}

// emit delivers a notification to a snapshot of the current subscribers.
// Observers removed during delivery are skipped.
func (g *Graph) emit(f func(dataflow.Observer)) {
	for _, s := range slices.Clone(g.subs) {
		if s.active {
			f(s.obs)
		}
	}
}

// =============================================================================
// Queries
// =============================================================================

// Node returns the live node with the given ID.
func (g *Graph) Node(id string) (dataflow.Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Connection returns the live connection with the given ID.
func (g *Graph) Connection(id string) (dataflow.Connection, bool) {
	c, ok := g.conns[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []dataflow.Node {
	out := make([]dataflow.Node, len(g.nodeOrder))
	for i, n := range g.nodeOrder {
		out[i] = n
	}
	return out
}

// Connections returns all connections in creation order.
func (g *Graph) Connections() []dataflow.Connection {
	out := make([]dataflow.Connection, len(g.connOrder))
	for i, c := range g.connOrder {
		out[i] = c
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodeOrder) }

// ConnectionCount returns the number of live connections.
func (g *Graph) ConnectionCount() int { return len(g.connOrder) }

// resolve re-validates a caller-supplied node against the live set.
func (g *Graph) resolve(n dataflow.Node) (*Node, error) {
	if n == nil {
		return nil, dataflow.ErrUnknownNode
	}
	live, ok := g.nodes[n.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dataflow.ErrUnknownNode, n.ID())
	}
	return live, nil
}

// =============================================================================
// Node commands
// =============================================================================

// NodeSpec describes a node with explicit port types, as stored in patch
// files.
type NodeSpec struct {
	ID      string
	Pos     geom.Point
	Text    string
	Inlets  []string
	Outlets []string
	Invalid bool
}

// Add inserts a node exactly as described, without class resolution. An
// empty ID is replaced by a generated one.
func (g *Graph) Add(spec NodeSpec) (*Node, error) {
	id := spec.ID
	if id == "" {
		id = g.newID()
	}
	if _, ok := g.nodes[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	n := &Node{g: g, id: id, pos: spec.Pos, text: spec.Text, valid: !spec.Invalid}
	n.setInletTypes(spec.Inlets)
	n.setOutletTypes(spec.Outlets)
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, n)
	g.logger.Debug("node added", "node", id, "text", spec.Text, "inlets", len(spec.Inlets), "outlets", len(spec.Outlets))
	g.emit(func(o dataflow.Observer) { o.NodeAdded(n) })
	return n, nil
}

// CreateNode creates a node. With a library attached, a resolvable label
// overrides the requested port counts with the class ports; an unresolvable
// one produces an invalid node with no ports. Without a library the node
// gets untyped ports and is valid.
func (g *Graph) CreateNode(pos geom.Point, text string, inlets, outlets int) (dataflow.Node, error) {
	spec := NodeSpec{Pos: pos, Text: text}
	if g.lib != nil {
		if c, ok := g.lib.Resolve(text); ok {
			spec.Inlets, spec.Outlets = c.Inlets, c.Outlets
		} else {
			spec.Invalid = true
		}
	} else {
		spec.Inlets = anyTypes(inlets)
		spec.Outlets = anyTypes(outlets)
	}
	return g.Add(spec)
}

func anyTypes(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = dataflow.AnyType
	}
	return out
}

// RemoveNode disconnects every connection touching n, in creation order,
// then removes n.
func (g *Graph) RemoveNode(dn dataflow.Node) error {
	n, err := g.resolve(dn)
	if err != nil {
		return err
	}
	for _, c := range slices.Clone(g.connOrder) {
		if c.src.node == n || c.dst.node == n {
			g.removeConnection(c)
		}
	}
	delete(g.nodes, n.id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(x *Node) bool { return x == n })
	n.removed = true
	g.logger.Debug("node removed", "node", n.id)
	g.emit(func(o dataflow.Observer) { o.NodeRemoved(n) })
	return nil
}

// SetNodeText updates the label and, with a library attached, re-resolves
// the node class.
func (g *Graph) SetNodeText(dn dataflow.Node, text string) error {
	n, err := g.resolve(dn)
	if err != nil {
		return err
	}
	if n.text == text {
		return nil
	}
	n.text = text
	g.emit(func(o dataflow.Observer) { o.NodeTextChanged(n, text) })
	if g.lib != nil {
		c, ok := g.lib.Resolve(text)
		g.setPorts(n, c.Inlets, c.Outlets)
		g.setValid(n, ok)
	}
	return nil
}

// SetNodePos moves a node. Setting the current position is a no-op.
func (g *Graph) SetNodePos(dn dataflow.Node, pos geom.Point) error {
	n, err := g.resolve(dn)
	if err != nil {
		return err
	}
	if n.pos == pos {
		return nil
	}
	n.pos = pos
	g.emit(func(o dataflow.Observer) { o.NodePosChanged(n, pos) })
	return nil
}

// SetNodeValid changes the validity flag.
func (g *Graph) SetNodeValid(dn dataflow.Node, valid bool) error {
	n, err := g.resolve(dn)
	if err != nil {
		return err
	}
	g.setValid(n, valid)
	return nil
}

// SetPorts replaces the port types of a node, disconnecting connections on
// ports that disappear.
func (g *Graph) SetPorts(dn dataflow.Node, inlets, outlets []string) error {
	n, err := g.resolve(dn)
	if err != nil {
		return err
	}
	g.setPorts(n, inlets, outlets)
	return nil
}

func (g *Graph) setValid(n *Node, valid bool) {
	if n.valid == valid {
		return
	}
	n.valid = valid
	g.emit(func(o dataflow.Observer) { o.NodeValidChanged(n, valid) })
}

func (g *Graph) setPorts(n *Node, inlets, outlets []string) {
	if len(inlets) < len(n.inlets) {
		for _, c := range slices.Clone(g.connOrder) {
			if c.dst.node == n && c.dst.index >= len(inlets) {
				g.removeConnection(c)
			}
		}
	}
	changed := len(inlets) != len(n.inlets)
	n.setInletTypes(inlets)
	if changed {
		count := len(inlets)
		g.emit(func(o dataflow.Observer) { o.NodeInletCountChanged(n, count) })
	}

	if len(outlets) < len(n.outlets) {
		for _, c := range slices.Clone(g.connOrder) {
			if c.src.node == n && c.src.index >= len(outlets) {
				g.removeConnection(c)
			}
		}
	}
	changed = len(outlets) != len(n.outlets)
	n.setOutletTypes(outlets)
	if changed {
		count := len(outlets)
		g.emit(func(o dataflow.Observer) { o.NodeOutletCountChanged(n, count) })
	}
}

// =============================================================================
// Connection commands
// =============================================================================

// Connect links outlet srcOutlet of src to inlet dstInlet of dst. The
// connection is refused unless both compatibility predicates hold.
func (g *Graph) Connect(dsrc dataflow.Node, srcOutlet int, ddst dataflow.Node, dstInlet int) (dataflow.Connection, error) {
	src, err := g.resolve(dsrc)
	if err != nil {
		return nil, err
	}
	dst, err := g.resolve(ddst)
	if err != nil {
		return nil, err
	}
	if srcOutlet < 0 || srcOutlet >= len(src.outlets) || dstInlet < 0 || dstInlet >= len(dst.inlets) {
		return nil, fmt.Errorf("%w: %s:%d -> %s:%d", dataflow.ErrPortOutOfRange, src.id, srcOutlet, dst.id, dstInlet)
	}
	out, in := src.outlets[srcOutlet], dst.inlets[dstInlet]
	if !dataflow.CanConnect(out, in) {
		g.logger.Debug("connect refused", "from", src.id, "outlet", srcOutlet, "to", dst.id, "inlet", dstInlet,
			"from_type", out.typ, "to_type", in.typ)
		return nil, fmt.Errorf("%w: %s -> %s", dataflow.ErrIncompatiblePorts, out.typ, in.typ)
	}
	if g.find(out, in) != nil {
		return nil, dataflow.ErrDuplicateConnection
	}
	c := &Connection{id: g.newID(), src: out, dst: in}
	g.conns[c.id] = c
	g.connOrder = append(g.connOrder, c)
	g.logger.Debug("connected", "conn", c.id, "from", src.id, "outlet", srcOutlet, "to", dst.id, "inlet", dstInlet)
	g.emit(func(o dataflow.Observer) { o.ConnectionAdded(c) })
	return c, nil
}

// Disconnect removes the connection between the given ports.
func (g *Graph) Disconnect(dsrc dataflow.Node, srcOutlet int, ddst dataflow.Node, dstInlet int) error {
	src, err := g.resolve(dsrc)
	if err != nil {
		return err
	}
	dst, err := g.resolve(ddst)
	if err != nil {
		return err
	}
	if srcOutlet < 0 || srcOutlet >= len(src.outlets) || dstInlet < 0 || dstInlet >= len(dst.inlets) {
		return dataflow.ErrPortOutOfRange
	}
	c := g.find(src.outlets[srcOutlet], dst.inlets[dstInlet])
	if c == nil {
		return dataflow.ErrUnknownConnection
	}
	g.removeConnection(c)
	return nil
}

func (g *Graph) find(out *Outlet, in *Inlet) *Connection {
	for _, c := range g.connOrder {
		if c.src == out && c.dst == in {
			return c
		}
	}
	return nil
}

func (g *Graph) removeConnection(c *Connection) {
	delete(g.conns, c.id)
	g.connOrder = slices.DeleteFunc(g.connOrder, func(x *Connection) bool { return x == c })
	g.logger.Debug("disconnected", "conn", c.id)
	g.emit(func(o dataflow.Observer) { o.ConnectionRemoved(c) })
}

var _ dataflow.Model = (*Graph)(nil)
