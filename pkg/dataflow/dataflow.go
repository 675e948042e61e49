package dataflow

import (
	"errors"

	"github.com/matzehuels/flowcanvas/pkg/geom"
)

var (
	// ErrUnknownNode is returned when a command references a node that is not
	// (or no longer) part of the model.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownConnection is returned by Disconnect when no connection
	// matches the given endpoints.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrPortOutOfRange is returned when an inlet or outlet index does not
	// exist on the referenced node.
	ErrPortOutOfRange = errors.New("port index out of range")

	// ErrIncompatiblePorts is returned by Connect when the outlet and inlet
	// compatibility predicates do not both hold.
	ErrIncompatiblePorts = errors.New("incompatible ports")

	// ErrDuplicateConnection is returned by Connect when the same
	// outlet-to-inlet connection already exists.
	ErrDuplicateConnection = errors.New("duplicate connection")
)

// AnyType is the wildcard port type: it is compatible with every other type.
const AnyType = "any"

// Node is a graph entity with a label and ordered inlet/outlet lists.
//
// Identity is ID(); two Node values with the same ID denote the same model
// node even if they are different Go values.
type Node interface {
	ID() string
	Pos() geom.Point
	Text() string
	Valid() bool
	InletCount() int
	OutletCount() int
	// Inlet returns the i-th inlet, or nil when i is out of range.
	Inlet(i int) Inlet
	// Outlet returns the i-th outlet, or nil when i is out of range.
	Outlet(i int) Outlet
}

// Inlet is a typed input port addressed by (node, index).
type Inlet interface {
	Node() Node
	Index() int
	Type() string
	CanAcceptConnectionFrom(o Outlet) bool
}

// Outlet is a typed output port addressed by (node, index).
type Outlet interface {
	Node() Node
	Index() int
	Type() string
	CanMakeConnectionTo(i Inlet) bool
}

// Connection is a directed edge from one outlet to one inlet.
type Connection interface {
	ID() string
	Source() Outlet
	Dest() Inlet
}

// Observer receives model notifications. Notifications are delivered
// synchronously, one per discrete change, in the order the model applies
// them. A node's NodeAdded always precedes notifications about its ports or
// connections.
type Observer interface {
	NodeAdded(n Node)
	NodeRemoved(n Node)
	NodeValidChanged(n Node, valid bool)
	NodePosChanged(n Node, pos geom.Point)
	NodeTextChanged(n Node, text string)
	NodeInletCountChanged(n Node, count int)
	NodeOutletCountChanged(n Node, count int)
	ConnectionAdded(c Connection)
	ConnectionRemoved(c Connection)
}

// Model is the mutable graph consumed by views.
//
// Commands are fire-and-forget from a view's perspective: the returned error
// is informational, and success is observed only through the resulting
// notifications.
type Model interface {
	// Subscribe registers o and returns a function that removes it again.
	Subscribe(o Observer) (unsubscribe func())

	// Node returns the live node with the given ID.
	Node(id string) (Node, bool)
	// Connection returns the live connection with the given ID.
	Connection(id string) (Connection, bool)
	// Nodes returns all live nodes in creation order.
	Nodes() []Node
	// Connections returns all live connections in creation order.
	Connections() []Connection

	CreateNode(pos geom.Point, text string, inlets, outlets int) (Node, error)
	RemoveNode(n Node) error
	SetNodeText(n Node, text string) error
	SetNodePos(n Node, pos geom.Point) error
	Connect(src Node, outlet int, dst Node, inlet int) (Connection, error)
	Disconnect(src Node, outlet int, dst Node, inlet int) error
}

// Compatible reports whether an outlet of type from may feed an inlet of
// type to: the types are equal or either is [AnyType]. Empty types are
// treated as [AnyType].
func Compatible(from, to string) bool {
	if from == "" || to == "" || from == AnyType || to == AnyType {
		return true
	}
	return from == to
}

// CanConnect evaluates both compatibility predicates the way views do when
// giving drag feedback.
func CanConnect(o Outlet, i Inlet) bool {
	if o == nil || i == nil {
		return false
	}
	return o.CanMakeConnectionTo(i) && i.CanAcceptConnectionFrom(o)
}

// SameNode reports whether a and b denote the same model node.
func SameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// Endpoints describes a connection by its port addresses.
type Endpoints struct {
	Source      string
	SourceIndex int
	Dest        string
	DestIndex   int
}

// EndpointsOf extracts the port addresses of c.
func EndpointsOf(c Connection) Endpoints {
	return Endpoints{
		Source:      c.Source().Node().ID(),
		SourceIndex: c.Source().Index(),
		Dest:        c.Dest().Node().ID(),
		DestIndex:   c.Dest().Index(),
	}
}
