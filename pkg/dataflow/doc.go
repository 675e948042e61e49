// Package dataflow defines the graph model contracts that canvases consume.
//
// A dataflow graph is a set of [Node] values, each carrying a label and
// ordered, typed [Inlet] and [Outlet] ports, plus [Connection] edges from an
// outlet to an inlet. The [Model] interface bundles three things:
//
//   - Queries: Node, Connection, Nodes, Connections and the port accessors.
//   - Commands: CreateNode, RemoveNode, SetNodeText, SetNodePos, Connect,
//     Disconnect.
//   - Notifications: an [Observer] registered through Subscribe receives one
//     synchronous callback per discrete change.
//
// The model is the sole source of truth. Views never assume they are the
// only writer: several observers may be subscribed to one model, and a view
// learns about the effect of its own commands exclusively through
// notifications.
//
// # Compatibility
//
// Ports carry a type tag. [Compatible] implements the default rule used by
// the reference in-memory model: equal tags match, and the [AnyType]
// wildcard matches everything.
//
// # Implementations
//
// [github.com/matzehuels/flowcanvas/pkg/dataflow/memory] provides an
// in-memory model with class resolution through
// [github.com/matzehuels/flowcanvas/pkg/library].
package dataflow
