package patch

import (
	"fmt"

	"github.com/matzehuels/flowcanvas/pkg/dataflow"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// Version is the document version written by [Capture].
const Version = 1

// =============================================================================
// Document
// =============================================================================

// Patch is the serialized form of a dataflow graph.
type Patch struct {
	Version     int          `json:"version" yaml:"version"`
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Node is one node of a patch.
type Node struct {
	ID      string   `json:"id" yaml:"id"`
	X       int      `json:"x" yaml:"x"`
	Y       int      `json:"y" yaml:"y"`
	Text    string   `json:"text" yaml:"text"`
	Inlets  []string `json:"inlets,omitempty" yaml:"inlets,omitempty"`
	Outlets []string `json:"outlets,omitempty" yaml:"outlets,omitempty"`
	Invalid bool     `json:"invalid,omitempty" yaml:"invalid,omitempty"`
}

// Pos returns the node position.
func (n Node) Pos() geom.Point { return geom.Pt(n.X, n.Y) }

// Connection links outlet Outlet of node From to inlet Inlet of node To.
type Connection struct {
	From   string `json:"from" yaml:"from"`
	Outlet int    `json:"outlet" yaml:"outlet"`
	To     string `json:"to" yaml:"to"`
	Inlet  int    `json:"inlet" yaml:"inlet"`
}

func (c Connection) String() string {
	return fmt.Sprintf("%s:%d->%s:%d", c.From, c.Outlet, c.To, c.Inlet)
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the document structure without building a graph: version,
// node identities, duplicate nodes and dangling connection endpoints.
func (p *Patch) Validate() error {
	if p.Version != 0 && p.Version != Version {
		return errors.New(errors.ErrCodeInvalidPatch, "unsupported patch version %d", p.Version)
	}
	seen := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if err := errors.ValidateID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPatch, err, "node %q", n.ID)
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeInvalidPatch, "duplicate node %s", n.ID)
		}
		seen[n.ID] = true
	}
	for _, c := range p.Connections {
		if !seen[c.From] {
			return errors.New(errors.ErrCodeInvalidPatch, "connection %s: unknown source node %s", c, c.From)
		}
		if !seen[c.To] {
			return errors.New(errors.ErrCodeInvalidPatch, "connection %s: unknown destination node %s", c, c.To)
		}
	}
	return nil
}

// =============================================================================
// Patch ↔ Graph Conversion
// =============================================================================

// Build creates a graph holding the nodes and connections of p. Node
// identities are kept; connections get fresh identities from the graph.
// Views attach to the result afterwards and replay it.
func (p *Patch) Build(opts ...memory.Option) (*memory.Graph, error) {
	g := memory.New(opts...)
	if err := p.Apply(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply adds the patch contents to g. Nodes without listed ports are
// resolved against the graph's library when it has one.
func (p *Patch) Apply(g *memory.Graph) error {
	if err := p.Validate(); err != nil {
		return err
	}
	lib := g.Library()
	for _, n := range p.Nodes {
		spec := memory.NodeSpec{
			ID:      n.ID,
			Pos:     n.Pos(),
			Text:    n.Text,
			Inlets:  n.Inlets,
			Outlets: n.Outlets,
			Invalid: n.Invalid,
		}
		if lib != nil && len(n.Inlets) == 0 && len(n.Outlets) == 0 && !n.Invalid {
			if c, ok := lib.Resolve(n.Text); ok {
				spec.Inlets, spec.Outlets = c.Inlets, c.Outlets
			} else {
				spec.Invalid = true
			}
		}
		if _, err := g.Add(spec); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPatch, err, "node %s", n.ID)
		}
	}
	for _, c := range p.Connections {
		src, _ := g.Node(c.From)
		dst, _ := g.Node(c.To)
		if _, err := g.Connect(src, c.Outlet, dst, c.Inlet); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPatch, err, "connection %s", c)
		}
	}
	return nil
}

// Capture snapshots any model into a patch, in the model's creation order.
func Capture(m dataflow.Model) *Patch {
	nodes := m.Nodes()
	p := &Patch{Version: Version, Nodes: make([]Node, len(nodes))}
	for i, n := range nodes {
		pos := n.Pos()
		pn := Node{ID: n.ID(), X: pos.X, Y: pos.Y, Text: n.Text(), Invalid: !n.Valid()}
		for j := range n.InletCount() {
			pn.Inlets = append(pn.Inlets, n.Inlet(j).Type())
		}
		for j := range n.OutletCount() {
			pn.Outlets = append(pn.Outlets, n.Outlet(j).Type())
		}
		p.Nodes[i] = pn
	}
	for _, c := range m.Connections() {
		e := dataflow.EndpointsOf(c)
		p.Connections = append(p.Connections, Connection{
			From: e.Source, Outlet: e.SourceIndex, To: e.Dest, Inlet: e.DestIndex,
		})
	}
	return p
}
