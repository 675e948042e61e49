// Package patch reads and writes flowcanvas patch documents.
//
// # Overview
//
// A patch is the persisted form of a dataflow graph: its nodes with their
// positions, labels and port types, and the connections between them. The
// same document is encoded as JSON or YAML:
//
//	{
//	  "version": 1,
//	  "nodes": [
//	    {"id": "a", "x": 40, "y": 40, "text": "number", "outlets": ["number"]},
//	    {"id": "b", "x": 40, "y": 120, "text": "add", "inlets": ["number", "number"], "outlets": ["number"]}
//	  ],
//	  "connections": [
//	    {"from": "a", "outlet": 0, "to": "b", "inlet": 0}
//	  ]
//	}
//
// # Node Fields
//
// Required:
//   - id: unique identity, no whitespace
//
// Optional:
//   - x, y: integer position (default 0)
//   - text: the node label
//   - inlets, outlets: port type tags in index order
//   - invalid: the label did not resolve to a class
//
// When a node lists no ports and the target graph has a class library, the
// ports and validity are resolved from the label instead. Hand-written
// patches can therefore give just the text.
//
// # Loading
//
// Use [Import] to read a file (the format follows the extension), or
// [Decode] for any reader. [Patch.Build] turns a document into a
// [memory.Graph]; [Capture] goes the other way for any [dataflow.Model].
// Errors are coded [errors.ErrCodeInvalidPatch] and name the node or
// connection at fault.
//
// [memory.Graph]: github.com/matzehuels/flowcanvas/pkg/dataflow/memory.Graph
// [dataflow.Model]: github.com/matzehuels/flowcanvas/pkg/dataflow.Model
// [errors.ErrCodeInvalidPatch]: github.com/matzehuels/flowcanvas/pkg/errors.ErrCodeInvalidPatch
package patch
