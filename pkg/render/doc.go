// Package render turns flowcanvas scenes and models into output artifacts.
//
// # Overview
//
// Three renderers share this package:
//
//   - [RenderSVG] paints a [canvas.Scene] exactly as the editor shows it:
//     node frames with header bands and ports, connections, the grid, and
//     the transient overlays (drag line, completion list, port tooltip).
//   - [ToDOT] exports the model as Graphviz DOT with pinned node positions;
//     [GraphvizSVG] and [GraphvizPNG] render DOT in-process.
//   - [RenderTerm] paints a scene laid out with cell metrics into a styled
//     character grid for the terminal editor.
//
// [RenderJSON] encodes the scene itself for external painters.
//
// # Format Names
//
// [Formats] lists the names accepted by the CLI and the pipeline:
// "svg", "dot", "png" and "json".
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for DOT rendering and
// [github.com/charmbracelet/lipgloss] for terminal styles.
//
// [canvas.Scene]: github.com/matzehuels/flowcanvas/pkg/canvas.Scene
package render

// Output format names.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatSVG, FormatDOT, FormatPNG, FormatJSON}
