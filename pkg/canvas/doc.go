// Package canvas is the model-view synchronization and interaction engine of
// flowcanvas.
//
// A [Canvas] attaches to a [dataflow.Model], mirrors every live node and
// connection as a visual, and turns pointer and key events into model
// commands. The model is the only source of truth: the canvas never creates,
// moves or destroys a visual on its own initiative. Even a drag-move issues
// SetNodePos and the node follows only when the position notification
// arrives.
//
// # Visuals
//
// [NodeVisual] holds a node's header bands, body, label and ordered [Port]
// lists. Port list lengths always equal the model's inlet and outlet counts.
// Each [Port] owns the [ConnectionVisual] values terminating at it, so a
// shrinking port list destroys its connections before the ports themselves.
//
// # Gestures
//
// Three explicit state machines are owned by the canvas:
//
//   - Text editing: Idle, Editing and Editing+Completing, driven by
//     [Canvas.EnterEditMode], [Canvas.TypeText], [Canvas.KeyPress] and
//     [Canvas.FocusOut]. Candidates come from a [completion.Provider].
//   - Connection drag: press on an outlet, drag with live validity feedback
//     ([LineStyle]), release over an inlet to issue Connect.
//   - Move: press on a node and drag to issue SetNodePos for the selection,
//     snapped to the grid when enabled.
//
// # Painting
//
// The canvas does not paint. It reports dirty rectangles to a [Surface] and
// exposes a z-ordered display list through [Canvas.Scene] for painters such
// as those in the render package.
//
// # Errors
//
// Notifications that reference entities the canvas never mirrored are sync
// inconsistencies: they are logged at warn level with a coded error, reported
// to the editor observability hooks, and otherwise ignored. Command failures
// are logged at debug level; the view observes success only through
// notifications.
package canvas
