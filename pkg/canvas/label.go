package canvas

import (
	"github.com/matzehuels/flowcanvas/pkg/geom"
)

// labelEditor is the in-place text buffer of a node in edit mode. The
// selection spans anchor..caret in runes; an empty selection is a plain
// caret.
type labelEditor struct {
	text   []rune
	caret  int
	anchor int
}

func newLabelEditor(s string) *labelEditor {
	e := &labelEditor{}
	e.setText(s)
	e.selectAll()
	return e
}

func (e *labelEditor) String() string { return string(e.text) }

func (e *labelEditor) setText(s string) {
	e.text = []rune(s)
	e.caret = len(e.text)
	e.anchor = e.caret
}

func (e *labelEditor) selectAll() {
	e.anchor = 0
	e.caret = len(e.text)
}

// selection returns the selected rune range.
func (e *labelEditor) selection() (int, int) {
	return min(e.anchor, e.caret), max(e.anchor, e.caret)
}

func (e *labelEditor) hasSelection() bool { return e.anchor != e.caret }

func (e *labelEditor) deleteSelection() {
	lo, hi := e.selection()
	e.text = append(e.text[:lo], e.text[hi:]...)
	e.caret, e.anchor = lo, lo
}

// insert replaces the selection with s.
func (e *labelEditor) insert(s string) {
	e.deleteSelection()
	r := []rune(s)
	tail := append([]rune(nil), e.text[e.caret:]...)
	e.text = append(append(e.text[:e.caret], r...), tail...)
	e.caret += len(r)
	e.anchor = e.caret
}

// backspace removes the selection or the rune before the caret.
func (e *labelEditor) backspace() bool {
	if e.hasSelection() {
		e.deleteSelection()
		return true
	}
	if e.caret == 0 {
		return false
	}
	e.text = append(e.text[:e.caret-1], e.text[e.caret:]...)
	e.caret--
	e.anchor = e.caret
	return true
}

// del removes the selection or the rune after the caret.
func (e *labelEditor) del() bool {
	if e.hasSelection() {
		e.deleteSelection()
		return true
	}
	if e.caret == len(e.text) {
		return false
	}
	e.text = append(e.text[:e.caret], e.text[e.caret+1:]...)
	return true
}

func (e *labelEditor) moveTo(i int) {
	e.caret = max(0, min(i, len(e.text)))
	e.anchor = e.caret
}

// =============================================================================
// Completion overlay
// =============================================================================

// EditOverlay is the floating candidate list shown below a node in edit
// mode. Highlight is -1 while no candidate is highlighted.
type EditOverlay struct {
	Candidates []string
	Highlight  int
}

// EditState is the state of the text edit state machine.
type EditState int

const (
	EditIdle EditState = iota
	Editing
	EditingCompleting
)

func (s EditState) String() string {
	switch s {
	case Editing:
		return "editing"
	case EditingCompleting:
		return "completing"
	}
	return "idle"
}

// EditState reports the edit state machine's current state.
func (c *Canvas) EditState() EditState {
	switch {
	case c.editing == nil:
		return EditIdle
	case c.overlay != nil:
		return EditingCompleting
	}
	return Editing
}

// EditingNode returns the node in edit mode, or nil.
func (c *Canvas) EditingNode() *NodeVisual { return c.editing }

// IsAnyNodeEditing reports whether some node is in edit mode.
func (c *Canvas) IsAnyNodeEditing() bool { return c.editing != nil }

// Overlay returns a copy of the candidate list, or nil when none is shown.
func (c *Canvas) Overlay() *EditOverlay {
	if c.overlay == nil {
		return nil
	}
	o := *c.overlay
	o.Candidates = append([]string(nil), c.overlay.Candidates...)
	return &o
}

// EditSelection returns the caret and the selected rune range of the label
// being edited.
func (c *Canvas) EditSelection() (caret, lo, hi int, ok bool) {
	if c.editing == nil {
		return 0, 0, 0, false
	}
	e := c.editing.edit
	lo, hi = e.selection()
	return e.caret, lo, hi, true
}

// =============================================================================
// Transitions
// =============================================================================

// EnterEditMode selects the node with the given ID and puts it into edit
// mode with its whole label selected. Another node in edit mode commits
// first.
func (c *Canvas) EnterEditMode(id string) error {
	nv, err := c.LookupNode(id)
	if err != nil {
		return err
	}
	c.enterEditMode(nv)
	return nil
}

func (c *Canvas) enterEditMode(nv *NodeVisual) {
	if c.editing == nv {
		return
	}
	if c.editing != nil {
		c.exitEditMode(true)
	}
	c.setNodeSelected(nv, true)
	nv.oldText = nv.text
	nv.edit = newLabelEditor(nv.text)
	c.editing = nv
	c.logger.Debug("edit started", "node", nv.id)
	c.refreshCompletion()
	nv.relayout()
}

// ExitEditMode leaves edit mode. With commit, a SetNodeText command is
// issued when the text differs from the text captured on entry; otherwise
// the label reverts.
func (c *Canvas) ExitEditMode(commit bool) { c.exitEditMode(commit) }

func (c *Canvas) exitEditMode(commit bool) {
	nv := c.editing
	if nv == nil {
		return
	}
	text := nv.edit.String()
	c.hideOverlay()
	nv.edit = nil
	c.editing = nil
	nv.relayout()

	outcome := "reverted"
	if commit {
		outcome = "committed"
		if text != nv.oldText {
			c.setNodeText(nv, text)
		}
	}
	c.logger.Debug("edit finished", "node", nv.id, "outcome", outcome)
	c.hooks.OnGestureFinished("edit", outcome)
}

// refreshCompletion re-queries the provider for the edit buffer. The old
// overlay is discarded; a new one is shown when candidates exist.
func (c *Canvas) refreshCompletion() {
	if c.editing == nil {
		return
	}
	c.hideOverlay()
	cands := c.opts.Completion.Complete(c.editing.edit.String())
	if len(cands) == 0 {
		return
	}
	c.overlay = &EditOverlay{Candidates: append([]string(nil), cands...), Highlight: -1}
	c.invalidate(c.overlayRect())
}

func (c *Canvas) hideOverlay() {
	if c.overlay == nil {
		return
	}
	c.invalidate(c.overlayRect())
	c.overlay = nil
}

// CycleCompletion moves the highlight by dir (+1 down, -1 up) around the
// candidate list. From no highlight, down selects the first and up the last
// candidate. Without candidates it does nothing.
func (c *Canvas) CycleCompletion(dir int) {
	o := c.overlay
	if o == nil || len(o.Candidates) == 0 || dir == 0 {
		return
	}
	n := len(o.Candidates)
	switch {
	case o.Highlight < 0 && dir > 0:
		o.Highlight = 0
	case o.Highlight < 0:
		o.Highlight = n - 1
	default:
		o.Highlight = ((o.Highlight+dir)%n + n) % n
	}
	c.invalidate(c.overlayRect())
}

// AcceptCompletion replaces the label with the highlighted candidate and
// re-queries the provider. It reports false when nothing is highlighted.
func (c *Canvas) AcceptCompletion() bool {
	o := c.overlay
	if c.editing == nil || o == nil || o.Highlight < 0 || o.Highlight >= len(o.Candidates) {
		return false
	}
	c.editing.edit.setText(o.Candidates[o.Highlight])
	c.textEdited()
	return true
}

// textEdited re-queries completion and re-lays out after a buffer change.
func (c *Canvas) textEdited() {
	c.refreshCompletion()
	c.editing.relayout()
}

// TypeText inserts s at the caret of the label being edited, replacing the
// selection. It reports whether the text was consumed.
func (c *Canvas) TypeText(s string) bool {
	if c.editing == nil || s == "" {
		return false
	}
	c.editing.edit.insert(s)
	c.textEdited()
	return true
}

// FocusReason says why the label editor lost keyboard focus.
type FocusReason int

const (
	// FocusMouse is a pointer press elsewhere. Presses are routed through
	// PointerPress, whose selection changes decide the edit outcome.
	FocusMouse FocusReason = iota
	FocusKeyboard
	FocusWindow
	FocusOther
)

// FocusOut handles loss of keyboard focus while editing: anything but a
// pointer press commits.
func (c *Canvas) FocusOut(reason FocusReason) {
	if c.editing == nil || reason == FocusMouse {
		return
	}
	c.exitEditMode(true)
}

// overlayRect is the candidate list rectangle below the editing node.
func (c *Canvas) overlayRect() geom.Rect {
	if c.editing == nil || c.overlay == nil {
		return geom.Rect{}
	}
	frame := c.editing.Frame()
	var w, h float64
	for _, s := range c.overlay.Candidates {
		cw, ch := c.opts.Measurer.Measure(s)
		w = max(w, cw)
		h += ch
	}
	m := c.opts.Metrics
	return geom.R(frame.Min.X, frame.Max.Y+m.CandidateGap, w+2*m.TooltipMargin, h)
}
