package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/geom"
	"github.com/matzehuels/flowcanvas/pkg/patch"
	"github.com/matzehuels/flowcanvas/pkg/render"
)

// doubleClickInterval is the longest gap between two presses on the same
// cell that still counts as a double click.
const doubleClickInterval = 400 * time.Millisecond

// Help styles
var (
	helpKeyStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	helpActionStyle = lipgloss.NewStyle().Foreground(colorWhite)
	helpHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

var keyBindings = [][]string{
	{"double click", "create node / edit label"},
	{"drag outlet", "connect"},
	{"drag node", "move selection"},
	{"shift+click", "toggle selection"},
	{"del / backspace", "delete selection"},
	{"ctrl+n", "new node at pointer"},
	{"ctrl+s", "save"},
	{"arrows / wheel", "pan"},
	{"g", "toggle grid"},
	{"?", "toggle help"},
	{"q / ctrl+c", "quit"},
}

// =============================================================================
// EditorModel - Interactive patch editor
// =============================================================================

// EditorModel is the bubbletea model of the terminal patch editor. Every
// event runs to completion on the update loop, which is the only goroutine
// touching the canvas.
type EditorModel struct {
	canvas *canvas.Canvas
	graph  *memory.Graph
	path   string
	styles render.TermStyles
	logger *log.Logger

	width, height int
	origin        geom.Vec
	pointer       geom.Vec

	lastPress time.Time
	lastCell  [2]int
	now       func() time.Time

	savedHash string
	status    string
	quitArmed bool
	showHelp  bool
}

// NewEditorModel creates an editor for graph g, saved to path. The canvas
// must be detached; the editor attaches it to g.
func NewEditorModel(c *canvas.Canvas, g *memory.Graph, path string, logger *log.Logger) EditorModel {
	if logger == nil {
		logger = log.Default()
	}
	c.Attach(g)
	return EditorModel{
		canvas:    c,
		graph:     g,
		path:      path,
		styles:    render.DefaultTermStyles(),
		logger:    logger,
		now:       time.Now,
		savedHash: graphHash(g),
	}
}

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.MouseMsg:
		m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.BlurMsg:
		m.canvas.FocusOut(canvas.FocusWindow)
	}
	return m, nil
}

// cellPoint converts a terminal cell to a canvas point.
func (m *EditorModel) cellPoint(x, y int) geom.Vec {
	return m.origin.Add(geom.V(float64(x), float64(y)))
}

func (m *EditorModel) handleMouse(msg tea.MouseMsg) {
	p := m.cellPoint(msg.X, msg.Y)
	m.pointer = p

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.quitArmed = false
			now := m.now()
			cell := [2]int{msg.X, msg.Y}
			if cell == m.lastCell && now.Sub(m.lastPress) <= doubleClickInterval {
				m.lastPress = time.Time{}
				m.canvas.DoubleClick(p)
				return
			}
			m.lastPress, m.lastCell = now, cell
			m.canvas.PointerPress(p, msg.Shift)
		case tea.MouseButtonWheelUp:
			m.origin.Y -= 3
		case tea.MouseButtonWheelDown:
			m.origin.Y += 3
		}
	case tea.MouseActionMotion:
		m.canvas.PointerMove(p)
	case tea.MouseActionRelease:
		m.canvas.PointerRelease(p)
	}
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	editing := m.canvas.IsAnyNodeEditing()
	if msg.Type != tea.KeyRunes || string(msg.Runes) != "q" {
		m.quitArmed = false
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		if editing {
			m.canvas.ExitEditMode(false)
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyCtrlS:
		m.save()
		return m, nil
	case tea.KeyCtrlN:
		m.canvas.CreateNodeAt(m.pointer)
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		text := string(msg.Runes)
		if text == "" && msg.Type == tea.KeySpace {
			text = " "
		}
		if editing {
			m.canvas.TypeText(text)
			return m, nil
		}
		return m.handleCommand(text)
	}

	if k, ok := canvasKey(msg.Type); ok {
		if m.canvas.KeyPress(k) {
			return m, nil
		}
	}
	if !editing {
		m.pan(msg.Type)
	}
	return m, nil
}

// handleCommand runs a single-letter command outside edit mode.
func (m EditorModel) handleCommand(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "q":
		if m.Dirty() && !m.quitArmed {
			m.quitArmed = true
			m.status = "unsaved changes, press q again to quit"
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "g":
		m.canvas.SetShowGrid(!m.canvas.Options().ShowGrid)
	}
	return m, nil
}

func (m *EditorModel) pan(t tea.KeyType) {
	switch t {
	case tea.KeyLeft:
		m.origin.X -= 2
	case tea.KeyRight:
		m.origin.X += 2
	case tea.KeyUp:
		m.origin.Y--
	case tea.KeyDown:
		m.origin.Y++
	}
}

// canvasKey maps terminal keys to the keys the canvas understands.
func canvasKey(t tea.KeyType) (canvas.Key, bool) {
	switch t {
	case tea.KeyEsc:
		return canvas.KeyEscape, true
	case tea.KeyEnter:
		return canvas.KeyEnter, true
	case tea.KeyUp:
		return canvas.KeyUp, true
	case tea.KeyDown:
		return canvas.KeyDown, true
	case tea.KeyLeft:
		return canvas.KeyLeft, true
	case tea.KeyRight:
		return canvas.KeyRight, true
	case tea.KeyTab:
		return canvas.KeyTab, true
	case tea.KeyBackspace:
		return canvas.KeyBackspace, true
	case tea.KeyDelete:
		return canvas.KeyDelete, true
	case tea.KeyHome:
		return canvas.KeyHome, true
	case tea.KeyEnd:
		return canvas.KeyEnd, true
	}
	return 0, false
}

// save commits a pending label edit and writes the patch.
func (m *EditorModel) save() {
	if m.canvas.IsAnyNodeEditing() {
		m.canvas.ExitEditMode(true)
	}
	p := patch.Capture(m.graph)
	if err := patch.Export(p, m.path); err != nil {
		m.logger.Error("save failed", "path", m.path, "err", err)
		m.status = "save failed: " + err.Error()
		return
	}
	m.savedHash = graphHash(m.graph)
	m.status = "saved " + m.path
	m.logger.Info("saved patch", "path", m.path, "nodes", len(p.Nodes), "connections", len(p.Connections))
}

// Dirty reports whether the graph differs from the last saved state.
func (m EditorModel) Dirty() bool {
	return graphHash(m.graph) != m.savedHash
}

func graphHash(g *memory.Graph) string {
	data, err := patch.Marshal(patch.Capture(g), patch.FormatJSON)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// =============================================================================
// View
// =============================================================================

func (m EditorModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	bodyHeight := max(m.height-1, 0)

	var body string
	if m.showHelp {
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, helpTable())
	} else {
		body = render.RenderTerm(m.canvas.Scene(), render.TermOptions{
			Width:  m.width,
			Height: bodyHeight,
			Origin: m.origin,
			Styles: &m.styles,
		})
	}
	return body + "\n" + m.statusBar()
}

func (m EditorModel) statusBar() string {
	name := filepath.Base(m.path)
	if m.Dirty() {
		name = styleDirty.Render("● ") + name
	}
	parts := []string{
		name,
		fmt.Sprintf("%d nodes", m.graph.NodeCount()),
		fmt.Sprintf("%d connections", m.graph.ConnectionCount()),
		m.canvas.EditState().String(),
		fmt.Sprintf("%g,%g", m.pointer.X, m.pointer.Y),
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	line := " " + strings.Join(parts, "  │  ")
	return StyleStatus.MaxWidth(m.width).Render(line)
}

func helpTable() string {
	rows := make([][]string, len(keyBindings))
	for i, b := range keyBindings {
		rows[i] = []string{b[0], b[1]}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Key", "Action").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return helpHeaderStyle.Padding(0, 1)
			case col == 0:
				return helpKeyStyle.Padding(0, 1)
			}
			return helpActionStyle.Padding(0, 1)
		})
	return StyleTitle.Render("flowcanvas keys") + "\n\n" + t.Render()
}
