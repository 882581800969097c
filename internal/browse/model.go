// Package browse is the terminal class navigator: a tree of the class
// attribute under the document cursor with keys for every class edit.
package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
)

type mode int

const (
	modeBrowse mode = iota
	modeInput
	modeMove
	modeConfirm
)

// inputAction is what the text input feeds once confirmed.
type inputAction int

const (
	actionAdd inputAction = iota
	actionAddChild
	actionRename
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("57"))
	movingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	placeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const helpLine = "↑/↓ select · tab next attr · a add · c child · r rename · d delete · m move · P to root · u undo · U redo · w save · q quit"

type row struct {
	node  *classtree.Node
	depth int
}

// Model is the bubbletea model of the navigator.
type Model struct {
	ctx  context.Context
	ctrl *controller.Controller
	buf  *host.Buffer
	log  *logrus.Logger

	rows     []row
	selected int
	mode     mode
	action   inputAction
	target   *classtree.Node // node the input, move or confirmation applies to
	input    textinput.Model
	status   string
	isErr    bool
	quitting bool
}

// New returns a navigator over buf.
func New(ctx context.Context, ctrl *controller.Controller, buf *host.Buffer, log *logrus.Logger) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256

	m := Model{ctx: ctx, ctrl: ctrl, buf: buf, log: log, input: ti}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// refresh re-derives the rows from the document.
func (m *Model) refresh() {
	m.rows = nil
	m.ctrl.RootNodes().Walk(func(n *classtree.Node, depth int) bool {
		m.rows = append(m.rows, row{node: n, depth: depth})
		return true
	})
	m.selected = min(max(m.selected, 0), max(len(m.rows)-1, 0))
}

// current is the selected class node, nil when only a placeholder shows.
func (m Model) current() *classtree.Node {
	if len(m.rows) == 0 || m.rows[m.selected].node.Placeholder {
		return nil
	}
	return m.rows[m.selected].node
}

func (m *Model) report(err error, ok string) {
	if err != nil {
		m.log.WithError(err).Debug("browse action failed")
		m.status, m.isErr = controller.Message(err), true
		return
	}
	m.status, m.isErr = ok, false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.mode == modeInput {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	switch m.mode {
	case modeInput:
		return m.updateInput(key)
	case modeMove:
		return m.updateMove(key), nil
	case modeConfirm:
		return m.updateConfirm(key), nil
	}
	return m.updateBrowse(key)
}

func (m Model) updateBrowse(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case "tab":
		m.jumpAttribute(1)
	case "shift+tab":
		m.jumpAttribute(-1)
	case "a":
		return m.startInput(actionAdd, nil, "New class", "")
	case "c":
		if n := m.current(); n != nil {
			return m.startInput(actionAddChild, n, "Child of "+n.Path, "")
		}
	case "r":
		if n := m.current(); n != nil {
			return m.startInput(actionRename, n, "Rename "+n.Path, n.Name)
		}
	case "d":
		if n := m.current(); n != nil {
			m.mode, m.target = modeConfirm, n
			m.status, m.isErr = fmt.Sprintf("Remove %q? (y/n)", n.Name), false
		}
	case "m":
		if n := m.current(); n != nil {
			m.mode, m.target = modeMove, n
			m.status, m.isErr = "Select the new parent and press enter (esc cancels)", false
		}
	case "P":
		if n := m.current(); n != nil {
			err := m.ctrl.MoveToRoot(m.ctx, n)
			m.report(err, "Moved "+n.Path+" to the root")
			m.refresh()
		}
	case "u":
		if m.buf.Undo() {
			m.ctrl.DocumentChanged()
			m.report(nil, "Undone")
		}
		m.refresh()
	case "U", "ctrl+r":
		if m.buf.Redo() {
			m.ctrl.DocumentChanged()
			m.report(nil, "Redone")
		}
		m.refresh()
	case "w":
		m.report(m.buf.Save(), "Saved "+m.buf.Path())
	}
	return m, nil
}

// jumpAttribute moves the document cursor to the next (dir > 0) or previous
// class attribute, wrapping around.
func (m *Model) jumpAttribute(dir int) {
	attrs := classtree.Attributes(m.buf.Text())
	if len(attrs) == 0 {
		return
	}
	cursor, _ := m.buf.CursorOffset()
	cur := -1 // attribute containing the cursor, or the last one before it
	for i, a := range attrs {
		if a.Match.Start > cursor {
			break
		}
		cur = i
	}
	next := cur + dir
	if dir < 0 && cur >= 0 && !attrs[cur].Match.Contains(cursor) {
		next = cur
	}
	next = (next%len(attrs) + len(attrs)) % len(attrs)
	m.buf.SetCursor(attrs[next].Value.Start)
	m.ctrl.DocumentChanged()
	m.selected = 0
	m.refresh()
	line, col := host.LineCol(m.buf.Text(), attrs[next].Value.Start)
	m.report(nil, fmt.Sprintf("class attribute at %d:%d", line, col))
}

func (m Model) startInput(a inputAction, target *classtree.Node, label, initial string) (tea.Model, tea.Cmd) {
	m.mode, m.action, m.target = modeInput, a, target
	m.input.Placeholder = label
	m.input.SetValue(initial)
	m.input.CursorEnd()
	m.status, m.isErr = label, false
	return m, m.input.Focus()
}

func (m Model) updateInput(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.input.Blur()
		m.mode, m.target = modeBrowse, nil
		m.report(nil, "Cancelled")
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		if hint := controller.NameHint(value); hint != "" {
			m.status, m.isErr = hint, true
			return m, nil
		}
		var err error
		var done string
		switch m.action {
		case actionAdd:
			err = m.ctrl.AddRootClass(m.ctx, value)
			done = "Added " + strings.TrimSpace(value)
		case actionAddChild:
			err = m.ctrl.AddChildClass(m.ctx, m.target, value)
			done = "Added " + classtree.JoinPath(m.target.Path, strings.TrimSpace(value))
		case actionRename:
			err = m.ctrl.RenameClass(m.ctx, m.target, value)
			done = "Renamed " + m.target.Path
		}
		m.input.Blur()
		m.mode, m.target = modeBrowse, nil
		m.report(err, done)
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m Model) updateMove(key tea.KeyMsg) Model {
	switch key.String() {
	case "esc", "ctrl+c":
		m.mode, m.target = modeBrowse, nil
		m.report(nil, "Cancelled")
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case "enter":
		moving, parent := m.target, m.current()
		m.mode, m.target = modeBrowse, nil
		if parent == nil {
			return m
		}
		err := m.ctrl.MoveClass(m.ctx, moving, parent)
		m.report(err, "Moved "+moving.Path+" under "+parent.Path)
		m.refresh()
	}
	return m
}

func (m Model) updateConfirm(key tea.KeyMsg) Model {
	n := m.target
	m.mode, m.target = modeBrowse, nil
	switch key.String() {
	case "y", "Y":
		err := m.ctrl.RemoveClass(m.ctx, n)
		m.report(err, "Removed "+n.Name)
		m.refresh()
	default:
		m.report(nil, "Cancelled")
	}
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	title := "classnav"
	if p := m.buf.Path(); p != "" {
		title += " · " + p
	}
	if m.buf.Dirty() {
		title += " [+]"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if attr, err := m.ctrl.Attribute(); err == nil {
		b.WriteString(valueStyle.Render(`class="`+attr.Text+`"`) + "\n")
	}
	b.WriteString("\n")

	for i, r := range m.rows {
		line := strings.Repeat("  ", r.depth) + r.node.Name
		switch {
		case r.node.Placeholder:
			line = placeStyle.Render(line)
		case i == m.selected:
			line = selectedStyle.Render(line)
		case m.mode == modeMove && r.node == m.target:
			line = movingStyle.Render(line)
		}
		if r.node.Description != "" {
			line += " " + descStyle.Render(r.node.Description)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if m.mode == modeInput {
		b.WriteString(m.input.View() + "\n")
	}
	if m.status != "" {
		style := statusStyle
		if m.isErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	b.WriteString(hintStyle.Render(helpLine))
	return b.String()
}
