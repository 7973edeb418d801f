// Package tui is the terminal front-end of the notes client: a folder tree
// on the left and a plain-text editor on the right, both driven by a
// session.Session.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/notepath"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/sidebar"
	"github.com/starford/quire/internal/tree"
)

type focus int

const (
	focusTree focus = iota
	focusEditor
)

type prompt int

const (
	promptNone prompt = iota
	promptCreate
	promptRename
	promptMove
	promptDelete
)

const treeWidth = 32

// opDoneMsg reports the end of a session operation run off the UI loop.
type opDoneMsg struct {
	verb   string
	prompt prompt // prompt to close on success
	open   bool   // focus the editor on success
	err    error
}

type eventMsg notesapi.Event

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model. The editor text lives in an editor.Buffer
// attached to the session, so autosave reads exactly what is on screen.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	buf    *editor.Buffer
	logger *slog.Logger

	width, height int
	focus         focus
	cursor        int

	prompt prompt
	target string
	input  textinput.Model

	text   textarea.Model
	synced uint64

	status    string
	statusErr bool
}

// New builds a model and attaches its buffer to the session editor.
func New(ctx context.Context, sess *session.Session, logger *slog.Logger) *Model {
	buf := editor.NewBuffer()
	sess.Editor.SetInstance(buf)

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Prompt = ""
	ta.Placeholder = "Select a note"
	ta.Blur()

	in := textinput.New()
	in.CharLimit = 256

	return &Model{
		ctx:    ctx,
		sess:   sess,
		buf:    buf,
		logger: logger,
		text:   ta,
		input:  in,
		synced: buf.Revision(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.run("", promptNone, false, m.sess.Start), tick())
}

// run executes op in a tea.Cmd so network calls never block rendering.
func (m *Model) run(verb string, p prompt, open bool, op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{verb: verb, prompt: p, open: open, err: op(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		cmd = tick()
	case eventMsg:
		m.setStatus(fmt.Sprintf("%s %s", msg.Type, msg.Path), false)
	case opDoneMsg:
		cmd = m.finish(msg)
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}
	m.clampCursor()
	m.syncEditor()
	return m, cmd
}

func (m *Model) finish(msg opDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Info("operation failed", slog.String("op", msg.verb), slog.String("error", msg.err.Error()))
		if msg.prompt == promptNone || msg.prompt == promptMove || msg.prompt == promptDelete {
			m.setStatus(apperr.Message(msg.err), true)
		}
		// Create and rename keep their input open with the error inline.
		return nil
	}
	if msg.verb != "" {
		m.setStatus(msg.verb, false)
	}
	if msg.prompt != promptNone && msg.prompt == m.prompt {
		m.closePrompt()
	}
	if cur := m.sess.Store.CurrentFile(); cur != "" {
		m.sess.Sidebar.ExpandToPath(cur)
		m.moveCursorTo(cur)
	}
	if msg.open {
		return m.focusEditor()
	}
	return nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.text.SetWidth(max(10, w-treeWidth-8))
	m.text.SetHeight(max(3, h-6))
	m.input.Width = treeWidth - 4
}

// syncEditor copies content pushed into the buffer (a note was opened,
// created or deleted) into the textarea.
func (m *Model) syncEditor() {
	if rev := m.buf.Revision(); rev != m.synced {
		m.text.SetValue(m.buf.Text())
		m.synced = rev
	}
}

func (m *Model) rows() []tree.Row {
	return m.sess.Sidebar.View().Rows
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) moveCursorTo(path string) {
	for i, r := range m.rows() {
		if r.Path == path {
			m.cursor = i
			return
		}
	}
}

func (m *Model) selected() (tree.Row, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return tree.Row{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) focusEditor() tea.Cmd {
	if m.sess.Store.CurrentFile() == "" {
		m.setStatus("no note open", true)
		return nil
	}
	m.focus = focusEditor
	return m.text.Focus()
}

func (m *Model) focusTree() {
	m.focus = focusTree
	m.text.Blur()
}

func (m *Model) save() tea.Cmd {
	return m.run("saved", promptNone, false, m.sess.SaveNow)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}
	if m.focus == focusEditor {
		return m.handleEditorKey(msg)
	}
	return m.handleTreeKey(msg)
}

func (m *Model) handleTreeKey(msg tea.KeyMsg) tea.Cmd {
	sb := m.sess.Sidebar
	row, ok := m.selected()
	note := ok && !row.Folder

	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		m.cursor--
	case "down", "j":
		m.cursor++
	case "enter", "right", "l":
		if !ok {
			return nil
		}
		if row.Folder {
			sb.ToggleFolder(row.Path)
			return nil
		}
		path := row.Path
		return m.run("", promptNone, true, func(ctx context.Context) error {
			return sb.Select(ctx, path)
		})
	case "left", "h":
		if ok && row.Folder && row.Expanded {
			sb.ToggleFolder(row.Path)
		}
	case "tab":
		return m.focusEditor()
	case "n":
		sb.StartCreate()
		return m.openPrompt(promptCreate, "", "")
	case "r":
		if note {
			sb.BeginRename(row.Path)
			return m.openPrompt(promptRename, row.Path, notepath.Base(row.Path))
		}
	case "m":
		if note {
			return m.openPrompt(promptMove, row.Path, notepath.Parent(row.Path))
		}
	case "d":
		if note {
			return m.openPrompt(promptDelete, row.Path, "")
		}
	case "g":
		return m.run("refreshed", promptNone, false, func(ctx context.Context) error {
			err := sb.Refresh(ctx)
			sb.RefreshUsage(ctx)
			return err
		})
	case "ctrl+s":
		return m.save()
	}
	return nil
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "tab":
		m.focusTree()
		return nil
	case "ctrl+s":
		return m.save()
	}
	before := m.text.Value()
	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	if after := m.text.Value(); after != before {
		m.buf.SetText(after)
		m.synced = m.buf.Revision()
	}
	return cmd
}

func (m *Model) openPrompt(p prompt, target, value string) tea.Cmd {
	m.prompt, m.target = p, target
	m.input.SetValue(value)
	m.input.CursorEnd()
	if p == promptDelete {
		m.input.Blur()
		return nil
	}
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt, m.target = promptNone, ""
	m.input.SetValue("")
	m.input.Blur()
}

func (m *Model) cancelPrompt() {
	switch m.prompt {
	case promptCreate:
		m.sess.Sidebar.CancelCreate()
	case promptRename:
		m.sess.Sidebar.CancelRename()
	}
	m.closePrompt()
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	sb := m.sess.Sidebar
	if m.prompt == promptDelete {
		if msg.String() != "y" {
			m.closePrompt()
			return nil
		}
		target := m.target
		return m.run("deleted "+target, promptDelete, false, func(ctx context.Context) error {
			return sb.Delete(ctx, target)
		})
	}

	switch msg.String() {
	case "esc":
		m.cancelPrompt()
		return nil
	case "enter":
		target := m.target
		switch m.prompt {
		case promptCreate:
			return m.run("created", promptCreate, true, sb.SubmitCreate)
		case promptRename:
			return m.run("renamed", promptRename, false, sb.SubmitRename)
		case promptMove:
			folder := strings.TrimSpace(m.input.Value())
			return m.run("moved "+target, promptMove, false, func(ctx context.Context) error {
				return sb.Move(ctx, target, folder)
			})
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch m.prompt {
	case promptCreate:
		sb.SetCreateName(m.input.Value())
	case promptRename:
		sb.SetRenameDraft(m.input.Value())
	}
	return cmd
}

func (m *Model) View() string {
	v := m.sess.Sidebar.View()

	height := max(5, m.height-4)
	left := m.treeView(v, height)
	right := m.editorView(v)

	lp, rp := paneStyle, paneStyle
	if m.focus == focusTree {
		lp = activePaneStyle
	} else {
		rp = activePaneStyle
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lp.Width(treeWidth).Height(height).Render(left),
		rp.Height(height).Render(right),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footer(v))
}

func (m *Model) treeView(v sidebar.View, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Notes"))
	b.WriteString("\n")

	switch {
	case v.Loading && len(v.Rows) == 0:
		b.WriteString(mutedStyle.Render("loading..."))
	case v.Err != "":
		b.WriteString(errorStyle.Render(v.Err))
	case len(v.Rows) == 0:
		b.WriteString(mutedStyle.Render("no notes yet, press n"))
	}

	// Keep the cursor row on screen.
	rows := v.Rows
	visible := max(1, height-4)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(rows) && i < start+visible; i++ {
		b.WriteString("\n")
		b.WriteString(m.rowView(rows[i], i == m.cursor, v.CurrentFile))
	}

	if m.prompt != promptNone {
		b.WriteString("\n\n")
		b.WriteString(m.promptView(v))
	}
	return b.String()
}

func (m *Model) rowView(r tree.Row, cursor bool, current string) string {
	indent := strings.Repeat("  ", r.Depth)
	var line string
	switch {
	case r.Folder && r.Expanded:
		line = indent + folderStyle.Render("v "+r.Name+"/")
	case r.Folder:
		line = indent + folderStyle.Render("> "+r.Name+"/")
	case r.Path == current:
		line = indent + "  " + currentStyle.Render(r.Name)
	default:
		line = indent + "  " + r.Name
	}
	if cursor && m.focus == focusTree {
		return cursorStyle.Render(line)
	}
	return line
}

func (m *Model) promptView(v sidebar.View) string {
	var label, errMsg string
	switch m.prompt {
	case promptCreate:
		label = "New note:"
		if v.Creation != nil {
			errMsg = v.Creation.Err
			if v.Creation.Submitting {
				label = "Creating..."
			}
		}
	case promptRename:
		label = "Rename " + m.target + ":"
		errMsg = v.RenameErr
	case promptMove:
		label = "Move " + m.target + " to folder:"
	case promptDelete:
		return errorStyle.Render("Delete "+m.target+"?") + " (y/n)"
	}
	s := label + "\n" + m.input.View()
	if errMsg != "" {
		s += "\n" + errorStyle.Render(errMsg)
	}
	return s
}

func (m *Model) editorView(v sidebar.View) string {
	header := mutedStyle.Render("no note open")
	if v.CurrentFile != "" {
		header = titleStyle.Render(v.CurrentFile)
		if m.buf.Kind() == content.KindDocument {
			header += mutedStyle.Render(" (document)")
		}
	}
	return header + "\n" + m.text.View()
}

func (m *Model) footer(v sidebar.View) string {
	var parts []string
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, errorStyle.Render(m.status))
		} else {
			parts = append(parts, okStyle.Render(m.status))
		}
	}
	if v.Usage != nil {
		parts = append(parts, "Used: "+sidebar.FormatBytes(*v.Usage))
	}
	if r, ok := m.sess.LastAutosave(); ok {
		if r.Err != nil {
			parts = append(parts, errorStyle.Render("autosave failed"))
		} else {
			parts = append(parts, "autosaved "+r.At.Local().Format("15:04:05"))
		}
	}
	help := "enter open  n new  r rename  m move  d delete  g refresh  tab editor  ctrl+s save  q quit"
	if m.focus == focusEditor {
		help = "esc tree  ctrl+s save  ctrl+c quit"
	}
	parts = append(parts, help)
	return footerStyle.Render(strings.Join(parts, "  |  "))
}
