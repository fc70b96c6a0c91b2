// Package tui is the terminal rendition of the chat panel: a Chat tab for
// questions and a Composer tab that generates code and applies it to the
// open file.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/panel"
	"github.com/Dhanuzh/arrow/internal/session"
	"github.com/Dhanuzh/arrow/internal/theme"
	"github.com/Dhanuzh/arrow/internal/tui/components"
)

// ─── Tabs ───────────────────────────────────────────────────────────────────────

type Tab int

const (
	TabChat Tab = iota
	TabComposer
)

func (t Tab) String() string {
	if t == TabComposer {
		return "Composer"
	}
	return "Chat"
}

// ─── Messages ───────────────────────────────────────────────────────────────────

// OutboundMsg carries a controller reply into the program.
type OutboundMsg panel.Outbound

// Poster queues panel messages. *panel.Controller satisfies it.
type Poster interface {
	Post(panel.Inbound) (string, error)
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleSystem
)

type entry struct {
	role role
	text string
}

type attachment struct {
	name    string
	content string
}

// Model is the bubbletea model of the panel.
type Model struct {
	poster  Poster
	session *session.Session
	host    document.Host
	log     logrus.FieldLogger
	theme   *theme.Theme
	styles  styles
	keys    keyMap
	now     func() time.Time

	width  int
	height int
	tab    Tab

	viewport      viewport.Model
	chatInput     textarea.Model
	composerInput textarea.Model
	spinner       spinner.Model
	markdown      *components.MarkdownRenderer
	highlighter   *components.SyntaxHighlighter
	history       *InputHistory

	entries    []entry
	pending    map[string]panel.Kind
	generated  string
	attachment *attachment
	docName    string
	docText    string
	toasts     []Toast
}

// Options configures New.
type Options struct {
	Session     *session.Session
	Host        document.Host
	Theme       *theme.Theme
	Log         logrus.FieldLogger
	HistoryFile string
}

func newInput(placeholder string, t *theme.Theme) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.CharLimit = 50000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle().Background(t.Surface)
	ta.Cursor.Style = lipgloss.NewStyle().Background(t.Success).Foreground(t.Background)
	return ta
}

// New creates the panel model. poster receives every message the user sends.
func New(poster Poster, opts Options) Model {
	t := opts.Theme
	if t == nil {
		t = theme.Default()
	}
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	chat := newInput("Ask Arrow AI... (Enter to send, /help for commands)", t)
	chat.Focus()
	composer := newInput("Describe what you want, e.g. 'a Go function that fetches a URL'", t)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(t.Primary)

	m := Model{
		poster:        poster,
		session:       opts.Session,
		host:          opts.Host,
		log:           log,
		theme:         t,
		styles:        newStyles(t),
		keys:          defaultKeys,
		now:           time.Now,
		tab:           TabChat,
		viewport:      viewport.New(80, 20),
		chatInput:     chat,
		composerInput: composer,
		spinner:       sp,
		markdown:      components.NewMarkdownRenderer(76, t),
		highlighter:   components.NewSyntaxHighlighter(t),
		history:       NewInputHistory(opts.HistoryFile),
		pending:       make(map[string]panel.Kind),
	}
	m.refreshDocument()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// ─── Update ─────────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case OutboundMsg:
		cmd := m.handleOutbound(panel.Outbound(msg))
		return m, cmd

	case ExternalEditorDoneMsg:
		cmd := m.handleEditorDone(msg)
		return m, cmd

	case ToastDismissMsg:
		m.pruneToasts()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	input := m.activeInput()
	*input, cmd = input.Update(msg)
	return m, cmd
}

func (m *Model) activeInput() *textarea.Model {
	if m.tab == TabComposer {
		return &m.composerInput
	}
	return &m.chatInput
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.chatInput.SetWidth(w - 2)
	m.composerInput.SetWidth(w - 2)
	m.viewport.Width = w
	// header(2) + tabs(2) + status(1) + separator(1) + input + footer(2)
	vh := h - 8 - m.chatInput.Height()
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh
	m.markdown.SetWidth(w - 4)
	m.refreshViewport()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := m.activeInput()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.SwitchTab):
		m.switchTab()
		return m, nil

	case key.Matches(msg, m.keys.Newline):
		input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.Send):
		text := input.Value()
		input.Reset()
		cmd := m.submit(text)
		return m, cmd

	case key.Matches(msg, m.keys.Apply):
		return m, m.apply()

	case key.Matches(msg, m.keys.Unapply):
		return m, m.post(panel.Inbound{Command: panel.KindUnapplyCode})

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyGenerated()

	case key.Matches(msg, m.keys.EditDoc):
		return m, m.openExternalEditor()

	case key.Matches(msg, m.keys.HistoryPrev):
		input.SetValue(m.history.Prev(input.Value()))
		input.CursorEnd()
		return m, nil

	case key.Matches(msg, m.keys.HistoryNext):
		input.SetValue(m.history.Next())
		input.CursorEnd()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

func (m *Model) switchTab() {
	if m.tab == TabChat {
		m.tab = TabComposer
		m.chatInput.Blur()
		m.composerInput.Focus()
	} else {
		m.tab = TabChat
		m.composerInput.Blur()
		m.chatInput.Focus()
	}
	m.refreshViewport()
}

// submit sends what the user typed in the active tab.
func (m *Model) submit(raw string) tea.Cmd {
	text := strings.TrimSpace(raw)
	if text != "" {
		m.history.Append(text)
	}

	if m.tab == TabComposer {
		return m.post(panel.Inbound{Command: panel.KindGenerateCode, Text: text})
	}

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	shown := text
	if m.attachment != nil && text != "" {
		text = withAttachment(text, m.attachment)
		shown += "\n📎 " + m.attachment.name
		m.attachment = nil
	}
	if text != "" {
		m.entries = append(m.entries, entry{role: roleUser, text: shown})
		m.refreshViewport()
	}
	return m.post(panel.Inbound{Command: panel.KindChatMessage, Text: text})
}

func withAttachment(message string, a *attachment) string {
	return fmt.Sprintf("%s\n\nFile %s:\n```\n%s\n```", message, a.name, strings.TrimRight(a.content, "\n"))
}

func (m *Model) apply() tea.Cmd {
	if m.generated == "" {
		return m.showToast(panel.MsgNothingToApply, panel.LevelWarning)
	}
	return m.post(panel.Inbound{Command: panel.KindApplyCode, Text: m.generated})
}

func (m *Model) copyGenerated() tea.Cmd {
	if m.generated == "" {
		return m.showToast("Nothing to copy yet.", panel.LevelWarning)
	}
	if err := clipboard.WriteAll(m.generated); err != nil {
		m.log.WithError(err).Warn("clipboard write failed")
		return m.showToast("Clipboard unavailable: "+err.Error(), panel.LevelError)
	}
	return m.showToast(fmt.Sprintf("Copied %d characters to clipboard", len(m.generated)), panel.LevelInfo)
}

// post hands in to the controller and tracks chat/generate requests so the
// spinner can show until their reply arrives.
func (m *Model) post(in panel.Inbound) tea.Cmd {
	id, err := m.poster.Post(in)
	if err != nil {
		m.log.WithError(err).WithField("command", in.Command).Error("post panel message")
		return m.showToast(err.Error(), panel.LevelError)
	}
	if (in.Command == panel.KindChatMessage || in.Command == panel.KindGenerateCode) && strings.TrimSpace(in.Text) != "" {
		// a newer request of the same kind replaces the older one
		for pid, kind := range m.pending {
			if kind == in.Command {
				delete(m.pending, pid)
			}
		}
		m.pending[id] = in.Command
	}
	return nil
}

func (m *Model) handleOutbound(o panel.Outbound) tea.Cmd {
	switch o.Command {
	case panel.KindChatResponse:
		delete(m.pending, o.ID)
		m.entries = append(m.entries, entry{role: roleAssistant, text: o.Text})
	case panel.KindGeneratedCode:
		delete(m.pending, o.ID)
		m.generated = o.Text
	case panel.KindDocumentChanged:
		m.docText = o.Text
	case panel.KindNotify:
		return m.showToast(o.Text, o.Level)
	default:
		m.log.WithField("command", o.Command).Debug("ignored outbound message")
		return nil
	}
	m.refreshViewport()
	return nil
}

func (m *Model) busy(kind panel.Kind) bool {
	for _, k := range m.pending {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *Model) refreshDocument() {
	if m.host == nil {
		m.docName, m.docText = "", ""
		return
	}
	doc, err := m.host.ActiveDocument()
	if err != nil {
		m.docName, m.docText = "", ""
		return
	}
	m.docName, m.docText = doc.Name(), doc.Text()
}

// ─── View ───────────────────────────────────────────────────────────────────────

func (m *Model) refreshViewport() {
	if m.tab == TabComposer {
		m.viewport.SetContent(m.renderComposer())
	} else {
		m.viewport.SetContent(m.renderTranscript())
	}
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return m.styles.dim.Render("\n  Ask anything about your code. Switch to Composer with Tab to generate code.")
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.role {
		case roleUser:
			b.WriteString(m.styles.user.Render("You") + "\n")
			b.WriteString(e.text)
		case roleAssistant:
			b.WriteString(m.styles.assistant.Bold(true).Render("Arrow AI") + "\n")
			b.WriteString(m.markdown.Render(e.text))
		default:
			b.WriteString(m.styles.system.Render(e.text))
		}
	}
	return b.String()
}

func (m *Model) renderComposer() string {
	if m.generated == "" {
		return m.styles.dim.Render("\n  Describe the code you want below and press Enter.")
	}

	lines := m.highlighter.HighlightLines(m.generated, m.docName)
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		b.WriteString(m.styles.lineNo.Render(fmt.Sprintf("%*d ", width, i+1)))
		b.WriteString(line)
		b.WriteString("\n")
	}

	// apply section, only once something has been generated
	b.WriteString("\n")
	b.WriteString(m.styles.keybind.Render("ctrl+a") + " Apply Recommendation   ")
	b.WriteString(m.styles.keybind.Render("ctrl+z") + " Unapply   ")
	b.WriteString(m.styles.keybind.Render("ctrl+y") + " Copy")
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, t := range []Tab{TabChat, TabComposer} {
		style := m.styles.tabInactive
		if t == m.tab {
			style = m.styles.tabActive
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m *Model) renderStatus() string {
	var parts []string
	switch {
	case m.tab == TabChat && m.busy(panel.KindChatMessage):
		parts = append(parts, m.spinner.View()+" "+m.styles.dim.Render("Thinking..."))
	case m.tab == TabComposer && m.busy(panel.KindGenerateCode):
		parts = append(parts, m.spinner.View()+" "+m.styles.dim.Render("Generating code..."))
	}
	if m.attachment != nil && m.tab == TabChat {
		parts = append(parts, m.styles.dim.Render("📎 "+m.attachment.name))
	}
	return strings.Join(parts, "  ")
}

func (m Model) View() string {
	if m.width == 0 {
		return m.styles.title.Render("Arrow AI") + "  " + m.spinner.View() + " Starting...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTabs() + "\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.renderStatus() + "\n")
	b.WriteString(m.styles.border.Render(strings.Repeat("─", m.width)) + "\n")
	b.WriteString(m.activeInput().View() + "\n")
	b.WriteString(m.renderFooter())
	return m.injectToastsIntoView(b.String())
}
