package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/panel"
)

const maxAttachmentSize = 256 << 10

// Command is a slash command typed into the chat input.
type Command struct {
	Name        string
	Args        string
	Description string
}

func allCommands() []Command {
	return []Command{
		{Name: "/model", Args: "<id>", Description: "Switch the AI model"},
		{Name: "/models", Description: "List available models"},
		{Name: "/goto", Args: "<line>[:col]", Description: "Move the insertion point in the open file"},
		{Name: "/attach", Args: "[path]", Description: "Attach a file to the next message (no path clears it)"},
		{Name: "/clear", Description: "Clear the chat transcript"},
		{Name: "/help", Description: "Show commands and keys"},
	}
}

func (m *Model) runCommand(input string) tea.Cmd {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/model":
		if arg == "" {
			m.addSystem(m.modelList())
			return nil
		}
		return m.post(panel.Inbound{Command: panel.KindUpdateModel, Model: arg})
	case "/models":
		m.addSystem(m.modelList())
		return nil
	case "/goto":
		return m.gotoPosition(arg)
	case "/attach":
		return m.attach(arg)
	case "/clear":
		m.entries = nil
		m.refreshViewport()
		return nil
	case "/help":
		m.addSystem(m.helpText())
		return nil
	default:
		return m.showToast(fmt.Sprintf("Unknown command %s. Type /help.", name), panel.LevelWarning)
	}
}

func (m *Model) addSystem(text string) {
	m.entries = append(m.entries, entry{role: roleSystem, text: text})
	m.refreshViewport()
}

func (m *Model) modelList() string {
	if m.session == nil {
		return "No session."
	}
	current := m.session.Model()
	known := m.session.KnownModels()
	if len(known) == 0 {
		return "Current model: " + current + " (any model id is accepted)"
	}
	var b strings.Builder
	b.WriteString("Models:")
	for _, id := range known {
		mark := "  "
		if id == current {
			mark = "● "
		}
		b.WriteString("\n  " + mark + id)
	}
	return b.String()
}

func (m *Model) helpText() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range allCommands() {
		usage := c.Name
		if c.Args != "" {
			usage += " " + c.Args
		}
		fmt.Fprintf(&b, "\n  %-16s %s", usage, c.Description)
	}
	b.WriteString("\nKeys:")
	for _, k := range []key.Help{
		m.keys.SwitchTab.Help(), m.keys.Apply.Help(), m.keys.Unapply.Help(),
		m.keys.Copy.Help(), m.keys.EditDoc.Help(), m.keys.ScrollUp.Help(),
	} {
		fmt.Fprintf(&b, "\n  %-16s %s", k.Key, k.Desc)
	}
	return b.String()
}

// cursorMover is implemented by documents whose cursor the panel can set.
type cursorMover interface {
	SetCursor(document.Position) error
}

// gotoPosition moves the cursor of the active document, which is where
// apply inserts generated code. arg is one-based.
func (m *Model) gotoPosition(arg string) tea.Cmd {
	if m.host == nil {
		return m.showToast(panel.MsgNoActiveDocument, panel.LevelError)
	}
	doc, err := m.host.ActiveDocument()
	if err != nil {
		return m.showToast(panel.MsgNoActiveDocument, panel.LevelError)
	}
	mover, ok := doc.(cursorMover)
	if !ok {
		return m.showToast("The cursor of "+doc.Name()+" cannot be moved here.", panel.LevelWarning)
	}
	pos, err := document.ParsePosition(arg)
	if err != nil {
		return m.showToast("Usage: /goto <line>[:col]", panel.LevelWarning)
	}
	if err := mover.SetCursor(pos); err != nil {
		return m.showToast(err.Error(), panel.LevelError)
	}
	m.log.WithField("at", pos.String()).Debug("cursor moved")
	return m.showToast("Code will be inserted at "+pos.String(), panel.LevelInfo)
}

// attach reads path as the attachment of the next chat message.
func (m *Model) attach(path string) tea.Cmd {
	if path == "" {
		if m.attachment == nil {
			return m.showToast("Usage: /attach <path>", panel.LevelWarning)
		}
		m.attachment = nil
		return m.showToast("Attachment removed.", panel.LevelInfo)
	}

	info, err := os.Stat(path)
	if err != nil {
		return m.showToast("Cannot attach: "+err.Error(), panel.LevelError)
	}
	if info.IsDir() {
		return m.showToast(path+" is a directory.", panel.LevelError)
	}
	if info.Size() > maxAttachmentSize {
		return m.showToast(fmt.Sprintf("%s is larger than %d KB.", path, maxAttachmentSize>>10), panel.LevelError)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m.showToast("Cannot attach: "+err.Error(), panel.LevelError)
	}
	if !utf8.Valid(data) {
		return m.showToast(path+" is not a text file.", panel.LevelError)
	}

	m.attachment = &attachment{name: filepath.Base(path), content: string(data)}
	m.log.WithField("file", path).Debug("file attached")
	return m.showToast("Attached "+m.attachment.name, panel.LevelInfo)
}
