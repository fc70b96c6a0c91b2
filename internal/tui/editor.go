package tui

// editor.go: $EDITOR integration (ctrl+e)
//
// Opens the active file in the user's editor via tea.ExecProcess. When the
// editor exits the file is reloaded so the next apply works on what is on
// disk.

import (
	"errors"
	"os"
	"os/exec"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dhanuzh/arrow/internal/panel"
)

// reloadable is implemented by file-backed documents.
type reloadable interface {
	Path() string
	Reload() error
}

// ExternalEditorDoneMsg is sent after the external editor process exits.
type ExternalEditorDoneMsg struct {
	Err error
}

func findEditor() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if e := os.Getenv(env); e != "" {
			return e
		}
	}
	for _, e := range []string{"nano", "vim", "vi"} {
		if _, err := exec.LookPath(e); err == nil {
			return e
		}
	}
	return ""
}

// openExternalEditor suspends the TUI and edits the active file.
func (m *Model) openExternalEditor() tea.Cmd {
	if m.host == nil {
		return m.showToast("No file open.", panel.LevelWarning)
	}
	doc, err := m.host.ActiveDocument()
	if err != nil {
		return m.showToast("No file open.", panel.LevelWarning)
	}
	file, ok := doc.(reloadable)
	if !ok {
		return m.showToast(doc.Name()+" is not backed by a file.", panel.LevelWarning)
	}
	editor := findEditor()
	if editor == "" {
		return m.showToast("$EDITOR is not set.", panel.LevelWarning)
	}

	cmd := exec.Command(editor, file.Path()) //nolint:gosec
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		if err != nil {
			return ExternalEditorDoneMsg{Err: err}
		}
		return ExternalEditorDoneMsg{Err: file.Reload()}
	})
}

func (m *Model) handleEditorDone(msg ExternalEditorDoneMsg) tea.Cmd {
	var exitErr *exec.ExitError
	switch {
	case errors.As(msg.Err, &exitErr):
		return m.showToast("Editor exited with "+exitErr.String(), panel.LevelWarning)
	case msg.Err != nil:
		return m.showToast("Could not reload file: "+msg.Err.Error(), panel.LevelError)
	}
	m.refreshDocument()
	return m.showToast("File reloaded.", panel.LevelInfo)
}
