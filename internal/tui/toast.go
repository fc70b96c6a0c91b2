package tui

// toast.go: notifications from the controller, shown in the top-right
// corner until they expire.

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dhanuzh/arrow/internal/panel"
)

const (
	toastDuration      = 4 * time.Second
	errorToastDuration = 6 * time.Second
	maxToasts          = 3
)

// Toast is a single notification entry.
type Toast struct {
	Message string
	Level   panel.Level
	Expiry  time.Time
}

// ToastDismissMsg is fired by the timer to remove expired toasts.
type ToastDismissMsg struct{}

func toastTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ToastDismissMsg{}
	})
}

// showToast adds a toast and returns a Cmd that dismisses it.
func (m *Model) showToast(msg string, level panel.Level) tea.Cmd {
	dur := toastDuration
	if level == panel.LevelError {
		dur = errorToastDuration
	}
	m.toasts = append(m.toasts, Toast{
		Message: msg,
		Level:   level,
		Expiry:  m.now().Add(dur),
	})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return toastTickCmd(dur + 100*time.Millisecond)
}

func (m *Model) pruneToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.Expiry) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}

	t := m.theme
	var lines []string
	for _, toast := range m.toasts {
		bg := t.Primary
		switch toast.Level {
		case panel.LevelWarning:
			bg = t.Warning
		case panel.LevelError:
			bg = t.Error
		}
		style := lipgloss.NewStyle().
			Foreground(t.Background).
			Background(bg).
			Padding(0, 2).
			Bold(true)
		lines = append(lines, style.Render(toast.Message))
	}
	return strings.Join(lines, "\n")
}

// injectToastsIntoView overlays toasts in the top-right corner of screen.
func (m *Model) injectToastsIntoView(screen string) string {
	toast := m.renderToasts()
	if toast == "" {
		return screen
	}

	toastLines := strings.Split(toast, "\n")
	screenLines := strings.Split(screen, "\n")

	maxToastW := 0
	for _, l := range toastLines {
		if w := lipgloss.Width(l); w > maxToastW {
			maxToastW = w
		}
	}
	startX := m.width - maxToastW - 2
	if startX < 0 {
		startX = 0
	}

	for i := range screenLines {
		if i >= len(toastLines) {
			break
		}
		line := screenLines[i]
		if pad := startX - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		screenLines[i] = line + toastLines[i]
	}
	return strings.Join(screenLines, "\n")
}
