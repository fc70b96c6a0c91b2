package tui

// footer.go: keybind hints for the active tab.

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

func (m *Model) renderFooter() string {
	bindings := []key.Binding{m.keys.Send, m.keys.Newline, m.keys.SwitchTab}
	if m.tab == TabComposer {
		if m.generated != "" {
			bindings = append(bindings, m.keys.Apply, m.keys.Unapply, m.keys.Copy)
		}
	} else {
		bindings = append(bindings, m.keys.HistoryPrev)
	}
	bindings = append(bindings, m.keys.EditDoc, m.keys.Quit)

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, m.styles.keybind.Render(h.Key)+" "+m.styles.dim.Render(h.Desc))
	}
	line := strings.Join(hints, "  ")
	if m.tab == TabChat {
		line += "  " + m.styles.dim.Render("/help")
	}
	return line
}
