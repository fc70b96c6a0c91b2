package tui

// header.go: top bar: title, active model and the open file with its
// cursor position.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dhanuzh/arrow/internal/document"
)

func (m *Model) renderHeader() string {
	left := []string{m.styles.title.Render("Arrow AI")}

	if m.session != nil {
		left = append(left, " ", m.styles.modelBadge.Render(m.session.Model()))
	}

	if m.docName != "" {
		info := m.docName
		if doc, err := m.host.ActiveDocument(); err == nil {
			info += " " + doc.Cursor().String()
		}
		left = append(left, " ", m.styles.docBadge.Render(info))
		lines := document.LineCount(m.docText)
		left = append(left, " ", m.styles.dim.Render(fmt.Sprintf("[%d line%s]", lines, pluralS(lines))))
	} else {
		left = append(left, " ", m.styles.dim.Render("no file open"))
	}

	if m.session != nil && m.session.Edits().HasSnapshot() {
		left = append(left, " ", m.styles.dim.Render("↶ undo available"))
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, left...)
	sep := m.styles.border.Render(strings.Repeat("─", m.width))
	return bar + "\n" + sep + "\n"
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
