package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Dhanuzh/arrow/internal/theme"
)

// styles are derived once from the active theme.
type styles struct {
	title       lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	modelBadge  lipgloss.Style
	docBadge    lipgloss.Style

	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	dim       lipgloss.Style
	keybind   lipgloss.Style
	border    lipgloss.Style
	codeFrame lipgloss.Style
	lineNo    lipgloss.Style
	errorText lipgloss.Style
}

func newStyles(t *theme.Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		tabActive: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(t.Primary).Padding(0, 1),
		tabInactive: lipgloss.NewStyle().Foreground(t.TextMuted).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(t.Border).Padding(0, 1),
		modelBadge: lipgloss.NewStyle().Foreground(t.Background).Background(t.Info).Padding(0, 1),
		docBadge:   lipgloss.NewStyle().Foreground(t.Background).Background(t.Success).Padding(0, 1),

		user:      lipgloss.NewStyle().Foreground(t.User).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(t.Assistant),
		system:    lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true),
		dim:       lipgloss.NewStyle().Foreground(t.TextMuted),
		keybind:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		border:    lipgloss.NewStyle().Foreground(t.Border),
		codeFrame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		lineNo:    lipgloss.NewStyle().Foreground(t.TextMuted).Faint(true),
		errorText: lipgloss.NewStyle().Foreground(t.Error),
	}
}
