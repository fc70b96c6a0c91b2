// Package theme holds the colour palettes of the panel TUI.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultName is used when the config names no theme.
const DefaultName = "catppuccin-mocha"

// Theme is one palette. Dark reports whether it is meant for dark terminals;
// it also selects the glamour style used for chat replies.
type Theme struct {
	Name string
	Dark bool

	Primary lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Text       lipgloss.Color
	TextMuted  lipgloss.Color
	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	// chat roles
	User      lipgloss.Color
	Assistant lipgloss.Color
	Code      lipgloss.Color
}

// MarkdownStyle returns the glamour standard style name for t.
func (t *Theme) MarkdownStyle() string {
	if t.Dark {
		return "dark"
	}
	return "light"
}

// Get returns the builtin theme called name.
func Get(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	build, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("theme not found: %s", name)
	}
	return build(), nil
}

// MustGet is Get falling back to the default theme.
func MustGet(name string) *Theme {
	t, err := Get(name)
	if err != nil {
		return Default()
	}
	return t
}

// Names lists the builtin themes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default theme (Catppuccin Mocha).
func Default() *Theme {
	return CatppuccinMocha()
}
