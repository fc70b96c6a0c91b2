package theme

import "github.com/charmbracelet/lipgloss"

var builtin = map[string]func() *Theme{
	"catppuccin-mocha": CatppuccinMocha,
	"catppuccin-latte": CatppuccinLatte,
	"tokyo-night":      TokyoNight,
	"gruvbox":          Gruvbox,
}

// palette lists colours in field order: primary, accent, success, warning,
// error, info, text, muted, background, surface, border, user, code.
func palette(name string, dark bool, c ...string) *Theme {
	col := func(i int) lipgloss.Color { return lipgloss.Color(c[i]) }
	return &Theme{
		Name:       name,
		Dark:       dark,
		Primary:    col(0),
		Accent:     col(1),
		Success:    col(2),
		Warning:    col(3),
		Error:      col(4),
		Info:       col(5),
		Text:       col(6),
		TextMuted:  col(7),
		Background: col(8),
		Surface:    col(9),
		Border:     col(10),
		User:       col(11),
		Assistant:  col(6),
		Code:       col(12),
	}
}

// CatppuccinMocha returns the Catppuccin Mocha theme (default)
func CatppuccinMocha() *Theme {
	return palette("catppuccin-mocha", true,
		"#CBA6F7", "#F5C2E7", "#A6E3A1", "#F9E2AF", "#F38BA8", "#89DCEB",
		"#CDD6F4", "#A6ADC8", "#1E1E2E", "#313244", "#6C7086",
		"#89B4FA", "#FAB387")
}

// CatppuccinLatte returns the Catppuccin Latte theme
func CatppuccinLatte() *Theme {
	return palette("catppuccin-latte", false,
		"#8839EF", "#EA76CB", "#40A02B", "#DF8E1D", "#D20F39", "#04A5E5",
		"#4C4F69", "#6C6F85", "#EFF1F5", "#E6E9EF", "#ACB0BE",
		"#1E66F5", "#FE640B")
}

// TokyoNight returns the Tokyo Night theme
func TokyoNight() *Theme {
	return palette("tokyo-night", true,
		"#BB9AF7", "#F7768E", "#9ECE6A", "#E0AF68", "#F7768E", "#7DCFFF",
		"#C0CAF5", "#565F89", "#1A1B26", "#24283B", "#414868",
		"#7AA2F7", "#FF9E64")
}

// Gruvbox returns the Gruvbox theme
func Gruvbox() *Theme {
	return palette("gruvbox", true,
		"#D3869B", "#FE8019", "#B8BB26", "#FABD2F", "#FB4934", "#8EC07C",
		"#EBDBB2", "#A89984", "#282828", "#3C3836", "#665C54",
		"#83A598", "#FE8019")
}
