package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"

	"github.com/Dhanuzh/arrow/internal/theme"
)

// MarkdownRenderer renders chat replies as terminal markdown.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	theme    *theme.Theme
	width    int
}

func boolPtr(b bool) *bool    { return &b }
func uintPtr(u uint) *uint    { return &u }
func strPtr(s string) *string { return &s }

// panelStyle trims glamour's document margins so replies line up with the
// chat column, and takes heading and link colours from t.
func panelStyle(base ansi.StyleConfig, t *theme.Theme) ansi.StyleConfig {
	s := base

	s.Document.Margin = uintPtr(0)
	s.Document.Indent = uintPtr(0)
	s.Paragraph.Margin = uintPtr(0)

	s.H1.Color = strPtr(string(t.Primary))
	s.H1.Bold = boolPtr(true)
	s.H1.Prefix = ""
	s.H2.Color = strPtr(string(t.Info))
	s.H2.Bold = boolPtr(true)
	s.H2.Prefix = ""
	s.H3.Color = strPtr(string(t.Success))
	s.H3.Prefix = ""

	s.Item.Prefix = "• "
	s.Code.Color = strPtr(string(t.Code))
	s.Link.Color = strPtr(string(t.Info))
	s.Link.Underline = boolPtr(true)

	s.CodeBlock.Margin = uintPtr(0)
	return s
}

// NewMarkdownRenderer creates a renderer wrapping at width.
func NewMarkdownRenderer(width int, t *theme.Theme) *MarkdownRenderer {
	if t == nil {
		t = theme.Default()
	}
	if width < 20 {
		width = 20
	}

	base := styles.DarkStyleConfig
	if !t.Dark {
		base = styles.LightStyleConfig
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(panelStyle(base, t)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// plain word-wrap only
		r, _ = glamour.NewTermRenderer(glamour.WithWordWrap(width))
	}
	return &MarkdownRenderer{renderer: r, theme: t, width: width}
}

// Render renders markdown, returning the input unchanged if glamour fails.
func (mr *MarkdownRenderer) Render(markdown string) string {
	if mr.renderer == nil {
		return markdown
	}
	out, err := mr.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(out, "\n")
}

// Width returns the wrap width.
func (mr *MarkdownRenderer) Width() int { return mr.width }

// SetWidth rebuilds the renderer for a new wrap width.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width == mr.width {
		return
	}
	*mr = *NewMarkdownRenderer(width, mr.theme)
}
