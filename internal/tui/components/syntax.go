package components

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/Dhanuzh/arrow/internal/theme"
)

// SyntaxHighlighter colours generated code using Chroma.
type SyntaxHighlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// NewSyntaxHighlighter picks a Chroma style matching t.
func NewSyntaxHighlighter(t *theme.Theme) *SyntaxHighlighter {
	name := "monokai"
	if t != nil && !t.Dark {
		name = "github"
	}
	style := styles.Get(name)
	if style == nil {
		style = styles.Fallback
	}
	return &SyntaxHighlighter{
		style:     style,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight returns code with ANSI colours. The lexer is chosen by filename
// when it is known, otherwise by content. On any failure code is returned
// unchanged.
func (sh *SyntaxHighlighter) Highlight(code, filename string) string {
	lexer := lexerFor(code, filename)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := sh.formatter.Format(&buf, sh.style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// HighlightLines highlights code and splits it into lines. Render each line
// separately; lipgloss width handling mangles multi-line ANSI blocks.
func (sh *SyntaxHighlighter) HighlightLines(code, filename string) []string {
	return strings.Split(strings.TrimRight(sh.Highlight(code, filename), "\n"), "\n")
}

func lexerFor(code, filename string) chroma.Lexer {
	var lexer chroma.Lexer
	if filename != "" {
		lexer = lexers.Match(filepath.Base(filename))
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Language returns the Chroma language name for filename, or "" if unknown.
func Language(filename string) string {
	lexer := lexers.Match(filepath.Base(filename))
	if lexer == nil {
		return ""
	}
	return strings.ToLower(lexer.Config().Name)
}
