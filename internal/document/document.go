// Package document models the host editor side of the panel: the active
// text buffer, its cursor, and full-range replacement.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrNoActiveDocument is returned by a Host when no document is open.
var ErrNoActiveDocument = errors.New("no active document")

// ErrInvalidPosition is returned when a position cannot address any offset.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a zero-based line/column pair. Column counts runes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Document is one open text buffer in the host editor.
type Document interface {
	Name() string
	Text() string
	Cursor() Position
	// Replace swaps the whole document range for text.
	Replace(text string) error
	// Edit runs fn on the current text and cursor and stores the text fn
	// returns. No other read or write of the document interleaves with it.
	Edit(fn EditFunc) (string, error)
}

// EditFunc computes the new document text from the current one.
type EditFunc func(text string, cursor Position) (string, error)

// Watcher is a Document that can report changes made outside the panel.
type Watcher interface {
	Watch(ctx context.Context, onChange func(text string)) error
}

// Host exposes the currently active document, if any.
type Host interface {
	ActiveDocument() (Document, error)
}

// Offset converts pos into a byte offset within text. Lines past the end
// resolve to the end of text; columns past the end of a line resolve to the
// end of that line.
func Offset(text string, pos Position) (int, error) {
	if pos.Line < 0 || pos.Column < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}

	offset := 0
	for line := 0; line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text), nil
		}
		offset += nl + 1
	}

	lineEnd := strings.IndexByte(text[offset:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text) - offset
	}
	col := 0
	for i := range text[offset : offset+lineEnd] {
		if col == pos.Column {
			return offset + i, nil
		}
		col++
	}
	return offset + lineEnd, nil
}

// ParsePosition parses a one-based "line[:col]" as typed by a user into a
// zero-based Position.
func ParsePosition(s string) (Position, error) {
	lineStr, colStr, hasCol := strings.Cut(strings.TrimSpace(s), ":")
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(colStr)
		if err != nil || col < 1 {
			return Position{}, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
		}
	}
	return Position{Line: line - 1, Column: col - 1}, nil
}

// LineCount returns the number of lines in text, counting a trailing
// partial line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// Buffer is an in-memory Document.
type Buffer struct {
	mu     sync.RWMutex
	name   string
	text   string
	cursor Position
}

// NewBuffer creates a Buffer holding text with the cursor at the start.
func NewBuffer(name, text string) *Buffer {
	return &Buffer{name: name, text: text}
}

func (b *Buffer) Name() string { return b.name }

func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

func (b *Buffer) Cursor() Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// SetCursor moves the cursor. Negative coordinates are rejected.
func (b *Buffer) SetCursor(pos Position) error {
	if pos.Line < 0 || pos.Column < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
	}
	b.mu.Lock()
	b.cursor = pos
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Replace(text string) error {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
	return nil
}

func (b *Buffer) Edit(fn EditFunc) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	updated, err := fn(b.text, b.cursor)
	if err != nil {
		return "", err
	}
	b.text = updated
	return updated, nil
}

// Workspace is a Host with at most one active document.
type Workspace struct {
	mu     sync.RWMutex
	active Document
}

// NewWorkspace returns a Workspace with doc active. doc may be nil.
func NewWorkspace(doc Document) *Workspace {
	return &Workspace{active: doc}
}

func (w *Workspace) ActiveDocument() (Document, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == nil {
		return nil, ErrNoActiveDocument
	}
	return w.active, nil
}

// Open makes doc the active document.
func (w *Workspace) Open(doc Document) {
	w.mu.Lock()
	w.active = doc
	w.mu.Unlock()
}

// Close leaves the workspace without an active document.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.active = nil
	w.mu.Unlock()
}
