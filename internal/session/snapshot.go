package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Dhanuzh/arrow/internal/document"
)

// ErrNoSnapshot is returned by Unapply when nothing has been applied yet.
var ErrNoSnapshot = errors.New("no previous state available to restore")

// EditBuffer holds a single snapshot of the document text taken right
// before the most recent Apply. A second Apply overwrites the first
// snapshot; there is no history beyond one step.
type EditBuffer struct {
	mu       sync.Mutex
	snapshot string
	occupied bool
}

// NewEditBuffer returns an EditBuffer with an empty slot.
func NewEditBuffer() *EditBuffer {
	return &EditBuffer{}
}

// Apply records current as the snapshot and returns current with generated
// inserted at at, wrapped in newlines. The position is resolved before the
// slot is touched, so a failed Apply leaves the previous snapshot intact.
func (b *EditBuffer) Apply(current string, at document.Position, generated string) (string, error) {
	updated, err := insert(current, at, generated)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.snapshot = current
	b.occupied = true
	b.mu.Unlock()

	return updated, nil
}

// ApplyTo inserts generated at doc's cursor and writes the result back to
// doc. See ApplyAt.
func (b *EditBuffer) ApplyTo(doc document.Document, generated string) (string, error) {
	return b.applyTo(doc, nil, generated)
}

// ApplyAt inserts generated at pos and writes the result back to doc. The
// snapshot is the document text read under doc's edit lock, so an edit made
// concurrently through the same document is never lost. If the write fails
// the previous snapshot is put back.
func (b *EditBuffer) ApplyAt(doc document.Document, pos document.Position, generated string) (string, error) {
	return b.applyTo(doc, &pos, generated)
}

func (b *EditBuffer) applyTo(doc document.Document, at *document.Position, generated string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, prevOccupied := b.snapshot, b.occupied
	updated, err := doc.Edit(func(current string, cursor document.Position) (string, error) {
		pos := cursor
		if at != nil {
			pos = *at
		}
		updated, err := insert(current, pos, generated)
		if err != nil {
			return "", err
		}
		b.snapshot = current
		b.occupied = true
		return updated, nil
	})
	if err != nil {
		b.snapshot, b.occupied = prev, prevOccupied
		return "", fmt.Errorf("update %s: %w", doc.Name(), err)
	}
	return updated, nil
}

func insert(current string, at document.Position, generated string) (string, error) {
	offset, err := document.Offset(current, at)
	if err != nil {
		return "", fmt.Errorf("apply at %s: %w", at, err)
	}
	return current[:offset] + "\n" + generated + "\n" + current[offset:], nil
}

// Unapply returns the snapshot text meant to replace the whole document.
// The slot stays occupied, so calling Unapply again returns the same text.
func (b *EditBuffer) Unapply() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.occupied {
		return "", ErrNoSnapshot
	}
	return b.snapshot, nil
}

// HasSnapshot reports whether Unapply would succeed.
func (b *EditBuffer) HasSnapshot() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.occupied
}

// Clear empties the slot.
func (b *EditBuffer) Clear() {
	b.mu.Lock()
	b.snapshot = ""
	b.occupied = false
	b.mu.Unlock()
}

// UnapplyTo replaces the whole of doc with the snapshot. doc is untouched
// when the slot is empty.
func (b *EditBuffer) UnapplyTo(doc document.Document) (string, error) {
	text, err := b.Unapply()
	if err != nil {
		return "", err
	}
	if err := doc.Replace(text); err != nil {
		return "", fmt.Errorf("restore %s: %w", doc.Name(), err)
	}
	return text, nil
}
