package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dhanuzh/arrow/internal/document"
)

// ---------------------------------------------------------------------------
// EditBuffer
// ---------------------------------------------------------------------------

func TestApplyUnapplyRoundTrip(t *testing.T) {
	texts := []string{
		"",
		"package main\n",
		"line one\nline two\nline three",
		"héllo wörld\n\tindented\n",
	}
	positions := []document.Position{
		{Line: 0, Column: 0},
		{Line: 1, Column: 3},
		{Line: 50, Column: 50},
	}

	for _, text := range texts {
		for _, pos := range positions {
			buf := NewEditBuffer()
			_, err := buf.Apply(text, pos, "func f() {}")
			require.NoError(t, err)

			restored, err := buf.Unapply()
			require.NoError(t, err)
			require.Equal(t, text, restored, "pos %v", pos)
		}
	}
}

func TestApplyInsertsWithNewlines(t *testing.T) {
	buf := NewEditBuffer()
	got, err := buf.Apply("ab\ncd", document.Position{Line: 1, Column: 1}, "X")
	require.NoError(t, err)
	require.Equal(t, "ab\nc\nX\nd", got)
}

func TestApplyNeverReplacesContent(t *testing.T) {
	buf := NewEditBuffer()
	current := "keep me"
	got, err := buf.Apply(current, document.Position{Line: 0, Column: 4}, "gen")
	require.NoError(t, err)
	require.Equal(t, len(current)+len("\ngen\n"), len(got))
	require.Equal(t, "keep\ngen\n me", got)
}

func TestUnapplyEmptySlot(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Unapply()
	require.ErrorIs(t, err, ErrNoSnapshot)
	require.False(t, buf.HasSnapshot())
}

func TestSecondApplyOverwritesSnapshot(t *testing.T) {
	buf := NewEditBuffer()
	original := "original"

	afterT1, err := buf.Apply(original, document.Position{}, "T1")
	require.NoError(t, err)
	_, err = buf.Apply(afterT1, document.Position{}, "T2")
	require.NoError(t, err)

	restored, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, afterT1, restored)
	require.NotEqual(t, original, restored)
}

func TestUnapplyIsIdempotent(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Apply("base", document.Position{}, "gen")
	require.NoError(t, err)

	first, err := buf.Unapply()
	require.NoError(t, err)
	second, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestApplyEmptyDocumentIsRevertible(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Apply("", document.Position{}, "gen")
	require.NoError(t, err)
	require.True(t, buf.HasSnapshot())

	restored, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, "", restored)
}

func TestFailedApplyKeepsSnapshot(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Apply("first", document.Position{}, "gen")
	require.NoError(t, err)

	_, err = buf.Apply("second", document.Position{Line: -1}, "gen")
	require.True(t, errors.Is(err, document.ErrInvalidPosition))

	restored, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, "first", restored)
}

func TestClear(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Apply("x", document.Position{}, "y")
	require.NoError(t, err)
	buf.Clear()
	_, err = buf.Unapply()
	require.ErrorIs(t, err, ErrNoSnapshot)
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func TestNewSession(t *testing.T) {
	s := New("gpt-4", nil)
	require.NotEmpty(t, s.ID)
	require.Equal(t, "gpt-4", s.Model())
	require.False(t, s.Edits().HasSnapshot())

	other := New("gpt-4", nil)
	require.NotEqual(t, s.ID, other.ID)
	require.NotSame(t, s.Edits(), other.Edits())
}

func TestSetModel(t *testing.T) {
	tests := []struct {
		name    string
		known   []string
		model   string
		want    string
		wantErr error
	}{
		{"any model when list empty", nil, "my-local-model", "my-local-model", nil},
		{"known model", []string{"gpt-4", "gpt-3.5-turbo"}, "gpt-3.5-turbo", "gpt-3.5-turbo", nil},
		{"trims spaces", nil, "  gpt-4o ", "gpt-4o", nil},
		{"unknown model", []string{"gpt-4"}, "gpt-9", "gpt-4", ErrUnknownModel},
		{"empty model", nil, "  ", "gpt-4", ErrEmptyModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("gpt-4", tt.known)
			err := s.SetModel(tt.model)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, s.Model())
		})
	}
}

func TestSetModelLeavesSnapshot(t *testing.T) {
	s := New("gpt-4", nil)
	_, err := s.Edits().Apply("doc", document.Position{}, "gen")
	require.NoError(t, err)

	require.NoError(t, s.SetModel("gpt-3.5-turbo"))

	restored, err := s.Edits().Unapply()
	require.NoError(t, err)
	require.Equal(t, "doc", restored)
}

func TestKnownModelsIsCopy(t *testing.T) {
	known := []string{"gpt-4"}
	s := New("gpt-4", known)
	known[0] = "mutated"
	got := s.KnownModels()
	got[0] = "also mutated"
	require.Equal(t, []string{"gpt-4"}, s.KnownModels())
}

func TestInfo(t *testing.T) {
	s := New("gpt-4", nil)
	info := s.Info()
	require.Equal(t, s.ID, info.ID)
	require.Equal(t, "gpt-4", info.Model)
	require.False(t, info.HasSnapshot)

	_, err := s.Edits().Apply("a", document.Position{}, "b")
	require.NoError(t, err)
	require.True(t, s.Info().HasSnapshot)
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := New("gpt-4", nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetModel("gpt-4o")
			_ = s.Model()
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Edits().Apply("text", document.Position{}, "gen")
			_, _ = s.Edits().Unapply()
		}()
	}
	wg.Wait()
	restored, err := s.Edits().Unapply()
	require.NoError(t, err)
	require.Equal(t, "text", restored)
}

// failingDoc rejects every write.
type failingDoc struct {
	*document.Buffer
}

func (failingDoc) Replace(string) error { return errors.New("disk full") }

func (d failingDoc) Edit(fn document.EditFunc) (string, error) {
	if _, err := fn(d.Text(), d.Cursor()); err != nil {
		return "", err
	}
	return "", errors.New("disk full")
}

// slowDoc holds its edit lock for a while, like a document saved to a slow
// disk.
type slowDoc struct {
	*document.Buffer
}

func (d slowDoc) Edit(fn document.EditFunc) (string, error) {
	return d.Buffer.Edit(func(text string, cursor document.Position) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return fn(text, cursor)
	})
}

func TestApplyToUnapplyTo(t *testing.T) {
	doc := document.NewBuffer("main.go", "a\nb")
	require.NoError(t, doc.SetCursor(document.Position{Line: 1, Column: 0}))

	buf := NewEditBuffer()
	updated, err := buf.ApplyTo(doc, "gen")
	require.NoError(t, err)
	require.Equal(t, "a\n\ngen\nb", updated)
	require.Equal(t, updated, doc.Text())

	restored, err := buf.UnapplyTo(doc)
	require.NoError(t, err)
	require.Equal(t, "a\nb", restored)
	require.Equal(t, "a\nb", doc.Text())
}

func TestApplyToWriteFailureRestoresSlot(t *testing.T) {
	buf := NewEditBuffer()
	_, err := buf.Apply("earlier", document.Position{}, "x")
	require.NoError(t, err)

	doc := failingDoc{document.NewBuffer("ro.txt", "current")}
	_, err = buf.ApplyTo(doc, "gen")
	require.Error(t, err)
	require.Equal(t, "current", doc.Text())

	restored, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, "earlier", restored)
}

func TestApplyToWriteFailureOnEmptySlot(t *testing.T) {
	buf := NewEditBuffer()
	doc := failingDoc{document.NewBuffer("ro.txt", "current")}
	_, err := buf.ApplyTo(doc, "gen")
	require.Error(t, err)
	require.False(t, buf.HasSnapshot())
}

func TestUnapplyToEmptySlotLeavesDocument(t *testing.T) {
	doc := document.NewBuffer("main.go", "untouched")
	_, err := NewEditBuffer().UnapplyTo(doc)
	require.ErrorIs(t, err, ErrNoSnapshot)
	require.Equal(t, "untouched", doc.Text())
}

func TestApplyAtPosition(t *testing.T) {
	doc := document.NewBuffer("main.go", "a\nb\nc")

	buf := NewEditBuffer()
	updated, err := buf.ApplyAt(doc, document.Position{Line: 2}, "gen")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n\ngen\nc", updated)
	require.Equal(t, document.Position{}, doc.Cursor())

	_, err = buf.ApplyAt(doc, document.Position{Line: -1}, "bad")
	require.ErrorIs(t, err, document.ErrInvalidPosition)
	restored, err := buf.Unapply()
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc", restored)
}

func TestConcurrentApplyToSharedDocument(t *testing.T) {
	doc := slowDoc{document.NewBuffer("shared.go", "base")}
	first, second := NewEditBuffer(), NewEditBuffer()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, tc := range []struct {
		buf  *EditBuffer
		text string
	}{{first, "FROM_A"}, {second, "FROM_B"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tc.buf.ApplyTo(doc, tc.text)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Contains(t, doc.Text(), "FROM_A")
	require.Contains(t, doc.Text(), "FROM_B")
	require.Contains(t, doc.Text(), "base")

	// Whichever ran second saw the first insertion in its snapshot.
	a, _ := first.Unapply()
	b, _ := second.Unapply()
	require.True(t, a == "base" || b == "base")
	require.NotEqual(t, a, b)
}
