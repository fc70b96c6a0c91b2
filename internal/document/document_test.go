package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestOffset(t *testing.T) {
	text := "package main\n\nfunc main() {}\nhéllo"

	tests := []struct {
		name string
		pos  Position
		want int
	}{
		{"start", Position{0, 0}, 0},
		{"mid first line", Position{0, 7}, 7},
		{"end of first line", Position{0, 12}, 12},
		{"column past line end", Position{0, 99}, 12},
		{"empty line", Position{1, 0}, 13},
		{"third line", Position{2, 5}, 19},
		{"multibyte rune", Position{3, 2}, 32},
		{"line past end", Position{10, 0}, len(text)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Offset(text, tt.pos)
			if err != nil {
				t.Fatalf("Offset(%v): %v", tt.pos, err)
			}
			if got != tt.want {
				t.Errorf("Offset(%v) = %d, want %d", tt.pos, got, tt.want)
			}
		})
	}
}

func TestOffsetRejectsNegative(t *testing.T) {
	for _, pos := range []Position{{-1, 0}, {0, -1}} {
		if _, err := Offset("abc", pos); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("Offset(%v) err = %v, want ErrInvalidPosition", pos, err)
		}
	}
}

func TestLineCount(t *testing.T) {
	if got := LineCount(""); got != 1 {
		t.Errorf("LineCount(\"\") = %d, want 1", got)
	}
	if got := LineCount("a\nb\n"); got != 3 {
		t.Errorf("LineCount = %d, want 3", got)
	}
}

func TestWorkspaceActiveDocument(t *testing.T) {
	ws := NewWorkspace(nil)
	if _, err := ws.ActiveDocument(); !errors.Is(err, ErrNoActiveDocument) {
		t.Fatalf("empty workspace err = %v, want ErrNoActiveDocument", err)
	}

	buf := NewBuffer("main.go", "x")
	ws.Open(buf)
	doc, err := ws.ActiveDocument()
	if err != nil {
		t.Fatalf("ActiveDocument: %v", err)
	}
	if doc.Name() != "main.go" {
		t.Errorf("Name = %q, want main.go", doc.Name())
	}

	ws.Close()
	if _, err := ws.ActiveDocument(); !errors.Is(err, ErrNoActiveDocument) {
		t.Errorf("closed workspace err = %v, want ErrNoActiveDocument", err)
	}
}

func TestBufferSetCursor(t *testing.T) {
	buf := NewBuffer("a.txt", "one\ntwo")
	if err := buf.SetCursor(Position{Line: 1, Column: 2}); err != nil {
		t.Fatalf("SetCursor: %v", err)
	}
	if got := buf.Cursor(); got != (Position{Line: 1, Column: 2}) {
		t.Errorf("Cursor = %v", got)
	}
	if err := buf.SetCursor(Position{Line: -1}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("negative cursor err = %v", err)
	}
}

func TestFileReplaceWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("before"), 0600); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if f.Text() != "before" {
		t.Fatalf("Text = %q, want before", f.Text())
	}

	if err := f.Replace("after"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "after" {
		t.Errorf("file on disk = %q, want after", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions changed to %04o", perm)
	}
}

func TestOpenFileMissingIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.txt")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if f.Text() != "" {
		t.Errorf("Text = %q, want empty", f.Text())
	}
	if f.Name() != "new.txt" {
		t.Errorf("Name = %q", f.Name())
	}
}

func TestFileReplaceFailureKeepsBuffer(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFile(filepath.Join(dir, "missing-dir", "x.txt"))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := f.Replace("new"); err == nil {
		t.Fatal("expected write error for missing directory")
	}
	if f.Text() != "" {
		t.Errorf("buffer changed after failed write: %q", f.Text())
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want Position
	}{
		{"1", Position{0, 0}},
		{"12", Position{11, 0}},
		{"3:5", Position{2, 4}},
		{" 2:1 ", Position{1, 0}},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if err != nil {
			t.Errorf("ParsePosition(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "0", "x", "2:", "2:0", "-1:3"} {
		if _, err := ParsePosition(bad); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("ParsePosition(%q) err = %v, want ErrInvalidPosition", bad, err)
		}
	}
}

func TestBufferEditIsAtomic(t *testing.T) {
	buf := NewBuffer("n.txt", "")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = buf.Edit(func(text string, _ Position) (string, error) {
				return text + "x", nil
			})
		}()
	}
	wg.Wait()
	if got := len(buf.Text()); got != 50 {
		t.Errorf("len = %d, want 50", got)
	}
}

func TestBufferEditErrorKeepsText(t *testing.T) {
	buf := NewBuffer("n.txt", "keep")
	_, err := buf.Edit(func(string, Position) (string, error) {
		return "", ErrInvalidPosition
	})
	if !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("err = %v", err)
	}
	if buf.Text() != "keep" {
		t.Errorf("Text = %q", buf.Text())
	}
}

func TestFileSeesChangesOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	edited := "package main\n\nfunc userWork() {}\n"
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	if f.Text() != edited {
		t.Fatalf("Text = %q, want edited content", f.Text())
	}

	got, err := f.Edit(func(text string, _ Position) (string, error) {
		return text + "// tail\n", nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != edited+"// tail\n" {
		t.Errorf("Edit = %q", got)
	}
	data, _ := os.ReadFile(path)
	if string(data) != got {
		t.Errorf("file on disk = %q", data)
	}
}

func TestFileWatchReportsExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 16)
	if err := f.Watch(ctx, func(text string) { changes <- text }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// writes through f are not echoed back
	if err := f.Replace("two"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("three, from another program"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case text := <-changes:
			if text == "two" {
				t.Fatal("own write reported as external change")
			}
			if strings.HasPrefix(text, "three") {
				return
			}
		case <-deadline:
			t.Fatal("external write not reported")
		}
	}
}
