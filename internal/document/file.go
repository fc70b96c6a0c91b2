package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// File is a Buffer backed by a file on disk. Replace and Edit write through
// so the file always matches what the panel shows. Reads pick up changes
// made by other programs: whenever the file's size or modification time
// differs from the last version seen, the buffer is reloaded first.
type File struct {
	*Buffer
	path string
	perm fs.FileMode

	// version of the file held in Buffer, guarded by Buffer.mu
	stamp stamp
}

type stamp struct {
	mod  time.Time
	size int64
}

func (s stamp) same(o stamp) bool {
	return s.size == o.size && s.mod.Equal(o.mod)
}

// OpenFile loads path into a File. A missing file opens as an empty
// document and is created on the first write.
func OpenFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	f := &File{
		Buffer: NewBuffer(filepath.Base(abs), ""),
		path:   abs,
		perm:   0644,
	}
	if _, err := f.syncLocked(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the absolute path of the file.
func (f *File) Path() string { return f.path }

// Text returns the file content, reloading it if it changed on disk. When
// the file cannot be read the last known text is returned.
func (f *File) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = f.syncLocked()
	return f.text
}

// Replace updates the buffer and saves it.
func (f *File) Replace(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(text)
}

// Edit reloads the file if it changed on disk, runs fn on the fresh text
// and saves the result. The buffer lock is held throughout, so concurrent
// edits through this File are applied one after the other.
func (f *File) Edit(fn EditFunc) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.syncLocked(); err != nil {
		return "", err
	}
	updated, err := fn(f.text, f.cursor)
	if err != nil {
		return "", err
	}
	if err := f.writeLocked(updated); err != nil {
		return "", err
	}
	return updated, nil
}

// Reload re-reads the file from disk, discarding the in-memory text.
func (f *File) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamp = stamp{}
	_, err := f.syncLocked()
	return err
}

// Watch calls onChange with the new text each time another program changes
// the file, until ctx is done. Writes made through f are not reported.
// The parent directory is watched so saves that replace the file by
// renaming are seen too.
func (f *File) Watch(ctx context.Context, onChange func(text string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", f.path, err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", f.path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if text, changed := f.refresh(); changed {
					onChange(text)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func (f *File) refresh() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed, err := f.syncLocked()
	if err != nil {
		return "", false
	}
	return f.text, changed
}

// syncLocked reloads the buffer when the file on disk is not the version
// last seen. A file that does not exist leaves the buffer as it is.
func (f *File) syncLocked() (bool, error) {
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", f.path, err)
	}
	current := stamp{mod: info.ModTime(), size: info.Size()}
	if current.same(f.stamp) {
		return false, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", f.path, err)
	}
	f.text = string(data)
	f.perm = info.Mode().Perm()
	f.stamp = current
	return true, nil
}

func (f *File) writeLocked(text string) error {
	if err := os.WriteFile(f.path, []byte(text), f.perm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	f.text = text
	if info, err := os.Stat(f.path); err == nil {
		f.stamp = stamp{mod: info.ModTime(), size: info.Size()}
	}
	return nil
}
