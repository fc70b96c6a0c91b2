package tui

// history.go: input history for the chat and composer inputs.
// Entries are kept oldest first; when a file is set they are persisted as
// JSON lines so the history survives restarts.

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
)

const maxHistoryEntries = 50

// InputHistory is a bounded list of past inputs with a navigation cursor.
type InputHistory struct {
	entries []string
	index   int    // len(entries) means "fresh input"
	file    string // empty keeps history in memory only
}

// NewInputHistory loads history from file. An empty path keeps history in
// memory only.
func NewInputHistory(file string) *InputHistory {
	h := &InputHistory{file: file}
	h.load()
	h.index = len(h.entries)
	return h
}

// DefaultHistoryFile returns ~/.local/share/arrow/history.jsonl.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "arrow", "history.jsonl")
}

func (h *InputHistory) load() {
	if h.file == "" {
		return
	}
	f, err := os.Open(h.file)
	if err != nil {
		return
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s string
		if json.Unmarshal(sc.Bytes(), &s) == nil && s != "" {
			entries = append(entries, s)
		}
	}
	if len(entries) > maxHistoryEntries {
		entries = entries[len(entries)-maxHistoryEntries:]
	}
	h.entries = entries
}

// Append records input and resets navigation. Repeating the last entry is
// a no-op.
func (h *InputHistory) Append(input string) {
	if input == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == input {
		h.index = n
		return
	}
	h.entries = append(h.entries, input)
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
	}
	h.index = len(h.entries)
	h.persist()
}

// Prev moves to the next older entry. With no history, current is returned.
func (h *InputHistory) Prev(current string) string {
	if len(h.entries) == 0 {
		return current
	}
	if h.index > 0 {
		h.index--
	}
	return h.entries[h.index]
}

// Next moves to the next newer entry; "" means back to fresh input.
func (h *InputHistory) Next() string {
	if h.index < len(h.entries) {
		h.index++
	}
	if h.index == len(h.entries) {
		return ""
	}
	return h.entries[h.index]
}

// Len returns the number of stored entries.
func (h *InputHistory) Len() int { return len(h.entries) }

func (h *InputHistory) persist() {
	if h.file == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o755); err != nil {
		return
	}
	f, err := os.Create(h.file)
	if err != nil {
		return
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, e := range h.entries {
		_ = enc.Encode(e)
	}
}
