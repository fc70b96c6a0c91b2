// Package session holds the per-panel state: the selected completion model
// and the single-slot edit snapshot.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyModel is returned when switching to a blank model id.
	ErrEmptyModel = errors.New("model id must not be empty")
	// ErrUnknownModel is returned when the model is not in the known list.
	ErrUnknownModel = errors.New("unknown model")
)

// Session is the state owned by one panel. Two panels never share a
// Session, so switching models or applying edits in one cannot leak into
// another.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu    sync.RWMutex
	model string
	known []string
	edits *EditBuffer
}

// New creates a Session selecting model. known lists the accepted model
// ids; an empty list accepts any non-empty id.
func New(model string, known []string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		model:     model,
		known:     slices.Clone(known),
		edits:     NewEditBuffer(),
	}
}

// Model returns the currently selected model id.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel switches the selected model. The edit snapshot is not touched.
func (s *Session) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return ErrEmptyModel
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.known) > 0 && !slices.Contains(s.known, model) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	s.model = model
	return nil
}

// KnownModels returns a copy of the accepted model ids.
func (s *Session) KnownModels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.known)
}

// Edits returns the session's snapshot buffer.
func (s *Session) Edits() *EditBuffer {
	return s.edits
}

// Info is a serializable view of a Session.
type Info struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	HasSnapshot bool      `json:"has_snapshot"`
	CreatedAt   time.Time `json:"created_at"`
}

// Info returns a snapshot of the session's observable state.
func (s *Session) Info() Info {
	return Info{
		ID:          s.ID,
		Model:       s.Model(),
		HasSnapshot: s.edits.HasSnapshot(),
		CreatedAt:   s.CreatedAt,
	}
}
