package loopstate

import (
	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// Store is a thin façade binding a mapping backend to a checkpoint
// location. It is the plain-mapping flavor of checkpoint: one structured
// record holding the whole auxiliary state, with no iteration logic.
//
// All operations are whole-file and synchronous. Two processes sharing
// the same location corrupt the checkpoint; last write wins.
type Store struct {
	b backend.Backend
}

// NewStore creates a store over the given backend.
func NewStore(b backend.Backend) *Store {
	return &Store{b: b}
}

// OpenJSON creates a store persisting the mapping as JSON at path.
func OpenJSON(path string) *Store {
	return NewStore(backend.NewJSONFile(path))
}

// OpenYAML creates a store persisting the mapping as YAML at path.
func OpenYAML(path string) *Store {
	return NewStore(backend.NewYAMLFile(path))
}

// Load returns the stored state, or an empty state if no checkpoint
// exists. Malformed content returns an error wrapping
// ErrCorruptCheckpoint.
func (s *Store) Load() (*state.State, error) {
	return s.b.Load()
}

// Save overwrites the checkpoint. The replacement is atomic from the
// caller's perspective.
func (s *Store) Save(st *state.State) error {
	return s.b.Save(st)
}

// Erase removes the checkpoint. No-op if none exists.
func (s *Store) Erase() error {
	return s.b.Erase()
}

// Exists reports whether a checkpoint is currently present.
func (s *Store) Exists() bool {
	return s.b.Exists()
}

// Close releases the underlying backend.
func (s *Store) Close() error {
	return s.b.Close()
}
