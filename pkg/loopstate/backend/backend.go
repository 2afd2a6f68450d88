// Package backend provides persistence backends for loopstate mappings.
//
// A Backend stores one whole state mapping at a single location (a file
// path or a database). All operations are synchronous and whole-file;
// no coordination is provided for concurrent writers to the same
// location, and concurrent writes corrupt the stored state (last write
// wins). That is a documented caller responsibility.
package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// Backend loads and saves a whole state mapping.
type Backend interface {
	// Load returns the stored state, or an empty state if none exists.
	// Malformed stored content returns an error wrapping ErrCorrupt;
	// it is never silently replaced with an empty state.
	Load() (*state.State, error)

	// Save overwrites the stored state. The replacement is atomic from
	// the caller's perspective: a failed save leaves any previously
	// stored state intact.
	Save(st *state.State) error

	// Erase removes the stored state. No-op if none exists.
	Erase() error

	// Exists reports whether a stored state is present.
	Exists() bool

	// Close releases any resources (connections, handles).
	Close() error
}

// Sentinel errors for backend operations.
var (
	// ErrCorrupt indicates stored checkpoint content is malformed.
	ErrCorrupt = errors.New("corrupt checkpoint")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("state backend closed")
)

// WriteFileAtomic writes to a temporary file in the target's directory
// and renames it over path once the write has been synced. A failed
// write removes the temporary file and leaves path untouched.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	tmp := filepath.Join(filepath.Dir(path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()[:8]))

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
