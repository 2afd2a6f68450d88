package backend

import (
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// File persists the state mapping as one structured record at a path.
// The record format is chosen by the injected codec.
type File struct {
	path  string
	codec state.Codec
}

// Compile-time interface check.
var _ Backend = (*File)(nil)

// NewFile creates a file backend at path using codec for the record.
func NewFile(path string, codec state.Codec) *File {
	return &File{path: path, codec: codec}
}

// NewJSONFile creates a file backend storing the mapping as JSON.
func NewJSONFile(path string) *File {
	return NewFile(path, state.JSONCodec{})
}

// NewYAMLFile creates a file backend storing the mapping as YAML.
func NewYAMLFile(path string) *File {
	return NewFile(path, state.YAMLCodec{})
}

// Path returns the checkpoint path.
func (f *File) Path() string {
	return f.path
}

// Load implements Backend.
func (f *File) Load() (*state.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state.New(), nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var m map[string]any
	if err := f.codec.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return state.FromMap(m), nil
}

// Save implements Backend.
func (f *File) Save(st *state.State) error {
	data, err := f.codec.Encode(st.Map())
	if err != nil {
		return err
	}
	return WriteFileAtomic(f.path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write checkpoint: %w", err)
		}
		return nil
	})
}

// Erase implements Backend.
func (f *File) Erase() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("erase checkpoint: %w", err)
	}
	return nil
}

// Exists implements Backend.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Close implements Backend. File backends hold no open resources.
func (f *File) Close() error {
	return nil
}
