// Package state provides the typed state container and the record codecs
// used by loopstate checkpoints.
package state

import (
	"errors"
	"reflect"
	"sort"
)

// RemainingKey is the reserved key under which an iterator's pending
// sequence travels. The streaming checkpoint format reconstructs it from
// the trailing record stream on load; it is never written as a literal
// auxiliary field.
const RemainingKey = "remaining"

// ErrNotFound indicates a requested key is absent from the state.
var ErrNotFound = errors.New("state key not found")

// State is an ordered mapping of string keys to serializable values.
// Keys iterate in insertion order. State is not safe for concurrent use.
type State struct {
	keys []string
	vals map[string]any
}

// New creates an empty State.
func New() *State {
	return &State{vals: make(map[string]any)}
}

// FromMap creates a State holding a copy of m.
// Keys are inserted in sorted order so the result is deterministic.
func FromMap(m map[string]any) *State {
	s := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	return s
}

// Get returns the value for key.
// Returns ErrNotFound if the key is absent.
func (s *State) Get(key string) (any, error) {
	v, ok := s.vals[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set stores value under key, preserving the key's original position
// if it already exists.
func (s *State) Set(key string, value any) {
	if _, ok := s.vals[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.vals[key] = value
}

// Delete removes key from the state.
// Returns true if the key was present.
func (s *State) Delete(key string) bool {
	if _, ok := s.vals[key]; !ok {
		return false
	}
	delete(s.vals, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Pop removes key and returns its value.
// Returns ErrNotFound if the key is absent.
func (s *State) Pop(key string) (any, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	s.Delete(key)
	return v, nil
}

// Has returns true if key is present.
func (s *State) Has(key string) bool {
	_, ok := s.vals[key]
	return ok
}

// Len returns the number of keys.
func (s *State) Len() int {
	return len(s.keys)
}

// Keys returns the keys in insertion order.
// The returned slice is a copy.
func (s *State) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Map returns a copy of the underlying mapping.
func (s *State) Map() map[string]any {
	out := make(map[string]any, len(s.vals))
	for k, v := range s.vals {
		out[k] = v
	}
	return out
}

// Clone returns a deep-enough copy: keys and the top-level mapping are
// copied, values are shared.
func (s *State) Clone() *State {
	c := New()
	for _, k := range s.keys {
		c.Set(k, s.vals[k])
	}
	return c
}

// Equal reports whether two states hold the same key/value pairs.
// Key order is not significant.
func (s *State) Equal(o *State) bool {
	if o == nil {
		return s == nil
	}
	if len(s.vals) != len(o.vals) {
		return false
	}
	return reflect.DeepEqual(s.vals, o.vals)
}
