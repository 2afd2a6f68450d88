package loopstate

import "iter"

// source is a pull-based sequence with explicit release. Every source is
// released exactly once, on every exit path; close is idempotent.
type source[T any] interface {
	// next returns the next item, false when the sequence is drained,
	// or an error when the underlying stream fails.
	next() (T, bool, error)

	// close releases any resources owned by the source.
	close() error
}

// emptySource yields nothing.
type emptySource[T any] struct{}

func (emptySource[T]) next() (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (emptySource[T]) close() error { return nil }

// seqSource adapts an iter.Seq to the pull model.
type seqSource[T any] struct {
	pull    func() (T, bool)
	stop    func()
	stopped bool
}

// newSeqSource wraps seq; a nil seq yields nothing.
func newSeqSource[T any](seq iter.Seq[T]) source[T] {
	if seq == nil {
		return emptySource[T]{}
	}
	pull, stop := iter.Pull(seq)
	return &seqSource[T]{pull: pull, stop: stop}
}

func (s *seqSource[T]) next() (T, bool, error) {
	var zero T
	if s.stopped {
		return zero, false, nil
	}
	v, ok := s.pull()
	if !ok {
		s.close()
		return zero, false, nil
	}
	return v, true, nil
}

func (s *seqSource[T]) close() error {
	if !s.stopped {
		s.stopped = true
		s.stop()
	}
	return nil
}

// sliceSource yields the elements of a slice in order.
type sliceSource[T any] struct {
	items []T
	pos   int
}

func newSliceSource[T any](items []T) source[T] {
	return &sliceSource[T]{items: items}
}

func (s *sliceSource[T]) next() (T, bool, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceSource[T]) close() error { return nil }

// prependSource yields one item, then the rest of an inner source.
// Used to requeue the in-flight item ahead of the unconsumed tail.
type prependSource[T any] struct {
	item T
	used bool
	rest source[T]
}

func (s *prependSource[T]) next() (T, bool, error) {
	if !s.used {
		s.used = true
		return s.item, true, nil
	}
	return s.rest.next()
}

func (s *prependSource[T]) close() error {
	return s.rest.close()
}
