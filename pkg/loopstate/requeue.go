package loopstate

import (
	"iter"
	"slices"
)

// CurrentKey is the transient auxiliary key holding the item the
// consumer is currently processing. It is popped before persistence and
// requeued at the head of the remaining sequence, so it never appears as
// a literal auxiliary field in a checkpoint.
const CurrentKey = "current"

// RequeueIterator is an Iterator that guarantees the in-flight item is
// retried on resume. Before each item is handed to the consumer it is
// recorded as in flight; on interruption the persisted remaining
// sequence is the in-flight item followed by whatever was never
// consumed, so no item is silently dropped.
type RequeueIterator[T any] struct {
	*Iterator[T]
}

// NewRequeue creates a requeueing resumable iterator.
// See New for resume precedence and checkpoint handling.
func NewRequeue[T any](path string, fresh iter.Seq[T], opts ...Option) (*RequeueIterator[T], error) {
	it, err := New(path, fresh, opts...)
	if err != nil {
		return nil, err
	}
	return &RequeueIterator[T]{Iterator: it}, nil
}

// RequeueFromSlice creates a requeueing iterator whose fresh sequence is
// the elements of items.
func RequeueFromSlice[T any](path string, items []T, opts ...Option) (*RequeueIterator[T], error) {
	return NewRequeue(path, slices.Values(items), opts...)
}

// Next advances to the next item, recording it as in flight.
func (r *RequeueIterator[T]) Next() bool {
	if !r.Iterator.Next() {
		return false
	}
	r.st.Set(CurrentKey, r.cur)
	return true
}

// Close settles the checkpoint like Iterator.Close, but when persisting
// it puts the in-flight item back at the head of the remaining sequence.
func (r *RequeueIterator[T]) Close(c Completion) error {
	if !r.closed {
		if v, err := r.st.Pop(CurrentKey); err == nil {
			if item, ok := v.(T); ok && c != Completed && !r.exhausted {
				r.src = &prependSource[T]{item: item, rest: r.src}
			}
		}
	}
	return r.Iterator.Close(c)
}
