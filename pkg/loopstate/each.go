package loopstate

import "errors"

// Looper is the pull-iteration surface shared by Iterator,
// RequeueIterator, and any consumer-supplied wrapper Each can drive.
type Looper[T any] interface {
	Next() bool
	Item() T
	Err() error
	Close(Completion) error
}

// Compile-time interface checks.
var (
	_ Looper[int] = (*Iterator[int])(nil)
	_ Looper[int] = (*RequeueIterator[int])(nil)
)

// Each drives a loop over it, calling fn for every item, and closes the
// iterator exactly once with the right completion status:
//
//   - fn returns nil for every item and the sequence drains: Completed,
//     checkpoint erased, Each returns nil.
//   - fn returns ErrStop: Interrupted, remaining items persisted, Each
//     returns nil.
//   - fn returns any other error, or the sequence itself fails:
//     Interrupted, remaining items persisted, the error is returned.
//
// If fn panics, the checkpoint is persisted before the panic continues
// to unwind.
func Each[T any](it Looper[T], fn func(T) error) (err error) {
	status := Interrupted
	defer func() {
		cerr := it.Close(status)
		if errors.Is(err, ErrStop) {
			err = nil
		}
		if cerr != nil {
			if err == nil {
				err = cerr
			} else {
				err = errors.Join(err, cerr)
			}
		}
	}()

	for it.Next() {
		if err = fn(it.Item()); err != nil {
			return err
		}
	}
	if err = it.Err(); err != nil {
		return err
	}

	status = Completed
	return nil
}
