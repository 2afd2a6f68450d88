package loopstate

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// Whole-object checkpoint format: one gob blob holding the auxiliary
// state and the fully materialized remaining sequence. Decoding is
// trusted-input only; never load blobs from untrusted sources.

// blobCheckpoint is the gob wire structure of an unsafe checkpoint.
// Auxiliary values stored as interface types must have their concrete
// types registered with gob.Register by the caller.
type blobCheckpoint[T any] struct {
	Aux       map[string]any
	Remaining []T
}

// openBlob loads a whole-object checkpoint.
func openBlob[T any](path string) (*state.State, source[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var cp blobCheckpoint[T]
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	return state.FromMap(cp.Aux), newSliceSource(cp.Remaining), nil
}

// dumpBlob persists the auxiliary state plus the materialized remaining
// sequence as one gob blob. Materialization is capped (see
// WithMaterializeLimit) so an unbounded source fails with
// ErrTooManyRemaining instead of draining forever.
func (it *Iterator[T]) dumpBlob() (int64, int, error) {
	var remaining []T
	for {
		v, ok, err := it.src.next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			break
		}
		if len(remaining) >= it.cfg.materializeLimit {
			return 0, 0, fmt.Errorf("%w: limit %d", ErrTooManyRemaining, it.cfg.materializeLimit)
		}
		remaining = append(remaining, v)
	}

	cp := blobCheckpoint[T]{
		Aux:       it.auxState().Map(),
		Remaining: remaining,
	}

	var size int64
	err := backend.WriteFileAtomic(it.path, func(w io.Writer) error {
		cw := &countWriter{w: w}
		if err := gob.NewEncoder(cw).Encode(&cp); err != nil {
			return fmt.Errorf("%w: %v", state.ErrUnsupportedValue, err)
		}
		size = cw.n
		return nil
	})
	return size, len(remaining), err
}
