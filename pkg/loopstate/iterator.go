package loopstate

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/loopstate/pkg/loopstate/observability"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// Iterator wraps a sequence and a checkpoint path for resumable
// iteration. Pull items with Next/Item, then report how the loop ended
// with exactly one Close call: Completed erases the checkpoint,
// Interrupted persists the remaining items. Iterators are single-use
// and not safe for concurrent use.
type Iterator[T any] struct {
	path      string
	cfg       iterConfig
	sessionID string
	logger    *slog.Logger

	st        *state.State
	src       source[T]
	cur       T
	err       error
	exhausted bool
	closed    bool
}

// New creates a resumable iterator for the given checkpoint path.
//
// If a checkpoint exists at path, resume precedence applies (see
// WithCacheFirst); otherwise iteration starts from fresh, which may be
// nil to start empty. Construction fails if an existing checkpoint
// cannot be decoded.
func New[T any](path string, fresh iter.Seq[T], opts ...Option) (*Iterator[T], error) {
	cfg := defaultIterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	it := &Iterator[T]{
		path:      path,
		cfg:       cfg,
		sessionID: uuid.New().String()[:8],
	}
	it.logger = observability.EnrichLogger(cfg.logger, it.sessionID, path)

	ctx, span := cfg.spans.StartResumeSpan(context.Background(), path, it.sessionID)
	err := it.prepare(ctx, fresh)
	cfg.spans.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// FromSlice creates a resumable iterator whose fresh sequence is the
// elements of items.
func FromSlice[T any](path string, items []T, opts ...Option) (*Iterator[T], error) {
	return New(path, slices.Values(items), opts...)
}

// prepare loads any existing checkpoint and selects the active source.
// The auxiliary state always comes from the checkpoint when one exists;
// resume precedence only selects which sequence is iterated.
func (it *Iterator[T]) prepare(ctx context.Context, fresh iter.Seq[T]) error {
	if _, err := os.Stat(it.path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("stat checkpoint: %w", err)
		}
		it.st = state.New()
		it.src = newSeqSource(fresh)
		observability.LogFreshStart(it.logger, it.path)
		return nil
	}

	var (
		cached source[T]
		err    error
	)
	if it.cfg.safe {
		it.st, cached, err = openStream[T](it.path, it.cfg.codec)
	} else {
		it.st, cached, err = openBlob[T](it.path)
	}
	if err != nil {
		return err
	}

	if it.cfg.cacheFirst || fresh == nil {
		it.src = cached
		it.cfg.metrics.RecordResume(ctx, it.mode())
		observability.LogResume(it.logger, it.path, it.mode())
		return nil
	}

	// Fresh sequence wins; the checkpointed tail is discarded.
	cached.close()
	it.src = newSeqSource(fresh)
	return nil
}

// mode names the active serialization strategy.
func (it *Iterator[T]) mode() string {
	if it.cfg.safe {
		return "safe"
	}
	return "unsafe"
}

// Next advances to the next item. It returns false when the sequence is
// drained, the iterator is closed, or reading the checkpointed tail
// failed (check Err).
func (it *Iterator[T]) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	v, ok, err := it.src.next()
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		it.exhausted = true
		return false
	}
	it.cur = v
	return true
}

// Item returns the item produced by the last successful Next.
func (it *Iterator[T]) Item() T {
	return it.cur
}

// Err returns the first error encountered while reading the sequence.
func (it *Iterator[T]) Err() error {
	return it.err
}

// State returns the auxiliary state persisted alongside the remaining
// items. Callers may record bookkeeping here; the reserved key
// state.RemainingKey is stripped before persistence.
func (it *Iterator[T]) State() *state.State {
	return it.st
}

// Close releases the iterator and settles the checkpoint. It must be
// called exactly once: Completed (or observed exhaustion, whichever is
// the case) erases the checkpoint, Interrupted persists the auxiliary
// state and the remaining items. A second call returns ErrClosed.
func (it *Iterator[T]) Close(c Completion) error {
	if it.closed {
		return ErrClosed
	}
	it.closed = true
	defer it.src.close()

	ctx := context.Background()
	if c == Completed || it.exhausted {
		if err := eraseFile(it.path); err != nil {
			observability.LogCheckpointError(it.logger, it.path, "erase", err)
			return err
		}
		it.cfg.metrics.RecordErase(ctx)
		observability.LogCheckpointErased(it.logger, it.path)
		return nil
	}
	return it.persist(ctx)
}

// persist writes the interrupted checkpoint using the active strategy.
func (it *Iterator[T]) persist(ctx context.Context) error {
	ctx, span := it.cfg.spans.StartSaveSpan(ctx, it.path, it.sessionID, it.mode())
	done := observability.TimedOperation()

	var (
		size  int64
		items int
		err   error
	)
	if it.cfg.safe {
		size, items, err = it.dumpStream()
	} else {
		size, items, err = it.dumpBlob()
	}

	durationMs := done()
	it.cfg.metrics.RecordSave(ctx, it.mode(), size,
		time.Duration(durationMs*float64(time.Millisecond)), err)
	it.cfg.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogCheckpointError(it.logger, it.path, "save", err)
		return err
	}
	observability.LogCheckpointSaved(it.logger, it.path, it.mode(), items, durationMs)
	return nil
}

// auxState returns the auxiliary state to persist: everything except the
// reserved remaining key, which is carried by the strategy itself.
func (it *Iterator[T]) auxState() *state.State {
	aux := it.st.Clone()
	aux.Delete(state.RemainingKey)
	return aux
}

// eraseFile removes a checkpoint file. No-op if none exists.
func eraseFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("erase checkpoint: %w", err)
	}
	return nil
}

// countWriter counts bytes written through it.
type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Compile-time interface check.
var _ io.Writer = (*countWriter)(nil)
