package loopstate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/observability"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// PosKey is the auxiliary key holding the byte offset in a position
// checkpoint.
const PosKey = "pos"

// RewindStep is the initial backward window size of the line-boundary
// scan, grown by the same amount on each retry.
const RewindStep = 100

// FileTracker wraps an already-open readable stream and checkpoints only
// a byte offset. On construction it loads the recorded offset (default
// 0) and seeks there before any reading. Offsets recorded by the tracker
// itself always fall on a line boundary; use WithRealign when the
// recorded offset came from elsewhere and may fall mid-line.
type FileTracker struct {
	path      string
	store     *Store
	src       io.ReadSeeker
	br        *bufio.Reader
	cfg       iterConfig
	sessionID string
	logger    *slog.Logger

	offset    int64
	line      []byte
	err       error
	exhausted bool
	closed    bool
}

// NewFileTracker creates a position tracker for src with its checkpoint
// at path. The stream is released (closed, when it implements io.Closer)
// exactly once, by Close.
func NewFileTracker(path string, src io.ReadSeeker, opts ...Option) (*FileTracker, error) {
	cfg := defaultIterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &FileTracker{
		path:      path,
		store:     NewStore(backend.NewFile(path, cfg.codec)),
		src:       src,
		cfg:       cfg,
		sessionID: uuid.New().String()[:8],
	}
	t.logger = observability.EnrichLogger(cfg.logger, t.sessionID, path)

	ctx, span := cfg.spans.StartResumeSpan(context.Background(), path, t.sessionID)
	err := t.prepare(ctx)
	cfg.spans.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// prepare loads the recorded offset and positions the stream.
func (t *FileTracker) prepare(ctx context.Context) error {
	st, err := t.store.Load()
	if err != nil {
		return err
	}
	pos, err := posFromState(st)
	if err != nil {
		return err
	}

	if pos > 0 {
		if t.cfg.realign {
			aligned, window, err := rewindScan(t.src, pos)
			if err != nil {
				return err
			}
			t.cfg.metrics.RecordRewind(ctx, window)
			observability.LogRewind(t.logger, pos, aligned)
			pos = aligned
		}
		t.cfg.metrics.RecordResume(ctx, "position")
		observability.LogResume(t.logger, t.path, "position")
	} else {
		observability.LogFreshStart(t.logger, t.path)
	}

	if _, err := t.src.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to checkpoint position: %w", err)
	}
	t.offset = pos
	t.br = bufio.NewReader(t.src)
	return nil
}

// Next advances to the next line. Returns false at end of stream, after
// Close, or on a read error (check Err).
func (t *FileTracker) Next() bool {
	if t.closed || t.err != nil {
		return false
	}
	line, err := t.br.ReadBytes('\n')
	if len(line) == 0 {
		if err != nil && err != io.EOF {
			t.err = fmt.Errorf("read line: %w", err)
		} else {
			t.exhausted = true
		}
		return false
	}
	if err != nil && err != io.EOF {
		t.err = fmt.Errorf("read line: %w", err)
		return false
	}
	t.offset += int64(len(line))
	t.line = line
	return true
}

// Bytes returns the current line including its terminator.
func (t *FileTracker) Bytes() []byte {
	return t.line
}

// Text returns the current line without its terminator.
func (t *FileTracker) Text() string {
	line := bytes.TrimSuffix(t.line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return string(line)
}

// Offset returns the byte offset immediately after the last line
// returned. It is always a line boundary.
func (t *FileTracker) Offset() int64 {
	return t.offset
}

// Err returns the first read error encountered.
func (t *FileTracker) Err() error {
	return t.err
}

// Close settles the checkpoint and releases the stream. It must be
// called exactly once: Completed (or end of stream) erases the
// checkpoint, Interrupted records the current offset. A second call
// returns ErrClosed.
func (t *FileTracker) Close(c Completion) error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	defer t.release()

	ctx := context.Background()
	if c == Completed || t.exhausted {
		if err := t.store.Erase(); err != nil {
			observability.LogCheckpointError(t.logger, t.path, "erase", err)
			return err
		}
		t.cfg.metrics.RecordErase(ctx)
		observability.LogCheckpointErased(t.logger, t.path)
		return nil
	}

	ctx, span := t.cfg.spans.StartSaveSpan(ctx, t.path, t.sessionID, "position")
	done := observability.TimedOperation()

	st := state.New()
	st.Set(PosKey, t.offset)
	err := t.store.Save(st)

	durationMs := done()
	t.cfg.metrics.RecordSave(ctx, "position", 0,
		time.Duration(durationMs*float64(time.Millisecond)), err)
	t.cfg.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogCheckpointError(t.logger, t.path, "save", err)
		return err
	}
	observability.LogCheckpointSaved(t.logger, t.path, "position", 0, durationMs)
	return nil
}

// release closes the stream when it supports closing.
func (t *FileTracker) release() error {
	if c, ok := t.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// posFromState extracts the recorded byte offset, defaulting to 0.
func posFromState(st *state.State) (int64, error) {
	v, err := st.Get(PosKey)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, fmt.Errorf("%w: position has unexpected type %T", ErrCorruptCheckpoint, v)
}

// Rewind realigns pos to a line boundary by scanning the stream
// backward, and seeks there. The returned offset o satisfies o <= pos,
// and either o == 0 or the byte at o-1 is a line terminator. When pos
// sits just after a terminator, the whole preceding line is backed over
// so it is replayed; when pos falls mid-line, o is the start of that
// line.
func Rewind(rs io.ReadSeeker, pos int64) (int64, error) {
	newpos, _, err := rewindScan(rs, pos)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(newpos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to line boundary: %w", err)
	}
	return newpos, nil
}

// rewindScan scans backward from pos in windows of RewindStep, 2*RewindStep,
// ... bytes (clamped at the stream start) until the window holds at
// least two line breaks or covers the whole prefix, then locates the
// start of the last line begun before pos. Returns the aligned offset
// and the window size that was needed.
func rewindScan(rs io.ReadSeeker, pos int64) (int64, int64, error) {
	if pos <= 0 {
		return 0, 0, nil
	}

	var backtrack int64
	var window []byte
	for {
		backtrack += RewindStep
		if backtrack > pos {
			backtrack = pos
		}
		if _, err := rs.Seek(pos-backtrack, io.SeekStart); err != nil {
			return 0, 0, fmt.Errorf("seek rewind window: %w", err)
		}
		window = make([]byte, backtrack)
		if _, err := io.ReadFull(rs, window); err != nil {
			return 0, 0, fmt.Errorf("read rewind window: %w", err)
		}
		if bytes.Count(window, []byte{'\n'}) >= 2 || backtrack == pos {
			break
		}
	}

	// A terminator right at pos ends the line to back over; strip it so
	// the scan finds that line's start, not pos itself.
	w := window
	if len(w) > 0 && w[len(w)-1] == '\n' {
		w = w[:len(w)-1]
	}
	newpos := int64(0)
	if i := bytes.LastIndexByte(w, '\n'); i >= 0 {
		newpos = pos - backtrack + int64(i) + 1
	}
	return newpos, backtrack, nil
}
