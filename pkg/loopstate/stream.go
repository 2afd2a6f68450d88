package loopstate

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/loopstate/pkg/loopstate/backend"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// Streaming checkpoint format: line 1 is one compact record of the
// auxiliary state, each following line is one record for exactly one
// remaining item. No blank lines.

// openStream opens a streaming checkpoint. The first line is decoded
// eagerly as the auxiliary state; the rest of the file is exposed as a
// lazy per-line source that owns the file handle and releases it exactly
// once, either on drain or on close.
func openStream[T any](path string, codec state.Codec) (*state.State, source[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open checkpoint: %w", err)
	}

	br := bufio.NewReader(f)
	head, err := br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		f.Close()
		return nil, nil, fmt.Errorf("read checkpoint header: %w", err)
	}

	var m map[string]any
	if derr := codec.Decode(head, &m); derr != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: header: %v", ErrCorruptCheckpoint, derr)
	}

	return state.FromMap(m), &streamSource[T]{f: f, br: br, codec: codec}, nil
}

// streamSource lazily decodes one remaining item per line from an open
// checkpoint file.
type streamSource[T any] struct {
	f      *os.File
	br     *bufio.Reader
	codec  state.Codec
	closed bool
}

func (s *streamSource[T]) next() (T, bool, error) {
	var zero T
	if s.closed {
		return zero, false, nil
	}
	for {
		line, err := s.br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			s.close()
			return zero, false, fmt.Errorf("read checkpoint stream: %w", err)
		}

		rec := bytes.TrimSpace(line)
		if len(rec) == 0 {
			if err == io.EOF {
				s.close()
				return zero, false, nil
			}
			continue
		}

		var v T
		if derr := s.codec.Decode(rec, &v); derr != nil {
			s.close()
			return zero, false, fmt.Errorf("%w: item: %v", ErrCorruptCheckpoint, derr)
		}
		return v, true, nil
	}
}

func (s *streamSource[T]) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// dumpStream persists the auxiliary state and the live remaining
// sequence as a streaming checkpoint: one record per line, consumed
// lazily so the whole tail is never materialized. The write goes to a
// temporary file and atomically replaces the checkpoint path, so a
// record that fails to encode mid-stream leaves any previous checkpoint
// intact. Returns the bytes written and items persisted.
func (it *Iterator[T]) dumpStream() (int64, int, error) {
	head, err := it.cfg.codec.Encode(it.auxState().Map())
	if err != nil {
		return 0, 0, err
	}

	var (
		size  int64
		items int
	)
	err = backend.WriteFileAtomic(it.path, func(w io.Writer) error {
		cw := &countWriter{w: w}
		bw := bufio.NewWriter(cw)

		if _, err := bw.Write(head); err != nil {
			return fmt.Errorf("write checkpoint header: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write checkpoint header: %w", err)
		}

		for {
			v, ok, err := it.src.next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			rec, err := it.cfg.codec.Encode(v)
			if err != nil {
				return err
			}
			if _, err := bw.Write(rec); err != nil {
				return fmt.Errorf("write checkpoint item: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("write checkpoint item: %w", err)
			}
			items++
		}

		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush checkpoint: %w", err)
		}
		size = cw.n
		return nil
	})
	return size, items, err
}
