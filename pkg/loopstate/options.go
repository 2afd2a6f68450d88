package loopstate

import (
	"log/slog"

	"github.com/randalmurphal/loopstate/pkg/loopstate/config"
	"github.com/randalmurphal/loopstate/pkg/loopstate/observability"
	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// DefaultMaterializeLimit caps how many remaining items unsafe-mode
// persistence will materialize before failing with ErrTooManyRemaining.
// The cap exists so an effectively infinite source fails fast instead of
// hanging at interruption time.
const DefaultMaterializeLimit = 1 << 20

// iterConfig holds configuration shared by iterators and file trackers.
type iterConfig struct {
	codec            state.Codec
	cacheFirst       bool
	safe             bool
	realign          bool
	materializeLimit int
	logger           *slog.Logger
	metrics          observability.MetricsRecorder
	spans            observability.SpanManager
}

// defaultIterConfig returns the default configuration.
func defaultIterConfig() iterConfig {
	return iterConfig{
		codec:            state.JSONCodec{},
		cacheFirst:       true,
		safe:             true,
		materializeLimit: DefaultMaterializeLimit,
		metrics:          observability.NoopMetrics{},
		spans:            observability.NoopSpanManager{},
	}
}

// Option configures an Iterator, RequeueIterator, or FileTracker.
type Option func(*iterConfig)

// WithCacheFirst controls resume precedence. When true (the default), an
// existing checkpoint's remaining sequence wins over a freshly supplied
// one; when false, the fresh sequence wins and the checkpoint is only a
// fallback when no fresh sequence was given.
//
// Nothing verifies the two sequences represent the same logical data;
// the precedence is a caller contract.
func WithCacheFirst(cacheFirst bool) Option {
	return func(c *iterConfig) {
		c.cacheFirst = cacheFirst
	}
}

// WithUnsafe selects whole-object persistence: the auxiliary state and
// the fully materialized remaining sequence are gob-encoded as one
// binary blob. This supports values the streaming JSON format cannot
// express, but requires the whole tail in memory at interruption time,
// and decoding the blob must be treated as executing trusted input only.
func WithUnsafe() Option {
	return func(c *iterConfig) {
		c.safe = false
	}
}

// WithCodec sets the record codec for streaming checkpoints and
// plain-mapping position checkpoints. Default: state.JSONCodec.
//
// Streaming checkpoints need a codec whose records fit on one line;
// multi-line codecs such as state.YAMLCodec only suit whole-mapping use.
func WithCodec(codec state.Codec) Option {
	return func(c *iterConfig) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithMaterializeLimit caps unsafe-mode materialization at n items.
// Exceeding the cap fails persistence with ErrTooManyRemaining.
// Default: DefaultMaterializeLimit.
func WithMaterializeLimit(n int) Option {
	return func(c *iterConfig) {
		if n > 0 {
			c.materializeLimit = n
		}
	}
}

// WithRealign makes a FileTracker run the backward line-boundary scan on
// the loaded offset before seeking. Use when the recorded offset may not
// fall on a line boundary, e.g. because it came from a buffered reader
// that was ahead of the logically consumed point.
func WithRealign() Option {
	return func(c *iterConfig) {
		c.realign = true
	}
}

// WithLogger enables structured logging. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *iterConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *iterConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets the trace span manager. Default: no-op.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(c *iterConfig) {
		if sm != nil {
			c.spans = sm
		}
	}
}

// FromConfig maps configuration keys to options:
//
//	safe              bool, default true
//	cache_first       bool, default true
//	realign           bool, default false
//	materialize_limit int, default DefaultMaterializeLimit
func FromConfig(cfg config.Config) []Option {
	opts := []Option{
		WithCacheFirst(cfg.Bool("cache_first", true)),
		WithMaterializeLimit(cfg.Int("materialize_limit", DefaultMaterializeLimit)),
	}
	if !cfg.Bool("safe", true) {
		opts = append(opts, WithUnsafe())
	}
	if cfg.Bool("realign", false) {
		opts = append(opts, WithRealign())
	}
	return opts
}
