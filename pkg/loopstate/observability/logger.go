// Package observability provides production-grade observability features
// for loopstate: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds loopstate context to a logger.
// Returns a new logger with session_id and checkpoint_path fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "a1b2c3d4", "loopy")
//	enriched.Info("resuming") // includes session_id, checkpoint_path
func EnrichLogger(logger *slog.Logger, sessionID, path string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("checkpoint_path", path),
	)
}

// LogResume logs resumption from an existing checkpoint.
func LogResume(logger *slog.Logger, path, mode string) {
	if logger == nil {
		return
	}
	logger.Info("resuming from checkpoint",
		slog.String("checkpoint_path", path),
		slog.String("mode", mode),
	)
}

// LogFreshStart logs iteration starting without a checkpoint.
func LogFreshStart(logger *slog.Logger, path string) {
	if logger == nil {
		return
	}
	logger.Debug("no checkpoint, starting fresh",
		slog.String("checkpoint_path", path),
	)
}

// LogCheckpointSaved logs a persisted checkpoint.
func LogCheckpointSaved(logger *slog.Logger, path, mode string, items int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint saved",
		slog.String("checkpoint_path", path),
		slog.String("mode", mode),
		slog.Int("remaining_items", items),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCheckpointErased logs checkpoint removal on clean completion.
func LogCheckpointErased(logger *slog.Logger, path string) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint erased",
		slog.String("checkpoint_path", path),
	)
}

// LogCheckpointError logs a failed checkpoint operation.
func LogCheckpointError(logger *slog.Logger, path, op string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint operation failed",
		slog.String("checkpoint_path", path),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogRewind logs a position realignment.
func LogRewind(logger *slog.Logger, from, to int64) {
	if logger == nil {
		return
	}
	logger.Debug("rewound to line boundary",
		slog.Int64("from_offset", from),
		slog.Int64("to_offset", to),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
