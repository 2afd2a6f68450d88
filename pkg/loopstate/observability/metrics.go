package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records loopstate metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordResume records a resume from an existing checkpoint.
	RecordResume(ctx context.Context, mode string)

	// RecordSave records a checkpoint persistence with its duration and size.
	RecordSave(ctx context.Context, mode string, sizeBytes int64, duration time.Duration, err error)

	// RecordErase records a checkpoint erasure on clean completion.
	RecordErase(ctx context.Context)

	// RecordRewind records a backward line-boundary scan and the window
	// size it needed.
	RecordRewind(ctx context.Context, windowBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	resumes     metric.Int64Counter
	saves       metric.Int64Counter
	saveErrors  metric.Int64Counter
	saveLatency metric.Float64Histogram
	saveSize    metric.Int64Histogram
	erasures    metric.Int64Counter
	rewindBytes metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("loopstate")

	resumes, err := meter.Int64Counter("loopstate.checkpoint.resumes",
		metric.WithDescription("Number of resumes from an existing checkpoint"),
	)
	if err != nil {
		return nil, err
	}

	saves, err := meter.Int64Counter("loopstate.checkpoint.saves",
		metric.WithDescription("Number of checkpoint persist operations"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("loopstate.checkpoint.save_errors",
		metric.WithDescription("Number of failed checkpoint persist operations"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("loopstate.checkpoint.save_latency_ms",
		metric.WithDescription("Checkpoint persist latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	saveSize, err := meter.Int64Histogram("loopstate.checkpoint.size_bytes",
		metric.WithDescription("Persisted checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	erasures, err := meter.Int64Counter("loopstate.checkpoint.erasures",
		metric.WithDescription("Number of checkpoints erased on clean completion"),
	)
	if err != nil {
		return nil, err
	}

	rewindBytes, err := meter.Int64Histogram("loopstate.rewind.window_bytes",
		metric.WithDescription("Window size needed by the backward line scan"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		resumes:     resumes,
		saves:       saves,
		saveErrors:  saveErrors,
		saveLatency: saveLatency,
		saveSize:    saveSize,
		erasures:    erasures,
		rewindBytes: rewindBytes,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordResume records a resume from an existing checkpoint.
func (m *otelMetrics) RecordResume(ctx context.Context, mode string) {
	m.resumes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

// RecordSave records a checkpoint persistence.
func (m *otelMetrics) RecordSave(ctx context.Context, mode string, sizeBytes int64, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("mode", mode),
	}

	m.saves.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.saveErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}
	m.saveSize.Record(ctx, sizeBytes, metric.WithAttributes(attrs...))
}

// RecordErase records a checkpoint erasure.
func (m *otelMetrics) RecordErase(ctx context.Context) {
	m.erasures.Add(ctx, 1)
}

// RecordRewind records a backward line scan.
func (m *otelMetrics) RecordRewind(ctx context.Context, windowBytes int64) {
	m.rewindBytes.Record(ctx, windowBytes)
}
