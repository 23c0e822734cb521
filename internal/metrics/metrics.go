// Package metrics records micwatch activity through the OpenTelemetry
// metrics API. InitProvider bridges the instruments to Prometheus so they can
// be scraped from the status server's /metrics endpoint. Tests build their
// own Metrics with New and a ManualReader-backed provider.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all micwatch metrics
const meterName = "github.com/yok-tottii/micwatch"

// Metrics holds the instruments. All fields are safe for concurrent use.
type Metrics struct {
	// Frames counts processed audio frames. Attribute: loop.
	Frames metric.Int64Counter

	// Loudness records the RMS of every processed frame.
	Loudness metric.Float64Histogram

	// Triggers counts detections. Attributes: backend, keyword, approximate.
	Triggers metric.Int64Counter

	// Adjustments counts gain control decisions. Attribute: action.
	Adjustments metric.Int64Counter

	// VolumeErrors counts failed mixer calls. Attribute: op (read or write).
	VolumeErrors metric.Int64Counter

	// Volume tracks the last known capture volume in percent.
	Volume metric.Int64Gauge
}

// loudnessBuckets spans silence to 16-bit full scale
var loudnessBuckets = []float64{
	100, 250, 500, 1000, 2000, 4000, 8000, 12000, 16000, 24000, 32768,
}

// New creates all instruments on the given provider
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("micwatch.frames",
		metric.WithDescription("Audio frames processed by loop."),
	); err != nil {
		return nil, err
	}
	if met.Loudness, err = m.Float64Histogram("micwatch.loudness",
		metric.WithDescription("RMS loudness of processed frames."),
		metric.WithExplicitBucketBoundaries(loudnessBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Triggers, err = m.Int64Counter("micwatch.triggers",
		metric.WithDescription("Wake word detections by backend and keyword."),
	); err != nil {
		return nil, err
	}
	if met.Adjustments, err = m.Int64Counter("micwatch.agc.adjustments",
		metric.WithDescription("Gain control decisions by action."),
	); err != nil {
		return nil, err
	}
	if met.VolumeErrors, err = m.Int64Counter("micwatch.volume.errors",
		metric.WithDescription("Failed mixer reads and writes."),
	); err != nil {
		return nil, err
	}
	if met.Volume, err = m.Int64Gauge("micwatch.volume",
		metric.WithDescription("Capture volume."),
		metric.WithUnit("%"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level Metrics on the global provider.
// It panics if instrument creation fails.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame counts one frame and records its loudness
func (m *Metrics) RecordFrame(ctx context.Context, loop string, rms float64) {
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("loop", loop)))
	m.Loudness.Record(ctx, rms, metric.WithAttributes(attribute.String("loop", loop)))
}

// RecordTrigger counts one detection
func (m *Metrics) RecordTrigger(ctx context.Context, backend, keyword string, approximate bool) {
	m.Triggers.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("keyword", keyword),
			attribute.Bool("approximate", approximate),
		),
	)
}

// RecordAdjustment counts one gain control decision and sets the volume gauge
// to the volume after the decision
func (m *Metrics) RecordAdjustment(ctx context.Context, action string, volume int) {
	m.Adjustments.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	m.Volume.Record(ctx, int64(volume))
}

// RecordVolumeError counts one failed mixer call
func (m *Metrics) RecordVolumeError(ctx context.Context, op string) {
	m.VolumeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
