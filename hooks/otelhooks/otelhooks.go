// Package otelhooks records oncecache events as OpenTelemetry metrics.
//
// Storage keys are not attached as attributes (unbounded cardinality); every
// instrument carries only the cache namespace plus a small fixed attribute.
package otelhooks

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/oncecache"
)

const scope = "github.com/unkn0wn-root/oncecache"

type Hooks struct {
	ns attribute.KeyValue

	lookups       metric.Int64Counter
	entryAge      metric.Float64Histogram
	computeDur    metric.Float64Histogram
	computeErrors metric.Int64Counter
	contended     metric.Int64Counter
	waitDur       metric.Float64Histogram
	fenced        metric.Int64Counter
	corrupt       metric.Int64Counter
	releaseErrors metric.Int64Counter
}

var _ oncecache.Hooks = (*Hooks)(nil)

// NewGlobal uses the meter of the global MeterProvider.
func NewGlobal(namespace string) (*Hooks, error) {
	return New(otel.Meter(scope), namespace)
}

func New(meter metric.Meter, namespace string) (*Hooks, error) {
	h := &Hooks{ns: attribute.String("oncecache.namespace", namespace)}
	var err error

	if h.lookups, err = meter.Int64Counter("oncecache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}")); err != nil {
		return nil, err
	}
	if h.entryAge, err = meter.Float64Histogram("oncecache.entry.age_ms",
		metric.WithDescription("Age of entries served from the backend"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if h.computeDur, err = meter.Float64Histogram("oncecache.compute.duration_ms",
		metric.WithDescription("Producer run time in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if h.computeErrors, err = meter.Int64Counter("oncecache.compute.errors",
		metric.WithDescription("Producer runs that failed"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if h.contended, err = meter.Int64Counter("oncecache.lease.contended",
		metric.WithDescription("Lease acquisitions lost to another populator"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if h.waitDur, err = meter.Float64Histogram("oncecache.lease.wait_ms",
		metric.WithDescription("Time spent waiting on another populator"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if h.fenced, err = meter.Int64Counter("oncecache.write.fenced",
		metric.WithDescription("Writes skipped because the lease was lost"),
		metric.WithUnit("{write}")); err != nil {
		return nil, err
	}
	if h.corrupt, err = meter.Int64Counter("oncecache.entry.corrupt",
		metric.WithDescription("Stored entries that could not be read back"),
		metric.WithUnit("{entry}")); err != nil {
		return nil, err
	}
	if h.releaseErrors, err = meter.Int64Counter("oncecache.lease.release_errors",
		metric.WithDescription("Failed lease releases"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hooks) attrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{h.ns}, kv...)...)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}
	return attribute.String("outcome", "ok")
}

func (h *Hooks) Hit(_ string, age time.Duration) {
	ctx := context.Background()
	h.lookups.Add(ctx, 1, h.attrs(attribute.String("result", "hit")))
	h.entryAge.Record(ctx, ms(age), h.attrs())
}

func (h *Hooks) Miss(string) {
	h.lookups.Add(context.Background(), 1, h.attrs(attribute.String("result", "miss")))
}

func (h *Hooks) Computed(_ string, took time.Duration, err error) {
	ctx := context.Background()
	h.computeDur.Record(ctx, ms(took), h.attrs(outcome(err)))
	if err != nil {
		h.computeErrors.Add(ctx, 1, h.attrs())
	}
}

func (h *Hooks) LeaseContended(string) {
	h.contended.Add(context.Background(), 1, h.attrs())
}

func (h *Hooks) LeaseWaited(_ string, took time.Duration, err error) {
	h.waitDur.Record(context.Background(), ms(took), h.attrs(outcome(err)))
}

func (h *Hooks) WriteFenced(string, string) {
	h.fenced.Add(context.Background(), 1, h.attrs())
}

func (h *Hooks) CorruptEntry(_, reason string) {
	h.corrupt.Add(context.Background(), 1, h.attrs(attribute.String("reason", reason)))
}

func (h *Hooks) LeaseReleaseError(string, error) {
	h.releaseErrors.Add(context.Background(), 1, h.attrs())
}
