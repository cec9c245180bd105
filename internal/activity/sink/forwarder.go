// Package sink forwards activity records to an external consumer after they
// are stored. Forwarding never fails the write that produced the record.
package sink

import (
	"context"
	"log/slog"
	"sync"

	"lostfound/internal/activity/models"
	"lostfound/internal/platform/metrics"
)

// Sink delivers one record, e.g. to a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, rec *models.Record) error
}

// Forwarder hands records to a Sink, synchronously or from a buffered
// background goroutine.
type Forwarder struct {
	sink    Sink
	records chan *models.Record
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
	async   bool
}

type Option func(*Forwarder)

// WithAsyncBuffer queues up to size records and publishes them in the background.
func WithAsyncBuffer(size int) Option {
	return func(f *Forwarder) {
		if size > 0 {
			f.records = make(chan *models.Record, size)
			f.async = true
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

func NewForwarder(sink Sink, opts ...Option) *Forwarder {
	f := &Forwarder{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if f.async {
		f.wg.Add(1)
		go f.process()
	}
	return f
}

func (f *Forwarder) process() {
	defer f.wg.Done()
	for rec := range f.records {
		f.publish(context.Background(), rec)
	}
}

// Close stops accepting records and waits for the buffer to drain.
func (f *Forwarder) Close() {
	if f.async && f.records != nil {
		close(f.records)
		f.wg.Wait()
	}
}

// Forward delivers rec. In async mode a full buffer drops the record with a
// warning rather than blocking the caller.
func (f *Forwarder) Forward(ctx context.Context, rec *models.Record) {
	if !f.async {
		f.publish(ctx, rec)
		return
	}
	select {
	case f.records <- rec:
	default:
		f.metrics.IncActivitySinkFailure()
		f.logger.WarnContext(ctx, "activity sink buffer full, record dropped",
			"activity_id", rec.ID.String(),
			"kind", string(rec.Kind),
		)
	}
}

func (f *Forwarder) publish(ctx context.Context, rec *models.Record) {
	if err := f.sink.Publish(ctx, rec); err != nil {
		f.metrics.IncActivitySinkFailure()
		f.logger.ErrorContext(ctx, "failed to forward activity record",
			"error", err,
			"activity_id", rec.ID.String(),
			"kind", string(rec.Kind),
		)
	}
}
