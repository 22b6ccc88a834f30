// Package dispatch forwards raw messages to a sink in batches bounded by a
// byte limit.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// DefaultLimit is the batch size used when none is configured.
const DefaultLimit int64 = 1 << 20

// Stats summarizes one Dispatch call.
type Stats struct {
	Batches int
	Units   int
	Skipped int
	Bytes   int64
	// Oversized counts batches holding a single unit larger than the limit.
	Oversized int
}

// Recorder observes flushed batches.
type Recorder interface {
	BatchFlushed(units int, bytes int64)
}

// Dispatcher greedily packs messages into batches of at most limit bytes.
// It holds no per-call state, so concurrent Dispatch calls are independent.
type Dispatcher struct {
	limit    int64
	sink     schemas.MessageSink
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder reports every flushed batch to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// New creates a Dispatcher. A non-positive limit selects DefaultLimit.
func New(limit int64, sink schemas.MessageSink, logger *zap.Logger, opts ...Option) *Dispatcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	d := &Dispatcher{
		limit:  limit,
		sink:   sink,
		logger: logger.Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Limit returns the configured byte limit.
func (d *Dispatcher) Limit() int64 { return d.limit }

// Dispatch sends units in input order. A unit that alone exceeds the limit is
// sent in a batch of its own and left for the sink to reject. Nil and empty
// units are skipped. Dispatch stops at the first sink error.
func (d *Dispatcher) Dispatch(ctx context.Context, units []*schemas.RawMessage) (Stats, error) {
	var (
		stats   Stats
		batch   []*schemas.RawMessage
		current int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.sink.SendBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to send batch of %d messages: %w", len(batch), err)
		}
		if current > d.limit {
			stats.Oversized++
			d.logger.Warn("Sent a message larger than the batch limit.",
				zap.Int64("size", current), zap.Int64("limit", d.limit))
		}
		stats.Batches++
		stats.Units += len(batch)
		stats.Bytes += current
		if d.recorder != nil {
			d.recorder.BatchFlushed(len(batch), current)
		}
		batch = nil
		current = 0
		return nil
	}

	for _, unit := range units {
		size := int64(unit.Size())
		if size == 0 {
			stats.Skipped++
			continue
		}
		if current+size > d.limit && len(batch) > 0 {
			if err := flush(); err != nil {
				return stats, err
			}
		}
		batch = append(batch, unit)
		current += size
	}
	if err := flush(); err != nil {
		return stats, err
	}

	d.logger.Debug("Dispatched messages.",
		zap.Int("batches", stats.Batches), zap.Int("units", stats.Units), zap.Int64("bytes", stats.Bytes))
	return stats, nil
}
