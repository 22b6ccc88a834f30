// Package bus publishes raw messages and events to NATS subjects.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrClosed          = errors.New("bus: closed")
	ErrPayloadTooLarge = errors.New("bus: payload exceeds server limit")
)

const (
	rawSubject   = "raw"
	eventSubject = "events"

	// envelopeOverhead is reserved for JSON framing and per message metadata.
	envelopeOverhead = 64 << 10
)

// Conn is the part of *nats.Conn the sink uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	MaxPayload() int64
	Close()
}

// Sink publishes batches to "<prefix>.raw" and events to "<prefix>.events".
type Sink struct {
	conn         Conn
	prefix       string
	flushTimeout time.Duration
	logger       *zap.Logger
	closed       atomic.Bool
}

// Connect dials the configured NATS server.
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*Sink, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	log := logger.Named("bus")
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("Disconnected from NATS.", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("Reconnected to NATS.", zap.String("url", c.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	sink := NewSink(conn, cfg.SubjectPrefix, logger)
	sink.flushTimeout = timeout
	return sink, nil
}

// NewSink wraps an existing connection.
func NewSink(conn Conn, prefix string, logger *zap.Logger) *Sink {
	if prefix == "" {
		prefix = "handbridge"
	}
	return &Sink{conn: conn, prefix: prefix, flushTimeout: 5 * time.Second, logger: logger.Named("bus")}
}

// BatchLimit returns the largest batch, in body bytes, that still fits the
// server's payload limit once bodies are base64 encoded.
func (s *Sink) BatchLimit() int64 {
	limit := s.conn.MaxPayload()*3/4 - envelopeOverhead
	if limit < 1 {
		return 1
	}
	return limit
}

type batchEnvelope struct {
	Messages []*schemas.RawMessage `json:"messages"`
}

func (s *Sink) SendBatch(ctx context.Context, batch []*schemas.RawMessage) error {
	if len(batch) == 0 {
		return nil
	}
	data, err := json.Marshal(batchEnvelope{Messages: batch})
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	return s.publish(ctx, rawSubject, data)
}

func (s *Sink) StoreEvent(ctx context.Context, event *schemas.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
	}
	return s.publish(ctx, eventSubject, data)
}

func (s *Sink) publish(ctx context.Context, kind string, data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if limit := s.conn.MaxPayload(); limit > 0 && int64(len(data)) > limit {
		return fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(data), limit)
	}

	subject := s.prefix + "." + kind
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.flushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", subject, err)
	}
	s.logger.Debug("Published.", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

func (s *Sink) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	s.conn.Close()
	return nil
}

var _ schemas.Sink = (*Sink)(nil)
