package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// LogSink writes batches and events to the log instead of a store.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("log_sink")}
}

func (s *LogSink) SendBatch(_ context.Context, batch []*schemas.RawMessage) error {
	for _, msg := range batch {
		s.logger.Info("Message.",
			zap.Stringer("id", msg.ID),
			zap.String("protocol", msg.Protocol),
			zap.Int("size", msg.Size()),
			zap.String("parent_event_id", msg.ParentEventID),
		)
	}
	return nil
}

func (s *LogSink) StoreEvent(_ context.Context, event *schemas.Event) error {
	s.logger.Info("Event.",
		zap.String("id", event.ID),
		zap.String("name", event.Name),
		zap.String("status", string(event.Status)),
		zap.Int("attached_messages", len(event.AttachedMessageIDs)),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

var _ schemas.Sink = (*LogSink)(nil)
