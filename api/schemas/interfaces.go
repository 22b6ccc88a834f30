package schemas

import (
	"context"
)

// -- Sink Interfaces --

// MessageSink receives size-bounded batches of raw messages.
type MessageSink interface {
	SendBatch(ctx context.Context, batch []*RawMessage) error
}

// EventSink persists batch events.
type EventSink interface {
	StoreEvent(ctx context.Context, event *Event) error
}

// Sink is a store able to receive both messages and events.
type Sink interface {
	MessageSink
	EventSink
	Close() error
}
