package schemas

import (
	"fmt"
	"time"
)

// Direction of a raw message relative to the engine.
type Direction string

const (
	// DirectionFirst marks messages coming back from the engine.
	DirectionFirst Direction = "FIRST"
	// DirectionSecond marks messages sent to the engine.
	DirectionSecond Direction = "SECOND"
)

// MessageID uniquely identifies a raw message within a session alias.
type MessageID struct {
	SessionAlias string    `json:"sessionAlias"`
	SessionGroup string    `json:"sessionGroup,omitempty"`
	Direction    Direction `json:"direction"`
	Sequence     int64     `json:"sequence"`
}

func (id MessageID) String() string {
	return fmt.Sprintf("%s:%s:%d", id.SessionAlias, id.Direction, id.Sequence)
}

// RawMessage is one unit forwarded to the message store.
type RawMessage struct {
	ID            MessageID         `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Protocol      string            `json:"protocol,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	ParentEventID string            `json:"parentEventId,omitempty"`
	Body          []byte            `json:"body"`
}

// Size is the number of payload bytes the message contributes to a batch.
func (m *RawMessage) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Body)
}

// EventStatus is the outcome recorded on an event.
type EventStatus string

const (
	EventSuccess EventStatus = "SUCCESS"
	EventFailed  EventStatus = "FAILED"
)

// Event is the report of one executed batch.
type Event struct {
	ID                 string      `json:"id"`
	ParentID           string      `json:"parentId,omitempty"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`
	Status             EventStatus `json:"status"`
	StartTimestamp     time.Time   `json:"startTimestamp"`
	EndTimestamp       time.Time   `json:"endTimestamp"`
	Body               []byte      `json:"body"`
	AttachedMessageIDs []MessageID `json:"attachedMessageIds,omitempty"`
}
