// Package messages turns requests, results and artifacts into raw messages
// for the message store.
package messages

import (
	"fmt"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionNameField carries the action kind in request message bodies.
const ActionNameField = "ActionName"

// Builder stamps messages with ids that increase monotonically across all
// aliases. It is safe for concurrent use.
type Builder struct {
	group string
	seq   atomic.Int64
	now   func() time.Time
}

// NewBuilder creates a Builder whose sequence starts at the current time in
// nanoseconds, so sequences keep growing across restarts.
func NewBuilder(group string) *Builder {
	b := &Builder{group: group, now: time.Now}
	b.seq.Store(time.Now().UnixNano())
	return b
}

func (b *Builder) newMessage(alias string, dir schemas.Direction, body []byte) *schemas.RawMessage {
	return &schemas.RawMessage{
		ID: schemas.MessageID{
			SessionAlias: alias,
			SessionGroup: b.group,
			Direction:    dir,
			Sequence:     b.seq.Add(1),
		},
		Timestamp: b.now().UTC(),
		Body:      body,
	}
}

type requestBody struct {
	Messages []map[string]any `json:"messages"`
}

// OnRequest records the actions sent to the engine as one outgoing message.
func (b *Builder) OnRequest(actions []schemas.Action, alias string) (*schemas.RawMessage, error) {
	body := requestBody{Messages: make([]map[string]any, 0, len(actions))}
	for _, action := range actions {
		if action == nil {
			continue
		}
		fields, err := actionFields(action)
		if err != nil {
			return nil, err
		}
		fields[ActionNameField] = string(action.Kind())
		body.Messages = append(body.Messages, fields)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request message: %w", err)
	}
	msg := b.newMessage(alias, schemas.DirectionSecond, data)
	msg.Protocol = "json"
	return msg, nil
}

func actionFields(action schemas.Action) (map[string]any, error) {
	data, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s action: %w", action.Kind(), err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s action: %w", action.Kind(), err)
	}
	return fields, nil
}

type responseBody struct {
	ScriptOutputCode string         `json:"ScriptOutputCode"`
	ErrorText        string         `json:"ErrorText"`
	ActionResults    []actionResult `json:"ActionResults"`
	RhSessionID      string         `json:"RhSessionId"`
}

type actionResult struct {
	ID   string `json:"id,omitempty"`
	Data string `json:"data"`
}

// OnResponse records the engine's answer as one incoming message.
func (b *Builder) OnResponse(result *schemas.ScriptResult, alias, engineSessionID string) (*schemas.RawMessage, error) {
	if result == nil {
		return nil, fmt.Errorf("nil script result")
	}
	body := responseBody{
		ScriptOutputCode: string(result.Status),
		ErrorText:        result.ErrorMessage,
		ActionResults:    make([]actionResult, 0, len(result.Outputs)),
		RhSessionID:      engineSessionID,
	}
	for _, out := range result.Outputs {
		body.ActionResults = append(body.ActionResults, actionResult{ID: out.ActionID, Data: out.Data})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response message: %w", err)
	}
	msg := b.newMessage(alias, schemas.DirectionFirst, data)
	msg.Protocol = "json"
	return msg, nil
}

// FromArtifact wraps downloaded binary content such as a screenshot.
func (b *Builder) FromArtifact(artifact *schemas.Artifact, alias string) *schemas.RawMessage {
	msg := b.newMessage(alias, schemas.DirectionFirst, artifact.Data)
	msg.Protocol = artifact.ContentType
	msg.Properties = map[string]string{
		"type": artifact.Type,
		"id":   artifact.ID,
	}
	return msg
}

// AttachTo sets the parent event of every message.
func AttachTo(eventID string, msgs ...*schemas.RawMessage) {
	for _, m := range msgs {
		if m != nil {
			m.ParentEventID = eventID
		}
	}
}

// IDs returns the ids of the non-nil messages.
func IDs(msgs ...*schemas.RawMessage) []schemas.MessageID {
	ids := make([]schemas.MessageID, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
