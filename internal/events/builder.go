package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

const (
	// EventType is the type recorded on batch events.
	EventType = "HandBatch"

	DefaultEventName = "Hand batch execution"
)

// Input gathers what an event describes.
type Input struct {
	// ID is used as the event id when set; otherwise a fresh uuid is generated.
	ID      string
	Start   time.Time
	Request *schemas.BatchRequest
	Result  *schemas.ScriptResult
	// EngineSessionID is shown in the result table.
	EngineSessionID string
	MessageIDs      []schemas.MessageID
}

// Builder turns executed batches into events.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewID returns a fresh event id.
func NewID() string {
	return uuid.NewString()
}

// Build assembles the event. The payload holds the request description and
// parameters, a result table and, when requested, the per action output.
func (b *Builder) Build(in Input) (*schemas.Event, error) {
	if in.Request == nil || in.Result == nil {
		return nil, fmt.Errorf("event needs both a request and a result")
	}

	id := in.ID
	if id == "" {
		id = NewID()
	}
	name := in.Request.EventName
	if name == "" {
		name = DefaultEventName
	}
	status := schemas.EventFailed
	if in.Result.Succeeded() {
		status = schemas.EventSuccess
	}

	payload := NewPayloadBuilder()
	if in.Request.Description != "" {
		payload.PrintText("Description: \n" + in.Request.Description)
	}
	if len(in.Request.RequestParams) > 0 {
		title := in.Request.RequestParamsTitle
		if title == "" {
			title = "Request parameters"
		}
		payload.PrintTable(title, RowsFromMap(in.Request.RequestParams))
	}
	payload.PrintTable("Result", resultRows(in.Result, in.EngineSessionID))
	if in.Request.StoreActionMessages && len(in.Result.Outputs) > 0 {
		payload.PrintTable("Action messages", outputRows(in.Result.Outputs))
	}

	body, err := payload.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode event payload: %w", err)
	}

	start := in.Start
	if start.IsZero() {
		start = b.now()
	}
	return &schemas.Event{
		ID:                 id,
		ParentID:           in.Request.ParentEventID,
		Name:               name,
		Type:               EventType,
		Status:             status,
		StartTimestamp:     start.UTC(),
		EndTimestamp:       b.now().UTC(),
		Body:               body,
		AttachedMessageIDs: in.MessageIDs,
	}, nil
}

func resultRows(res *schemas.ScriptResult, engineSessionID string) []Row {
	rows := []Row{{Name: "Action status", Value: string(res.Status)}}
	if res.ErrorMessage != "" {
		rows = append(rows, Row{Name: "Errors", Value: res.ErrorMessage})
	}
	return append(rows, Row{Name: "SessionId", Value: engineSessionID})
}

func outputRows(outputs []schemas.ActionOutput) []Row {
	rows := make([]Row, 0, len(outputs))
	for i, out := range outputs {
		name := out.ActionID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		rows = append(rows, Row{Name: name, Value: out.Data})
	}
	return rows
}
