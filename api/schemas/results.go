package schemas

import (
	"strings"
	"time"
)

// ScriptStatus is the bridge side classification of a script run.
type ScriptStatus string

const (
	StatusSuccess        ScriptStatus = "SUCCESS"
	StatusCompileError   ScriptStatus = "COMPILE_ERROR"
	StatusExecutionError ScriptStatus = "EXECUTION_ERROR"
	StatusBusy           ScriptStatus = "BUSY"
	StatusEngineError    ScriptStatus = "ENGINE_ERROR"
)

// Response codes reported by the remote engine.
const (
	EngineCodeSuccess          = 0
	EngineCodeCompileError     = 1
	EngineCodeExecutionError   = 2
	EngineCodeInternalError    = 3
	EngineCodeToolBusy         = 4
	EngineCodeIncorrectRequest = 5
)

// StatusFromEngineCode maps an engine response code onto a ScriptStatus.
// Codes without a direct counterpart are reported as engine errors.
func StatusFromEngineCode(code int) ScriptStatus {
	switch code {
	case EngineCodeSuccess:
		return StatusSuccess
	case EngineCodeCompileError:
		return StatusCompileError
	case EngineCodeExecutionError:
		return StatusExecutionError
	case EngineCodeToolBusy:
		return StatusBusy
	default:
		return StatusEngineError
	}
}

// ActionOutput is the text one action produced, tagged with the action id
// when the engine reported one.
type ActionOutput struct {
	ActionID string `json:"actionId,omitempty"`
	Data     string `json:"data"`
}

// ScriptResult is the outcome of one script execution.
type ScriptResult struct {
	Status        ScriptStatus   `json:"status"`
	EngineCode    int            `json:"engineCode"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	Outputs       []ActionOutput `json:"outputs,omitempty"`
	ScreenshotIDs []string       `json:"screenshotIds,omitempty"`
}

// Succeeded reports whether the script ran to completion.
func (r *ScriptResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// ErrorResult builds a failed result carrying msg.
func ErrorResult(status ScriptStatus, msg string) *ScriptResult {
	return &ScriptResult{Status: status, EngineCode: -1, ErrorMessage: msg}
}

// ParseActionOutput splits an "id=data" line as produced by the engine. Lines
// without a separator carry no id.
func ParseActionOutput(line, lineSeparator string) ActionOutput {
	if lineSeparator != "" {
		line = strings.ReplaceAll(line, lineSeparator, "\n")
	}
	if id, data, ok := strings.Cut(line, "="); ok && id != "" && !strings.ContainsAny(id, " \n") {
		return ActionOutput{ActionID: id, Data: data}
	}
	return ActionOutput{Data: line}
}

// Artifact is a binary resource fetched from the engine, such as a screenshot.
type Artifact struct {
	Type        string
	ID          string
	ContentType string
	Data        []byte
}

// BatchRequest is a single request to execute a list of actions on a session.
type BatchRequest struct {
	SessionID     string            `json:"sessionId" yaml:"sessionId"`
	Actions       []Action          `json:"-" yaml:"-"`
	Variables     map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Timeout       time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	EventName     string            `json:"eventName,omitempty" yaml:"eventName,omitempty"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	ParentEventID string            `json:"parentEventId,omitempty" yaml:"parentEventId,omitempty"`
	// RequestParams, when set, is printed as a table titled RequestParamsTitle.
	RequestParams      map[string]string `json:"requestParams,omitempty" yaml:"requestParams,omitempty"`
	RequestParamsTitle string            `json:"requestParamsTitle,omitempty" yaml:"requestParamsTitle,omitempty"`
	// StoreActionMessages adds the action messages table to the event.
	StoreActionMessages bool `json:"storeActionMessages,omitempty" yaml:"storeActionMessages,omitempty"`
}

// BatchResponse is the structured reply to a BatchRequest.
type BatchResponse struct {
	SessionID        string         `json:"sessionId"`
	EngineSessionID  string         `json:"engineSessionId,omitempty"`
	Status           ScriptStatus   `json:"status"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	Outputs          []ActionOutput `json:"outputs,omitempty"`
	MessageIDs       []MessageID    `json:"messageIds,omitempty"`
	EventID          string         `json:"eventId,omitempty"`
	ExecutionSeconds float64        `json:"executionSeconds"`
}
