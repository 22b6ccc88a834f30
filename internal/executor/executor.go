// Package executor runs action batches on registered engine sessions and
// reports what happened to the message and event stores.
package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/dispatch"
	"github.com/xkilldash9x/handbridge/internal/events"
	"github.com/xkilldash9x/handbridge/internal/messages"
	"github.com/xkilldash9x/handbridge/internal/script"
	"github.com/xkilldash9x/handbridge/internal/serializer"
	"github.com/xkilldash9x/handbridge/internal/session"
)

// ScreenshotKind is the artifact type requested for screenshot ids.
const ScreenshotKind = "screenshot"

// ErrEmptyScript is returned when no action of a batch could be serialized.
var ErrEmptyScript = errors.New("batch contains no executable actions")

// persistTimeout bounds message and event storage once a batch has run.
const persistTimeout = 30 * time.Second

// ScriptObserver is told about every finished script.
type ScriptObserver interface {
	ScriptFinished(status schemas.ScriptStatus, elapsed time.Duration)
}

// Config carries the settings the executor reads on every batch.
type Config struct {
	SessionAlias        string
	ScreenshotAlias     string
	SessionGroup        string
	ResponseTimeout     time.Duration
	TemplatesDir        string
	Variables           map[string]string
	StoreActionMessages bool
}

// ConfigFrom extracts the executor settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SessionAlias:        cfg.Messages.SessionAlias,
		ScreenshotAlias:     cfg.Messages.ScreenshotAlias(),
		SessionGroup:        cfg.Messages.SessionGroup,
		ResponseTimeout:     cfg.Remote.ResponseTimeout,
		TemplatesDir:        cfg.Script.TemplatesDir,
		Variables:           cfg.Script.Variables,
		StoreActionMessages: cfg.Messages.StoreActionMessages,
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver reports script outcomes to o.
func WithObserver(o ScriptObserver) Option {
	return func(e *Executor) { e.observer = o }
}

// WithSerializer replaces the default serializer.
func WithSerializer(s *serializer.Serializer) Option {
	return func(e *Executor) { e.serializer = s }
}

// Executor ties the registry, the script pipeline and the stores together.
type Executor struct {
	cfg        Config
	sessions   *session.Registry
	dispatcher *dispatch.Dispatcher
	eventSink  schemas.EventSink

	serializer *serializer.Serializer
	templates  *script.TemplateLoader
	messages   *messages.Builder
	events     *events.Builder
	observer   ScriptObserver

	logger *zap.Logger
	now    func() time.Time
}

// New builds an executor. Messages go through dispatcher, events to eventSink.
func New(cfg Config, sessions *session.Registry, dispatcher *dispatch.Dispatcher, eventSink schemas.EventSink, logger *zap.Logger, opts ...Option) (*Executor, error) {
	if sessions == nil || dispatcher == nil || eventSink == nil {
		return nil, fmt.Errorf("executor needs a session registry, a dispatcher and an event sink")
	}
	if cfg.SessionAlias == "" {
		cfg.SessionAlias = "th2-hand"
	}
	if cfg.ScreenshotAlias == "" {
		cfg.ScreenshotAlias = cfg.SessionAlias + "_screenshots"
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 120 * time.Second
	}

	log := logger.Named("executor")
	e := &Executor{
		cfg:        cfg,
		sessions:   sessions,
		dispatcher: dispatcher,
		eventSink:  eventSink,
		templates:  script.NewTemplateLoader(cfg.TemplatesDir, logger),
		messages:   messages.NewBuilder(cfg.SessionGroup),
		events:     events.NewBuilder(),
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.serializer == nil {
		e.serializer = serializer.New(logger)
	}
	return e, nil
}

// CreateSession opens an engine session for driver and returns its id.
func (e *Executor) CreateSession(ctx context.Context, driver string) (string, error) {
	s, err := e.sessions.Create(ctx, driver)
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// CloseSession releases a session. Unknown ids are ignored.
func (e *Executor) CloseSession(ctx context.Context, id string) error {
	return e.sessions.Close(ctx, id)
}

// Dispose closes every registered session.
func (e *Executor) Dispose(ctx context.Context) {
	e.sessions.DisposeAll(ctx)
}

// Compile serializes actions, expands template includes and, when variables
// are given, substitutes them.
func (e *Executor) Compile(actions []schemas.Action, variables map[string]string) (string, error) {
	sc := e.serializer.Serialize(actions)
	if sc.Len() == 0 {
		return "", ErrEmptyScript
	}
	text, err := e.templates.Expand(sc.String())
	if err != nil {
		return "", err
	}
	vars := e.variables(variables)
	if len(vars) == 0 {
		return text, nil
	}
	return script.Compile(text, vars)
}

// variables merges the request variables over the configured defaults.
func (e *Executor) variables(req map[string]string) map[string]string {
	if len(e.cfg.Variables) == 0 {
		return req
	}
	vars := maps.Clone(e.cfg.Variables)
	maps.Copy(vars, req)
	return vars
}

// CompileAndRun compiles actions and executes them on sessionID. It never
// returns nil; failures are reported through the result status.
func (e *Executor) CompileAndRun(ctx context.Context, sessionID string, actions []schemas.Action, variables map[string]string, timeout time.Duration) *schemas.ScriptResult {
	start := e.now()
	res := e.compileAndRun(ctx, sessionID, actions, variables, timeout)
	if e.observer != nil {
		e.observer.ScriptFinished(res.Status, e.now().Sub(start))
	}
	return res
}

func (e *Executor) compileAndRun(ctx context.Context, sessionID string, actions []schemas.Action, variables map[string]string, timeout time.Duration) *schemas.ScriptResult {
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		e.logger.Warn("Batch for an unknown session.", zap.String("session_id", sessionID))
		return schemas.ErrorResult(schemas.StatusExecutionError, err.Error())
	}

	text, err := e.Compile(actions, variables)
	if err != nil {
		e.logger.Warn("Failed to compile script.", zap.String("session_id", sessionID), zap.Error(err))
		return schemas.ErrorResult(schemas.StatusCompileError, err.Error())
	}

	if timeout <= 0 {
		timeout = e.cfg.ResponseTimeout
	}
	return sess.Execute(ctx, text, timeout)
}

// DispatchResults forwards raw messages to the message store in bounded
// batches.
func (e *Executor) DispatchResults(ctx context.Context, units []*schemas.RawMessage) (dispatch.Stats, error) {
	return e.dispatcher.Dispatch(ctx, units)
}

// ExecuteBatch runs a request end to end: it records the request, executes
// the script, records the response and screenshots, and stores an event
// linking them.
func (e *Executor) ExecuteBatch(ctx context.Context, req *schemas.BatchRequest) *schemas.BatchResponse {
	start := e.now()
	eventID := events.NewID()
	log := e.logger.With(zap.String("session_id", req.SessionID), zap.String("event_id", eventID))

	var msgs []*schemas.RawMessage
	if m, err := e.messages.OnRequest(req.Actions, e.cfg.SessionAlias); err != nil {
		log.Warn("Failed to build request message.", zap.Error(err))
	} else {
		msgs = append(msgs, m)
	}

	result := e.CompileAndRun(ctx, req.SessionID, req.Actions, req.Variables, req.Timeout)

	var engineSID string
	sess, err := e.sessions.Get(req.SessionID)
	if err == nil {
		engineSID = sess.EngineSessionID()
	}

	// Storage runs even when the batch itself was cancelled.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if m, err := e.messages.OnResponse(result, e.cfg.SessionAlias, engineSID); err != nil {
		log.Warn("Failed to build response message.", zap.Error(err))
	} else {
		msgs = append(msgs, m)
	}
	if sess != nil {
		msgs = append(msgs, e.screenshots(persistCtx, sess, result.ScreenshotIDs, log)...)
	}

	messages.AttachTo(eventID, msgs...)
	if _, err := e.DispatchResults(persistCtx, msgs); err != nil {
		log.Error("Failed to store batch messages.", zap.Error(err))
	}
	ids := messages.IDs(msgs...)

	e.storeEvent(persistCtx, events.Input{
		ID:              eventID,
		Start:           start,
		Request:         e.eventRequest(req),
		Result:          result,
		EngineSessionID: engineSID,
		MessageIDs:      ids,
	}, log)

	return &schemas.BatchResponse{
		SessionID:        req.SessionID,
		EngineSessionID:  engineSID,
		Status:           result.Status,
		ErrorMessage:     result.ErrorMessage,
		Outputs:          withData(result.Outputs),
		MessageIDs:       ids,
		EventID:          eventID,
		ExecutionSeconds: e.now().Sub(start).Seconds(),
	}
}

func (e *Executor) screenshots(ctx context.Context, sess *session.Session, ids []string, log *zap.Logger) []*schemas.RawMessage {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*schemas.RawMessage, 0, len(ids))
	for _, id := range ids {
		artifact, err := sess.Download(ctx, ScreenshotKind, id)
		if err != nil {
			log.Warn("Failed to download screenshot.", zap.String("screenshot_id", id), zap.Error(err))
			continue
		}
		out = append(out, e.messages.FromArtifact(artifact, e.cfg.ScreenshotAlias))
	}
	return out
}

func (e *Executor) eventRequest(req *schemas.BatchRequest) *schemas.BatchRequest {
	if !e.cfg.StoreActionMessages || req.StoreActionMessages {
		return req
	}
	cp := *req
	cp.StoreActionMessages = true
	return &cp
}

func (e *Executor) storeEvent(ctx context.Context, in events.Input, log *zap.Logger) {
	ev, err := e.events.Build(in)
	if err != nil {
		log.Error("Failed to build batch event.", zap.Error(err))
		return
	}
	if err := e.eventSink.StoreEvent(ctx, ev); err != nil {
		log.Error("Failed to store batch event.", zap.Error(err))
	}
}

// withData drops outputs the engine reported without any text.
func withData(outputs []schemas.ActionOutput) []schemas.ActionOutput {
	var out []schemas.ActionOutput
	for _, o := range outputs {
		if o.Data == "" {
			continue
		}
		out = append(out, o)
	}
	return out
}
