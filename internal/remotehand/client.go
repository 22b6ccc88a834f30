// Package remotehand speaks the HTTP session protocol of the remote UI
// automation engine.
package remotehand

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/script"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultPollInterval = time.Second

	// staleSessionBody is the complete 404 body the engine answers with once
	// it has dropped a session.
	staleSessionBody = "<h1>404 Not Found</h1>No context found for request"
	// sessionNotFoundSignature is the shorter fragment some engine builds
	// use for the same condition.
	sessionNotFoundSignature = "session not found"

	// InterruptedMessage is the error text of results cut short by cancellation.
	InterruptedMessage = "Script execution has been interrupted"
)

// State is the client's position in the session lifecycle.
type State int32

const (
	StateLoggedOut State = iota
	StateLoggingOn
	StateIdle
	StateExecuting
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "LoggedOut"
	case StateLoggingOn:
		return "LoggingOn"
	case StateIdle:
		return "Idle"
	case StateExecuting:
		return "Executing"
	case StateReconnecting:
		return "Reconnecting"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options tunes a Client.
type Options struct {
	PollInterval time.Duration
	// RequestsPerSecond throttles every engine call. Zero disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client drives one engine session. Methods are safe for concurrent use, but
// the engine runs one script per session at a time.
type Client struct {
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	browser   string
}

// NewClient creates a logged out client for the engine at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid engine url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid engine url %q: scheme must be http or https", baseURL)
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         opts.HTTPClient,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger.Named("remotehand").With(zap.String("engine", baseURL)),
		state:        StateLoggedOut,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// SessionID returns the engine session id, empty until Logon succeeds.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Browser returns the browser name the engine reported at logon, if any.
func (c *Client) Browser() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}

// Logon negotiates a new engine session. A client closed before or while the
// request is in flight stays closed, and a session the engine granted in the
// meantime is deleted again.
func (c *Client) Logon(ctx context.Context) error {
	if c.State() == StateClosed {
		return ErrClosed
	}
	c.setState(StateLoggingOn)

	status, body, _, err := c.do(ctx, http.MethodGet, "/login", nil, nil)
	if err != nil {
		c.setState(StateLoggedOut)
		return &LogonError{Err: err}
	}
	if status != http.StatusOK {
		c.setState(StateLoggedOut)
		return &LogonError{StatusCode: status, Body: string(body)}
	}

	id, browser := parseLogonResponse(string(body))
	if id == "" {
		c.setState(StateLoggedOut)
		return &LogonError{StatusCode: status, Body: string(body), Err: fmt.Errorf("empty session id")}
	}

	c.mu.Lock()
	closed := c.state == StateClosed
	if !closed {
		c.sessionID = id
		c.browser = browser
		c.state = StateIdle
	}
	c.mu.Unlock()

	if closed {
		c.logger.Info("Client closed during logon, releasing engine session.", zap.String("engine_session", id))
		c.deleteSession(ctx, id)
		return ErrClosed
	}

	c.logger.Info("Logged on to engine.", zap.String("engine_session", id), zap.String("browser", browser))
	return nil
}

// parseLogonResponse reads "sessionId=<id>;browser=<name>" or a bare id.
func parseLogonResponse(body string) (id, browser string) {
	body = strings.TrimSpace(body)
	if !strings.Contains(body, "=") {
		return body, ""
	}
	for _, part := range strings.Split(body, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "sessionid":
			id = strings.TrimSpace(value)
		case "browser":
			browser = strings.TrimSpace(value)
		}
	}
	return id, browser
}

// Send submits a compiled script. When the engine no longer knows the
// session and allowReconnect is false, the client logs on again and retries
// once; a second rejection is returned as a *TransportError.
func (c *Client) Send(ctx context.Context, text string, allowReconnect bool) error {
	sid := c.SessionID()
	if sid == "" {
		return ErrNotLoggedOn
	}
	c.setState(StateExecuting)

	status, body, _, err := c.do(ctx, http.MethodPost, sessionPath(sid), nil, strings.NewReader(text))
	if err != nil {
		c.setState(StateIdle)
		return &TransportError{Op: "send", Err: err}
	}
	if status == http.StatusOK {
		return nil
	}

	if isSessionNotFound(status, body) && !allowReconnect {
		c.logger.Warn("Engine lost the session, reconnecting.", zap.String("engine_session", sid))
		c.setState(StateReconnecting)
		c.deleteSession(ctx, sid)
		if err := c.Logon(ctx); err != nil {
			return &TransportError{Op: "reconnect", Err: err}
		}
		return c.Send(ctx, text, true)
	}

	c.setState(StateIdle)
	return &TransportError{Op: "send", StatusCode: status, Body: string(body)}
}

func isSessionNotFound(status int, body []byte) bool {
	if status != http.StatusNotFound {
		return false
	}
	text := strings.TrimSpace(string(body))
	return strings.EqualFold(text, staleSessionBody) ||
		strings.Contains(strings.ToLower(text), sessionNotFoundSignature)
}

// engineResult is the JSON document the engine returns for a session poll.
type engineResult struct {
	Code          int      `json:"code"`
	ErrorMessage  string   `json:"errorMessage"`
	TextOutput    []string `json:"textOutput"`
	ActionResults []struct {
		ID   string `json:"id"`
		Data string `json:"data"`
	} `json:"actionResults"`
	ScreenshotIDs []string `json:"screenshotIds"`
}

func (r *engineResult) toScriptResult() *schemas.ScriptResult {
	res := &schemas.ScriptResult{
		Status:        schemas.StatusFromEngineCode(r.Code),
		EngineCode:    r.Code,
		ErrorMessage:  r.ErrorMessage,
		ScreenshotIDs: r.ScreenshotIDs,
	}
	for _, ar := range r.ActionResults {
		res.Outputs = append(res.Outputs, schemas.ActionOutput{
			ActionID: ar.ID,
			Data:     strings.ReplaceAll(ar.Data, script.LineSeparator, "\n"),
		})
	}
	for _, line := range r.TextOutput {
		res.Outputs = append(res.Outputs, schemas.ParseActionOutput(line, script.LineSeparator))
	}
	return res
}

// WaitAndGet polls for the result of the last sent script. The deadline is
// fixed when the call starts. Cancelling ctx yields an EXECUTION_ERROR
// result rather than an error.
func (c *Client) WaitAndGet(ctx context.Context, timeout time.Duration) (*schemas.ScriptResult, error) {
	sid := c.SessionID()
	if sid == "" {
		return nil, ErrNotLoggedOn
	}
	deadline := time.Now().Add(timeout)

	for {
		res, busy, err := c.poll(ctx, sid)
		if err != nil {
			if ctx.Err() != nil {
				return c.interrupted(), nil
			}
			c.setState(StateIdle)
			return nil, err
		}
		if !busy {
			c.setState(StateIdle)
			return res, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.setState(StateIdle)
			return nil, &TimeoutError{Timeout: timeout}
		}
		wait := c.pollInterval
		if remaining < wait {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return c.interrupted(), nil
		case <-timer.C:
		}
	}
}

func (c *Client) interrupted() *schemas.ScriptResult {
	c.logger.Info("Waiting for the engine was interrupted.")
	c.setState(StateIdle)
	return schemas.ErrorResult(schemas.StatusExecutionError, InterruptedMessage)
}

func (c *Client) poll(ctx context.Context, sid string) (*schemas.ScriptResult, bool, error) {
	status, body, _, err := c.do(ctx, http.MethodGet, sessionPath(sid), nil, nil)
	if err != nil {
		return nil, false, &TransportError{Op: "poll", Err: err}
	}
	if status != http.StatusOK {
		return nil, false, &TransportError{Op: "poll", StatusCode: status, Body: string(body)}
	}

	var er engineResult
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, false, &TransportError{Op: "poll", StatusCode: status, Body: string(body), Err: err}
	}
	if er.Code == schemas.EngineCodeToolBusy {
		return nil, true, nil
	}
	return er.toScriptResult(), false, nil
}

// Download fetches an artifact such as a screenshot produced by the last script.
func (c *Client) Download(ctx context.Context, kind, id string) (*schemas.Artifact, error) {
	query := url.Values{"type": {kind}, "id": {id}}
	status, body, contentType, err := c.do(ctx, http.MethodGet, "/download", query, nil)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}
	if status != http.StatusOK {
		return nil, &TransportError{Op: "download", StatusCode: status, Body: string(body)}
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}
	return &schemas.Artifact{Type: kind, ID: id, ContentType: contentType, Data: body}, nil
}

// Close releases the engine session. It never fails and may be called more
// than once.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	sid := c.sessionID
	c.state = StateClosed
	c.sessionID = ""
	c.mu.Unlock()

	if sid != "" {
		c.deleteSession(ctx, sid)
		c.logger.Info("Engine session closed.", zap.String("engine_session", sid))
	}
	return nil
}

func (c *Client) deleteSession(ctx context.Context, sid string) {
	status, body, _, err := c.do(ctx, http.MethodDelete, sessionPath(sid), nil, nil)
	if err != nil {
		c.logger.Warn("Failed to delete engine session.", zap.String("engine_session", sid), zap.Error(err))
		return
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		c.logger.Warn("Engine rejected session delete.",
			zap.String("engine_session", sid), zap.Int("status", status), zap.ByteString("body", body))
	}
}

func sessionPath(sid string) string {
	return "/" + url.PathEscape(strings.TrimPrefix(sid, "/"))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (int, []byte, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, "", err
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, "", err
	}
	return resp.StatusCode, data, resp.Header.Get("Content-Type"), nil
}
