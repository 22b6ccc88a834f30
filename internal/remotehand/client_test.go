package remotehand

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// fakeEngine emulates the engine's HTTP surface.
type fakeEngine struct {
	mu sync.Mutex

	logonBody   string
	logonStatus int
	sessions    map[string]bool
	nextID      int
	busyPolls   int
	alwaysBusy  bool
	result      string
	lost        bool
	alwaysLost  bool
	staleBody   string
	scripts     []string
	deletes     []string
	logons      int32
	artifact    []byte
	contentType string

	// logonArrived and logonGate, when set, hold a login request until the
	// test releases it.
	logonArrived chan struct{}
	logonGate    chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		logonStatus: http.StatusOK,
		sessions:    make(map[string]bool),
		result:      `{"code":0,"textOutput":["a1=hello"]}`,
		staleBody:   staleSessionBody,
	}
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/login" && f.logonGate != nil {
		f.logonArrived <- struct{}{}
		<-f.logonGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/login":
		atomic.AddInt32(&f.logons, 1)
		if f.logonStatus != http.StatusOK {
			w.WriteHeader(f.logonStatus)
			_, _ = io.WriteString(w, "engine unavailable")
			return
		}
		f.nextID++
		id := "S" + string(rune('0'+f.nextID))
		f.sessions[id] = true
		body := f.logonBody
		if body == "" {
			body = "sessionId=" + id + ";browser=chrome"
		}
		_, _ = io.WriteString(w, body)
	case r.URL.Path == "/download":
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write(f.artifact)
	default:
		sid := strings.TrimPrefix(r.URL.Path, "/")
		if r.Method == http.MethodDelete {
			f.deletes = append(f.deletes, sid)
			delete(f.sessions, sid)
			return
		}
		if !f.sessions[sid] || f.lost || (f.alwaysLost && r.Method == http.MethodPost) {
			f.lost = false
			delete(f.sessions, sid)
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, f.staleBody)
			return
		}
		switch r.Method {
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			f.scripts = append(f.scripts, string(data))
		case http.MethodGet:
			if f.alwaysBusy || f.busyPolls > 0 {
				f.busyPolls--
				_, _ = io.WriteString(w, `{"code":4}`)
				return
			}
			_, _ = io.WriteString(w, f.result)
		}
	}
}

func (f *fakeEngine) update(fn func(f *fakeEngine)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeEngine) recorded() (scripts, deletes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...), append([]string(nil), f.deletes...)
}

func newTestClient(t *testing.T, engine *fakeEngine) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, Options{
		PollInterval: 10 * time.Millisecond,
		HTTPClient:   server.Client(),
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClient(t *testing.T) {
	t.Run("should reject a url without an http scheme", func(t *testing.T) {
		_, err := NewClient("ftp://engine", Options{})
		assert.Error(t, err)
	})

	t.Run("should start logged out with defaults", func(t *testing.T) {
		c, err := NewClient("http://engine:8008/", Options{})
		require.NoError(t, err)
		assert.Equal(t, StateLoggedOut, c.State())
		assert.Equal(t, DefaultPollInterval, c.pollInterval)
		assert.Equal(t, "http://engine:8008", c.baseURL)
		assert.Nil(t, c.limiter)
	})

	t.Run("should build a limiter when throttled", func(t *testing.T) {
		c, err := NewClient("http://engine", Options{RequestsPerSecond: 0.5})
		require.NoError(t, err)
		require.NotNil(t, c.limiter)
		assert.Equal(t, 1, c.limiter.Burst())
	})
}

func TestParseLogonResponse(t *testing.T) {
	tests := []struct {
		body    string
		id      string
		browser string
	}{
		{"sessionId=abc;browser=firefox", "abc", "firefox"},
		{"  xyz\n", "xyz", ""},
		{"browser=edge; sessionid=/Ses42", "/Ses42", "edge"},
		{"browser=edge", "", "edge"},
	}
	for _, tt := range tests {
		id, browser := parseLogonResponse(tt.body)
		assert.Equal(t, tt.id, id, tt.body)
		assert.Equal(t, tt.browser, browser, tt.body)
	}
}

func TestClient_Logon(t *testing.T) {
	t.Run("should store the session and browser", func(t *testing.T) {
		c, _ := newTestClient(t, newFakeEngine())

		require.NoError(t, c.Logon(context.Background()))
		assert.Equal(t, "S1", c.SessionID())
		assert.Equal(t, "chrome", c.Browser())
		assert.Equal(t, StateIdle, c.State())
	})

	t.Run("should report a rejected logon", func(t *testing.T) {
		engine := newFakeEngine()
		engine.logonStatus = http.StatusServiceUnavailable
		c, _ := newTestClient(t, engine)

		err := c.Logon(context.Background())
		var logonErr *LogonError
		require.ErrorAs(t, err, &logonErr)
		assert.Equal(t, http.StatusServiceUnavailable, logonErr.StatusCode)
		assert.Equal(t, StateLoggedOut, c.State())
	})

	t.Run("should reject an empty session id", func(t *testing.T) {
		engine := newFakeEngine()
		engine.logonBody = "browser=chrome"
		c, _ := newTestClient(t, engine)

		var logonErr *LogonError
		assert.ErrorAs(t, c.Logon(context.Background()), &logonErr)
	})
}

func TestClient_SendAndWait(t *testing.T) {
	ctx := context.Background()

	t.Run("should require a logon", func(t *testing.T) {
		c, _ := newTestClient(t, newFakeEngine())
		assert.ErrorIs(t, c.Send(ctx, "x", false), ErrNotLoggedOn)
		_, err := c.WaitAndGet(ctx, time.Second)
		assert.ErrorIs(t, err, ErrNotLoggedOn)
	})

	t.Run("should poll until the engine is no longer busy", func(t *testing.T) {
		engine := newFakeEngine()
		engine.busyPolls = 3
		engine.result = `{"code":0,"textOutput":["a1=first&#13second","plain"],"actionResults":[{"id":"r1","data":"v"}],"screenshotIds":["shot-1"]}`
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))

		require.NoError(t, c.Send(ctx, "#action&#13Open&#13", false))
		assert.Equal(t, StateExecuting, c.State())

		res, err := c.WaitAndGet(ctx, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, schemas.StatusSuccess, res.Status)
		assert.Equal(t, []string{"shot-1"}, res.ScreenshotIDs)
		assert.Equal(t, []schemas.ActionOutput{
			{ActionID: "r1", Data: "v"},
			{ActionID: "a1", Data: "first\nsecond"},
			{Data: "plain"},
		}, res.Outputs)
		assert.Equal(t, StateIdle, c.State())
		scripts, _ := engine.recorded()
		assert.Equal(t, []string{"#action&#13Open&#13"}, scripts)
	})

	t.Run("should map engine codes onto statuses", func(t *testing.T) {
		engine := newFakeEngine()
		engine.result = `{"code":3,"errorMessage":"driver crashed"}`
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		require.NoError(t, c.Send(ctx, "x", false))

		res, err := c.WaitAndGet(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, schemas.StatusEngineError, res.Status)
		assert.Equal(t, 3, res.EngineCode)
		assert.Equal(t, "driver crashed", res.ErrorMessage)
	})

	t.Run("should time out when the engine stays busy", func(t *testing.T) {
		engine := newFakeEngine()
		engine.alwaysBusy = true
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		require.NoError(t, c.Send(ctx, "x", false))

		start := time.Now()
		_, err := c.WaitAndGet(ctx, 80*time.Millisecond)
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 80*time.Millisecond, timeoutErr.Timeout)
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
		assert.Less(t, elapsed, 2*time.Second)
	})

	t.Run("should return an interrupted result on cancellation", func(t *testing.T) {
		engine := newFakeEngine()
		engine.alwaysBusy = true
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		require.NoError(t, c.Send(ctx, "x", false))

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		res, err := c.WaitAndGet(cctx, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, schemas.StatusExecutionError, res.Status)
		assert.Equal(t, InterruptedMessage, res.ErrorMessage)
	})

	t.Run("should report an undecodable poll", func(t *testing.T) {
		engine := newFakeEngine()
		engine.result = "not json"
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		require.NoError(t, c.Send(ctx, "x", false))

		_, err := c.WaitAndGet(ctx, time.Second)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "poll", transportErr.Op)
	})
}

func TestClient_Reconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("should log on again and retry once when the session was lost", func(t *testing.T) {
		engine := newFakeEngine()
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		engine.update(func(f *fakeEngine) { f.lost = true })

		require.NoError(t, c.Send(ctx, "script", false))
		assert.Equal(t, "S2", c.SessionID())
		assert.Equal(t, int32(2), atomic.LoadInt32(&engine.logons))
		scripts, deletes := engine.recorded()
		assert.Equal(t, []string{"S1"}, deletes)
		assert.Equal(t, []string{"script"}, scripts)
	})

	t.Run("should not reconnect when already retrying", func(t *testing.T) {
		engine := newFakeEngine()
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		engine.update(func(f *fakeEngine) { f.lost = true })

		err := c.Send(ctx, "script", true)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&engine.logons))
	})

	t.Run("should recognise the short not found body", func(t *testing.T) {
		engine := newFakeEngine()
		engine.staleBody = "Session not found: S1"
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		engine.update(func(f *fakeEngine) { f.lost = true })

		require.NoError(t, c.Send(ctx, "script", false))
		assert.Equal(t, int32(2), atomic.LoadInt32(&engine.logons))
	})

	t.Run("should give up when the retry is rejected as well", func(t *testing.T) {
		engine := newFakeEngine()
		engine.alwaysLost = true
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))

		err := c.Send(ctx, "script", false)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "send", transportErr.Op)
		assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&engine.logons))
		scripts, deletes := engine.recorded()
		assert.Empty(t, scripts)
		assert.Equal(t, []string{"S1"}, deletes)
	})

	t.Run("should not treat other 404 bodies as a lost session", func(t *testing.T) {
		engine := newFakeEngine()
		engine.staleBody = "<h1>404 Not Found</h1>"
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		engine.update(func(f *fakeEngine) { f.lost = true })

		err := c.Send(ctx, "script", false)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, int32(1), atomic.LoadInt32(&engine.logons))
	})

	t.Run("should surface a failed reconnect logon", func(t *testing.T) {
		engine := newFakeEngine()
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))
		engine.update(func(f *fakeEngine) {
			f.lost = true
			f.logonStatus = http.StatusInternalServerError
		})

		err := c.Send(ctx, "script", false)
		var logonErr *LogonError
		require.ErrorAs(t, err, &logonErr)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "reconnect", transportErr.Op)
	})
}

func TestIsSessionNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "engine body", status: http.StatusNotFound, body: staleSessionBody, want: true},
		{name: "engine body any case", status: http.StatusNotFound, body: "<H1>404 NOT FOUND</H1>no context found for request\n", want: true},
		{name: "short signature", status: http.StatusNotFound, body: "Session not found: S1", want: true},
		{name: "other 404", status: http.StatusNotFound, body: "<h1>404 Not Found</h1>", want: false},
		{name: "wrong status", status: http.StatusInternalServerError, body: staleSessionBody, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSessionNotFound(tt.status, []byte(tt.body)))
		})
	}
}

func TestClient_Download(t *testing.T) {
	engine := newFakeEngine()
	engine.artifact = []byte("\x89PNG\r\n\x1a\nrest")
	c, _ := newTestClient(t, engine)

	art, err := c.Download(context.Background(), "screenshot", "shot-1")
	require.NoError(t, err)
	assert.Equal(t, "screenshot", art.Type)
	assert.Equal(t, "shot-1", art.ID)
	assert.Equal(t, "image/png", art.ContentType)
	assert.Equal(t, engine.artifact, art.Data)
}

func TestClient_Close(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete the session exactly once", func(t *testing.T) {
		engine := newFakeEngine()
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))

		require.NoError(t, c.Close(ctx))
		require.NoError(t, c.Close(ctx))
		_, deletes := engine.recorded()
		assert.Equal(t, []string{"S1"}, deletes)
		assert.Equal(t, StateClosed, c.State())
		assert.Empty(t, c.SessionID())
		assert.ErrorIs(t, c.Send(ctx, "x", false), ErrNotLoggedOn)
	})

	t.Run("should release a session granted after close", func(t *testing.T) {
		engine := newFakeEngine()
		engine.logonArrived = make(chan struct{})
		engine.logonGate = make(chan struct{})
		c, _ := newTestClient(t, engine)

		done := make(chan error, 1)
		go func() { done <- c.Logon(ctx) }()
		<-engine.logonArrived
		require.NoError(t, c.Close(ctx))
		close(engine.logonGate)

		assert.ErrorIs(t, <-done, ErrClosed)
		assert.Equal(t, StateClosed, c.State())
		assert.Empty(t, c.SessionID())
		_, deletes := engine.recorded()
		assert.Equal(t, []string{"S1"}, deletes)
	})

	t.Run("should refuse to log on once closed", func(t *testing.T) {
		engine := newFakeEngine()
		c, _ := newTestClient(t, engine)
		require.NoError(t, c.Close(ctx))

		assert.ErrorIs(t, c.Logon(ctx), ErrClosed)
		assert.Zero(t, atomic.LoadInt32(&engine.logons))
	})

	t.Run("should swallow transport failures", func(t *testing.T) {
		engine := newFakeEngine()
		c, server := newTestClient(t, engine)
		require.NoError(t, c.Logon(ctx))

		core, logs := observer.New(zap.WarnLevel)
		c.logger = zap.New(core)
		server.Close()

		assert.NoError(t, c.Close(ctx))
		assert.Equal(t, 1, logs.FilterMessage("Failed to delete engine session.").Len())
	})
}

func TestErrors(t *testing.T) {
	inner := errors.New("boom")
	assert.ErrorIs(t, &LogonError{Err: inner}, inner)
	assert.ErrorIs(t, &TransportError{Op: "send", Err: inner}, inner)
	assert.Contains(t, (&TransportError{Op: "poll", StatusCode: 500, Body: "x"}).Error(), "500")
	assert.Contains(t, (&TimeoutError{Timeout: time.Second}).Error(), "1s")
}
