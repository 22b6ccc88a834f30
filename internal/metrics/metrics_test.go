package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	t.Run("should count scripts by status", func(t *testing.T) {
		m := New()
		m.ScriptFinished(schemas.StatusSuccess, 2*time.Second)
		m.ScriptFinished(schemas.StatusSuccess, time.Second)
		m.ScriptFinished(schemas.StatusBusy, 0)

		out := scrape(t, m)
		assert.Contains(t, out, `handbridge_scripts_total{status="SUCCESS"} 2`)
		assert.Contains(t, out, `handbridge_scripts_total{status="BUSY"} 1`)
		assert.Contains(t, out, "handbridge_script_duration_seconds_count 3")
		assert.Contains(t, out, "handbridge_script_duration_seconds_sum 3")
	})

	t.Run("should track live sessions", func(t *testing.T) {
		m := New()
		m.SessionsChanged(3)
		m.SessionsChanged(2)
		assert.Contains(t, scrape(t, m), "handbridge_sessions_active 2")
	})

	t.Run("should accumulate flushed batches", func(t *testing.T) {
		m := New()
		m.BatchFlushed(2, 100)
		m.BatchFlushed(1, 50)

		out := scrape(t, m)
		assert.Contains(t, out, "handbridge_message_batches_total 2")
		assert.Contains(t, out, "handbridge_message_batch_bytes_total 150")
		assert.Contains(t, out, "handbridge_message_batch_size_count 2")
	})

	t.Run("should keep registries independent", func(t *testing.T) {
		a, b := New(), New()
		a.SessionsChanged(7)
		assert.Contains(t, scrape(t, b), "handbridge_sessions_active 0")
		assert.NotSame(t, a.Registry(), b.Registry())
	})

	t.Run("should expose runtime collectors", func(t *testing.T) {
		assert.Contains(t, scrape(t, New()), "go_goroutines")
	})
}
