package service

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/metrics"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("should wire a working executor over the log store", func(t *testing.T) {
		engines := &engineFactory{}
		m := metrics.New()
		components, err := NewComponentFactory(WithEngineFactory(engines.build), WithMetrics(m)).
			Create(ctx, testConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)
		defer components.Shutdown()

		assert.Same(t, m, components.Metrics)
		assert.Nil(t, components.DBPool)
		assert.Empty(t, components.MetricsAddr)

		id, err := components.Executor.CreateSession(ctx, "web")
		require.NoError(t, err)
		require.Len(t, engines.engines, 1)

		engine := engines.engines[0]
		engine.On("Send", mock.Anything, mock.Anything, false).Return(nil).Once()
		engine.On("WaitAndGet", mock.Anything, mock.Anything).
			Return(&schemas.ScriptResult{Status: schemas.StatusSuccess}, nil).Once()

		resp := components.Executor.ExecuteBatch(ctx, &schemas.BatchRequest{
			SessionID: id,
			Actions:   []schemas.Action{&schemas.Open{URL: "http://example.test"}},
		})
		assert.Equal(t, schemas.StatusSuccess, resp.Status)
		assert.Len(t, resp.MessageIDs, 2)
		assert.Equal(t, 1, components.Sessions.Len())
	})

	t.Run("should serve metrics when an address is configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.Metrics.Addr = "127.0.0.1:0"
		engines := &engineFactory{}

		components, err := NewComponentFactory(WithEngineFactory(engines.build)).Create(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer components.Shutdown()

		_, err = components.Executor.CreateSession(ctx, "web")
		require.NoError(t, err)

		client := &http.Client{Timeout: 5 * time.Second}
		res, err := client.Get("http://" + components.MetricsAddr + "/metrics")
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "handbridge_sessions_active 1")
	})

	t.Run("should fail on an unsupported store", func(t *testing.T) {
		cfg := testConfig()
		cfg.Store.Type = "redis"
		_, err := NewComponentFactory().Create(ctx, cfg, zap.NewNop())
		assert.ErrorContains(t, err, "unsupported store type")
	})

	t.Run("should fail on a malformed database url", func(t *testing.T) {
		cfg := testConfig()
		cfg.Store.Type = config.StoreTypePostgres
		cfg.Store.Postgres.URL = "postgres://%zz"
		_, err := NewComponentFactory().Create(ctx, cfg, zap.NewNop())
		assert.ErrorContains(t, err, "unable to parse PGX pool config")
	})

	t.Run("should fail when the bus is unreachable", func(t *testing.T) {
		cfg := testConfig()
		cfg.Store.Type = config.StoreTypeNATS
		cfg.Store.NATS.URL = "nats://127.0.0.1:1"
		cfg.Store.NATS.Timeout = 200 * time.Millisecond
		_, err := NewComponentFactory().Create(ctx, cfg, zap.NewNop())
		assert.ErrorContains(t, err, "failed to connect message bus")
	})
}
