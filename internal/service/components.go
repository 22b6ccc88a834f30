package service

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/executor"
	"github.com/xkilldash9x/handbridge/internal/metrics"
	"github.com/xkilldash9x/handbridge/internal/observability"
	"github.com/xkilldash9x/handbridge/internal/session"
)

// shutdownTimeout bounds session disposal and the metrics server shutdown.
const shutdownTimeout = 30 * time.Second

// Components holds everything a command needs to run batches, and owns
// their lifecycle.
type Components struct {
	Executor *executor.Executor
	Sessions *session.Registry
	Sink     schemas.Sink
	Metrics  *metrics.Metrics
	DBPool   *pgxpool.Pool

	// MetricsAddr is the address the metrics listener is bound to, if any.
	MetricsAddr   string
	metricsServer *http.Server
}

// Shutdown releases components in dependency order: engine sessions first,
// then the metrics listener, the sink and finally the database pool.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	// A fresh context so shutdown completes even after the caller's was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 1. Close engine sessions while the sink can still record them.
	if c.Sessions != nil {
		c.Sessions.DisposeAll(ctx)
		logger.Debug("Engine sessions disposed.")
	}

	// 2. Stop serving metrics.
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("Error during metrics server shutdown.", zap.Error(err))
		} else {
			logger.Debug("Metrics server stopped.")
		}
	}

	// 3. Close the sink.
	if c.Sink != nil {
		if err := c.Sink.Close(); err != nil {
			logger.Warn("Error closing message sink.", zap.Error(err))
		} else {
			logger.Debug("Message sink closed.")
		}
	}

	// 4. The store does not own the pool, so it is closed here.
	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Info("All components shut down successfully.")
}
