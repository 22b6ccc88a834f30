package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/bus"
	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/dispatch"
	"github.com/xkilldash9x/handbridge/internal/store"
)

// InitializeSink builds the sink selected by store.type and returns the batch
// limit to dispatch with. The pool is non-nil only for the postgres store and
// is owned by the caller.
func InitializeSink(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.Sink, *pgxpool.Pool, int64, error) {
	limit := cfg.Messages.BatchLimit
	if limit <= 0 {
		limit = dispatch.DefaultLimit
	}

	switch cfg.Store.Type {
	case "", config.StoreTypeLog:
		logger.Info("No message store configured; messages and events are logged only.")
		return dispatch.NewLogSink(logger), nil, limit, nil

	case config.StoreTypePostgres:
		logger.Info("Initializing PostgreSQL message store.")
		pool, err := newPool(ctx, cfg.Store.Postgres.URL)
		if err != nil {
			return nil, nil, 0, err
		}
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, 0, fmt.Errorf("failed to initialize database store: %w", err)
		}
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, 0, err
		}
		return st, pool, limit, nil

	case config.StoreTypeNATS:
		logger.Info("Initializing NATS message bus.", zap.String("url", cfg.Store.NATS.URL))
		sink, err := bus.Connect(cfg.Store.NATS, logger)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to connect message bus: %w", err)
		}
		// Batches must also fit the server's payload limit.
		if busLimit := sink.BatchLimit(); busLimit < limit {
			logger.Warn("Lowering batch limit to fit the NATS payload limit.", zap.Int64("batch_limit", busLimit))
			limit = busLimit
		}
		return sink, nil, limit, nil
	}

	return nil, nil, 0, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
}

func newPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pool, nil
}

// StartMetricsServer serves h on addr under /metrics. It returns once the
// listener is bound, along with the bound address.
func StartMetricsServer(addr string, h http.Handler, logger *zap.Logger) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	bound := ln.Addr().String()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed.", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics.", zap.String("addr", bound))
	return srv, bound, nil
}
