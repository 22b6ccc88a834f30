package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/dispatch"
	"github.com/xkilldash9x/handbridge/internal/executor"
	"github.com/xkilldash9x/handbridge/internal/metrics"
	"github.com/xkilldash9x/handbridge/internal/session"
)

// ComponentFactory creates the set of components needed to run batches.
// Commands depend on the interface so tests can substitute it.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

// FactoryOption configures the production factory.
type FactoryOption func(*concreteFactory)

// WithEngineFactory replaces the HTTP engine clients, typically with mocks.
func WithEngineFactory(f session.EngineFactory) FactoryOption {
	return func(c *concreteFactory) { c.engines = f }
}

// WithMetrics reuses an existing metrics set instead of creating one.
func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(c *concreteFactory) { c.metrics = m }
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	engines session.EngineFactory
	metrics *metrics.Metrics
}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory(opts ...FactoryOption) ComponentFactory {
	f := &concreteFactory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create wires the sink, metrics, session registry, dispatcher and executor.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Clean up whatever was created if a later step fails.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Message and event sink
	sink, pool, limit, err := InitializeSink(ctx, cfg, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Sink = sink
	components.DBPool = pool
	logger.Debug("Message sink initialized.", zap.String("type", cfg.Store.Type), zap.Int64("batch_limit", limit))

	// 2. Metrics
	m := f.metrics
	if m == nil {
		m = metrics.New()
	}
	components.Metrics = m
	if cfg.Metrics.Addr != "" {
		srv, addr, err := StartMetricsServer(cfg.Metrics.Addr, m.Handler(), logger)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.metricsServer = srv
		components.MetricsAddr = addr
	}

	// 3. Session registry
	engines := f.engines
	if engines == nil {
		engines = session.RemoteHandFactory(cfg.Remote, logger)
	}
	components.Sessions = session.NewRegistry(cfg.Drivers, engines, logger,
		session.WithObserver(m),
		session.WithDisposeConcurrency(cfg.Remote.DisposeConcurrency),
	)
	logger.Debug("Session registry initialized.", zap.Strings("drivers", cfg.DriverNames()))

	// 4. Dispatcher and executor
	dispatcher := dispatch.New(limit, sink, logger, dispatch.WithRecorder(m))
	exec, err := executor.New(executor.ConfigFrom(cfg), components.Sessions, dispatcher, sink, logger, executor.WithObserver(m))
	if err != nil {
		initializationErr = fmt.Errorf("failed to create executor: %w", err)
		return nil, initializationErr
	}
	components.Executor = exec

	logger.Info("All components initialized successfully.")
	return components, nil
}
