package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/network"
	"github.com/xkilldash9x/handbridge/internal/remotehand"
)

// EngineFactory builds an engine handle for a configured driver.
type EngineFactory func(name string, driver config.DriverConfig) (Engine, error)

// RemoteHandFactory returns an EngineFactory producing HTTP clients that
// share one transport.
func RemoteHandFactory(rc config.RemoteConfig, logger *zap.Logger) EngineFactory {
	httpClient := network.NewClient(network.ClientConfigFromRemote(rc, logger)).Client
	return func(name string, driver config.DriverConfig) (Engine, error) {
		return remotehand.NewClient(driver.URL, remotehand.Options{
			PollInterval:      rc.PollInterval,
			RequestsPerSecond: rc.RequestsPerSecond,
			HTTPClient:        httpClient,
			Logger:            logger.With(zap.String("driver", name)),
		})
	}
}

// Observer is notified when the number of live sessions changes.
type Observer interface {
	SessionsChanged(live int)
}

// Registry maps session ids to live sessions. No lock is held while talking
// to an engine, so a slow session never blocks the others.
type Registry struct {
	drivers     map[string]config.DriverConfig
	factory     EngineFactory
	concurrency int
	logger      *zap.Logger
	observer    Observer

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver reports session count changes to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithDisposeConcurrency bounds parallel closes in DisposeAll.
func WithDisposeConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRegistry creates an empty registry over the configured drivers.
func NewRegistry(drivers map[string]config.DriverConfig, factory EngineFactory, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		drivers:     drivers,
		factory:     factory,
		concurrency: 8,
		logger:      logger.Named("session"),
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create logs on to the engine configured for driverName and registers the
// new session.
func (r *Registry) Create(ctx context.Context, driverName string) (*Session, error) {
	driver, ok := r.drivers[driverName]
	if !ok {
		return nil, &ConfigurationError{Driver: driverName, Known: r.driverNames()}
	}

	engine, err := r.factory(driverName, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine for driver %q: %w", driverName, err)
	}
	if err := engine.Logon(ctx); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		ID:         id,
		DriverName: driverName,
		DriverType: driver.Type,
		CreatedAt:  time.Now(),
		engine:     engine,
		logger:     r.logger.With(zap.String("session_id", id), zap.String("driver", driverName)),
	}

	r.mu.Lock()
	r.sessions[id] = s
	live := len(r.sessions)
	r.mu.Unlock()
	r.notify(live)

	s.logger.Info("Session created.", zap.String("engine_session", engine.SessionID()))
	return s, nil
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// IDs lists the registered session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close unregisters the session and then releases its engine. Closing an
// unknown or already closed id is a no-op.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	live := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	r.notify(live)

	if err := s.engine.Close(ctx); err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}
	s.logger.Info("Session closed.")
	return nil
}

// DisposeAll closes every live session. Individual failures are logged and
// never stop the remaining closes.
func (r *Registry) DisposeAll(ctx context.Context) {
	ids := r.IDs()
	if len(ids) == 0 {
		return
	}
	r.logger.Info("Disposing sessions.", zap.Int("count", len(ids)))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := r.Close(ctx, id); err != nil {
				r.logger.Error("Failed to dispose session.", zap.String("session_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Registry) driverNames() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) notify(live int) {
	if r.observer != nil {
		r.observer.SessionsChanged(live)
	}
}

var _ Engine = (*remotehand.Client)(nil)
