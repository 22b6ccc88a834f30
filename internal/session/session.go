// Package session keeps the set of live engine sessions addressable by id.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/remotehand"
)

// Engine is the remote engine handle a Session drives. *remotehand.Client
// satisfies it.
type Engine interface {
	Logon(ctx context.Context) error
	Send(ctx context.Context, text string, allowReconnect bool) error
	WaitAndGet(ctx context.Context, timeout time.Duration) (*schemas.ScriptResult, error)
	Download(ctx context.Context, kind, id string) (*schemas.Artifact, error)
	Close(ctx context.Context) error
	SessionID() string
}

// BusyMessage is reported when a second script is submitted to a session
// that is still executing.
const BusyMessage = "Session is busy executing another script"

// Session is one registered engine session.
type Session struct {
	ID         string
	DriverName string
	DriverType config.DriverType
	CreatedAt  time.Time

	engine Engine
	busy   atomic.Bool
	logger *zap.Logger
}

// EngineSessionID returns the id the engine assigned, which changes after
// a reconnect.
func (s *Session) EngineSessionID() string {
	return s.engine.SessionID()
}

// Busy reports whether a script is currently executing.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Execute sends a compiled script and waits for its result. Failures are
// folded into the returned result; it never returns nil.
func (s *Session) Execute(ctx context.Context, text string, timeout time.Duration) *schemas.ScriptResult {
	if !s.busy.CompareAndSwap(false, true) {
		return schemas.ErrorResult(schemas.StatusBusy, BusyMessage)
	}
	defer s.busy.Store(false)

	if err := s.engine.Send(ctx, text, false); err != nil {
		s.logger.Error("Failed to submit script.", zap.Error(err))
		return schemas.ErrorResult(schemas.StatusExecutionError, fmt.Sprintf("failed to submit script: %v", err))
	}

	res, err := s.engine.WaitAndGet(ctx, timeout)
	if err != nil {
		var timeoutErr *remotehand.TimeoutError
		if errors.As(err, &timeoutErr) {
			s.logger.Warn("Script did not finish in time.", zap.Duration("timeout", timeout))
		} else {
			s.logger.Error("Failed to read script result.", zap.Error(err))
		}
		return schemas.ErrorResult(schemas.StatusExecutionError, err.Error())
	}
	return res
}

// Download fetches an artifact produced by the last script.
func (s *Session) Download(ctx context.Context, kind, id string) (*schemas.Artifact, error) {
	return s.engine.Download(ctx, kind, id)
}
