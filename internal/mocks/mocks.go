package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

// -- Engine Mock --

// MockEngine mocks the remote engine handle used by sessions.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Logon(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockEngine) Send(ctx context.Context, text string, allowReconnect bool) error {
	return m.Called(ctx, text, allowReconnect).Error(0)
}

func (m *MockEngine) WaitAndGet(ctx context.Context, timeout time.Duration) (*schemas.ScriptResult, error) {
	args := m.Called(ctx, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.ScriptResult), args.Error(1)
}

func (m *MockEngine) Download(ctx context.Context, kind, id string) (*schemas.Artifact, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.Artifact), args.Error(1)
}

func (m *MockEngine) Close(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockEngine) SessionID() string { return m.Called().String(0) }

// -- Sink Mock --

// MockSink mocks schemas.Sink. Batches are copied before being recorded.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) SendBatch(ctx context.Context, batch []*schemas.RawMessage) error {
	return m.Called(ctx, append([]*schemas.RawMessage(nil), batch...)).Error(0)
}

func (m *MockSink) StoreEvent(ctx context.Context, event *schemas.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockSink) Close() error { return m.Called().Error(0) }
