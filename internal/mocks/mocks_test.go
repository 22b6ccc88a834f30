package mocks_test

import (
	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/mocks"
	"github.com/xkilldash9x/handbridge/internal/session"
)

var (
	_ session.Engine = (*mocks.MockEngine)(nil)
	_ schemas.Sink   = (*mocks.MockSink)(nil)
)
