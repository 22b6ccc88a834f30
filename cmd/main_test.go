package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/mocks"
	"github.com/xkilldash9x/handbridge/internal/observability"
	"github.com/xkilldash9x/handbridge/internal/service"
	"github.com/xkilldash9x/handbridge/internal/session"
)

const testConfigYAML = `
logger:
  level: fatal
drivers:
  web:
    type: web
    url: http://web:8008
store:
  type: log
`

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	// 1. Reset package-level flag targets from root.go
	cfgFile = ""
	envFile = ""

	// 2. Reset the logger to a silent state
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

// writeFile writes content to name inside a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newTestEngine returns a mock engine that logs on and closes cleanly.
func newTestEngine() *mocks.MockEngine {
	e := new(mocks.MockEngine)
	e.On("Logon", mock.Anything).Return(nil)
	e.On("SessionID").Return("RH-1").Maybe()
	e.On("Close", mock.Anything).Return(nil).Maybe()
	return e
}

// newTestFactory builds real components whose sessions all use engine.
func newTestFactory(engine *mocks.MockEngine) service.ComponentFactory {
	return service.NewComponentFactory(service.WithEngineFactory(func(string, config.DriverConfig) (session.Engine, error) {
		return engine, nil
	}))
}

// execute runs the command tree with args and returns its combined output.
func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
