package session

import "fmt"

// ConfigurationError is returned for a driver name the configuration does
// not map to an engine.
type ConfigurationError struct {
	Driver string
	Known  []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown driver %q (configured: %v)", e.Driver, e.Known)
}

// NotFoundError is returned for a session id that is not registered.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.ID)
}
