package invoker

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned when a request names a backend that is
	// not registered.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrNotConfigured is returned when no backend has credentials.
	ErrNotConfigured = errors.New("model backend not configured")
)

// ConfigError reports a backend selection problem. It is never produced for
// runtime failures of a selected backend.
type ConfigError struct {
	Backend string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Backend == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("backend %q: %v", e.Backend, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
