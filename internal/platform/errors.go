package platform

import (
	"errors"
	"fmt"
)

// ErrWaitTimeout is returned when a job does not finish within the configured wait.
var ErrWaitTimeout = errors.New("timed out waiting for job")

// RemoteAPIError is a non-2xx response from the controller.
type RemoteAPIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 200))
}

// AuthenticationError is a failed token exchange.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: HTTP %d: %s", e.StatusCode, truncate(e.Body, 200))
}
