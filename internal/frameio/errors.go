package frameio

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound reports that an expected remote project, asset or comment does
// not exist. It is informational, not a fault: callers typically log a
// notice and move on to the next item.
var ErrNotFound = errors.New("frameio: not found")

// APIError is a classified failure from the review service, carrying the
// HTTP status and the remote-provided message when one was returned.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("frameio: status %d", e.Status)
	}
	return fmt.Sprintf("frameio: status %d: %s", e.Status, e.Message)
}

// Is maps a 404 onto ErrNotFound, so an asset deleted between search and
// use reads as a missing match rather than a fault, whichever call hit it.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Retryable classifies the status for the retry policy. Rate limiting and
// server-side errors are worth retrying; authorization and validation
// failures are not, since repeating the call cannot change the outcome.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
