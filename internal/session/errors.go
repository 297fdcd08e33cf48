package session

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingAssistantID is reported when a call is started without an
	// assistant to talk to.
	ErrMissingAssistantID = errors.New("session: assistant id is required")

	// ErrConnectionLost is reported once reconnecting has been given up.
	ErrConnectionLost = errors.New("session: connection lost")
)

// StatusError is returned when the session service answers with a non-2xx
// status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return "create session: " + status
}
