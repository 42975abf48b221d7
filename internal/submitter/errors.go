package submitter

import (
	"errors"
	"fmt"
)

// ErrNoFiles is returned when a run has nothing to upload.
var ErrNoFiles = errors.New("no archives to submit")

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Rejected reports whether the service refused the input itself, as opposed
// to failing while handling it.
func (e *APIError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}
