package scoring

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyReference is returned when a scorer is built without subjects.
	ErrEmptyReference = errors.New("reference contains no subjects")
	// ErrKeyMismatch is the kind matched by every KeyMismatchError.
	ErrKeyMismatch = errors.New("key mismatch")
)

// KeyMismatchError lists every subject the submission is missing and every
// subject it has that the reference does not.
type KeyMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *KeyMismatchError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing predictions for: ["+strings.Join(e.Missing, ", ")+"]")
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected subjects in submission: ["+strings.Join(e.Extra, ", ")+"]")
	}
	return "Key mismatch between reference and prediction archives: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrKeyMismatch) match.
func (e *KeyMismatchError) Is(target error) bool { return target == ErrKeyMismatch }

// SubjectError ties a per-subject comparison failure to the subject id.
type SubjectError struct {
	Subject string
	Err     error
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("subject %s: %v", e.Subject, e.Err)
}

func (e *SubjectError) Unwrap() error { return e.Err }
