package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("write queue is full")
	ErrClosed = errors.New("write queue is closed")
)
