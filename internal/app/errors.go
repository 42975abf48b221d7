package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	// ErrBusy means the leaderboard write queue is full; callers may retry.
	ErrBusy = errors.New("leaderboard writer is busy")
)
