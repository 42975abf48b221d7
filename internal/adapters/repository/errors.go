package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrCorrupt       = errors.New("leaderboard data is corrupt")
	ErrClosed        = errors.New("leaderboard store is closed")
	ErrInvalidRecord = errors.New("invalid leaderboard record")
	ErrUnknownStore  = errors.New("unknown leaderboard backend")
)
