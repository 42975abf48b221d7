package repository

import (
	"io/fs"
	"time"

	"github.com/okian/segscore/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	log      logger.Logger
	fileMode fs.FileMode
	now      func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		log:      logger.Nop(),
		fileMode: 0o644,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFileMode sets the permissions of a newly written leaderboard file.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *settings) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithClock overrides the time source used to stamp records without a time.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
