package scoring

import (
	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/pkg/logger"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithMode selects multiclass or binary comparison.
func WithMode(mode dice.Mode) Option {
	return func(s *Scorer) {
		if mode == dice.Multiclass || mode == dice.Binary {
			s.mode = mode
		}
	}
}

// WithConcurrency bounds how many subjects are compared at once.
func WithConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-subject debug output.
func WithLogger(log logger.Logger) Option {
	return func(s *Scorer) {
		if log != nil {
			s.log = log
		}
	}
}
