package service

import (
	"time"

	"github.com/okian/segscore/internal/adapters/repository"
	"github.com/okian/segscore/internal/config"
	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithReference sets the reference archive and its format.
func WithReference(path, format string) Option {
	return func(s *Service) {
		if path != "" {
			s.referencePath = path
		}
		if format != "" {
			s.format = format
		}
	}
}

// WithReferenceSet uses an already decoded reference instead of loading a file.
func WithReferenceSet(ref model.LabelSet) Option {
	return func(s *Service) {
		s.reference = ref
	}
}

// WithStore selects the leaderboard backend and its path.
func WithStore(backend, path string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
		s.storePath = path
	}
}

// WithRepository injects a ready store; the service closes it on Stop.
func WithRepository(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithDiceMode selects multiclass or binary comparison.
func WithDiceMode(mode string) Option {
	return func(s *Service) {
		if mode != "" {
			s.diceMode = dice.Mode(mode)
		}
	}
}

// WithScoringConcurrency bounds per-subject scoring goroutines.
func WithScoringConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scoringConcurrency = n
		}
	}
}

// WithQueueSize sets the maximum number of pending leaderboard writes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPodiumSize sets how many leading entries are split out for display.
func WithPodiumSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.podiumSize = size
		}
	}
}

// WithMaxUploadBytes caps accepted archive sizes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithNameMaxLen bounds contestant names.
func WithNameMaxLen(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.nameMaxLen = n
		}
	}
}

// WithTempDir sets where uploads are spooled.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// OptionsFromConfig maps a loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	storePath := cfg.ResultsPath
	if cfg.StoreBackend == config.BackendSQLite {
		storePath = cfg.SQLitePath
	}
	return []Option{
		WithReference(cfg.ReferencePath, cfg.ReferenceFormat),
		WithStore(cfg.StoreBackend, storePath),
		WithDiceMode(cfg.DiceMode),
		WithScoringConcurrency(cfg.ScoringConcurrency),
		WithQueueSize(cfg.WriteQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithPodiumSize(cfg.PodiumSize),
		WithMaxUploadBytes(cfg.MaxUploadBytes),
		WithNameMaxLen(cfg.NameMaxLen),
		WithTempDir(cfg.TempDir),
	}
}
