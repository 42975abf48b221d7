// Package service wires the scorer, the leaderboard store and the write queue
// into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/segscore/internal/adapters/archive"
	writequeue "github.com/okian/segscore/internal/adapters/mq/queue"
	"github.com/okian/segscore/internal/adapters/mq/worker"
	"github.com/okian/segscore/internal/adapters/repository"
	"github.com/okian/segscore/internal/domain/dedupe"
	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/internal/domain/scoring"
	"github.com/okian/segscore/internal/domain/types"
	"github.com/okian/segscore/pkg/logger"
	"github.com/okian/segscore/pkg/metrics"
)

const (
	stopTimeout      = 30 * time.Second
	forceStopTimeout = 5 * time.Second
)

// Submission is an uploaded archive waiting to be scored.
type Submission struct {
	Name    string
	Archive io.ReaderAt
	Size    int64
}

// Result is a scored and recorded submission.
type Result struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Score      float64                      `json:"score"`
	PerSubject map[string]float64           `json:"per_subject"`
	PerClass   map[string]map[int64]float64 `json:"per_class,omitempty"`
}

// Service implements the API dependencies for the scoring service.
type Service struct {
	mu sync.RWMutex

	// Core components
	decoder archive.Decoder
	scorer  *scoring.Scorer
	store   repository.Store
	deduper dedupe.Deduper
	queue   *writequeue.InMemoryQueue
	writers *worker.Pool

	// Configuration
	referencePath      string
	format             string
	reference          model.LabelSet
	storeBackend       string
	storePath          string
	diceMode           dice.Mode
	scoringConcurrency int
	queueSize          int
	dedupeSize         int
	podiumSize         int
	maxUploadBytes     int64
	nameMaxLen         int
	tempDir            string
	now                func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		referencePath:      "data/test_data_reference.npz",
		format:             "npz",
		storeBackend:       repository.BackendJSON,
		storePath:          "data/results.json",
		diceMode:           dice.Multiclass,
		scoringConcurrency: runtime.NumCPU(),
		queueSize:          1024,
		dedupeSize:         10_000,
		podiumSize:         3,
		maxUploadBytes:     1 << 20,
		nameMaxLen:         40,
		now:                time.Now,
		logger:             nil, // replaced in Start
	}

	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start loads the reference and starts the leaderboard writer. It fails when
// the reference cannot be loaded, so the process never serves without one.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting scoring service...")

	dec, err := archive.ForFormat(s.format)
	if err != nil {
		return err
	}

	ref := s.reference
	if ref == nil {
		ref, err = archive.LoadFile(ctx, dec, s.referencePath)
		if err != nil {
			return fmt.Errorf("load reference %s: %w", s.referencePath, err)
		}
	}
	// A submission member can never be larger than the largest reference subject.
	s.decoder, err = archive.ForFormat(s.format, archive.WithMaxElements(largestSubject(ref)))
	if err != nil {
		return err
	}
	scorer, err := scoring.New(ref,
		scoring.WithMode(s.diceMode),
		scoring.WithConcurrency(s.scoringConcurrency),
		scoring.WithLogger(s.logger.Named("scoring")),
	)
	if err != nil {
		return fmt.Errorf("reference %s: %w", s.referencePath, err)
	}
	s.scorer = scorer
	metrics.UpdateReferenceSubjects(len(ref))

	if s.store == nil {
		s.store, err = repository.Open(ctx, s.storeBackend, s.storePath,
			repository.WithLogger(s.logger.Named("store")),
			repository.WithClock(s.now),
		)
		if err != nil {
			return fmt.Errorf("open leaderboard: %w", err)
		}
	}

	s.queue = writequeue.NewInMemoryQueue(writequeue.WithCapacity(s.queueSize))

	// The writer outlives request contexts and drains on Stop.
	s.writers = worker.NewPool(1, s.queue, s.store, worker.WithLogger(s.logger.Named("writer")))
	s.writers.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("subjects", len(ref)),
		logger.String("format", s.decoder.Format()),
		logger.String("mode", string(s.scorer.Mode())),
		logger.String("store", s.storeBackend),
	)
	return nil
}

// Stop closes the write queue, waits for pending appends and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping scoring service...")

	_ = s.queue.Close()
	if err := s.writers.Wait(ctx); err != nil {
		s.logger.Error(ctx, "leaderboard writer did not drain", logger.Error(err))
		// Abandon the remaining jobs so the store can be closed.
		forceCtx, forceCancel := context.WithTimeout(context.Background(), forceStopTimeout)
		if err := s.writers.Stop(forceCtx); err != nil {
			s.logger.Error(ctx, "stopping leaderboard writer", logger.Error(err))
		}
		forceCancel()
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing leaderboard store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// Evaluate decodes and scores an archive without recording it.
func (s *Service) Evaluate(ctx context.Context, r io.ReaderAt, size int64) (model.Evaluation, error) {
	s.mu.RLock()
	started, dec, scorer := s.started, s.decoder, s.scorer
	s.mu.RUnlock()
	if !started {
		return model.Evaluation{}, ErrNotStarted
	}

	start := time.Now()
	sub, err := dec.Decode(ctx, r, size)
	if err != nil {
		return model.Evaluation{}, err
	}
	ev, err := scorer.Score(ctx, sub)
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return model.Evaluation{}, err
	}

	metrics.RecordSubmissionScore(ev.Score)
	for _, v := range ev.PerSubject {
		metrics.RecordSubjectScore(v)
	}
	return ev, nil
}

// Submit scores sub and appends the result to the leaderboard. Nothing is
// recorded when scoring fails.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	ev, err := s.Evaluate(ctx, sub.Archive, sub.Size)
	if err != nil {
		return Result{}, err
	}

	rec := model.Record{
		ID:          uuid.NewString(),
		Name:        sub.Name,
		Score:       ev.Score,
		PerSubject:  ev.PerSubject,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.Record(ctx, rec); err != nil {
		return Result{}, err
	}

	s.logger.Info(ctx, "submission scored",
		logger.String("submission_id", rec.ID),
		logger.String("name", rec.Name),
		logger.Float64("score", rec.Score),
		logger.Int("subjects", len(ev.PerSubject)),
	)
	return Result{
		ID:         rec.ID,
		Name:       rec.Name,
		Score:      ev.Score,
		PerSubject: ev.PerSubject,
		PerClass:   ev.PerClass,
	}, nil
}

// Record queues rec for the leaderboard writer and waits for the append.
func (s *Service) Record(ctx context.Context, rec model.Record) error {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	job := model.NewWriteJob(rec)
	if err := q.Enqueue(ctx, job); err != nil {
		if errors.Is(err, writequeue.ErrFull) {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return err
	}
	metrics.UpdateQueueSize(q.Len())

	select {
	case err := <-job.Done:
		return err
	case <-ctx.Done():
		// The write still happens; only the caller stops waiting.
		return fmt.Errorf("waiting for leaderboard append: %w", ctx.Err())
	}
}

// Ranking returns every contestant's best score, best first.
func (s *Service) Ranking(ctx context.Context) ([]types.Entry, error) {
	s.mu.RLock()
	started, store := s.started, s.store
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	records, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	ranked := repository.Rank(records)
	metrics.RecordLeaderboardRead()
	metrics.UpdateContestants(len(ranked))
	return ranked, nil
}

// Leaderboard returns the ranking split into podium and the rest.
func (s *Service) Leaderboard(ctx context.Context) (types.Podium, error) {
	ranked, err := s.Ranking(ctx)
	if err != nil {
		return types.Podium{}, err
	}
	return repository.Podium(ranked, s.podiumSize), nil
}

// SeenAndRecord checks and records an idempotency key.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord forgets an idempotency key so a failed submission can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Extension is the file suffix uploads must carry.
func (s *Service) Extension() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.decoder == nil {
		return ""
	}
	return s.decoder.Extension()
}

// MaxUploadBytes is the upload size cap.
func (s *Service) MaxUploadBytes() int64 { return s.maxUploadBytes }

// NameMaxLen bounds contestant names.
func (s *Service) NameMaxLen() int { return s.nameMaxLen }

// TempDir is where uploads are spooled; empty means the OS default.
func (s *Service) TempDir() string { return s.tempDir }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"storeBackend": s.storeBackend,
		"diceMode":     string(s.diceMode),
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["subjects"] = len(s.scorer.Subjects())
		stats["format"] = s.decoder.Format()
		stats["idempotencyKeys"] = s.deduper.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["submissions"] = n
		} else {
			s.logger.Warn(ctx, "counting submissions", logger.Error(err))
		}
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

// largestSubject is the element count of the biggest label map in set.
func largestSubject(set model.LabelSet) uint64 {
	var n uint64
	for _, lm := range set {
		n = max(n, uint64(len(lm.Labels)))
	}
	return n
}
