// Package scoring aggregates per-subject Dice into a submission score.
package scoring

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/pkg/logger"
)

// Evaluator scores a parsed submission. The HTTP layer and the service depend
// on this rather than on *Scorer.
type Evaluator interface {
	// Score compares every subject of sub against the reference, honoring ctx.
	Score(ctx context.Context, sub model.LabelSet) (model.Evaluation, error)
}

// Scorer holds the immutable reference and compares submissions against it.
type Scorer struct {
	ref         model.LabelSet
	keys        []string
	mode        dice.Mode
	concurrency int
	log         logger.Logger
}

// New creates a scorer over ref. The reference is read-only after this call.
func New(ref model.LabelSet, opts ...Option) (*Scorer, error) {
	if len(ref) == 0 {
		return nil, ErrEmptyReference
	}
	s := &Scorer{
		ref:         ref,
		keys:        ref.Keys(),
		mode:        dice.Multiclass,
		concurrency: runtime.NumCPU(),
		log:         logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Subjects returns the sorted reference subject ids.
func (s *Scorer) Subjects() []string { return slices.Clone(s.keys) }

// Mode returns the comparison mode in effect.
func (s *Scorer) Mode() dice.Mode { return s.mode }

// Validate checks that sub has exactly the reference subject ids.
func (s *Scorer) Validate(sub model.LabelSet) error {
	var missing, extra []string
	for _, k := range s.keys {
		if _, ok := sub[k]; !ok {
			missing = append(missing, k)
		}
	}
	for _, k := range sub.Keys() {
		if _, ok := s.ref[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return &KeyMismatchError{Missing: missing, Extra: extra}
}

// Score validates keys and then compares every subject in sorted id order.
// No subject is scored when the keys do not match.
func (s *Scorer) Score(ctx context.Context, sub model.LabelSet) (model.Evaluation, error) {
	if err := s.Validate(sub); err != nil {
		return model.Evaluation{}, err
	}

	details := make([]dice.Detail, len(s.keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range s.keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("scoring cancelled: %w", err)
			}
			d, err := dice.Compare(s.mode, sub[key], s.ref[key])
			if err != nil {
				return &SubjectError{Subject: key, Err: err}
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Evaluation{}, err
	}

	scores := make([]float64, len(details))
	ev := model.Evaluation{
		PerSubject: make(map[string]float64, len(details)),
		PerClass:   make(map[string]map[int64]float64, len(details)),
	}
	for i, d := range details {
		key := s.keys[i]
		scores[i] = d.Score
		ev.PerSubject[key] = d.Score
		ev.PerClass[key] = d.PerClass
		s.log.Debug(ctx, "subject scored",
			logger.String("subject", key),
			logger.Float64("dice", d.Score),
			logger.Int("classes", len(d.PerClass)),
		)
	}
	ev.Score = stat.Mean(scores, nil)

	return ev, nil
}
