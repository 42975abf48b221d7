package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/segscore/internal/domain/dice"
	"github.com/okian/segscore/internal/domain/model"
	scoring "github.com/okian/segscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func square(n int, fill func(r, c int) int64) model.LabelMap {
	labels := make([]int64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			labels[r*n+c] = fill(r, c)
		}
	}
	return model.LabelMap{Shape: []int{n, n}, Labels: labels}
}

// block labels a centred square with 1 and a corner with 2.
func block(shift int) func(r, c int) int64 {
	return func(r, c int) int64 {
		r -= shift
		switch {
		case r >= 4 && r < 12 && c >= 4 && c < 12:
			return 1
		case r >= 0 && r < 3 && c < 3:
			return 2
		}
		return 0
	}
}

func reference() model.LabelSet {
	return model.LabelSet{
		"case_001": square(16, block(0)),
		"case_002": square(16, block(0)),
		"case_003": square(16, func(int, int) int64 { return 0 }),
	}
}

func TestNew(t *testing.T) {
	Convey("Given an empty reference", t, func() {
		_, err := scoring.New(model.LabelSet{})

		Convey("Then the scorer should refuse to start", func() {
			So(errors.Is(err, scoring.ErrEmptyReference), ShouldBeTrue)
		})
	})

	Convey("Given options", t, func() {
		s, err := scoring.New(reference(), scoring.WithMode(dice.Binary), scoring.WithConcurrency(2))

		Convey("Then they should be applied", func() {
			So(err, ShouldBeNil)
			So(s.Mode(), ShouldEqual, dice.Binary)
			So(s.Subjects(), ShouldResemble, []string{"case_001", "case_002", "case_003"})
		})

		Convey("And an unknown mode is ignored", func() {
			s, err := scoring.New(reference(), scoring.WithMode("ternary"))
			So(err, ShouldBeNil)
			So(s.Mode(), ShouldEqual, dice.Multiclass)
		})
	})
}

func TestScorer_Score(t *testing.T) {
	Convey("Given a scorer over three subjects", t, func() {
		ctx := context.Background()
		s, err := scoring.New(reference(), scoring.WithConcurrency(2))
		So(err, ShouldBeNil)

		Convey("When the submission equals the reference", func() {
			ev, err := s.Score(ctx, reference())

			Convey("Then every subject and the mean should be perfect", func() {
				So(err, ShouldBeNil)
				So(ev.Score, ShouldBeGreaterThan, 0.99)
				So(ev.PerSubject, ShouldHaveLength, 3)
				for _, v := range ev.PerSubject {
					So(v, ShouldEqual, 1.0)
				}
				So(ev.PerClass["case_001"], ShouldResemble, map[int64]float64{1: 1.0, 2: 1.0})
				So(ev.PerClass["case_003"], ShouldBeEmpty)
			})
		})

		Convey("When the foreground is shifted", func() {
			sub := reference()
			sub["case_001"] = square(16, block(2))
			ev, err := s.Score(ctx, sub)

			Convey("Then the shifted subject and the mean should drop", func() {
				So(err, ShouldBeNil)
				So(ev.PerSubject["case_001"], ShouldBeLessThan, 1.0)
				So(ev.PerSubject["case_002"], ShouldEqual, 1.0)
				So(ev.Score, ShouldBeLessThan, 1.0)
				So(ev.Score, ShouldAlmostEqual, (ev.PerSubject["case_001"]+2)/3, 1e-12)
			})
		})

		Convey("When a subject is missing", func() {
			sub := reference()
			delete(sub, "case_002")
			_, err := s.Score(ctx, sub)

			Convey("Then a key mismatch naming it should be returned", func() {
				So(errors.Is(err, scoring.ErrKeyMismatch), ShouldBeTrue)
				var km *scoring.KeyMismatchError
				So(errors.As(err, &km), ShouldBeTrue)
				So(km.Missing, ShouldResemble, []string{"case_002"})
				So(km.Extra, ShouldBeEmpty)
				So(err.Error(), ShouldEqual, "Key mismatch between reference and prediction archives: missing predictions for: [case_002]")
				So(err.Error(), ShouldNotContainSubstring, "unexpected subjects")
			})
		})

		Convey("When keys are both missing and extra", func() {
			sub := reference()
			delete(sub, "case_001")
			delete(sub, "case_003")
			sub["case_900"] = square(16, block(0))
			sub["bonus"] = square(16, block(0))
			_, err := s.Score(ctx, sub)

			Convey("Then every offending key should be listed", func() {
				var km *scoring.KeyMismatchError
				So(errors.As(err, &km), ShouldBeTrue)
				So(km.Missing, ShouldResemble, []string{"case_001", "case_003"})
				So(km.Extra, ShouldResemble, []string{"bonus", "case_900"})
				So(err.Error(), ShouldContainSubstring, "missing predictions for: [case_001, case_003]; unexpected subjects in submission: [bonus, case_900]")
			})
		})

		Convey("When a submission only adds a subject", func() {
			sub := reference()
			sub["extra"] = square(16, block(0))
			_, err := s.Score(ctx, sub)

			Convey("Then only the unexpected part is reported", func() {
				So(errors.Is(err, scoring.ErrKeyMismatch), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Key mismatch between reference and prediction archives: unexpected subjects in submission: [extra]")
				So(err.Error(), ShouldNotContainSubstring, "missing predictions")
			})
		})

		Convey("When a subject has the wrong shape", func() {
			sub := reference()
			sub["case_002"] = square(8, block(0))
			_, err := s.Score(ctx, sub)

			Convey("Then the shape error should carry the subject id", func() {
				So(errors.Is(err, dice.ErrShapeMismatch), ShouldBeTrue)
				var se *scoring.SubjectError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Subject, ShouldEqual, "case_002")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Score(cctx, reference())

			Convey("Then scoring should stop", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestScorer_BinaryMode(t *testing.T) {
	Convey("Given a binary scorer", t, func() {
		ref := model.LabelSet{"a": {Shape: []int{4}, Labels: []int64{1, 2, 0, 0}}}
		s, err := scoring.New(ref, scoring.WithMode(dice.Binary))
		So(err, ShouldBeNil)

		Convey("When labels are swapped but foreground matches", func() {
			sub := model.LabelSet{"a": {Shape: []int{4}, Labels: []int64{2, 1, 0, 0}}}
			ev, err := s.Score(context.Background(), sub)

			Convey("Then the score should be perfect", func() {
				So(err, ShouldBeNil)
				So(ev.Score, ShouldEqual, 1.0)
			})
		})
	})
}
