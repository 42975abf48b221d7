package repository_test

import (
	"testing"

	"github.com/okian/segscore/internal/adapters/repository"
	"github.com/okian/segscore/internal/domain/model"
	"github.com/okian/segscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func recs(pairs ...any) []model.Record {
	out := make([]model.Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.Record{Name: pairs[i].(string), Score: pairs[i+1].(float64)})
	}
	return out
}

func names(entries []types.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestRank(t *testing.T) {
	Convey("Given a submission history", t, func() {
		Convey("When a name submits more than once", func() {
			ranked := repository.Rank(recs("A", 0.5, "B", 0.9, "A", 0.7))

			Convey("Then only its best score is ranked", func() {
				So(ranked, ShouldResemble, []types.Entry{
					{Rank: 1, Name: "B", Score: 0.9},
					{Rank: 2, Name: "A", Score: 0.7},
				})
			})
		})

		Convey("When a later submission is worse", func() {
			ranked := repository.Rank(recs("A", 0.8, "A", 0.1))

			Convey("Then the earlier best is kept", func() {
				So(ranked, ShouldHaveLength, 1)
				So(ranked[0].Score, ShouldEqual, 0.8)
			})
		})

		Convey("When scores tie", func() {
			ranked := repository.Rank(recs("late", 0.1, "C", 0.5, "A", 0.5, "B", 0.5, "late", 0.5))

			Convey("Then first appearance decides the order and ranks are shared", func() {
				So(names(ranked), ShouldResemble, []string{"late", "C", "A", "B"})
				for _, e := range ranked {
					So(e.Rank, ShouldEqual, 1)
				}
			})
		})

		Convey("When ranks follow a tie", func() {
			ranked := repository.Rank(recs("a", 0.9, "b", 0.9, "c", 0.3))

			Convey("Then the next distinct score takes the next rank", func() {
				So(ranked[2].Rank, ShouldEqual, 2)
			})
		})

		Convey("When a record has no name", func() {
			ranked := repository.Rank(recs("", 1.0, "x", 0.2))

			Convey("Then it is skipped", func() {
				So(names(ranked), ShouldResemble, []string{"x"})
			})
		})

		Convey("When the history is empty", func() {
			ranked := repository.Rank(nil)

			Convey("Then the ranking is empty, not nil", func() {
				So(ranked, ShouldNotBeNil)
				So(ranked, ShouldBeEmpty)
			})
		})
	})
}

func TestPodium(t *testing.T) {
	Convey("Given a ranking of five", t, func() {
		ranked := repository.Rank(recs("a", 0.9, "b", 0.8, "c", 0.7, "d", 0.6, "e", 0.5))

		Convey("Then the first three are on the podium", func() {
			p := repository.Podium(ranked, 3)
			So(names(p.Top), ShouldResemble, []string{"a", "b", "c"})
			So(names(p.Others), ShouldResemble, []string{"d", "e"})
		})

		Convey("Then a podium larger than the field holds everyone", func() {
			p := repository.Podium(ranked, 10)
			So(p.Top, ShouldHaveLength, 5)
			So(p.Others, ShouldBeEmpty)
			So(p.Others, ShouldNotBeNil)
		})

		Convey("Then splitting does not alias the ranking", func() {
			p := repository.Podium(ranked, 2)
			p.Top[0].Name = "changed"
			So(ranked[0].Name, ShouldEqual, "a")
		})
	})

	Convey("Given no entries", t, func() {
		p := repository.Podium(nil, 3)

		Convey("Then both halves are empty", func() {
			So(p.Top, ShouldBeEmpty)
			So(p.Others, ShouldBeEmpty)
		})
	})
}
