package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/segscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an Entry struct", t, func() {
		Convey("When creating an entry with zero values", func() {
			entry := types.Entry{}

			Convey("Then it should have default values", func() {
				So(entry.Rank, ShouldEqual, 0)
				So(entry.Name, ShouldEqual, "")
				So(entry.Score, ShouldEqual, 0.0)
			})
		})

		Convey("When encoding to JSON", func() {
			b, err := json.Marshal(types.Entry{Rank: 1, Name: "team (a)", Score: 0.875})

			Convey("Then the public field names should be used", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"rank":1,"name":"team (a)","score":0.875}`)
			})
		})
	})
}

func TestPodium(t *testing.T) {
	Convey("Given a podium", t, func() {
		p := types.Podium{
			Top: []types.Entry{
				{Rank: 1, Name: "a", Score: 0.9},
				{Rank: 2, Name: "b", Score: 0.8},
			},
			Others: []types.Entry{{Rank: 3, Name: "c", Score: 0.1}},
		}

		Convey("Then All should keep rank order", func() {
			So(p.Len(), ShouldEqual, 3)
			names := []string{}
			for _, e := range p.All() {
				names = append(names, e.Name)
			}
			So(names, ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("When empty, it should encode empty arrays", func() {
			b, err := json.Marshal(types.Podium{Top: []types.Entry{}, Others: []types.Entry{}})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"top3":[],"others":[]}`)
		})
	})
}
