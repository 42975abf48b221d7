package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/segscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestLabelMap(t *testing.T) {
	convey.Convey("Given label map construction", t, func() {
		convey.Convey("When shape and data agree", func() {
			m, err := model.NewLabelMap([]int{2, 3}, []int64{0, 1, 1, 0, 2, 2})

			convey.Convey("Then it should be valid", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Len(), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the element count disagrees with the shape", func() {
			_, err := model.NewLabelMap([]int{2, 2}, []int64{0, 1, 1})

			convey.Convey("Then it should fail with ErrInvalidShape", func() {
				convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a dimension is negative", func() {
			err := model.LabelMap{Shape: []int{-1, -1}, Labels: []int64{0}}.Validate()

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, model.ErrInvalidShape), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the caller mutates the shape slice afterwards", func() {
			shape := []int{1, 2}
			m, err := model.NewLabelMap(shape, []int64{3, 4})
			shape[0] = 9

			convey.Convey("Then the label map keeps its own copy", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Shape, convey.ShouldResemble, []int{1, 2})
			})
		})

		convey.Convey("When comparing shapes", func() {
			a := model.LabelMap{Shape: []int{2, 2}, Labels: make([]int64, 4)}
			b := model.LabelMap{Shape: []int{4}, Labels: make([]int64, 4)}

			convey.Convey("Then equal element counts with different dims should differ", func() {
				convey.So(a.SameShape(a), convey.ShouldBeTrue)
				convey.So(a.SameShape(b), convey.ShouldBeFalse)
			})
		})
	})
}

func TestLabelSetKeys(t *testing.T) {
	convey.Convey("Given a label set", t, func() {
		set := model.LabelSet{
			"subj_10": {},
			"subj_02": {},
			"subj_01": {},
		}

		convey.Convey("Then keys should come back sorted", func() {
			convey.So(set.Keys(), convey.ShouldResemble, []string{"subj_01", "subj_02", "subj_10"})
		})
	})
}
