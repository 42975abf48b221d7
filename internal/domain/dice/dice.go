// Package dice computes Dice similarity between integer-labeled arrays.
//
// Label 0 is background and never scored. For every foreground label L present
// in either array the class score is 2|P∩R| / (|P|+|R|) over the masks P=(pred==L)
// and R=(ref==L); a subject score is the unweighted mean of its class scores,
// and exactly 1.0 when neither array has foreground.
package dice

import (
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/segscore/internal/domain/model"
)

// Background is the label excluded from scoring.
const Background int64 = 0

// Mode selects how labels are compared.
type Mode string

const (
	// Multiclass scores every foreground label separately and macro-averages.
	Multiclass Mode = "multiclass"
	// Binary collapses all foreground labels into one structure.
	Binary Mode = "binary"
)

// Detail is a subject score with its per-class breakdown.
type Detail struct {
	Score    float64
	PerClass map[int64]float64
}

type overlap struct {
	pred, ref, inter int
}

// Labels returns the sorted foreground labels present in pred or ref.
func Labels(pred, ref model.LabelMap) []int64 {
	seen := make(map[int64]struct{})
	for _, l := range pred.Labels {
		if l != Background {
			seen[l] = struct{}{}
		}
	}
	for _, l := range ref.Labels {
		if l != Background {
			seen[l] = struct{}{}
		}
	}
	labels := make([]int64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Class returns the binary Dice of the masks pred==label and ref==label.
func Class(pred, ref model.LabelMap, label int64) (float64, error) {
	if err := checkShape(pred, ref); err != nil {
		return 0, err
	}
	var o overlap
	for i, p := range pred.Labels {
		r := ref.Labels[i]
		if p == label {
			o.pred++
		}
		if r == label {
			o.ref++
		}
		if p == label && r == label {
			o.inter++
		}
	}
	return o.score(), nil
}

// Subject returns the macro Dice of one prediction/reference pair.
func Subject(pred, ref model.LabelMap) (float64, error) {
	d, err := SubjectDetail(pred, ref)
	if err != nil {
		return 0, err
	}
	return d.Score, nil
}

// SubjectDetail returns the macro Dice and every per-class score in one pass.
func SubjectDetail(pred, ref model.LabelMap) (Detail, error) {
	if err := checkShape(pred, ref); err != nil {
		return Detail{}, err
	}

	counts := make(map[int64]*overlap)
	get := func(l int64) *overlap {
		o, ok := counts[l]
		if !ok {
			o = &overlap{}
			counts[l] = o
		}
		return o
	}
	for i, p := range pred.Labels {
		r := ref.Labels[i]
		if p != Background {
			get(p).pred++
		}
		if r != Background {
			get(r).ref++
		}
		if p == r && p != Background {
			counts[p].inter++
		}
	}

	labels := make([]int64, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	perClass := make(map[int64]float64, len(labels))
	scores := make([]float64, len(labels))
	for i, l := range labels {
		s := counts[l].score()
		perClass[l] = s
		scores[i] = s
	}
	return Detail{Score: Macro(scores), PerClass: perClass}, nil
}

// Macro averages class scores with equal weight. No classes means a trivial
// perfect match.
func Macro(scores []float64) float64 {
	if len(scores) == 0 {
		return 1.0
	}
	return stat.Mean(scores, nil)
}

// Binarize maps every foreground label to 1.
func Binarize(m model.LabelMap) model.LabelMap {
	out := make([]int64, len(m.Labels))
	for i, l := range m.Labels {
		if l != Background {
			out[i] = 1
		}
	}
	return model.LabelMap{Shape: slices.Clone(m.Shape), Labels: out}
}

// Compare scores a pair under mode.
func Compare(mode Mode, pred, ref model.LabelMap) (Detail, error) {
	if mode == Binary {
		return SubjectDetail(Binarize(pred), Binarize(ref))
	}
	return SubjectDetail(pred, ref)
}

func (o overlap) score() float64 {
	denom := o.pred + o.ref
	if denom == 0 {
		return 1.0
	}
	return 2.0 * float64(o.inter) / float64(denom)
}

func checkShape(pred, ref model.LabelMap) error {
	if !pred.SameShape(ref) || pred.Len() != ref.Len() {
		return &ShapeError{Pred: pred.Shape, Ref: ref.Shape}
	}
	return nil
}
