// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrInvalidShape is returned when a label map's shape does not match its data.
var ErrInvalidShape = errors.New("invalid label map shape")

// LabelMap is a dense, row-major array of integer class labels.
// Label 0 is background.
type LabelMap struct {
	Shape  []int
	Labels []int64
}

// NewLabelMap builds a LabelMap and checks that shape and data agree.
func NewLabelMap(shape []int, labels []int64) (LabelMap, error) {
	m := LabelMap{Shape: slices.Clone(shape), Labels: labels}
	if err := m.Validate(); err != nil {
		return LabelMap{}, err
	}
	return m, nil
}

// Validate reports whether the element count implied by Shape equals len(Labels).
func (m LabelMap) Validate() error {
	n := 1
	for _, d := range m.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrInvalidShape, m.Shape)
		}
		n *= d
	}
	if n != len(m.Labels) {
		return fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrInvalidShape, m.Shape, n, len(m.Labels))
	}
	return nil
}

// Len returns the number of elements.
func (m LabelMap) Len() int { return len(m.Labels) }

// SameShape reports whether m and o have identical dimensions.
func (m LabelMap) SameShape(o LabelMap) bool {
	return slices.Equal(m.Shape, o.Shape)
}

// LabelSet maps subject identifiers to label maps. A reference LabelSet is
// built once at startup and never mutated afterwards.
type LabelSet map[string]LabelMap

// Keys returns subject identifiers in sorted order.
func (s LabelSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
