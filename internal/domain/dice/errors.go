package dice

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is the kind matched by every ShapeError.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError reports prediction and reference arrays of different shapes.
type ShapeError struct {
	Pred []int
	Ref  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: pred %v vs ref %v", e.Pred, e.Ref)
}

// Is lets errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }
