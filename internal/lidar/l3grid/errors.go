package l3grid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

// EmptyInputError is returned by Build when there are no points to project.
// Callers usually skip the frame.
type EmptyInputError struct{}

func (*EmptyInputError) Error() string { return "range image: empty point sequence" }

// Is lets errors.Is match any *EmptyInputError.
func (*EmptyInputError) Is(target error) bool {
	_, ok := target.(*EmptyInputError)
	return ok
}

// ErrEmptyInput is the EmptyInputError sentinel for errors.Is.
var ErrEmptyInput error = &EmptyInputError{}

// ErrOutOfBounds is returned by RangeImage accessors for a (row, col)
// outside the grid.
var ErrOutOfBounds = errors.New("range image: pixel out of bounds")

// DegeneratePointError is returned under DegenerateReject for the first
// point whose range is zero or whose fields are not finite.
type DegeneratePointError struct {
	Index int
	Point l2frames.Point
}

func (e *DegeneratePointError) Error() string {
	return fmt.Sprintf("range image: degenerate point %d (%g, %g, %g): range is zero or not finite",
		e.Index, e.Point.X, e.Point.Y, e.Point.Z)
}
