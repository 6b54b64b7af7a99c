package l3grid

import (
	"fmt"
	"math"

	"github.com/banshee-data/rangeimage/internal/lidar"
)

// DegenerateGeometryError reports a SensorGeometry that cannot produce a
// usable projection.
type DegenerateGeometryError struct {
	Field  string
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate sensor geometry: %s %s", e.Field, e.Reason)
}

// SensorGeometry is the immutable vertical field of view and image
// resolution of a sensor. Construct it with NewSensorGeometry; the zero
// value is not a valid geometry.
type SensorGeometry struct {
	fovUpDeg   float64
	fovDownDeg float64
	rows       int
	cols       int

	fovDownRad float64 // |fov_down| in radians
	fovSpanRad float64 // |fov_up| + |fov_down| in radians
}

// NewSensorGeometry validates and returns a geometry. fovUpDeg must be
// strictly above fovDownDeg and both grid dimensions must be at least 1.
func NewSensorGeometry(fovUpDeg, fovDownDeg float64, rows, cols int) (SensorGeometry, error) {
	switch {
	case math.IsNaN(fovUpDeg) || math.IsInf(fovUpDeg, 0):
		return SensorGeometry{}, &DegenerateGeometryError{Field: "fov_up", Reason: fmt.Sprintf("must be finite, got %v", fovUpDeg)}
	case math.IsNaN(fovDownDeg) || math.IsInf(fovDownDeg, 0):
		return SensorGeometry{}, &DegenerateGeometryError{Field: "fov_down", Reason: fmt.Sprintf("must be finite, got %v", fovDownDeg)}
	case fovUpDeg <= fovDownDeg:
		return SensorGeometry{}, &DegenerateGeometryError{Field: "fov_up", Reason: fmt.Sprintf("(%v) must be greater than fov_down (%v)", fovUpDeg, fovDownDeg)}
	case rows < 1:
		return SensorGeometry{}, &DegenerateGeometryError{Field: "num_rows", Reason: fmt.Sprintf("must be at least 1, got %d", rows)}
	case cols < 1:
		return SensorGeometry{}, &DegenerateGeometryError{Field: "num_cols", Reason: fmt.Sprintf("must be at least 1, got %d", cols)}
	}

	upRad := lidar.DegToRad(fovUpDeg)
	downRad := lidar.DegToRad(fovDownDeg)
	return SensorGeometry{
		fovUpDeg:   fovUpDeg,
		fovDownDeg: fovDownDeg,
		rows:       rows,
		cols:       cols,
		fovDownRad: math.Abs(downRad),
		fovSpanRad: math.Abs(upRad) + math.Abs(downRad),
	}, nil
}

// MustSensorGeometry is NewSensorGeometry for constants known to be valid.
func MustSensorGeometry(fovUpDeg, fovDownDeg float64, rows, cols int) SensorGeometry {
	g, err := NewSensorGeometry(fovUpDeg, fovDownDeg, rows, cols)
	if err != nil {
		panic(err)
	}
	return g
}

// FovUpDeg returns the upper vertical limit in degrees.
func (g SensorGeometry) FovUpDeg() float64 { return g.fovUpDeg }

// FovDownDeg returns the lower vertical limit in degrees.
func (g SensorGeometry) FovDownDeg() float64 { return g.fovDownDeg }

// Rows returns the number of elevation bins.
func (g SensorGeometry) Rows() int { return g.rows }

// Cols returns the number of azimuth bins.
func (g SensorGeometry) Cols() int { return g.cols }

// FovDownRad returns |fov_down| in radians.
func (g SensorGeometry) FovDownRad() float64 { return g.fovDownRad }

// FovSpanRad returns |fov_up| + |fov_down| in radians.
func (g SensorGeometry) FovSpanRad() float64 { return g.fovSpanRad }

// Cells returns Rows*Cols.
func (g SensorGeometry) Cells() int { return g.rows * g.cols }

func (g SensorGeometry) valid() error {
	if g.rows < 1 || g.cols < 1 || g.fovSpanRad <= 0 {
		return &DegenerateGeometryError{Field: "geometry", Reason: "was not built with NewSensorGeometry"}
	}
	return nil
}

func (g SensorGeometry) String() string {
	return fmt.Sprintf("fov=[%g, %g]deg %dx%d", g.fovDownDeg, g.fovUpDeg, g.rows, g.cols)
}
