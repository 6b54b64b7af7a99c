package l3grid

import (
	"math"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

// Projection is where one point lands on the grid.
type Projection struct {
	Row, Col int
	Range    float64
	Yaw      float64 // radians in (-π, π]
	Pitch    float64 // radians in [-π/2, π/2]; NaN when Range is 0
}

// Degenerate reports whether the projection came from a point at the
// sensor origin or with non-finite coordinates. Such projections still
// carry in-range Row and Col.
func (p Projection) Degenerate() bool {
	return p.Range == 0 || math.IsNaN(p.Range) || math.IsInf(p.Range, 0) ||
		math.IsNaN(p.Pitch) || math.IsNaN(p.Yaw)
}

// Project maps a point onto g. It is total: every input yields a Row in
// [0, Rows) and a Col in [0, Cols). Points outside the vertical field of
// view are pinned to the nearest border row and a NaN pitch (range 0) is
// pinned to the last row.
func Project(p l2frames.Point, g SensorGeometry) Projection {
	r := p.Range()
	yaw := math.Atan2(p.Y, p.X)
	pitch := math.Asin(p.Z / r)

	u := 0.5 * (yaw/math.Pi + 1.0)
	v := 1.0 - (pitch+g.fovDownRad)/g.fovSpanRad

	return Projection{
		Row:   clampIndex(v*float64(g.rows), g.rows),
		Col:   clampIndex(u*float64(g.cols), g.cols),
		Range: r,
		Yaw:   yaw,
		Pitch: pitch,
	}
}

// clampIndex floors scaled and clamps it to [0, n-1]. NaN goes to n-1.
func clampIndex(scaled float64, n int) int {
	if n <= 0 {
		return 0
	}
	if math.IsNaN(scaled) {
		return n - 1
	}
	f := math.Floor(scaled)
	if f < 0 {
		return 0
	}
	if f > float64(n-1) {
		return n - 1
	}
	return int(f)
}
