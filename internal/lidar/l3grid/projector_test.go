package l3grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

func TestProject_ConcreteScenario(t *testing.T) {
	pr := Project(l2frames.Point{X: 1, Y: 0, Z: 0, Intensity: 0.5}, hdl64())

	assert.Equal(t, 4, pr.Row)
	assert.Equal(t, 512, pr.Col)
	assert.Equal(t, 1.0, pr.Range)
	assert.Equal(t, 0.0, pr.Yaw)
	assert.Equal(t, 0.0, pr.Pitch)
	assert.False(t, pr.Degenerate())
}

func TestProject_FOVBoundaryClamping(t *testing.T) {
	g := hdl64()
	at := func(pitchDeg float64) l2frames.Point {
		rad := pitchDeg * math.Pi / 180
		return l2frames.Point{X: 10 * math.Cos(rad), Z: 10 * math.Sin(rad)}
	}

	tests := []struct {
		name     string
		pitchDeg float64
		wantRow  int
	}{
		{"at fov_up", 2, 0},
		{"above fov_up", 45, 0},
		{"straight up", 90, 0},
		{"at fov_down", -24.8, 63},
		{"below fov_down", -60, 63},
		{"straight down", -90, 63},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pr := Project(at(tc.pitchDeg), g)
			assert.Equal(t, tc.wantRow, pr.Row)
			assert.False(t, pr.Degenerate())
		})
	}
}

func TestProject_Azimuth(t *testing.T) {
	g := hdl64()
	tests := []struct {
		name    string
		p       l2frames.Point
		wantCol int
	}{
		{"forward", l2frames.Point{X: 5}, 512},
		{"left", l2frames.Point{Y: 5}, 768},
		{"right", l2frames.Point{Y: -5}, 256},
		{"behind, yaw +pi", l2frames.Point{X: -5}, 1023},
		{"behind, yaw -pi", l2frames.Point{X: -5, Y: math.Copysign(0, -1)}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantCol, Project(tc.p, g).Col)
		})
	}
}

func TestProject_Totality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	geometries := []SensorGeometry{
		hdl64(),
		MustSensorGeometry(15, -25, 40, 1800),
		MustSensorGeometry(1, 0, 1, 1),
		MustSensorGeometry(-5, -30, 7, 3),
	}
	for _, g := range geometries {
		for i := 0; i < 5000; i++ {
			p := l2frames.Point{
				X: (rng.Float64() - 0.5) * 200,
				Y: (rng.Float64() - 0.5) * 200,
				Z: (rng.Float64() - 0.5) * 200,
			}
			pr := Project(p, g)
			if pr.Row < 0 || pr.Row >= g.Rows() || pr.Col < 0 || pr.Col >= g.Cols() {
				t.Fatalf("%s: point %+v projected to (%d, %d)", g, p, pr.Row, pr.Col)
			}
		}
	}
}

func TestProject_Degenerate(t *testing.T) {
	g := hdl64()

	pr := Project(l2frames.Point{Intensity: 3}, g)
	assert.True(t, pr.Degenerate())
	assert.True(t, math.IsNaN(pr.Pitch))
	assert.Equal(t, 63, pr.Row, "NaN pitch pins to the last row")
	assert.Equal(t, 512, pr.Col)
	assert.Equal(t, 0.0, pr.Range)

	for _, p := range []l2frames.Point{
		{X: math.NaN()},
		{X: math.Inf(1)},
		{Z: math.Inf(-1)},
	} {
		pr := Project(p, g)
		assert.True(t, pr.Degenerate(), "%+v", p)
		assert.GreaterOrEqual(t, pr.Row, 0)
		assert.Less(t, pr.Row, g.Rows())
		assert.GreaterOrEqual(t, pr.Col, 0)
		assert.Less(t, pr.Col, g.Cols())
	}
}

func TestClampIndex(t *testing.T) {
	tests := []struct {
		scaled float64
		n      int
		want   int
	}{
		{0, 10, 0},
		{9.99, 10, 9},
		{10, 10, 9},
		{-0.001, 10, 0},
		{-1e9, 10, 0},
		{1e9, 10, 9},
		{math.NaN(), 10, 9},
		{math.Inf(1), 10, 9},
		{math.Inf(-1), 10, 0},
		{5, 0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, clampIndex(tc.scaled, tc.n), "clampIndex(%v, %d)", tc.scaled, tc.n)
	}
}
