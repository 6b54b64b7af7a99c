package l2frames

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Point is one LiDAR return in sensor-frame cartesian coordinates
// (meters) with its reflectivity.
type Point struct {
	X, Y, Z   float64
	Intensity float64
}

// Range returns the euclidean distance of the point from the sensor origin.
func (p Point) Range() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Finite reports whether every field of the point is a finite number.
func (p Point) Finite() bool {
	for _, v := range [...]float64{p.X, p.Y, p.Z, p.Intensity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PointSource produces one finite frame of points. How the points are
// obtained (file, PCAP replay, in-memory) is up to the implementation.
type PointSource interface {
	Points() ([]Point, error)
}

// SlicePointSource serves an in-memory point slice.
type SlicePointSource []Point

// Points implements PointSource. The returned slice aliases the source.
func (s SlicePointSource) Points() ([]Point, error) {
	return s, nil
}

// FileSource picks a file-backed PointSource from the path extension
// (.pcd or .asc).
func FileSource(path string) (PointSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pcd":
		return PCDFileSource{Path: path}, nil
	case ".asc", ".xyz", ".txt":
		return ASCFileSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported point cloud extension %q", ext)
	}
}
