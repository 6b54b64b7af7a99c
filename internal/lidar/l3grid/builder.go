package l3grid

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

// CollisionPolicy decides which point a cell keeps when several points
// project onto it.
type CollisionPolicy int

const (
	// LastWriteWins keeps the point that comes last in input order.
	LastWriteWins CollisionPolicy = iota
	// NearestWins keeps the point with the smallest range; on equal range
	// the earlier point stays.
	NearestWins
)

func (p CollisionPolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last_write_wins"
	case NearestWins:
		return "nearest_wins"
	}
	return fmt.Sprintf("CollisionPolicy(%d)", int(p))
}

// ParseCollisionPolicy accepts the names produced by String.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(s) {
	case "", "last_write_wins":
		return LastWriteWins, nil
	case "nearest_wins":
		return NearestWins, nil
	}
	return 0, fmt.Errorf("unknown collision policy %q", s)
}

// DegeneratePolicy decides what Build does with a point at the sensor
// origin (range 0) or with non-finite fields.
type DegeneratePolicy int

const (
	// DegenerateSkip drops the point and counts it in BuildStats.Skipped.
	DegenerateSkip DegeneratePolicy = iota
	// DegenerateClamp writes the point wherever Project pinned it; a point
	// at the origin lands in the last row with range 0.
	DegenerateClamp
	// DegenerateReject aborts Build with a *DegeneratePointError.
	DegenerateReject
)

func (p DegeneratePolicy) String() string {
	switch p {
	case DegenerateSkip:
		return "skip"
	case DegenerateClamp:
		return "clamp"
	case DegenerateReject:
		return "reject"
	}
	return fmt.Sprintf("DegeneratePolicy(%d)", int(p))
}

// ParseDegeneratePolicy accepts the names produced by String.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return DegenerateSkip, nil
	case "clamp":
		return DegenerateClamp, nil
	case "reject":
		return DegenerateReject, nil
	}
	return 0, fmt.Errorf("unknown degenerate policy %q", s)
}

// BuildStats counts what happened during one Build.
type BuildStats struct {
	Points     int // points offered
	Written    int // distinct cells occupied at the end
	Skipped    int // degenerate points dropped
	Collisions int // writes that hit an already occupied cell
}

// projectChunk is the number of points one worker projects per task.
const projectChunk = 4096

// Builder turns point sequences into range images. A Builder holds no
// per-build state and may be shared between goroutines.
type Builder struct {
	Geometry   SensorGeometry
	Collision  CollisionPolicy
	Degenerate DegeneratePolicy

	// Workers > 1 projects points concurrently. Writes are always applied
	// in input order by the calling goroutine, so the result does not
	// depend on Workers.
	Workers int
}

// BuildFrom reads every point from src and builds an image.
func (b *Builder) BuildFrom(src l2frames.PointSource) (*RangeImage, error) {
	points, err := src.Points()
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	return b.Build(points)
}

// Build projects points in input order into a new image. An empty slice
// returns ErrEmptyInput without allocating a grid.
func (b *Builder) Build(points []l2frames.Point) (*RangeImage, error) {
	if len(points) == 0 {
		return nil, &EmptyInputError{}
	}
	if err := b.Geometry.valid(); err != nil {
		return nil, err
	}

	projections, err := b.project(points)
	if err != nil {
		return nil, err
	}

	img := newRangeImage(b.Geometry, b.Collision)
	stats := BuildStats{Points: len(points)}
	cols := b.Geometry.cols
	trace := logs.TraceEnabled()

	for i, pt := range points {
		pr := projections[i]
		if !pt.Finite() || pr.Degenerate() {
			switch b.Degenerate {
			case DegenerateReject:
				return nil, &DegeneratePointError{Index: i, Point: pt}
			case DegenerateClamp:
				// Written below at the pinned cell.
			default:
				stats.Skipped++
				if trace {
					tracef("skip degenerate point %d (%g, %g, %g)", i, pt.X, pt.Y, pt.Z)
				}
				continue
			}
		}

		rec := PixelRecord{X: pt.X, Y: pt.Y, Z: pt.Z, Range: pr.Range, Intensity: pt.Intensity}
		if img.put(pr.Row*cols+pr.Col, rec) {
			stats.Collisions++
		}
	}

	stats.Written = img.WrittenCount()
	img.stats = stats

	if stats.Skipped > 0 {
		diagf("skipped %d degenerate points of %d", stats.Skipped, stats.Points)
	}
	diagf("built %s image: points=%d written=%d/%d collisions=%d policy=%s workers=%d",
		b.Geometry, stats.Points, stats.Written, b.Geometry.Cells(), stats.Collisions, b.Collision, b.workers())
	return img, nil
}

func (b *Builder) workers() int {
	if b.Workers < 1 {
		return 1
	}
	return b.Workers
}

// project computes every projection. Each task owns a disjoint slice range
// of the output, so no locking is needed.
func (b *Builder) project(points []l2frames.Point) ([]Projection, error) {
	out := make([]Projection, len(points))
	workers := b.workers()
	if workers == 1 || len(points) <= projectChunk {
		for i, pt := range points {
			out[i] = Project(pt, b.Geometry)
		}
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(points); start += projectChunk {
		end := min(start+projectChunk, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = Project(points[i], b.Geometry)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("project points: %w", err)
	}
	return out, nil
}
