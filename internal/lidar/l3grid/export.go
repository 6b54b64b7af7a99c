package l3grid

import (
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
	"github.com/banshee-data/rangeimage/internal/timeutil"
)

// ImageSink consumes a finished range image, for rendering or storage.
type ImageSink interface {
	Consume(img *RangeImage) error
}

// ImageSinkFunc adapts a function to ImageSink.
type ImageSinkFunc func(img *RangeImage) error

// Consume implements ImageSink.
func (f ImageSinkFunc) Consume(img *RangeImage) error { return f(img) }

// ExportASC writes the written cells of img as CloudCompare ASC lines:
// X Y Z Intensity Row Col Range.
func ExportASC(img *RangeImage, w io.Writer) error {
	cells := img.WrittenCells()
	points := make([]l2frames.PointASC, len(cells))
	for i, c := range cells {
		points[i] = l2frames.PointASC{
			X:         c.X,
			Y:         c.Y,
			Z:         c.Z,
			Intensity: c.Intensity,
			Extra:     []interface{}{c.Row, c.Col, c.Range},
		}
	}
	if err := l2frames.WriteASC(w, points, " Row Col Range"); err != nil {
		return fmt.Errorf("export asc: %w", err)
	}
	return nil
}

// ASCFileSink writes each consumed image to Path in ASC form.
type ASCFileSink struct {
	Path string
}

// Consume implements ImageSink.
func (s ASCFileSink) Consume(img *RangeImage) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path, err)
	}
	if err := ExportASC(img, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Path, err)
	}
	diagf("Exported %d cells to %s", img.WrittenCount(), s.Path)
	return nil
}

// SnapshotSink persists each consumed image through Store. A nil Clock
// stamps snapshots with wall-clock time.
type SnapshotSink struct {
	Store    SnapshotStore
	SensorID string
	Clock    timeutil.Clock
}

// Consume implements ImageSink.
func (s SnapshotSink) Consume(img *RangeImage) error {
	_, err := img.PersistAt(s.Store, s.SensorID, s.Clock)
	return err
}
