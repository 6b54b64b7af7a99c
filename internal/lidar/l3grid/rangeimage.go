package l3grid

import (
	"fmt"
	"strings"
)

// PixelRecord is the payload of one range-image cell. The zero value means
// the cell was never written; use RangeImage.Written to tell it apart from
// a real return at the origin.
type PixelRecord struct {
	X, Y, Z   float64
	Range     float64
	Intensity float64
}

// RangeImage is a dense Rows x Cols grid of PixelRecords stored row-major in
// one flat slice. It is filled by a Builder and read-only once returned.
type RangeImage struct {
	geometry SensorGeometry
	policy   CollisionPolicy
	cells    []PixelRecord
	written  []bool
	stats    BuildStats
}

func newRangeImage(g SensorGeometry, policy CollisionPolicy) *RangeImage {
	n := g.Cells()
	return &RangeImage{
		geometry: g,
		policy:   policy,
		cells:    make([]PixelRecord, n),
		written:  make([]bool, n),
	}
}

// Geometry returns the geometry the image was built with.
func (img *RangeImage) Geometry() SensorGeometry { return img.geometry }

// CollisionPolicy returns the policy that resolved colliding points.
func (img *RangeImage) CollisionPolicy() CollisionPolicy { return img.policy }

// Rows returns the number of elevation bins.
func (img *RangeImage) Rows() int { return img.geometry.rows }

// Cols returns the number of azimuth bins.
func (img *RangeImage) Cols() int { return img.geometry.cols }

// Stats returns the counters gathered while building.
func (img *RangeImage) Stats() BuildStats { return img.stats }

// Idx returns the flat index of (row, col).
func (img *RangeImage) Idx(row, col int) (int, error) {
	if row < 0 || row >= img.geometry.rows || col < 0 || col >= img.geometry.cols {
		return 0, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfBounds, row, col, img.geometry.rows, img.geometry.cols)
	}
	return row*img.geometry.cols + col, nil
}

// At returns the record at (row, col).
func (img *RangeImage) At(row, col int) (PixelRecord, error) {
	i, err := img.Idx(row, col)
	if err != nil {
		return PixelRecord{}, err
	}
	return img.cells[i], nil
}

// Written reports whether any point was stored at (row, col). Out of
// bounds cells are never written.
func (img *RangeImage) Written(row, col int) bool {
	i, err := img.Idx(row, col)
	if err != nil {
		return false
	}
	return img.written[i]
}

// WrittenCount returns the number of occupied cells.
func (img *RangeImage) WrittenCount() int {
	n := 0
	for _, w := range img.written {
		if w {
			n++
		}
	}
	return n
}

// Cells returns a row-major copy of every record.
func (img *RangeImage) Cells() []PixelRecord {
	out := make([]PixelRecord, len(img.cells))
	copy(out, img.cells)
	return out
}

// Occupancy returns a row-major copy of the written mask.
func (img *RangeImage) Occupancy() []bool {
	out := make([]bool, len(img.written))
	copy(out, img.written)
	return out
}

// WrittenCell is one occupied cell with its grid position.
type WrittenCell struct {
	Row, Col int
	PixelRecord
}

// WrittenCells returns the occupied cells in row-major order.
func (img *RangeImage) WrittenCells() []WrittenCell {
	var out []WrittenCell
	cols := img.geometry.cols
	for i, w := range img.written {
		if w {
			out = append(out, WrittenCell{Row: i / cols, Col: i % cols, PixelRecord: img.cells[i]})
		}
	}
	return out
}

// put stores rec at flat index i according to the image's collision policy
// and reports whether the cell already held a record.
func (img *RangeImage) put(i int, rec PixelRecord) (collided bool) {
	if img.written[i] {
		collided = true
		if img.policy == NearestWins && !(rec.Range < img.cells[i].Range) {
			return collided
		}
	}
	img.cells[i] = rec
	img.written[i] = true
	return collided
}

// Channel selects one scalar field of a PixelRecord.
type Channel int

const (
	ChannelRange Channel = iota
	ChannelIntensity
	ChannelX
	ChannelY
	ChannelZ
)

var channelNames = [...]string{"range", "intensity", "x", "y", "z"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel parses a channel name such as "range" or "intensity".
func ParseChannel(s string) (Channel, error) {
	for i, name := range channelNames {
		if strings.EqualFold(s, name) {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q: want one of %s", s, strings.Join(channelNames[:], ", "))
}

// Value returns the selected field of r.
func (r PixelRecord) Value(ch Channel) float64 {
	switch ch {
	case ChannelIntensity:
		return r.Intensity
	case ChannelX:
		return r.X
	case ChannelY:
		return r.Y
	case ChannelZ:
		return r.Z
	default:
		return r.Range
	}
}

// ChannelValues returns the selected field of every cell, row-major.
// Unwritten cells contribute 0.
func (img *RangeImage) ChannelValues(ch Channel) []float64 {
	out := make([]float64, len(img.cells))
	for i, rec := range img.cells {
		out[i] = rec.Value(ch)
	}
	return out
}
