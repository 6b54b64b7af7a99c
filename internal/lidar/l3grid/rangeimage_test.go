package l3grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

func buildSmall(t *testing.T) *RangeImage {
	t.Helper()
	b := &Builder{Geometry: hdl64()}
	img, err := b.Build([]l2frames.Point{
		{X: 1, Intensity: 0.5},  // (4, 512)
		{Y: 2, Intensity: 7},    // (4, 768)
		{X: -3, Intensity: 250}, // (4, 1023)
	})
	require.NoError(t, err)
	return img
}

func TestRangeImage_Bounds(t *testing.T) {
	img := buildSmall(t)
	assert.Equal(t, 64, img.Rows())
	assert.Equal(t, 1024, img.Cols())

	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {64, 0}, {0, 1024}} {
		_, err := img.At(rc[0], rc[1])
		assert.True(t, errors.Is(err, ErrOutOfBounds), "At(%d, %d) err = %v", rc[0], rc[1], err)
		assert.False(t, img.Written(rc[0], rc[1]))
	}

	i, err := img.Idx(4, 512)
	require.NoError(t, err)
	assert.Equal(t, 4*1024+512, i)
}

func TestRangeImage_UnwrittenIsZero(t *testing.T) {
	img := buildSmall(t)
	rec, err := img.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, PixelRecord{}, rec)
	assert.False(t, img.Written(0, 0))
}

func TestRangeImage_CopiesAreIndependent(t *testing.T) {
	img := buildSmall(t)

	cells := img.Cells()
	cells[4*1024+512].Range = 99
	occ := img.Occupancy()
	occ[0] = true

	assert.Equal(t, 1.0, mustAt(t, img, 4, 512).Range)
	assert.False(t, img.Written(0, 0))
}

func TestRangeImage_WrittenCells(t *testing.T) {
	img := buildSmall(t)
	cells := img.WrittenCells()
	require.Len(t, cells, 3)

	assert.Equal(t, [2]int{4, 512}, [2]int{cells[0].Row, cells[0].Col})
	assert.Equal(t, [2]int{4, 768}, [2]int{cells[1].Row, cells[1].Col})
	assert.Equal(t, [2]int{4, 1023}, [2]int{cells[2].Row, cells[2].Col})
	assert.Equal(t, 250.0, cells[2].Intensity)
	assert.Equal(t, 3.0, cells[2].Range)
}

func TestRangeImage_ChannelValues(t *testing.T) {
	img := buildSmall(t)

	ranges := img.ChannelValues(ChannelRange)
	require.Len(t, ranges, 64*1024)
	assert.Equal(t, 1.0, ranges[4*1024+512])
	assert.Equal(t, 2.0, ranges[4*1024+768])
	assert.Equal(t, 0.0, ranges[0])

	intensity := img.ChannelValues(ChannelIntensity)
	assert.Equal(t, 7.0, intensity[4*1024+768])

	y := img.ChannelValues(ChannelY)
	assert.Equal(t, 2.0, y[4*1024+768])
}

func TestChannel_Parse(t *testing.T) {
	for _, ch := range []Channel{ChannelRange, ChannelIntensity, ChannelX, ChannelY, ChannelZ} {
		got, err := ParseChannel(ch.String())
		require.NoError(t, err)
		assert.Equal(t, ch, got)
	}
	got, err := ParseChannel("Intensity")
	require.NoError(t, err)
	assert.Equal(t, ChannelIntensity, got)

	_, err = ParseChannel("colour")
	assert.ErrorContains(t, err, "range, intensity, x, y, z")
	assert.Equal(t, "Channel(7)", Channel(7).String())
}

func TestPixelRecord_Value(t *testing.T) {
	r := PixelRecord{X: 1, Y: 2, Z: 3, Range: 4, Intensity: 5}
	assert.Equal(t, 1.0, r.Value(ChannelX))
	assert.Equal(t, 2.0, r.Value(ChannelY))
	assert.Equal(t, 3.0, r.Value(ChannelZ))
	assert.Equal(t, 4.0, r.Value(ChannelRange))
	assert.Equal(t, 5.0, r.Value(ChannelIntensity))
}
