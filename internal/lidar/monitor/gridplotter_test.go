package monitor

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

func testImage(t *testing.T) *l3grid.RangeImage {
	t.Helper()
	b := &l3grid.Builder{Geometry: l3grid.MustSensorGeometry(2, -24.8, 64, 1024)}
	img, err := b.Build([]l2frames.Point{
		{X: 1, Intensity: 0.5},
		{Y: 2, Intensity: 7},
		{X: -3, Z: -1, Intensity: 250},
	})
	require.NoError(t, err)
	return img
}

func emptyImage(t *testing.T) *l3grid.RangeImage {
	t.Helper()
	b := &l3grid.Builder{Geometry: l3grid.MustSensorGeometry(2, -24.8, 64, 1024)}
	img, err := b.Build([]l2frames.Point{{}})
	require.NoError(t, err)
	return img
}

func TestImageGrid(t *testing.T) {
	img := testImage(t)
	g := newImageGrid(img, l3grid.ChannelRange)

	c, r := g.Dims()
	assert.Equal(t, 1024, c)
	assert.Equal(t, 64, r)

	// Row 0 is drawn at the top.
	assert.Equal(t, 63.0, g.Y(0))
	assert.Equal(t, 0.0, g.Y(63))
	assert.Equal(t, 512.0, g.X(512))

	assert.Equal(t, 1.0, g.Z(512, 4))
	assert.Equal(t, 2.0, g.Z(768, 4))
	assert.True(t, math.IsNaN(g.Z(0, 0)), "unwritten cells are blank")
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(testImage(t), l3grid.ChannelIntensity, &buf))

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, cfg.Height)
}

func TestRenderPNG_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderPNG(nil, l3grid.ChannelRange, &buf))
	assert.ErrorContains(t, RenderPNG(emptyImage(t), l3grid.ChannelRange, &buf), "no written cells")
}

func TestPNGFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "range.png")
	require.NoError(t, PNGFileSink{Path: path, Channel: l3grid.ChannelRange}.Consume(testImage(t)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.DecodeConfig(f)
	assert.NoError(t, err)
}
