package monitor

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

// Output size of rendered PNG heat maps.
const (
	pngWidth  = 14 * vg.Inch
	pngHeight = 4 * vg.Inch
)

// imageGrid adapts one channel of a RangeImage to plotter.GridXYZ.
// Row 0 is the top of the image, so Y runs from rows-1 down to 0.
// Unwritten cells are NaN and left blank by the heat map.
type imageGrid struct {
	rows, cols int
	values     []float64
}

func newImageGrid(img *l3grid.RangeImage, ch l3grid.Channel) *imageGrid {
	values := img.ChannelValues(ch)
	occupied := img.Occupancy()
	for i, w := range occupied {
		if !w {
			values[i] = math.NaN()
		}
	}
	return &imageGrid{rows: img.Rows(), cols: img.Cols(), values: values}
}

func (g *imageGrid) Dims() (c, r int)   { return g.cols, g.rows }
func (g *imageGrid) Z(c, r int) float64 { return g.values[r*g.cols+c] }
func (g *imageGrid) X(c int) float64    { return float64(c) }
func (g *imageGrid) Y(r int) float64    { return float64(g.rows - 1 - r) }

// newHeatMapPlot builds the gonum plot of one channel of img.
func newHeatMapPlot(img *l3grid.RangeImage, ch l3grid.Channel) (*plot.Plot, error) {
	if img == nil {
		return nil, fmt.Errorf("nil range image")
	}
	if img.WrittenCount() == 0 {
		return nil, fmt.Errorf("range image has no written cells")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", ch, img.Geometry())
	p.X.Label.Text = "column (azimuth)"
	p.Y.Label.Text = "row (elevation, top = fov up)"

	hm := plotter.NewHeatMap(newImageGrid(img, ch), palette.Heat(64, 1))
	p.Add(hm)
	return p, nil
}

// RenderPNG draws channel ch of img as a heat map PNG to w.
func RenderPNG(img *l3grid.RangeImage, ch l3grid.Channel, w io.Writer) error {
	p, err := newHeatMapPlot(img, ch)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG renders channel ch of img to the file at path.
func SavePNG(img *l3grid.RangeImage, ch l3grid.Channel, path string) error {
	p, err := newHeatMapPlot(img, ch)
	if err != nil {
		return err
	}
	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	diagf("saved %s heat map to %s", ch, path)
	return nil
}

// PNGFileSink renders each consumed image to Path.
type PNGFileSink struct {
	Path    string
	Channel l3grid.Channel
}

// Consume implements l3grid.ImageSink.
func (s PNGFileSink) Consume(img *l3grid.RangeImage) error {
	return SavePNG(img, s.Channel, s.Path)
}
