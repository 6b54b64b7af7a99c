package monitor

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// maxHeatmapCols bounds the browser payload: wider images are sampled
// every stride columns.
const maxHeatmapCols = 256

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// heatmapStride returns the column step that keeps at most maxHeatmapCols.
func heatmapStride(cols int) int {
	if cols <= maxHeatmapCols {
		return 1
	}
	return int(math.Ceil(float64(cols) / maxHeatmapCols))
}

// newHeatMapChart builds the echarts heat map of channel ch. Unwritten
// cells are left out so they render blank.
func newHeatMapChart(img *l3grid.RangeImage, ch l3grid.Channel, subtitle string) (*charts.HeatMap, error) {
	if img == nil {
		return nil, fmt.Errorf("nil range image")
	}
	if img.WrittenCount() == 0 {
		return nil, fmt.Errorf("range image has no written cells")
	}

	rows, cols := img.Rows(), img.Cols()
	stride := heatmapStride(cols)
	values := img.ChannelValues(ch)
	occupied := img.Occupancy()

	xLabels := make([]string, 0, cols/stride+1)
	for c := 0; c < cols; c += stride {
		xLabels = append(xLabels, strconv.Itoa(c))
	}
	// Category index 0 is drawn at the bottom, so list rows bottom-up.
	yLabels := make([]string, rows)
	for y := range yLabels {
		yLabels[y] = strconv.Itoa(rows - 1 - y)
	}

	data := make([]opts.HeatMapData, 0, len(xLabels)*rows)
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for r := 0; r < rows; r++ {
		for x, c := 0, 0; c < cols; x, c = x+1, c+stride {
			i := r*cols + c
			if !occupied[i] {
				continue
			}
			v := values[i]
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, rows - 1 - r, v}})
		}
	}
	if len(data) == 0 {
		// Every written cell fell between sampled columns.
		minVal, maxVal = 0, 1
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Range image", Theme: "dark", Width: "1400px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Range image: %s", ch), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "column", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "row", Data: yLabels, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minVal),
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries(ch.String(), data)
	return hm, nil
}

// WriteHeatmapHTML renders channel ch of img as a standalone echarts page.
func WriteHeatmapHTML(img *l3grid.RangeImage, ch l3grid.Channel, w io.Writer) error {
	subtitle := ""
	if img != nil {
		subtitle = fmt.Sprintf("%s written=%d stride=%d", img.Geometry(), img.WrittenCount(), heatmapStride(img.Cols()))
	}
	hm, err := newHeatMapChart(img, ch, subtitle)
	if err != nil {
		return err
	}
	if err := hm.Render(w); err != nil {
		return fmt.Errorf("failed to render heatmap chart: %w", err)
	}
	return nil
}

// HTMLFileSink writes each consumed image as an echarts page at Path.
type HTMLFileSink struct {
	Path    string
	Channel l3grid.Channel
}

// Consume implements l3grid.ImageSink.
func (s HTMLFileSink) Consume(img *l3grid.RangeImage) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path, err)
	}
	if err := WriteHeatmapHTML(img, s.Channel, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Path, err)
	}
	diagf("saved %s heat map page to %s", s.Channel, s.Path)
	return nil
}
