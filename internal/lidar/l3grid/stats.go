package l3grid

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelSummary describes the distribution of one channel over the
// written cells of an image.
type ChannelSummary struct {
	Channel Channel
	Count   int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64 // population standard deviation
	Median  float64
}

func (s ChannelSummary) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("%s: no data", s.Channel)
	}
	return fmt.Sprintf("%s: n=%d min=%.3f max=%.3f mean=%.3f std=%.3f median=%.3f",
		s.Channel, s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.Median)
}

// Summarize computes statistics of ch over written cells only, so empty
// pixels do not drag the figures towards zero.
func Summarize(img *RangeImage, ch Channel) ChannelSummary {
	s := ChannelSummary{Channel: ch}
	values := make([]float64, 0, len(img.cells))
	for i, w := range img.written {
		if w {
			values = append(values, img.cells[i].Value(ch))
		}
	}
	if len(values) == 0 {
		return s
	}
	sort.Float64s(values)

	s.Count = len(values)
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}

// RowCoverage returns, for each row, the fraction of its cells that hold a
// point. Rows with low coverage usually point at a FOV mismatch between the
// geometry and the sensor.
func RowCoverage(img *RangeImage) []float64 {
	rows, cols := img.Rows(), img.Cols()
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		n := 0
		for _, w := range img.written[r*cols : (r+1)*cols] {
			if w {
				n++
			}
		}
		out[r] = float64(n)
	}
	floats.Scale(1/float64(cols), out)
	return out
}
