package l2frames

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PointASC is a cartesian point with optional extra columns for export
// (X, Y, Z, Intensity, ...extra)
type PointASC struct {
	X, Y, Z   float64
	Intensity float64
	Extra     []interface{}
}

// WriteASC writes points in CloudCompare-compatible .asc form.
// extraHeader describes the extra columns, e.g. " Row Col Range".
func WriteASC(w io.Writer, points []PointASC, extraHeader string) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to export")
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z Intensity%s\n", extraHeader)

	for _, p := range points {
		fmt.Fprintf(bw, "%.6f %.6f %.6f %.6f", p.X, p.Y, p.Z, p.Intensity)
		for _, col := range p.Extra {
			switch v := col.(type) {
			case int:
				fmt.Fprintf(bw, " %d", v)
			case float64:
				fmt.Fprintf(bw, " %.6f", v)
			case string:
				fmt.Fprintf(bw, " %s", v)
			default:
				fmt.Fprintf(bw, " %v", v)
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// ReadASC parses "X Y Z [Intensity ...]" lines. Lines starting with '#'
// and blank lines are ignored; columns after intensity are ignored.
func ReadASC(r io.Reader) ([]Point, error) {
	var points []Point
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", lineNo, len(tokens))
		}
		var vals [4]float64
		n := len(tokens)
		if n > 4 {
			n = 4
		}
		for i := 0; i < n; i++ {
			v, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, i+1, err)
			}
			vals[i] = v
		}
		points = append(points, Point{X: vals[0], Y: vals[1], Z: vals[2], Intensity: vals[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read asc: %w", err)
	}
	return points, nil
}

// ASCFileSource reads points from a CloudCompare .asc file.
type ASCFileSource struct {
	Path string
}

// Points implements PointSource.
func (s ASCFileSource) Points() ([]Point, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	points, err := ReadASC(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	diagf("loaded %d points from %s", len(points), s.Path)
	return points, nil
}
