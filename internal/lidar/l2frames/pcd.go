package l2frames

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// PCD data encodings.
const (
	PCDAscii            = "ascii"
	PCDBinary           = "binary"
	PCDBinaryCompressed = "binary_compressed"
)

const pcdCommentChar = "#"

// maxPCDPoints bounds the POINTS header.
const maxPCDPoints = 50_000_000

// pcdInitialCap caps the up-front allocation; the header's POINTS count is
// not trusted until the body has actually been read.
const pcdInitialCap = 1 << 16

// ErrUnsupportedPCD is returned for PCD features this reader does not handle.
var ErrUnsupportedPCD = errors.New("unsupported pcd")

// pcdField describes one column of a PCD record.
type pcdField struct {
	name  string
	size  int
	typ   byte // 'F', 'I' or 'U'
	count int
}

// PCDHeader is the parsed header of a PCD v0.7 file.
type PCDHeader struct {
	Version string
	Width   int
	Height  int
	Points  int
	Data    string

	fields []pcdField
}

// FieldNames returns the declared field names in order.
func (h *PCDHeader) FieldNames() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.name
	}
	return names
}

// recordSize is the byte width of one binary point record.
func (h *PCDHeader) recordSize() int {
	n := 0
	for _, f := range h.fields {
		n += f.size * f.count
	}
	return n
}

// fieldIndex returns the index of name in the header, or -1.
func (h *PCDHeader) fieldIndex(name string) int {
	for i, f := range h.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

func parsePCDHeader(in *bufio.Reader) (*PCDHeader, error) {
	h := &PCDHeader{}
	var sizes, counts []int
	var types []string

	for lineNo := 1; ; lineNo++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, fmt.Errorf("error reading header line %d: %w", lineNo, err)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		tokens := strings.Fields(value)

		switch strings.ToUpper(key) {
		case "VERSION":
			if value != ".7" && value != "0.7" {
				return nil, fmt.Errorf("%w version %s", ErrUnsupportedPCD, value)
			}
			h.Version = value
		case "FIELDS":
			h.fields = make([]pcdField, len(tokens))
			for i, tok := range tokens {
				h.fields[i] = pcdField{name: strings.ToLower(tok), count: 1}
			}
		case "SIZE":
			sizes, err = parseInts(tokens, "SIZE")
			if err != nil {
				return nil, err
			}
		case "TYPE":
			types = tokens
		case "COUNT":
			counts, err = parseInts(tokens, "COUNT")
			if err != nil {
				return nil, err
			}
		case "WIDTH":
			if h.Width, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid WIDTH field %s: %w", value, err)
			}
		case "HEIGHT":
			if h.Height, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid HEIGHT field %s: %w", value, err)
			}
		case "VIEWPOINT":
			// Sensor pose is not applied; points stay in the sensor frame.
		case "POINTS":
			if h.Points, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid POINTS field %s: %w", value, err)
			}
		case "DATA":
			h.Data = strings.ToLower(value)
			return h, h.finish(sizes, types, counts)
		default:
			return nil, fmt.Errorf("unexpected pcd header line %q", line)
		}
	}
}

func (h *PCDHeader) finish(sizes []int, types []string, counts []int) error {
	n := len(h.fields)
	if n == 0 {
		return fmt.Errorf("pcd header has no FIELDS line")
	}
	if len(sizes) != n || len(types) != n {
		return fmt.Errorf("pcd header SIZE/TYPE count does not match %d fields", n)
	}
	if counts != nil && len(counts) != n {
		return fmt.Errorf("pcd header COUNT does not match %d fields", n)
	}
	for i := range h.fields {
		f := &h.fields[i]
		f.size = sizes[i]
		switch f.size {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("%w SIZE %d for field %s", ErrUnsupportedPCD, f.size, f.name)
		}
		if len(types[i]) != 1 || !strings.Contains("FIU", types[i]) {
			return fmt.Errorf("invalid TYPE field %q", types[i])
		}
		f.typ = types[i][0]
		if counts != nil {
			f.count = counts[i]
		}
		if f.count < 1 {
			return fmt.Errorf("invalid COUNT %d for field %s", f.count, f.name)
		}
	}
	for _, axis := range []string{"x", "y", "z"} {
		if h.fieldIndex(axis) < 0 {
			return fmt.Errorf("%w fields %v: x, y and z are required", ErrUnsupportedPCD, h.FieldNames())
		}
	}
	if h.Points == 0 && h.Width > 0 && h.Height > 0 {
		h.Points = h.Width * h.Height
	}
	if h.Points < 0 || h.Points > maxPCDPoints {
		return fmt.Errorf("pcd POINTS %d out of range", h.Points)
	}
	if h.Width > 0 && h.Height > 0 && h.Points != h.Width*h.Height {
		return fmt.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", h.Points, h.Width*h.Height)
	}
	return nil
}

func parseInts(tokens []string, field string) ([]int, error) {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %s: %w", field, tok, err)
		}
		out[i] = v
	}
	return out, nil
}

// ReadPCD decodes a PCD v0.7 point cloud with at least x, y and z fields.
// An intensity field is used when present; every other field is skipped.
func ReadPCD(r io.Reader) ([]Point, *PCDHeader, error) {
	in := bufio.NewReader(r)
	header, err := parsePCDHeader(in)
	if err != nil {
		return nil, nil, err
	}

	var points []Point
	switch header.Data {
	case PCDAscii:
		points, err = readPCDAscii(in, header)
	case PCDBinary:
		points, err = readPCDBinary(in, header)
	case PCDBinaryCompressed:
		err = fmt.Errorf("%w data %s", ErrUnsupportedPCD, header.Data)
	default:
		err = fmt.Errorf("%w data type %q", ErrUnsupportedPCD, header.Data)
	}
	if err != nil {
		return nil, header, err
	}
	return points, header, nil
}

// pcdColumns maps x, y, z and intensity to their flattened column offsets.
type pcdColumns struct {
	x, y, z, intensity int
}

func (h *PCDHeader) columns() pcdColumns {
	offsets := make([]int, len(h.fields))
	col := 0
	for i, f := range h.fields {
		offsets[i] = col
		col += f.count
	}
	cols := pcdColumns{intensity: -1}
	cols.x = offsets[h.fieldIndex("x")]
	cols.y = offsets[h.fieldIndex("y")]
	cols.z = offsets[h.fieldIndex("z")]
	if i := h.fieldIndex("intensity"); i >= 0 {
		cols.intensity = offsets[i]
	}
	return cols
}

func (c pcdColumns) point(values []float64) Point {
	p := Point{X: values[c.x], Y: values[c.y], Z: values[c.z]}
	if c.intensity >= 0 {
		p.Intensity = values[c.intensity]
	}
	return p
}

func readPCDAscii(in *bufio.Reader, h *PCDHeader) ([]Point, error) {
	cols := h.columns()
	width := 0
	for _, f := range h.fields {
		width += f.count
	}

	points := make([]Point, 0, min(h.Points, pcdInitialCap))
	values := make([]float64, width)
	for i := 0; i < h.Points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && strings.TrimSpace(line) != "") {
			return nil, fmt.Errorf("reading point %d: %w", i, err)
		}
		tokens := strings.Fields(line)
		if len(tokens) != width {
			return nil, fmt.Errorf("unexpected number of fields in point %d: got %d, want %d", i, len(tokens), width)
		}
		for j, tok := range tokens {
			values[j], err = strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid point %d field %s: %w", i, tok, err)
			}
		}
		points = append(points, cols.point(values))
	}
	return points, nil
}

func readPCDBinary(in *bufio.Reader, h *PCDHeader) ([]Point, error) {
	cols := h.columns()
	width := 0
	for _, f := range h.fields {
		width += f.count
	}

	record := make([]byte, h.recordSize())
	values := make([]float64, width)
	points := make([]Point, 0, min(h.Points, pcdInitialCap))
	for i := 0; i < h.Points; i++ {
		if _, err := io.ReadFull(in, record); err != nil {
			return nil, fmt.Errorf("reading binary point %d: %w", i, err)
		}
		off, col := 0, 0
		for _, f := range h.fields {
			for k := 0; k < f.count; k++ {
				v, err := decodePCDValue(record[off:off+f.size], f.typ)
				if err != nil {
					return nil, fmt.Errorf("point %d field %s: %w", i, f.name, err)
				}
				values[col] = v
				off += f.size
				col++
			}
		}
		points = append(points, cols.point(values))
	}
	return points, nil
}

func decodePCDValue(b []byte, typ byte) (float64, error) {
	le := binary.LittleEndian
	switch {
	case typ == 'F' && len(b) == 4:
		return float64(math.Float32frombits(le.Uint32(b))), nil
	case typ == 'F' && len(b) == 8:
		return math.Float64frombits(le.Uint64(b)), nil
	case typ == 'U' && len(b) == 1:
		return float64(b[0]), nil
	case typ == 'U' && len(b) == 2:
		return float64(le.Uint16(b)), nil
	case typ == 'U' && len(b) == 4:
		return float64(le.Uint32(b)), nil
	case typ == 'I' && len(b) == 1:
		return float64(int8(b[0])), nil
	case typ == 'I' && len(b) == 2:
		return float64(int16(le.Uint16(b))), nil
	case typ == 'I' && len(b) == 4:
		return float64(int32(le.Uint32(b))), nil
	}
	return 0, fmt.Errorf("%w field type %c%d", ErrUnsupportedPCD, typ, len(b))
}

// PCDFileSource reads points from a .pcd file each time Points is called.
type PCDFileSource struct {
	Path string
}

// Points implements PointSource.
func (s PCDFileSource) Points() ([]Point, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the cloud file at %s: %w", s.Path, err)
	}
	defer f.Close()

	points, header, err := ReadPCD(f)
	if err != nil {
		opsf("PCD %s rejected: %v", s.Path, err)
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	diagf("loaded %d points from %s (data=%s fields=%v)", len(points), s.Path, header.Data, header.FieldNames())
	return points, nil
}
