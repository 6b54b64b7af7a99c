package l2frames

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiXYZI = `# .PCD v0.7 - Point Cloud Data file format
VERSION .7
FIELDS x y z intensity
SIZE 4 4 4 4
TYPE F F F F
COUNT 1 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
1 0 0 0.5
0 2 0 10
-1.5 0 0.25 0
`

func TestReadPCD_Ascii(t *testing.T) {
	points, header, err := ReadPCD(strings.NewReader(asciiXYZI))
	require.NoError(t, err)

	assert.Equal(t, PCDAscii, header.Data)
	assert.Equal(t, 3, header.Points)
	assert.Equal(t, []string{"x", "y", "z", "intensity"}, header.FieldNames())

	want := []Point{
		{X: 1, Intensity: 0.5},
		{Y: 2, Intensity: 10},
		{X: -1.5, Z: 0.25},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPCD_AsciiWithoutIntensity(t *testing.T) {
	src := `VERSION 0.7
FIELDS x y z rgb
SIZE 4 4 4 4
TYPE F F F U
WIDTH 1
HEIGHT 1
POINTS 1
DATA ascii
3 4 5 255
`
	points, _, err := ReadPCD(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, Point{X: 3, Y: 4, Z: 5}, points[0])
}

func TestReadPCD_Binary(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("VERSION .7\nFIELDS x y z intensity ring\nSIZE 4 4 4 4 2\nTYPE F F F F U\nCOUNT 1 1 1 1 1\nWIDTH 2\nHEIGHT 1\nPOINTS 2\nDATA binary\n")

	write := func(x, y, z, i float32, ring uint16) {
		for _, v := range []float32{x, y, z, i} {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)))
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, ring))
	}
	write(1, 0, 0.5, 7, 3)
	write(-2, 0.25, 0, 0, 39)

	points, header, err := ReadPCD(&buf)
	require.NoError(t, err)
	assert.Equal(t, PCDBinary, header.Data)

	want := []Point{
		{X: 1, Z: 0.5, Intensity: 7},
		{X: -2, Y: 0.25},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPCD_Errors(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		unsupported bool
	}{
		{
			name:        "missing z",
			src:         "VERSION .7\nFIELDS x y\nSIZE 4 4\nTYPE F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA ascii\n1 2\n",
			unsupported: true,
		},
		{
			name:        "compressed",
			src:         "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA binary_compressed\n",
			unsupported: true,
		},
		{
			name:        "bad version",
			src:         "VERSION .6\nFIELDS x y z\n",
			unsupported: true,
		},
		{
			name:        "negative size",
			src:         "VERSION .7\nFIELDS x y z\nSIZE -4 4 4\nTYPE F F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA binary\n" + strings.Repeat("\x00", 12),
			unsupported: true,
		},
		{
			name:        "zero size",
			src:         "VERSION .7\nFIELDS x y z\nSIZE 4 0 4\nTYPE F F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA binary\n" + strings.Repeat("\x00", 8),
			unsupported: true,
		},
		{
			name:        "odd size",
			src:         "VERSION .7\nFIELDS x y z\nSIZE 4 4 3\nTYPE F F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA binary\n" + strings.Repeat("\x00", 11),
			unsupported: true,
		},
		{
			name: "points mismatch",
			src:  "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nWIDTH 2\nHEIGHT 1\nPOINTS 3\nDATA ascii\n",
		},
		{
			name: "short row",
			src:  "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA ascii\n1 2\n",
		},
		{
			name: "truncated body",
			src:  "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nWIDTH 2\nHEIGHT 1\nPOINTS 2\nDATA ascii\n1 2 3\n",
		},
		{
			name: "unknown header key",
			src:  "VERSION .7\nCOLOUR red\n",
		},
		{
			name: "no data line",
			src:  "VERSION .7\nFIELDS x y z\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadPCD(strings.NewReader(tc.src))
			require.Error(t, err)
			assert.Equal(t, tc.unsupported, errors.Is(err, ErrUnsupportedPCD), "err = %v", err)
		})
	}
}

func TestPCDFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.pcd")
	require.NoError(t, os.WriteFile(path, []byte(asciiXYZI), 0o644))

	points, err := PCDFileSource{Path: path}.Points()
	require.NoError(t, err)
	assert.Len(t, points, 3)

	_, err = PCDFileSource{Path: filepath.Join(t.TempDir(), "missing.pcd")}.Points()
	assert.Error(t, err)
}

func TestReadPCD_HugePointCountShortBody(t *testing.T) {
	src := "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nPOINTS 50000000\nDATA binary\n" + strings.Repeat("\x00", 24)

	points, _, err := ReadPCD(strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading binary point 2")
	assert.Nil(t, points)

	src = "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nPOINTS 50000000\nDATA ascii\n1 2 3\n"
	_, _, err = ReadPCD(strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "point 1")
}
