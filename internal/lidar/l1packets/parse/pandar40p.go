package parse

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rangeimage/internal/lidar"
	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

// Pandar40P packet layout. Blocks start at offset 0 of the UDP payload and
// the 22-byte tail follows the ten blocks.
const (
	PacketSizeStandard = 1262 // without UDP sequence
	PacketSizeSequence = 1266 // with trailing 4-byte UDP sequence
	BlocksPerPacket    = 10
	ChannelsPerBlock   = 40
	bytesPerChannel    = 3 // 2 bytes distance + 1 byte reflectivity
	blockPreamble      = 0xEEFF
	blockHeaderSize    = 4 // preamble + azimuth
	BlockSize          = blockHeaderSize + ChannelsPerBlock*bytesPerChannel
	TailStart          = BlocksPerPacket * BlockSize
	TailSize           = 22
	sequenceSize       = 4

	DistanceResolution = 0.004 // meters per LSB
	AzimuthResolution  = 0.01  // degrees per LSB
)

// DecodeStats counts decoder activity since construction.
type DecodeStats struct {
	Packets int
	Points  int
	Empty   int // returns with distance 0, dropped
}

// Pandar40PDecoder turns Pandar40P UDP payloads into cartesian points in the
// sensor frame. Azimuth 0 lies on +X and azimuth increases towards +Y, so
// atan2(y, x) recovers the calibrated firing azimuth.
//
// A decoder is not safe for concurrent use.
type Pandar40PDecoder struct {
	config *Pandar40PConfig
	stats  DecodeStats
}

// NewPandar40PDecoder returns a decoder using the given calibration.
func NewPandar40PDecoder(config *Pandar40PConfig) (*Pandar40PDecoder, error) {
	if config == nil {
		return nil, fmt.Errorf("pandar40p decoder requires a calibration config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pandar40PDecoder{config: config}, nil
}

// Stats returns the running counters.
func (d *Pandar40PDecoder) Stats() DecodeStats { return d.stats }

// Decode parses one packet. Up to 400 points are returned; channels without
// a return are dropped.
func (d *Pandar40PDecoder) Decode(data []byte) ([]l2frames.Point, error) {
	switch len(data) {
	case PacketSizeStandard:
	case PacketSizeSequence:
		data = data[:len(data)-sequenceSize]
	default:
		return nil, fmt.Errorf("invalid packet size: expected %d or %d, got %d",
			PacketSizeStandard, PacketSizeSequence, len(data))
	}
	d.stats.Packets++

	points := make([]l2frames.Point, 0, BlocksPerPacket*ChannelsPerBlock)
	for blockIdx := 0; blockIdx < BlocksPerPacket; blockIdx++ {
		block := data[blockIdx*BlockSize : (blockIdx+1)*BlockSize]
		if preamble := binary.LittleEndian.Uint16(block[0:2]); preamble != blockPreamble {
			opsf("packet %d: block %d has preamble 0x%04X, dropping packet", d.stats.Packets, blockIdx, preamble)
			return nil, fmt.Errorf("failed to parse block %d: invalid block preamble 0x%04X", blockIdx, preamble)
		}
		baseAzimuth := float64(binary.LittleEndian.Uint16(block[2:4])) * AzimuthResolution

		off := blockHeaderSize
		for ch := 0; ch < ChannelsPerBlock; ch++ {
			raw := binary.LittleEndian.Uint16(block[off : off+2])
			reflectivity := block[off+2]
			off += bytesPerChannel

			if raw == 0 {
				d.stats.Empty++
				continue
			}
			ac := d.config.AngleCorrections[ch]
			azimuth := normalizeAzimuth(baseAzimuth + ac.Azimuth)
			distance := float64(raw) * DistanceResolution

			x, y, z := lidar.SphericalToCartesian(distance, azimuth, ac.Elevation)
			points = append(points, l2frames.Point{X: x, Y: y, Z: z, Intensity: float64(reflectivity)})
		}
	}
	d.stats.Points += len(points)

	if logs.TraceEnabled() {
		tracef("packet %d: %d points", d.stats.Packets, len(points))
	}
	return points, nil
}

func normalizeAzimuth(deg float64) float64 {
	if deg < 0 {
		return deg + 360
	}
	if deg >= 360 {
		return deg - 360
	}
	return deg
}
