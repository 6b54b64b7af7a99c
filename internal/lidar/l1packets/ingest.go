package l1packets

import (
	"io"

	"github.com/banshee-data/rangeimage/internal/lidar/l1packets/network"
	"github.com/banshee-data/rangeimage/internal/lidar/l1packets/parse"
)

// Type aliases re-export packet ingestion and parsing types from the
// network/ and parse/ subpackages so callers can import one package.

// Ingestion types (from network/).

// Decoder turns one UDP payload into points.
type Decoder = network.Decoder

// PCAPFileSource replays a capture file as one point frame.
type PCAPFileSource = network.PCAPFileSource

// PCAPStats summarises one replay.
type PCAPStats = network.PCAPStats

// ReadPCAPPoints replays a capture from an io.Reader.
var ReadPCAPPoints = network.ReadPCAPPoints

// Parsing types (from parse/).

// Pandar40PDecoder decodes Hesai Pandar40P packets.
type Pandar40PDecoder = parse.Pandar40PDecoder

// Pandar40PConfig holds per-channel calibration.
type Pandar40PConfig = parse.Pandar40PConfig

// Constructor re-exports.

// NewPandar40PDecoder creates a decoder for the given calibration.
var NewPandar40PDecoder = parse.NewPandar40PDecoder

// LoadPandar40PConfig loads a calibration CSV, or the embedded table for "".
var LoadPandar40PConfig = parse.LoadPandar40PConfig

// DefaultUDPPort is the Pandar40P factory data port.
const DefaultUDPPort = 2369

// SetLogWriters configures logging for both subpackages.
func SetLogWriters(ops, diag, trace io.Writer) {
	network.SetLogWriters(ops, diag, trace)
	parse.SetLogWriters(ops, diag, trace)
}
