package parse

import "encoding/binary"

// channelReturn is one synthetic channel measurement.
type channelReturn struct {
	block, channel int
	distance       uint16
	reflectivity   uint8
}

// buildPacket assembles a standard-size Pandar40P payload. Every block gets
// the azimuth at the same index; channels not listed have no return.
func buildPacket(azimuths [BlocksPerPacket]uint16, returns ...channelReturn) []byte {
	data := make([]byte, PacketSizeStandard)
	for b := 0; b < BlocksPerPacket; b++ {
		off := b * BlockSize
		binary.LittleEndian.PutUint16(data[off:], blockPreamble)
		binary.LittleEndian.PutUint16(data[off+2:], azimuths[b])
	}
	for _, r := range returns {
		off := r.block*BlockSize + blockHeaderSize + r.channel*bytesPerChannel
		binary.LittleEndian.PutUint16(data[off:], r.distance)
		data[off+2] = r.reflectivity
	}
	return data
}
