package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
)

// Decoder turns one UDP payload into points.
type Decoder interface {
	Decode(payload []byte) ([]l2frames.Point, error)
}

// PCAPStats summarises one replay.
type PCAPStats struct {
	Packets     int // every record in the capture
	UDPPackets  int // records on the selected port
	ParseErrors int
	Points      int
	Duration    time.Duration // capture time between first and last record
}

// ReadPCAPPoints replays a classic libpcap capture and decodes every UDP
// payload sent to udpPort (0 accepts any port). Payloads the decoder
// rejects are counted and skipped. The capture is read as fast as possible;
// ctx cancels the replay between packets.
func ReadPCAPPoints(ctx context.Context, r io.Reader, udpPort int, dec Decoder) ([]l2frames.Point, PCAPStats, error) {
	var stats PCAPStats
	if dec == nil {
		return nil, stats, fmt.Errorf("pcap replay requires a decoder")
	}

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to open PCAP stream: %w", err)
	}
	linkType := reader.LinkType()
	diagf("PCAP replay: link type %s, udp port %d", linkType, udpPort)

	var points []l2frames.Point
	var first, last time.Time
	for {
		if err := ctx.Err(); err != nil {
			opsf("PCAP replay stopping due to context cancellation (processed %d packets)", stats.Packets)
			return points, stats, err
		}

		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return points, stats, fmt.Errorf("read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++
		if first.IsZero() {
			first = ci.Timestamp
		}
		last = ci.Timestamp

		packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort > 0 && int(udp.DstPort) != udpPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		stats.UDPPackets++

		decoded, err := dec.Decode(udp.Payload)
		if err != nil {
			stats.ParseErrors++
			opsf("Error parsing PCAP packet %d: %v", stats.Packets, err)
			continue
		}
		points = append(points, decoded...)
		if logs.TraceEnabled() {
			tracef("packet %d parsed -> %d points", stats.Packets, len(decoded))
		}
	}

	stats.Points = len(points)
	stats.Duration = last.Sub(first)
	diagf("PCAP replay complete: %d packets, %d on port, %d parse errors, %d points over %v",
		stats.Packets, stats.UDPPackets, stats.ParseErrors, stats.Points, stats.Duration)
	return points, stats, nil
}

// PCAPFileSource replays a capture file as one point frame. Every point in
// the capture lands in the frame, so captures should span one rotation or a
// deliberate accumulation window.
type PCAPFileSource struct {
	Path    string
	UDPPort int
	Decoder Decoder
	Context context.Context // defaults to context.Background()
}

// Points implements l2frames.PointSource.
func (s PCAPFileSource) Points() ([]l2frames.Point, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file %s: %w", s.Path, err)
	}
	defer f.Close()

	ctx := s.Context
	if ctx == nil {
		ctx = context.Background()
	}
	points, _, err := ReadPCAPPoints(ctx, f, s.UDPPort, s.Decoder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return points, nil
}
