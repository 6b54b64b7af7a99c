package parse

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed sensor_configs/*.csv
var embeddedConfigs embed.FS

const embeddedAngleFile = "sensor_configs/pandar40p_angles.csv"

// AngleCorrection is the calibrated firing direction of one laser channel.
type AngleCorrection struct {
	Channel   int     // Laser channel number (1-40)
	Elevation float64 // Vertical angle in degrees relative to the horizontal plane
	Azimuth   float64 // Horizontal offset in degrees added to the block azimuth
}

// Pandar40PConfig holds per-channel calibration for the decoder.
type Pandar40PConfig struct {
	AngleCorrections [ChannelsPerBlock]AngleCorrection
}

// LoadEmbeddedPandar40PConfig loads the nominal Pandar40P angle table
// compiled into the binary.
func LoadEmbeddedPandar40PConfig() (*Pandar40PConfig, error) {
	f, err := embeddedConfigs.Open(embeddedAngleFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded angle correction file: %w", err)
	}
	defer f.Close()
	return ReadAngleCorrections(f)
}

// LoadPandar40PConfig loads an angle correction CSV from disk. An empty path
// falls back to the embedded table.
func LoadPandar40PConfig(path string) (*Pandar40PConfig, error) {
	if path == "" {
		return LoadEmbeddedPandar40PConfig()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open angle correction file %s: %w", path, err)
	}
	defer f.Close()

	config, err := ReadAngleCorrections(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	diagf("loaded angle corrections from %s", path)
	return config, nil
}

// ReadAngleCorrections parses a "Channel,Elevation,Azimuth" CSV with one row
// per channel.
func ReadAngleCorrections(r io.Reader) (*Pandar40PConfig, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read angle correction CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("insufficient data in angle correction file")
	}

	header := records[0]
	if len(header) != 3 ||
		strings.ToLower(strings.TrimSpace(header[0])) != "channel" ||
		strings.ToLower(strings.TrimSpace(header[1])) != "elevation" ||
		strings.ToLower(strings.TrimSpace(header[2])) != "azimuth" {
		return nil, fmt.Errorf("invalid header in angle correction file, expected: Channel,Elevation,Azimuth")
	}

	config := &Pandar40PConfig{}
	for i, record := range records[1:] {
		line := i + 2
		if len(record) != 3 {
			return nil, fmt.Errorf("invalid record at line %d: expected 3 fields", line)
		}
		channel, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid channel number at line %d: %w", line, err)
		}
		elevation, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid elevation at line %d: %w", line, err)
		}
		azimuth, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid azimuth at line %d: %w", line, err)
		}
		if channel < 1 || channel > ChannelsPerBlock {
			return nil, fmt.Errorf("channel number %d out of range (1-%d) at line %d", channel, ChannelsPerBlock, line)
		}
		config.AngleCorrections[channel-1] = AngleCorrection{
			Channel:   channel,
			Elevation: elevation,
			Azimuth:   azimuth,
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// UniformPandar40PConfig spaces the 40 channels evenly from fovUp (channel 1)
// down to fovDown (channel 40) with no azimuth offsets.
func UniformPandar40PConfig(fovUp, fovDown float64) *Pandar40PConfig {
	config := &Pandar40PConfig{}
	step := (fovUp - fovDown) / float64(ChannelsPerBlock-1)
	for i := range config.AngleCorrections {
		config.AngleCorrections[i] = AngleCorrection{
			Channel:   i + 1,
			Elevation: fovUp - float64(i)*step,
		}
	}
	return config
}

// Validate checks that every channel has a calibration row.
func (config *Pandar40PConfig) Validate() error {
	for i := 0; i < ChannelsPerBlock; i++ {
		if config.AngleCorrections[i].Channel == 0 {
			return fmt.Errorf("missing angle correction for channel %d", i+1)
		}
	}
	return nil
}

// FieldOfView returns the highest and lowest channel elevations in degrees,
// which bound the sensor's vertical field of view.
func (config *Pandar40PConfig) FieldOfView() (up, down float64) {
	up, down = config.AngleCorrections[0].Elevation, config.AngleCorrections[0].Elevation
	for _, ac := range config.AngleCorrections[1:] {
		if ac.Elevation > up {
			up = ac.Elevation
		}
		if ac.Elevation < down {
			down = ac.Elevation
		}
	}
	return up, down
}
