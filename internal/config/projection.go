package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical projection defaults file.
const DefaultConfigPath = "config/projection.defaults.json"

// Policy names accepted in the JSON file.
const (
	CollisionLastWriteWins = "last_write_wins"
	CollisionNearestWins   = "nearest_wins"

	DegenerateSkip   = "skip"
	DegenerateClamp  = "clamp"
	DegenerateReject = "reject"
)

// Defaults describe a Velodyne HDL-64E style sensor.
const (
	defaultFovUpDeg   = 2.0
	defaultFovDownDeg = -24.8
	defaultRows       = 64
	defaultCols       = 1024
	defaultWorkers    = 1
	defaultSensorID   = "lidar-01"
	defaultUDPPort    = 2369
)

// ProjectionConfig is the on-disk configuration for building range images.
// Every field is optional; the Get* methods supply defaults for fields the
// file leaves out, so partial configs are safe.
type ProjectionConfig struct {
	// Sensor geometry
	FovUpDeg   *float64 `json:"fov_up_deg,omitempty"`
	FovDownDeg *float64 `json:"fov_down_deg,omitempty"`
	Rows       *int     `json:"rows,omitempty"`
	Cols       *int     `json:"cols,omitempty"`

	// Builder behaviour
	CollisionPolicy  *string `json:"collision_policy,omitempty"`
	DegeneratePolicy *string `json:"degenerate_policy,omitempty"`
	Workers          *int    `json:"workers,omitempty"`

	// Ingest
	SensorID    *string `json:"sensor_id,omitempty"`
	UDPPort     *int    `json:"udp_port,omitempty"`
	Calibration *string `json:"calibration,omitempty"` // angle correction CSV, empty for the embedded table
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyProjectionConfig returns a ProjectionConfig with all fields nil.
func EmptyProjectionConfig() *ProjectionConfig {
	return &ProjectionConfig{}
}

// DefaultProjectionConfig returns a fully populated config holding the
// built-in defaults.
func DefaultProjectionConfig() *ProjectionConfig {
	return &ProjectionConfig{
		FovUpDeg:         ptrFloat64(defaultFovUpDeg),
		FovDownDeg:       ptrFloat64(defaultFovDownDeg),
		Rows:             ptrInt(defaultRows),
		Cols:             ptrInt(defaultCols),
		CollisionPolicy:  ptrString(CollisionLastWriteWins),
		DegeneratePolicy: ptrString(DegenerateSkip),
		Workers:          ptrInt(defaultWorkers),
		SensorID:         ptrString(defaultSensorID),
		UDPPort:          ptrInt(defaultUDPPort),
		Calibration:      ptrString(""),
	}
}

// LoadProjectionConfig loads a ProjectionConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadProjectionConfig(path string) (*ProjectionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyProjectionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for tests and binaries.
func MustLoadDefaultConfig() *ProjectionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/lidar/l3grid/
		"../../../../" + DefaultConfigPath,    // from internal/lidar/storage/sqlite/
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadProjectionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. An empty policy string means the
// default, as in the getters. Cross-field rules (fov_up above
// fov_down) are checked with the effective values, so a file that sets only
// one angle is validated against the default for the other.
func (c *ProjectionConfig) Validate() error {
	for name, v := range map[string]*float64{"fov_up_deg": c.FovUpDeg, "fov_down_deg": c.FovDownDeg} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be finite, got %f", name, *v)
		}
	}
	if up, down := c.GetFovUpDeg(), c.GetFovDownDeg(); up <= down {
		return fmt.Errorf("fov_up_deg (%f) must be greater than fov_down_deg (%f)", up, down)
	}
	if c.Rows != nil && *c.Rows < 1 {
		return fmt.Errorf("rows must be at least 1, got %d", *c.Rows)
	}
	if c.Cols != nil && *c.Cols < 1 {
		return fmt.Errorf("cols must be at least 1, got %d", *c.Cols)
	}
	if c.CollisionPolicy != nil {
		switch *c.CollisionPolicy {
		case "", CollisionLastWriteWins, CollisionNearestWins:
		default:
			return fmt.Errorf("invalid collision_policy '%s': want %s or %s",
				*c.CollisionPolicy, CollisionLastWriteWins, CollisionNearestWins)
		}
	}
	if c.DegeneratePolicy != nil {
		switch *c.DegeneratePolicy {
		case "", DegenerateSkip, DegenerateClamp, DegenerateReject:
		default:
			return fmt.Errorf("invalid degenerate_policy '%s': want %s, %s or %s",
				*c.DegeneratePolicy, DegenerateSkip, DegenerateClamp, DegenerateReject)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.SensorID != nil && *c.SensorID == "" {
		return fmt.Errorf("sensor_id must not be empty")
	}
	if c.UDPPort != nil && (*c.UDPPort < 0 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be in [0, 65535], got %d", *c.UDPPort)
	}
	return nil
}

// GetFovUpDeg returns the fov_up_deg value or the default.
func (c *ProjectionConfig) GetFovUpDeg() float64 {
	if c.FovUpDeg == nil {
		return defaultFovUpDeg
	}
	return *c.FovUpDeg
}

// GetFovDownDeg returns the fov_down_deg value or the default.
func (c *ProjectionConfig) GetFovDownDeg() float64 {
	if c.FovDownDeg == nil {
		return defaultFovDownDeg
	}
	return *c.FovDownDeg
}

// GetRows returns the rows value or the default.
func (c *ProjectionConfig) GetRows() int {
	if c.Rows == nil {
		return defaultRows
	}
	return *c.Rows
}

// GetCols returns the cols value or the default.
func (c *ProjectionConfig) GetCols() int {
	if c.Cols == nil {
		return defaultCols
	}
	return *c.Cols
}

// GetCollisionPolicy returns the collision_policy value or the default.
func (c *ProjectionConfig) GetCollisionPolicy() string {
	if c.CollisionPolicy == nil || *c.CollisionPolicy == "" {
		return CollisionLastWriteWins
	}
	return *c.CollisionPolicy
}

// GetDegeneratePolicy returns the degenerate_policy value or the default.
func (c *ProjectionConfig) GetDegeneratePolicy() string {
	if c.DegeneratePolicy == nil || *c.DegeneratePolicy == "" {
		return DegenerateSkip
	}
	return *c.DegeneratePolicy
}

// GetWorkers returns the workers value or the default.
func (c *ProjectionConfig) GetWorkers() int {
	if c.Workers == nil {
		return defaultWorkers
	}
	return *c.Workers
}

// GetSensorID returns the sensor_id value or the default.
func (c *ProjectionConfig) GetSensorID() string {
	if c.SensorID == nil || *c.SensorID == "" {
		return defaultSensorID
	}
	return *c.SensorID
}

// GetUDPPort returns the udp_port value or the default.
func (c *ProjectionConfig) GetUDPPort() int {
	if c.UDPPort == nil {
		return defaultUDPPort
	}
	return *c.UDPPort
}

// GetCalibration returns the calibration CSV path, empty for the embedded table.
func (c *ProjectionConfig) GetCalibration() string {
	if c.Calibration == nil {
		return ""
	}
	return *c.Calibration
}
