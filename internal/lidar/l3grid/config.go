package l3grid

import (
	"fmt"

	"github.com/banshee-data/rangeimage/internal/config"
)

// ProjectionConfig provides a configuration builder for Builder. It allows
// setting parameters with defaults and validation before creating one.
type ProjectionConfig struct {
	FovUpDeg   float64          // Upper vertical limit (default: 2.0)
	FovDownDeg float64          // Lower vertical limit (default: -24.8)
	Rows       int              // Elevation bins (default: 64)
	Cols       int              // Azimuth bins (default: 1024)
	Collision  CollisionPolicy  // default: LastWriteWins
	Degenerate DegeneratePolicy // default: DegenerateSkip
	Workers    int              // Projection workers (default: 1)
}

// DefaultProjectionConfig returns a ProjectionConfig loaded from the
// canonical defaults file (config/projection.defaults.json).
// Panics if the file cannot be found; intended for tests and binaries that
// have already validated config availability.
func DefaultProjectionConfig() *ProjectionConfig {
	c, err := ProjectionConfigFromFile(config.MustLoadDefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}

// ProjectionConfigFromFile builds a ProjectionConfig from a loaded
// config.ProjectionConfig. Fields the file omits take its defaults.
func ProjectionConfigFromFile(cfg *config.ProjectionConfig) (*ProjectionConfig, error) {
	collision, err := ParseCollisionPolicy(cfg.GetCollisionPolicy())
	if err != nil {
		return nil, err
	}
	degenerate, err := ParseDegeneratePolicy(cfg.GetDegeneratePolicy())
	if err != nil {
		return nil, err
	}
	return &ProjectionConfig{
		FovUpDeg:   cfg.GetFovUpDeg(),
		FovDownDeg: cfg.GetFovDownDeg(),
		Rows:       cfg.GetRows(),
		Cols:       cfg.GetCols(),
		Collision:  collision,
		Degenerate: degenerate,
		Workers:    cfg.GetWorkers(),
	}, nil
}

// Validate checks if the configuration is valid.
func (c *ProjectionConfig) Validate() error {
	if _, err := c.Geometry(); err != nil {
		return err
	}
	if c.Collision != LastWriteWins && c.Collision != NearestWins {
		return fmt.Errorf("Collision must be LastWriteWins or NearestWins, got %v", c.Collision)
	}
	if c.Degenerate < DegenerateSkip || c.Degenerate > DegenerateReject {
		return fmt.Errorf("Degenerate must be Skip, Clamp or Reject, got %v", c.Degenerate)
	}
	if c.Workers < 1 {
		return fmt.Errorf("Workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Geometry returns the SensorGeometry described by the config.
func (c *ProjectionConfig) Geometry() (SensorGeometry, error) {
	return NewSensorGeometry(c.FovUpDeg, c.FovDownDeg, c.Rows, c.Cols)
}

// NewBuilder validates the config and returns a Builder for it.
func (c *ProjectionConfig) NewBuilder() (*Builder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	g, err := c.Geometry()
	if err != nil {
		return nil, err
	}
	return &Builder{
		Geometry:   g,
		Collision:  c.Collision,
		Degenerate: c.Degenerate,
		Workers:    c.Workers,
	}, nil
}

// WithFieldOfView sets the vertical limits in degrees.
func (c *ProjectionConfig) WithFieldOfView(upDeg, downDeg float64) *ProjectionConfig {
	c.FovUpDeg = upDeg
	c.FovDownDeg = downDeg
	return c
}

// WithResolution sets the grid size.
func (c *ProjectionConfig) WithResolution(rows, cols int) *ProjectionConfig {
	c.Rows = rows
	c.Cols = cols
	return c
}

// WithCollisionPolicy sets the collision policy.
func (c *ProjectionConfig) WithCollisionPolicy(p CollisionPolicy) *ProjectionConfig {
	c.Collision = p
	return c
}

// WithDegeneratePolicy sets the degenerate-point policy.
func (c *ProjectionConfig) WithDegeneratePolicy(p DegeneratePolicy) *ProjectionConfig {
	c.Degenerate = p
	return c
}

// WithWorkers sets the number of projection workers.
func (c *ProjectionConfig) WithWorkers(n int) *ProjectionConfig {
	c.Workers = n
	return c
}
