package capture

import (
	"fmt"

	"github.com/rjdini/jaer-sub001/internal/config"
)

// Config holds the capture window and line-search constants.
type Config struct {
	GridSize       int     // Cells per side of the occupancy grid
	SampleCount    int     // Points accepted before the window closes
	AnchorStride   int     // Spacing of anchor cells in both axes
	AngleSteps     int     // Candidate angles over [0, π)
	RayLength      int     // Steps walked from the anchor
	BandHalfWidth  int     // Perpendicular cells checked either side of a step
	AcceptFraction float64 // Minimum hit fraction for a ray to become a line
	MaxSegments    int     // Upper bound on emitted lines
}

// DefaultConfig returns capture configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json). Panics if the file
// cannot be found.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		GridSize:       cfg.GetCaptureGridSize(),
		SampleCount:    cfg.GetCaptureSampleCount(),
		AnchorStride:   cfg.GetAnchorStride(),
		AngleSteps:     cfg.GetAngleSteps(),
		RayLength:      cfg.GetRayLength(),
		BandHalfWidth:  cfg.GetBandHalfWidth(),
		AcceptFraction: cfg.GetAcceptFraction(),
		MaxSegments:    cfg.GetMaxSegments(),
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.GridSize < 8 {
		return fmt.Errorf("GridSize must be at least 8, got %d", c.GridSize)
	}
	if c.SampleCount < 1 {
		return fmt.Errorf("SampleCount must be positive, got %d", c.SampleCount)
	}
	if c.AnchorStride < 1 {
		return fmt.Errorf("AnchorStride must be positive, got %d", c.AnchorStride)
	}
	if c.AngleSteps < 1 {
		return fmt.Errorf("AngleSteps must be positive, got %d", c.AngleSteps)
	}
	if c.RayLength < 2 {
		return fmt.Errorf("RayLength must be at least 2, got %d", c.RayLength)
	}
	if c.BandHalfWidth < 0 {
		return fmt.Errorf("BandHalfWidth must be non-negative, got %d", c.BandHalfWidth)
	}
	if c.AcceptFraction <= 0 || c.AcceptFraction > 1 {
		return fmt.Errorf("AcceptFraction must be in (0, 1], got %f", c.AcceptFraction)
	}
	if c.MaxSegments < 1 {
		return fmt.Errorf("MaxSegments must be positive, got %d", c.MaxSegments)
	}
	return nil
}
