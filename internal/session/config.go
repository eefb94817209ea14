package session

import (
	"fmt"

	"github.com/rjdini/jaer-sub001/internal/capture"
	"github.com/rjdini/jaer-sub001/internal/config"
	"github.com/rjdini/jaer-sub001/internal/tracking"
)

// Config holds everything a Session needs.
type Config struct {
	Tracking tracking.Config
	Capture  capture.Config

	SensorWidth  int // Pixels
	SensorHeight int

	// FoldEvery folds after this many applied points; 0 folds only at
	// packet boundaries and on Render.
	FoldEvery int

	// AsyncSynthesis runs the line search on a background goroutine.
	AsyncSynthesis bool

	StatsWindow int // Applied residuals kept for statistics
}

// DefaultConfig returns session configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json). Panics if the file
// cannot be found.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Tracking:       tracking.ConfigFromTuning(cfg),
		Capture:        capture.ConfigFromTuning(cfg),
		SensorWidth:    cfg.GetSensorWidth(),
		SensorHeight:   cfg.GetSensorHeight(),
		FoldEvery:      cfg.GetFoldEvery(),
		AsyncSynthesis: cfg.GetAsyncSynthesis(),
		StatsWindow:    cfg.GetStatsWindow(),
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.SensorWidth < 2 || c.SensorHeight < 2 {
		return fmt.Errorf("sensor must be at least 2x2, got %dx%d", c.SensorWidth, c.SensorHeight)
	}
	if c.FoldEvery < 0 {
		return fmt.Errorf("FoldEvery must be non-negative, got %d", c.FoldEvery)
	}
	if c.StatsWindow < 1 {
		return fmt.Errorf("StatsWindow must be positive, got %d", c.StatsWindow)
	}
	if c.Tracking.DistanceThreshold <= 0 {
		return fmt.Errorf("DistanceThreshold must be positive, got %f", c.Tracking.DistanceThreshold)
	}
	if c.Tracking.LearningRate <= 0 || c.Tracking.LearningRate >= 1 {
		return fmt.Errorf("LearningRate must be in (0, 1), got %f", c.Tracking.LearningRate)
	}
	return c.Capture.Validate()
}
