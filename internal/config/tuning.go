package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracker and capture
// parameters. Every field is optional: the Get* accessors supply the
// built-in default for anything omitted from the JSON document.
type TuningConfig struct {
	// Estimator params
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	LearningRate      *float64 `json:"learning_rate,omitempty"`
	TrackingMode      *string  `json:"tracking_mode,omitempty"` // "full_projective", "no_shear", "rotation_scale"
	SingularEpsilon   *float64 `json:"singular_epsilon,omitempty"`
	FoldEvery         *int     `json:"fold_every,omitempty"` // applied points between folds; 0 folds per packet only

	// Template params
	MaxSegments *int `json:"max_segments,omitempty"`

	// Sensor geometry (pixels)
	SensorWidth  *int `json:"sensor_width,omitempty"`
	SensorHeight *int `json:"sensor_height,omitempty"`

	// Capture params
	CaptureSampleCount *int     `json:"capture_sample_count,omitempty"`
	CaptureGridSize    *int     `json:"capture_grid_size,omitempty"`
	AnchorStride       *int     `json:"anchor_stride,omitempty"`
	AngleSteps         *int     `json:"angle_steps,omitempty"`
	RayLength          *int     `json:"ray_length,omitempty"`
	BandHalfWidth      *int     `json:"band_half_width,omitempty"`
	AcceptFraction     *float64 `json:"accept_fraction,omitempty"`
	AsyncSynthesis     *bool    `json:"async_synthesis,omitempty"`

	// Diagnostics
	StatsWindow *int `json:"stats_window,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. It does not touch the filesystem.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		DistanceThreshold:  ptrFloat64(c.GetDistanceThreshold()),
		LearningRate:       ptrFloat64(c.GetLearningRate()),
		TrackingMode:       ptrString(c.GetTrackingMode()),
		SingularEpsilon:    ptrFloat64(c.GetSingularEpsilon()),
		FoldEvery:          ptrInt(c.GetFoldEvery()),
		MaxSegments:        ptrInt(c.GetMaxSegments()),
		SensorWidth:        ptrInt(c.GetSensorWidth()),
		SensorHeight:       ptrInt(c.GetSensorHeight()),
		CaptureSampleCount: ptrInt(c.GetCaptureSampleCount()),
		CaptureGridSize:    ptrInt(c.GetCaptureGridSize()),
		AnchorStride:       ptrInt(c.GetAnchorStride()),
		AngleSteps:         ptrInt(c.GetAngleSteps()),
		RayLength:          ptrInt(c.GetRayLength()),
		BandHalfWidth:      ptrInt(c.GetBandHalfWidth()),
		AcceptFraction:     ptrFloat64(c.GetAcceptFraction()),
		AsyncSynthesis:     ptrBool(c.GetAsyncSynthesis()),
		StatsWindow:        ptrInt(c.GetStatsWindow()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/synth-template/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.DistanceThreshold != nil && *c.DistanceThreshold <= 0 {
		return fmt.Errorf("distance_threshold must be positive, got %f", *c.DistanceThreshold)
	}
	if c.LearningRate != nil {
		if *c.LearningRate <= 0 || *c.LearningRate >= 1 {
			return fmt.Errorf("learning_rate must be in (0, 1), got %f", *c.LearningRate)
		}
	}
	if c.TrackingMode != nil {
		switch strings.ToLower(strings.TrimSpace(*c.TrackingMode)) {
		case "full_projective", "no_shear", "rotation_scale":
		default:
			return fmt.Errorf("unknown tracking_mode %q", *c.TrackingMode)
		}
	}
	if c.SingularEpsilon != nil && *c.SingularEpsilon < 0 {
		return fmt.Errorf("singular_epsilon must be non-negative, got %g", *c.SingularEpsilon)
	}
	if c.FoldEvery != nil && *c.FoldEvery < 0 {
		return fmt.Errorf("fold_every must be non-negative, got %d", *c.FoldEvery)
	}
	if c.MaxSegments != nil && *c.MaxSegments <= 0 {
		return fmt.Errorf("max_segments must be positive, got %d", *c.MaxSegments)
	}
	if c.SensorWidth != nil && *c.SensorWidth < 2 {
		return fmt.Errorf("sensor_width must be at least 2, got %d", *c.SensorWidth)
	}
	if c.SensorHeight != nil && *c.SensorHeight < 2 {
		return fmt.Errorf("sensor_height must be at least 2, got %d", *c.SensorHeight)
	}
	if c.CaptureSampleCount != nil && *c.CaptureSampleCount <= 0 {
		return fmt.Errorf("capture_sample_count must be positive, got %d", *c.CaptureSampleCount)
	}
	if c.CaptureGridSize != nil && *c.CaptureGridSize < 8 {
		return fmt.Errorf("capture_grid_size must be at least 8, got %d", *c.CaptureGridSize)
	}
	if c.AnchorStride != nil && *c.AnchorStride <= 0 {
		return fmt.Errorf("anchor_stride must be positive, got %d", *c.AnchorStride)
	}
	if c.AngleSteps != nil && *c.AngleSteps <= 0 {
		return fmt.Errorf("angle_steps must be positive, got %d", *c.AngleSteps)
	}
	if c.RayLength != nil && *c.RayLength < 2 {
		return fmt.Errorf("ray_length must be at least 2, got %d", *c.RayLength)
	}
	if c.BandHalfWidth != nil && *c.BandHalfWidth < 0 {
		return fmt.Errorf("band_half_width must be non-negative, got %d", *c.BandHalfWidth)
	}
	if c.AcceptFraction != nil {
		if *c.AcceptFraction <= 0 || *c.AcceptFraction > 1 {
			return fmt.Errorf("accept_fraction must be in (0, 1], got %f", *c.AcceptFraction)
		}
	}
	if c.StatsWindow != nil && *c.StatsWindow <= 0 {
		return fmt.Errorf("stats_window must be positive, got %d", *c.StatsWindow)
	}
	return nil
}

// GetDistanceThreshold returns the distance_threshold value or the default.
func (c *TuningConfig) GetDistanceThreshold() float64 {
	if c.DistanceThreshold == nil {
		return 0.05
	}
	return *c.DistanceThreshold
}

// GetLearningRate returns the learning_rate value or the default.
func (c *TuningConfig) GetLearningRate() float64 {
	if c.LearningRate == nil {
		return 0.1
	}
	return *c.LearningRate
}

// GetTrackingMode returns the tracking_mode value or the default.
func (c *TuningConfig) GetTrackingMode() string {
	if c.TrackingMode == nil || *c.TrackingMode == "" {
		return "full_projective"
	}
	return strings.ToLower(strings.TrimSpace(*c.TrackingMode))
}

// GetSingularEpsilon returns the singular_epsilon value or the default.
func (c *TuningConfig) GetSingularEpsilon() float64 {
	if c.SingularEpsilon == nil {
		return 1e-9
	}
	return *c.SingularEpsilon
}

// GetFoldEvery returns the fold_every value or the default.
func (c *TuningConfig) GetFoldEvery() int {
	if c.FoldEvery == nil {
		return 0
	}
	return *c.FoldEvery
}

// GetMaxSegments returns the max_segments value or the default.
func (c *TuningConfig) GetMaxSegments() int {
	if c.MaxSegments == nil {
		return 500
	}
	return *c.MaxSegments
}

// GetSensorWidth returns the sensor_width value or the default (DVS128).
func (c *TuningConfig) GetSensorWidth() int {
	if c.SensorWidth == nil {
		return 128
	}
	return *c.SensorWidth
}

// GetSensorHeight returns the sensor_height value or the default (DVS128).
func (c *TuningConfig) GetSensorHeight() int {
	if c.SensorHeight == nil {
		return 128
	}
	return *c.SensorHeight
}

// GetCaptureSampleCount returns the capture_sample_count value or the default.
func (c *TuningConfig) GetCaptureSampleCount() int {
	if c.CaptureSampleCount == nil {
		return 20000
	}
	return *c.CaptureSampleCount
}

// GetCaptureGridSize returns the capture_grid_size value or the default.
func (c *TuningConfig) GetCaptureGridSize() int {
	if c.CaptureGridSize == nil {
		return 128
	}
	return *c.CaptureGridSize
}

// GetAnchorStride returns the anchor_stride value or the default.
func (c *TuningConfig) GetAnchorStride() int {
	if c.AnchorStride == nil {
		return 4
	}
	return *c.AnchorStride
}

// GetAngleSteps returns the angle_steps value or the default.
func (c *TuningConfig) GetAngleSteps() int {
	if c.AngleSteps == nil {
		return 32
	}
	return *c.AngleSteps
}

// GetRayLength returns the ray_length value or the default.
func (c *TuningConfig) GetRayLength() int {
	if c.RayLength == nil {
		return 32
	}
	return *c.RayLength
}

// GetBandHalfWidth returns the band_half_width value or the default.
func (c *TuningConfig) GetBandHalfWidth() int {
	if c.BandHalfWidth == nil {
		return 1
	}
	return *c.BandHalfWidth
}

// GetAcceptFraction returns the accept_fraction value or the default.
func (c *TuningConfig) GetAcceptFraction() float64 {
	if c.AcceptFraction == nil {
		return 0.8
	}
	return *c.AcceptFraction
}

// GetAsyncSynthesis returns the async_synthesis value or the default.
func (c *TuningConfig) GetAsyncSynthesis() bool {
	if c.AsyncSynthesis == nil {
		return false
	}
	return *c.AsyncSynthesis
}

// GetStatsWindow returns the stats_window value or the default.
func (c *TuningConfig) GetStatsWindow() int {
	if c.StatsWindow == nil {
		return 256
	}
	return *c.StatsWindow
}
