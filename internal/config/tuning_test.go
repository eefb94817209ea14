package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.DistanceThreshold == nil || *cfg.DistanceThreshold != 0.05 {
		t.Errorf("Expected DistanceThreshold 0.05, got %v", cfg.DistanceThreshold)
	}
	if cfg.LearningRate == nil || *cfg.LearningRate != 0.1 {
		t.Errorf("Expected LearningRate 0.1, got %v", cfg.LearningRate)
	}
	if cfg.TrackingMode == nil || *cfg.TrackingMode != "full_projective" {
		t.Errorf("Expected TrackingMode 'full_projective', got %v", cfg.TrackingMode)
	}
	if cfg.AngleSteps == nil || *cfg.AngleSteps != 32 {
		t.Errorf("Expected AngleSteps 32, got %v", cfg.AngleSteps)
	}
	if cfg.AsyncSynthesis == nil || *cfg.AsyncSynthesis != false {
		t.Errorf("Expected AsyncSynthesis false, got %v", cfg.AsyncSynthesis)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "distance_threshold": 0.02,
  "tracking_mode": "No_Shear",
  "capture_sample_count": 5000,
  "anchor_stride": 2,
  "accept_fraction": 0.9,
  "async_synthesis": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDistanceThreshold() != 0.02 {
		t.Errorf("GetDistanceThreshold() = %f, want 0.02", cfg.GetDistanceThreshold())
	}
	if cfg.GetTrackingMode() != "no_shear" {
		t.Errorf("GetTrackingMode() = %q, want no_shear", cfg.GetTrackingMode())
	}
	if cfg.GetCaptureSampleCount() != 5000 {
		t.Errorf("GetCaptureSampleCount() = %d, want 5000", cfg.GetCaptureSampleCount())
	}
	if cfg.GetAnchorStride() != 2 {
		t.Errorf("GetAnchorStride() = %d, want 2", cfg.GetAnchorStride())
	}
	if cfg.GetAcceptFraction() != 0.9 {
		t.Errorf("GetAcceptFraction() = %f, want 0.9", cfg.GetAcceptFraction())
	}
	if !cfg.GetAsyncSynthesis() {
		t.Error("GetAsyncSynthesis() = false, want true")
	}

	// Omitted fields fall back to defaults.
	if cfg.GetLearningRate() != 0.1 {
		t.Errorf("GetLearningRate() = %f, want default 0.1", cfg.GetLearningRate())
	}
	if cfg.GetRayLength() != 32 {
		t.Errorf("GetRayLength() = %d, want default 32", cfg.GetRayLength())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "distance_threshold": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "zero distance threshold", cfg: &TuningConfig{DistanceThreshold: ptrFloat64(0)}, wantErr: true},
		{name: "learning rate of one", cfg: &TuningConfig{LearningRate: ptrFloat64(1)}, wantErr: true},
		{name: "unknown mode", cfg: &TuningConfig{TrackingMode: ptrString("affine")}, wantErr: true},
		{name: "rotation scale mode", cfg: &TuningConfig{TrackingMode: ptrString("rotation_scale")}},
		{name: "negative fold cadence", cfg: &TuningConfig{FoldEvery: ptrInt(-1)}, wantErr: true},
		{name: "zero max segments", cfg: &TuningConfig{MaxSegments: ptrInt(0)}, wantErr: true},
		{name: "tiny sensor", cfg: &TuningConfig{SensorWidth: ptrInt(1)}, wantErr: true},
		{name: "tiny grid", cfg: &TuningConfig{CaptureGridSize: ptrInt(4)}, wantErr: true},
		{name: "zero stride", cfg: &TuningConfig{AnchorStride: ptrInt(0)}, wantErr: true},
		{name: "zero angles", cfg: &TuningConfig{AngleSteps: ptrInt(0)}, wantErr: true},
		{name: "short ray", cfg: &TuningConfig{RayLength: ptrInt(1)}, wantErr: true},
		{name: "negative band", cfg: &TuningConfig{BandHalfWidth: ptrInt(-1)}, wantErr: true},
		{name: "zero band is valid", cfg: &TuningConfig{BandHalfWidth: ptrInt(0)}},
		{name: "accept fraction above one", cfg: &TuningConfig{AcceptFraction: ptrFloat64(1.2)}, wantErr: true},
		{name: "zero stats window", cfg: &TuningConfig{StatsWindow: ptrInt(0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	// The defaults file and the built-in getters must agree.
	builtin := EmptyTuningConfig()
	if cfg.GetDistanceThreshold() != builtin.GetDistanceThreshold() {
		t.Errorf("distance_threshold: file %f, builtin %f", cfg.GetDistanceThreshold(), builtin.GetDistanceThreshold())
	}
	if cfg.GetCaptureGridSize() != builtin.GetCaptureGridSize() {
		t.Errorf("capture_grid_size: file %d, builtin %d", cfg.GetCaptureGridSize(), builtin.GetCaptureGridSize())
	}
	if cfg.GetAcceptFraction() != builtin.GetAcceptFraction() {
		t.Errorf("accept_fraction: file %f, builtin %f", cfg.GetAcceptFraction(), builtin.GetAcceptFraction())
	}
	if cfg.GetMaxSegments() != builtin.GetMaxSegments() {
		t.Errorf("max_segments: file %d, builtin %d", cfg.GetMaxSegments(), builtin.GetMaxSegments())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetSensorWidth() != 128 || cfg.GetSensorHeight() != 128 {
		t.Errorf("sensor = %dx%d, want 128x128", cfg.GetSensorWidth(), cfg.GetSensorHeight())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadTuningConfigRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte(`{"accept_fraction": 0}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected validation error, got nil")
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetSingularEpsilon() != 1e-9 {
		t.Errorf("GetSingularEpsilon() = %g, want 1e-9", cfg.GetSingularEpsilon())
	}
	if cfg.GetFoldEvery() != 0 {
		t.Errorf("GetFoldEvery() = %d, want 0", cfg.GetFoldEvery())
	}
	if cfg.GetBandHalfWidth() != 1 {
		t.Errorf("GetBandHalfWidth() = %d, want 1", cfg.GetBandHalfWidth())
	}
	if cfg.GetStatsWindow() != 256 {
		t.Errorf("GetStatsWindow() = %d, want 256", cfg.GetStatsWindow())
	}
	if cfg.GetCaptureSampleCount() != 20000 {
		t.Errorf("GetCaptureSampleCount() = %d, want 20000", cfg.GetCaptureSampleCount())
	}
}
