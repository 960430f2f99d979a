// Package config provides configuration loading and management for the
// pose-sampling pipeline. It handles loading configuration from YAML
// files and provides default values matching the reference protocol.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the run configuration loaded from YAML
type Config struct {
	// Sampling parameters
	Sampling struct {
		// RotStdDevsDeg are the per-axis rotation standard deviations
		// in degrees
		RotStdDevsDeg [3]float64 `yaml:"rotStdDevsDeg"`

		// TransStdDevsMM are the per-axis translation standard
		// deviations in millimeters
		TransStdDevsMM [3]float64 `yaml:"transStdDevsMM"`
	} `yaml:"sampling"`

	// Anatomy selection parameters
	Anatomy struct {
		// KeepLabels lists the label values collapsed into the
		// foreground; everything else is masked out
		KeepLabels []uint8 `yaml:"keepLabels"`

		// MaskFillHU is the Hounsfield value assigned to masked-out
		// voxels
		MaskFillHU float64 `yaml:"maskFillHU"`
	} `yaml:"anatomy"`

	// GroundTruthShiftMM is pre-multiplied onto the stored ground-truth
	// pose. It compensates a historical half-voxel inconsistency in
	// linear-interpolation texture indexing between when the ground
	// truth was constructed and the current renderer convention; set it
	// to zero when the stored poses and the renderer already agree.
	GroundTruthShiftMM [3]float64 `yaml:"groundTruthShiftMM"`

	// Rendering parameters
	Render struct {
		// StepMM is the ray-marching step in millimeters
		StepMM float64 `yaml:"stepMM"`

		// EdgeThreshold is the fraction of the maximum gradient
		// magnitude above which a pixel counts as an edge
		EdgeThreshold float64 `yaml:"edgeThreshold"`

		// NumCores specifies how many CPU cores to use for ray casting
		NumCores int `yaml:"numCores"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values: the
// reference perturbation protocol (1 degree per rotation axis, 1 mm
// in-plane, 5 mm depth) and the pelvis-associated labels
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Sampling.RotStdDevsDeg = [3]float64{1.0, 1.0, 1.0}
	cfg.Sampling.TransStdDevsMM = [3]float64{1.0, 1.0, 5.0}

	// Left hemi-pelvis, right hemi-pelvis, vertebra, upper sacrum,
	// lower sacrum
	cfg.Anatomy.KeepLabels = []uint8{1, 2, 3, 4, 7}
	cfg.Anatomy.MaskFillHU = -1000

	cfg.GroundTruthShiftMM = [3]float64{-0.5, -0.5, -0.5}

	cfg.Render.StepMM = 1.0
	cfg.Render.EdgeThreshold = 0.25
	cfg.Render.NumCores = runtime.NumCPU()

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
