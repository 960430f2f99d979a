package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the reference protocol defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sampling.RotStdDevsDeg != [3]float64{1, 1, 1} {
		t.Errorf("unexpected rotation std-devs: %v", cfg.Sampling.RotStdDevsDeg)
	}
	if cfg.Sampling.TransStdDevsMM != [3]float64{1, 1, 5} {
		t.Errorf("unexpected translation std-devs: %v", cfg.Sampling.TransStdDevsMM)
	}
	if len(cfg.Anatomy.KeepLabels) != 5 {
		t.Errorf("expected 5 kept labels, got %v", cfg.Anatomy.KeepLabels)
	}
	if cfg.GroundTruthShiftMM != [3]float64{-0.5, -0.5, -0.5} {
		t.Errorf("unexpected ground-truth shift: %v", cfg.GroundTruthShiftMM)
	}
	if cfg.Render.StepMM <= 0 {
		t.Errorf("ray step must default positive, got %f", cfg.Render.StepMM)
	}
}

// TestLoadConfigMissingFile verifies that a missing file yields the
// defaults rather than an error
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Sampling.TransStdDevsMM != DefaultConfig().Sampling.TransStdDevsMM {
		t.Error("missing config file should return defaults")
	}
}

// TestLoadConfigOverrides verifies that a partial YAML file overrides
// only the fields it names
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := []byte("sampling:\n  transStdDevsMM: [2, 2, 10]\nrender:\n  stepMM: 0.5\n")
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sampling.TransStdDevsMM != [3]float64{2, 2, 10} {
		t.Errorf("override not applied: %v", cfg.Sampling.TransStdDevsMM)
	}
	if cfg.Render.StepMM != 0.5 {
		t.Errorf("override not applied: %f", cfg.Render.StepMM)
	}
	// Untouched fields keep defaults
	if cfg.Sampling.RotStdDevsDeg != [3]float64{1, 1, 1} {
		t.Errorf("unrelated field changed: %v", cfg.Sampling.RotStdDevsDeg)
	}
}

// TestSaveAndReloadConfig verifies the round trip through disk
func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "run.yaml")
	cfg := DefaultConfig()
	cfg.Sampling.RotStdDevsDeg = [3]float64{2, 3, 4}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	back, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Sampling.RotStdDevsDeg != [3]float64{2, 3, 4} {
		t.Errorf("round trip lost values: %v", back.Sampling.RotStdDevsDeg)
	}
}

// TestInvalidYAML verifies parse errors are surfaced
func TestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sampling: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error for invalid YAML")
	}
}
