package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calscan/calscan/internal/calendar"
)

func TestLoadScoringDefaults(t *testing.T) {
	cfg, err := LoadScoring("")
	if err != nil {
		t.Fatalf("LoadScoring returned error: %v", err)
	}
	if cfg != calendar.DefaultScoringConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadScoringPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	body := "thresholds:\n  iv_ratio_strong: 1.05\npoints:\n  hover: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := LoadScoring(path)
	if err != nil {
		t.Fatalf("LoadScoring returned error: %v", err)
	}

	if cfg.Thresholds.IVRatioStrong != 1.05 {
		t.Errorf("iv_ratio_strong = %v, want 1.05", cfg.Thresholds.IVRatioStrong)
	}
	if cfg.Points.Hover != 5 {
		t.Errorf("hover points = %d, want 5", cfg.Points.Hover)
	}
	if cfg.Thresholds.IVRatioWeak != 0.97 {
		t.Errorf("untouched threshold changed: iv_ratio_weak = %v", cfg.Thresholds.IVRatioWeak)
	}
	if cfg.Points.DebitMin != 20 {
		t.Errorf("untouched points changed: debit_min = %d", cfg.Points.DebitMin)
	}
}

func TestLoadScoringErrors(t *testing.T) {
	if _, err := LoadScoring(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("thresholds: [1, 2"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadScoring(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
