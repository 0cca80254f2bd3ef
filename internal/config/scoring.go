package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calscan/calscan/internal/calendar"
)

// LoadScoring returns the default scoring heuristics, overlaid with the YAML
// file at path when one is given. Keys absent from the file keep defaults.
func LoadScoring(path string) (calendar.ScoringConfig, error) {
	cfg := calendar.DefaultScoringConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return calendar.ScoringConfig{}, fmt.Errorf("read scoring config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return calendar.ScoringConfig{}, fmt.Errorf("parse scoring config: %w", err)
	}

	return cfg, nil
}
