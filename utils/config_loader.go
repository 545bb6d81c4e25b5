package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ─── Extraction profile ─────────────────────────────────────────────────

// FilterConfig holds the row-acceptance thresholds. A nil pointer means
// "no filtering on this attribute" — zero is a legal threshold, so the
// unset state must be distinct from zero.
type FilterConfig struct {
	MinFix       *int `yaml:"min_fix"`
	MaxPrecision *int `yaml:"max_precision"`
}

// OutputConfig controls the shape of the emitted table.
type OutputConfig struct {
	PrintFilename bool   `yaml:"print_filename"`
	PrintFilepath bool   `yaml:"print_filepath"` // takes precedence over filename
	GPXPath       string `yaml:"gpx_path"`       // optional GPX track output
}

// ExtractConfig is the top-level structure for an extraction profile file.
// All fields are optional; command-line flags override whatever is set here.
type ExtractConfig struct {
	Filter FilterConfig `yaml:"filter"`
	Output OutputConfig `yaml:"output"`
}

// LoadExtractConfig reads and parses an extraction profile.
func LoadExtractConfig(path string) (*ExtractConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extraction profile: %w", err)
	}
	var cfg ExtractConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse extraction profile: %w", err)
	}
	return &cfg, nil
}
