// Package config provides configuration loading and management for
// musclemetrics. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"musclemetrics/pkg/analysis"
	"musclemetrics/pkg/comparison"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// ErosionTiers is the adaptive erosion ladder for intensity
		// sampling, tried first to last
		ErosionTiers []analysis.ErosionTier `yaml:"erosionTiers"`

		// HUSlope is the rescale slope applied to raw pixel values
		HUSlope float64 `yaml:"huSlope"`

		// HUIntercept is the rescale intercept applied to raw pixel values
		HUIntercept float64 `yaml:"huIntercept"`
	} `yaml:"analysis"`

	// Comparison parameters
	Comparison struct {
		// SpacingTolerance is the relative voxel spacing difference
		// tolerated before a mismatch warning
		SpacingTolerance float64 `yaml:"spacingTolerance"`

		// ExtendedMetrics additionally computes Jaccard, precision/recall
		// and surface distances
		ExtendedMetrics bool `yaml:"extendedMetrics"`
	} `yaml:"comparison"`

	// Batch parameters
	Batch struct {
		// Workers specifies how many cases to process concurrently
		Workers int `yaml:"workers"`

		// MaxScanDepth limits how deep the case scanner descends below the
		// batch root
		MaxScanDepth int `yaml:"maxScanDepth"`
	} `yaml:"batch"`

	// Output parameters
	Output struct {
		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default analysis parameters
	cfg.Analysis.ErosionTiers = analysis.DefaultErosionTiers()
	cfg.Analysis.HUSlope = 1.0
	cfg.Analysis.HUIntercept = -1024.0

	// Set default comparison parameters
	cfg.Comparison.SpacingTolerance = comparison.DefaultSpacingTolerance
	cfg.Comparison.ExtendedMetrics = false

	// Set default batch parameters
	cfg.Batch.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Batch.MaxScanDepth = 10

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
