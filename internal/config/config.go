// Package config loads the process configuration for the localizer.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KITcar-Team/stargazer/internal/detect"
)

// Config ties together the landmark map, the camera intrinsics file, the
// detector tuning and the pose mode.
type Config struct {
	// MapFile is the path to the landmark catalog YAML.
	MapFile string `yaml:"map"`
	// CameraFile is the path to the camera intrinsics YAML.
	CameraFile string `yaml:"camera"`
	// Planar constrains the estimated pose to 2D position plus heading.
	Planar bool `yaml:"planar"`
	// Detector holds the recognition pipeline knobs.
	Detector detect.Params `yaml:"detector"`
}

// Load reads and validates a config file. Detector knobs not present in the
// file keep their calibrated defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Config{Detector: detect.DefaultParams()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if cfg.MapFile == "" {
		return nil, fmt.Errorf("map is required")
	}
	if cfg.CameraFile == "" {
		return nil, fmt.Errorf("camera is required")
	}
	if err := cfg.Detector.Validate(); err != nil {
		return nil, fmt.Errorf("detector config: %w", err)
	}
	return &cfg, nil
}
