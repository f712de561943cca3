package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it fills in defaults for anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config
// found, falling back to built-in defaults when none exists.
// Search order: ./prforge.yaml, ~/.prforge/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"prforge.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".prforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	var cfg Config
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills unset fields with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Build.MaxAttempts == 0 {
		cfg.Build.MaxAttempts = 3
	}
	if cfg.Build.Timeout == "" {
		cfg.Build.Timeout = "20m"
	}
	if cfg.Build.BaseImage == "" {
		cfg.Build.BaseImage = "ubuntu:24.04"
	}
	if cfg.Test.Timeout == "" {
		cfg.Test.Timeout = "30m"
	}
	if cfg.Test.TimeoutRetries == 0 {
		cfg.Test.TimeoutRetries = 1
	}
	if cfg.Test.TimeoutMultiplier == 0 {
		cfg.Test.TimeoutMultiplier = 1.5
	}
	if cfg.Docker.Memory == "" {
		cfg.Docker.Memory = "8g"
	}
	if cfg.Docker.CPUs == "" {
		cfg.Docker.CPUs = "4"
	}
	if cfg.Relevance.MinStemLength == 0 {
		cfg.Relevance.MinStemLength = 4
	}
}
