// Package config loads pagewright configuration. Two layers exist: the
// per-repository .pagewright.yml that site owners commit to tune triggering
// and generation, and the host configuration (tokens, endpoints, budgets)
// resolved from the environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RepoConfigName is the file pagewright looks for in a target repository.
const RepoConfigName = ".pagewright.yml"

// Default values for RepoConfig.
const (
	DefaultMaxIterations = 3
	DefaultTargetScore   = 8
)

// DefaultRepoConfig returns a RepoConfig with sensible default values.
func DefaultRepoConfig() RepoConfig {
	return RepoConfig{
		Trigger: TriggerSettings{
			Enabled: true,
		},
		Generation: GenerationSettings{
			MaxIterations: DefaultMaxIterations,
			TargetScore:   DefaultTargetScore,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ParseRepoConfig parses .pagewright.yml contents. Missing fields keep the
// defaults, so a file setting only `trigger.branches` still gets the
// default iteration bounds.
func ParseRepoConfig(data []byte) (*RepoConfig, error) {
	cfg := DefaultRepoConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", RepoConfigName, err)
	}

	if err := ValidateRepoConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRepoConfig reads .pagewright.yml from the given directory. A missing
// file returns the default config.
func LoadRepoConfig(dir string) (*RepoConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, RepoConfigName))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultRepoConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigName, err)
	}
	return ParseRepoConfig(data)
}

// ValidateRepoConfig checks that all config values are usable.
func ValidateRepoConfig(cfg *RepoConfig) error {
	if cfg.Generation.MaxIterations < 0 {
		return ValidationError{Field: "generation.max_iterations", Message: "must not be negative"}
	}
	if cfg.Generation.TargetScore < 1 || cfg.Generation.TargetScore > 10 {
		return ValidationError{Field: "generation.target_score", Message: "must be between 1 and 10"}
	}
	return nil
}
