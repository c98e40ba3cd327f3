package config

import (
	"github.com/pagewright/pagewright/internal/refine"
	"github.com/pagewright/pagewright/internal/trigger"
)

// TriggerSettings controls when pushes generate the site.
type TriggerSettings struct {
	Enabled     bool     `yaml:"enabled"`
	Branches    []string `yaml:"branches"`
	IgnorePaths []string `yaml:"ignore_paths"`
}

// GenerationSettings bounds the refinement loop and shapes the prompt.
type GenerationSettings struct {
	MaxIterations int    `yaml:"max_iterations"`
	TargetScore   int    `yaml:"target_score"`
	Requirements  string `yaml:"requirements"`
}

// RepoConfig represents the .pagewright.yml file in a target repository.
type RepoConfig struct {
	Trigger    TriggerSettings    `yaml:"trigger"`
	Generation GenerationSettings `yaml:"generation"`
}

// TriggerConfig converts the file settings into the policy engine's input.
func (c *RepoConfig) TriggerConfig() trigger.Config {
	return trigger.Config{
		Enabled:             c.Trigger.Enabled,
		TargetBranches:      c.Trigger.Branches,
		IgnoredPathPrefixes: c.Trigger.IgnorePaths,
	}
}

// RefinementConfig converts the file settings into the loop's bounds.
func (c *RepoConfig) RefinementConfig() refine.Config {
	return refine.Config{
		MaxIterations: c.Generation.MaxIterations,
		TargetScore:   c.Generation.TargetScore,
	}
}
