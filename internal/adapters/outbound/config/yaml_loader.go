package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openkraft/ecoscan/internal/domain"
)

// FileName is the per-project configuration file.
const FileName = ".ecoscan.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .ecoscan.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .ecoscan.yaml from projectPath and merges it over
// domain.DefaultConfig. A missing file yields the defaults.
func (l *YAMLLoader) Load(projectPath string) (domain.Config, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	// Validate the raw input so typos are reported against what the user wrote.
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}

	return Merge(domain.DefaultConfig(), cfg), nil
}

// Merge overlays explicit (non-zero) values of override on base.
// Integration targets in override replace the same-named base targets.
func Merge(base, override domain.Config) domain.Config {
	result := base

	if len(override.Modules) > 0 {
		result.Modules = override.Modules
	}
	if len(override.ExcludePaths) > 0 {
		result.ExcludePaths = override.ExcludePaths
	}
	if override.IncludeRegistry {
		result.IncludeRegistry = true
	}
	if override.RegistrySnapshot != "" {
		result.RegistrySnapshot = override.RegistrySnapshot
	}
	if override.Workers > 0 {
		result.Workers = override.Workers
	}
	if override.StateDir != "" {
		result.StateDir = override.StateDir
	}
	if override.StaleAfter > 0 {
		result.StaleAfter = override.StaleAfter
	}

	s := override.Similarity
	if s.Flag > 0 {
		result.Similarity.Flag = s.Flag
	}
	if s.Escalate > 0 {
		result.Similarity.Escalate = s.Escalate
	}
	if s.MinFields > 0 {
		result.Similarity.MinFields = s.MinFields
	}

	mergePenalty(&result.Penalties.Critical, override.Penalties.Critical)
	mergePenalty(&result.Penalties.Warning, override.Penalties.Warning)
	mergePenalty(&result.Penalties.Duplicate, override.Penalties.Duplicate)
	mergePenalty(&result.Penalties.Orphan, override.Penalties.Orphan)
	mergePenalty(&result.Penalties.HardcodedPath, override.Penalties.HardcodedPath)
	mergePenalty(&result.Penalties.RelativeEscape, override.Penalties.RelativeEscape)
	mergePenalty(&result.Penalties.SuspiciousOperation, override.Penalties.SuspiciousOperation)
	mergePenalty(&result.Penalties.ExternalImport, override.Penalties.ExternalImport)
	mergePenalty(&result.Penalties.ParseError, override.Penalties.ParseError)

	b := override.Boundary
	if b.ReposMarker != "" {
		result.Boundary.ReposMarker = b.ReposMarker
	}
	if b.HomeRepo != "" {
		result.Boundary.HomeRepo = b.HomeRepo
	}
	if len(b.ExternalFragments) > 0 {
		result.Boundary.ExternalFragments = b.ExternalFragments
	}
	if len(b.ImportFragments) > 0 {
		result.Boundary.ImportFragments = b.ImportFragments
	}
	if b.EscapeDepth > 0 {
		result.Boundary.EscapeDepth = b.EscapeDepth
	}

	if len(override.Integrations) > 0 {
		merged := make(map[string]map[string][]string, len(base.Integrations)+len(override.Integrations))
		for target, cats := range base.Integrations {
			merged[target] = cats
		}
		for target, cats := range override.Integrations {
			merged[target] = cats
		}
		result.Integrations = merged
	}

	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Log.JSON {
		result.Log.JSON = true
	}
	return result
}

func mergePenalty(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
