package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Integration reference categories, in match order.
var IntegrationCategories = []string{"webhook", "workflow", "api", "config", "import", "reference"}

// Config holds project-level configuration loaded from .ecoscan.yaml.
type Config struct {
	Modules          []string       `yaml:"modules"           json:"modules,omitempty"`
	ExcludePaths     []string       `yaml:"exclude_paths"     json:"exclude_paths,omitempty"`
	IncludeRegistry  bool           `yaml:"include_registry"  json:"include_registry,omitempty"`
	RegistrySnapshot string         `yaml:"registry_snapshot" json:"registry_snapshot,omitempty"`
	Workers          int            `yaml:"workers"           json:"workers,omitempty"`
	StateDir         string         `yaml:"state_dir"         json:"state_dir,omitempty"`
	StaleAfter       time.Duration  `yaml:"stale_after"       json:"stale_after,omitempty"`
	Similarity       SimilarityConf `yaml:"similarity"        json:"similarity"`
	Penalties        Penalties      `yaml:"penalties"         json:"penalties"`
	Boundary         BoundaryConf   `yaml:"boundary"          json:"boundary"`
	// Integrations maps target name to category to regex patterns.
	Integrations map[string]map[string][]string `yaml:"integrations" json:"integrations,omitempty"`
	Log          LogConf                        `yaml:"log"          json:"log"`
}

// SimilarityConf tunes the similar-entity comparison.
type SimilarityConf struct {
	Flag      float64 `yaml:"flag"       json:"flag"`
	Escalate  float64 `yaml:"escalate"   json:"escalate"`
	MinFields int     `yaml:"min_fields" json:"min_fields"`
}

// Penalties are the health score weights.
type Penalties struct {
	Critical            float64 `yaml:"critical"             json:"critical"`
	Warning             float64 `yaml:"warning"              json:"warning"`
	Duplicate           float64 `yaml:"duplicate"            json:"duplicate"`
	Orphan              float64 `yaml:"orphan"               json:"orphan"`
	HardcodedPath       float64 `yaml:"hardcoded_path"       json:"hardcoded_path"`
	RelativeEscape      float64 `yaml:"relative_escape"      json:"relative_escape"`
	SuspiciousOperation float64 `yaml:"suspicious_operation" json:"suspicious_operation"`
	ExternalImport      float64 `yaml:"external_import"      json:"external_import"`
	ParseError          float64 `yaml:"parse_error"          json:"parse_error"`
}

// BoundaryConf configures the boundary-violation heuristics.
type BoundaryConf struct {
	// ReposMarker is the directory name that holds sibling repositories.
	ReposMarker string `yaml:"repos_marker" json:"repos_marker"`
	// HomeRepo is the scanned repository's own directory under ReposMarker.
	// Empty means the base name of the scan root.
	HomeRepo          string   `yaml:"home_repo"          json:"home_repo,omitempty"`
	ExternalFragments []string `yaml:"external_fragments" json:"external_fragments"`
	ImportFragments   []string `yaml:"import_fragments"   json:"import_fragments"`
	EscapeDepth       int      `yaml:"escape_depth"       json:"escape_depth"`
}

// LogConf configures the logger.
type LogConf struct {
	Level string `yaml:"level" json:"level,omitempty"`
	JSON  bool   `yaml:"json"  json:"json,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		StateDir:   ".ecoscan",
		StaleAfter: time.Hour,
		Similarity: SimilarityConf{Flag: 0.70, Escalate: 0.85, MinFields: 3},
		Penalties: Penalties{
			Critical:            10,
			Warning:             2,
			Duplicate:           0.5,
			Orphan:              0.3,
			HardcodedPath:       15,
			RelativeEscape:      10,
			SuspiciousOperation: 8,
			ExternalImport:      5,
			ParseError:          2,
		},
		Boundary: BoundaryConf{
			ReposMarker:       "github-repos",
			ExternalFragments: []string{"samai-workflow-automator", "06-samai", "07-samai", "08-samai"},
			ImportFragments:   []string{"workflow_automator", "samai_automator"},
			EscapeDepth:       3,
		},
		Integrations: DefaultIntegrations(),
		Log:          LogConf{Level: "INFO"},
	}
}

// DefaultIntegrations is the built-in reference taxonomy.
func DefaultIntegrations() map[string]map[string][]string {
	return map[string]map[string][]string{
		"n8n": {
			"webhook":   {`n8n.*webhook`, `webhook.*n8n`, `/webhook/`, `webhook_url`, `webhook[-_]?id`},
			"workflow":  {`n8n.*workflow`, `workflow.*n8n`, `workflow[-_]?id`, `workflow[-_]?name`, `execute[-_]?workflow`},
			"api":       {`n8n[-_.]?(api|url|host|endpoint|base[-_]?url)`},
			"config":    {`n8n[-_.]?(config|settings|credentials|token|key)`},
			"import":    {`from.*n8n`, `import.*n8n`, `require.*n8n`},
			"reference": {`\bn8n\b`, `N8N`},
		},
		"ai_automator": {
			"import":    {`ai[-_.]?automator`, `from.*ai_automator`, `import.*ai_automator`},
			"workflow":  {`automator\.(task|workflow|trigger|action|schedule)`},
			"api":       {`automator[-_.]?(api|endpoint|url)`, `/api/automator`},
			"config":    {`automator[-_.]?(config|settings)`, `AUTOMATOR[-_]`},
			"reference": {`\bautomator\b`, `Automator`, `AUTOMATOR`},
		},
	}
}

// HasModuleFilter reports whether an allow-list is set.
func (c Config) HasModuleFilter() bool { return len(c.Modules) > 0 }

// Validate checks the config for invalid values and returns a descriptive error.
func (c Config) Validate() error {
	// 1. similarity thresholds in (0,1], flag <= escalate
	s := c.Similarity
	if s.Flag != 0 && (s.Flag <= 0 || s.Flag > 1) {
		return fmt.Errorf("similarity.flag = %.2f (must be in (0, 1])", s.Flag)
	}
	if s.Escalate != 0 && (s.Escalate <= 0 || s.Escalate > 1) {
		return fmt.Errorf("similarity.escalate = %.2f (must be in (0, 1])", s.Escalate)
	}
	if s.Flag != 0 && s.Escalate != 0 && s.Flag > s.Escalate {
		return fmt.Errorf("similarity.flag %.2f exceeds similarity.escalate %.2f", s.Flag, s.Escalate)
	}
	if s.MinFields < 0 {
		return fmt.Errorf("similarity.min_fields = %d (must be >= 0)", s.MinFields)
	}

	// 2. penalties must not be negative
	p := c.Penalties
	for name, v := range map[string]float64{
		"critical": p.Critical, "warning": p.Warning, "duplicate": p.Duplicate,
		"orphan": p.Orphan, "hardcoded_path": p.HardcodedPath,
		"relative_escape": p.RelativeEscape, "suspicious_operation": p.SuspiciousOperation,
		"external_import": p.ExternalImport, "parse_error": p.ParseError,
	} {
		if v < 0 {
			return fmt.Errorf("penalties.%s = %.2f (must be >= 0)", name, v)
		}
	}

	// 3. workers and escape depth
	if c.Workers < 0 {
		return fmt.Errorf("workers = %d (must be >= 0)", c.Workers)
	}
	if c.Boundary.EscapeDepth < 0 {
		return fmt.Errorf("boundary.escape_depth = %d (must be >= 0)", c.Boundary.EscapeDepth)
	}

	// 4. integration categories and patterns
	for target, cats := range c.Integrations {
		for cat, patterns := range cats {
			if !isIntegrationCategory(cat) {
				return fmt.Errorf("unknown category %q in integrations.%s", cat, target)
			}
			for _, pat := range patterns {
				if _, err := regexp.Compile("(?i)" + pat); err != nil {
					return fmt.Errorf("integrations.%s.%s: %w", target, cat, err)
				}
			}
		}
	}

	// 5. module names are single path segments
	for _, m := range c.Modules {
		if m == "" || regexp.MustCompile(`[/\\]`).MatchString(m) {
			return fmt.Errorf("module filter entry %q must be a top-level directory name", m)
		}
	}

	return nil
}

func isIntegrationCategory(name string) bool {
	for _, c := range IntegrationCategories {
		if c == name {
			return true
		}
	}
	return false
}
