package domain

import "time"

// Recommendation priorities, highest first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// PriorityRank orders recommendation priorities.
func PriorityRank(p string) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Recommendation is a prioritized improvement derived from summary thresholds.
type Recommendation struct {
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Effort      string `json:"effort"`
	Impact      string `json:"impact"`
}

// AsFinding converts the recommendation into a persistable finding.
func (r Recommendation) AsFinding() Finding {
	return Finding{
		Severity:    SeverityRecommendation,
		Category:    r.Category,
		Type:        r.Type,
		Title:       r.Title,
		Description: r.Description,
		Details: Details{Data: map[string]any{
			"priority": r.Priority,
			"effort":   r.Effort,
			"impact":   r.Impact,
		}},
	}.WithFingerprint()
}

// AnalyzerSummary is the per-analyzer count of findings.
type AnalyzerSummary struct {
	Total      int              `json:"total_issues"`
	ByType     map[string]int   `json:"by_type"`
	BySeverity map[Severity]int `json:"by_severity"`
	// Extra holds analyzer-specific counters (files with commented code,
	// references per integration target, and so on).
	Extra map[string]int `json:"extra,omitempty"`
}

// NewAnalyzerSummary counts findings by type and severity.
func NewAnalyzerSummary(fs []Finding) AnalyzerSummary {
	s := AnalyzerSummary{
		Total:      len(fs),
		ByType:     make(map[string]int),
		BySeverity: make(map[Severity]int),
		Extra:      make(map[string]int),
	}
	for _, f := range fs {
		s.ByType[f.Type]++
		s.BySeverity[f.Severity]++
	}
	return s
}

// CodeStats counts code scanner output.
type CodeStats struct {
	FilesScanned int `json:"files_scanned"`
	Models       int `json:"models"`
	Functions    int `json:"functions"`
	Methods      int `json:"methods"`
	Fields       int `json:"fields"`
	Errors       int `json:"errors"`
}

// RecordStats counts declarative-record scanner output.
type RecordStats struct {
	FilesScanned   int `json:"files_scanned"`
	Views          int `json:"views"`
	InheritedViews int `json:"inherited_views"`
	Actions        int `json:"actions"`
	Menus          int `json:"menus"`
	Templates      int `json:"templates"`
	Errors         int `json:"errors"`
}

// AssetStats counts asset scanner output.
type AssetStats struct {
	FilesScanned int `json:"files_scanned"`
	Scripts      int `json:"scripts"`
	Styles       int `json:"styles"`
	Components   int `json:"components"`
	StyleClasses int `json:"style_classes"`
	Unregistered int `json:"unregistered"`
	Errors       int `json:"errors"`
}

// RegistryStats counts live-registry entries.
type RegistryStats struct {
	Entities int `json:"entities"`
	Views    int `json:"views"`
	Actions  int `json:"actions"`
	Menus    int `json:"menus"`
	Modules  int `json:"modules"`
}

// RelationStats summarises the relationship map.
type RelationStats struct {
	ModelsWithViews   int `json:"models_with_views"`
	ModelsWithActions int `json:"models_with_actions"`
	ModelsWithMenus   int `json:"models_with_menus"`
	InheritanceChains int `json:"inheritance_chains"`
	Relations         int `json:"relations"`
	CompleteTraces    int `json:"complete_traces"`
	IncompleteTraces  int `json:"incomplete_traces"`
	Edges             int `json:"edges"`
	Cycles            int `json:"cycles"`
}

// Statistics are the per-scanner and per-analyzer counts of a run.
type Statistics struct {
	Code      CodeStats                  `json:"code"`
	Records   RecordStats                `json:"records"`
	Assets    AssetStats                 `json:"assets"`
	Registry  *RegistryStats             `json:"registry,omitempty"`
	Analyzers map[string]AnalyzerSummary `json:"analyzers"`
	Relations RelationStats              `json:"relations"`
}

// FilesScanned is the total number of parsed files.
func (s Statistics) FilesScanned() int {
	return s.Code.FilesScanned + s.Records.FilesScanned + s.Assets.FilesScanned
}

// ReportSummary is the headline block of a report.
type ReportSummary struct {
	TotalFilesScanned   int    `json:"total_files_scanned"`
	TotalModels         int    `json:"total_models"`
	TotalViews          int    `json:"total_views"`
	TotalIssues         int    `json:"total_issues"`
	CriticalCount       int    `json:"critical_count"`
	WarningCount        int    `json:"warning_count"`
	RecommendationCount int    `json:"recommendation_count"`
	HealthStatus        string `json:"health_status"`
}

// Report is the structured output of a completed run.
type Report struct {
	RunID           string           `json:"run_id"`
	RootPath        string           `json:"root_path"`
	ScanDate        time.Time        `json:"scan_date"`
	Duration        float64          `json:"duration_seconds"`
	CommitHash      string           `json:"commit_hash,omitempty"`
	Branch          string           `json:"branch,omitempty"`
	ModulesAnalyzed []string         `json:"modules_analyzed"`
	HealthScore     int              `json:"health_score"`
	HealthStatus    string           `json:"health_status"`
	Summary         ReportSummary    `json:"summary"`
	Statistics      Statistics       `json:"statistics"`
	CriticalIssues  []Finding        `json:"critical_issues"`
	Warnings        []Finding        `json:"warnings"`
	Recommendations []Recommendation `json:"recommendations"`
}

// HealthStatusFor maps a score to its band label.
func HealthStatusFor(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Poor"
	default:
		return "Critical"
	}
}
