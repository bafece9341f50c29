// Package detect holds the analyzers that turn a frozen IR into findings.
// Analyzers only read the IR; each one owns its findings list, so they can
// run concurrently once scanning is finished.
package detect

import (
	"sort"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Analyzer names.
const (
	NameDuplicate   = "duplicate"
	NameOrphan      = "orphan"
	NameBoundary    = "boundary"
	NameCommented   = "commented_code"
	NameIntegration = "integration"
)

// Analyzer inspects an IR.
type Analyzer interface {
	Name() string
	Analyze(ir *domain.IR) (*Result, error)
}

// Result is one analyzer's output.
type Result struct {
	Analyzer string                 `json:"analyzer"`
	Findings []domain.Finding       `json:"findings"`
	Summary  domain.AnalyzerSummary `json:"summary"`
	// Index is set by the integration analyzer for reference queries.
	Index *ReferenceIndex `json:"index,omitempty"`
}

func newResult(name string, findings []domain.Finding) *Result {
	for i := range findings {
		findings[i] = findings[i].WithFingerprint()
	}
	domain.SortFindings(findings)
	return &Result{
		Analyzer: name,
		Findings: findings,
		Summary:  domain.NewAnalyzerSummary(findings),
	}
}

// All returns every analyzer configured from cfg.
func All(cfg domain.Config, root string) ([]Analyzer, error) {
	boundary, err := NewBoundary(cfg.Boundary, root)
	if err != nil {
		return nil, err
	}
	integration, err := NewIntegration(cfg.Integrations)
	if err != nil {
		return nil, err
	}
	return []Analyzer{
		NewDuplicate(cfg.Similarity),
		NewOrphan(),
		boundary,
		NewCommented(),
		integration,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setOf(items ...string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
