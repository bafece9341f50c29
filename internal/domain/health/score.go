// Package health turns analyzer output into a 0-100 health score and a
// prioritized list of recommendations.
package health

import (
	"sort"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
)

// Input is everything the score and recommendations are derived from.
type Input struct {
	// Results holds each analyzer's output keyed by analyzer name.
	Results     map[string]*detect.Result
	Relations   domain.RelationStats
	ParseErrors int
}

// Counts are the issue tallies the score is charged for.
type Counts struct {
	Critical       int `json:"critical"`
	Warning        int `json:"warning"`
	Duplicate      int `json:"duplicate"`
	Orphan         int `json:"orphan"`
	HardcodedPath  int `json:"hardcoded_path"`
	RelativeEscape int `json:"relative_escape"`
	Suspicious     int `json:"suspicious_operation"`
	ExternalImport int `json:"external_import"`
	ParseErrors    int `json:"parse_errors"`
}

// Tally counts the findings of in. Boundary findings are charged through
// their own category weights only, never again as critical or warning.
func Tally(in Input) Counts {
	c := Counts{ParseErrors: in.ParseErrors}
	for _, name := range resultNames(in.Results) {
		res := in.Results[name]
		for _, f := range res.Findings {
			switch name {
			case detect.NameBoundary:
				switch f.Type {
				case detect.TypeHardcodedPath:
					c.HardcodedPath++
				case detect.TypeRelativeEscape:
					c.RelativeEscape++
				case detect.TypeSuspiciousOp:
					c.Suspicious++
				case detect.TypeExternalImport:
					c.ExternalImport++
				}
				continue
			case detect.NameDuplicate:
				if f.Type != "similar_models" {
					c.Duplicate++
				}
			case detect.NameOrphan:
				c.Orphan++
			}
			switch f.Severity {
			case domain.SeverityCritical:
				c.Critical++
			case domain.SeverityWarning:
				c.Warning++
			}
		}
	}
	return c
}

// Score starts at 100 and subtracts the weighted counts. The fractional
// total is truncated, then clamped to [0, 100].
func Score(p domain.Penalties, c Counts) int {
	score := 100.0
	score -= p.Critical * float64(c.Critical)
	score -= p.Warning * float64(c.Warning)
	score -= p.Duplicate * float64(c.Duplicate)
	score -= p.Orphan * float64(c.Orphan)
	score -= p.HardcodedPath * float64(c.HardcodedPath)
	score -= p.RelativeEscape * float64(c.RelativeEscape)
	score -= p.SuspiciousOperation * float64(c.Suspicious)
	score -= p.ExternalImport * float64(c.ExternalImport)
	score -= p.ParseError * float64(c.ParseErrors)
	return max(0, min(100, int(score)))
}

func resultNames(m map[string]*detect.Result) []string {
	names := make([]string, 0, len(m))
	for k, v := range m {
		if v != nil {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
