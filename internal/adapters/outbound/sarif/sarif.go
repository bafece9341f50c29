// Package sarif exports a report as SARIF 2.1.0.
package sarif

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/openkraft/ecoscan/internal/domain"
)

const informationURI = "https://github.com/openkraft/ecoscan"

// Build converts the critical issues and warnings of report into a SARIF
// log with one rule per finding type. Recommendations have no location and
// are attached as run properties.
func Build(report *domain.Report) (*sarif.Report, error) {
	out, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("ecoscan", informationURI)
	findings := append(append([]domain.Finding(nil), report.CriticalIssues...), report.Warnings...)
	for _, f := range findings {
		ruleID := f.Category + "/" + f.Type
		rule := run.AddRule(ruleID).
			WithDescription(f.Type).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level(f.Severity)})

		msg := f.Title
		if f.Description != "" {
			msg += ": " + f.Description
		}
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel(level(f.Severity))
		if f.Details.File != "" {
			phys := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Details.File))
			if f.Details.Line > 0 {
				phys = phys.WithRegion(sarif.NewRegion().WithStartLine(f.Details.Line))
			}
			result.WithLocations([]*sarif.Location{sarif.NewLocation().WithPhysicalLocation(phys)})
		}
		result.Properties = sarif.Properties{
			"fingerprint": f.Fingerprint,
			"severity":    string(f.Severity),
		}
		if f.Recommendation != "" {
			result.Properties["recommendation"] = f.Recommendation
		}
		run.AddResult(result)
	}

	recs := make([]string, 0, len(report.Recommendations))
	for _, r := range report.Recommendations {
		recs = append(recs, fmt.Sprintf("[%s] %s", r.Priority, r.Title))
	}
	run.Properties = sarif.Properties{
		"run_id":          report.RunID,
		"health_score":    report.HealthScore,
		"health_status":   report.HealthStatus,
		"recommendations": recs,
	}
	if report.CommitHash != "" {
		run.Properties["commit"] = report.CommitHash
	}

	out.AddRun(run)
	return out, nil
}

// Write encodes report as indented SARIF to w.
func Write(w io.Writer, report *domain.Report) error {
	log, err := Build(report)
	if err != nil {
		return err
	}
	return log.PrettyWrite(w)
}

func level(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "error"
	case domain.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
