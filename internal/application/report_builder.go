package application

import (
	"sort"
	"time"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/health"
)

// buildReport aggregates one pipeline pass. Findings land in the critical or
// warning bucket by declared severity, whichever analyzer produced them.
func buildReport(cfg domain.Config, full *FullResults, run *domain.ScanRun, now time.Time) *domain.Report {
	stats := BuildStatistics(full)
	in := health.Input{
		Results:     full.Analyzers,
		Relations:   stats.Relations,
		ParseErrors: parseErrors(full.IR),
	}
	score := health.Score(cfg.Penalties, health.Tally(in))
	status := domain.HealthStatusFor(score)

	var critical, warnings []domain.Finding
	total := len(full.Info)
	for _, name := range sortedNames(full.Analyzers) {
		for _, f := range full.Analyzers[name].Findings {
			switch f.Severity {
			case domain.SeverityCritical:
				critical = append(critical, f)
				total++
			case domain.SeverityWarning:
				warnings = append(warnings, f)
				total++
			}
		}
	}
	domain.SortFindings(critical)
	domain.SortFindings(warnings)
	recs := health.Recommend(in)

	return &domain.Report{
		RunID:           run.ID,
		RootPath:        full.IR.Root,
		ScanDate:        run.StartedAt,
		Duration:        now.Sub(run.StartedAt).Seconds(),
		CommitHash:      run.CommitHash,
		Branch:          run.Branch,
		ModulesAnalyzed: modulesAnalyzed(full.IR),
		HealthScore:     score,
		HealthStatus:    status,
		Summary: domain.ReportSummary{
			TotalFilesScanned:   stats.FilesScanned(),
			TotalModels:         stats.Code.Models,
			TotalViews:          stats.Records.Views,
			TotalIssues:         total,
			CriticalCount:       len(critical),
			WarningCount:        len(warnings),
			RecommendationCount: len(recs),
			HealthStatus:        status,
		},
		Statistics:      stats,
		CriticalIssues:  nonNil(critical),
		Warnings:        nonNil(warnings),
		Recommendations: recs,
	}
}

// parseErrors counts per-file failures. Registry lookups that failed for a
// single entity are not parse errors.
func parseErrors(ir *domain.IR) int {
	n := 0
	for _, e := range ir.Errors {
		if e.Scanner != domain.ScannerRegistry {
			n++
		}
	}
	return n
}

func modulesAnalyzed(ir *domain.IR) []string {
	seen := make(map[string]bool)
	for _, src := range ir.Sources {
		if src.Module != "" {
			seen[src.Module] = true
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// BuildStatistics counts scanner, analyzer and mapper output.
func BuildStatistics(full *FullResults) domain.Statistics {
	ir := full.IR
	var st domain.Statistics

	for _, src := range ir.Sources {
		switch src.Scanner {
		case domain.ScannerCode:
			st.Code.FilesScanned++
		case domain.ScannerRecords:
			st.Records.FilesScanned++
		case domain.ScannerAssets:
			st.Assets.FilesScanned++
		}
	}

	for _, e := range ir.Elements {
		switch e.Kind {
		case domain.KindModel:
			st.Code.Models++
			st.Code.Fields += len(e.Fields)
			st.Code.Methods += len(e.Methods)
		case domain.KindFunction:
			st.Code.Functions++
		case domain.KindMethod, domain.KindRoute:
			st.Code.Methods++
		}
	}
	st.Code.Errors = len(ir.ErrorsFrom(domain.ScannerCode))

	for _, a := range ir.UI {
		switch a.Type {
		case domain.ArtifactView:
			st.Records.Views++
			if a.InheritsRef != "" {
				st.Records.InheritedViews++
			}
		case domain.ArtifactAction:
			st.Records.Actions++
		case domain.ArtifactMenu:
			st.Records.Menus++
		case domain.ArtifactTemplate:
			st.Records.Templates++
		}
	}
	st.Records.Errors = len(ir.ErrorsFrom(domain.ScannerRecords))

	for _, a := range ir.Assets {
		switch a.Kind {
		case domain.AssetScript:
			st.Assets.Scripts++
			st.Assets.Components += len(a.Components)
		case domain.AssetStyle:
			st.Assets.Styles++
			st.Assets.StyleClasses += len(a.StyleClasses)
		}
		if !a.IsRegisteredInBundle {
			st.Assets.Unregistered++
		}
	}
	st.Assets.Errors = len(ir.ErrorsFrom(domain.ScannerAssets))

	if reg := ir.Registry; reg != nil {
		st.Registry = &domain.RegistryStats{
			Entities: len(reg.Entities),
			Views:    len(reg.Views),
			Actions:  len(reg.Actions),
			Menus:    len(reg.Menus),
			Modules:  len(reg.Modules),
		}
	}

	st.Analyzers = make(map[string]domain.AnalyzerSummary, len(full.Analyzers))
	for name, res := range full.Analyzers {
		st.Analyzers[name] = res.Summary
	}
	if full.Relations != nil {
		st.Relations = full.Relations.Summary
	}
	return st
}

func nonNil(fs []domain.Finding) []domain.Finding {
	if fs == nil {
		return []domain.Finding{}
	}
	return fs
}
