package tui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/openkraft/ecoscan/internal/domain/relations"
)

var when = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID:           "0b6f1c52-run",
		RootPath:        "/src/addons",
		ScanDate:        when,
		Duration:        1.25,
		CommitHash:      "4f2a9c1d8e7b",
		ModulesAnalyzed: []string{"sales", "stock_ext"},
		HealthScore:     72,
		HealthStatus:    "Fair",
		Summary:         domain.ReportSummary{TotalFilesScanned: 40, CriticalCount: 1, WarningCount: 1},
		Statistics: domain.Statistics{
			Code:    domain.CodeStats{FilesScanned: 20, Models: 6, Fields: 48},
			Records: domain.RecordStats{FilesScanned: 12, Views: 9, InheritedViews: 2},
			Analyzers: map[string]domain.AnalyzerSummary{
				detect.NameOrphan:   {Total: 3},
				detect.NameBoundary: {Total: 1},
			},
		},
		CriticalIssues: []domain.Finding{{
			Severity: domain.SeverityCritical,
			Type:     detect.TypeHardcodedPath,
			Title:    "sales/tools/io.py:7 references a path outside the repository",
			Details:  domain.Details{File: "sales/tools/io.py", Line: 7},
		}},
		Warnings: []domain.Finding{{
			Severity: domain.SeverityWarning,
			Type:     "dangling_field_refs",
			Title:    "View view_task_form references unknown fields of task: owner",
		}},
		Recommendations: []domain.Recommendation{{
			Priority: domain.PriorityCritical,
			Title:    "Remove External Path Dependencies",
			Effort:   "medium",
			Impact:   "Module isolation",
		}},
	}
}

func TestRenderReport_Header(t *testing.T) {
	out := tui.RenderReport(sampleReport())
	assert.Contains(t, out, "72 / 100")
	assert.Contains(t, out, "Fair")
	assert.Contains(t, out, "/src/addons")
	assert.Contains(t, out, "4f2a9c1")
	assert.NotContains(t, out, "4f2a9c1d8e7b")
}

func TestRenderReport_SectionsAndIssues(t *testing.T) {
	out := tui.RenderReport(sampleReport())
	assert.Contains(t, out, "6 models")
	assert.Contains(t, out, "9 views (2 inherited)")
	assert.Contains(t, out, "sales, stock_ext")
	assert.Contains(t, out, "1 critical")
	assert.Contains(t, out, "1 warnings")
	assert.Contains(t, out, "sales/tools/io.py:7")
	assert.Contains(t, out, "references unknown fields of task: owner")
	assert.Contains(t, out, "Remove External Path Dependencies")
	assert.Contains(t, out, "orphan")

	crit := strings.Index(out, "io.py:7")
	warn := strings.Index(out, "owner")
	assert.Less(t, crit, warn, "critical issues are listed first")
}

func TestRenderReport_Clean(t *testing.T) {
	r := sampleReport()
	r.CriticalIssues, r.Warnings, r.Recommendations = nil, nil, nil
	out := tui.RenderReport(r)
	assert.Contains(t, out, "No issues found.")
	assert.NotContains(t, out, "Recommendations")
}

func TestRenderReport_CapsIssueList(t *testing.T) {
	r := sampleReport()
	r.Warnings = nil
	for range 30 {
		r.Warnings = append(r.Warnings, domain.Finding{Severity: domain.SeverityWarning, Title: "w"})
	}
	out := tui.RenderReport(r)
	assert.Contains(t, out, "6 more")
}

func TestRenderFindings(t *testing.T) {
	fs := []domain.Finding{{
		Fingerprint:     "a1b2c3d4e5f60718",
		Severity:        domain.SeverityWarning,
		Category:        domain.CategoryDangling,
		Type:            "dangling_field_refs",
		Title:           "View references owner",
		Status:          domain.StatusResolved,
		OccurrenceCount: 3,
		Details:         domain.Details{File: "sales/views/task.xml", Line: 3},
	}}
	out := tui.RenderFindings(fs)
	assert.Contains(t, out, "a1b2c3d4")
	assert.NotContains(t, out, "a1b2c3d4e5")
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "dangling/dangling_field_refs")
	assert.Contains(t, out, "sales/views/task.xml:3")
	assert.Contains(t, out, "seen 3×")
	assert.Contains(t, out, "1 warning")

	assert.Contains(t, tui.RenderFindings(nil), "No findings match.")
}

func TestRenderFinding_Detail(t *testing.T) {
	f := domain.Finding{
		Fingerprint:    "a1b2c3d4e5f60718",
		Severity:       domain.SeverityCritical,
		Title:          "hardcoded path",
		Recommendation: "Use configuration.",
		ResolutionNote: "tracked upstream",
		FirstSeenAt:    when,
		LastSeenAt:     when,
		Details:        domain.Details{Data: map[string]any{"match": "/home/u/github-repos/"}},
	}
	out := tui.RenderFinding(f)
	assert.Contains(t, out, "a1b2c3d4e5f60718")
	assert.Contains(t, out, "Use configuration.")
	assert.Contains(t, out, "tracked upstream")
	assert.Contains(t, out, "/home/u/github-repos/")
	assert.Contains(t, out, "2026-03-02 09:30")
}

func TestRenderRuns(t *testing.T) {
	runs := []domain.ScanRun{
		{ID: "run-3", State: domain.RunFailed, CreatedAt: when.Add(2 * time.Hour), Error: "live registry unavailable"},
		{ID: "run-2", State: domain.RunCompleted, CreatedAt: when.Add(time.Hour), HealthScore: 80, HealthStatus: "Good", CommitHash: "deadbeefcafe"},
		{ID: "run-1", State: domain.RunCompleted, CreatedAt: when, HealthScore: 70, HealthStatus: "Fair"},
	}
	out := tui.RenderRuns(runs)
	assert.Contains(t, out, "live registry unavailable")
	assert.Contains(t, out, "80/100")
	assert.Contains(t, out, "↑10")
	assert.Contains(t, out, "deadbee")
	assert.Contains(t, out, "·······")

	assert.Contains(t, tui.RenderRuns(nil), "No scan runs recorded.")
}

func traceIR() *domain.IR {
	ir := domain.NewIR("/src")
	ir.Add(
		&domain.CodeElement{Kind: domain.KindModel, QualifiedName: "x.task", File: "sales/models/task.py", Module: "sales",
			Fields: []domain.Field{{Name: "project_id", Type: "Many2one", Target: "x.project"}}},
		&domain.CodeElement{Kind: domain.KindModel, QualifiedName: "x.project", File: "sales/models/project.py", Module: "sales",
			Fields: []domain.Field{{Name: "task_ids", Type: "One2many", Target: "x.task"}}},
		&domain.UIArtifact{Type: domain.ArtifactView, ExternalID: "view_task_form", Module: "sales", File: "sales/views/task.xml", BoundEntity: "x.task", ViewType: "form"},
		&domain.UIArtifact{Type: domain.ArtifactAction, ExternalID: "action_task", Module: "sales", File: "sales/views/task.xml", BoundEntity: "x.task", ActionKind: "ir.actions.act_window"},
		&domain.UIArtifact{Type: domain.ArtifactMenu, ExternalID: "menu_task", Module: "sales", File: "sales/views/menu.xml", Name: "Tasks", ActionRef: "action_task"},
	)
	ir.Normalize()
	return ir
}

func TestRenderTrace(t *testing.T) {
	m := relations.Build(traceIR())
	out := tui.RenderTrace(m, "x.task")
	assert.Contains(t, out, "x.task")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "view_task_form")
	assert.Contains(t, out, "action_task")
	assert.Contains(t, out, "menu_task")
	assert.Contains(t, out, "x.project")

	out = tui.RenderTrace(m, "x.unknown")
	assert.Contains(t, out, "no views, actions or menus")
}

func TestRenderReferences(t *testing.T) {
	refs := []detect.Reference{
		{Target: "n8n", Category: "webhook", File: "a.py", Line: 3, Context: "url = N8N_WEBHOOK"},
		{Target: "n8n", Category: "reference", File: "a.py", Line: 9, Context: "# n8n"},
		{Target: "n8n", Category: "api", File: "b.js", Line: 1, Context: "n8n_api_url"},
	}
	out := tui.RenderReferences("n8n", refs)
	assert.Contains(t, out, "3 references in 2 files")
	assert.Contains(t, out, "url = N8N_WEBHOOK")
	assert.Equal(t, 1, strings.Count(out, "a.py"))

	assert.Contains(t, tui.RenderReferences("n8n", nil), "No references to n8n.")
}

func TestRenderModules(t *testing.T) {
	out := tui.RenderModules([]domain.ModuleInfo{
		{Name: "sales", Title: "Sales", Version: "17.0.1.0", Installable: true, Depends: []string{"base", "mail"}},
		{Name: "legacy", Title: "Legacy", Installable: false},
	})
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "17.0.1.0")
	assert.Contains(t, out, "depends base, mail")
	assert.Contains(t, out, "not installable")
}
