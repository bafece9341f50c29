package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/config"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/findings"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/history"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/scanner"
	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// ticker returns a clock that advances one second per call.
func ticker(from time.Time) func() time.Time {
	cur := from
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

type harness struct {
	analyze *application.AnalyzeService
	triage  *application.TriageService
	history *application.HistoryService
	runs    *history.FileHistory
	store   *findings.Store
}

func newHarness(opts ...application.Option) *harness {
	store := findings.New("")
	runs := history.New("")
	opts = append([]application.Option{application.WithClock(ticker(start))}, opts...)
	return &harness{
		analyze: application.NewAnalyzeService(scanner.New(), config.New(), store, runs, opts...),
		triage:  application.NewTriageService(store),
		history: application.NewHistoryService(runs),
		runs:    runs,
		store:   store,
	}
}

const taskModel = `from odoo import fields, models


class Task(models.Model):
    _name = 'task'

    name = fields.Char()
    state = fields.Selection([('draft', 'Draft')])
`

const taskViews = `<odoo>
    <record id="view_task_form" model="ir.ui.view">
        <field name="model">task</field>
        <field name="arch" type="xml">
            <form>
                <field name="name"/>
                <field name="state"/>
                <field name="owner"/>
            </form>
        </field>
    </record>
</odoo>
`

var twoFileTree = map[string]string{
	"tasks/models/task.py": taskModel,
	"tasks/views/task.xml": taskViews,
}

func ofType(fs []domain.Finding, typ string) []domain.Finding {
	var out []domain.Finding
	for _, f := range fs {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func TestAnalyze_DanglingFieldEndToEnd(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()

	res, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{})
	require.NoError(t, err)

	dangling := ofType(res.Full.Analyzers[detect.NameOrphan].Findings, "dangling_field_refs")
	require.Len(t, dangling, 1)
	assert.Equal(t, []string{"owner"}, dangling[0].Details.Data["missing_fields"])

	inReport := ofType(res.Report.Warnings, "dangling_field_refs")
	require.Len(t, inReport, 1)
	assert.Equal(t, domain.StatusNew, inReport[0].Status)

	assert.Equal(t, domain.RunCompleted, res.Run.State)
	assert.Equal(t, []string{"tasks"}, res.Report.ModulesAnalyzed)
	assert.Equal(t, 1, res.Report.Statistics.Code.Models)
	assert.Equal(t, 1, res.Report.Statistics.Records.Views)
	assert.Equal(t, 2, res.Report.Summary.TotalFilesScanned)
}

func TestAnalyze_Idempotent(t *testing.T) {
	tree := map[string]string{
		"tasks/models/task.py": taskModel,
		"tasks/views/task.xml": taskViews,
		"tasks/__init__.py":    "DATA = '/srv/github-repos/other-repo/data.csv'\n",
	}
	root := writeTree(t, tree)
	h := newHarness()
	ctx := context.Background()

	first, err := h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
	require.NoError(t, err)
	afterFirst, err := h.triage.List(root, domain.FindingFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, afterFirst)

	second, err := h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
	require.NoError(t, err)
	afterSecond, err := h.triage.List(root, domain.FindingFilter{})
	require.NoError(t, err)

	assert.Equal(t, first.Report.HealthScore, second.Report.HealthScore)
	require.Len(t, afterSecond, len(afterFirst))
	counts := make(map[string]int, len(afterFirst))
	for _, f := range afterFirst {
		counts[f.Fingerprint] = f.OccurrenceCount
	}
	for _, f := range afterSecond {
		prev, ok := counts[f.Fingerprint]
		require.True(t, ok, "fingerprint %s appeared only in the second run", f.Fingerprint)
		assert.Equal(t, prev+1, f.OccurrenceCount, f.Title)
		assert.Equal(t, second.Run.ID, f.RunID)
	}

	assert.Equal(t, len(afterFirst), first.Run.FindingsNew)
	assert.Zero(t, first.Run.FindingsRecurring)
	assert.Zero(t, second.Run.FindingsNew)
	assert.Equal(t, len(afterSecond), second.Run.FindingsRecurring)
}

func TestAnalyze_ResolvedFindingStaysResolved(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()
	ctx := context.Background()

	res, err := h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
	require.NoError(t, err)
	dangling := ofType(res.Report.Warnings, "dangling_field_refs")
	require.Len(t, dangling, 1)
	fp := dangling[0].Fingerprint

	resolved, err := h.triage.SetStatus(root, fp[:8], domain.StatusResolved, "field added upstream")
	require.NoError(t, err)
	assert.Equal(t, fp, resolved.Fingerprint)
	assert.False(t, resolved.ResolvedAt.IsZero())

	for range 2 {
		_, err = h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
		require.NoError(t, err)
	}

	got, err := h.triage.Get(root, fp)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Equal(t, 3, got.OccurrenceCount)
	assert.Equal(t, "field added upstream", got.ResolutionNote)

	open, err := h.triage.List(root, domain.FindingFilter{Open: true})
	require.NoError(t, err)
	for _, f := range open {
		assert.NotEqual(t, fp, f.Fingerprint)
	}
}

func TestAnalyze_SingleHardcodedPathScores85(t *testing.T) {
	root := writeTree(t, map[string]string{
		"sales/__init__.py": "DATA_PATH = '/home/u/github-repos/other-repo/data.csv'\n",
	})
	h := newHarness()

	res, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{})
	require.NoError(t, err)

	require.Len(t, res.Report.CriticalIssues, 1)
	assert.Equal(t, detect.TypeHardcodedPath, res.Report.CriticalIssues[0].Type)
	assert.Empty(t, res.Report.Warnings)
	assert.Equal(t, 85, res.Report.HealthScore)
	assert.Equal(t, "Good", res.Report.HealthStatus)
	assert.Equal(t, 85, res.Run.HealthScore)
}

func TestAnalyze_FailedRunKeepsLastKnownGood(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()
	ctx := context.Background()

	good, err := h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
	require.NoError(t, err)
	before, err := h.triage.List(root, domain.FindingFilter{})
	require.NoError(t, err)

	_, err = h.analyze.Analyze(ctx, root, application.AnalyzeOptions{IncludeRegistry: true})
	require.ErrorIs(t, err, domain.ErrRegistryUnavailable)

	runs, err := h.history.Runs(root, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, domain.RunFailed, runs[0].State)
	assert.Contains(t, runs[0].Error, "live registry unavailable")
	assert.True(t, runs[0].IncludeRegistry)

	after, err := h.triage.List(root, domain.FindingFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed run must not touch the store")

	last, err := h.history.LastReport(root)
	require.NoError(t, err)
	assert.Equal(t, good.Run.ID, last.RunID)
}

func TestAnalyze_CancelledContextFailsRun(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.analyze.Analyze(ctx, root, application.AnalyzeOptions{})
	require.ErrorIs(t, err, context.Canceled)

	runs, err := h.history.Runs(root, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].State)

	_, err = h.history.LastReport(root)
	assert.ErrorIs(t, err, domain.ErrNoCompletedRun)
	set, err := h.store.Load(root)
	require.NoError(t, err)
	assert.Empty(t, set.Findings)
}

func TestAnalyze_RefusesConcurrentRun(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()
	require.NoError(t, h.runs.SaveRun(root, domain.ScanRun{
		ID:        "busy",
		State:     domain.RunRunning,
		CreatedAt: start.Add(-time.Minute),
		StartedAt: start.Add(-time.Minute),
	}))

	_, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{})
	require.ErrorIs(t, err, domain.ErrRunInProgress)

	runs, err := h.history.Runs(root, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAnalyze_AbandonsStaleRun(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()
	require.NoError(t, h.runs.SaveRun(root, domain.ScanRun{
		ID:        "stale",
		State:     domain.RunRunning,
		CreatedAt: start.Add(-2 * time.Hour),
		StartedAt: start.Add(-2 * time.Hour),
	}))

	res, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{})
	require.NoError(t, err)

	runs, err := h.history.Runs(root, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, res.Run.ID, runs[0].ID)
	assert.Equal(t, domain.RunFailed, runs[1].State)
	assert.Equal(t, "abandoned", runs[1].Error)
}

func TestAnalyze_InvalidRoot(t *testing.T) {
	h := newHarness()
	_, err := h.analyze.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing"), application.AnalyzeOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidRoot)
}

type fixedRevision struct{}

func (fixedRevision) Revision(string) (domain.Revision, error) {
	return domain.Revision{Commit: "abc123", Branch: "main"}, nil
}

func TestAnalyze_StampsRevisionAndIDs(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness(
		application.WithGitInfo(fixedRevision{}),
		application.WithIDGenerator(func() string { return "run-1" }),
	)

	res, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.Report.RunID)
	assert.Equal(t, "abc123", res.Report.CommitHash)
	assert.Equal(t, "main", res.Run.Branch)

	stored, err := h.history.Report(root, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.Report.HealthScore, stored.HealthScore)
}

func TestAnalyze_ModuleFilterOverridesConfig(t *testing.T) {
	root := writeTree(t, map[string]string{
		"ai_sam/models/a.py":      taskModel,
		"ai_sam_base/models/b.py": taskModel,
		".ecoscan.yaml":           "modules: [ai_sam_base]\n",
	})
	h := newHarness()

	res, err := h.analyze.Analyze(context.Background(), root, application.AnalyzeOptions{Modules: []string{"ai_sam"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ai_sam"}, res.Report.ModulesAnalyzed)
	assert.Equal(t, []string{"ai_sam"}, res.Run.ModuleFilter)
}

func TestInspect_DoesNotPersist(t *testing.T) {
	root := writeTree(t, twoFileTree)
	h := newHarness()

	full, err := h.analyze.Inspect(context.Background(), root, application.AnalyzeOptions{})
	require.NoError(t, err)
	trace, ok := full.Relations.Trace("task")
	require.True(t, ok)
	require.Len(t, trace.Views, 1)
	assert.False(t, trace.Complete)

	runs, err := h.history.Runs(root, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	_, err = os.Stat(filepath.Join(root, ".ecoscan"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Analyze(*domain.IR) (*detect.Result, error) {
	panic("malformed record")
}

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Analyze(*domain.IR) (*detect.Result, error) {
	return nil, errors.New("boom")
}

func TestRunAnalyzers_PanicsAndErrorsFailThePhase(t *testing.T) {
	ir := domain.NewIR("/src")
	ctx := context.Background()

	_, err := application.RunAnalyzers(ctx, ir, []detect.Analyzer{detect.NewOrphan(), panicky{}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer panicky panicked")

	_, err = application.RunAnalyzers(ctx, ir, []detect.Analyzer{failing{}}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	results, err := application.RunAnalyzers(ctx, ir, []detect.Analyzer{detect.NewOrphan(), detect.NewCommented()}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, results, detect.NameOrphan)
}
