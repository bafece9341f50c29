package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/openkraft/ecoscan/internal/domain/health"
	"github.com/openkraft/ecoscan/internal/domain/relations"
)

// AnalyzeOptions narrows a run. Zero values fall back to the project config.
type AnalyzeOptions struct {
	Modules         []string
	IncludeRegistry bool
	Workers         int
}

// FullResults is the drill-down view of one pipeline pass: the frozen IR,
// every analyzer's output and the relationship map.
type FullResults struct {
	IR        *domain.IR                `json:"ir"`
	Analyzers map[string]*detect.Result `json:"analyzers"`
	Relations *relations.Map            `json:"relationships"`
	// Info holds info-severity findings, which never reach the store.
	Info []domain.Finding `json:"info"`
}

// Analysis is the outcome of a completed run.
type Analysis struct {
	Run    *domain.ScanRun
	Report *domain.Report
	Full   *FullResults
}

// AnalyzeService orchestrates a scan run:
// guard → scan → analyze → map relations → score → persist.
type AnalyzeService struct {
	scanner  domain.SourceScanner
	configs  domain.ConfigLoader
	findings domain.FindingStore
	runs     domain.RunStore
	git      domain.GitInfo
	logger   hclog.Logger
	now      func() time.Time
	newID    func() string
}

// Option customises an AnalyzeService.
type Option func(*AnalyzeService)

// WithGitInfo stamps runs with the repository revision.
func WithGitInfo(g domain.GitInfo) Option { return func(s *AnalyzeService) { s.git = g } }

// WithLogger sets the logger. The default discards output.
func WithLogger(l hclog.Logger) Option { return func(s *AnalyzeService) { s.logger = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *AnalyzeService) { s.now = now } }

// WithIDGenerator replaces the uuid run IDs.
func WithIDGenerator(f func() string) Option { return func(s *AnalyzeService) { s.newID = f } }

// NewAnalyzeService wires the orchestrator to its ports.
func NewAnalyzeService(
	scanner domain.SourceScanner,
	configs domain.ConfigLoader,
	findings domain.FindingStore,
	runs domain.RunStore,
	opts ...Option,
) *AnalyzeService {
	s := &AnalyzeService{
		scanner:  scanner,
		configs:  configs,
		findings: findings,
		runs:     runs,
		logger:   hclog.NewNullLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze executes one full run against projectPath. A failed run is recorded
// in history with its error and leaves the finding store untouched.
func (s *AnalyzeService) Analyze(ctx context.Context, projectPath string, opts AnalyzeOptions) (*Analysis, error) {
	root, err := resolveRoot(projectPath)
	if err != nil {
		return nil, err
	}

	// 0. Load config
	cfg, err := s.configs.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg = applyOptions(cfg, opts)

	// 1. Refuse concurrent runs; abandon stale ones
	if err := s.guard(root, cfg.StaleAfter); err != nil {
		return nil, err
	}

	// 2. Create and start the run
	run := domain.NewScanRun(s.newID(), root, cfg.Modules, cfg.IncludeRegistry, s.now())
	if s.git != nil {
		if rev, err := s.git.Revision(root); err != nil {
			s.logger.Debug("no revision info", "path", root, "error", err)
		} else {
			run.CommitHash, run.Branch = rev.Commit, rev.Branch
		}
	}
	if err := run.Start(s.now()); err != nil {
		return nil, err
	}
	if err := s.runs.SaveRun(root, *run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	log := s.logger.With("run", run.ID)
	log.Info("scan run started", "path", root, "modules", cfg.Modules)

	analysis, err := s.execute(ctx, root, cfg, run, log)
	if err != nil {
		return nil, s.fail(root, run, err, log)
	}
	log.Info("scan run completed",
		"health_score", analysis.Report.HealthScore,
		"critical", run.CriticalCount,
		"warnings", run.WarningCount,
		"new", run.FindingsNew,
		"recurring", run.FindingsRecurring,
	)
	return analysis, nil
}

// Inspect runs scanners, analyzers and the relationship mapper without
// touching run history or the finding store.
func (s *AnalyzeService) Inspect(ctx context.Context, projectPath string, opts AnalyzeOptions) (*FullResults, error) {
	root, err := resolveRoot(projectPath)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return s.pipeline(ctx, root, applyOptions(cfg, opts), s.logger)
}

// resolveRoot rejects a missing root before anything is written under it.
func resolveRoot(projectPath string) (string, error) {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidRoot, root)
	}
	return root, nil
}

func applyOptions(cfg domain.Config, opts AnalyzeOptions) domain.Config {
	if len(opts.Modules) > 0 {
		cfg.Modules = opts.Modules
	}
	if opts.IncludeRegistry {
		cfg.IncludeRegistry = true
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	return cfg
}

func (s *AnalyzeService) guard(root string, staleAfter time.Duration) error {
	runs, err := s.runs.ListRuns(root)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}
	now := s.now()
	for i := range runs {
		r := runs[i]
		if r.State.Terminal() {
			continue
		}
		if !r.Stale(now, staleAfter) {
			return fmt.Errorf("%w: run %s started %s", domain.ErrRunInProgress, r.ID, r.StartedAt.Format(time.RFC3339))
		}
		if err := r.Fail(errors.New("abandoned"), now); err != nil {
			return err
		}
		if err := s.runs.SaveRun(root, r); err != nil {
			return fmt.Errorf("abandoning run %s: %w", r.ID, err)
		}
		s.logger.Warn("abandoned stale scan run", "run", r.ID)
	}
	return nil
}

func (s *AnalyzeService) fail(root string, run *domain.ScanRun, cause error, log hclog.Logger) error {
	if err := run.Fail(cause, s.now()); err != nil {
		return errors.Join(cause, err)
	}
	log.Error("scan run failed", "error", cause)
	if err := s.runs.SaveRun(root, *run); err != nil {
		return errors.Join(cause, fmt.Errorf("recording failed run: %w", err))
	}
	return cause
}

func (s *AnalyzeService) execute(ctx context.Context, root string, cfg domain.Config, run *domain.ScanRun, log hclog.Logger) (*Analysis, error) {
	full, err := s.pipeline(ctx, root, cfg, log)
	if err != nil {
		return nil, err
	}

	// 5. Aggregate into the report
	report := buildReport(cfg, full, run, s.now())

	// 6. Persist: findings, the report carrying their stored state, then the
	// completed run
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}
	created, recurring, err := s.persistFindings(root, run.ID, report)
	if err != nil {
		return nil, err
	}
	if err := s.runs.SaveReport(root, report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	if err := run.Complete(report, s.now()); err != nil {
		return nil, err
	}
	run.FindingsNew, run.FindingsRecurring = created, recurring
	run.InfoCount = len(full.Info)
	if err := s.runs.SaveRun(root, *run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return &Analysis{Run: run, Report: report, Full: full}, nil
}

// pipeline runs the scan, analyzer and mapping phases. Each phase only starts
// once the previous one is fully materialized.
func (s *AnalyzeService) pipeline(ctx context.Context, root string, cfg domain.Config, log hclog.Logger) (*FullResults, error) {
	// 1. Scan
	started := s.now()
	ir, err := s.scanner.Scan(ctx, domain.ScanRequest{
		Root:            root,
		Modules:         cfg.Modules,
		ExcludePaths:    append([]string{cfg.StateDir}, cfg.ExcludePaths...),
		Workers:         cfg.Workers,
		IncludeRegistry: cfg.IncludeRegistry,
	})
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	log.Debug("phase finished", "phase", "scan",
		"files", len(ir.Sources), "errors", len(ir.Errors), "elapsed", s.now().Sub(started))

	// 2. Analyzers
	analyzers, err := detect.All(cfg, root)
	if err != nil {
		return nil, fmt.Errorf("configuring analyzers: %w", err)
	}
	results, err := runAnalyzers(ctx, ir, analyzers, cfg.Workers)
	if err != nil {
		return nil, err
	}
	for _, name := range sortedNames(results) {
		log.Debug("phase finished", "phase", "analyze", "analyzer", name, "findings", len(results[name].Findings))
	}

	// 3. Relationship map
	rel := relations.Build(ir)
	log.Debug("phase finished", "phase", "relations", "edges", len(rel.Edges), "cycles", len(rel.Cycles))

	// 4. Split out info findings
	var info []domain.Finding
	for _, name := range sortedNames(results) {
		for _, f := range results[name].Findings {
			if f.Severity == domain.SeverityInfo {
				info = append(info, f)
			}
		}
	}
	info = append(info, rel.CycleFindings()...)
	domain.SortFindings(info)

	return &FullResults{IR: ir, Analyzers: results, Relations: rel, Info: info}, nil
}

// runAnalyzers fans the analyzers out over the frozen IR. An analyzer error or
// panic fails the whole phase; findings are never silently dropped.
func runAnalyzers(ctx context.Context, ir *domain.IR, analyzers []detect.Analyzer, workers int) (map[string]*detect.Result, error) {
	p := pool.NewWithResults[*detect.Result]().WithErrors()
	if workers > 0 {
		p = p.WithMaxGoroutines(workers)
	}
	for _, a := range analyzers {
		p.Go(func() (*detect.Result, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("scan aborted: %w", err)
			}
			var (
				res *detect.Result
				err error
			)
			if r := panics.Try(func() { res, err = a.Analyze(ir) }); r != nil {
				return nil, fmt.Errorf("analyzer %s panicked: %w", a.Name(), r.AsError())
			}
			if err != nil {
				return nil, fmt.Errorf("analyzer %s: %w", a.Name(), err)
			}
			return res, nil
		})
	}
	list, err := p.Wait()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*detect.Result, len(list))
	for _, r := range list {
		out[r.Analyzer] = r
	}
	return out, nil
}

// persistFindings upserts the report's critical, warning and recommendation
// findings. Candidates sharing a fingerprint are merged first so each one
// advances occurrence_count once per run. Report findings are replaced by the
// stored records so they carry triage state.
func (s *AnalyzeService) persistFindings(root, runID string, report *domain.Report) (created, recurring int, err error) {
	set, err := s.findings.Load(root)
	if err != nil {
		return 0, 0, fmt.Errorf("loading findings: %w", err)
	}
	now := s.now()
	stored := make(map[string]domain.Finding)
	upsert := func(candidates []domain.Finding) []domain.Finding {
		out := make([]domain.Finding, 0, len(candidates))
		for _, c := range candidates {
			if prev, ok := stored[c.Fingerprint]; ok {
				out = append(out, prev)
				continue
			}
			res := set.FindOrCreate(runID, c, now)
			if res.Created {
				created++
			} else {
				recurring++
			}
			stored[c.Fingerprint] = res.Finding
			out = append(out, res.Finding)
		}
		return out
	}

	report.CriticalIssues = upsert(report.CriticalIssues)
	report.Warnings = upsert(report.Warnings)
	recs := make([]domain.Finding, len(report.Recommendations))
	for i, r := range report.Recommendations {
		recs[i] = r.AsFinding()
	}
	upsert(recs)

	if err := s.findings.Save(root, set); err != nil {
		return 0, 0, fmt.Errorf("saving findings: %w", err)
	}
	return created, recurring, nil
}

func sortedNames(m map[string]*detect.Result) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
