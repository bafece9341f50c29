package domain

import "context"

// Scanner names used in ParseError.Scanner and statistics.
const (
	ScannerCode     = "code"
	ScannerRecords  = "records"
	ScannerAssets   = "assets"
	ScannerRegistry = "registry"
)

// ScanRequest describes what to scan.
type ScanRequest struct {
	Root         string
	Modules      []string
	ExcludePaths []string
	Workers      int
	// IncludeRegistry asks for the live-registry phase. The scan fails with
	// ErrRegistryUnavailable when no directory is configured or reachable.
	IncludeRegistry bool
}

// SourceScanner turns a source tree into an IR. Per-file failures are
// recorded in IR.Errors and never returned.
type SourceScanner interface {
	Scan(ctx context.Context, req ScanRequest) (*IR, error)
}

// EntityDirectory is a read-only view of a running host instance.
type EntityDirectory interface {
	ListEntities(ctx context.Context) ([]RegistryEntity, error)
	FieldsOf(ctx context.Context, entity string) ([]string, error)
	ListViews(ctx context.Context) ([]string, error)
	ListActions(ctx context.Context) ([]string, error)
	ListMenus(ctx context.Context) ([]string, error)
	ListInstalledModules(ctx context.Context) ([]string, error)
}

// FindingStore persists the fingerprint-keyed finding set.
type FindingStore interface {
	Load(projectPath string) (*FindingSet, error)
	Save(projectPath string, set *FindingSet) error
}

// RunStore persists ScanRun history and per-run reports.
type RunStore interface {
	SaveRun(projectPath string, run ScanRun) error
	ListRuns(projectPath string) ([]ScanRun, error)
	SaveReport(projectPath string, report *Report) error
	LoadReport(projectPath, runID string) (*Report, error)
}

// ConfigLoader reads project configuration.
type ConfigLoader interface {
	Load(projectPath string) (Config, error)
}

// Revision identifies the commit a scan ran against.
type Revision struct {
	Commit string
	Branch string
}

// GitInfo reads the revision of the repository holding a path.
type GitInfo interface {
	Revision(projectPath string) (Revision, error)
}
