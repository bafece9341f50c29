// Package history persists ScanRun records and the report of each
// completed run.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openkraft/ecoscan/internal/domain"
)

const (
	runsFile   = "runs.json"
	reportsDir = "reports"
)

// FileHistory implements domain.RunStore using JSON files.
type FileHistory struct {
	stateDir string
}

func New(stateDir string) *FileHistory {
	if stateDir == "" {
		stateDir = domain.DefaultConfig().StateDir
	}
	return &FileHistory{stateDir: stateDir}
}

// SaveRun inserts the run or replaces the stored run with the same ID.
func (h *FileHistory) SaveRun(projectPath string, run domain.ScanRun) error {
	runs, err := h.ListRuns(projectPath)
	if err != nil {
		return err
	}

	replaced := false
	for i := range runs {
		if runs[i].ID == run.ID {
			runs[i] = run
			replaced = true
			break
		}
	}
	if !replaced {
		runs = append(runs, run)
	}
	return writeJSON(filepath.Join(h.dir(projectPath), runsFile), runs)
}

// ListRuns returns every run, oldest first.
func (h *FileHistory) ListRuns(projectPath string) ([]domain.ScanRun, error) {
	data, err := os.ReadFile(filepath.Join(h.dir(projectPath), runsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run history: %w", err)
	}

	var runs []domain.ScanRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("decoding run history: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

func (h *FileHistory) SaveReport(projectPath string, report *domain.Report) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run id")
	}
	return writeJSON(h.reportPath(projectPath, report.RunID), report)
}

// LoadReport returns the stored report of a run, or ErrNoCompletedRun when
// the run never completed.
func (h *FileHistory) LoadReport(projectPath, runID string) (*domain.Report, error) {
	data, err := os.ReadFile(h.reportPath(projectPath, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no report for run %s", domain.ErrNoCompletedRun, runID)
		}
		return nil, err
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", runID, err)
	}
	return &report, nil
}

func (h *FileHistory) dir(projectPath string) string {
	if filepath.IsAbs(h.stateDir) {
		return h.stateDir
	}
	return filepath.Join(projectPath, h.stateDir)
}

func (h *FileHistory) reportPath(projectPath, runID string) string {
	return filepath.Join(h.dir(projectPath), reportsDir, filepath.Base(runID)+".json")
}

func writeJSON(fp string, v any) error {
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := fp + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fp)
}
