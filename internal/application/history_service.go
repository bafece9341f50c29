package application

import (
	"fmt"

	"github.com/openkraft/ecoscan/internal/domain"
)

// HistoryService answers questions about past runs.
type HistoryService struct {
	runs domain.RunStore
}

func NewHistoryService(runs domain.RunStore) *HistoryService {
	return &HistoryService{runs: runs}
}

// Runs returns up to limit runs, newest first. limit <= 0 returns all.
func (s *HistoryService) Runs(projectPath string, limit int) ([]domain.ScanRun, error) {
	runs, err := s.runs.ListRuns(projectPath)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	out := make([]domain.ScanRun, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LastReport returns the report of the most recent completed run, which stays
// the last-known-good report when later runs fail.
func (s *HistoryService) LastReport(projectPath string) (*domain.Report, error) {
	runs, err := s.Runs(projectPath, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.State == domain.RunCompleted {
			return s.runs.LoadReport(projectPath, r.ID)
		}
	}
	return nil, domain.ErrNoCompletedRun
}

// Report returns the stored report of runID.
func (s *HistoryService) Report(projectPath, runID string) (*domain.Report, error) {
	return s.runs.LoadReport(projectPath, runID)
}
