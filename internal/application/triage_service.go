package application

import (
	"fmt"
	"time"

	"github.com/openkraft/ecoscan/internal/domain"
)

// TriageService lists persisted findings and records human decisions on them.
type TriageService struct {
	store domain.FindingStore
	now   func() time.Time
}

func NewTriageService(store domain.FindingStore) *TriageService {
	return &TriageService{store: store, now: time.Now}
}

// List returns the stored findings matching filter, critical first.
func (s *TriageService) List(projectPath string, filter domain.FindingFilter) ([]domain.Finding, error) {
	set, err := s.store.Load(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading findings: %w", err)
	}
	return set.List(filter), nil
}

// Get looks a finding up by fingerprint or unique prefix.
func (s *TriageService) Get(projectPath, fingerprint string) (domain.Finding, error) {
	set, err := s.store.Load(projectPath)
	if err != nil {
		return domain.Finding{}, fmt.Errorf("loading findings: %w", err)
	}
	return set.Get(fingerprint)
}

// SetStatus moves a finding to status and saves the store. Re-detection never
// undoes the decision.
func (s *TriageService) SetStatus(projectPath, fingerprint string, status domain.Status, note string) (domain.Finding, error) {
	set, err := s.store.Load(projectPath)
	if err != nil {
		return domain.Finding{}, fmt.Errorf("loading findings: %w", err)
	}
	f, err := set.Get(fingerprint)
	if err != nil {
		return domain.Finding{}, err
	}
	updated, err := set.SetStatus(f.Fingerprint, status, note, s.now())
	if err != nil {
		return domain.Finding{}, err
	}
	if err := s.store.Save(projectPath, set); err != nil {
		return domain.Finding{}, fmt.Errorf("saving findings: %w", err)
	}
	return updated, nil
}
