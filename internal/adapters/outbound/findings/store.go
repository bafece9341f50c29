// Package findings persists the fingerprint-keyed finding set as JSON.
package findings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openkraft/ecoscan/internal/domain"
)

const fileName = "findings.json"

// Store is a file-based implementation of domain.FindingStore.
type Store struct {
	stateDir string
}

// New returns a store writing under stateDir. A relative stateDir is
// resolved against the project path on every call.
func New(stateDir string) *Store {
	if stateDir == "" {
		stateDir = domain.DefaultConfig().StateDir
	}
	return &Store{stateDir: stateDir}
}

// Load reads the finding set. A missing file yields an empty set.
func (s *Store) Load(projectPath string) (*domain.FindingSet, error) {
	data, err := os.ReadFile(s.path(projectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewFindingSet(), nil
		}
		return nil, fmt.Errorf("reading findings: %w", err)
	}

	set := domain.NewFindingSet()
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("decoding findings: %w", err)
	}
	if set.Findings == nil {
		set.Findings = make(map[string]*domain.Finding)
	}
	return set, nil
}

// Save replaces the stored set. The file is written to a temporary name and
// renamed so readers never observe a partial set.
func (s *Store) Save(projectPath string, set *domain.FindingSet) error {
	fp := s.path(projectPath)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp), fileName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fp)
}

func (s *Store) path(projectPath string) string {
	if filepath.IsAbs(s.stateDir) {
		return filepath.Join(s.stateDir, fileName)
	}
	return filepath.Join(projectPath, s.stateDir, fileName)
}
