// Package registry provides domain.EntityDirectory implementations that do
// not need a live host session: an exported snapshot file and a null
// directory.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openkraft/ecoscan/internal/domain"
)

// snapshotFile is the on-disk format of an exported registry.
type snapshotFile struct {
	Entities []domain.RegistryEntity `json:"entities" yaml:"entities"`
	Views    []string                `json:"views"    yaml:"views"`
	Actions  []string                `json:"actions"  yaml:"actions"`
	Menus    []string                `json:"menus"    yaml:"menus"`
	Modules  []string                `json:"modules"  yaml:"modules"`
}

// Snapshot serves a registry exported from a running instance. JSON and
// YAML files are accepted, chosen by extension.
type Snapshot struct {
	data   snapshotFile
	fields map[string][]string
}

// LoadSnapshot reads path. Read and decode failures wrap
// domain.ErrRegistryUnavailable.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	var data snapshotFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrRegistryUnavailable, path, err)
	}

	s := &Snapshot{data: data, fields: make(map[string][]string, len(data.Entities))}
	for _, e := range data.Entities {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: %s: entity without name", domain.ErrRegistryUnavailable, path)
		}
		s.fields[e.Name] = e.Fields
	}
	return s, nil
}

func (s *Snapshot) ListEntities(context.Context) ([]domain.RegistryEntity, error) {
	out := append([]domain.RegistryEntity(nil), s.data.Entities...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Snapshot) FieldsOf(_ context.Context, entity string) ([]string, error) {
	fields, ok := s.fields[entity]
	if !ok {
		return nil, fmt.Errorf("entity %q not in snapshot", entity)
	}
	return fields, nil
}

func (s *Snapshot) ListViews(context.Context) ([]string, error)   { return s.data.Views, nil }
func (s *Snapshot) ListActions(context.Context) ([]string, error) { return s.data.Actions, nil }
func (s *Snapshot) ListMenus(context.Context) ([]string, error)   { return s.data.Menus, nil }

func (s *Snapshot) ListInstalledModules(context.Context) ([]string, error) {
	return s.data.Modules, nil
}

// Null is the directory used when no live session exists. Every call fails
// with domain.ErrRegistryUnavailable.
type Null struct{}

func (Null) ListEntities(context.Context) ([]domain.RegistryEntity, error) {
	return nil, domain.ErrRegistryUnavailable
}

func (Null) FieldsOf(context.Context, string) ([]string, error) {
	return nil, domain.ErrRegistryUnavailable
}

func (Null) ListViews(context.Context) ([]string, error)   { return nil, domain.ErrRegistryUnavailable }
func (Null) ListActions(context.Context) ([]string, error) { return nil, domain.ErrRegistryUnavailable }
func (Null) ListMenus(context.Context) ([]string, error)   { return nil, domain.ErrRegistryUnavailable }

func (Null) ListInstalledModules(context.Context) ([]string, error) {
	return nil, domain.ErrRegistryUnavailable
}
