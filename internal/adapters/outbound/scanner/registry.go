package scanner

import (
	"context"
	"fmt"

	"github.com/openkraft/ecoscan/internal/domain"
)

// loadRegistry snapshots the live registry. A missing directory or a failed
// listing is fatal; a failed per-entity field lookup is recorded and the
// entity is kept without fields.
func loadRegistry(ctx context.Context, dir domain.EntityDirectory) (*domain.RegistrySnapshot, []domain.ParseError, error) {
	if dir == nil {
		return nil, nil, fmt.Errorf("%w: no registry configured", domain.ErrRegistryUnavailable)
	}
	unavailable := func(what string, err error) error {
		return fmt.Errorf("%w: listing %s: %v", domain.ErrRegistryUnavailable, what, err)
	}

	entities, err := dir.ListEntities(ctx)
	if err != nil {
		return nil, nil, unavailable("entities", err)
	}
	snap := &domain.RegistrySnapshot{
		Entities: make(map[string]domain.RegistryEntity, len(entities)),
		Views:    make(map[string]bool),
		Actions:  make(map[string]bool),
		Menus:    make(map[string]bool),
	}

	var errs []domain.ParseError
	for _, e := range entities {
		if len(e.Fields) == 0 {
			fields, err := dir.FieldsOf(ctx, e.Name)
			if err != nil {
				errs = append(errs, domain.ParseError{
					File:    e.Name,
					Scanner: domain.ScannerRegistry,
					Message: fmt.Sprintf("listing fields: %v", err),
				})
			}
			e.Fields = fields
		}
		snap.Entities[e.Name] = e
	}

	for _, list := range []struct {
		what string
		fn   func(context.Context) ([]string, error)
		into map[string]bool
	}{
		{"views", dir.ListViews, snap.Views},
		{"actions", dir.ListActions, snap.Actions},
		{"menus", dir.ListMenus, snap.Menus},
	} {
		ids, err := list.fn(ctx)
		if err != nil {
			return nil, nil, unavailable(list.what, err)
		}
		for _, id := range ids {
			list.into[id] = true
		}
	}

	modules, err := dir.ListInstalledModules(ctx)
	if err != nil {
		return nil, nil, unavailable("modules", err)
	}
	snap.Modules = modules
	return snap, errs, nil
}
