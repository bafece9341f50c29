// Package relations maps entities to the views, actions and menus that expose
// them, and builds the entity dependency graph with its cycles.
package relations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

// EdgeKind labels a RelationshipEdge.
type EdgeKind string

const (
	EdgeInherits      EdgeKind = "inherits"
	EdgeHasView       EdgeKind = "has_view"
	EdgeHasAction     EdgeKind = "has_action"
	EdgeHasMenu       EdgeKind = "has_menu"
	EdgeFieldRelation EdgeKind = "field_relation"
	EdgeImports       EdgeKind = "imports"
)

// Edge is a directed relationship between two named nodes.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// ViewRef is a view bound to an entity.
type ViewRef struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	InheritsRef string `json:"inherits_ref,omitempty"`
	File        string `json:"file"`
	Priority    string `json:"priority,omitempty"`
}

// ActionRef is an action bound to an entity.
type ActionRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
	File string `json:"file"`
}

// MenuRef is a menu entry opening an action.
type MenuRef struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Parent    string `json:"parent,omitempty"`
	Sequence  string `json:"sequence,omitempty"`
	ViaAction string `json:"via_action,omitempty"`
}

// Parent is one inheritance link of an entity.
type Parent struct {
	Entity string `json:"entity"`
	// Kind is "inherit" for declarative extension, "class_base" for a
	// structural base class.
	Kind string `json:"kind"`
}

// Relation is a relational field between two entities.
type Relation struct {
	Field   string `json:"field"`
	Type    string `json:"type"`
	Target  string `json:"target"`
	Inverse string `json:"inverse,omitempty"`
}

// ViewParent is the extension target of an inherited view.
type ViewParent struct {
	Parent string `json:"parent"`
	Entity string `json:"entity,omitempty"`
}

// Trace follows one entity through its UI.
type Trace struct {
	Entity    string      `json:"entity"`
	File      string      `json:"file"`
	ClassName string      `json:"class_name,omitempty"`
	Views     []ViewRef   `json:"views"`
	Actions   []ActionRef `json:"actions"`
	Menus     []MenuRef   `json:"menus"`
	// Complete requires at least one view, one action and one menu.
	Complete bool `json:"complete"`
}

// Map holds every relationship derived from one IR. It is read-only once
// Build returns.
type Map struct {
	ModelViews      map[string][]ViewRef   `json:"model_to_views"`
	ModelActions    map[string][]ActionRef `json:"model_to_actions"`
	ModelMenus      map[string][]MenuRef   `json:"model_to_menus"`
	ActionMenus     map[string][]MenuRef   `json:"action_to_menus"`
	Inheritance     map[string][]Parent    `json:"model_inheritance"`
	Relations       map[string][]Relation  `json:"model_relations"`
	ViewInheritance map[string]ViewParent  `json:"view_inheritance"`
	ModuleDeps      map[string][]string    `json:"module_dependencies"`
	Traces          []Trace                `json:"full_traces"`
	Edges           []Edge                 `json:"edges"`
	Cycles          [][]string             `json:"cycles"`
	Summary         domain.RelationStats   `json:"summary"`
}

// Framework base classes that carry no entity relationship.
var frameworkBases = map[string]bool{
	"models.Model": true, "models.TransientModel": true, "models.AbstractModel": true,
	"Model": true, "TransientModel": true, "AbstractModel": true,
}

// Build maps the relationships of ir.
func Build(ir *domain.IR) *Map {
	m := &Map{
		ModelViews:      make(map[string][]ViewRef),
		ModelActions:    make(map[string][]ActionRef),
		ModelMenus:      make(map[string][]MenuRef),
		ActionMenus:     make(map[string][]MenuRef),
		Inheritance:     make(map[string][]Parent),
		Relations:       make(map[string][]Relation),
		ViewInheritance: make(map[string]ViewParent),
		ModuleDeps:      make(map[string][]string),
	}
	m.mapViews(ir)
	m.mapActions(ir)
	m.mapMenus(ir)
	m.mapModels(ir)
	m.buildTraces(ir)
	for _, mod := range ir.Modules {
		if len(mod.Depends) > 0 {
			m.ModuleDeps[mod.Name] = append([]string(nil), mod.Depends...)
		}
	}
	m.buildEdges()
	m.Cycles = DetectCycles(m.dependencyGraph())
	m.summarize()
	return m
}

func (m *Map) mapViews(ir *domain.IR) {
	for _, v := range ir.UIOf(domain.ArtifactView) {
		id := v.QualifiedID()
		if v.BoundEntity != "" {
			m.ModelViews[v.BoundEntity] = append(m.ModelViews[v.BoundEntity], ViewRef{
				ID:          id,
				Type:        v.ViewType,
				InheritsRef: v.InheritsRef,
				File:        v.File,
				Priority:    v.Priority,
			})
		}
		if v.InheritsRef != "" {
			m.ViewInheritance[id] = ViewParent{
				Parent: domain.QualifyRef(v.Module, v.InheritsRef),
				Entity: v.BoundEntity,
			}
		}
	}
}

func (m *Map) mapActions(ir *domain.IR) {
	for _, a := range ir.UIOf(domain.ArtifactAction) {
		if a.BoundEntity == "" {
			continue
		}
		m.ModelActions[a.BoundEntity] = append(m.ModelActions[a.BoundEntity], ActionRef{
			ID:   a.QualifiedID(),
			Kind: a.ActionKind,
			File: a.File,
		})
	}
}

// mapMenus links menus to actions, then to entities through the action's
// bound entity.
func (m *Map) mapMenus(ir *domain.IR) {
	for _, menu := range ir.UIOf(domain.ArtifactMenu) {
		if menu.ActionRef == "" {
			continue
		}
		action := domain.QualifyRef(menu.Module, menu.ActionRef)
		m.ActionMenus[action] = append(m.ActionMenus[action], MenuRef{
			ID:       menu.QualifiedID(),
			Name:     menu.Name,
			Parent:   domain.QualifyRef(menu.Module, menu.ParentRef),
			Sequence: menu.Sequence,
		})
	}

	entityOf := make(map[string]string)
	for _, a := range ir.UIOf(domain.ArtifactAction) {
		if a.BoundEntity != "" {
			entityOf[a.QualifiedID()] = a.BoundEntity
		}
	}
	for _, action := range sortedKeys(m.ActionMenus) {
		entity, ok := entityOf[action]
		if !ok {
			continue
		}
		for _, menu := range m.ActionMenus[action] {
			menu.ViaAction = action
			m.ModelMenus[entity] = append(m.ModelMenus[entity], menu)
		}
	}
}

func (m *Map) mapModels(ir *domain.IR) {
	for _, e := range ir.Models() {
		name := e.QualifiedName
		if name == "" {
			continue
		}
		for _, in := range e.Inherits {
			if in != name {
				m.Inheritance[name] = appendParent(m.Inheritance[name], Parent{Entity: in, Kind: "inherit"})
			}
		}
		for _, b := range e.Bases {
			if !frameworkBases[b] {
				m.Inheritance[name] = appendParent(m.Inheritance[name], Parent{Entity: b, Kind: "class_base"})
			}
		}
		for _, f := range e.Fields {
			if !f.Relational() || f.Target == "" {
				continue
			}
			m.Relations[name] = append(m.Relations[name], Relation{
				Field:   f.Name,
				Type:    f.Type,
				Target:  f.Target,
				Inverse: f.Inverse,
			})
		}
	}
}

func appendParent(ps []Parent, p Parent) []Parent {
	for _, existing := range ps {
		if existing == p {
			return ps
		}
	}
	return append(ps, p)
}

// buildTraces records one trace per entity that has any UI.
func (m *Map) buildTraces(ir *domain.IR) {
	seen := make(map[string]bool)
	for _, e := range ir.Models() {
		name := e.QualifiedName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		t := Trace{
			Entity:    name,
			File:      e.File,
			ClassName: e.ClassName,
			Views:     m.ModelViews[name],
			Actions:   m.ModelActions[name],
			Menus:     m.ModelMenus[name],
		}
		if len(t.Views)+len(t.Actions)+len(t.Menus) == 0 {
			continue
		}
		t.Complete = len(t.Views) > 0 && len(t.Actions) > 0 && len(t.Menus) > 0
		m.Traces = append(m.Traces, t)
	}
	sort.Slice(m.Traces, func(i, j int) bool { return m.Traces[i].Entity < m.Traces[j].Entity })
}

func (m *Map) buildEdges() {
	seen := make(map[Edge]bool)
	add := func(src, dst string, kind EdgeKind) {
		e := Edge{Source: src, Target: dst, Kind: kind}
		if !seen[e] {
			seen[e] = true
			m.Edges = append(m.Edges, e)
		}
	}
	for entity, parents := range m.Inheritance {
		for _, p := range parents {
			add(entity, p.Entity, EdgeInherits)
		}
	}
	for entity, views := range m.ModelViews {
		for _, v := range views {
			add(entity, v.ID, EdgeHasView)
		}
	}
	for entity, actions := range m.ModelActions {
		for _, a := range actions {
			add(entity, a.ID, EdgeHasAction)
		}
	}
	for entity, menus := range m.ModelMenus {
		for _, mn := range menus {
			add(entity, mn.ID, EdgeHasMenu)
		}
	}
	for entity, rels := range m.Relations {
		for _, r := range rels {
			add(entity, r.Target, EdgeFieldRelation)
		}
	}
	for mod, deps := range m.ModuleDeps {
		for _, d := range deps {
			add(mod, d, EdgeImports)
		}
	}
	sort.Slice(m.Edges, func(i, j int) bool {
		a, b := m.Edges[i], m.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Target < b.Target
	})
}

// dependencyGraph is the entity adjacency map: relational targets and
// inheritance parents. Self references are hierarchies, not cycles.
func (m *Map) dependencyGraph() map[string][]string {
	adj := make(map[string][]string)
	for entity, rels := range m.Relations {
		for _, r := range rels {
			if r.Target != entity {
				adj[entity] = append(adj[entity], r.Target)
			}
		}
	}
	for entity, parents := range m.Inheritance {
		for _, p := range parents {
			if p.Entity != entity {
				adj[entity] = append(adj[entity], p.Entity)
			}
		}
	}
	return adj
}

func (m *Map) summarize() {
	s := domain.RelationStats{
		ModelsWithViews:   len(m.ModelViews),
		ModelsWithActions: len(m.ModelActions),
		ModelsWithMenus:   len(m.ModelMenus),
		InheritanceChains: len(m.Inheritance),
		Relations:         len(m.Relations),
		Edges:             len(m.Edges),
		Cycles:            len(m.Cycles),
	}
	for _, t := range m.Traces {
		if t.Complete {
			s.CompleteTraces++
		} else {
			s.IncompleteTraces++
		}
	}
	m.Summary = s
}

// Trace returns the UI trace of entity.
func (m *Map) Trace(entity string) (Trace, bool) {
	for _, t := range m.Traces {
		if t.Entity == entity {
			return t, true
		}
	}
	return Trace{}, false
}

// RelatedEntities returns entities linked to entity by a relational field,
// by inheritance in either direction.
func (m *Map) RelatedEntities(entity string) []string {
	related := make(map[string]bool)
	for _, r := range m.Relations[entity] {
		related[r.Target] = true
	}
	for _, p := range m.Inheritance[entity] {
		related[p.Entity] = true
	}
	for child, parents := range m.Inheritance {
		for _, p := range parents {
			if p.Entity == entity {
				related[child] = true
			}
		}
	}
	delete(related, entity)
	return sortedKeys(related)
}

// ViewChain returns view followed by its ancestors, stopping at the first
// repeated id.
func (m *Map) ViewChain(view string) []string {
	chain := []string{view}
	seen := map[string]bool{view: true}
	cur := view
	for {
		p, ok := m.ViewInheritance[cur]
		if !ok || seen[p.Parent] {
			return chain
		}
		chain = append(chain, p.Parent)
		seen[p.Parent] = true
		cur = p.Parent
	}
}

// CycleFindings reports each dependency cycle as an info finding.
func (m *Map) CycleFindings() []domain.Finding {
	out := make([]domain.Finding, 0, len(m.Cycles))
	for _, c := range m.Cycles {
		path := strings.Join(append(append([]string(nil), c...), c[0]), " -> ")
		out = append(out, domain.Finding{
			Severity:       domain.SeverityInfo,
			Category:       domain.CategoryArchitecture,
			Type:           "circular_dependency",
			Title:          fmt.Sprintf("Circular dependency: %s", path),
			Recommendation: "Break the cycle by moving the shared fields into a mixin or dropping one direction of the relation.",
			Details: domain.Details{
				Entity:     c[0],
				ArtifactID: strings.Join(c, "->"),
				Data:       map[string]any{"cycle": c},
			},
		}.WithFingerprint())
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
