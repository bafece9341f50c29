package detect

import (
	"fmt"
	"path"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Files loaded through manifest hooks rather than package imports.
var hookFiles = setOf("hooks", "post_install", "pre_init")

// Directories of standalone scripts that are never imported.
var standaloneDirs = setOf("scripts", "tools", "utils", "migrations", "upgrades")

var systemFields = setOf(
	"id", "create_date", "create_uid", "write_date", "write_uid",
	"display_name", "__last_update", "active",
)

var mixinFields = setOf(
	// mail.thread
	"message_ids", "message_follower_ids", "message_partner_ids",
	"message_channel_ids", "message_attachment_count", "message_has_error",
	"message_has_sms_error", "message_needaction", "message_needaction_counter",
	"message_unread", "message_unread_counter", "message_main_attachment_id",
	"email_from", "email_cc", "message_bounce", "message_is_follower",
	// mail.activity.mixin
	"activity_ids", "activity_state", "activity_user_id", "activity_type_id",
	"activity_type_icon", "activity_date_deadline", "activity_summary",
	"activity_exception_decoration", "activity_exception_icon", "my_activity_date_deadline",
	// common relational shortcuts
	"user_id", "company_id", "currency_id", "partner_id", "parent_id",
	// computed or related values missing from static scans
	"message_count", "conversation_type", "name", "display_name_computed",
)

// Host-framework entities that are never part of the scanned tree.
var wellKnownEntities = setOf(
	"res.config.settings", "res.users", "res.partner", "res.company",
	"res.country", "res.currency", "res.groups",
	"account.move", "account.move.line", "account.account", "account.journal",
	"account.payment", "account.tax",
	"mail.thread", "mail.activity.mixin", "mail.message",
	"product.product", "product.template",
	"sale.order", "sale.order.line", "purchase.order",
	"stock.picking", "stock.move", "crm.lead", "hr.employee",
	"ir.ui.view", "ir.ui.menu", "ir.actions.act_window", "ir.model",
	"ir.model.fields", "ir.attachment", "ir.cron", "ir.config_parameter",
	"ir.rule", "ir.sequence",
)

// Orphan finds unreferenced artifacts and references to things that do not exist.
type Orphan struct{}

// NewOrphan creates the orphan analyzer.
func NewOrphan() *Orphan { return &Orphan{} }

func (o *Orphan) Name() string { return NameOrphan }

func (o *Orphan) Analyze(ir *domain.IR) (*Result, error) {
	idx := newArtifactIndex(ir)
	var fs []domain.Finding
	fs = append(fs, orphanedCodeFiles(ir)...)
	fs = append(fs, orphanedModels(ir)...)
	fs = append(fs, orphanedViews(ir, idx)...)
	fs = append(fs, orphanedActions(ir)...)
	fs = append(fs, orphanedMenus(ir, idx)...)
	fs = append(fs, danglingFieldRefs(ir)...)
	fs = append(fs, danglingModelRefs(ir)...)
	fs = append(fs, orphanedAssets(ir)...)
	fs = append(fs, missingDependencies(ir)...)
	return newResult(NameOrphan, fs), nil
}

// artifactIndex holds the qualified ids of every known UI artifact.
type artifactIndex struct {
	views, actions, menus map[string]bool
}

func newArtifactIndex(ir *domain.IR) artifactIndex {
	idx := artifactIndex{views: map[string]bool{}, actions: map[string]bool{}, menus: map[string]bool{}}
	for _, a := range ir.UI {
		switch a.Type {
		case domain.ArtifactView, domain.ArtifactTemplate:
			idx.views[a.QualifiedID()] = true
		case domain.ArtifactAction:
			idx.actions[a.QualifiedID()] = true
		case domain.ArtifactMenu:
			idx.menus[a.QualifiedID()] = true
		}
	}
	if r := ir.Registry; r != nil {
		for id := range r.Views {
			idx.views[id] = true
		}
		for id := range r.Actions {
			idx.actions[id] = true
		}
		for id := range r.Menus {
			idx.menus[id] = true
		}
	}
	return idx
}

// refKind classifies an unresolved reference from module.
func refKind(module, ref string) string {
	if i := strings.IndexByte(ref, '.'); i > 0 && ref[:i] != module {
		return "external"
	}
	return "missing"
}

func orphanedCodeFiles(ir *domain.IR) []domain.Finding {
	files := make(map[string]bool)
	for _, e := range ir.Elements {
		files[e.File] = true
	}

	var out []domain.Finding
	for _, file := range sortedKeys(files) {
		if path.Base(file) == "__init__.py" || !strings.HasSuffix(file, ".py") {
			continue
		}
		dir := path.Dir(file)
		if dir == "." {
			continue
		}
		stem := strings.TrimSuffix(path.Base(file), ".py")
		if hookFiles[stem] || stem == "__manifest__" || standaloneDirs[path.Base(dir)] {
			continue
		}
		if containsString(ir.InitImports[dir], stem) || reexported(ir.InitImports, dir, stem) {
			continue
		}
		out = append(out, domain.Finding{
			Severity:       domain.SeverityWarning,
			Category:       domain.CategoryOrphan,
			Type:           "orphaned_python_files",
			Title:          fmt.Sprintf("%s is never imported", file),
			Recommendation: fmt.Sprintf("Add 'from . import %s' to %s/__init__.py or remove the file.", stem, dir),
			Details: domain.Details{
				File:   file,
				Entity: stem,
				Data:   map[string]any{"module_name": stem, "parent_dir": dir},
			},
		})
	}
	return out
}

// reexported reports whether an ancestor package of dir imports stem while
// that ancestor is itself loaded. The module root is always loaded.
func reexported(imports map[string][]string, dir, stem string) bool {
	if !strings.Contains(dir, "/") {
		return false
	}
	for cur := path.Dir(dir); ; cur = path.Dir(cur) {
		root := !strings.Contains(cur, "/")
		loaded := root || containsString(imports[path.Dir(cur)], path.Base(cur))
		if loaded && containsString(imports[cur], stem) {
			return true
		}
		if root {
			return false
		}
	}
}

func orphanedModels(ir *domain.IR) []domain.Finding {
	bound := make(map[string]bool)
	for _, a := range ir.UI {
		if (a.Type == domain.ArtifactView || a.Type == domain.ArtifactAction) && a.BoundEntity != "" {
			bound[a.BoundEntity] = true
		}
	}

	seen := make(map[string]bool)
	var out []domain.Finding
	for _, m := range ir.Models() {
		name := m.QualifiedName
		if name == "" || seen[name] || m.Abstract || m.Transient {
			continue
		}
		seen[name] = true
		if bound[name] {
			continue
		}
		out = append(out, domain.Finding{
			Severity:    domain.SeverityInfo,
			Category:    domain.CategoryOrphan,
			Type:        "orphaned_models",
			Title:       fmt.Sprintf("Model %s has no view and no action", name),
			Description: "May be intentional for technical models.",
			Details:     domain.Details{File: m.File, Entity: name, Line: m.Lines.Start},
		})
	}
	return out
}

func orphanedViews(ir *domain.IR, idx artifactIndex) []domain.Finding {
	var out []domain.Finding
	for _, v := range ir.UIOf(domain.ArtifactView) {
		if v.InheritsRef == "" || idx.views[domain.QualifyRef(v.Module, v.InheritsRef)] {
			continue
		}
		sev := domain.SeverityCritical
		desc := "The parent view does not exist."
		if refKind(v.Module, v.InheritsRef) == "external" {
			sev = domain.SeverityInfo
			desc = "The parent view lives in another module and cannot be verified statically."
		}
		out = append(out, domain.Finding{
			Severity:    sev,
			Category:    domain.CategoryOrphan,
			Type:        "orphaned_views",
			Title:       fmt.Sprintf("View %s extends unknown view %s", v.ExternalID, v.InheritsRef),
			Description: desc,
			Details: domain.Details{
				File:       v.File,
				Entity:     v.BoundEntity,
				ArtifactID: v.ExternalID,
				Line:       v.Line,
				Data:       map[string]any{"inherit_id": v.InheritsRef},
			},
		})
	}
	return out
}

func orphanedActions(ir *domain.IR) []domain.Finding {
	referenced := make(map[string]bool)
	for _, m := range ir.UIOf(domain.ArtifactMenu) {
		if m.ActionRef != "" {
			referenced[domain.QualifyRef(m.Module, m.ActionRef)] = true
		}
	}

	var out []domain.Finding
	for _, a := range ir.UIOf(domain.ArtifactAction) {
		if strings.Contains(a.ActionKind, "report") || strings.Contains(a.ActionKind, "server") {
			continue
		}
		if referenced[a.QualifiedID()] {
			continue
		}
		out = append(out, domain.Finding{
			Severity: domain.SeverityInfo,
			Category: domain.CategoryOrphan,
			Type:     "orphaned_actions",
			Title:    fmt.Sprintf("Action %s is not reachable from any menu", a.ExternalID),
			Details: domain.Details{
				File:       a.File,
				Entity:     a.BoundEntity,
				ArtifactID: a.ExternalID,
				Line:       a.Line,
				Data:       map[string]any{"action_type": a.ActionKind},
			},
		})
	}
	return out
}

func orphanedMenus(ir *domain.IR, idx artifactIndex) []domain.Finding {
	var out []domain.Finding
	for _, m := range ir.UIOf(domain.ArtifactMenu) {
		var issues []string
		if m.ActionRef != "" && !idx.actions[domain.QualifyRef(m.Module, m.ActionRef)] {
			issues = append(issues, refKind(m.Module, m.ActionRef)+"_action")
		}
		if m.ParentRef != "" && !idx.menus[domain.QualifyRef(m.Module, m.ParentRef)] {
			issues = append(issues, refKind(m.Module, m.ParentRef)+"_parent")
		}
		if len(issues) == 0 {
			continue
		}
		sev := domain.SeverityInfo
		for _, is := range issues {
			if strings.HasPrefix(is, "missing") {
				sev = domain.SeverityCritical
			}
		}
		out = append(out, domain.Finding{
			Severity: sev,
			Category: domain.CategoryOrphan,
			Type:     "orphaned_menus",
			Title:    fmt.Sprintf("Menu %s has unresolved references", m.ExternalID),
			Details: domain.Details{
				File:       m.File,
				ArtifactID: m.ExternalID,
				Line:       m.Line,
				Data: map[string]any{
					"issues": issues,
					"action": m.ActionRef,
					"parent": m.ParentRef,
				},
			},
		})
	}
	return out
}

// entityFields collects the field names each entity is known to carry: its
// own declarations, extensions through inheritance, and the live registry.
func entityFields(ir *domain.IR) map[string]map[string]bool {
	own := make(map[string]map[string]bool)
	parents := make(map[string][]string)
	add := func(entity string, names map[string]bool) {
		if own[entity] == nil {
			own[entity] = make(map[string]bool)
		}
		for n := range names {
			own[entity][n] = true
		}
	}

	for _, m := range ir.Models() {
		if m.QualifiedName != "" {
			add(m.QualifiedName, m.FieldNames())
			for _, in := range m.Inherits {
				if in != m.QualifiedName {
					parents[m.QualifiedName] = append(parents[m.QualifiedName], in)
				}
			}
			continue
		}
		// Pure extensions add their fields to each extended entity.
		for _, in := range m.Inherits {
			add(in, m.FieldNames())
		}
	}
	if r := ir.Registry; r != nil {
		for name, ent := range r.Entities {
			add(name, setOf(ent.Fields...))
		}
	}

	out := make(map[string]map[string]bool, len(own))
	for entity := range own {
		all := make(map[string]bool)
		visited := map[string]bool{}
		stack := []string{entity}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			for f := range own[cur] {
				all[f] = true
			}
			stack = append(stack, parents[cur]...)
		}
		out[entity] = all
	}
	return out
}

func danglingFieldRefs(ir *domain.IR) []domain.Finding {
	fields := entityFields(ir)

	var out []domain.Finding
	for _, v := range ir.UIOf(domain.ArtifactView) {
		known, ok := fields[v.BoundEntity]
		if !ok {
			continue
		}
		var missing []string
		for _, ref := range uniqueSorted(v.FieldReferences) {
			if known[ref] || systemFields[ref] || mixinFields[ref] {
				continue
			}
			missing = append(missing, ref)
		}
		if len(missing) == 0 {
			continue
		}
		out = append(out, domain.Finding{
			Severity: domain.SeverityWarning,
			Category: domain.CategoryDangling,
			Type:     "dangling_field_refs",
			Title: fmt.Sprintf("View %s references unknown fields of %s: %s",
				v.ExternalID, v.BoundEntity, strings.Join(missing, ", ")),
			Details: domain.Details{
				File:       v.File,
				Entity:     v.BoundEntity,
				ArtifactID: v.ExternalID,
				Line:       v.Line,
				Data:       map[string]any{"missing_fields": missing},
			},
		})
	}
	return out
}

// KnownEntities is the set of entity names references may resolve to.
func KnownEntities(ir *domain.IR) map[string]bool {
	known := make(map[string]bool, len(wellKnownEntities))
	for k := range wellKnownEntities {
		known[k] = true
	}
	for _, m := range ir.Models() {
		if m.QualifiedName != "" {
			known[m.QualifiedName] = true
		}
		for _, in := range m.Inherits {
			known[in] = true
		}
	}
	if r := ir.Registry; r != nil {
		for name := range r.Entities {
			known[name] = true
		}
	}
	return known
}

func danglingModelRefs(ir *domain.IR) []domain.Finding {
	known := KnownEntities(ir)
	var out []domain.Finding
	dangling := func(entity, source, file, artifact string, line int) {
		out = append(out, domain.Finding{
			Severity: domain.SeverityCritical,
			Category: domain.CategoryDangling,
			Type:     "dangling_model_refs",
			Title:    fmt.Sprintf("%s %s references unknown model %s", source, artifact, entity),
			Details: domain.Details{
				File:       file,
				Entity:     entity,
				ArtifactID: artifact,
				Line:       line,
				Data:       map[string]any{"source": source},
			},
		})
	}

	for _, a := range ir.UI {
		if a.Type != domain.ArtifactView && a.Type != domain.ArtifactAction {
			continue
		}
		if a.BoundEntity != "" && !known[a.BoundEntity] {
			dangling(a.BoundEntity, string(a.Type), a.File, a.ExternalID, a.Line)
		}
	}
	for _, m := range ir.Models() {
		for _, f := range m.Fields {
			if f.Relational() && f.Target != "" && !known[f.Target] {
				dangling(f.Target, "field", m.File, m.EntityName()+"."+f.Name, f.Line)
			}
		}
	}
	return out
}

func orphanedAssets(ir *domain.IR) []domain.Finding {
	var out []domain.Finding
	for _, a := range ir.Assets {
		if strings.Contains(a.Path, "/static/lib/") {
			continue
		}
		if !a.IsRegisteredInBundle {
			out = append(out, domain.Finding{
				Severity:       domain.SeverityWarning,
				Category:       domain.CategoryOrphan,
				Type:           "orphaned_assets",
				Title:          fmt.Sprintf("%s is not registered in any asset bundle", a.Path),
				Recommendation: "Add the file to a bundle in __manifest__.py or remove it.",
				Details:        domain.Details{File: a.Path, ArtifactID: string(a.Kind)},
			})
		}
		if a.Kind == domain.AssetScript && !a.ModuleMarker && (len(a.ImportedSymbols) > 0 || len(a.Exports) > 0) {
			out = append(out, domain.Finding{
				Severity: domain.SeverityInfo,
				Category: domain.CategoryOrphan,
				Type:     "js_no_module",
				Title:    fmt.Sprintf("%s uses import/export without the @odoo-module marker", a.Path),
				Details:  domain.Details{File: a.Path},
			})
		}
	}
	return out
}

// missingDependencies flags scoped script imports of modules the owning
// manifest does not depend on.
func missingDependencies(ir *domain.IR) []domain.Finding {
	depends := make(map[string]map[string]bool)
	for _, m := range ir.Modules {
		depends[m.Name] = setOf(m.Depends...)
	}

	var out []domain.Finding
	for _, a := range ir.Assets {
		deps, ok := depends[a.Module]
		if !ok {
			continue
		}
		var missing []string
		for _, imp := range a.ImportedSymbols {
			if !strings.HasPrefix(imp, "@") {
				continue
			}
			target := strings.TrimPrefix(imp, "@")
			if i := strings.IndexByte(target, '/'); i >= 0 {
				target = target[:i]
			}
			if target == a.Module || target == "odoo" || target == "web" || deps[target] {
				continue
			}
			missing = append(missing, target)
		}
		missing = uniqueSorted(missing)
		for _, dep := range missing {
			out = append(out, domain.Finding{
				Severity: domain.SeverityInfo,
				Category: domain.CategoryOrphan,
				Type:     "missing_dependencies",
				Title:    fmt.Sprintf("%s imports @%s but %s does not depend on it", a.Path, dep, a.Module),
				Details:  domain.Details{File: a.Path, Entity: dep},
			})
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
