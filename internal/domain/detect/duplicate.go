package detect

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/fatih/camelcase"
	"github.com/openkraft/ecoscan/internal/domain"
)

// Standard lifecycle methods that are overridden everywhere with similar bodies.
var lifecycleMethods = setOf(
	"create", "write", "unlink", "read", "search",
	"name_get", "name_search", "default_get",
)

// Utility selectors shared by design across stylesheets.
var commonStyleClasses = setOf(
	"active", "hidden", "show", "hide", "disabled", "selected",
	"error", "warning", "success", "info", "primary", "secondary",
)

var renamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)_old$`),
	regexp.MustCompile(`(?i)_backup$`),
	regexp.MustCompile(`(?i)_deprecated$`),
	regexp.MustCompile(`(?i)_legacy$`),
	regexp.MustCompile(`(?i)_v\d+$`),
	regexp.MustCompile(`(?i)^old_`),
	regexp.MustCompile(`(?i)^backup_`),
	regexp.MustCompile(`(?i)^deprecated_`),
	regexp.MustCompile(`(?i)_copy$`),
	regexp.MustCompile(`(?i)_temp$`),
	regexp.MustCompile(`(?i)_test$`),
}

// Words that mark a CamelCase identifier as superseded when they lead or trail it.
var camelRenameWords = setOf("Old", "Backup", "Deprecated", "Legacy", "Copy", "Original", "Temp")

// Duplicate finds identical, renamed and similar entities.
type Duplicate struct {
	cfg domain.SimilarityConf
}

// NewDuplicate creates the duplicate analyzer.
func NewDuplicate(cfg domain.SimilarityConf) *Duplicate {
	def := domain.DefaultConfig().Similarity
	if cfg.Flag == 0 {
		cfg.Flag = def.Flag
	}
	if cfg.Escalate == 0 {
		cfg.Escalate = def.Escalate
	}
	if cfg.MinFields == 0 {
		cfg.MinFields = def.MinFields
	}
	return &Duplicate{cfg: cfg}
}

func (d *Duplicate) Name() string { return NameDuplicate }

func (d *Duplicate) Analyze(ir *domain.IR) (*Result, error) {
	var fs []domain.Finding
	fs = append(fs, duplicateModels(ir)...)
	fs = append(fs, duplicateFunctions(ir)...)
	fs = append(fs, duplicateMethods(ir)...)
	fs = append(fs, d.similarModels(ir)...)
	fs = append(fs, renamedComponents(ir)...)
	fs = append(fs, duplicateStyleClasses(ir)...)
	fs = append(fs, duplicateViews(ir)...)
	return newResult(NameDuplicate, fs), nil
}

func duplicateModels(ir *domain.IR) []domain.Finding {
	byName := make(map[string][]*domain.CodeElement)
	for _, m := range ir.Models() {
		if m.QualifiedName != "" {
			byName[m.QualifiedName] = append(byName[m.QualifiedName], m)
		}
	}

	var out []domain.Finding
	for _, name := range sortedKeys(byName) {
		decls := byName[name]
		if len(decls) < 2 {
			continue
		}
		sev := domain.SeverityCritical
		for _, m := range decls {
			if m.Extends(name) {
				sev = domain.SeverityWarning
				break
			}
		}
		files := make([]string, 0, len(decls))
		classes := make([]string, 0, len(decls))
		for _, m := range decls {
			files = append(files, m.File)
			classes = append(classes, m.ClassName)
		}
		out = append(out, domain.Finding{
			Severity:    sev,
			Category:    domain.CategoryDuplicate,
			Type:        "duplicate_models",
			Title:       fmt.Sprintf("Model %s declared %d times", name, len(decls)),
			Description: "The same entity name is declared by several classes without extending it.",
			Details: domain.Details{
				File:   decls[0].File,
				Entity: name,
				Line:   decls[0].Lines.Start,
				Data:   map[string]any{"files": files, "classes": classes, "count": len(decls)},
			},
		})
	}
	return out
}

func duplicateFunctions(ir *domain.IR) []domain.Finding {
	byHash := make(map[string][]*domain.CodeElement)
	for _, fn := range ir.Elements {
		if fn.Kind != domain.KindFunction || fn.Owner != "" || fn.BodyHash == "" {
			continue
		}
		byHash[fn.BodyHash] = append(byHash[fn.BodyHash], fn)
	}

	var out []domain.Finding
	for _, hash := range sortedKeys(byHash) {
		fns := byHash[hash]
		if len(fns) < 2 {
			continue
		}
		locations := make([]string, 0, len(fns))
		for _, fn := range fns {
			locations = append(locations, fmt.Sprintf("%s:%d %s", fn.File, fn.Lines.Start, fn.QualifiedName))
		}
		out = append(out, domain.Finding{
			Severity:       domain.SeverityWarning,
			Category:       domain.CategoryDuplicate,
			Type:           "duplicate_functions",
			Title:          fmt.Sprintf("Function %s has %d identical copies", fns[0].QualifiedName, len(fns)),
			Recommendation: "Move the shared body into one helper and call it.",
			Details: domain.Details{
				File:       fns[0].File,
				Entity:     fns[0].QualifiedName,
				ArtifactID: hash,
				Line:       fns[0].Lines.Start,
				Data:       map[string]any{"locations": locations, "count": len(fns)},
			},
		})
	}
	return out
}

type methodRef struct {
	model, method, file string
	line                int
}

func duplicateMethods(ir *domain.IR) []domain.Finding {
	byHash := make(map[string][]methodRef)
	seen := make(map[string]map[string]bool)
	for _, m := range ir.Models() {
		for _, meth := range m.Methods {
			if lifecycleMethods[meth.Name] || meth.BodyHash == "" {
				continue
			}
			key := m.EntityName() + "." + meth.Name
			if seen[meth.BodyHash] == nil {
				seen[meth.BodyHash] = make(map[string]bool)
			}
			if seen[meth.BodyHash][key] {
				continue
			}
			seen[meth.BodyHash][key] = true
			byHash[meth.BodyHash] = append(byHash[meth.BodyHash], methodRef{
				model: m.EntityName(), method: meth.Name, file: m.File, line: meth.Lines.Start,
			})
		}
	}

	var out []domain.Finding
	for _, hash := range sortedKeys(byHash) {
		refs := byHash[hash]
		if len(refs) < 2 {
			continue
		}
		names := make([]string, 0, len(refs))
		for _, r := range refs {
			names = append(names, r.model+"."+r.method)
		}
		out = append(out, domain.Finding{
			Severity: domain.SeverityWarning,
			Category: domain.CategoryDuplicate,
			Type:     "duplicate_methods",
			Title:    fmt.Sprintf("Method %s duplicated in %d places", names[0], len(refs)),
			Details: domain.Details{
				File:       refs[0].file,
				Entity:     names[0],
				ArtifactID: hash,
				Line:       refs[0].line,
				Data:       map[string]any{"methods": names, "count": len(refs)},
			},
		})
	}
	return out
}

// Similarity is the Jaccard index of two attribute-name sets.
func Similarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func (d *Duplicate) similarModels(ir *domain.IR) []domain.Finding {
	fields := make(map[string]map[string]bool)
	files := make(map[string]string)
	for _, m := range ir.Models() {
		if m.QualifiedName == "" {
			continue
		}
		if fields[m.QualifiedName] == nil {
			fields[m.QualifiedName] = make(map[string]bool)
			files[m.QualifiedName] = m.File
		}
		for name := range m.FieldNames() {
			fields[m.QualifiedName][name] = true
		}
	}

	var names []string
	for _, name := range sortedKeys(fields) {
		if len(fields[name]) >= d.cfg.MinFields {
			names = append(names, name)
		}
	}

	var out []domain.Finding
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]
			sim := Similarity(fields[a], fields[b])
			if sim < d.cfg.Flag {
				continue
			}
			sev := domain.SeverityInfo
			if sim >= d.cfg.Escalate {
				sev = domain.SeverityWarning
			}
			var common []string
			for f := range fields[a] {
				if fields[b][f] {
					common = append(common, f)
				}
			}
			sort.Strings(common)
			pct := math.Round(sim*1000) / 10
			out = append(out, domain.Finding{
				Severity: sev,
				Category: domain.CategoryDuplicate,
				Type:     "similar_models",
				Title:    fmt.Sprintf("%s and %s share %.1f%% of their fields", a, b, pct),
				Details: domain.Details{
					File:       files[a],
					Entity:     a,
					ArtifactID: b,
					Data: map[string]any{
						"model_a":       a,
						"model_b":       b,
						"similarity":    pct,
						"common_fields": common,
					},
				},
			})
		}
	}
	return out
}

// RenameBase returns the name with its rename marker stripped, and the
// marker that matched. ok is false when the name carries no marker.
func RenameBase(name string) (base, marker string, ok bool) {
	for _, re := range renamePatterns {
		if loc := re.FindStringIndex(name); loc != nil {
			return name[:loc[0]] + name[loc[1]:], re.String(), true
		}
	}
	words := camelcase.Split(name)
	if len(words) < 2 {
		return "", "", false
	}
	if last := words[len(words)-1]; camelRenameWords[last] {
		return strings.Join(words[:len(words)-1], ""), last, true
	}
	if first := words[0]; camelRenameWords[first] {
		return strings.Join(words[1:], ""), first, true
	}
	return "", "", false
}

type namedThing struct {
	name, kind, file string
	line             int
}

func renamedComponents(ir *domain.IR) []domain.Finding {
	pools := map[string][]namedThing{}
	for _, m := range ir.Models() {
		pools["model"] = append(pools["model"], namedThing{m.EntityName(), "model", m.File, m.Lines.Start})
	}
	for _, fn := range ir.Elements {
		if fn.Kind == domain.KindFunction && fn.Owner == "" {
			pools["function"] = append(pools["function"], namedThing{fn.QualifiedName, "function", fn.File, fn.Lines.Start})
		}
	}
	for _, a := range ir.Assets {
		for _, c := range a.Components {
			pools["component"] = append(pools["component"], namedThing{c, "component", a.Path, 0})
		}
		for _, c := range a.StyleClasses {
			pools["style_class"] = append(pools["style_class"], namedThing{c, "style_class", a.Path, 0})
		}
	}

	var out []domain.Finding
	for _, kind := range sortedKeys(pools) {
		names := make(map[string]bool)
		for _, t := range pools[kind] {
			names[t.name] = true
		}
		reported := make(map[string]bool)
		for _, t := range pools[kind] {
			if reported[t.name] {
				continue
			}
			base, marker, ok := RenameBase(t.name)
			if !ok || base == "" {
				continue
			}
			reported[t.name] = true
			f := domain.Finding{
				Category: domain.CategoryDuplicate,
				Type:     "renamed_component",
				Details: domain.Details{
					File:       t.file,
					Entity:     t.name,
					ArtifactID: kind,
					Line:       t.line,
				},
			}
			if names[base] {
				f.Severity = domain.SeverityWarning
				f.Title = fmt.Sprintf("%s %s supersedes %s which is still present", kind, t.name, base)
				f.Details.Data = map[string]any{"name": t.name, "original": base, "marker": marker, "kind": kind}
			} else {
				f.Severity = domain.SeverityInfo
				f.Title = fmt.Sprintf("%s %s looks renamed; verify if still needed", kind, t.name)
				f.Details.Data = map[string]any{"name": t.name, "original": nil, "marker": marker, "kind": kind}
			}
			out = append(out, f)
		}
	}
	return out
}

func duplicateStyleClasses(ir *domain.IR) []domain.Finding {
	files := make(map[string]map[string]bool)
	for _, a := range ir.Assets {
		for _, c := range a.StyleClasses {
			if commonStyleClasses[c] {
				continue
			}
			if files[c] == nil {
				files[c] = make(map[string]bool)
			}
			files[c][a.Path] = true
		}
	}

	var out []domain.Finding
	for _, class := range sortedKeys(files) {
		if len(files[class]) < 2 {
			continue
		}
		paths := sortedKeys(files[class])
		out = append(out, domain.Finding{
			Severity: domain.SeverityInfo,
			Category: domain.CategoryDuplicate,
			Type:     "duplicate_css_classes",
			Title:    fmt.Sprintf("Selector .%s defined in %d files", class, len(paths)),
			Details: domain.Details{
				File:   paths[0],
				Entity: class,
				Data:   map[string]any{"files": paths},
			},
		})
	}
	return out
}

func duplicateViews(ir *domain.IR) []domain.Finding {
	groups := make(map[string][]*domain.UIArtifact)
	for _, v := range ir.UIOf(domain.ArtifactView) {
		if v.InheritsRef != "" || v.ViewType == "" || len(v.FieldReferences) == 0 {
			continue
		}
		fields := uniqueSorted(v.FieldReferences)
		key := v.BoundEntity + "\x00" + v.ViewType + "\x00" + strings.Join(fields, ",")
		groups[key] = append(groups[key], v)
	}

	var out []domain.Finding
	for _, key := range sortedKeys(groups) {
		views := groups[key]
		if len(views) < 2 {
			continue
		}
		ids := make([]string, 0, len(views))
		for _, v := range views {
			ids = append(ids, v.ExternalID)
		}
		sort.Strings(ids)
		out = append(out, domain.Finding{
			Severity: domain.SeverityWarning,
			Category: domain.CategoryDuplicate,
			Type:     "duplicate_views",
			Title:    fmt.Sprintf("%d identical %s views for %s", len(views), views[0].ViewType, views[0].BoundEntity),
			Details: domain.Details{
				File:       views[0].File,
				Entity:     views[0].BoundEntity,
				ArtifactID: ids[0],
				Line:       views[0].Line,
				Data:       map[string]any{"views": ids, "view_type": views[0].ViewType},
			},
		})
	}
	return out
}
