package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

var viewTypes = map[string]bool{
	"form": true, "tree": true, "list": true, "kanban": true, "search": true,
	"graph": true, "pivot": true, "calendar": true, "gantt": true,
	"cohort": true, "activity": true, "qweb": true, "map": true,
}

var actionModels = map[string]bool{
	"ir.actions.act_window": true,
	"ir.actions.server":     true,
	"ir.actions.report":     true,
	"ir.actions.client":     true,
	"ir.actions.act_url":    true,
}

// Tokens that show up in condition expressions but never name a field.
var nonFieldTokens = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"in": true, "not in": true, "like": true, "ilike": true, "not": true,
	"child_of": true, "parent_of": true, "=?": true, "=like": true, "=ilike": true,
	"and": true, "or": true, "&": true, "|": true, "!": true, "is": true,
	"if": true, "else": true,
	"True": true, "False": true, "true": true, "false": true, "None": true,
	"context": true, "parent": true, "uid": true, "user": true,
	"allowed_company_ids": true, "current_company_id": true,
}

// Attributes holding Python expressions over the view's own fields.
var expressionAttrs = []string{"invisible", "readonly", "required", "column_invisible"}

var (
	refCallRe  = regexp.MustCompile(`ref\(['"]([^'"]+)['"]\)`)
	leftTermRe = regexp.MustCompile(`\(\s*['"]([\w.]+)['"]\s*,\s*['"][^'"]*['"]`)
	groupByRe  = regexp.MustCompile(`['"]group_by['"]\s*:\s*['"]([\w.]+)['"]`)
	quotedRe   = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	identRe    = regexp.MustCompile(`[A-Za-z_][\w.]*`)
)

type element struct {
	name     string
	attrs    map[string]string
	children []*element
	text     string
	line     int
}

func (e *element) attr(name string) string {
	if e == nil {
		return ""
	}
	return e.attrs[name]
}

func (e *element) field(name string) *element {
	for _, c := range e.children {
		if c.name == "field" && c.attr("name") == name {
			return c
		}
	}
	return nil
}

// value returns the text of a record field, falling back to its eval literal.
func (e *element) value() string {
	if e == nil {
		return ""
	}
	if t := strings.TrimSpace(e.text); t != "" {
		return t
	}
	return strings.Trim(strings.TrimSpace(e.attr("eval")), `'"`)
}

func decodeTree(src []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(src))
	// Input is already decoded to UTF-8 by the scanner.
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	// View arches use HTML entities such as &nbsp; freely.
	d.Entity = xml.HTMLEntity

	var root *element
	var stack []*element
	for {
		line, _ := d.InputPos()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr)), line: line}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				top := stack[len(stack)-1]
				top.children = append(top.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

type recordFile struct {
	rel    string
	module string
	out    []domain.Artifact
}

func parseRecords(rel string, src []byte, res *Result) {
	root, err := decodeTree(src)
	if err != nil {
		line := 0
		var syn *xml.SyntaxError
		if errors.As(err, &syn) {
			line = syn.Line
		}
		res.fail(rel, line, fmt.Sprintf("XML parse error: %v", err))
		return
	}

	r := &recordFile{rel: rel, module: domain.ModuleOf(rel)}
	switch root.name {
	case "odoo", "openerp":
		r.container(root)
	case "templates":
		r.templates(root)
	}
	res.Artifacts = r.out
}

func (r *recordFile) container(el *element) {
	for _, c := range el.children {
		switch c.name {
		case "data":
			r.container(c)
		case "record":
			r.record(c)
		case "menuitem":
			r.menuitem(c, "")
		case "template":
			r.template(c)
		case "act_window":
			r.add(&domain.UIArtifact{
				ExternalID:  c.attr("id"),
				Type:        domain.ArtifactAction,
				Line:        c.line,
				Name:        c.attr("name"),
				BoundEntity: c.attr("res_model"),
				ActionKind:  "ir.actions.act_window",
				ViewRefs:    nonEmpty(c.attr("view_id")),
				Domain:      c.attr("domain"),
				Context:     c.attr("context"),
				Target:      c.attr("target"),
			})
		case "report":
			r.add(&domain.UIArtifact{
				ExternalID:  c.attr("id"),
				Type:        domain.ArtifactAction,
				Line:        c.line,
				Name:        c.attr("name"),
				BoundEntity: c.attr("model"),
				ActionKind:  "ir.actions.report",
			})
		}
	}
}

func (r *recordFile) add(a *domain.UIArtifact) {
	a.File = r.rel
	a.Module = r.module
	r.out = append(r.out, a)
}

func (r *recordFile) record(el *element) {
	model := el.attr("model")
	switch {
	case model == "ir.ui.view":
		r.view(el)
	case actionModels[model]:
		a := &domain.UIArtifact{
			ExternalID:  el.attr("id"),
			Type:        domain.ArtifactAction,
			Line:        el.line,
			Name:        el.field("name").value(),
			BoundEntity: el.field("res_model").value(),
			ActionKind:  model,
			Domain:      el.field("domain").value(),
			Context:     el.field("context").value(),
			Target:      el.field("target").value(),
		}
		if v := el.field("view_id"); v != nil {
			a.ViewRefs = nonEmpty(v.attr("ref"))
		}
		if v := el.field("view_ids"); v != nil {
			for _, m := range refCallRe.FindAllStringSubmatch(v.attr("eval"), -1) {
				a.ViewRefs = append(a.ViewRefs, m[1])
			}
		}
		r.add(a)
	case model == "ir.ui.menu":
		m := &domain.UIArtifact{
			ExternalID: el.attr("id"),
			Type:       domain.ArtifactMenu,
			Line:       el.line,
			Name:       el.field("name").value(),
			Sequence:   el.field("sequence").value(),
		}
		if p := el.field("parent_id"); p != nil {
			m.ParentRef = p.attr("ref")
		}
		if a := el.field("action"); a != nil {
			m.ActionRef = a.attr("ref")
		}
		if g := el.field("groups_id"); g != nil {
			for _, ref := range refCallRe.FindAllStringSubmatch(g.attr("eval"), -1) {
				m.Groups = append(m.Groups, ref[1])
			}
		}
		r.add(m)
	}
}

func (r *recordFile) view(el *element) {
	v := &domain.UIArtifact{
		ExternalID:  el.attr("id"),
		Type:        domain.ArtifactView,
		Line:        el.line,
		Name:        el.field("name").value(),
		BoundEntity: el.field("model").value(),
		ViewType:    el.field("type").value(),
		Priority:    el.field("priority").value(),
	}
	if inh := el.field("inherit_id"); inh != nil {
		v.InheritsRef = inh.attr("ref")
	}
	if arch := el.field("arch"); arch != nil {
		refs, archType := archFields(arch)
		v.FieldReferences = refs
		if v.ViewType == "" {
			v.ViewType = archType
		}
	}
	r.add(v)
}

func (r *recordFile) menuitem(el *element, parent string) {
	m := &domain.UIArtifact{
		ExternalID: el.attr("id"),
		Type:       domain.ArtifactMenu,
		Line:       el.line,
		Name:       el.attr("name"),
		ParentRef:  el.attr("parent"),
		ActionRef:  el.attr("action"),
		Sequence:   el.attr("sequence"),
	}
	if m.ParentRef == "" {
		m.ParentRef = parent
	}
	for _, g := range strings.Split(el.attr("groups"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			m.Groups = append(m.Groups, g)
		}
	}
	r.add(m)
	for _, c := range el.children {
		if c.name == "menuitem" {
			r.menuitem(c, m.ExternalID)
		}
	}
}

func (r *recordFile) template(el *element) {
	r.add(&domain.UIArtifact{
		ExternalID:  el.attr("id"),
		Type:        domain.ArtifactTemplate,
		Line:        el.line,
		Name:        firstNonEmpty(el.attr("name"), el.attr("t-name")),
		InheritsRef: el.attr("inherit_id"),
		Priority:    el.attr("priority"),
	})
}

// templates handles client-side template files keyed by t-name.
func (r *recordFile) templates(root *element) {
	for _, c := range root.children {
		if c.name != "t" && c.name != "template" {
			continue
		}
		name := c.attr("t-name")
		r.add(&domain.UIArtifact{
			ExternalID:  firstNonEmpty(c.attr("id"), name),
			Type:        domain.ArtifactTemplate,
			Line:        c.line,
			Name:        name,
			InheritsRef: c.attr("t-inherit"),
		})
	}
}

// archFields collects the field names a view architecture references and
// the view type of its root element. Fields nested under a field element
// belong to an embedded sub-view of the related entity and are skipped,
// except below positioned fields of an extension view.
func archFields(arch *element) ([]string, string) {
	seen := make(map[string]bool)
	viewType := ""
	add := func(name string) {
		if name == "" || strings.HasPrefix(name, "_") || nonFieldTokens[name] {
			return
		}
		seen[name] = true
	}

	var walk func(el *element)
	walk = func(el *element) {
		if viewType == "" && viewTypes[el.name] {
			viewType = el.name
		}
		if el.name == "field" {
			add(el.attr("name"))
		}
		for _, name := range expressionRefs(el) {
			add(name)
		}
		if el.name == "field" && el.attr("position") == "" {
			return
		}
		for _, c := range el.children {
			walk(c)
		}
	}
	for _, c := range arch.children {
		walk(c)
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, viewType
}

// expressionRefs pulls field names out of condition attributes. Dotted paths
// keep their first segment only.
func expressionRefs(el *element) []string {
	var out []string
	first := func(s string) string { return strings.SplitN(s, ".", 2)[0] }

	for _, m := range leftTermRe.FindAllStringSubmatch(el.attr("attrs"), -1) {
		out = append(out, first(m[1]))
	}
	// A domain on a field element filters the related entity.
	if el.name != "field" {
		for _, m := range leftTermRe.FindAllStringSubmatch(el.attr("domain"), -1) {
			out = append(out, first(m[1]))
		}
	}
	if el.name == "filter" {
		for _, m := range groupByRe.FindAllStringSubmatch(el.attr("context"), -1) {
			out = append(out, first(m[1]))
		}
	}
	for _, name := range expressionAttrs {
		expr := strings.TrimSpace(el.attr(name))
		switch expr {
		case "", "0", "1", "True", "False", "true", "false":
			continue
		}
		if strings.HasPrefix(expr, "{") || strings.HasPrefix(expr, "[") {
			continue
		}
		expr = quotedRe.ReplaceAllString(expr, "''")
		for _, loc := range identRe.FindAllStringIndex(expr, -1) {
			rest := strings.TrimSpace(expr[loc[1]:])
			if strings.HasPrefix(rest, "(") {
				continue
			}
			out = append(out, first(expr[loc[0]:loc[1]]))
		}
	}
	return out
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
