package domain

import (
	"path"
	"sort"
	"strings"
)

// ElementKind classifies a CodeElement.
type ElementKind string

const (
	KindModel      ElementKind = "model"
	KindController ElementKind = "controller"
	KindRoute      ElementKind = "route"
	KindFunction   ElementKind = "function"
	KindMethod     ElementKind = "method"
)

// UIArtifactType classifies a UIArtifact.
type UIArtifactType string

const (
	ArtifactView     UIArtifactType = "view"
	ArtifactAction   UIArtifactType = "action"
	ArtifactMenu     UIArtifactType = "menu"
	ArtifactTemplate UIArtifactType = "template"
)

// AssetKind distinguishes script from style assets.
type AssetKind string

const (
	AssetScript AssetKind = "script"
	AssetStyle  AssetKind = "style"
)

// Artifact is the closed set of IR records a scanner can produce:
// *CodeElement, *UIArtifact and *AssetArtifact.
type Artifact interface {
	artifact()
	// SourceFile is the root-relative path of the declaring file.
	SourceFile() string
}

// LineRange is a 1-based inclusive line span.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Field is a declared attribute of a model. Target is set for relational types.
type Field struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Target  string            `json:"target,omitempty"`
	Inverse string            `json:"inverse,omitempty"`
	Line    int               `json:"line"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Relational reports whether the field points at another entity.
func (f Field) Relational() bool {
	switch f.Type {
	case "Many2one", "One2many", "Many2many":
		return true
	}
	return false
}

// MethodInfo describes a method declared inside a model class.
type MethodInfo struct {
	Name          string    `json:"name"`
	Lines         LineRange `json:"lines"`
	Decorators    []string  `json:"decorators,omitempty"`
	Args          []string  `json:"args,omitempty"`
	BodyHash      string    `json:"body_hash"`
	SignatureHash string    `json:"signature_hash"`
}

// CodeElement is a unit discovered by the code scanner. Identity is
// (Kind, QualifiedName) within a scan.
type CodeElement struct {
	Kind          ElementKind       `json:"kind"`
	QualifiedName string            `json:"qualified_name"`
	File          string            `json:"declaring_file"`
	Lines         LineRange         `json:"line_range"`
	Module        string            `json:"owning_module"`
	Attributes    map[string]string `json:"attributes,omitempty"`

	// Model-only payload.
	ClassName   string       `json:"class_name,omitempty"`
	Inherits    []string     `json:"inherits,omitempty"`
	Bases       []string     `json:"bases,omitempty"`
	Fields      []Field      `json:"fields,omitempty"`
	Methods     []MethodInfo `json:"methods,omitempty"`
	Transient   bool         `json:"transient,omitempty"`
	Abstract    bool         `json:"abstract,omitempty"`
	Description string       `json:"description,omitempty"`

	// Function/method payload.
	Owner         string `json:"owner,omitempty"`
	BodyHash      string `json:"body_hash,omitempty"`
	SignatureHash string `json:"signature_hash,omitempty"`
	Arity         int    `json:"arity,omitempty"`
}

func (*CodeElement) artifact()            {}
func (e *CodeElement) SourceFile() string { return e.File }

// EntityName returns the declared entity name of a model, falling back to the
// class name for pure extensions that only set _inherit.
func (e *CodeElement) EntityName() string {
	if e.QualifiedName != "" {
		return e.QualifiedName
	}
	return e.ClassName
}

// Extends reports whether the model declares name among its extension targets.
func (e *CodeElement) Extends(name string) bool {
	for _, in := range e.Inherits {
		if in == name {
			return true
		}
	}
	return false
}

// FieldNames returns the model's field names as a set.
func (e *CodeElement) FieldNames() map[string]bool {
	out := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Name] = true
	}
	return out
}

// UIArtifact is a view, action, menu entry or template from declarative records.
type UIArtifact struct {
	ExternalID      string         `json:"external_id"`
	Type            UIArtifactType `json:"artifact_type"`
	File            string         `json:"file"`
	Line            int            `json:"line"`
	Module          string         `json:"module"`
	Name            string         `json:"name,omitempty"`
	BoundEntity     string         `json:"bound_entity,omitempty"`
	ParentRef       string         `json:"parent_ref,omitempty"`
	InheritsRef     string         `json:"inherits_ref,omitempty"`
	FieldReferences []string       `json:"field_references,omitempty"`

	// View payload.
	ViewType string `json:"view_type,omitempty"`
	Priority string `json:"priority,omitempty"`

	// Action payload.
	ActionKind string   `json:"action_kind,omitempty"`
	ViewRefs   []string `json:"view_refs,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	Context    string   `json:"context,omitempty"`
	Target     string   `json:"target,omitempty"`

	// Menu payload.
	ActionRef string   `json:"action_ref,omitempty"`
	Sequence  string   `json:"sequence,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

func (*UIArtifact) artifact()            {}
func (a *UIArtifact) SourceFile() string { return a.File }

// AssetArtifact is a script or style file.
type AssetArtifact struct {
	Path                 string    `json:"path"`
	Kind                 AssetKind `json:"kind"`
	Module               string    `json:"module"`
	DeclaredSymbols      []string  `json:"declared_symbols,omitempty"`
	ImportedSymbols      []string  `json:"imported_symbols,omitempty"`
	Components           []string  `json:"components,omitempty"`
	Exports              []string  `json:"exports,omitempty"`
	Registrations        []string  `json:"registrations,omitempty"`
	Patches              []Patch   `json:"patches,omitempty"`
	StyleClasses         []string  `json:"style_classes,omitempty"`
	StyleIDs             []string  `json:"style_ids,omitempty"`
	StyleVariables       []string  `json:"style_variables,omitempty"`
	ModuleMarker         bool      `json:"module_marker"`
	IsRegisteredInBundle bool      `json:"is_registered_in_bundle"`
}

func (*AssetArtifact) artifact()            {}
func (a *AssetArtifact) SourceFile() string { return a.Path }

// Patch is a runtime patch() call site in a script.
type Patch struct {
	Target string `json:"target"`
	Line   int    `json:"line"`
}

// Import is one import statement entry in a code file.
type Import struct {
	Module string `json:"module"`
	Name   string `json:"name,omitempty"`
	Level  int    `json:"level,omitempty"`
	Line   int    `json:"line"`
}

// CallSite is a call expression with its string-literal arguments.
type CallSite struct {
	Func        string   `json:"func"`
	StringArgs  []string `json:"string_args,omitempty"`
	Line        int      `json:"line"`
	EnclosingFn string   `json:"enclosing_fn,omitempty"`
}

// FileFacts carries per-file facts used by text- and tree-level detectors.
type FileFacts struct {
	Path    string     `json:"path"`
	Module  string     `json:"module"`
	Imports []Import   `json:"imports,omitempty"`
	Calls   []CallSite `json:"calls,omitempty"`
}

// SourceFile is the decoded text of a scanned file.
type SourceFile struct {
	Path    string `json:"path"`
	Module  string `json:"module"`
	Scanner string `json:"scanner"`
	Text    string `json:"-"`
}

// Ext returns the lowercased extension of the file.
func (s SourceFile) Ext() string { return strings.ToLower(path.Ext(s.Path)) }

// ParseError is a recoverable per-file failure.
type ParseError struct {
	File    string `json:"file"`
	Scanner string `json:"scanner"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Bundle is an asset bundle declared in a module manifest.
type Bundle struct {
	Module string   `json:"module"`
	Name   string   `json:"name"`
	Paths  []string `json:"paths"`
}

// ModuleInfo is manifest metadata for a top-level module directory.
type ModuleInfo struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Version     string   `json:"version,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Author      string   `json:"author,omitempty"`
	Category    string   `json:"category,omitempty"`
	Installable bool     `json:"installable"`
	Depends     []string `json:"depends,omitempty"`
}

// RegistrySnapshot is ground truth read from a running host instance.
type RegistrySnapshot struct {
	Entities map[string]RegistryEntity `json:"entities"`
	Views    map[string]bool           `json:"views"`
	Actions  map[string]bool           `json:"actions"`
	Menus    map[string]bool           `json:"menus"`
	Modules  []string                  `json:"modules"`
}

// RegistryEntity is an installed entity and its field names.
type RegistryEntity struct {
	Name      string   `json:"name"`
	Module    string   `json:"module,omitempty"`
	Transient bool     `json:"transient,omitempty"`
	Abstract  bool     `json:"abstract,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

// HasEntity reports whether the registry knows the entity. Safe on nil.
func (r *RegistrySnapshot) HasEntity(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Entities[name]
	return ok
}

// IR is the frozen scan output every analyzer reads. Analyzers must not mutate it.
type IR struct {
	Root     string           `json:"root"`
	Elements []*CodeElement   `json:"elements"`
	UI       []*UIArtifact    `json:"ui_artifacts"`
	Assets   []*AssetArtifact `json:"assets"`
	Facts    []FileFacts      `json:"file_facts,omitempty"`
	Sources  []SourceFile     `json:"-"`
	Errors   []ParseError     `json:"errors"`
	Bundles  []Bundle         `json:"bundles,omitempty"`
	Modules  []ModuleInfo     `json:"modules,omitempty"`
	// InitImports maps a package directory to the names its __init__ imports.
	InitImports map[string][]string `json:"init_imports,omitempty"`
	Registry    *RegistrySnapshot   `json:"registry,omitempty"`
}

// NewIR returns an empty IR rooted at root.
func NewIR(root string) *IR {
	return &IR{Root: root, InitImports: make(map[string][]string)}
}

// Add appends scanner output to the IR.
func (ir *IR) Add(arts ...Artifact) {
	for _, a := range arts {
		switch v := a.(type) {
		case *CodeElement:
			ir.Elements = append(ir.Elements, v)
		case *UIArtifact:
			ir.UI = append(ir.UI, v)
		case *AssetArtifact:
			ir.Assets = append(ir.Assets, v)
		}
	}
}

// Merge concatenates another partial IR into this one.
func (ir *IR) Merge(o *IR) {
	if o == nil {
		return
	}
	ir.Elements = append(ir.Elements, o.Elements...)
	ir.UI = append(ir.UI, o.UI...)
	ir.Assets = append(ir.Assets, o.Assets...)
	ir.Facts = append(ir.Facts, o.Facts...)
	ir.Sources = append(ir.Sources, o.Sources...)
	ir.Errors = append(ir.Errors, o.Errors...)
	ir.Bundles = append(ir.Bundles, o.Bundles...)
	ir.Modules = append(ir.Modules, o.Modules...)
	for dir, names := range o.InitImports {
		ir.InitImports[dir] = append(ir.InitImports[dir], names...)
	}
}

// Normalize sorts every list so downstream output is deterministic
// regardless of scan worker ordering.
func (ir *IR) Normalize() {
	sort.SliceStable(ir.Elements, func(i, j int) bool {
		a, b := ir.Elements[i], ir.Elements[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Lines.Start < b.Lines.Start
	})
	sort.SliceStable(ir.UI, func(i, j int) bool {
		a, b := ir.UI[i], ir.UI[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	sort.SliceStable(ir.Assets, func(i, j int) bool { return ir.Assets[i].Path < ir.Assets[j].Path })
	sort.SliceStable(ir.Facts, func(i, j int) bool { return ir.Facts[i].Path < ir.Facts[j].Path })
	sort.SliceStable(ir.Sources, func(i, j int) bool { return ir.Sources[i].Path < ir.Sources[j].Path })
	sort.SliceStable(ir.Errors, func(i, j int) bool { return ir.Errors[i].File < ir.Errors[j].File })
	sort.SliceStable(ir.Bundles, func(i, j int) bool {
		if ir.Bundles[i].Module != ir.Bundles[j].Module {
			return ir.Bundles[i].Module < ir.Bundles[j].Module
		}
		return ir.Bundles[i].Name < ir.Bundles[j].Name
	})
	sort.SliceStable(ir.Modules, func(i, j int) bool { return ir.Modules[i].Name < ir.Modules[j].Name })
	for dir := range ir.InitImports {
		sort.Strings(ir.InitImports[dir])
	}
}

// Models returns the elements of kind model.
func (ir *IR) Models() []*CodeElement { return ir.elementsOf(KindModel) }

// Functions returns functions and methods.
func (ir *IR) Functions() []*CodeElement {
	var out []*CodeElement
	for _, e := range ir.Elements {
		if e.Kind == KindFunction || e.Kind == KindMethod {
			out = append(out, e)
		}
	}
	return out
}

func (ir *IR) elementsOf(k ElementKind) []*CodeElement {
	var out []*CodeElement
	for _, e := range ir.Elements {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// UIOf returns UI artifacts of the given type.
func (ir *IR) UIOf(t UIArtifactType) []*UIArtifact {
	var out []*UIArtifact
	for _, a := range ir.UI {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// ErrorsFrom returns the parse errors produced by one scanner.
func (ir *IR) ErrorsFrom(scanner string) []ParseError {
	var out []ParseError
	for _, e := range ir.Errors {
		if e.Scanner == scanner {
			out = append(out, e)
		}
	}
	return out
}

// ModuleOf returns the first path segment of a root-relative slash path.
func ModuleOf(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

// QualifyRef returns ref in module.id form, qualifying bare ids with module.
func QualifyRef(module, ref string) string {
	if ref == "" || strings.Contains(ref, ".") || module == "" {
		return ref
	}
	return module + "." + ref
}

// QualifiedID is the artifact's external id in module.id form.
func (a *UIArtifact) QualifiedID() string { return QualifyRef(a.Module, a.ExternalID) }
