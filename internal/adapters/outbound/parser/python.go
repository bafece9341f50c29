package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/openkraft/ecoscan/internal/domain"
)

var modelBases = map[string]string{
	"models.Model":          "",
	"models.TransientModel": "transient",
	"models.AbstractModel":  "abstract",
	"Model":                 "",
	"TransientModel":        "transient",
	"AbstractModel":         "abstract",
}

var controllerBases = map[string]bool{
	"http.Controller": true,
	"Controller":      true,
}

var fieldTypes = map[string]bool{
	"Char": true, "Text": true, "Html": true, "Integer": true, "Float": true,
	"Monetary": true, "Boolean": true, "Date": true, "Datetime": true,
	"Binary": true, "Image": true, "Selection": true, "Reference": true,
	"Many2one": true, "One2many": true, "Many2many": true,
	"Many2oneReference": true, "Json": true, "Properties": true,
	"PropertiesDefinition": true, "Id": true,
}

type pyFile struct {
	rel    string
	module string
	src    []byte
	out    []domain.Artifact
	facts  domain.FileFacts
}

func (p *Parser) parsePython(rel string, src []byte, res *Result) {
	tree, err := p.python.ParseCtx(context.Background(), nil, src)
	if err != nil {
		res.fail(rel, 0, fmt.Sprintf("parsing: %v", err))
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if e := firstError(root); e != nil {
			line = startLine(e)
		}
		res.fail(rel, line, fmt.Sprintf("syntax error at line %d", line))
		return
	}

	f := &pyFile{
		rel:    rel,
		module: domain.ModuleOf(rel),
		src:    src,
		facts:  domain.FileFacts{Path: rel, Module: domain.ModuleOf(rel)},
	}
	f.walk(root, "")

	res.Artifacts = f.out
	res.Facts = &f.facts
	if path.Base(rel) == "__init__.py" {
		res.InitImports = initImports(f.facts.Imports)
	}
}

func (f *pyFile) text(n *sitter.Node) string { return nodeText(n, f.src) }

func (f *pyFile) walk(n *sitter.Node, fn string) {
	switch n.Type() {
	case "class_definition":
		f.class(n, fn)
		return
	case "function_definition":
		f.function(n, nil, fn)
		return
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			switch def.Type() {
			case "class_definition":
				f.class(def, fn)
				return
			case "function_definition":
				f.function(def, n, fn)
				return
			}
		}
	case "import_statement", "import_from_statement":
		f.imports(n)
		return
	case "call":
		f.call(n, fn)
	}
	for _, c := range namedChildren(n) {
		f.walk(c, fn)
	}
}

// function records a module-level or nested function.
func (f *pyFile) function(def, decorated *sitter.Node, outer string) {
	name := f.text(def.ChildByFieldName("name"))
	args := f.params(def)
	el := &domain.CodeElement{
		Kind:          domain.KindFunction,
		QualifiedName: name,
		File:          f.rel,
		Lines:         lineRange(def),
		Module:        f.module,
		Owner:         outer,
		BodyHash:      bodyHash(def.ChildByFieldName("body"), f.src),
		SignatureHash: signatureHash(name, args),
		Arity:         len(args),
	}
	if decos := f.decorators(decorated); len(decos) > 0 {
		el.Attributes = map[string]string{"decorators": strings.Join(decos, ",")}
	}
	f.out = append(f.out, el)
	f.walk(def.ChildByFieldName("body"), name)
}

type classKind int

const (
	plainClass classKind = iota
	modelClass
	controllerClass
)

func (f *pyFile) class(def *sitter.Node, outer string) {
	name := f.text(def.ChildByFieldName("name"))
	var bases []string
	kind := plainClass
	flavor := ""
	for _, b := range namedChildren(def.ChildByFieldName("superclasses")) {
		if b.Type() == "keyword_argument" {
			continue
		}
		base := f.text(b)
		bases = append(bases, base)
		if fl, ok := modelBases[base]; ok {
			kind, flavor = modelClass, fl
		} else if controllerBases[base] && kind == plainClass {
			kind = controllerClass
		}
	}

	switch kind {
	case modelClass:
		f.model(def, name, bases, flavor, outer)
	case controllerClass:
		f.out = append(f.out, &domain.CodeElement{
			Kind:          domain.KindController,
			QualifiedName: name,
			ClassName:     name,
			File:          f.rel,
			Lines:         lineRange(def),
			Module:        f.module,
			Bases:         bases,
		})
		f.methods(def, name, true)
	default:
		f.methods(def, name, false)
	}
}

// methods records the methods of a non-model class and walks the rest of
// its body.
func (f *pyFile) methods(def *sitter.Node, class string, controller bool) {
	for _, st := range namedChildren(def.ChildByFieldName("body")) {
		fn, decorated := unwrapFunction(st)
		if fn == nil {
			f.walk(st, "")
			continue
		}
		name := f.text(fn.ChildByFieldName("name"))
		args := f.params(fn)
		decos := f.decorators(decorated)
		el := &domain.CodeElement{
			Kind:          domain.KindMethod,
			QualifiedName: class + "." + name,
			File:          f.rel,
			Lines:         lineRange(fn),
			Module:        f.module,
			Owner:         class,
			BodyHash:      bodyHash(fn.ChildByFieldName("body"), f.src),
			SignatureHash: signatureHash(name, args),
			Arity:         len(args),
		}
		if controller {
			if route, attrs, ok := f.route(decorated); ok {
				el.Kind = domain.KindRoute
				el.Attributes = attrs
				el.Attributes["path"] = route
			}
		}
		if len(decos) > 0 {
			if el.Attributes == nil {
				el.Attributes = make(map[string]string)
			}
			el.Attributes["decorators"] = strings.Join(decos, ",")
		}
		f.out = append(f.out, el)
		f.walk(fn.ChildByFieldName("body"), class+"."+name)
	}
}

func (f *pyFile) model(def *sitter.Node, class string, bases []string, flavor, outer string) {
	m := &domain.CodeElement{
		Kind:      domain.KindModel,
		ClassName: class,
		File:      f.rel,
		Lines:     lineRange(def),
		Module:    f.module,
		Bases:     bases,
		Transient: flavor == "transient",
		Abstract:  flavor == "abstract",
	}

	for _, st := range namedChildren(def.ChildByFieldName("body")) {
		if fn, decorated := unwrapFunction(st); fn != nil {
			name := f.text(fn.ChildByFieldName("name"))
			args := f.params(fn)
			m.Methods = append(m.Methods, domain.MethodInfo{
				Name:          name,
				Lines:         lineRange(fn),
				Decorators:    f.decorators(decorated),
				Args:          args,
				BodyHash:      bodyHash(fn.ChildByFieldName("body"), f.src),
				SignatureHash: signatureHash(name, args),
			})
			f.walk(fn.ChildByFieldName("body"), class+"."+name)
			continue
		}
		if st.Type() == "expression_statement" {
			if as := st.NamedChild(0); as != nil && as.Type() == "assignment" {
				f.modelAttribute(m, as)
			}
		}
		f.walk(st, outer)
	}

	if m.QualifiedName == "" && len(m.Inherits) == 0 {
		// Neither _name nor _inherit: the class name is the only identity.
		m.QualifiedName = class
	}
	f.out = append(f.out, m)
}

func (f *pyFile) modelAttribute(m *domain.CodeElement, as *sitter.Node) {
	left, right := as.ChildByFieldName("left"), as.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return
	}
	name := f.text(left)
	switch name {
	case "_name":
		if s, ok := pyString(right, f.src); ok {
			m.QualifiedName = s
		}
		return
	case "_inherit":
		m.Inherits = append(m.Inherits, pyStrings(right, f.src)...)
		return
	case "_description":
		if s, ok := pyString(right, f.src); ok {
			m.Description = s
		}
		return
	case "_order", "_rec_name", "_table":
		if s, ok := pyString(right, f.src); ok {
			if m.Attributes == nil {
				m.Attributes = make(map[string]string)
			}
			m.Attributes[strings.TrimPrefix(name, "_")] = s
		}
		return
	case "_transient":
		m.Transient = m.Transient || right.Type() == "true"
		return
	case "_abstract":
		m.Abstract = m.Abstract || right.Type() == "true"
		return
	}

	typ, ok := f.fieldType(right)
	if !ok {
		return
	}
	field := domain.Field{Name: name, Type: typ, Line: startLine(as)}
	positional, keywords := f.arguments(right.ChildByFieldName("arguments"))
	if field.Relational() {
		if len(positional) > 0 {
			field.Target, _ = pyString(positional[0], f.src)
		}
		if v, ok := keywords["comodel_name"]; ok {
			field.Target, _ = pyString(v, f.src)
		}
	}
	if typ == "One2many" {
		if len(positional) > 1 {
			field.Inverse, _ = pyString(positional[1], f.src)
		}
		if v, ok := keywords["inverse_name"]; ok {
			field.Inverse, _ = pyString(v, f.src)
		}
	}
	for k, v := range keywords {
		if k == "comodel_name" || k == "inverse_name" {
			continue
		}
		if s, ok := f.scalar(v); ok {
			if field.Attrs == nil {
				field.Attrs = make(map[string]string)
			}
			field.Attrs[k] = s
		}
	}
	m.Fields = append(m.Fields, field)
}

func (f *pyFile) fieldType(right *sitter.Node) (string, bool) {
	if right.Type() != "call" {
		return "", false
	}
	fn := right.ChildByFieldName("function")
	switch fn.Type() {
	case "attribute":
		obj, attr := fn.ChildByFieldName("object"), fn.ChildByFieldName("attribute")
		if f.text(obj) == "fields" && fieldTypes[f.text(attr)] {
			return f.text(attr), true
		}
	case "identifier":
		if fieldTypes[f.text(fn)] {
			return f.text(fn), true
		}
	}
	return "", false
}

func (f *pyFile) arguments(args *sitter.Node) ([]*sitter.Node, map[string]*sitter.Node) {
	var positional []*sitter.Node
	keywords := make(map[string]*sitter.Node)
	for _, a := range namedChildren(args) {
		switch a.Type() {
		case "keyword_argument":
			keywords[f.text(a.ChildByFieldName("name"))] = a.ChildByFieldName("value")
		case "list_splat", "dictionary_splat":
		default:
			positional = append(positional, a)
		}
	}
	return positional, keywords
}

// scalar renders literal and name values; anything more complex is skipped.
func (f *pyFile) scalar(v *sitter.Node) (string, bool) {
	if s, ok := pyString(v, f.src); ok {
		return s, true
	}
	switch v.Type() {
	case "true", "false", "none", "integer", "float", "identifier", "attribute":
		return f.text(v), true
	}
	return "", false
}

func (f *pyFile) params(def *sitter.Node) []string {
	var out []string
	for _, p := range namedChildren(def.ChildByFieldName("parameters")) {
		var name string
		switch p.Type() {
		case "identifier":
			name = f.text(p)
		case "default_parameter", "typed_default_parameter":
			name = f.text(p.ChildByFieldName("name"))
		case "typed_parameter":
			if id := p.NamedChild(0); id != nil && id.Type() == "identifier" {
				name = f.text(id)
			}
		}
		if name == "" || name == "self" || name == "cls" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (f *pyFile) decorators(decorated *sitter.Node) []string {
	if decorated == nil {
		return nil
	}
	var out []string
	for _, c := range namedChildren(decorated) {
		if c.Type() == "decorator" {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(f.text(c), "@")))
		}
	}
	return out
}

// route returns the path of an http.route decorator plus its keyword options.
func (f *pyFile) route(decorated *sitter.Node) (string, map[string]string, bool) {
	if decorated == nil {
		return "", nil, false
	}
	for _, c := range namedChildren(decorated) {
		if c.Type() != "decorator" {
			continue
		}
		expr := c.NamedChild(0)
		if expr == nil {
			continue
		}
		callee := expr
		if expr.Type() == "call" {
			callee = expr.ChildByFieldName("function")
		}
		if name := f.text(callee); name != "http.route" && name != "route" {
			continue
		}
		attrs := make(map[string]string)
		if expr.Type() != "call" {
			return "", attrs, true
		}
		positional, keywords := f.arguments(expr.ChildByFieldName("arguments"))
		var paths []string
		if len(positional) > 0 {
			paths = pyStrings(positional[0], f.src)
		}
		if v, ok := keywords["route"]; ok {
			paths = append(paths, pyStrings(v, f.src)...)
		}
		for _, k := range []string{"type", "auth", "methods", "csrf", "website"} {
			v, ok := keywords[k]
			if !ok {
				continue
			}
			if s, ok := f.scalar(v); ok {
				attrs[k] = s
			} else {
				attrs[k] = f.text(v)
			}
		}
		return strings.Join(paths, ","), attrs, true
	}
	return "", nil, false
}

func (f *pyFile) imports(n *sitter.Node) {
	line := startLine(n)
	if n.Type() == "import_statement" {
		for _, c := range namedChildren(n) {
			mod := c
			if c.Type() == "aliased_import" {
				mod = c.ChildByFieldName("name")
			}
			f.facts.Imports = append(f.facts.Imports, domain.Import{Module: f.text(mod), Line: line})
		}
		return
	}

	modNode := n.ChildByFieldName("module_name")
	module, level := "", 0
	if modNode != nil {
		if modNode.Type() == "relative_import" {
			for _, c := range namedChildren(modNode) {
				switch c.Type() {
				case "import_prefix":
					level = strings.Count(f.text(c), ".")
				case "dotted_name":
					module = f.text(c)
				}
			}
		} else {
			module = f.text(modNode)
		}
	}

	var names []string
	for _, c := range namedChildren(n) {
		if modNode != nil && c.StartByte() == modNode.StartByte() {
			continue
		}
		switch c.Type() {
		case "wildcard_import":
			names = append(names, "*")
		case "aliased_import":
			names = append(names, f.text(c.ChildByFieldName("name")))
		case "dotted_name":
			names = append(names, f.text(c))
		}
	}
	if len(names) == 0 {
		names = []string{""}
	}
	for _, name := range names {
		f.facts.Imports = append(f.facts.Imports, domain.Import{Module: module, Name: name, Level: level, Line: line})
	}
}

func (f *pyFile) call(n *sitter.Node, enclosing string) {
	name := f.callee(n.ChildByFieldName("function"))
	if name == "" {
		return
	}
	positional, _ := f.arguments(n.ChildByFieldName("arguments"))
	var literals []string
	for _, a := range positional {
		if s, ok := pyString(a, f.src); ok {
			literals = append(literals, s)
		}
	}
	if len(literals) == 0 {
		return
	}
	f.facts.Calls = append(f.facts.Calls, domain.CallSite{
		Func:        name,
		StringArgs:  literals,
		Line:        startLine(n),
		EnclosingFn: enclosing,
	})
}

// callee returns the dotted name of a call target. For attribute calls on
// computed values only the attribute name is kept.
func (f *pyFile) callee(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return f.text(fn)
	case "attribute":
		attr := f.text(fn.ChildByFieldName("attribute"))
		if obj := f.callee(fn.ChildByFieldName("object")); obj != "" {
			return obj + "." + attr
		}
		return attr
	}
	return ""
}

func unwrapFunction(st *sitter.Node) (fn, decorated *sitter.Node) {
	switch st.Type() {
	case "function_definition":
		return st, nil
	case "decorated_definition":
		if def := st.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
			return def, st
		}
	}
	return nil, nil
}

// initImports lists the sibling names a package __init__ pulls in.
func initImports(imports []domain.Import) []string {
	var out []string
	for _, imp := range imports {
		switch {
		case imp.Level == 1 && imp.Module == "" && imp.Name != "" && imp.Name != "*":
			out = append(out, imp.Name)
		case imp.Level == 1 && imp.Module != "":
			out = append(out, strings.SplitN(imp.Module, ".", 2)[0])
		case imp.Level == 0 && imp.Name == "" && imp.Module != "":
			out = append(out, strings.SplitN(imp.Module, ".", 2)[0])
		}
	}
	return out
}

func pyString(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "interpolation" {
				return "", false
			}
		}
		return unquote(nodeText(n, src)), true
	case "concatenated_string":
		var b strings.Builder
		for _, c := range namedChildren(n) {
			s, ok := pyString(c, src)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	case "parenthesized_expression":
		return pyString(n.NamedChild(0), src)
	}
	return "", false
}

// pyStrings accepts a single string or a list/tuple of strings.
func pyStrings(n *sitter.Node, src []byte) []string {
	if s, ok := pyString(n, src); ok {
		return []string{s}
	}
	if n.Type() != "list" && n.Type() != "tuple" {
		return nil
	}
	var out []string
	for _, c := range namedChildren(n) {
		if s, ok := pyString(c, src); ok {
			out = append(out, s)
		}
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// bodyHash fingerprints the token stream of a body, ignoring comments and
// layout. Bodies that do nothing hash to "" so stubs never group together.
func bodyHash(body *sitter.Node, src []byte) string {
	if body == nil || trivialBody(body) {
		return ""
	}
	h := sha256.New()
	hashTokens(h, body, src)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func hashTokens(h hash.Hash, n *sitter.Node, src []byte) {
	if n.Type() == "comment" {
		return
	}
	if n.ChildCount() == 0 {
		h.Write([]byte(n.Type()))
		h.Write([]byte{0})
		h.Write(src[n.StartByte():n.EndByte()])
		h.Write([]byte{0})
		return
	}
	if n.IsNamed() {
		h.Write([]byte(n.Type() + "("))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		hashTokens(h, n.Child(i), src)
	}
	if n.IsNamed() {
		h.Write([]byte(")"))
	}
}

func trivialBody(body *sitter.Node) bool {
	for _, st := range namedChildren(body) {
		switch st.Type() {
		case "pass_statement":
		case "expression_statement":
			expr := st.NamedChild(0)
			if expr == nil || (expr.Type() != "string" && expr.Type() != "ellipsis") {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func signatureHash(name string, args []string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", name, len(args), strings.Join(args, ","))))
	return hex.EncodeToString(sum[:])[:16]
}
