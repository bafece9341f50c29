package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/openkraft/ecoscan/internal/domain"
)

const moduleMarker = "@odoo-module"

type scriptFile struct {
	src   []byte
	asset *domain.AssetArtifact
	seen  map[string]bool
}

func (p *Parser) parseScript(rel string, src []byte, res *Result) {
	asset := &domain.AssetArtifact{
		Path:   rel,
		Kind:   domain.AssetScript,
		Module: domain.ModuleOf(rel),
	}
	res.Artifacts = append(res.Artifacts, asset)

	tree, err := p.script.ParseCtx(context.Background(), nil, src)
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
		// Scripts keep whatever the error-tolerant tree still holds.
		res.fail(rel, line, fmt.Sprintf("syntax error at line %d", line))
	}

	s := &scriptFile{src: src, asset: asset, seen: make(map[string]bool)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.Type() == "comment" && strings.Contains(s.text(c), moduleMarker) {
			asset.ModuleMarker = true
		}
	}
	s.walk(root)
}

func (s *scriptFile) text(n *sitter.Node) string { return nodeText(n, s.src) }

func (s *scriptFile) declare(name string) {
	if name != "" && !s.seen[name] {
		s.seen[name] = true
		s.asset.DeclaredSymbols = append(s.asset.DeclaredSymbols, name)
	}
}

func (s *scriptFile) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		if src := n.ChildByFieldName("source"); src != nil {
			s.asset.ImportedSymbols = append(s.asset.ImportedSymbols, jsString(s.text(src)))
		}
		return
	case "export_statement":
		s.export(n)
	case "class_declaration":
		name := s.text(n.ChildByFieldName("name"))
		s.declare(name)
		for _, c := range namedChildren(n) {
			if c.Type() == "class_heritage" && isComponentBase(s.text(c)) {
				s.asset.Components = append(s.asset.Components, name)
			}
		}
	case "function_declaration", "generator_function_declaration":
		s.declare(s.text(n.ChildByFieldName("name")))
	case "variable_declarator":
		if v := n.ChildByFieldName("value"); v != nil {
			switch v.Type() {
			case "arrow_function", "function", "function_expression":
				s.declare(s.text(n.ChildByFieldName("name")))
			}
		}
	case "call_expression":
		s.call(n)
	}
	for _, c := range namedChildren(n) {
		s.walk(c)
	}
}

func isComponentBase(heritage string) bool {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(heritage), "extends"))
	return h == "Component" || h == "owl.Component"
}

func (s *scriptFile) export(n *sitter.Node) {
	add := func(name string) {
		if name != "" {
			s.asset.Exports = append(s.asset.Exports, name)
		}
	}
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			for _, d := range namedChildren(decl) {
				if d.Type() == "variable_declarator" {
					add(s.text(d.ChildByFieldName("name")))
				}
			}
		default:
			if name := decl.ChildByFieldName("name"); name != nil {
				add(s.text(name))
			}
		}
		return
	}
	for _, c := range namedChildren(n) {
		if c.Type() != "export_clause" {
			continue
		}
		for _, spec := range namedChildren(c) {
			name := spec.ChildByFieldName("alias")
			if name == nil {
				name = spec.ChildByFieldName("name")
			}
			if name != nil {
				add(s.text(name))
			}
		}
		return
	}
	if strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(s.text(n), "export")), "default") {
		add("default")
	}
}

func (s *scriptFile) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := namedChildren(n.ChildByFieldName("arguments"))
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier":
		if s.text(fn) == "patch" && len(args) > 0 {
			s.asset.Patches = append(s.asset.Patches, domain.Patch{
				Target: strings.TrimSpace(s.text(args[0])),
				Line:   startLine(n),
			})
		}
	case "member_expression":
		if s.text(fn.ChildByFieldName("property")) != "add" || len(args) == 0 || args[0].Type() != "string" {
			return
		}
		obj := fn.ChildByFieldName("object")
		if !strings.HasPrefix(s.text(obj), "registry") {
			return
		}
		category := "default"
		if obj.Type() == "call_expression" {
			inner := obj.ChildByFieldName("function")
			innerArgs := namedChildren(obj.ChildByFieldName("arguments"))
			if inner != nil && inner.Type() == "member_expression" &&
				s.text(inner.ChildByFieldName("property")) == "category" &&
				len(innerArgs) > 0 && innerArgs[0].Type() == "string" {
				category = jsString(s.text(innerArgs[0]))
			}
		}
		s.asset.Registrations = append(s.asset.Registrations, category+":"+jsString(s.text(args[0])))
	}
}

func jsString(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
