package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Pre-bundle manifests list assets under these keys.
var legacyAssetKeys = []string{"js", "css", "qweb"}

// parseManifest reads the dict literal of a module manifest. Manifests are
// never executed; non-literal values are ignored.
func (p *Parser) parseManifest(rel string, src []byte, res *Result) {
	tree, err := p.python.ParseCtx(context.Background(), nil, src)
	if err != nil {
		res.fail(rel, 0, fmt.Sprintf("parsing manifest: %v", err))
		return
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if e := firstError(root); e != nil {
			line = startLine(e)
		}
		res.fail(rel, line, fmt.Sprintf("manifest syntax error at line %d", line))
		return
	}

	dict := findDictionary(root)
	if dict == nil {
		res.fail(rel, 1, "manifest has no dict literal")
		return
	}

	module := domain.ModuleOf(rel)
	info := &domain.ModuleInfo{Name: module, Installable: true}
	entries := dictEntries(dict, src)
	for key, v := range entries {
		switch key {
		case "name":
			info.Title, _ = pyString(v, src)
		case "version":
			info.Version, _ = pyString(v, src)
		case "summary":
			info.Summary, _ = pyString(v, src)
		case "author":
			info.Author, _ = pyString(v, src)
		case "category":
			info.Category, _ = pyString(v, src)
		case "installable":
			info.Installable = v.Type() != "false"
		case "depends":
			info.Depends = pyStrings(v, src)
		case "assets":
			if v.Type() != "dictionary" {
				continue
			}
			for bundle, paths := range dictEntries(v, src) {
				res.Bundles = append(res.Bundles, domain.Bundle{
					Module: module,
					Name:   bundle,
					Paths:  bundlePaths(paths, src),
				})
			}
		}
	}
	for _, key := range legacyAssetKeys {
		if v, ok := entries[key]; ok {
			res.Bundles = append(res.Bundles, domain.Bundle{Module: module, Name: key, Paths: pyStrings(v, src)})
		}
	}
	res.Module = info
}

func findDictionary(root *sitter.Node) *sitter.Node {
	for _, st := range namedChildren(root) {
		if st.Type() != "expression_statement" {
			continue
		}
		if d := st.NamedChild(0); d != nil && d.Type() == "dictionary" {
			return d
		}
	}
	return nil
}

// dictEntries returns the string-keyed pairs of a dict literal.
func dictEntries(dict *sitter.Node, src []byte) map[string]*sitter.Node {
	out := make(map[string]*sitter.Node)
	for _, pair := range namedChildren(dict) {
		if pair.Type() != "pair" {
			continue
		}
		if key, ok := pyString(pair.ChildByFieldName("key"), src); ok {
			out[key] = pair.ChildByFieldName("value")
		}
	}
	return out
}

// bundlePaths flattens a bundle list. Directive tuples such as
// ('after', target, path) contribute their last element; ('include', bundle)
// and ('remove', path) contribute nothing.
func bundlePaths(list *sitter.Node, src []byte) []string {
	if list == nil || (list.Type() != "list" && list.Type() != "tuple") {
		return nil
	}
	var out []string
	for _, item := range namedChildren(list) {
		if s, ok := pyString(item, src); ok {
			out = append(out, s)
			continue
		}
		if item.Type() != "tuple" {
			continue
		}
		parts := pyStrings(item, src)
		if len(parts) < 2 {
			continue
		}
		switch strings.ToLower(parts[0]) {
		case "include", "remove":
			continue
		}
		out = append(out, parts[len(parts)-1])
	}
	return out
}
