package parser

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/openkraft/ecoscan/internal/domain"
)

// The CSS grammar has no SCSS support; nested SCSS rules degrade to ERROR
// nodes, so selectors and variables in .scss files are also matched textually.
var (
	scssClassRe    = regexp.MustCompile(`\.([a-zA-Z_][\w-]*)\s*(?:\{|,|\s+\.)`)
	scssIDRe       = regexp.MustCompile(`#([a-zA-Z_][\w-]*)\s*(?:\{|,|\s+[.#])`)
	scssVariableRe = regexp.MustCompile(`\$([a-zA-Z_][\w-]*)\s*:`)
)

type styleFile struct {
	src     []byte
	classes orderedSet
	ids     orderedSet
	vars    orderedSet
}

// parseStyle never records errors: browsers skip invalid rules, so a
// malformed stylesheet is not a scan failure.
func (p *Parser) parseStyle(rel string, src []byte, res *Result) {
	s := &styleFile{src: src}
	if tree, err := p.style.ParseCtx(context.Background(), nil, src); err == nil {
		s.walk(tree.RootNode())
		tree.Close()
	}
	if strings.HasSuffix(strings.ToLower(rel), ".scss") {
		text := string(src)
		for _, m := range scssClassRe.FindAllStringSubmatch(text, -1) {
			s.classes.add(m[1])
		}
		for _, m := range scssIDRe.FindAllStringSubmatch(text, -1) {
			s.ids.add(m[1])
		}
		for _, m := range scssVariableRe.FindAllStringSubmatch(text, -1) {
			s.vars.add("$" + m[1])
		}
	}

	res.Artifacts = append(res.Artifacts, &domain.AssetArtifact{
		Path:           rel,
		Kind:           domain.AssetStyle,
		Module:         domain.ModuleOf(rel),
		StyleClasses:   s.classes.items,
		StyleIDs:       s.ids.items,
		StyleVariables: s.vars.items,
	})
}

func (s *styleFile) walk(n *sitter.Node) {
	switch n.Type() {
	case "class_name":
		s.classes.add(nodeText(n, s.src))
		return
	case "id_name":
		s.ids.add(nodeText(n, s.src))
		return
	case "property_name":
		if name := nodeText(n, s.src); strings.HasPrefix(name, "--") {
			s.vars.add(name)
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		s.walk(n.NamedChild(i))
	}
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (o *orderedSet) add(v string) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	if v != "" && !o.seen[v] {
		o.seen[v] = true
		o.items = append(o.items, v)
	}
}
