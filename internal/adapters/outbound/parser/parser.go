// Package parser turns single source files into IR records. Python, script
// and style files go through tree-sitter; declarative records use
// encoding/xml. A Parser is not safe for concurrent use: the scanner creates
// one per worker goroutine.
package parser

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Result is everything extracted from one file.
type Result struct {
	// Scanner is the scanner name the file belongs to (domain.Scanner*).
	Scanner   string
	Artifacts []domain.Artifact
	Facts     *domain.FileFacts
	// InitImports holds the names a package __init__.py imports.
	InitImports []string
	Module      *domain.ModuleInfo
	Bundles     []domain.Bundle
	Errors      []domain.ParseError
}

// Parser holds one tree-sitter parser per grammar.
type Parser struct {
	python *sitter.Parser
	script *sitter.Parser
	style  *sitter.Parser
}

func New() *Parser {
	return &Parser{
		python: newSitter(python.GetLanguage()),
		script: newSitter(javascript.GetLanguage()),
		style:  newSitter(css.GetLanguage()),
	}
}

func newSitter(lang *sitter.Language) *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return p
}

// Close releases the underlying tree-sitter parsers.
func (p *Parser) Close() {
	p.python.Close()
	p.script.Close()
	p.style.Close()
}

// ScannerFor reports which scanner owns rel, or "" when no scanner reads it.
func ScannerFor(rel string) string {
	switch strings.ToLower(path.Ext(rel)) {
	case ".py":
		return domain.ScannerCode
	case ".xml":
		return domain.ScannerRecords
	case ".js", ".mjs", ".css", ".scss":
		return domain.ScannerAssets
	}
	return ""
}

// IsManifest reports whether rel is a module manifest at the top of a module.
func IsManifest(rel string) bool {
	base := path.Base(rel)
	return (base == "__manifest__.py" || base == "__openerp__.py") && strings.Count(rel, "/") == 1
}

// Parse extracts records from src. rel is the root-relative slash path.
// Failures are returned as Result.Errors, never as a Go error.
func (p *Parser) Parse(rel string, src []byte) *Result {
	res := &Result{Scanner: ScannerFor(rel)}
	switch {
	case IsManifest(rel):
		p.parseManifest(rel, src, res)
	case res.Scanner == domain.ScannerCode:
		p.parsePython(rel, src, res)
	case res.Scanner == domain.ScannerRecords:
		parseRecords(rel, src, res)
	case res.Scanner == domain.ScannerAssets && isStyle(rel):
		p.parseStyle(rel, src, res)
	case res.Scanner == domain.ScannerAssets:
		p.parseScript(rel, src, res)
	}
	return res
}

func isStyle(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	return ext == ".css" || ext == ".scss"
}

func (r *Result) fail(rel string, line int, msg string) {
	r.Errors = append(r.Errors, domain.ParseError{
		File:    rel,
		Scanner: r.Scanner,
		Message: msg,
		Line:    line,
	})
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func lineRange(n *sitter.Node) domain.LineRange {
	return domain.LineRange{Start: startLine(n), End: int(n.EndPoint().Row) + 1}
}

// namedChildren skips comment nodes.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.HasError() && !c.IsMissing() {
			continue
		}
		if e := firstError(c); e != nil {
			return e
		}
	}
	return nil
}
