package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Extensions searched for integration references.
var referenceExts = setOf(".py", ".js", ".mjs", ".xml", ".json", ".yaml", ".yml", ".html", ".css", ".scss")

// Reference is one line mentioning an integration target.
type Reference struct {
	Target   string `json:"target"`
	Category string `json:"category"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Match    string `json:"match"`
	Context  string `json:"context"`
}

// ReferenceIndex answers queries over the references found in one run.
type ReferenceIndex struct {
	Refs map[string][]Reference `json:"references"`
}

// Targets returns the integration targets with at least one reference.
func (x *ReferenceIndex) Targets() []string {
	var out []string
	for _, t := range sortedKeys(x.Refs) {
		if len(x.Refs[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// References returns all references to target sorted by file and line.
func (x *ReferenceIndex) References(target string) []Reference {
	if x == nil {
		return nil
	}
	refs := append([]Reference(nil), x.Refs[target]...)
	sortReferences(refs)
	return refs
}

// ByFile groups references to target by file, each list sorted by line.
func (x *ReferenceIndex) ByFile(target string) map[string][]Reference {
	out := make(map[string][]Reference)
	for _, r := range x.References(target) {
		out[r.File] = append(out[r.File], r)
	}
	return out
}

func sortReferences(refs []Reference) {
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].File != refs[j].File {
			return refs[i].File < refs[j].File
		}
		if refs[i].Line != refs[j].Line {
			return refs[i].Line < refs[j].Line
		}
		return refs[i].Category < refs[j].Category
	})
}

type categoryPatterns struct {
	category string
	res      []*regexp.Regexp
}

// Integration finds references to external integration targets.
type Integration struct {
	targets map[string][]categoryPatterns
}

// NewIntegration compiles the target taxonomy. A nil taxonomy uses the defaults.
func NewIntegration(taxonomy map[string]map[string][]string) (*Integration, error) {
	if len(taxonomy) == 0 {
		taxonomy = domain.DefaultIntegrations()
	}
	in := &Integration{targets: make(map[string][]categoryPatterns)}
	for target, cats := range taxonomy {
		for _, cat := range domain.IntegrationCategories {
			exprs, ok := cats[cat]
			if !ok {
				continue
			}
			cp := categoryPatterns{category: cat}
			for _, e := range exprs {
				re, err := regexp.Compile("(?i)" + e)
				if err != nil {
					return nil, fmt.Errorf("compiling %s.%s pattern %q: %w", target, cat, e, err)
				}
				cp.res = append(cp.res, re)
			}
			in.targets[target] = append(in.targets[target], cp)
		}
	}
	return in, nil
}

func (in *Integration) Name() string { return NameIntegration }

func (in *Integration) Analyze(ir *domain.IR) (*Result, error) {
	idx := &ReferenceIndex{Refs: make(map[string][]Reference)}
	for _, src := range ir.Sources {
		if !referenceExts[src.Ext()] {
			continue
		}
		for i, line := range strings.Split(src.Text, "\n") {
			for _, target := range sortedKeys(in.targets) {
				for _, cp := range in.targets[target] {
					for _, re := range cp.res {
						m := re.FindString(line)
						if m == "" {
							continue
						}
						idx.Refs[target] = append(idx.Refs[target], Reference{
							Target:   target,
							Category: cp.category,
							File:     src.Path,
							Line:     i + 1,
							Match:    m,
							Context:  truncate(strings.TrimSpace(line), 200),
						})
						break
					}
				}
			}
		}
	}

	var fs []domain.Finding
	for _, target := range sortedKeys(idx.Refs) {
		sortReferences(idx.Refs[target])
		for _, file := range sortedKeys(idx.ByFile(target)) {
			refs := idx.ByFile(target)[file]
			cats := make([]string, 0, len(refs))
			for _, r := range refs {
				cats = append(cats, r.Category)
			}
			fs = append(fs, domain.Finding{
				Severity: domain.SeverityInfo,
				Category: domain.CategoryIntegration,
				Type:     "integration_reference",
				Title:    fmt.Sprintf("%s references %s %d times", file, target, len(refs)),
				Details: domain.Details{
					File:   file,
					Entity: target,
					Line:   refs[0].Line,
					Data:   map[string]any{"count": len(refs), "categories": uniqueSorted(cats)},
				},
			})
		}
	}

	res := newResult(NameIntegration, fs)
	for target := range in.targets {
		res.Summary.Extra["refs:"+target] = len(idx.Refs[target])
		res.Summary.Extra["files:"+target] = len(idx.ByFile(target))
	}
	res.Index = idx
	return res, nil
}

// FindPattern searches every scanned source for a caller-supplied pattern.
func FindPattern(ir *domain.IR, pattern string) ([]Reference, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	var out []Reference
	for _, src := range ir.Sources {
		for i, line := range strings.Split(src.Text, "\n") {
			if m := re.FindString(line); m != "" {
				out = append(out, Reference{
					Target:   "custom",
					Category: "custom",
					File:     src.Path,
					Line:     i + 1,
					Match:    m,
					Context:  truncate(strings.TrimSpace(line), 200),
				})
			}
		}
	}
	sortReferences(out)
	return out, nil
}
