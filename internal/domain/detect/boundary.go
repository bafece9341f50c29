package detect

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

// Boundary finding types.
const (
	TypeHardcodedPath  = "hardcoded_external_path"
	TypeRelativeEscape = "relative_path_escape"
	TypeSuspiciousOp   = "suspicious_file_operation"
	TypeExternalImport = "external_import"
)

// BoundaryTypes lists every finding type the boundary analyzer emits.
var BoundaryTypes = []string{TypeHardcodedPath, TypeRelativeEscape, TypeSuspiciousOp, TypeExternalImport}

var remediation = map[string]string{
	TypeHardcodedPath:  "Replace the absolute path with configuration (ir.config_parameter) or a path relative to the module via get_module_path().",
	TypeRelativeEscape: "Keep file access inside the module directory; ship the data with the module instead of reaching into siblings.",
	TypeSuspiciousOp:   "Read the location from configuration and validate it stays inside the module before touching the filesystem.",
	TypeExternalImport: "Depend on the other project through a declared module dependency or an API, not a direct import.",
}

// Last-segment names of calls that touch the filesystem.
var fileOperations = setOf(
	"open", "read", "write", "read_text", "write_text", "read_bytes", "write_bytes",
	"mkdir", "rmdir", "unlink", "copy", "move", "rename", "exists", "is_file",
	"is_dir", "glob", "rglob", "iterdir", "listdir", "walk",
)

// Calls that build paths.
var pathConstructions = setOf(
	"Path", "os.path.join", "abspath", "dirname", "realpath", "pathlib.Path", "join",
)

type boundaryPattern struct {
	re *regexp.Regexp
	// checkHome skips matches immediately followed by the home repository.
	checkHome bool
}

// Boundary flags references that escape the scanned repository.
type Boundary struct {
	cfg      domain.BoundaryConf
	home     string
	patterns []boundaryPattern
}

// NewBoundary compiles the heuristics. An empty home repository defaults to
// the base name of root.
func NewBoundary(cfg domain.BoundaryConf, root string) (*Boundary, error) {
	def := domain.DefaultConfig().Boundary
	if cfg.ReposMarker == "" {
		cfg.ReposMarker = def.ReposMarker
	}
	if cfg.EscapeDepth == 0 {
		cfg.EscapeDepth = def.EscapeDepth
	}
	home := cfg.HomeRepo
	if home == "" && root != "" {
		home = filepath.Base(root)
	}

	marker := regexp.QuoteMeta(cfg.ReposMarker)
	srcs := []struct {
		expr      string
		checkHome bool
	}{
		{`(?i)[A-Za-z]:\\[^"']*` + marker + `\\`, true},
		{`(?i)/[^"']*` + marker + `/`, true},
		{escapePattern(cfg.EscapeDepth), false},
	}
	for _, frag := range cfg.ExternalFragments {
		srcs = append(srcs, struct {
			expr      string
			checkHome bool
		}{`(?i)` + regexp.QuoteMeta(frag), false})
	}

	b := &Boundary{cfg: cfg, home: strings.ToLower(home)}
	for _, s := range srcs {
		re, err := regexp.Compile(s.expr)
		if err != nil {
			return nil, fmt.Errorf("compiling boundary pattern %q: %w", s.expr, err)
		}
		b.patterns = append(b.patterns, boundaryPattern{re: re, checkHome: s.checkHome})
	}
	return b, nil
}

// escapePattern matches depth consecutive parent-directory steps.
func escapePattern(depth int) string {
	return fmt.Sprintf(`(?:\.\.[/\\]){%d}\.\.`, depth-1)
}

func (b *Boundary) Name() string { return NameBoundary }

func (b *Boundary) Analyze(ir *domain.IR) (*Result, error) {
	var fs []domain.Finding
	for _, src := range ir.Sources {
		fs = append(fs, b.scanText(src)...)
	}
	for _, facts := range ir.Facts {
		fs = append(fs, b.scanCalls(facts)...)
		fs = append(fs, b.scanImports(facts)...)
	}
	return newResult(NameBoundary, fs), nil
}

func commentPrefixes(ext string) []string {
	switch ext {
	case ".py":
		return []string{"#"}
	case ".js", ".mjs":
		return []string{"//", "/*", "*"}
	case ".xml":
		return []string{"<!--"}
	}
	return nil
}

func (b *Boundary) scanText(src domain.SourceFile) []domain.Finding {
	ext := src.Ext()
	prefixes := commentPrefixes(ext)
	if prefixes == nil {
		return nil
	}

	var out []domain.Finding
	for i, line := range strings.Split(src.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || hasAnyPrefix(trimmed, prefixes) {
			continue
		}
		seen := make(map[string]bool)
		for _, p := range b.patterns {
			for _, loc := range p.re.FindAllStringIndex(line, -1) {
				if p.checkHome && b.home != "" && strings.HasPrefix(strings.ToLower(line[loc[1]:]), b.home) {
					continue
				}
				match := line[loc[0]:loc[1]]
				typ, sev := b.classify(match)
				if seen[typ] {
					continue
				}
				seen[typ] = true
				out = append(out, domain.Finding{
					Severity:       sev,
					Category:       domain.CategoryExternalPath,
					Type:           typ,
					Title:          fmt.Sprintf("%s:%d references a path outside the repository", src.Path, i+1),
					Recommendation: remediation[typ],
					Details: domain.Details{
						File:   src.Path,
						Entity: match,
						Line:   i + 1,
						Data:   map[string]any{"line_content": truncate(trimmed, 200), "match": match},
					},
				})
			}
		}
	}
	return out
}

func (b *Boundary) classify(match string) (string, domain.Severity) {
	lower := strings.ToLower(match)
	switch {
	case strings.Contains(lower, strings.ToLower(b.cfg.ReposMarker)):
		return TypeHardcodedPath, domain.SeverityCritical
	case strings.Contains(match, ".."):
		return TypeRelativeEscape, domain.SeverityWarning
	default:
		return TypeHardcodedPath, domain.SeverityWarning
	}
}

// external reports whether a literal looks like a path into another project.
func (b *Boundary) external(s string) bool {
	lower := strings.ToLower(s)
	marker := strings.ToLower(b.cfg.ReposMarker)
	if strings.Contains(lower, marker) && (b.home == "" || !strings.Contains(lower, marker+"/"+b.home) && !strings.Contains(lower, marker+`\`+b.home)) {
		return true
	}
	for _, frag := range b.cfg.ExternalFragments {
		if strings.Contains(lower, strings.ToLower(frag)) {
			return true
		}
	}
	return strings.Count(s, "..") >= b.cfg.EscapeDepth
}

func isPathCall(fn string) bool {
	if pathConstructions[fn] {
		return true
	}
	last := fn
	if i := strings.LastIndexByte(fn, '.'); i >= 0 {
		last = fn[i+1:]
	}
	return fileOperations[last] || pathConstructions[last]
}

func (b *Boundary) scanCalls(facts domain.FileFacts) []domain.Finding {
	var out []domain.Finding
	for _, call := range facts.Calls {
		if !isPathCall(call.Func) {
			continue
		}
		for _, arg := range call.StringArgs {
			if !b.external(arg) {
				continue
			}
			sev := domain.SeverityWarning
			if strings.Contains(strings.ToLower(arg), strings.ToLower(b.cfg.ReposMarker)) {
				sev = domain.SeverityCritical
			}
			out = append(out, domain.Finding{
				Severity:       sev,
				Category:       domain.CategoryExternalPath,
				Type:           TypeSuspiciousOp,
				Title:          fmt.Sprintf("%s() called with external path %q", call.Func, arg),
				Recommendation: remediation[TypeSuspiciousOp],
				Details: domain.Details{
					File:       facts.Path,
					Entity:     call.Func,
					ArtifactID: arg,
					Line:       call.Line,
					Data:       map[string]any{"function": call.Func, "argument": arg, "enclosing": call.EnclosingFn},
				},
			})
		}
	}
	return out
}

func (b *Boundary) scanImports(facts domain.FileFacts) []domain.Finding {
	var out []domain.Finding
	for _, imp := range facts.Imports {
		name := imp.Module
		if name == "" {
			continue
		}
		for _, frag := range b.cfg.ImportFragments {
			if !strings.Contains(strings.ToLower(name), strings.ToLower(frag)) {
				continue
			}
			out = append(out, domain.Finding{
				Severity:       domain.SeverityWarning,
				Category:       domain.CategoryExternalPath,
				Type:           TypeExternalImport,
				Title:          fmt.Sprintf("Import of external module %s", name),
				Recommendation: remediation[TypeExternalImport],
				Details: domain.Details{
					File:   facts.Path,
					Entity: name,
					Line:   imp.Line,
					Data:   map[string]any{"import": name, "name": imp.Name},
				},
			})
			break
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
