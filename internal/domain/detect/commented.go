package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
)

var pythonCodeComment = compileAll(
	`^\s*#\s*(def\s+\w+|class\s+\w+|if\s+|elif\s+|else:|for\s+|while\s+|try:|except|finally:)`,
	`^\s*#\s*(return\s+|raise\s+|yield\s+|import\s+|from\s+)`,
	`^\s*#\s*\w+\s*=\s*`,
	`^\s*#\s*(self\.\w+|super\(\))`,
	`^\s*#\s*@(api\.|staticmethod|classmethod|property)`,
	`^\s*#\s*_\w+\s*=`,
)

var scriptCodeComment = compileAll(
	`^\s*//\s*(function\s+\w+|const\s+|let\s+|var\s+)`,
	`^\s*//\s*(return\s+|throw\s+|if\s*\(|else\s*\{|for\s*\(|while\s*\()`,
	`^\s*//\s*(import\s+|export\s+|class\s+\w+)`,
	`^\s*//\s*(this\.\w+|super\()`,
	`^\s*//\s*\w+\s*[=:]\s*`,
	`^\s*//\s*(async\s+|await\s+|\.then\(|\.catch\()`,
)

var scriptBlockCode = compileAll(
	`\b(function|class|const|let|var|return|if|else|for|while)\b`,
	`=>`,
	`this\.\w+`,
	`\w+\s*[=:]\s*\w+`,
)

var markupCodeComment = compileAll(
	`^\s*<(record|template|field|button|group|tree|list|form|kanban)\b`,
	`^\s*<(menuitem|act_window|data|odoo)\b`,
	`\b(t-if|t-foreach|t-esc|t-out|t-set|t-call)\b`,
	`<\w+[^>]*>`,
)

var deletionMarkers = compileAll(
	`(?i)(#|//)\s*(TODO|FIXME|XXX|HACK)\s*:?\s*.*(delete|remove)\s*(this|code|file|method|function|class)`,
	`(?i)(#|//)\s*(DEPRECATED|OBSOLETE|DEAD\s*CODE)\s*[-:]`,
	`(?i)(#|//)\s*(TO\s*BE\s*REMOVED|REMOVE\s*ME|DELETE\s*ME|MARKED\s*FOR\s*DELETION)`,
	`(?i)(#|//)\s*(MOVED\s*TO|REPLACED\s*BY|MIGRATED\s*TO)`,
	`(?i)(#|//)\s*commented\s*(out|for|to)\s*(test|debug|review|deletion)`,
	`(?i)_old\b|_backup\b|_deprecated\b|_unused\b`,
	`(?i)(#|//)\s*(Phase\s*\d+|v\d+)\s*[-:]?\s*(DEPRECATED|removed|deleted)`,
)

// Phrases that describe what code does rather than announce dead code.
var functionalComments = compileAll(
	`(?i)remove\s*(from|older|expired|duplicate|trailing|spaces|whitespace)`,
	`(?i)delete\s*(from|older|expired|duplicate|all|record|data)`,
	`(?i)clean\s*up\s*(vendor|name|data|cache|old)`,
	`(?i)skip\s*(non|special|empty)`,
)

var (
	xmlCommentRe   = regexp.MustCompile(`<!--([\s\S]*?)-->`)
	blockCommentRe = regexp.MustCompile(`/\*([\s\S]*?)\*/`)
)

// Commented detects commented-out code and explicit deletion markers.
type Commented struct{}

// NewCommented creates the commented-code analyzer.
func NewCommented() *Commented { return &Commented{} }

func (c *Commented) Name() string { return NameCommented }

func (c *Commented) Analyze(ir *domain.IR) (*Result, error) {
	var fs []domain.Finding
	files := make(map[string]bool)
	for _, src := range ir.Sources {
		var found []domain.Finding
		switch src.Ext() {
		case ".py":
			found = append(found, lineComments(src, "#", "python", pythonCodeComment)...)
			found = append(found, markerLines(src, "#", found)...)
		case ".js", ".mjs":
			found = append(found, lineComments(src, "//", "javascript", scriptCodeComment)...)
			found = append(found, scriptBlocks(src)...)
			found = append(found, markerLines(src, "//", found)...)
		case ".xml":
			found = append(found, markupComments(src)...)
		}
		if len(found) > 0 {
			files[src.Path] = true
		}
		fs = append(fs, found...)
	}

	res := newResult(NameCommented, fs)
	blocks, markers := 0, 0
	for _, f := range res.Findings {
		if f.Type != "deletion_marker" {
			blocks++
		}
		if has, _ := f.Details.Data["has_deletion_marker"].(bool); has {
			markers++
		}
	}
	res.Summary.Extra["files_with_commented_code"] = len(files)
	res.Summary.Extra["total_commented_blocks"] = blocks
	res.Summary.Extra["deletion_markers_found"] = markers
	return res, nil
}

type commentLine struct {
	n    int
	text string
}

// lineComments groups consecutive code-like comment lines into blocks.
func lineComments(src domain.SourceFile, prefix, lang string, patterns []*regexp.Regexp) []domain.Finding {
	var out []domain.Finding
	var block []commentLine
	flush := func() {
		if f, ok := blockFinding(src, lang, block); ok {
			out = append(out, f)
		}
		block = nil
	}

	for i, line := range strings.Split(src.Text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) && matchAny(patterns, line) {
			block = append(block, commentLine{i + 1, strings.TrimRight(line, " \t\r")})
			continue
		}
		flush()
	}
	flush()
	return out
}

func blockFinding(src domain.SourceFile, lang string, block []commentLine) (domain.Finding, bool) {
	if len(block) == 0 {
		return domain.Finding{}, false
	}
	texts := make([]string, len(block))
	for i, l := range block {
		texts[i] = l.text
	}
	full := strings.Join(texts, "\n")
	if len(block) < 2 && !matchAny(deletionMarkers, full) {
		return domain.Finding{}, false
	}

	marked := !matchAny(functionalComments, full) && matchAny(deletionMarkers, full)
	preview := strings.Join(texts[:min(3, len(texts))], "\n")
	if len(texts) > 3 {
		preview += fmt.Sprintf("\n... (%d more lines)", len(texts)-3)
	}
	start, end := block[0].n, block[len(block)-1].n
	return commentFinding(src, "commented_"+lang+"_code", start, end, preview, marked), true
}

// markerLines reports deletion markers on comment lines outside the blocks
// already found.
func markerLines(src domain.SourceFile, prefix string, blocks []domain.Finding) []domain.Finding {
	var out []domain.Finding
	for i, line := range strings.Split(src.Text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, prefix) || matchAny(functionalComments, trimmed) || covered(blocks, i+1) {
			continue
		}
		if matchAny(deletionMarkers, trimmed) {
			out = append(out, commentFinding(src, "deletion_marker", i+1, i+1, truncate(trimmed, 100), true))
		}
	}
	return out
}

func covered(blocks []domain.Finding, line int) bool {
	for _, b := range blocks {
		start, _ := b.Details.Data["line_start"].(int)
		end, _ := b.Details.Data["line_end"].(int)
		if line >= start && line <= end {
			return true
		}
	}
	return false
}

func scriptBlocks(src domain.SourceFile) []domain.Finding {
	var out []domain.Finding
	for _, loc := range blockCommentRe.FindAllStringSubmatchIndex(src.Text, -1) {
		body := src.Text[loc[2]:loc[3]]
		// Documentation comments describe code; they are not dead code.
		if strings.HasPrefix(body, "*") || !matchAny(scriptBlockCode, body) {
			continue
		}
		start := strings.Count(src.Text[:loc[0]], "\n") + 1
		end := start + strings.Count(body, "\n")
		out = append(out, commentFinding(src, "commented_js_block", start, end,
			truncate(strings.TrimSpace(body), 100), matchAny(deletionMarkers, body)))
	}
	return out
}

func markupComments(src domain.SourceFile) []domain.Finding {
	var out []domain.Finding
	for _, loc := range xmlCommentRe.FindAllStringSubmatchIndex(src.Text, -1) {
		body := src.Text[loc[2]:loc[3]]
		if !matchAny(markupCodeComment, body) {
			continue
		}
		start := strings.Count(src.Text[:loc[0]], "\n") + 1
		end := start + strings.Count(body, "\n")
		out = append(out, commentFinding(src, "commented_xml_element", start, end,
			truncate(strings.TrimSpace(body), 100), matchAny(deletionMarkers, body)))
	}
	return out
}

func commentFinding(src domain.SourceFile, typ string, start, end int, preview string, marked bool) domain.Finding {
	sev := domain.SeverityInfo
	if marked {
		sev = domain.SeverityWarning
	}
	title := fmt.Sprintf("Commented-out code in %s:%d", src.Path, start)
	if typ == "deletion_marker" {
		title = fmt.Sprintf("Deletion marker in %s:%d", src.Path, start)
	}
	return domain.Finding{
		Severity:       sev,
		Category:       domain.CategoryCommentedCode,
		Type:           typ,
		Title:          title,
		Recommendation: "Delete the dead code; version control keeps the history.",
		Details: domain.Details{
			File: src.Path,
			Line: start,
			Data: map[string]any{
				"line_start":          start,
				"line_end":            end,
				"line_count":          end - start + 1,
				"preview":             preview,
				"has_deletion_marker": marked,
			},
		},
	}
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
