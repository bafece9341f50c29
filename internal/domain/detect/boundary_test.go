package detect_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoundary(t *testing.T) *detect.Boundary {
	t.Helper()
	b, err := detect.NewBoundary(domain.DefaultConfig().Boundary, "/work/github-repos/myrepo")
	require.NoError(t, err)
	return b
}

func withSource(path, text string) *domain.IR {
	ir := domain.NewIR("/work/github-repos/myrepo")
	ir.Sources = append(ir.Sources, domain.SourceFile{Path: path, Module: domain.ModuleOf(path), Text: text})
	return ir
}

func TestBoundary_HardcodedPathIsCritical(t *testing.T) {
	ir := withSource("m/models/load.py", `DATA = "/opt/github-repos/other-repo/data.csv"`+"\n")

	res := analyze(t, newBoundary(t), ir)
	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, detect.TypeHardcodedPath, f.Type)
	assert.Equal(t, domain.SeverityCritical, f.Severity)
	assert.Equal(t, domain.CategoryExternalPath, f.Category)
	assert.Equal(t, 1, f.Details.Line)
	assert.NotEmpty(t, f.Recommendation)
}

func TestBoundary_HomeRepositoryIsNotExternal(t *testing.T) {
	ir := withSource("m/models/load.py", `DATA = "/opt/github-repos/myrepo/data.csv"`+"\n")
	assert.Empty(t, analyze(t, newBoundary(t), ir).Findings)
}

func TestBoundary_CommentLinesAreSkipped(t *testing.T) {
	cases := map[string]string{
		"m/models/a.py":       `# see /opt/github-repos/other/x`,
		"m/static/src/a.js":   `// see /opt/github-repos/other/x`,
		"m/static/src/b.js":   ` * see /opt/github-repos/other/x`,
		"m/views/a.xml":       `<!-- /opt/github-repos/other/x -->`,
		"m/static/src/a.scss": `/opt/github-repos/other/x`,
	}
	for path, text := range cases {
		t.Run(path, func(t *testing.T) {
			assert.Empty(t, analyze(t, newBoundary(t), withSource(path, text)).Findings)
		})
	}
}

func TestBoundary_RelativeEscapeIsWarning(t *testing.T) {
	ir := withSource("m/static/src/load.js", `fetch("../../../shared/config.json");`)

	res := analyze(t, newBoundary(t), ir)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, detect.TypeRelativeEscape, res.Findings[0].Type)
	assert.Equal(t, domain.SeverityWarning, res.Findings[0].Severity)
}

func TestBoundary_RelativeEscapeFollowsDepth(t *testing.T) {
	ir := withSource("m/static/src/load.js", `fetch("../../shared/config.json");`)
	assert.Empty(t, analyze(t, newBoundary(t), ir).Findings, "two levels stay below the default depth")

	cfg := domain.DefaultConfig().Boundary
	cfg.EscapeDepth = 2
	shallow, err := detect.NewBoundary(cfg, "/work/github-repos/myrepo")
	require.NoError(t, err)

	res := analyze(t, shallow, ir)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, detect.TypeRelativeEscape, res.Findings[0].Type)
}

func TestBoundary_OneFindingPerLineAndType(t *testing.T) {
	ir := withSource("m/models/a.py", `A, B = "/x/github-repos/one/a", "/y/github-repos/two/b"`)
	assert.Len(t, analyze(t, newBoundary(t), ir).Findings, 1)
}

func TestBoundary_SuspiciousFileOperation(t *testing.T) {
	ir := domain.NewIR("/work/github-repos/myrepo")
	ir.Facts = append(ir.Facts, domain.FileFacts{
		Path:   "m/models/io.py",
		Module: "m",
		Calls: []domain.CallSite{
			{Func: "open", StringArgs: []string{"/srv/github-repos/other/data.csv"}, Line: 4, EnclosingFn: "load"},
			{Func: "os.path.join", StringArgs: []string{"../../../elsewhere"}, Line: 7},
			{Func: "open", StringArgs: []string{"data/local.csv"}, Line: 9},
			{Func: "print", StringArgs: []string{"/srv/github-repos/other/data.csv"}, Line: 11},
			{Func: "open", StringArgs: []string{"/srv/github-repos/myrepo/data.csv"}, Line: 12},
		},
	})

	ops := ofType(analyze(t, newBoundary(t), ir), detect.TypeSuspiciousOp)
	require.Len(t, ops, 2)
	byLine := map[int]domain.Finding{}
	for _, f := range ops {
		byLine[f.Details.Line] = f
	}
	assert.Equal(t, domain.SeverityCritical, byLine[4].Severity)
	assert.Equal(t, "load", byLine[4].Details.Data["enclosing"])
	assert.Equal(t, domain.SeverityWarning, byLine[7].Severity)
}

func TestBoundary_ExternalImport(t *testing.T) {
	ir := domain.NewIR("/work/github-repos/myrepo")
	ir.Facts = append(ir.Facts, domain.FileFacts{
		Path:   "m/models/bridge.py",
		Module: "m",
		Imports: []domain.Import{
			{Module: "odoo", Line: 1},
			{Module: "workflow_automator.client", Name: "Client", Line: 2},
		},
	})

	imports := ofType(analyze(t, newBoundary(t), ir), detect.TypeExternalImport)
	require.Len(t, imports, 1)
	assert.Equal(t, "workflow_automator.client", imports[0].Details.Entity)
	assert.Equal(t, domain.SeverityWarning, imports[0].Severity)
}

func TestBoundary_ExplicitHomeRepo(t *testing.T) {
	cfg := domain.DefaultConfig().Boundary
	cfg.HomeRepo = "other-repo"
	b, err := detect.NewBoundary(cfg, "/anywhere/checkout")
	require.NoError(t, err)

	ir := withSource("m/models/load.py", `DATA = "/opt/github-repos/other-repo/data.csv"`)
	assert.Empty(t, analyze(t, b, ir).Findings)
}
