package detect_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationIR() *domain.IR {
	ir := domain.NewIR("/src")
	ir.Sources = []domain.SourceFile{
		{Path: "m/models/hook.py", Module: "m", Text: "N8N_WEBHOOK_URL = \"https://n8n.local/webhook/abc\"\n# plain line\nclient = N8nClient()\n"},
		{Path: "m/static/src/x.js", Module: "m", Text: "const url = \"/webhook/n8n\";\n"},
		{Path: "m/README.txt", Module: "m", Text: "n8n n8n n8n\n"},
	}
	return ir
}

func TestIntegration_OneFindingPerTargetAndFile(t *testing.T) {
	in, err := detect.NewIntegration(nil)
	require.NoError(t, err)
	res := analyze(t, in, integrationIR())

	require.Len(t, res.Findings, 2)
	for _, f := range res.Findings {
		assert.Equal(t, domain.SeverityInfo, f.Severity)
		assert.Equal(t, domain.CategoryIntegration, f.Category)
		assert.Equal(t, "n8n", f.Details.Entity)
	}
	assert.Equal(t, 5, res.Summary.Extra["refs:n8n"])
	assert.Equal(t, 2, res.Summary.Extra["files:n8n"])
	assert.Equal(t, 0, res.Summary.Extra["refs:ai_automator"])
}

func TestIntegration_ReferenceIndex(t *testing.T) {
	in, err := detect.NewIntegration(nil)
	require.NoError(t, err)
	idx := analyze(t, in, integrationIR()).Index
	require.NotNil(t, idx)

	assert.Equal(t, []string{"n8n"}, idx.Targets())
	refs := idx.References("n8n")
	require.Len(t, refs, 5)
	assert.Equal(t, "m/models/hook.py", refs[0].File)
	assert.Equal(t, 1, refs[0].Line)
	assert.Equal(t, "m/static/src/x.js", refs[4].File)

	byFile := idx.ByFile("n8n")
	assert.Len(t, byFile["m/models/hook.py"], 3)
	assert.Len(t, byFile["m/static/src/x.js"], 2)
}

func TestIntegration_CustomTaxonomy(t *testing.T) {
	in, err := detect.NewIntegration(map[string]map[string][]string{
		"stripe": {"api": {`api\.stripe\.com`}},
	})
	require.NoError(t, err)
	ir := domain.NewIR("/src")
	ir.Sources = []domain.SourceFile{{Path: "m/models/pay.py", Module: "m", Text: "URL = 'https://API.stripe.com/v1'\n"}}

	res := analyze(t, in, ir)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, []string{"api"}, res.Findings[0].Details.Data["categories"])

	_, err = detect.NewIntegration(map[string]map[string][]string{"bad": {"api": {"("}}})
	assert.Error(t, err)
}

func TestFindPattern(t *testing.T) {
	refs, err := detect.FindPattern(integrationIR(), `n8nclient`)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 3, refs[0].Line)

	_, err = detect.FindPattern(integrationIR(), "(")
	assert.Error(t, err)
}
