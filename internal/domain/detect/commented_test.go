package detect_test

import (
	"testing"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentedPython = `# def old():
#     return 1
x = 2
# DEPRECATED: remove after migration
# remove trailing whitespace
# y = 3
`

const commentedScript = `/** Documents function foo */
/* const x = 1; */
export const y = 2;
`

const commentedMarkup = `<odoo>
    <!-- <field name="legacy"/> -->
    <!-- plain note -->
</odoo>
`

func commentedIR() *domain.IR {
	ir := domain.NewIR("/src")
	ir.Sources = []domain.SourceFile{
		{Path: "m/models/a.py", Module: "m", Text: commentedPython},
		{Path: "m/static/src/a.js", Module: "m", Text: commentedScript},
		{Path: "m/views/a.xml", Module: "m", Text: commentedMarkup},
	}
	return ir
}

func TestCommented_PythonBlock(t *testing.T) {
	blocks := ofType(analyze(t, detect.NewCommented(), commentedIR()), "commented_python_code")
	require.Len(t, blocks, 1)
	f := blocks[0]
	assert.Equal(t, domain.SeverityInfo, f.Severity)
	assert.Equal(t, 1, f.Details.Data["line_start"])
	assert.Equal(t, 2, f.Details.Data["line_end"])
	assert.Equal(t, false, f.Details.Data["has_deletion_marker"])
}

func TestCommented_DeletionMarkerSkipsFunctionalComments(t *testing.T) {
	markers := ofType(analyze(t, detect.NewCommented(), commentedIR()), "deletion_marker")
	require.Len(t, markers, 1)
	assert.Equal(t, 4, markers[0].Details.Line)
	assert.Equal(t, domain.SeverityWarning, markers[0].Severity)
}

func TestCommented_ScriptAndMarkup(t *testing.T) {
	res := analyze(t, detect.NewCommented(), commentedIR())

	js := ofType(res, "commented_js_block")
	require.Len(t, js, 1)
	assert.Equal(t, 2, js[0].Details.Line)

	xml := ofType(res, "commented_xml_element")
	require.Len(t, xml, 1)
	assert.Equal(t, 2, xml[0].Details.Line)
}

func TestCommented_Summary(t *testing.T) {
	res := analyze(t, detect.NewCommented(), commentedIR())
	assert.Equal(t, 3, res.Summary.Extra["files_with_commented_code"])
	assert.Equal(t, 3, res.Summary.Extra["total_commented_blocks"])
	assert.Equal(t, 1, res.Summary.Extra["deletion_markers_found"])
}

func TestCommented_MarkedBlockIsWarning(t *testing.T) {
	ir := domain.NewIR("/src")
	ir.Sources = []domain.SourceFile{{Path: "m/models/b.py", Module: "m", Text: "# TODO: delete this method\n# def compute_old(self):\n#     return self.x\n"}}

	blocks := ofType(analyze(t, detect.NewCommented(), ir), "commented_python_code")
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.SeverityWarning, blocks[0].Severity)
	assert.Equal(t, 2, blocks[0].Details.Line)
}

func TestCommented_MarkedLineReportedOnce(t *testing.T) {
	ir := domain.NewIR("/src")
	ir.Sources = []domain.SourceFile{{Path: "m/models/c.py", Module: "m", Text: "x = 1\n# total_old = compute(x)\n"}}

	res := analyze(t, detect.NewCommented(), ir)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "commented_python_code", res.Findings[0].Type)
	assert.Equal(t, 2, res.Findings[0].Details.Line)
	assert.Equal(t, domain.SeverityWarning, res.Findings[0].Severity)
	assert.Equal(t, 1, res.Summary.Extra["deletion_markers_found"])
}
