package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpadapter "github.com/openkraft/ecoscan/internal/adapters/inbound/mcp"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/config"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/findings"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/history"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/scanner"
	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain"
)

var project = map[string]string{
	"tasks/__manifest__.py":    `{'name': 'Tasks', 'version': '17.0.1.0.0', 'depends': ['base']}`,
	"tasks/__init__.py":        "from . import models\n",
	"tasks/models/__init__.py": "from . import task\n",
	"tasks/models/task.py": `from odoo import fields, models


class Task(models.Model):
    _name = 'task'

    name = fields.Char()
`,
	"tasks/views/task.xml": `<odoo>
    <record id="view_task_form" model="ir.ui.view">
        <field name="model">task</field>
        <field name="arch" type="xml">
            <form>
                <field name="name"/>
                <field name="owner"/>
            </form>
        </field>
    </record>
    <record id="action_task" model="ir.actions.act_window">
        <field name="name">Tasks</field>
        <field name="res_model">task</field>
    </record>
    <menuitem id="menu_task" name="Tasks" action="action_task"/>
</odoo>
`,
}

func newServer(t *testing.T) (*server.MCPServer, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range project {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	store := findings.New("")
	runs := history.New("")
	sc := scanner.New()
	s := mcpadapter.NewServer(root, "test", mcpadapter.Services{
		Analyze: application.NewAnalyzeService(sc, config.New(), store, runs),
		Triage:  application.NewTriageService(store),
		History: application.NewHistoryService(runs),
		Modules: sc,
	})
	return s, root
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()
	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %q should be registered", name)

	var req mcplib.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestMCPServerHasTools(t *testing.T) {
	s, _ := newServer(t)

	tools := s.ListTools()
	expectedTools := []string{
		"ecoscan_scan",
		"ecoscan_report",
		"ecoscan_findings",
		"ecoscan_triage",
		"ecoscan_trace",
		"ecoscan_refs",
		"ecoscan_runs",
		"ecoscan_modules",
	}
	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}
	assert.Len(t, tools, len(expectedTools))
}

func TestScanThenTriage(t *testing.T) {
	s, _ := newServer(t)

	_, isErr := call(t, s, "ecoscan_report", nil)
	assert.True(t, isErr, "no report before the first scan")

	out, isErr := call(t, s, "ecoscan_scan", nil)
	require.False(t, isErr, out)
	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotEmpty(t, report.Warnings)
	assert.Equal(t, []string{"tasks"}, report.ModulesAnalyzed)

	var dangling *domain.Finding
	for i, f := range report.Warnings {
		if f.Type == "dangling_field_refs" {
			dangling = &report.Warnings[i]
		}
	}
	require.NotNil(t, dangling)

	out, isErr = call(t, s, "ecoscan_triage", map[string]any{
		"fingerprint": dangling.Fingerprint[:8],
		"status":      "acknowledged",
		"note":        "owner field lands next sprint",
	})
	require.False(t, isErr, out)
	var triaged domain.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &triaged))
	assert.Equal(t, domain.StatusAcknowledged, triaged.Status)
	assert.Equal(t, "owner field lands next sprint", triaged.ResolutionNote)

	out, isErr = call(t, s, "ecoscan_findings", map[string]any{"status": "acknowledged"})
	require.False(t, isErr, out)
	var listed []domain.Finding
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, dangling.Fingerprint, listed[0].Fingerprint)

	out, isErr = call(t, s, "ecoscan_report", nil)
	require.False(t, isErr, out)
	assert.Contains(t, out, report.RunID)

	out, isErr = call(t, s, "ecoscan_runs", map[string]any{"limit": float64(5)})
	require.False(t, isErr, out)
	var runs []domain.ScanRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunCompleted, runs[0].State)
}

func TestTriageRejectsUnknownStatus(t *testing.T) {
	s, _ := newServer(t)
	out, isErr := call(t, s, "ecoscan_triage", map[string]any{"fingerprint": "abcdef12", "status": "done"})
	assert.True(t, isErr)
	assert.Contains(t, out, "done")
}

func TestTrace(t *testing.T) {
	s, _ := newServer(t)
	out, isErr := call(t, s, "ecoscan_trace", map[string]any{"entity": "task"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "view_task_form")
	assert.Contains(t, out, "action_task")
	assert.Contains(t, out, "menu_task")
	assert.Contains(t, out, `"complete": true`)
}

func TestRefs(t *testing.T) {
	s, _ := newServer(t)

	_, isErr := call(t, s, "ecoscan_refs", nil)
	assert.True(t, isErr, "target or pattern is required")

	out, isErr := call(t, s, "ecoscan_refs", map[string]any{"pattern": "OWNER"})
	require.False(t, isErr, out)
	assert.Contains(t, out, "tasks/views/task.xml")

	_, isErr = call(t, s, "ecoscan_refs", map[string]any{"pattern": "("})
	assert.True(t, isErr)
}

func TestModules(t *testing.T) {
	s, _ := newServer(t)
	out, isErr := call(t, s, "ecoscan_modules", nil)
	require.False(t, isErr, out)
	assert.Contains(t, out, `"Tasks"`)
	assert.Contains(t, out, "17.0.1.0.0")
}
