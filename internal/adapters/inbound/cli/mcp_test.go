package cli_test

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkraft/ecoscan/internal/adapters/inbound/cli"
	"github.com/openkraft/ecoscan/internal/domain"
)

func TestMCPServe_RegistersEcoscanTools(t *testing.T) {
	s, err := cli.NewMCPServerForTest(fixture(t))
	require.NoError(t, err)

	tools := s.ListTools()
	for _, name := range []string{
		"ecoscan_scan", "ecoscan_report", "ecoscan_findings", "ecoscan_triage",
		"ecoscan_trace", "ecoscan_refs", "ecoscan_runs", "ecoscan_modules",
	} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 8)
}

func TestMCPServe_ToolsUseProjectRoot(t *testing.T) {
	s, err := cli.NewMCPServerForTest(fixture(t))
	require.NoError(t, err)

	tool, ok := s.ListTools()["ecoscan_modules"]
	require.True(t, ok)
	var req mcplib.CallToolRequest
	req.Params.Name = "ecoscan_modules"
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	var mods []domain.ModuleInfo
	require.NoError(t, json.Unmarshal([]byte(text.Text), &mods))
	require.Len(t, mods, 2)
	assert.Equal(t, "sales_ext", mods[0].Name)
	assert.Equal(t, "tasks_core", mods[1].Name)
}

func TestMCPServeCommandExists(t *testing.T) {
	out, err := run(t, "mcp", "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "stdio")
}
