package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
)

// registerTools registers all ecoscan MCP tools on the given server.
func registerTools(s *server.MCPServer, h *handlers) {
	// 1. ecoscan_scan
	s.AddTool(
		mcplib.NewTool("ecoscan_scan",
			mcplib.WithDescription("Run a full scan and return the health report as JSON. Findings are recorded in the finding store."),
			mcplib.WithString("modules", mcplib.Description("Comma-separated top-level module names to restrict the scan to (exact match)")),
			mcplib.WithBoolean("include_registry", mcplib.Description("Check references against the configured registry snapshot")),
		),
		h.handleScan,
	)

	// 2. ecoscan_report
	s.AddTool(
		mcplib.NewTool("ecoscan_report",
			mcplib.WithDescription("Return the report of the last completed scan without rescanning"),
			mcplib.WithString("run_id", mcplib.Description("Report of a specific run instead of the last completed one")),
		),
		h.handleReport,
	)

	// 3. ecoscan_findings
	s.AddTool(
		mcplib.NewTool("ecoscan_findings",
			mcplib.WithDescription("List persisted findings, critical first"),
			mcplib.WithString("status", mcplib.Description("Filter by status: new, acknowledged, in_progress, resolved, wont_fix, false_positive")),
			mcplib.WithString("severity", mcplib.Description("Filter by severity: critical, warning, recommendation")),
			mcplib.WithString("category", mcplib.Description("Filter by category, e.g. orphan, dangling, external_path")),
			mcplib.WithBoolean("open", mcplib.Description("Only findings whose triage is not closed")),
		),
		h.handleFindings,
	)

	// 4. ecoscan_triage
	s.AddTool(
		mcplib.NewTool("ecoscan_triage",
			mcplib.WithDescription("Set the triage status of a finding. Later scans keep the decision."),
			mcplib.WithString("fingerprint", mcplib.Required(), mcplib.Description("Fingerprint or a unique prefix of at least 6 characters")),
			mcplib.WithString("status", mcplib.Required(), mcplib.Description("New status: new, acknowledged, in_progress, resolved, wont_fix, false_positive")),
			mcplib.WithString("note", mcplib.Description("Resolution note")),
		),
		h.handleTriage,
	)

	// 5. ecoscan_trace
	s.AddTool(
		mcplib.NewTool("ecoscan_trace",
			mcplib.WithDescription("Trace an entity to its views, actions and menus, with related entities"),
			mcplib.WithString("entity", mcplib.Required(), mcplib.Description("Entity name, e.g. sale.order")),
		),
		h.handleTrace,
	)

	// 6. ecoscan_refs
	s.AddTool(
		mcplib.NewTool("ecoscan_refs",
			mcplib.WithDescription("List references to an integration target, or lines matching a custom pattern"),
			mcplib.WithString("target", mcplib.Description("Integration target name from the configured taxonomy")),
			mcplib.WithString("pattern", mcplib.Description("Case-insensitive regular expression searched in every scanned file")),
		),
		h.handleRefs,
	)

	// 7. ecoscan_runs
	s.AddTool(
		mcplib.NewTool("ecoscan_runs",
			mcplib.WithDescription("Return scan run history, newest first"),
			mcplib.WithNumber("limit", mcplib.Description("Maximum number of runs (default 10)")),
		),
		h.handleRuns,
	)

	// 8. ecoscan_modules
	s.AddTool(
		mcplib.NewTool("ecoscan_modules",
			mcplib.WithDescription("List the modules found in the project with their manifest metadata"),
		),
		h.handleModules,
	)
}

func (h *handlers) handleScan(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	opts := application.AnalyzeOptions{
		Modules:         splitList(request.GetString("modules", "")),
		IncludeRegistry: request.GetBool("include_registry", false),
	}
	res, err := h.svc.Analyze.Analyze(ctx, h.root, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
	}
	return jsonResult(res.Report)
}

func (h *handlers) handleReport(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var (
		report *domain.Report
		err    error
	)
	if id := request.GetString("run_id", ""); id != "" {
		report, err = h.svc.History.Report(h.root, id)
	} else {
		report, err = h.svc.History.LastReport(h.root)
	}
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(report)
}

func (h *handlers) handleFindings(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	filter := domain.FindingFilter{
		Severity: domain.Severity(request.GetString("severity", "")),
		Category: request.GetString("category", ""),
		Open:     request.GetBool("open", false),
	}
	if s := request.GetString("status", ""); s != "" {
		status, err := domain.ParseStatus(s)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		filter.Status = status
	}
	fs, err := h.svc.Triage.List(h.root, filter)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(fs)
}

func (h *handlers) handleTriage(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	fp, err := request.RequireString("fingerprint")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	raw, err := request.RequireString("status")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	f, err := h.svc.Triage.SetStatus(h.root, fp, status, request.GetString("note", ""))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(f)
}

type traceResult struct {
	Entity  string     `json:"entity"`
	Trace   any        `json:"trace,omitempty"`
	Related []string   `json:"related_entities"`
	Chains  [][]string `json:"view_chains,omitempty"`
	Cycles  [][]string `json:"cycles,omitempty"`
}

func (h *handlers) handleTrace(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	entity, err := request.RequireString("entity")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res, err := h.trace(ctx, entity)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(res)
}

func (h *handlers) trace(ctx context.Context, entity string) (*traceResult, error) {
	full, err := h.svc.Analyze.Inspect(ctx, h.root, application.AnalyzeOptions{})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	m := full.Relations
	res := &traceResult{Entity: entity, Related: m.RelatedEntities(entity)}
	if t, ok := m.Trace(entity); ok {
		res.Trace = t
		for _, v := range t.Views {
			if chain := m.ViewChain(v.ID); len(chain) > 1 {
				res.Chains = append(res.Chains, chain)
			}
		}
	}
	for _, c := range m.Cycles {
		for _, e := range c {
			if e == entity {
				res.Cycles = append(res.Cycles, c)
				break
			}
		}
	}
	return res, nil
}

func (h *handlers) handleRefs(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	target := request.GetString("target", "")
	pattern := request.GetString("pattern", "")
	if target == "" && pattern == "" {
		return errorResult("either target or pattern is required"), nil
	}
	full, err := h.svc.Analyze.Inspect(ctx, h.root, application.AnalyzeOptions{})
	if err != nil {
		return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
	}

	var refs []detect.Reference
	if pattern != "" {
		refs, err = detect.FindPattern(full.IR, pattern)
		if err != nil {
			return errorResult(err.Error()), nil
		}
	} else if res := full.Analyzers[detect.NameIntegration]; res != nil {
		refs = res.Index.References(target)
	}
	return jsonResult(refs)
}

func (h *handlers) handleRuns(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runs, err := h.svc.History.Runs(h.root, request.GetInt("limit", 10))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(runs)
}

func (h *handlers) handleModules(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	mods, err := h.svc.Modules.ListModules(h.root)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(mods)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
