package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openkraft/ecoscan/internal/domain"
)

// registerResources registers all ecoscan MCP resources on the given server.
func registerResources(s *server.MCPServer, h *handlers) {
	// 1. ecoscan://report - last completed report
	s.AddResource(
		mcplib.NewResource(
			"ecoscan://report",
			"Health Report",
			mcplib.WithResourceDescription("Report of the last completed scan"),
			mcplib.WithMIMEType("application/json"),
		),
		h.reportResource,
	)

	// 2. ecoscan://findings - open findings
	s.AddResource(
		mcplib.NewResource(
			"ecoscan://findings",
			"Open Findings",
			mcplib.WithResourceDescription("Persisted findings whose triage is not closed"),
			mcplib.WithMIMEType("application/json"),
		),
		h.findingsResource,
	)

	// 3. ecoscan://runs - run history
	s.AddResource(
		mcplib.NewResource(
			"ecoscan://runs",
			"Scan Runs",
			mcplib.WithResourceDescription("Scan run history, newest first"),
			mcplib.WithMIMEType("application/json"),
		),
		h.runsResource,
	)

	// 4. ecoscan://trace/{entity} - per-entity trace (resource template)
	s.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"ecoscan://trace/{entity}",
			"Entity Trace",
			mcplib.WithTemplateDescription("Views, actions, menus and related entities of one entity"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		h.traceResource,
	)
}

func (h *handlers) reportResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	report, err := h.svc.History.LastReport(h.root)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, report)
}

func (h *handlers) findingsResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	fs, err := h.svc.Triage.List(h.root, domain.FindingFilter{Open: true})
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, fs)
}

func (h *handlers) runsResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	runs, err := h.svc.History.Runs(h.root, 0)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, runs)
}

func (h *handlers) traceResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	entity := templateArg(request.Params.Arguments, "entity")
	if entity == "" {
		return nil, errors.New("entity is required")
	}
	res, err := h.trace(ctx, entity)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, res)
}

// templateArg reads a matched template variable. Depending on the template
// operator the value arrives as a string or a one-element list.
func templateArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
