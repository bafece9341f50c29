// Package mcp exposes the scan pipeline, finding triage and relationship
// queries to coding assistants over the Model Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain"
)

// ModuleLister discovers the modules of a source tree.
type ModuleLister interface {
	ListModules(root string) ([]domain.ModuleInfo, error)
}

// Services are the application entry points the server calls.
type Services struct {
	Analyze *application.AnalyzeService
	Triage  *application.TriageService
	History *application.HistoryService
	Modules ModuleLister
}

// NewServer creates an MCP server bound to projectPath with every ecoscan
// tool and resource registered.
func NewServer(projectPath, version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"ecoscan",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	h := &handlers{root: projectPath, svc: svc}
	registerTools(s, h)
	registerResources(s, h)

	return s
}

type handlers struct {
	root string
	svc  Services
}
