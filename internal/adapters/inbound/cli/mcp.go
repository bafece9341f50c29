package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mcpadapter "github.com/openkraft/ecoscan/internal/adapters/inbound/mcp"
)

func newMCPCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the ecoscan MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(v))
	return cmd
}

func newMCPServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Start ecoscan MCP server (stdio)",
		Long: "Start the ecoscan MCP server using stdio transport. This lets AI coding assistants run scans, " +
			"read reports, triage findings and trace entities.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			return server.ServeStdio(a.mcpServer())
		},
	}

	return cmd
}

func (a *app) mcpServer() *server.MCPServer {
	return mcpadapter.NewServer(a.root, version, mcpadapter.Services{
		Analyze: a.analyze,
		Triage:  a.triage,
		History: a.history,
		Modules: a.scanner,
	})
}

// NewMCPServerForTest builds the server `mcp serve` runs for path.
func NewMCPServerForTest(path string) (*server.MCPServer, error) {
	a, err := newApp(viper.New(), path)
	if err != nil {
		return nil, err
	}
	return a.mcpServer(), nil
}
