package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
)

// envPrefix namespaces environment overrides, e.g. ECOSCAN_STATE_DIR.
const envPrefix = "ECOSCAN"

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ecoscan",
		Short: "Static health checks for Odoo-style module trees",
		Long: "ecoscan scans a tree of addon modules, finds duplicates, orphans, dangling references and " +
			"boundary violations, and keeps a triaged record of every finding across runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringP("path", "C", ".", "Project root")
	pf.StringSlice("modules", nil, "Only scan these top-level modules (exact names)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error, off")
	pf.Bool("log-json", false, "Log as JSON")
	pf.Bool("include-registry", false, "Check references against the registry snapshot")
	pf.String("registry-snapshot", "", "Registry snapshot JSON, relative to the project root")
	pf.String("state-dir", "", "Directory for findings and run history, relative to the project root")
	for _, name := range []string{"modules", "log-level", "log-json", "include-registry", "registry-snapshot", "state-dir"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd(v))
	cmd.AddCommand(newReportCmd(v))
	cmd.AddCommand(newFindingsCmd(v))
	cmd.AddCommand(newRunsCmd(v))
	cmd.AddCommand(newTraceCmd(v))
	cmd.AddCommand(newRefsCmd(v))
	cmd.AddCommand(newModulesCmd(v))
	cmd.AddCommand(newExportCmd(v))
	cmd.AddCommand(newWatchCmd(v))
	cmd.AddCommand(newMCPCmd(v))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}
