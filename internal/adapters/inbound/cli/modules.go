package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
)

func newModulesCmd(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "modules [path]",
		Short: "List the modules of the project",
		Long:  "List top-level directories that carry a module manifest, with the manifest metadata. Use the names with --modules.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			mods, err := a.scanner.ListModules(a.root)
			if err != nil {
				return err
			}
			if jsonOutput {
				return renderJSON(cmd, mods)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderModules(mods))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output modules as JSON")

	return cmd
}
