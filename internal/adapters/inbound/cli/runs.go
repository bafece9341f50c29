package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
)

func newRunsCmd(v *viper.Viper) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs [path]",
		Short: "Show scan run history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			runs, err := a.history.Runs(a.root, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return renderJSON(cmd, runs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRuns(runs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output runs as JSON")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show (0 for all)")

	return cmd
}
