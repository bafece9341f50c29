package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/domain"
)

func newReportCmd(v *viper.Viper) *cobra.Command {
	var (
		jsonOutput bool
		runID      string
	)

	cmd := &cobra.Command{
		Use:   "report [path]",
		Short: "Show the last completed report without rescanning",
		Long:  "Show the report of the last completed run. A failed run never replaces it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			report, err := loadReport(a, runID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return renderJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().StringVar(&runID, "run", "", "Show the report of this run instead")

	return cmd
}

// loadReport returns the report of runID, or the last completed one.
func loadReport(a *app, runID string) (*domain.Report, error) {
	if runID != "" {
		return a.history.Report(a.root, runID)
	}
	report, err := a.history.LastReport(a.root)
	if err != nil {
		return nil, fmt.Errorf("%w; run `ecoscan scan` first", err)
	}
	return report, nil
}
