package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/application"
)

func newScanCmd(v *viper.Viper) *cobra.Command {
	var (
		jsonOutput bool
		fullPath   string
		failUnder  int
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan the project and record findings",
		Long: "Run every scanner and analyzer over the project, score its health and record the findings. " +
			"Triage decisions from earlier runs are kept.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}

			res, err := a.analyze.Analyze(cmd.Context(), a.root, application.AnalyzeOptions{Workers: workers})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if fullPath != "" {
				if err := writeFull(fullPath, res.Full); err != nil {
					return err
				}
			}

			if jsonOutput {
				if err := renderJSON(cmd, res.Report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(res.Report))
			}

			if failUnder > 0 && res.Report.HealthScore < failUnder {
				return fmt.Errorf("health score %d is below minimum %d", res.Report.HealthScore, failUnder)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().StringVar(&fullPath, "full", "", "Also write the full results (IR, analyzers, relationships) to this file")
	cmd.Flags().IntVar(&failUnder, "fail-under", 0, "Exit non-zero when the health score is below this value")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel parse and analyzer workers (default: config, then CPU count)")

	return cmd
}

func writeFull(path string, full *application.FullResults) error {
	data, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling full results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
