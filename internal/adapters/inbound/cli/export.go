package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/sarif"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	var (
		format string
		output string
		runID  string
	)

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export a stored report as JSON or SARIF",
		Long:  "Export the last completed report, or the report of --run, for CI systems and code scanning tools.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "sarif" {
				return fmt.Errorf("unknown format %q (want json or sarif)", format)
			}
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			report, err := loadReport(a, runID)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if format == "sarif" {
				return sarif.Write(w, report)
			}
			return writeJSON(w, report)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or sarif")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&runID, "run", "", "Export the report of this run instead")

	return cmd
}
