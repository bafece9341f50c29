package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain/detect"
)

func newRefsCmd(v *viper.Viper) *cobra.Command {
	var (
		jsonOutput bool
		pattern    string
	)

	cmd := &cobra.Command{
		Use:   "refs [TARGET]",
		Short: "List references to an integration target or a custom pattern",
		Long: "Scan the project without recording a run and list every line referencing TARGET, " +
			"a name from the configured integration taxonomy. With --pattern, search for a " +
			"case-insensitive regular expression instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && pattern == "" {
				return errors.New("either TARGET or --pattern is required")
			}

			a, err := newApp(v, projectPath(cmd, nil))
			if err != nil {
				return err
			}
			full, err := a.analyze.Inspect(cmd.Context(), a.root, application.AnalyzeOptions{})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			var (
				label string
				refs  []detect.Reference
			)
			if pattern != "" {
				label = pattern
				refs, err = detect.FindPattern(full.IR, pattern)
				if err != nil {
					return err
				}
			} else {
				label = args[0]
				res := full.Analyzers[detect.NameIntegration]
				if res == nil || res.Index == nil {
					return errors.New("integration analyzer produced no index")
				}
				if _, ok := a.cfg.Integrations[label]; !ok {
					return fmt.Errorf("unknown integration target %q", label)
				}
				refs = res.Index.References(label)
			}

			if jsonOutput {
				if refs == nil {
					refs = []detect.Reference{}
				}
				return renderJSON(cmd, refs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReferences(label, refs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output references as JSON")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Search this regular expression instead of a target")

	return cmd
}
