package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain/relations"
)

// traceOutput is the JSON shape of `trace --json`.
type traceOutput struct {
	Entity  string           `json:"entity"`
	Trace   *relations.Trace `json:"trace,omitempty"`
	Related []string         `json:"related_entities"`
}

func newTraceCmd(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "trace ENTITY",
		Short: "Trace an entity to its views, actions and menus",
		Long:  "Scan the project without recording a run and show how ENTITY is reachable from the UI.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, nil))
			if err != nil {
				return err
			}
			full, err := a.analyze.Inspect(cmd.Context(), a.root, application.AnalyzeOptions{})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			entity := args[0]
			if jsonOutput {
				out := traceOutput{Entity: entity, Related: full.Relations.RelatedEntities(entity)}
				if t, ok := full.Relations.Trace(entity); ok {
					out.Trace = &t
				}
				return renderJSON(cmd, out)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderTrace(full.Relations, entity))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the trace as JSON")

	return cmd
}
