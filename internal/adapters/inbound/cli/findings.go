package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/domain"
)

func newFindingsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "findings",
		Short: "List and triage recorded findings",
	}
	cmd.AddCommand(newFindingsListCmd(v))
	cmd.AddCommand(newFindingsShowCmd(v))
	cmd.AddCommand(newFindingsTriageCmd(v))
	return cmd
}

func newFindingsListCmd(v *viper.Viper) *cobra.Command {
	var (
		jsonOutput bool
		status     string
		severity   string
		category   string
		runID      string
		open       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded findings, critical first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.FindingFilter{
				Severity: domain.Severity(severity),
				Category: category,
				RunID:    runID,
				Open:     open,
			}
			if status != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}

			a, err := newApp(v, projectPath(cmd, nil))
			if err != nil {
				return err
			}
			fs, err := a.triage.List(a.root, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				if fs == nil {
					fs = []domain.Finding{}
				}
				return renderJSON(cmd, fs)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFindings(fs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output findings as JSON")
	cmd.Flags().StringVar(&status, "status", "", "Only this status: new, acknowledged, in_progress, resolved, wont_fix, false_positive")
	cmd.Flags().StringVar(&severity, "severity", "", "Only this severity: critical, warning, recommendation")
	cmd.Flags().StringVar(&category, "category", "", "Only this category")
	cmd.Flags().StringVar(&runID, "run", "", "Only findings seen in this run")
	cmd.Flags().BoolVar(&open, "open", false, "Only findings whose triage is not closed")

	return cmd
}

func newFindingsShowCmd(v *viper.Viper) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show FINGERPRINT",
		Short: "Show one finding",
		Long:  "Show one finding. FINGERPRINT may be a unique prefix of at least 6 characters.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, nil))
			if err != nil {
				return err
			}
			f, err := a.triage.Get(a.root, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return renderJSON(cmd, f)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFinding(f))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the finding as JSON")

	return cmd
}

func newFindingsTriageCmd(v *viper.Viper) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "triage FINGERPRINT STATUS",
		Short: "Set the triage status of a finding",
		Long: "Set the triage status of a finding. Later scans keep the decision; " +
			"setting the status back to new reopens it.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			a, err := newApp(v, projectPath(cmd, nil))
			if err != nil {
				return err
			}
			f, err := a.triage.SetStatus(a.root, args[0], status, note)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFinding(f))
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Resolution note")

	return cmd
}
