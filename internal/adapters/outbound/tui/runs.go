package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/openkraft/ecoscan/internal/domain"
)

// RenderRuns formats run history, newest first. Score changes are relative
// to the next older completed run.
func RenderRuns(runs []domain.ScanRun) string {
	if len(runs) == 0 {
		return "  " + dimStyle.Render("No scan runs recorded.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Scan Runs") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for i, r := range runs {
		hash := shortHash(r.CommitHash)
		if hash == "" {
			hash = "·······"
		}
		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(r.CreatedAt.Format("2006-01-02 15:04")),
			faintStyle.Render(shortFingerprint(r.ID)),
			faintStyle.Render(hash),
			stateTag(r.State),
		)

		switch r.State {
		case domain.RunCompleted:
			line += "  " + lipgloss.NewStyle().
				Foreground(statusColor(r.HealthStatus)).
				Render(fmt.Sprintf("%d/100", r.HealthScore))
			if prev, ok := previousCompleted(runs[i+1:]); ok {
				diff := r.HealthScore - prev.HealthScore
				if diff > 0 {
					line += "  " + passStyle.Render(fmt.Sprintf("↑%d", diff))
				} else if diff < 0 {
					line += "  " + failStyle.Render(fmt.Sprintf("↓%d", -diff))
				}
			}
			line += "  " + dimStyle.Render(fmt.Sprintf("%d crit · %d warn · %d new", r.CriticalCount, r.WarningCount, r.FindingsNew))
		case domain.RunFailed:
			line += "  " + failStyle.Render(r.Error)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func previousCompleted(older []domain.ScanRun) (domain.ScanRun, bool) {
	for _, r := range older {
		if r.State == domain.RunCompleted {
			return r, true
		}
	}
	return domain.ScanRun{}, false
}

func stateTag(s domain.RunState) string {
	label := padRight(string(s), 9)
	switch s {
	case domain.RunCompleted:
		return passStyle.Render(label)
	case domain.RunFailed:
		return failStyle.Render(label)
	default:
		return warnTagStyle.Render(label)
	}
}
