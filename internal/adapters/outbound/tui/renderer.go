// Package tui renders reports, findings, run history and relationship traces
// for the terminal.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/openkraft/ecoscan/internal/domain"
)

// ── warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	lime    = lipgloss.Color("#A3E635")
	orange  = lipgloss.Color("#FB923C")
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	statusColors = map[string]lipgloss.Color{
		"Excellent": success,
		"Good":      lime,
		"Fair":      warning,
		"Poor":      orange,
		"Critical":  danger,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	criticalStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	recTagStyle   = lipgloss.NewStyle().Foreground(accent)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// maxListedIssues caps the issue list of a report.
const maxListedIssues = 25

// RenderReport formats a completed run's report.
func RenderReport(r *domain.Report) string {
	var b strings.Builder

	// ── Header ──
	color := statusColor(r.HealthStatus)
	title := headerStyle.Render("ecoscan")
	subtitle := dimStyle.Render(r.RootPath)
	scoreStyled := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d / 100", r.HealthScore))
	statusStyled := lipgloss.NewStyle().Bold(true).Foreground(color).Render(r.HealthStatus)
	meta := dimStyle.Render(fmt.Sprintf("%s  ·  %.1fs  ·  %d files",
		r.ScanDate.Format("2006-01-02 15:04"), r.Duration, r.Summary.TotalFilesScanned))
	if r.CommitHash != "" {
		meta += dimStyle.Render("  ·  " + shortHash(r.CommitHash))
	}

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + scoreStyled + "  " + statusStyled + "\n" + meta))
	b.WriteString("\n\n")

	// ── Statistics ──
	renderStatistics(&b, r.Statistics)
	if len(r.ModulesAnalyzed) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", sectionStyle.Render(padRight("Modules", 12)),
			dimStyle.Render(strings.Join(r.ModulesAnalyzed, ", ")))
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	// ── Issues ──
	issues := append(append([]domain.Finding(nil), r.CriticalIssues...), r.Warnings...)
	if len(issues) > 0 {
		b.WriteString("  ")
		b.WriteString(titleStyle.Render("Issues"))
		b.WriteString("  ")
		if n := len(r.CriticalIssues); n > 0 {
			b.WriteString(criticalStyle.Render(fmt.Sprintf("%d critical", n)))
			b.WriteString("  ")
		}
		if n := len(r.Warnings); n > 0 {
			b.WriteString(warnTagStyle.Render(fmt.Sprintf("%d warnings", n)))
		}
		b.WriteString("\n\n")

		for i, f := range issues {
			if i == maxListedIssues {
				fmt.Fprintf(&b, "    %s\n", faintStyle.Render(fmt.Sprintf("… %d more, see `ecoscan findings list`", len(issues)-i)))
				break
			}
			renderIssue(&b, f)
		}
	} else {
		b.WriteString("  " + passStyle.Render("No issues found.") + "\n")
	}

	// ── Recommendations ──
	if len(r.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString("  " + titleStyle.Render("Recommendations") + "\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "    %s %s\n", priorityTag(rec.Priority), titleStyle.Render(rec.Title))
			fmt.Fprintf(&b, "         %s\n", dimStyle.Render(rec.Description))
			fmt.Fprintf(&b, "         %s\n", faintStyle.Render(fmt.Sprintf("effort %s  ·  impact %s", rec.Effort, rec.Impact)))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func renderStatistics(b *strings.Builder, st domain.Statistics) {
	row := func(name string, parts ...string) {
		fmt.Fprintf(b, "  %s %s\n", sectionStyle.Render(padRight(name, 12)), dimStyle.Render(strings.Join(parts, "  ·  ")))
	}
	row("Code",
		fmt.Sprintf("%d files", st.Code.FilesScanned),
		fmt.Sprintf("%d models", st.Code.Models),
		fmt.Sprintf("%d fields", st.Code.Fields),
		fmt.Sprintf("%d functions", st.Code.Functions),
		fmt.Sprintf("%d methods", st.Code.Methods),
	)
	row("Records",
		fmt.Sprintf("%d files", st.Records.FilesScanned),
		fmt.Sprintf("%d views (%d inherited)", st.Records.Views, st.Records.InheritedViews),
		fmt.Sprintf("%d actions", st.Records.Actions),
		fmt.Sprintf("%d menus", st.Records.Menus),
	)
	row("Assets",
		fmt.Sprintf("%d scripts", st.Assets.Scripts),
		fmt.Sprintf("%d styles", st.Assets.Styles),
		fmt.Sprintf("%d components", st.Assets.Components),
		fmt.Sprintf("%d unbundled", st.Assets.Unregistered),
	)
	if reg := st.Registry; reg != nil {
		row("Registry",
			fmt.Sprintf("%d entities", reg.Entities),
			fmt.Sprintf("%d views", reg.Views),
			fmt.Sprintf("%d modules", reg.Modules),
		)
	}
	rel := st.Relations
	row("Relations",
		fmt.Sprintf("%d complete traces", rel.CompleteTraces),
		fmt.Sprintf("%d incomplete", rel.IncompleteTraces),
		fmt.Sprintf("%d cycles", rel.Cycles),
	)
	if errs := st.Code.Errors + st.Records.Errors + st.Assets.Errors; errs > 0 {
		row("Errors", failStyle.Render(fmt.Sprintf("%d files could not be parsed", errs)))
	}

	if len(st.Analyzers) > 0 {
		b.WriteString("\n")
		names := make([]string, 0, len(st.Analyzers))
		for n := range st.Analyzers {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			s := st.Analyzers[n]
			fmt.Fprintf(b, "  %s %s %s\n",
				sectionStyle.Render(padRight(n, 16)),
				issueBar(s.Total, 20),
				dimStyle.Render(fmt.Sprintf("%d", s.Total)))
		}
	}
}

func renderIssue(b *strings.Builder, f domain.Finding) {
	tag := severityTag(f.Severity)
	loc := location(f.Details)
	if loc != "" {
		fmt.Fprintf(b, "    %s %s\n", tag, fileStyle.Render(loc))
		fmt.Fprintf(b, "          %s\n", dimStyle.Render(f.Title))
	} else {
		fmt.Fprintf(b, "    %s %s\n", tag, dimStyle.Render(f.Title))
	}
}

func location(d domain.Details) string {
	if d.File != "" && d.Line > 0 {
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	return d.File
}

func severityTag(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return criticalStyle.Render("crit ")
	case domain.SeverityWarning:
		return warnTagStyle.Render("warn ")
	case domain.SeverityRecommendation:
		return recTagStyle.Render("rec  ")
	default:
		return infoTagStyle.Render("info ")
	}
}

func priorityTag(p string) string {
	label := padRight(p, 8)
	switch p {
	case domain.PriorityCritical:
		return criticalStyle.Render(label)
	case domain.PriorityHigh:
		return warnTagStyle.Render(label)
	case domain.PriorityMedium:
		return recTagStyle.Render(label)
	default:
		return infoTagStyle.Render(label)
	}
}

// issueBar fills one cell per issue, capped at width.
func issueBar(n, width int) string {
	filled := max(0, min(n, width))
	color := success
	switch {
	case n > 10:
		color = danger
	case n > 0:
		color = warning
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", width-filled))
}

func statusColor(status string) lipgloss.Color {
	if c, ok := statusColors[status]; ok {
		return c
	}
	return fg
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
