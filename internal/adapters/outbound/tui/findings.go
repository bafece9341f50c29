package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/openkraft/ecoscan/internal/domain"
)

var triageColors = map[domain.Status]lipgloss.Color{
	domain.StatusNew:           accent,
	domain.StatusAcknowledged:  info,
	domain.StatusInProgress:    warning,
	domain.StatusResolved:      success,
	domain.StatusWontFix:       dim,
	domain.StatusFalsePositive: dim,
}

// RenderFindings lists persisted findings, one per line with a short
// fingerprint usable with `findings triage`.
func RenderFindings(fs []domain.Finding) string {
	if len(fs) == 0 {
		return "  " + dimStyle.Render("No findings match.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Findings") + "  " + dimStyle.Render(countLine(fs)) + "\n")
	b.WriteString("  " + separatorLine + "\n\n")

	for _, f := range fs {
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			faintStyle.Render(shortFingerprint(f.Fingerprint)),
			severityTag(f.Severity),
			statusTag(f.Status),
			titleStyle.Render(f.Title),
		)
		meta := []string{f.Category + "/" + f.Type}
		if loc := location(f.Details); loc != "" {
			meta = append(meta, loc)
		}
		meta = append(meta, fmt.Sprintf("seen %d×", f.OccurrenceCount))
		fmt.Fprintf(&b, "           %s\n", dimStyle.Render(strings.Join(meta, "  ·  ")))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderFinding shows one finding in full.
func RenderFinding(f domain.Finding) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", severityTag(f.Severity), titleStyle.Render(f.Title))
	b.WriteString("  " + separatorLine + "\n")

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight(name, 14)), value)
		}
	}
	field("fingerprint", f.Fingerprint)
	field("status", statusTag(f.Status))
	field("category", f.Category)
	field("type", f.Type)
	field("location", location(f.Details))
	field("entity", f.Details.Entity)
	field("artifact", f.Details.ArtifactID)
	if !f.FirstSeenAt.IsZero() {
		field("first seen", f.FirstSeenAt.Format("2006-01-02 15:04"))
		field("last seen", f.LastSeenAt.Format("2006-01-02 15:04"))
		field("occurrences", fmt.Sprintf("%d", f.OccurrenceCount))
	}
	if !f.ResolvedAt.IsZero() {
		field("resolved", f.ResolvedAt.Format("2006-01-02 15:04"))
	}
	field("note", f.ResolutionNote)

	if f.Description != "" {
		b.WriteString("\n  " + dimStyle.Render(f.Description) + "\n")
	}
	if f.Recommendation != "" {
		b.WriteString("\n  " + recTagStyle.Render("→ ") + f.Recommendation + "\n")
	}
	if len(f.Details.Data) > 0 {
		b.WriteString("\n")
		keys := make([]string, 0, len(f.Details.Data))
		for k := range f.Details.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s %v\n", faintStyle.Render(padRight(k, 14)), f.Details.Data[k])
		}
	}
	b.WriteString("\n")
	return b.String()
}

func statusTag(s domain.Status) string {
	c, ok := triageColors[s]
	if !ok {
		c = dim
	}
	return lipgloss.NewStyle().Foreground(c).Render(padRight(string(s), 14))
}

func shortFingerprint(fp string) string {
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}

func countLine(fs []domain.Finding) string {
	bySev := make(map[domain.Severity]int)
	for _, f := range fs {
		bySev[f.Severity]++
	}
	var parts []string
	for _, s := range []domain.Severity{domain.SeverityCritical, domain.SeverityWarning, domain.SeverityInfo, domain.SeverityRecommendation} {
		if n := bySev[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	return strings.Join(parts, "  ·  ")
}
