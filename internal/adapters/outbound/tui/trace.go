package tui

import (
	"fmt"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
	"github.com/openkraft/ecoscan/internal/domain/relations"
)

// RenderTrace shows how an entity reaches the UI: its views (with their
// inheritance chains), actions and menus, plus related entities.
func RenderTrace(m *relations.Map, entity string) string {
	var b strings.Builder
	b.WriteString("\n")

	t, ok := m.Trace(entity)
	if !ok {
		b.WriteString("  " + titleStyle.Render(entity) + "  " + dimStyle.Render("no views, actions or menus") + "\n")
	} else {
		state := passStyle.Render("complete")
		if !t.Complete {
			state = warnTagStyle.Render("incomplete")
		}
		fmt.Fprintf(&b, "  %s  %s\n", titleStyle.Render(t.Entity), state)
		fmt.Fprintf(&b, "  %s\n", fileStyle.Render(t.File))
		b.WriteString("  " + separatorLine + "\n")

		section(&b, "Views", len(t.Views))
		for _, v := range t.Views {
			chain := m.ViewChain(v.ID)
			label := v.ID
			if v.Type != "" {
				label += dimStyle.Render(" (" + v.Type + ")")
			}
			fmt.Fprintf(&b, "    %s %s\n", recTagStyle.Render("◆"), label)
			if len(chain) > 1 {
				fmt.Fprintf(&b, "      %s\n", faintStyle.Render("extends "+strings.Join(chain[1:], " → ")))
			}
		}
		section(&b, "Actions", len(t.Actions))
		for _, a := range t.Actions {
			fmt.Fprintf(&b, "    %s %s %s\n", recTagStyle.Render("▸"), a.ID, dimStyle.Render(a.Kind))
		}
		section(&b, "Menus", len(t.Menus))
		for _, mn := range t.Menus {
			label := mn.ID
			if mn.Name != "" {
				label += dimStyle.Render(" \"" + mn.Name + "\"")
			}
			if mn.ViaAction != "" {
				label += faintStyle.Render(" via " + mn.ViaAction)
			}
			fmt.Fprintf(&b, "    %s %s\n", recTagStyle.Render("≡"), label)
		}
	}

	if related := m.RelatedEntities(entity); len(related) > 0 {
		b.WriteString("\n")
		section(&b, "Related", len(related))
		fmt.Fprintf(&b, "    %s\n", dimStyle.Render(strings.Join(related, ", ")))
	}
	for _, c := range m.Cycles {
		if containsEntity(c, entity) {
			fmt.Fprintf(&b, "\n  %s %s\n", warnTagStyle.Render("cycle"),
				dimStyle.Render(strings.Join(append(append([]string(nil), c...), c[0]), " → ")))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func section(b *strings.Builder, name string, n int) {
	fmt.Fprintf(b, "\n  %s %s\n", sectionStyle.Render(name), faintStyle.Render(fmt.Sprintf("%d", n)))
}

func containsEntity(cycle []string, entity string) bool {
	for _, c := range cycle {
		if c == entity {
			return true
		}
	}
	return false
}

// RenderReferences groups integration references by file.
func RenderReferences(target string, refs []detect.Reference) string {
	if len(refs) == 0 {
		return "  " + dimStyle.Render(fmt.Sprintf("No references to %s.", target)) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	files := 0
	current := ""
	for _, r := range refs {
		if r.File != current {
			files++
			current = r.File
		}
	}
	fmt.Fprintf(&b, "  %s  %s\n", titleStyle.Render(target),
		dimStyle.Render(fmt.Sprintf("%d references in %d files", len(refs), files)))
	b.WriteString("  " + separatorLine + "\n")

	current = ""
	for _, r := range refs {
		if r.File != current {
			current = r.File
			fmt.Fprintf(&b, "\n  %s\n", fileStyle.Render(r.File))
		}
		fmt.Fprintf(&b, "    %s %s %s\n",
			faintStyle.Render(fmt.Sprintf("%5d", r.Line)),
			infoTagStyle.Render(padRight(r.Category, 10)),
			r.Context,
		)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderModules lists discovered modules with their manifest metadata.
func RenderModules(mods []domain.ModuleInfo) string {
	if len(mods) == 0 {
		return "  " + dimStyle.Render("No modules found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Modules") + "  " + dimStyle.Render(fmt.Sprintf("%d", len(mods))) + "\n")
	b.WriteString("  " + separatorLine + "\n\n")

	width := 0
	for _, m := range mods {
		width = max(width, len(m.Name))
	}
	for _, m := range mods {
		name := sectionStyle.Render(padRight(m.Name, width))
		if !m.Installable {
			name = faintStyle.Render(padRight(m.Name, width))
		}
		meta := []string{}
		if m.Version != "" {
			meta = append(meta, m.Version)
		}
		if m.Category != "" {
			meta = append(meta, m.Category)
		}
		if !m.Installable {
			meta = append(meta, "not installable")
		}
		fmt.Fprintf(&b, "  %s  %s  %s\n", name, m.Title, dimStyle.Render(strings.Join(meta, " · ")))
		if len(m.Depends) > 0 {
			fmt.Fprintf(&b, "  %s  %s\n", strings.Repeat(" ", width), faintStyle.Render("depends "+strings.Join(m.Depends, ", ")))
		}
	}
	b.WriteString("\n")
	return b.String()
}
