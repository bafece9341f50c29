package scanner

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/openkraft/ecoscan/internal/domain"
)

// markRegistered flags assets matched by any manifest bundle entry. Bundle
// entries are glob patterns relative to the addons root; legacy entries
// starting with static/ are relative to their module.
func markRegistered(ir *domain.IR) {
	var patterns []string
	for _, b := range ir.Bundles {
		for _, p := range b.Paths {
			if p = bundlePattern(b.Module, p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	if len(patterns) == 0 {
		return
	}
	gi := ignore.CompileIgnoreLines(patterns...)
	for _, a := range ir.Assets {
		a.IsRegisteredInBundle = gi.MatchesPath(a.Path)
	}
}

func bundlePattern(module, p string) string {
	p = strings.TrimSpace(p)
	switch {
	case p == "", strings.Contains(p, "://"), strings.HasPrefix(p, "!"):
		return ""
	case strings.HasPrefix(p, "static/"):
		return "/" + module + "/" + p
	}
	return "/" + strings.TrimPrefix(p, "/")
}
