package health

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/domain/detect"
)

// Display names for integration targets in recommendation titles.
var targetTitles = map[string]string{"n8n": "N8N"}

// rule fires a recommendation when its count passes the threshold.
type rule struct {
	count     func(in Input) int
	threshold int
	build     func(n int, in Input) domain.Recommendation
}

func byType(analyzer, typ string) func(Input) int {
	return func(in Input) int {
		if r := in.Results[analyzer]; r != nil {
			return r.Summary.ByType[typ]
		}
		return 0
	}
}

func extra(analyzer, key string) func(Input) int {
	return func(in Input) int {
		if r := in.Results[analyzer]; r != nil {
			return r.Summary.Extra[key]
		}
		return 0
	}
}

var rules = []rule{
	{byType(detect.NameDuplicate, "duplicate_functions"), 5, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityHigh,
			Category:    domain.CategoryCodeQuality,
			Type:        "duplicate_functions",
			Title:       "Consolidate Duplicate Functions",
			Description: fmt.Sprintf("Found %d duplicate functions. Consider creating shared utility modules.", n),
			Effort:      "medium",
			Impact:      "Reduced code maintenance burden",
		}
	}},
	{byType(detect.NameDuplicate, "similar_models"), 3, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityMedium,
			Category:    domain.CategoryArchitecture,
			Type:        "similar_models",
			Title:       "Review Similar Models",
			Description: fmt.Sprintf("Found %d pairs of similar models. Consider using inheritance or mixins.", n),
			Effort:      "high",
			Impact:      "Cleaner data model, easier maintenance",
		}
	}},
	{byType(detect.NameDuplicate, "renamed_component"), 5, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityLow,
			Category:    domain.CategoryCleanup,
			Type:        "renamed_components",
			Title:       "Clean Up Renamed Components",
			Description: fmt.Sprintf("Found %d components with rename patterns (_old, _v2, etc.). Review and remove if unused.", n),
			Effort:      "low",
			Impact:      "Cleaner codebase",
		}
	}},
	{byType(detect.NameOrphan, "dangling_model_refs"), 0, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityCritical,
			Category:    domain.CategoryBugFix,
			Type:        "dangling_model_refs",
			Title:       "Fix Dangling Model References",
			Description: fmt.Sprintf("Found %d references to non-existent models. These will cause runtime errors.", n),
			Effort:      "medium",
			Impact:      "Prevent runtime errors",
		}
	}},
	{byType(detect.NameOrphan, "orphaned_assets"), 10, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityLow,
			Category:    domain.CategoryCleanup,
			Type:        "orphaned_assets",
			Title:       "Clean Up Orphaned Assets",
			Description: fmt.Sprintf("Found %d JS/CSS files not in any asset bundle. Add to bundles or remove.", n),
			Effort:      "low",
			Impact:      "Smaller codebase, clearer asset management",
		}
	}},
	{byType(detect.NameOrphan, "orphaned_python_files"), 5, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityMedium,
			Category:    domain.CategoryCleanup,
			Type:        "orphaned_python",
			Title:       "Review Orphaned Python Files",
			Description: fmt.Sprintf("Found %d Python files not imported in __init__.py. Verify if intentional or dead code.", n),
			Effort:      "low",
			Impact:      "Cleaner codebase, reduced confusion",
		}
	}},
	{func(in Input) int { return in.Relations.IncompleteTraces }, 5, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityMedium,
			Category:    domain.CategoryUX,
			Type:        "incomplete_traces",
			Title:       "Complete Model UI Traces",
			Description: fmt.Sprintf("Found %d models with incomplete UI paths (missing views, actions, or menus).", n),
			Effort:      "medium",
			Impact:      "Better user experience, complete features",
		}
	}},
	{extra(detect.NameCommented, "deletion_markers_found"), 0, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityHigh,
			Category:    domain.CategoryCleanup,
			Type:        "commented_code_deletion",
			Title:       "Remove Code Marked for Deletion",
			Description: fmt.Sprintf("Found %d comments with deletion markers (TODO delete, DEPRECATED, OLD, etc.). Review and remove dead code.", n),
			Effort:      "low",
			Impact:      "Cleaner codebase, reduced technical debt",
		}
	}},
	{extra(detect.NameCommented, "total_commented_blocks"), 10, func(n int, in Input) domain.Recommendation {
		files := extra(detect.NameCommented, "files_with_commented_code")(in)
		return domain.Recommendation{
			Priority:    domain.PriorityMedium,
			Category:    domain.CategoryCleanup,
			Type:        "commented_code",
			Title:       "Review Commented Code Blocks",
			Description: fmt.Sprintf("Found %d blocks of commented-out code across %d files. Review and remove if no longer needed.", n, files),
			Effort:      "low",
			Impact:      "Cleaner codebase, easier maintenance",
		}
	}},
	{byType(detect.NameBoundary, detect.TypeHardcodedPath), 0, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority: domain.PriorityCritical,
			Category: domain.CategoryArchitecture,
			Type:     "external_path_hardcoded",
			Title:    "CRITICAL: Remove Hardcoded External Paths",
			Description: fmt.Sprintf("Found %d hardcoded paths to external repositories. This breaks module portability "+
				"and violates Odoo architecture. Refactor to use module dependencies or Odoo's file system.", n),
			Effort: "high",
			Impact: "Module portability, proper architecture, deployment safety",
		}
	}},
	{byType(detect.NameBoundary, detect.TypeRelativeEscape), 0, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityHigh,
			Category:    domain.CategoryArchitecture,
			Type:        "external_path_relative",
			Title:       "Fix Relative Path Escapes",
			Description: fmt.Sprintf("Found %d relative paths that escape module boundaries. Use odoo.modules.get_module_path() or __file__ based paths instead.", n),
			Effort:      "medium",
			Impact:      "Module isolation, predictable behavior",
		}
	}},
	{byType(detect.NameBoundary, detect.TypeSuspiciousOp), 0, func(n int, _ Input) domain.Recommendation {
		return domain.Recommendation{
			Priority:    domain.PriorityHigh,
			Category:    domain.CategoryArchitecture,
			Type:        "external_file_operations",
			Title:       "Review Suspicious File Operations",
			Description: fmt.Sprintf("Found %d file operations targeting external locations. Verify these are intentional and properly scoped.", n),
			Effort:      "medium",
			Impact:      "Security, module isolation",
		}
	}},
}

// Recommend evaluates the threshold rules and one documentation rule per
// referenced integration target, sorted critical, high, medium, low.
func Recommend(in Input) []domain.Recommendation {
	var out []domain.Recommendation
	for _, r := range rules {
		if n := r.count(in); n > r.threshold {
			out = append(out, r.build(n, in))
		}
	}
	out = append(out, integrationRecommendations(in)...)
	sort.SliceStable(out, func(i, j int) bool {
		return domain.PriorityRank(out[i].Priority) < domain.PriorityRank(out[j].Priority)
	})
	return out
}

func integrationRecommendations(in Input) []domain.Recommendation {
	res := in.Results[detect.NameIntegration]
	if res == nil {
		return nil
	}
	var targets []string
	for key, n := range res.Summary.Extra {
		if t, ok := strings.CutPrefix(key, "refs:"); ok && n > 0 {
			targets = append(targets, t)
		}
	}
	sort.Strings(targets)

	var out []domain.Recommendation
	for _, t := range targets {
		title, ok := targetTitles[t]
		if !ok {
			title = t
		}
		out = append(out, domain.Recommendation{
			Priority: domain.PriorityLow,
			Category: domain.CategoryDocumentation,
			Type:     t + "_references",
			Title:    fmt.Sprintf("Document %s Integration Points", title),
			Description: fmt.Sprintf("Found %d %s references across %d files. Review integration points for proper documentation.",
				res.Summary.Extra["refs:"+t], title, res.Summary.Extra["files:"+t]),
			Effort: "low",
			Impact: "Better integration visibility and maintenance",
		})
	}
	return out
}
