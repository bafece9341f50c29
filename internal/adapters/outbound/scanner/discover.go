package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/parser"
)

var skipDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
	"env":          true,
	"dist":         true,
	"build":        true,
	"egg-info":     true,
}

// discover returns root-relative slash paths of every file a scanner reads.
// A module filter matches the first path segment exactly; root-level files
// are dropped when a filter is set.
func discover(root string, modules, exclude []string) ([]string, error) {
	allow := make(map[string]bool, len(modules))
	for _, m := range modules {
		allow[m] = true
	}
	excluded := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		excluded[strings.Trim(filepath.ToSlash(p), "/")] = true
	}
	gi := loadGitignore(root)

	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			switch {
			case skipDirs[name], strings.HasPrefix(name, "."), strings.HasSuffix(name, ".egg-info"):
				return filepath.SkipDir
			case excluded[name], excluded[rel]:
				return filepath.SkipDir
			case len(allow) > 0 && !strings.Contains(rel, "/") && !allow[name]:
				return filepath.SkipDir
			case gi != nil && gi.MatchesPath(rel+"/"):
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if len(allow) > 0 && !strings.Contains(rel, "/") {
			return nil
		}
		if excluded[rel] || (gi != nil && gi.MatchesPath(rel)) {
			return nil
		}
		if parser.ScannerFor(rel) == "" {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
