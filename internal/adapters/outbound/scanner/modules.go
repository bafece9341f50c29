package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/parser"
	"github.com/openkraft/ecoscan/internal/domain"
)

var manifestNames = []string{"__manifest__.py", "__openerp__.py"}

// ListModules returns the manifest of every top-level module under root,
// sorted by technical name. Directories without a readable manifest are
// skipped.
func (s *FileScanner) ListModules(root string) ([]domain.ModuleInfo, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}

	p := parser.New()
	defer p.Close()

	var out []domain.ModuleInfo
	for _, e := range entries {
		if !e.IsDir() || skipDirs[e.Name()] || e.Name()[0] == '.' {
			continue
		}
		for _, name := range manifestNames {
			src, err := os.ReadFile(filepath.Join(abs, e.Name(), name))
			if err != nil {
				continue
			}
			res := p.Parse(e.Name()+"/"+name, []byte(decode(src)))
			if res.Module == nil {
				s.logger.Warn("unreadable manifest", "module", e.Name(), "errors", len(res.Errors))
				break
			}
			out = append(out, *res.Module)
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
