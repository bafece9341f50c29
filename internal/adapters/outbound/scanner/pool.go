package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/parser"
)

// Files above this size are recorded as read errors instead of parsed.
const maxFileSize = 4 << 20

type fileResult struct {
	rel     string
	scanner string
	text    string
	parsed  *parser.Result
	readErr string
}

// parseAll reads and parses files on a bounded pool. Results come back in
// the order of files. A panicking parser fails the whole scan.
func parseAll(ctx context.Context, root string, files []string, workers int) ([]fileResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan aborted: %w", err)
		}
		return nil, nil
	}

	// tree-sitter parsers are not goroutine-safe, so each task borrows one.
	parsers := make(chan *parser.Parser, workers)
	for range workers {
		parsers <- parser.New()
	}
	defer func() {
		close(parsers)
		for p := range parsers {
			p.Close()
		}
	}()

	results := make([]fileResult, len(files))
	p := pool.New().
		WithMaxGoroutines(workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for idx, rel := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ps := <-parsers
			if r := panics.Try(func() { results[idx] = parseOne(ps, root, rel) }); r != nil {
				ps.Close()
				parsers <- parser.New()
				return fmt.Errorf("parser panicked on %s: %w", rel, r.AsError())
			}
			parsers <- ps
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scan aborted: %w", ctx.Err())
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}
	return results, nil
}

func parseOne(p *parser.Parser, root, rel string) fileResult {
	r := fileResult{rel: rel, scanner: parser.ScannerFor(rel)}
	abs := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		r.readErr = fmt.Sprintf("reading file: %v", err)
		return r
	}
	if info.Size() > maxFileSize {
		r.readErr = fmt.Sprintf("file too large (%d bytes)", info.Size())
		return r
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		r.readErr = fmt.Sprintf("reading file: %v", err)
		return r
	}

	r.text = decode(raw)
	r.parsed = p.Parse(rel, []byte(r.text))
	return r
}

// decode returns raw as UTF-8, replacing invalid sequences and dropping a
// leading byte-order mark.
func decode(raw []byte) string {
	s := strings.TrimPrefix(string(raw), "\uFEFF")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}
