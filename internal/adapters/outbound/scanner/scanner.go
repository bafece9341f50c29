// Package scanner walks a multi-module source tree and builds the IR.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/openkraft/ecoscan/internal/domain"
)

// FileScanner implements domain.SourceScanner by walking the filesystem.
type FileScanner struct {
	directory domain.EntityDirectory
	logger    hclog.Logger
}

// Option configures a FileScanner.
type Option func(*FileScanner)

// WithDirectory sets the live registry used when a request asks for it.
func WithDirectory(d domain.EntityDirectory) Option {
	return func(s *FileScanner) { s.directory = d }
}

func WithLogger(l hclog.Logger) Option {
	return func(s *FileScanner) { s.logger = l }
}

func New(opts ...Option) *FileScanner {
	s := &FileScanner{logger: hclog.NewNullLogger()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan discovers, reads and parses every file under req.Root. Per-file
// failures end up in IR.Errors; only an invalid root, a cancelled context
// or an unavailable registry return an error.
func (s *FileScanner) Scan(ctx context.Context, req domain.ScanRequest) (*domain.IR, error) {
	root, err := resolveRoot(req.Root)
	if err != nil {
		return nil, err
	}

	files, err := discover(root, req.Modules, req.ExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	s.logger.Info("discovered files", "phase", "scan", "files", len(files), "root", root)

	results, err := parseAll(ctx, root, files, req.Workers)
	if err != nil {
		return nil, err
	}

	ir := domain.NewIR(root)
	for _, r := range results {
		s.merge(ir, r)
	}
	markRegistered(ir)

	if req.IncludeRegistry {
		snap, errs, err := loadRegistry(ctx, s.directory)
		if err != nil {
			return nil, err
		}
		ir.Registry = snap
		ir.Errors = append(ir.Errors, errs...)
		s.logger.Info("registry loaded", "phase", "registry", "entities", len(snap.Entities))
	}

	ir.Normalize()
	s.logger.Info("scan finished", "phase", "scan",
		"elements", len(ir.Elements), "ui", len(ir.UI), "assets", len(ir.Assets), "errors", len(ir.Errors))
	return ir, nil
}

func (s *FileScanner) merge(ir *domain.IR, r fileResult) {
	module := domain.ModuleOf(r.rel)
	if r.readErr != "" {
		ir.Errors = append(ir.Errors, domain.ParseError{File: r.rel, Scanner: r.scanner, Message: r.readErr})
		s.logger.Debug("read failed", "file", r.rel, "error", r.readErr)
		return
	}
	ir.Sources = append(ir.Sources, domain.SourceFile{Path: r.rel, Module: module, Scanner: r.scanner, Text: r.text})

	res := r.parsed
	ir.Add(res.Artifacts...)
	if res.Facts != nil {
		ir.Facts = append(ir.Facts, *res.Facts)
	}
	if res.InitImports != nil {
		dir := path.Dir(r.rel)
		ir.InitImports[dir] = append(ir.InitImports[dir], res.InitImports...)
	}
	if res.Module != nil {
		ir.Modules = append(ir.Modules, *res.Module)
	}
	ir.Bundles = append(ir.Bundles, res.Bundles...)
	for _, e := range res.Errors {
		s.logger.Debug("parse error", "file", e.File, "scanner", e.Scanner, "line", e.Line, "error", e.Message)
	}
	ir.Errors = append(ir.Errors, res.Errors...)
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidRoot, abs)
	}
	return abs, nil
}
