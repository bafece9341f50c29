package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/config"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/findings"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/gitinfo"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/history"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/registry"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/scanner"
	"github.com/openkraft/ecoscan/internal/application"
	"github.com/openkraft/ecoscan/internal/domain"
	"github.com/openkraft/ecoscan/internal/logger"
)

// overlay applies flag and environment values on top of .ecoscan.yaml.
type overlay struct {
	base domain.ConfigLoader
	v    *viper.Viper
}

func (o overlay) Load(projectPath string) (domain.Config, error) {
	cfg, err := o.base.Load(projectPath)
	if err != nil {
		return domain.Config{}, err
	}
	return config.Merge(cfg, o.values()), nil
}

func (o overlay) values() domain.Config {
	return domain.Config{
		Modules:          stringList(o.v, "modules"),
		IncludeRegistry:  o.v.GetBool("include-registry"),
		RegistrySnapshot: o.v.GetString("registry-snapshot"),
		StateDir:         o.v.GetString("state-dir"),
		Log: domain.LogConf{
			Level: o.v.GetString("log-level"),
			JSON:  o.v.GetBool("log-json"),
		},
	}
}

// stringList reads a list that may come from a repeated flag or from a
// comma-separated environment variable.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// app is everything one command invocation needs.
type app struct {
	root    string
	cfg     domain.Config
	log     hclog.Logger
	scanner *scanner.FileScanner
	analyze *application.AnalyzeService
	triage  *application.TriageService
	history *application.HistoryService
}

// newApp resolves the project root and wires the adapters for it.
func newApp(v *viper.Viper, path string) (*app, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	loader := overlay{base: config.New(), v: v}
	cfg, err := loader.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Log, "ecoscan")

	dir, err := directory(cfg, root)
	if err != nil {
		return nil, err
	}
	sc := scanner.New(scanner.WithDirectory(dir), scanner.WithLogger(log.Named("scanner")))
	store := findings.New(cfg.StateDir)
	runs := history.New(cfg.StateDir)

	return &app{
		root:    root,
		cfg:     cfg,
		log:     log,
		scanner: sc,
		analyze: application.NewAnalyzeService(sc, loader, store, runs,
			application.WithGitInfo(gitinfo.New()),
			application.WithLogger(log.Named("analyze")),
		),
		triage:  application.NewTriageService(store),
		history: application.NewHistoryService(runs),
	}, nil
}

// directory opens the registry snapshot when the run asks for registry
// checks. Without a snapshot the scan fails with ErrRegistryUnavailable.
func directory(cfg domain.Config, root string) (domain.EntityDirectory, error) {
	if !cfg.IncludeRegistry || cfg.RegistrySnapshot == "" {
		return registry.Null{}, nil
	}
	path := cfg.RegistrySnapshot
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return registry.LoadSnapshot(path)
}

// projectPath is the positional path argument when given, else --path.
func projectPath(cmd *cobra.Command, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		return "."
	}
	return path
}

func renderJSON(cmd *cobra.Command, v any) error {
	return writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
