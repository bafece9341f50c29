package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/config"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/parser"
	"github.com/openkraft/ecoscan/internal/adapters/outbound/tui"
	"github.com/openkraft/ecoscan/internal/application"
)

const watchDebounce = 500 * time.Millisecond

func newWatchCmd(v *viper.Viper) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan whenever a source file changes",
		Long: "Run a scan, then watch the project and rescan after source files change. " +
			"Bursts of changes are collapsed into one run.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, projectPath(cmd, args))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watchDebounce, "Quiet period before a rescan")

	return cmd
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	stateDir := a.cfg.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(a.root, stateDir)
	}
	if err := addWatchRecursive(watcher, a.root, stateDir); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	a.rescan(ctx, cmd)

	var timer *time.Timer
	trigger := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !a.relevant(ev, stateDir) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, ev.Name, stateDir)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watch error", "error", err)
		case <-trigger:
			a.rescan(ctx, cmd)
		}
	}
}

// rescan runs one scan. Failures are logged and the watch keeps going.
func (a *app) rescan(ctx context.Context, cmd *cobra.Command) {
	res, err := a.analyze.Analyze(ctx, a.root, application.AnalyzeOptions{})
	if err != nil {
		if ctx.Err() == nil {
			a.log.Error("scan failed", "error", err)
		}
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(res.Report))
}

// relevant reports whether ev touches a file a scan reads. Chmod-only
// events and anything under the state directory are ignored.
func (a *app) relevant(ev fsnotify.Event, stateDir string) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Name == stateDir || strings.HasPrefix(ev.Name, stateDir+string(filepath.Separator)) {
		return false
	}
	rel, err := filepath.Rel(a.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if filepath.Ext(rel) == "" {
			return true
		}
	}
	return parser.ScannerFor(rel) != "" || rel == config.FileName || rel == ".gitignore"
}

func addWatchRecursive(w *fsnotify.Watcher, root, stateDir string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == stateDir || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
