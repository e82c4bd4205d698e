// Package watch rebuilds a site whenever its sources or configuration change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of editor writes into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is called with the current configuration after changes settle.
type RebuildFunc func(ctx context.Context, cfg *site.Config) error

// Options configures a Watcher.
type Options struct {
	// Source is the site root, watched recursively.
	Source string

	// Destination is ignored, so writing output never triggers a rebuild.
	// It is used when ResolveDestination is nil.
	Destination string

	// ResolveDestination maps a configuration to its output directory. It is
	// consulted for the initial config and again after every reload.
	ResolveDestination func(cfg *site.Config) string

	// ConfigPath is reloaded when it changes. Empty disables reloading.
	ConfigPath string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher monitors a site tree and runs a rebuild after each settled burst of
// changes. Rebuilds never overlap.
type Watcher struct {
	source      string
	configPath  string
	debounce    time.Duration
	rebuild     RebuildFunc
	resolveDest func(cfg *site.Config) string

	mu          sync.Mutex
	cfg         *site.Config
	destination string
	reload      bool
	timer       *time.Timer
	requests    chan struct{}
}

// New creates a Watcher starting from cfg.
func New(cfg *site.Config, opts Options, rebuild RebuildFunc) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("site config required")
	}
	if rebuild == nil {
		return nil, fmt.Errorf("rebuild func required")
	}
	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}
	w := &Watcher{
		source:      source,
		debounce:    opts.Debounce,
		rebuild:     rebuild,
		resolveDest: opts.ResolveDestination,
		cfg:         cfg,
		requests:    make(chan struct{}, 1),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	dest := opts.Destination
	if w.resolveDest != nil {
		dest = w.resolveDest(cfg)
	}
	if w.destination, err = absOrEmpty(dest); err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if opts.ConfigPath != "" {
		if w.configPath, err = filepath.Abs(opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}
	return w, nil
}

// Config returns the configuration the next rebuild will use.
func (w *Watcher) Config() *site.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Destination returns the output directory currently ignored.
func (w *Watcher) Destination() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destination
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.RuntimeError(err, "failed to create file watcher").Build()
	}
	defer func() { _ = fsw.Close() }()
	return w.serve(ctx, fsw)
}

// serve consumes fsw until ctx is done or fsw is closed. The rebuild loop is
// stopped and drained before it returns.
func (w *Watcher) serve(ctx context.Context, fsw *fsnotify.Watcher) error {
	if err := w.addDirsRecursive(fsw, w.source); err != nil {
		return ferrors.RuntimeError(err, "failed to watch source").WithContext("path", w.source).Build()
	}
	// The config may live outside the source tree; watch its directory since
	// editors replace files rather than writing them in place.
	if w.configPath != "" && !within(w.configPath, w.source) {
		if err := fsw.Add(filepath.Dir(w.configPath)); err != nil {
			return ferrors.RuntimeError(err, "failed to watch config directory").WithContext("path", w.configPath).Build()
		}
	}
	observability.InfoContext(ctx, "Watching for changes", logfields.Path(w.source))

	loopCtx, stopLoop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildLoop(loopCtx)
	}()
	defer wg.Wait()
	defer stopLoop()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			observability.WarnContext(ctx, "Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}
	if name == w.configPath {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
			return
		}
		observability.DebugContext(ctx, "Config change detected", logfields.Config(name), logfields.Event(ev.Op.String()))
		w.mu.Lock()
		w.reload = true
		w.mu.Unlock()
		w.trigger()
		return
	}
	if !within(name, w.source) || w.ignored(name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(fsw, name)
		}
	}
	observability.DebugContext(ctx, "File change detected", logfields.Path(name), logfields.Event(ev.Op.String()))
	w.trigger()
}

// trigger restarts the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.requests <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// rebuildLoop serves requests one at a time. A request arriving mid-rebuild
// waits in the buffered channel, so bursts collapse into one follow-up run.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			cfg := w.reloadIfNeeded(ctx)
			observability.InfoContext(ctx, "Change detected; rebuilding site")
			if err := w.rebuild(ctx, cfg); err != nil {
				observability.WarnContext(ctx, "Rebuild failed", logfields.Error(err))
			}
		}
	}
}

// reloadIfNeeded reloads a changed config. A config that fails to load is
// reported and the previous one stays in effect.
func (w *Watcher) reloadIfNeeded(ctx context.Context) *site.Config {
	w.mu.Lock()
	reload := w.reload
	w.reload = false
	cfg := w.cfg
	w.mu.Unlock()
	if !reload {
		return cfg
	}

	next, err := site.LoadFile(w.configPath)
	if err != nil {
		observability.ErrorContext(ctx, "Config reload failed; keeping previous config",
			logfields.Config(w.configPath), logfields.Error(err))
		return cfg
	}
	observability.InfoContext(ctx, "Config reloaded", logfields.Config(w.configPath))

	dest := ""
	if w.resolveDest != nil {
		if dest, err = absOrEmpty(w.resolveDest(next)); err != nil {
			observability.ErrorContext(ctx, "Destination unresolvable; keeping previous config",
				logfields.Config(w.configPath), logfields.Error(err))
			return cfg
		}
	}

	w.mu.Lock()
	w.cfg = next
	if w.resolveDest != nil && dest != w.destination {
		observability.InfoContext(ctx, "Output directory changed", logfields.Path(dest))
		w.destination = dest
	}
	w.mu.Unlock()
	return next
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			observability.WarnContext(context.Background(), "Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// ignored reports whether p is under the destination or is a hidden or editor
// temp file.
func (w *Watcher) ignored(p string) bool {
	if dest := w.Destination(); dest != "" && within(p, dest) {
		return true
	}
	rel, err := filepath.Rel(w.source, p)
	if err == nil && rel != "." {
		for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
			if strings.HasPrefix(seg, ".") {
				return true
			}
		}
	}
	return isEditorTemp(filepath.Base(p))
}

func isEditorTemp(base string) bool {
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")
}

func absOrEmpty(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
