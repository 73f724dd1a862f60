// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when the inputs of a merge change.
//
// A Watcher follows individual files (the local schema, explicit archives,
// the configuration file) and directory trees (artifact directories). Events
// arriving within the debounce window are coalesced so the callback fires once
// with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period before the callback fires. Build tools
// copy archives one by one, so a burst of events must collapse into one run.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores are matched against the base name of every event path.
// They cover editor swap files and the temporary files written next to the
// output before it is renamed into place.
var defaultIgnores = []string{
	"*.swp",
	"*.swo",
	"*~",
	".DS_Store",
	".*.tmp-*",
}

var errAlreadyStarted = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Files are followed individually. Their parent directories are
		// registered and events for siblings are dropped.
		Files []string

		// Dirs are followed recursively. A directory that does not exist yet
		// is picked up once it is created.
		Dirs []string

		// Patterns are doublestar globs, relative to the Dirs entry, selecting
		// which files under Dirs trigger the callback. Empty means all.
		Patterns []string

		// Ignore are extra base-name globs merged with the built-in ignores.
		Ignore []string

		// Exclude lists paths that never trigger the callback, typically the
		// output file.
		Exclude []string

		// Debounce falls back to defaultDebounce when zero or negative.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated changed paths. A nil
		// callback is a no-op. Errors are logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error

		Logger *slog.Logger
	}

	// Watcher monitors the configured inputs. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		logger   *slog.Logger
		ignores  []string
		debounce time.Duration
		files    map[string]struct{}
		exclude  map[string]struct{}
		dirs     []string
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every input that already exists.
func New(cfg Config) (*Watcher, error) {
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		logger:   logger,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		files:    make(map[string]struct{}),
		exclude:  make(map[string]struct{}),
	}

	for _, p := range cfg.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			w.exclude[abs] = struct{}{}
		}
	}
	for _, p := range cfg.Dirs {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		w.dirs = append(w.dirs, abs)
	}

	if err := w.register(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "error", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Watched returns the directories currently registered with fsnotify.
func (w *Watcher) Watched() []string {
	out := w.fsw.WatchList()
	slices.Sort(out)
	return out
}

func (w *Watcher) register() error {
	for _, p := range w.cfg.Files {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		w.files[abs] = struct{}{}
		if err := w.addNearest(filepath.Dir(abs)); err != nil {
			return err
		}
	}
	for _, root := range w.dirs {
		if isDir(root) {
			if err := w.addTree(root); err != nil {
				return err
			}
			continue
		}
		if err := w.addNearest(filepath.Dir(root)); err != nil {
			return err
		}
	}
	return nil
}

// addNearest registers dir, or its closest existing ancestor when dir has not
// been created yet, so the creation itself produces an event.
func (w *Watcher) addNearest(dir string) error {
	for !isDir(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch: add directory %q: %w", dir, err)
	}
	return nil
}

// addTree registers root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("watch: skipping inaccessible path", "path", path, "error", walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.isIgnored(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when fsnotify breaks down.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after ctx is cancelled since it is scheduled by
	// time.AfterFunc. A run still in progress reschedules instead of
	// overlapping.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("watch: previous run still in progress, rescheduling")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch: callback failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close fsnotify", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}

			path, relevant := w.classify(evt)
			if !relevant {
				continue
			}
			w.logger.Debug("watch: change detected", "path", path, "op", evt.Op.String())

			mu.Lock()
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// isFatalFsnotifyError is platform-specific (see watcher_fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "error", err)
		}
	}
}

// classify decides whether an event should trigger the callback and returns
// the path to report. Newly created directories under a watched tree, or a
// watched tree appearing late, are registered on the way.
func (w *Watcher) classify(evt fsnotify.Event) (string, bool) {
	path := filepath.Clean(evt.Name)
	if _, ok := w.exclude[path]; ok || w.isIgnored(path) {
		return "", false
	}
	if _, ok := w.files[path]; ok {
		return path, true
	}

	created := evt.Has(fsnotify.Create) && isDir(path)
	for _, root := range w.dirs {
		switch {
		case path == root || within(root, path):
			if created {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("watch: add new directory", "path", path, "error", err)
				}
				// Files copied in before the watch was registered produce no
				// events of their own.
				return path, true
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return "", false
			}
			if w.matchesPatterns(rel) {
				return path, true
			}
			return "", false
		case created && within(path, root):
			// An ancestor of a missing root appeared; follow it down.
			if err := w.addNearest(root); err != nil {
				w.logger.Warn("watch: add new directory", "path", path, "error", err)
			}
			if isDir(root) {
				if err := w.addTree(root); err != nil {
					w.logger.Warn("watch: add new directory", "path", root, "error", err)
				}
				return root, true
			}
		}
	}
	return "", false
}

// isIgnored matches the base name of path against the ignore patterns.
func (w *Watcher) isIgnored(path string) bool {
	name := filepath.Base(path)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, name); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// matchesPatterns reports whether rel, relative to its watched tree, matches
// at least one pattern. When no patterns are configured, all paths match.
func (w *Watcher) matchesPatterns(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.cfg.Patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
