package server

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
)

// debounceInterval is how long the watcher waits after the last filesystem
// event before triggering a rebuild, so editor save bursts coalesce into one.
const debounceInterval = time.Second

// rebuildWatcher watches the site source directories and triggers full
// rebuilds. Rebuild requests arriving while a build is in flight coalesce
// into a single follow-up build.
type rebuildWatcher struct {
	cfg     *config.Config
	builder *build.Builder
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	trigger chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

func newRebuildWatcher(cfg *config.Config, builder *build.Builder) (*rebuildWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &rebuildWatcher{
		cfg:     cfg,
		builder: builder,
		fsw:     fsw,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, dir := range w.watchRoots() {
		if err := w.addRecursive(dir); err != nil {
			slog.Warn("Could not watch directory", "dir", dir, "error", err)
		}
	}
	return w, nil
}

// watchRoots lists every configured source directory. Missing directories
// are skipped by addRecursive.
func (w *rebuildWatcher) watchRoots() []string {
	roots := []string{
		w.cfg.PagesDir,
		w.cfg.TemplatesDir,
		w.cfg.StaticDir,
		w.cfg.AssetsDir,
	}
	if w.cfg.DataDir != "" {
		roots = append(roots, w.cfg.DataDir)
	}
	if w.cfg.PluginsDir != "" {
		roots = append(roots, w.cfg.PluginsDir)
	}
	for _, coll := range w.cfg.Collections {
		roots = append(roots, coll.Path)
	}
	return roots
}

func (w *rebuildWatcher) addRecursive(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Start launches the event loop and the rebuild worker.
func (w *rebuildWatcher) Start(ctx context.Context) {
	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.rebuildLoop(ctx)
}

func (w *rebuildWatcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// New directories need their own watch for nested changes.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						slog.Warn("Could not watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			slog.Debug("Source change detected", "path", event.Name, "op", event.Op.String())
			w.scheduleRebuild()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// scheduleRebuild resets the debounce timer so the rebuild fires one
// interval after the last event.
func (w *rebuildWatcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceInterval, w.RequestRebuild)
}

// RequestRebuild asks the worker for a rebuild. A request made while one is
// already pending is absorbed.
func (w *rebuildWatcher) RequestRebuild() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *rebuildWatcher) rebuildLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.trigger:
			slog.Info("Change detected, rebuilding site")
			if _, err := w.builder.Run(ctx); err != nil {
				slog.Error("Rebuild failed", "error", err)
			}
		}
	}
}

// Close stops the loops and the underlying filesystem watcher.
func (w *rebuildWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}

// Wait blocks until both loops have exited.
func (w *rebuildWatcher) Wait() {
	w.wg.Wait()
}
