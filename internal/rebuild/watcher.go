package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Watcher reports file system changes below a set of root directories.
// Paths are handed to the debouncer relative to the first root that
// contains them.
type Watcher struct {
	fs     *fsnotify.Watcher
	roots  []string
	ignore []string
	extra  []string
	out    *Debouncer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithIgnored skips events below the given absolute paths, such as the
// output directory and the state database.
func WithIgnored(paths ...string) WatcherOption {
	return func(w *Watcher) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// WithFiles also watches individual files outside the roots, such as a
// config file given on the command line. Their changes carry absolute
// paths.
func WithFiles(paths ...string) WatcherOption {
	return func(w *Watcher) { w.extra = append(w.extra, paths...) }
}

func NewWatcher(roots []string, out *Debouncer, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{fs: fw, out: out}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("resolve watch root: %w", err)
		}
		w.roots = append(w.roots, abs)
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := w.addRecursive(abs); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	for _, f := range w.extra {
		// Watch the directory; editors replace files instead of writing them.
		if abs, err := filepath.Abs(f); err == nil {
			if _, inRoot := w.underRoot(abs); inRoot {
				continue
			}
			_ = fw.Add(filepath.Dir(abs))
		}
	}
	return w, nil
}

// Run forwards events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || w.ignored(ev.Name) {
		return
	}
	kind, ok := kindOf(ev.Op)
	if !ok {
		return
	}
	if kind == Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}
	p, ok := w.rel(ev.Name)
	if !ok {
		return
	}
	slog.Debug("File change detected", logfields.Path(p), slog.String("op", ev.Op.String()))
	w.out.Add(ctx, Change{Path: p, Kind: kind})
}

// rel maps an event path onto a root-relative path. Files outside every
// root are only reported when they were registered with WithFiles.
func (w *Watcher) rel(abs string) (string, bool) {
	if p, ok := w.underRoot(abs); ok {
		return p, true
	}
	for _, f := range w.extra {
		if a, err := filepath.Abs(f); err == nil && a == abs {
			return abs, true
		}
	}
	return "", false
}

func (w *Watcher) underRoot(abs string) (string, bool) {
	for _, r := range w.roots {
		rel, err := filepath.Rel(r, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

func (w *Watcher) ignored(p string) bool {
	for _, ig := range w.ignore {
		if p == ig || strings.HasPrefix(p, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") || w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func kindOf(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	case op.Has(fsnotify.Write):
		return Write, true
	default:
		return 0, false
	}
}

// shouldIgnoreEvent returns true for paths that should not trigger
// rebuilds: hidden files, editor swap and backup files, OS metadata.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == "Thumbs.db" || base == "4913" {
		return true
	}

	return false
}
