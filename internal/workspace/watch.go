package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/EMIC-Electronics/EMIC-DevAgent/pkg/models"
)

// DefaultDebounce is how long an artifact must stay quiet before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// minTick bounds how often pending changes are checked.
const minTick = time.Millisecond

// Watcher reports artifact edits under a root directory. fsnotify is not
// recursive, so every directory is added on start and new ones as they appear.
type Watcher struct {
	root     string
	exclude  []string
	debounce time.Duration
	fs       *fsnotify.Watcher
	logger   *zap.SugaredLogger

	// pending maps changed relative paths to the time of their last event.
	pending map[string]time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher starts watching root. Events are only delivered once Run is called,
// but changes made after NewWatcher returns are not lost.
func NewWatcher(root string, debounce time.Duration, logger *zap.SugaredLogger, exclude ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	w := &Watcher{
		root:     root,
		exclude:  exclude,
		debounce: debounce,
		fs:       fw,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// tick is the interval at which settled changes are flushed.
func (w *Watcher) tick() time.Duration {
	if t := w.debounce / 5; t > minTick {
		return t
	}
	return minTick
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && skipDir(d.Name(), w.exclude) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			return errors.Wrapf(err, "watching %s", p)
		}
		return nil
	})
}

// Run delivers debounced batches of changed artifact paths (relative to the
// root, sorted) to onChange until ctx is done. onChange runs on the caller's
// goroutine. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.Close()

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("file watcher error", "error", err)

		case now := <-ticker.C:
			if paths := w.settled(now); len(paths) > 0 {
				onChange(paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if isDir, err := statDir(event.Name); err == nil && isDir {
			if !skipDir(filepath.Base(event.Name), w.exclude) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warnw("cannot watch new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	if _, ok := models.CategoryForPath(event.Name); !ok {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	w.logger.Debugw("artifact changed", "path", rel, "op", event.Op.String())
	w.pending[rel] = time.Now()
}

// settled removes and returns the paths that have been quiet for the debounce window.
func (w *Watcher) settled(now time.Time) []string {
	var out []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	sort.Strings(out)
	return out
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}
