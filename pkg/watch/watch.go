// Package watch recomposes artifact directories when their files change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a directory must stay quiet before it is
// recomposed.
const DefaultDebounce = 300 * time.Millisecond

// Watcher recomposes a set of artifact directories after edits settle.
type Watcher struct {
	recomposer *artifact.Recomposer
	dirs       []string
	debounce   time.Duration
	onResult   func(artifact.Outcome)
	ready      chan struct{}
	log        *logrus.Entry
}

// New creates a watcher over dirs. onResult receives one outcome per
// recompose and may be nil.
func New(r *artifact.Recomposer, dirs []string, onResult func(artifact.Outcome)) *Watcher {
	return &Watcher{
		recomposer: r,
		dirs:       dirs,
		debounce:   DefaultDebounce,
		onResult:   onResult,
		ready:      make(chan struct{}),
		log:        grovelogging.NewLogger("vct.watch"),
	}
}

// WithDebounce sets the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Ready is closed once every directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Events are keyed by absolute directory, results reported with the
	// directory as given.
	watched := make(map[string]string, len(w.dirs))
	for _, dir := range w.dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		if err := fw.Add(abs); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[abs] = dir
		w.log.WithField("directory", dir).Debug("Watching directory")
	}
	close(w.ready)

	pending := map[string]time.Time{}
	tick := w.debounce / 4
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if dir, ok := w.relevant(event, watched); ok {
				pending[dir] = time.Now().Add(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")

		case now := <-ticker.C:
			for abs, due := range pending {
				if now.Before(due) {
					continue
				}
				delete(pending, abs)
				w.recompose(watched[abs])
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event, watched map[string]string) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	dir := filepath.Dir(event.Name)
	orig, ok := watched[dir]
	if !ok {
		return "", false
	}
	base := filepath.Base(event.Name)
	if artifact.IsTempFile(base) {
		return "", false
	}
	// The output may live inside a watched directory when OutputDir points there.
	if base == filepath.Base(w.recomposer.OutputFilename(orig)) {
		return "", false
	}
	return dir, true
}

func (w *Watcher) recompose(dir string) {
	out, err := w.recomposer.Recompose(dir)
	outcome := artifact.Outcome{Unit: dir, Output: out, Err: err}
	if err != nil {
		w.log.WithError(err).WithField("directory", dir).Warn("Recompose failed")
	}
	if w.onResult != nil {
		w.onResult(outcome)
	}
}
