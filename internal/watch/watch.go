// =============================================================================
// Budget Report - Directory Watcher
// =============================================================================
//
// The watcher backs `report --watch`. It observes the input directory and
// calls a trigger once a burst of changes to *.json files has settled, so an
// editor saving three files in a row causes a single re-run.
//
// =============================================================================

package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last change.
const DefaultDebounce = 500 * time.Millisecond

// Trigger is called after a settled burst of changes. An error is logged and
// does not stop the watcher.
type Trigger func(ctx context.Context) error

// Watcher watches one directory for changed files with a given extension.
type Watcher struct {
	// Dir is the watched directory.
	Dir string

	// Ext filters events by file extension; "" accepts every file.
	Ext string

	// Debounce is the quiet period; zero means DefaultDebounce.
	Debounce time.Duration

	Logger *zap.Logger
}

// New creates a Watcher for *.json files in dir.
func New(dir string, logger *zap.Logger) *Watcher {
	return &Watcher{Dir: dir, Ext: ".json", Debounce: DefaultDebounce, Logger: logger}
}

// Run watches until ctx is done. It returns nil on cancellation and an error
// only when the watch cannot be set up or the event stream breaks.
func (w *Watcher) Run(ctx context.Context, trigger Trigger) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	logger.Info("watching directory", zap.String("dir", w.Dir), zap.Duration("debounce", debounce))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if err := trigger(ctx); err != nil {
				logger.Error("re-run failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.Ext == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(event.Name), w.Ext)
}
