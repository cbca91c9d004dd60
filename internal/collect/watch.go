package collect

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a Watcher waits after the last change before
// calling back.
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls OnChange whenever contribution files in Dir are created,
// written, removed or renamed. Bursts of events within Debounce collapse
// into one call.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Logger   *zap.Logger
	OnChange func(ctx context.Context) error
}

// Run blocks until ctx is done. Errors from OnChange are logged, not
// returned, so one bad edit does not stop the watch.
func (w Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("collect: watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("collect: watch %s: %w", w.Dir, err)
	}
	logger.Info("watching", zap.String("dir", w.Dir))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("change", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := w.OnChange(ctx); err != nil {
				logger.Error("re-synthesis failed", zap.Error(err))
			}
		}
	}
}

// relevant reports whether event touches a contribution file.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	_, _, ok := ParseFileName(filepath.Base(event.Name))
	return ok
}
