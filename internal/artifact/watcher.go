package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a Holder when files under the bundle base directory change.
// Bursts of events (a deploy copying several files) collapse into one reload.
type Watcher struct {
	base     string
	holder   *Holder
	debounce time.Duration
	log      *zap.Logger
	fsw      *fsnotify.Watcher
	watched  map[string]struct{}
}

// NewWatcher watches base and the bundle directory it currently resolves to.
func NewWatcher(base string, holder *Holder, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if holder == nil {
		return nil, fmt.Errorf("watcher needs a holder")
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	log = logger.OrNop(log)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	w := &Watcher{
		base:     base,
		holder:   holder,
		debounce: debounce,
		log:      log,
		fsw:      fsw,
		watched:  make(map[string]struct{}),
	}
	if err := w.add(base); err != nil {
		fsw.Close()
		return nil, err
	}
	w.followActive()
	return w, nil
}

func (w *Watcher) add(dir string) error {
	dir = filepath.Clean(dir)
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watched[dir] = struct{}{}
	w.log.Debug("watching bundle dir", zap.String("dir", dir))
	return nil
}

// followActive starts watching the versioned bundle dir state.json points to.
func (w *Watcher) followActive() {
	dir, _, err := ResolveDir(w.base)
	if err != nil {
		return
	}
	if err := w.add(dir); err != nil {
		w.log.Warn("watch active bundle", zap.String("dir", dir), zap.Error(err))
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(ev.Name)
	// Temp files from atomic writes are followed by a rename we do see.
	return !strings.Contains(name, ".tmp-") && !strings.HasPrefix(name, ".")
}

// Run processes events until ctx is done. It closes the underlying watcher on
// return.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.log.Debug("bundle change", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("bundle watcher error", zap.Error(err))

		case <-timer.C:
			if _, _, err := w.holder.Reload(); err == nil {
				w.followActive()
			}
		}
	}
}
