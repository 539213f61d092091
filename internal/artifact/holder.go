package artifact

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/logger"
)

// LoadFunc produces a freshly loaded bundle.
type LoadFunc func() (*Bundle, error)

// ReloadOutcome describes what a reload did to the active bundle.
type ReloadOutcome string

const (
	ReloadSwapped      ReloadOutcome = "swapped"
	ReloadKeptPrevious ReloadOutcome = "kept_previous"
	ReloadFailed       ReloadOutcome = "failed"
)

// decideReload determines what to do with the result of a reload attempt.
// It is pure so it can be tested without touching the filesystem.
func decideReload(hasCurrent bool, loadErr error) ReloadOutcome {
	if loadErr == nil {
		return ReloadSwapped
	}
	if hasCurrent {
		return ReloadKeptPrevious
	}
	return ReloadFailed
}

// HolderOptions configures a Holder.
type HolderOptions struct {
	// RetireGrace is how long a replaced bundle stays open for in-flight
	// requests before it is closed. Zero closes it immediately.
	RetireGrace time.Duration
	Logger      *zap.Logger
	// OnLoad, when set, sees the bundle installed by the first successful Get.
	OnLoad func(b *Bundle)
	// OnReload, when set, observes every reload attempt.
	OnReload func(outcome ReloadOutcome, b *Bundle, err error)
}

// Holder owns the active bundle. Readers never lock; loads and reloads are
// serialized.
type Holder struct {
	load LoadFunc
	opts HolderOptions
	log  *zap.Logger

	cur atomic.Pointer[Bundle]
	mu  sync.Mutex

	closed bool
}

// NewHolder returns a holder that loads through load. Nothing is loaded until
// Get or Reload is called.
func NewHolder(load LoadFunc, opts HolderOptions) *Holder {
	log := logger.OrNop(opts.Logger)
	return &Holder{load: load, opts: opts, log: log}
}

// NewStaticHolder wraps an already loaded bundle.
func NewStaticHolder(b *Bundle) *Holder {
	h := NewHolder(func() (*Bundle, error) { return b, nil }, HolderOptions{})
	h.cur.Store(b)
	return h
}

// ErrHolderClosed is returned once Close has been called.
var ErrHolderClosed = errors.New("bundle holder closed")

// Get returns the active bundle, loading it on first use. A failed load is
// not cached; the next call retries.
func (h *Holder) Get() (*Bundle, error) {
	if b := h.cur.Load(); b != nil {
		return b, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHolderClosed
	}
	if b := h.cur.Load(); b != nil {
		return b, nil
	}

	start := time.Now()
	b, err := h.load()
	if err != nil {
		h.log.Error("bundle load failed", zap.Error(err))
		return nil, err
	}
	h.cur.Store(b)
	h.log.Info("bundle loaded",
		zap.String("version", b.Version()),
		zap.String("dir", b.Dir()),
		zap.Bool("probabilities", b.SupportsProbabilities()),
		zap.Duration("took", time.Since(start)),
	)
	if h.opts.OnLoad != nil {
		h.opts.OnLoad(b)
	}
	return b, nil
}

// Current returns the active bundle without loading, or nil.
func (h *Holder) Current() *Bundle {
	return h.cur.Load()
}

// Reload loads a new bundle and swaps it in. When the load fails and a bundle
// is already active, that bundle stays active and the error is returned
// alongside it.
func (h *Holder) Reload() (*Bundle, ReloadOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ReloadFailed, ErrHolderClosed
	}

	old := h.cur.Load()
	next, err := h.load()
	outcome := decideReload(old != nil, err)

	switch outcome {
	case ReloadSwapped:
		h.cur.Store(next)
		h.log.Info("bundle reloaded",
			zap.String("version", next.Version()),
			zap.String("previous_version", versionOf(old)),
		)
		if old != nil && old != next {
			h.retire(old)
		}
	case ReloadKeptPrevious:
		h.log.Warn("bundle reload failed; keeping active bundle",
			zap.String("version", old.Version()),
			zap.Error(err),
		)
		err = fmt.Errorf("reload: %w", err)
	default:
		h.log.Error("bundle reload failed", zap.Error(err))
		err = fmt.Errorf("reload: %w", err)
	}

	if h.opts.OnReload != nil {
		h.opts.OnReload(outcome, h.cur.Load(), err)
	}
	return h.cur.Load(), outcome, err
}

func (h *Holder) retire(b *Bundle) {
	closeFn := func() {
		if err := b.Close(); err != nil {
			h.log.Warn("close retired bundle", zap.String("version", b.Version()), zap.Error(err))
		}
	}
	if h.opts.RetireGrace <= 0 {
		closeFn()
		return
	}
	time.AfterFunc(h.opts.RetireGrace, closeFn)
}

// Close releases the active bundle. Later calls to Get fail.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	b := h.cur.Swap(nil)
	if b == nil {
		return nil
	}
	return b.Close()
}

func versionOf(b *Bundle) string {
	if b == nil {
		return ""
	}
	return b.Version()
}
