// Package watcher drives the debug session from host navigation events.
package watcher

import (
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// Location is one host routing position.
type Location struct {
	Path string `json:"path"`
}

// Source is the injected navigation event source. Subscribe returns an
// unsubscribe function; Location reports the current position if known.
type Source interface {
	Subscribe(fn func(Location)) (stop func())
	Location() (Location, bool)
}

// SessionControl is the slice of the session manager the watcher drives.
type SessionControl interface {
	Start()
	Stop()
	Mounted() bool
}

// Watcher subscribes once to the navigation source and starts or stops the
// session as the storefront view is entered and left.
type Watcher struct {
	cfg     config.WatcherConfig
	source  Source
	session SessionControl
	logger  *log.Logger

	mu         sync.Mutex
	startTimer *time.Timer
	unsub      func()
	closed     bool
}

func New(cfg config.WatcherConfig, source Source, session SessionControl) *Watcher {
	return &Watcher{
		cfg:     cfg.Normalize(),
		source:  source,
		session: session,
		logger:  telemetry.Logger("WATCHER"),
	}
}

// Watch subscribes to the source and evaluates the current location once, in
// case the storefront view is already active.
func (w *Watcher) Watch() {
	w.mu.Lock()
	if w.unsub != nil || w.closed {
		w.mu.Unlock()
		return
	}
	w.unsub = w.source.Subscribe(w.handle)
	w.mu.Unlock()

	if loc, ok := w.source.Location(); ok {
		w.handle(loc)
	}
}

func (w *Watcher) handle(loc Location) {
	if loc.Path == w.cfg.StorePath {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		if w.startTimer != nil {
			w.startTimer.Stop()
		}
		// the store tab URL may still be settling right after the view
		// switch; give it a moment before attaching
		w.startTimer = time.AfterFunc(w.cfg.StartSettle, func() {
			w.mu.Lock()
			closed := w.closed
			w.mu.Unlock()
			if closed {
				return
			}
			if !w.session.Mounted() {
				w.session.Start()
			}
		})
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	if w.startTimer != nil {
		w.startTimer.Stop()
		w.startTimer = nil
	}
	w.mu.Unlock()
	if w.session.Mounted() {
		w.logger.Printf("left storefront view (%s), stopping session", loc.Path)
		w.session.Stop()
	}
}

// Close unsubscribes and stops any active session. Idempotent.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	unsub := w.unsub
	w.unsub = nil
	if w.startTimer != nil {
		w.startTimer.Stop()
		w.startTimer = nil
	}
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	w.session.Stop()
}
