package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/modicscan/syncengine/internal/logging"
)

// Pinger probes remote reachability. A nil error means online.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Watcher polls connectivity and fires onOnline on every offline-to-online
// transition. The initial state is offline, so the first successful probe
// also fires.
type Watcher struct {
	pinger      Pinger
	interval    time.Duration
	pingTimeout time.Duration
	onOnline    func()
	logger      logging.Logger

	mu     sync.Mutex
	online bool
}

func NewWatcher(pinger Pinger, interval time.Duration, onOnline func(), logger logging.Logger) *Watcher {
	return &Watcher{
		pinger:      pinger,
		interval:    interval,
		pingTimeout: 3 * time.Second,
		onOnline:    onOnline,
		logger:      logger,
	}
}

// Online reports the connectivity state of the last probe.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Run polls until ctx is cancelled. Call it from a dedicated goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.probe(ctx)
	for {
		select {
		case <-ticker.C:
			w.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.pingTimeout)
	err := w.pinger.Ping(pingCtx)
	cancel()

	w.mu.Lock()
	was := w.online
	w.online = err == nil
	now := w.online
	w.mu.Unlock()

	if was == now {
		return
	}
	if now {
		w.logger.Info(ctx, "connectivity restored")
		w.onOnline()
	} else {
		w.logger.Info(ctx, "connectivity lost", "error", err)
	}
}
