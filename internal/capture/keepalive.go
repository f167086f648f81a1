package capture

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alsstream/als-pipeline/internal/logger"
)

// keepAliveWorker runs on its own goroutine and emits the fixed KeepAlive
// recipe every interval. It cooperates with the main loop through two
// atomics (running, enabled) and a quit channel; the socket to write to is
// passed to the worker goroutine when it starts (spec §4.C, §5).
type keepAliveWorker struct {
	interval time.Duration

	running atomic.Bool // session-wide: set false on shutdown
	enabled atomic.Bool // worker-local: the main loop can stop just this worker

	quit   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	active bool
}

func newKeepAliveWorker(interval time.Duration) *keepAliveWorker {
	return &keepAliveWorker{interval: interval}
}

func (k *keepAliveWorker) setRunning(v bool) { k.running.Store(v) }

// start launches the worker goroutine for this connection. It is a no-op
// if a worker is already active.
func (k *keepAliveWorker) start(conn net.Conn) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return
	}
	k.active = true
	k.enabled.Store(true)
	k.quit = make(chan struct{})
	k.wg.Add(1)
	go k.loop(conn, k.quit)
}

// stop signals the active worker to exit and waits for it to do so. Safe to
// call when no worker is active.
func (k *keepAliveWorker) stop() {
	k.mu.Lock()
	if !k.active {
		k.mu.Unlock()
		return
	}
	k.enabled.Store(false)
	close(k.quit)
	k.mu.Unlock()
	k.wg.Wait()
	k.mu.Lock()
	k.active = false
	k.mu.Unlock()
}

func (k *keepAliveWorker) loop(conn net.Conn, quit chan struct{}) {
	defer k.wg.Done()
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if !k.running.Load() || !k.enabled.Load() {
				return
			}
			if _, err := conn.Write(KeepAliveRecipe()); err != nil {
				logger.Warn("keepalive send failed, worker exiting", "err", err)
				return
			}
		}
	}
}
