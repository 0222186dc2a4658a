package state

import (
	"sync"
	"time"

	"github.com/vertextoedge/streamcache/internal/metrics"
)

// DefaultSaveWindow is the debounce window for persistence requests.
const DefaultSaveWindow = 2 * time.Second

// debouncer coalesces persistence requests on a trailing window. The
// first request in a window triggers an immediate write and arms a
// timer; requests arriving while armed only bump a counter. When the
// window elapses, one trailing write runs if any request arrived after
// the immediate one. Worst case per window: two writes.
//
// The timer handle is owned here, so a closed debouncer's pending
// callback is a guaranteed no-op rather than a defensive self-check.
type debouncer struct {
	window  time.Duration
	persist func()

	mu      sync.Mutex
	pending int
	timer   *time.Timer
	closed  bool
}

func newDebouncer(window time.Duration, persist func()) *debouncer {
	return &debouncer{window: window, persist: persist}
}

// request asks for the current state to be persisted.
func (d *debouncer) request() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	d.pending++
	if d.pending > 1 {
		// Armed: the trailing write will capture this request.
		d.mu.Unlock()
		return
	}

	d.timer = time.AfterFunc(d.window, d.windowElapsed)
	d.mu.Unlock()

	d.persist()
}

// windowElapsed runs when the armed window ends.
func (d *debouncer) windowElapsed() {
	d.mu.Lock()
	n := d.pending
	d.pending = 0
	d.timer = nil
	closed := d.closed
	d.mu.Unlock()

	if closed || n <= 1 {
		// Nothing arrived after the immediate write.
		return
	}

	metrics.SavesCoalesced.Add(float64(n - 1))
	d.persist()
}

// pendingCount returns the number of requests in the current window.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// close stops the timer. If requests arrived after the last write, one
// final write captures them before the debouncer goes quiet.
func (d *debouncer) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	n := d.pending
	d.pending = 0
	d.mu.Unlock()

	if n > 1 {
		d.persist()
	}
}
