// Package debounce implements the notification debouncer (spec §4.5, §8
// property 4): for a method in the coalesce set, any number of calls to
// Notify within a single cooperative tick result in exactly one flushed
// frame, carrying the most recently supplied payload.
package debounce

import (
	"runtime"
	"sync"
)

// Debouncer coalesces per-method notification payloads. One Debouncer
// instance is owned per session, matching the per-session debouncer state
// the spec requires (§5).
type Debouncer struct {
	mu        sync.Mutex
	pending   map[string][]byte
	scheduled map[string]chan struct{} // closed to cancel a scheduled flush
	stopped   bool
	flush     func(method string, payload []byte)
}

// New builds a debouncer that calls flush exactly once per coalesced batch.
func New(flush func(method string, payload []byte)) *Debouncer {
	return &Debouncer{
		pending:   make(map[string][]byte),
		scheduled: make(map[string]chan struct{}),
		flush:     flush,
	}
}

// Notify stores payload as the latest value for method. If no flush is
// already scheduled for method, one is scheduled after a cooperative yield;
// if one is already scheduled, this call just replaces the stored payload
// and piggybacks on it.
func (d *Debouncer) Notify(method string, payload []byte) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[method] = payload
	_, already := d.scheduled[method]
	cancel := make(chan struct{})
	if !already {
		d.scheduled[method] = cancel
	}
	d.mu.Unlock()

	if already {
		return
	}
	go d.runFlush(method, cancel)
}

func (d *Debouncer) runFlush(method string, cancel chan struct{}) {
	// Yield cooperatively so every Notify call made in the same tick lands
	// in d.pending before we read it back out.
	runtime.Gosched()

	select {
	case <-cancel:
		return
	default:
	}

	d.mu.Lock()
	payload, ok := d.pending[method]
	delete(d.pending, method)
	delete(d.scheduled, method)
	stopped := d.stopped
	d.mu.Unlock()

	if !ok || stopped {
		return
	}
	d.flush(method, payload)
}

// Stop cancels every scheduled-but-not-yet-flushed batch, so Stop() on the
// owning engine doesn't race a send against a transport it's tearing down.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	pending := d.scheduled
	d.scheduled = make(map[string]chan struct{})
	d.pending = make(map[string][]byte)
	d.mu.Unlock()
	for _, cancel := range pending {
		close(cancel)
	}
}
