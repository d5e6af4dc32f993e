// Package pending implements the Pending Request Table (spec §4.3): the
// sole owner of completion sinks for outbound requests, insert-on-send and
// remove-on-completion, with cancellation and mass-failure (disconnect)
// paths. Adapted from the teacher protocol's responseHandlers map, promoted
// to its own type with a single-shot completion sink instead of a bare
// channel so at-most-once delivery (spec §8 property 1) is enforced here
// rather than hoped for at each call site.
package pending

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mcpcore/engine/jsonrpc"
)

// Envelope is what a completion sink resolves to: either raw response bytes
// (the awaiter owns the typed decode, per spec §9) or an error.
type Envelope struct {
	Result json.RawMessage
	Err    error
}

// Entry is one in-flight outbound request.
type Entry struct {
	ID          jsonrpc.RequestID
	RegisteredAt time.Time
	ProgressToken *jsonrpc.ProgressToken

	sink chan Envelope
	once sync.Once
}

// complete resolves the entry exactly once; subsequent calls are no-ops,
// which is what makes at-most-once routing (spec §8 property 1) hold even
// if, say, a disconnect race and a late response both try to resolve it.
func (e *Entry) complete(env Envelope) {
	e.once.Do(func() {
		e.sink <- env
		close(e.sink)
	})
}

// Await blocks until the entry completes.
func (e *Entry) Await() <-chan Envelope { return e.sink }

// Table is the insert-on-send, remove-on-completion map from request id to
// completion sink.
type Table struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New builds an empty table.
func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Register inserts a new entry for id. It errors if id is already pending,
// enforcing the id-uniqueness invariant (spec §3).
func (t *Table) Register(id jsonrpc.RequestID, progressToken *jsonrpc.ProgressToken) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := id.String()
	if _, exists := t.entries[key]; exists {
		return nil, errors.Errorf("request id %s already pending", key)
	}
	e := &Entry{ID: id, RegisteredAt: time.Now(), ProgressToken: progressToken, sink: make(chan Envelope, 1)}
	t.entries[key] = e
	return e, nil
}

// Lookup returns the entry for id without removing it, for progress
// delivery that doesn't complete the request.
func (t *Table) Lookup(id jsonrpc.RequestID) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id.String()]
	return e, ok
}

// LookupByProgressToken scans for the entry whose progress token matches.
// Unknown tokens return (nil, false); the caller must drop the notification
// silently (spec §3 invariant).
func (t *Table) LookupByProgressToken(token jsonrpc.ProgressToken) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	want := token.String()
	for _, e := range t.entries {
		if e.ProgressToken != nil && e.ProgressToken.String() == want {
			return e, true
		}
	}
	return nil, false
}

// Complete resolves and removes the entry for id with a successful result.
// Returns false if no such entry exists (already completed, cancelled, or
// never registered) — the caller should log and drop, per spec §7.
func (t *Table) Complete(id jsonrpc.RequestID, result json.RawMessage) bool {
	return t.resolve(id, Envelope{Result: result})
}

// Fail resolves and removes the entry for id with an error.
func (t *Table) Fail(id jsonrpc.RequestID, err error) bool {
	return t.resolve(id, Envelope{Err: err})
}

func (t *Table) resolve(id jsonrpc.RequestID, env Envelope) bool {
	t.mu.Lock()
	key := id.String()
	e, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	e.complete(env)
	return true
}

// Cancel resolves and removes the entry for id with a cancellation error, if
// present. Returns false if id was not pending.
func (t *Table) Cancel(id jsonrpc.RequestID, err error) bool {
	return t.resolve(id, Envelope{Err: err})
}

// FailAll resolves and removes every pending entry with err, used on
// disconnect (spec §3 invariant: every pending request completes with
// ConnectionClosed before the state becomes Disconnected).
func (t *Table) FailAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*Entry)
	t.mu.Unlock()

	for _, e := range entries {
		e.complete(Envelope{Err: err})
	}
}

// Len reports the number of in-flight entries, for diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
