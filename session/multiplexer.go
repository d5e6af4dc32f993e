// Package session implements the Session Multiplexer (spec §4.7): many
// concurrent Engine instances, one per client connection, sharing a single
// handler Registry by reference so registering a tool once serves every
// connected client. Grounded on the teacher's SSEServerTransport.SessionID
// concept, generalized from "one transport carries one session id" to
// "one Multiplexer owns every session id this process is serving".
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mcpcore/engine/engine"
	"github.com/mcpcore/engine/mcpmethod"
	"github.com/mcpcore/engine/transport"
)

// Multiplexer tracks every active Engine this process is serving and hands
// out new ones pre-wired to the shared Registry.
type Multiplexer struct {
	registry *engine.Registry
	opts     engine.Options

	mu       sync.RWMutex
	sessions map[string]*engine.Engine
}

// New builds a Multiplexer whose sessions all share registry and are built
// with opts (each session gets its own OnClose wrapped to also deregister
// it here, so caller-supplied OnClose callbacks still fire).
func New(registry *engine.Registry, opts engine.Options) *Multiplexer {
	return &Multiplexer{
		registry: registry,
		opts:     opts,
		sessions: make(map[string]*engine.Engine),
	}
}

// Registry returns the shared registry, so callers can register handlers
// once for every session past, present, and future.
func (m *Multiplexer) Registry() *engine.Registry { return m.registry }

// CreateSession builds a new Engine bound to tr under sessionID, connects
// it, and tracks it until it closes. sessionID must be unique among
// currently active sessions.
func (m *Multiplexer) CreateSession(ctx context.Context, sessionID string, tr transport.Transport) (*engine.Engine, error) {
	m.mu.Lock()
	if _, exists := m.sessions[sessionID]; exists {
		m.mu.Unlock()
		return nil, errors.Errorf("session: id %q already active", sessionID)
	}
	m.mu.Unlock()

	opts := m.opts
	userOnClose := opts.OnClose
	opts.OnClose = func() {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		if userOnClose != nil {
			userOnClose()
		}
	}

	e := engine.New(m.registry, opts, sessionID)
	e.WithTransport(tr)

	m.mu.Lock()
	m.sessions[sessionID] = e
	m.mu.Unlock()

	if err := e.Connect(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, errors.Wrap(err, "session: connect")
	}
	return e, nil
}

// Session looks up an active session by id.
func (m *Multiplexer) Session(sessionID string) (*engine.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	return e, ok
}

// CloseSession stops and deregisters the session, if active.
func (m *Multiplexer) CloseSession(sessionID string) error {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.Stop()
}

// Sessions returns the session ids currently active, for diagnostics.
func (m *Multiplexer) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of active sessions.
func (m *Multiplexer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast sends method/params as a notification on every active session,
// collecting and returning every per-session send error keyed by session id.
func (m *Multiplexer) Broadcast(ctx context.Context, method string, params any) map[string]error {
	m.mu.RLock()
	targets := make([]*engine.Engine, 0, len(m.sessions))
	for _, e := range m.sessions {
		targets = append(targets, e)
	}
	m.mu.RUnlock()

	var mu sync.Mutex
	errs := make(map[string]error)
	var wg sync.WaitGroup
	for _, e := range targets {
		wg.Add(1)
		go func(e *engine.Engine) {
			defer wg.Done()
			if err := e.Notification(ctx, method, params); err != nil {
				mu.Lock()
				errs[e.SessionID()] = err
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// BroadcastToolListChanged notifies every active session that the tool list
// changed (spec §4.6, convenience wrapper around Broadcast).
func (m *Multiplexer) BroadcastToolListChanged(ctx context.Context) map[string]error {
	return m.Broadcast(ctx, mcpmethod.ToolsListChanged, nil)
}

// BroadcastResourceListChanged notifies every active session that the
// resource list changed.
func (m *Multiplexer) BroadcastResourceListChanged(ctx context.Context) map[string]error {
	return m.Broadcast(ctx, mcpmethod.ResourcesListChanged, nil)
}

// BroadcastPromptListChanged notifies every active session that the prompt
// list changed.
func (m *Multiplexer) BroadcastPromptListChanged(ctx context.Context) map[string]error {
	return m.Broadcast(ctx, mcpmethod.PromptsListChanged, nil)
}
