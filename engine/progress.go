package engine

import (
	"sync"

	"github.com/mcpcore/engine/internal/timeoutctl"
	"github.com/mcpcore/engine/jsonrpc"
)

// progressSubscription is the spec §3 Progress Subscription: created when a
// request is sent with a progress callback, destroyed on terminal task
// status, on originating-request completion without a task handoff, or on
// disconnect. It may be rebound from a request to a long-lived task id.
type progressSubscription struct {
	token     jsonrpc.ProgressToken
	callback  ProgressCallback
	requestID *jsonrpc.RequestID
	taskID    *string
	timeout   *timeoutctl.Controller
}

// progressRegistry indexes subscriptions by token, independently of the
// pending request table, because a subscription may outlive the request
// that created it once handed off to a task.
type progressRegistry struct {
	mu   sync.Mutex
	subs map[string]*progressSubscription
}

func newProgressRegistry() *progressRegistry {
	return &progressRegistry{subs: make(map[string]*progressSubscription)}
}

func (r *progressRegistry) register(sub *progressSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.token.String()] = sub
}

func (r *progressRegistry) lookup(token jsonrpc.ProgressToken) (*progressSubscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[token.String()]
	return s, ok
}

func (r *progressRegistry) remove(token jsonrpc.ProgressToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, token.String())
}

// removeIfUnbound tears down the subscription for token unless it has been
// rebound to a task via bindTask, in which case it must outlive the request
// that created it (spec §3: destroyed on terminal task status, on
// originating-request completion without a task handoff, or on disconnect).
func (r *progressRegistry) removeIfUnbound(token jsonrpc.ProgressToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[token.String()]; ok && s.taskID == nil {
		delete(r.subs, token.String())
	}
}

// removeAll tears down every subscription, used on disconnect.
func (r *progressRegistry) removeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[string]*progressSubscription)
}

// bindTask rebinds a subscription from its originating request to a
// long-lived task id, so it survives the request's completion (spec §3).
func (r *progressRegistry) bindTask(token jsonrpc.ProgressToken, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[token.String()]; ok {
		s.taskID = &taskID
	}
}
