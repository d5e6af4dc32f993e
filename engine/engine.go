// Package engine implements the Protocol Engine (spec §4.5): the message
// loop, routing, lifecycle, handler dispatch, notification debouncer,
// progress plumbing, and backchannel send that make up the bulk of the MCP
// core. It is adapted from the teacher SDK's internal/protocol.Protocol,
// generalized to string-or-int ids, progress-reset timeouts, debouncing,
// and the strict/lenient lifecycle gate the teacher did not implement.
package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/effective-security/xlog"
	"github.com/pkg/errors"

	"github.com/mcpcore/engine/internal/debounce"
	"github.com/mcpcore/engine/internal/pending"
	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/transport"
)

var log = xlog.NewPackageLogger("github.com/mcpcore/engine", "engine")

// ConnState is the four-state connection machine of spec §3. Transitions
// are made under stateMu by Connect and by teardown, which runs either from
// Stop or from the receive loop when the transport's frame channel closes.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Disconnecting
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// ResponseRouter lets an external plug-in (e.g. a task subsystem) claim a
// response before the pending table sees it, for requests whose result was
// handed off to a long-running task (spec §4.5 response handling). It
// returns true if it claimed the response.
type ResponseRouter func(id jsonrpc.RequestID, result json.RawMessage, wireErr *jsonrpc.Error) bool

// PreProcessHook inspects a raw frame before decode and may fully handle it
// (e.g. to absorb an HTTP batch response), returning true if no further
// processing should happen.
type PreProcessHook func(data []byte) bool

// UnknownMessageHook is invoked for a frame that decodes to none of
// request/notification/response/batch.
type UnknownMessageHook func(raw json.RawMessage)

// Engine is one session's protocol engine: one transport, one pending
// table, one debouncer, one request-id counter (spec §5 "shared resources").
// Nothing here is shared across Engine instances except a Registry handed
// in by reference.
type Engine struct {
	transport transport.Transport
	codec     *jsonrpc.Codec
	opts      Options
	registry  *Registry

	sessionID string

	pendingTable *pending.Table
	progressReg  *progressRegistry
	debouncer    *debounce.Debouncer

	nextID int64

	stateMu      sync.Mutex
	state        ConnState
	receivedInit bool // server: notifications/initialized received
	negotiated   string

	cancelMu  sync.Mutex
	cancels   map[string]context.CancelFunc

	routersMu sync.Mutex
	routers   []ResponseRouter

	PreProcess     PreProcessHook
	OnUnknownFrame UnknownMessageHook

	stopOnce sync.Once
	closed   chan struct{}
}

// New builds an Engine bound to registry, not yet connected to any
// transport. sessionID may be empty for single-connection transports.
func New(registry *Registry, opts Options, sessionID string) *Engine {
	if opts.DebouncedMethods == nil {
		opts.DebouncedMethods = map[string]struct{}{}
	}
	e := &Engine{
		codec:        jsonrpc.NewCodec(),
		opts:         opts,
		registry:     registry,
		sessionID:    sessionID,
		pendingTable: pending.New(),
		progressReg:  newProgressRegistry(),
		cancels:      make(map[string]context.CancelFunc),
		closed:       make(chan struct{}),
	}
	e.debouncer = debounce.New(e.flushNotification)
	return e
}

// State reports the current connection state.
func (e *Engine) State() ConnState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// SessionID returns the session id this engine was constructed with (may be
// empty for single-connection transports).
func (e *Engine) SessionID() string { return e.sessionID }

// AddResponseRouter registers an external response router (spec §4.5).
func (e *Engine) AddResponseRouter(r ResponseRouter) {
	e.routersMu.Lock()
	defer e.routersMu.Unlock()
	e.routers = append(e.routers, r)
}

// generateRequestID allocates a monotonically increasing integer id, unique
// for the lifetime of this session (spec §3, §8 property 2).
func (e *Engine) generateRequestID() jsonrpc.RequestID {
	n := atomic.AddInt64(&e.nextID, 1)
	return jsonrpc.NewIntID(n)
}

// Connect starts the transport bound with WithTransport and begins the
// receive loop. Connect may only be called from Disconnected.
func (e *Engine) Connect(ctx context.Context) error {
	e.stateMu.Lock()
	if e.state != Disconnected {
		e.stateMu.Unlock()
		return errors.New("engine: Connect called outside Disconnected state")
	}
	e.state = Connecting
	e.stateMu.Unlock()

	if err := e.transport.Connect(ctx); err != nil {
		e.stateMu.Lock()
		e.state = Disconnected
		e.stateMu.Unlock()
		return errors.Wrap(err, "engine: transport connect")
	}

	e.stateMu.Lock()
	e.state = Connected
	e.stateMu.Unlock()

	go e.runLoop()
	return nil
}

// WithTransport binds the transport this engine will drive. Must be called
// before Connect.
func (e *Engine) WithTransport(tr transport.Transport) *Engine {
	e.transport = tr
	return e
}

func (e *Engine) runLoop() {
	frames, errs := e.transport.Receive()
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				e.teardown(NewConnectionClosed())
				return
			}
			e.onFrame(frame)

		case err, ok := <-errs:
			if !ok {
				continue
			}
			if err != nil {
				e.reportError(NewTransportError(err))
			}

		case <-e.closed:
			return
		}
	}
}

func (e *Engine) onFrame(frame transport.Frame) {
	if e.PreProcess != nil && e.PreProcess(frame.Data) {
		return
	}
	msg, err := e.codec.Decode(frame.Data)
	if err != nil {
		log.ContextKV(context.Background(), xlog.DEBUG, "event", "decode_error", "err", err.Error())
		return
	}
	e.route(msg, frame.Meta)
}

func (e *Engine) route(msg jsonrpc.Message, meta *transport.Metadata) {
	switch msg.Kind {
	case jsonrpc.KindBatch:
		for _, m := range msg.Batch {
			e.route(m, meta)
		}
	case jsonrpc.KindResponse:
		e.handleResponse(msg.Response)
	case jsonrpc.KindRequest:
		e.handleRequest(msg.Request, meta)
	case jsonrpc.KindNotification:
		e.handleNotification(msg.Notification, meta)
	default:
		if e.OnUnknownFrame != nil {
			e.OnUnknownFrame(msg.Raw)
		}
	}
}

// reportError invokes the configured OnError callback, if any.
func (e *Engine) reportError(err error) {
	if e.opts.OnError != nil {
		e.opts.OnError(err)
	}
}

// Stop tears the engine down: cancels the receive loop, fails all pending
// requests with ConnectionClosed, cancels pending debounced flushes and
// progress controllers, disconnects the transport, transitions to
// Disconnected, and invokes the close callback exactly once (spec §4.5,
// §8 property 3). A subsequent call is a no-op.
func (e *Engine) Stop() error {
	e.teardown(NewConnectionClosed())
	if e.transport != nil {
		return e.transport.Disconnect()
	}
	return nil
}

func (e *Engine) teardown(cause error) {
	e.stopOnce.Do(func() {
		e.stateMu.Lock()
		e.state = Disconnecting
		e.stateMu.Unlock()

		close(e.closed)

		e.pendingTable.FailAll(cause)
		e.progressReg.removeAll()
		e.debouncer.Stop()

		e.cancelMu.Lock()
		for _, cancel := range e.cancels {
			cancel()
		}
		e.cancels = make(map[string]context.CancelFunc)
		e.cancelMu.Unlock()

		e.stateMu.Lock()
		e.state = Disconnected
		e.stateMu.Unlock()

		if e.opts.OnClose != nil {
			e.opts.OnClose()
		}
	})
}
