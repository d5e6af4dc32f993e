// Package sse implements an HTTP+SSE Transport, adapted from the teacher
// SDK's sse.go/sse_server.go: server→client frames ride a Server-Sent Events
// stream, client→server frames arrive as HTTP POST bodies. Sessions are
// keyed by a UUID handed to the client in the initial "endpoint" event,
// exactly as the teacher does.
package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mcpcore/engine/mcp"
	"github.com/mcpcore/engine/transport"
)

const maxMessageSize = 4 * 1024 * 1024 // 4MB, per the teacher's sizing

// Transport is one client's SSE session: one long-lived GET stream out, many
// short-lived POSTs in.
type Transport struct {
	sessionID string

	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
	closed  bool
	version string

	frames chan transport.Frame
	errs   chan error
}

func newTransport(w http.ResponseWriter, flusher http.Flusher) *Transport {
	return &Transport{
		sessionID: uuid.NewString(),
		writer:    w,
		flusher:   flusher,
		frames:    make(chan transport.Frame, 16),
		errs:      make(chan error, 1),
	}
}

// SessionID is the identifier handed to the client in the "endpoint" event
// and expected back as the sessionId POST query parameter.
func (t *Transport) SessionID() string { return t.sessionID }

func (t *Transport) Connect(ctx context.Context) error {
	h := t.writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return t.writeEvent("endpoint", fmt.Sprintf("/messages?sessionId=%s", t.sessionID))
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.frames)
	close(t.errs)
	return nil
}

func (t *Transport) Send(ctx context.Context, data []byte, _ transport.SendOptions) error {
	return t.writeEvent("message", string(data))
}

func (t *Transport) writeEvent(event, data string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("sse transport is closed")
	}
	if _, err := fmt.Fprintf(t.writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return errors.Wrap(err, "sse write")
	}
	t.flusher.Flush()
	return nil
}

func (t *Transport) Receive() (<-chan transport.Frame, <-chan error) {
	return t.frames, t.errs
}

// SupportsServerToClientRequests is false: each POST ingress is a stateless
// request/response cycle that returns before any server-initiated request
// could be answered, so the engine must refuse backchannel sends on this
// transport (spec §4.2, §8 property 8).
func (t *Transport) SupportsServerToClientRequests() bool { return false }

func (t *Transport) SetProtocolVersion(version string) {
	t.mu.Lock()
	t.version = version
	t.mu.Unlock()
}

// ProtocolVersion reports the version this session negotiated at
// initialize. Before the handshake completes this transport carries no
// protocol-version header of its own, so it reports
// mcp.DefaultProtocolVersion, the oldest stable release, per spec §6's
// "default-negotiated value when the header is absent" rule.
func (t *Transport) ProtocolVersion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.version == "" {
		return mcp.DefaultProtocolVersion
	}
	return t.version
}

func (t *Transport) deliver(data []byte) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	t.frames <- transport.Frame{Data: data}
}

var _ transport.Transport = (*Transport)(nil)

// Listener multiplexes many SSE sessions behind one gin router, pairing each
// GET /sse stream with the POST /messages ingress carrying its sessionId.
type Listener struct {
	mu       sync.RWMutex
	sessions map[string]*Transport

	// OnSession is invoked with each newly accepted transport, before its
	// first frame can arrive, so the caller can hand it to a
	// session.Multiplexer.CreateSession.
	OnSession func(*Transport)
}

// NewListener builds an empty session registry.
func NewListener() *Listener {
	return &Listener{sessions: make(map[string]*Transport)}
}

// Register wires the SSE stream and message-ingress endpoints onto an
// existing gin router group.
func (l *Listener) Register(r gin.IRouter) {
	r.GET("/sse", l.handleStream)
	r.POST("/messages", l.handleMessage)
}

func (l *Listener) handleStream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}
	t := newTransport(c.Writer, flusher)

	l.mu.Lock()
	l.sessions[t.sessionID] = t
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.sessions, t.sessionID)
		l.mu.Unlock()
		t.Disconnect()
	}()

	// OnSession is expected to drive this transport through an Engine
	// (session.Multiplexer.CreateSession), whose Connect call invokes
	// Transport.Connect and emits the "endpoint" event.
	if l.OnSession != nil {
		l.OnSession(t)
	}

	<-c.Request.Context().Done()
}

func (l *Listener) handleMessage(c *gin.Context) {
	sessionID := c.Query("sessionId")
	l.mu.RLock()
	t, ok := l.sessions[sessionID]
	l.mu.RUnlock()
	if !ok {
		c.String(http.StatusNotFound, "unknown session")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMessageSize))
	if err != nil {
		c.String(http.StatusBadRequest, "%v", err)
		return
	}
	defer c.Request.Body.Close()

	t.deliver(body)
	c.Status(http.StatusAccepted)
}
