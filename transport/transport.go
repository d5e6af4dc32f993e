// Package transport declares the interface the protocol engine consumes:
// an opaque, ordered, bidirectional byte-frame stream. Concrete framing
// (stdio newlines, HTTP+SSE, in-memory pipes) lives in subpackages and is
// outside the protocol engine's concern (spec §1, §4.2).
package transport

import (
	"context"

	"github.com/mcpcore/engine/jsonrpc"
)

// Metadata carries per-message auxiliary context that only some transports
// have (authenticated identity, HTTP headers, a stream-close callback).
// Simple transports (stdio, in-memory) pass nil.
type Metadata struct {
	// AuthInfo is an opaque identity token the transport attached to this
	// frame, surfaced to handlers via Context.
	AuthInfo any
	// HTTPHeaders is populated for HTTP-backed transports.
	HTTPHeaders map[string][]string
	// CloseStream, if non-nil, closes just this message's backing stream
	// (HTTP+SSE long-poll semantics) without tearing down the session.
	CloseStream func()
}

// Frame is one received byte-frame plus its metadata.
type Frame struct {
	Data []byte
	Meta *Metadata
}

// SendOptions carries per-send routing hints.
type SendOptions struct {
	// RelatedRequestID, when set, tells a multiplexing transport (e.g.
	// HTTP+SSE) which in-flight request stream this outgoing frame belongs
	// to. Notifications carrying this are never debounced (spec §4.5).
	RelatedRequestID *jsonrpc.RequestID
}

// Transport is the bidirectional, length-framed byte stream the engine
// drives. Implementations own framing; the engine only sees whole frames.
type Transport interface {
	// Connect establishes the underlying connection/stream.
	Connect(ctx context.Context) error
	// Disconnect tears the connection down. Idempotent.
	Disconnect() error
	// Send transmits one encoded frame.
	Send(ctx context.Context, data []byte, opts SendOptions) error
	// Receive returns a channel of incoming frames, closed when the
	// transport's read side ends (gracefully or not). A transport error that
	// aborts the loop is reported via the returned error channel, which is
	// also closed at the same time as the frame channel.
	Receive() (<-chan Frame, <-chan error)
	// SupportsServerToClientRequests reports whether the peer on the other
	// end of this transport can receive requests (as opposed to only
	// responses/notifications). Stateless HTTP POST ingress cannot; the
	// engine refuses backchannel Context.SendRequest calls when false
	// (spec §4.2, §8 property 8).
	SupportsServerToClientRequests() bool
	// SetProtocolVersion is called after each successful initialize
	// handshake, with the negotiated version string so transports that
	// embed it in headers can update themselves (spec §4.2).
	SetProtocolVersion(version string)
}
