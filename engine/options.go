package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/mcp"
)

// RequestHandlerFunc handles a typed request and returns its result or a
// domain error. Non-MCPError returns are sanitized to InternalError before
// transmission (spec §4.5, §7).
type RequestHandlerFunc func(ctx context.Context, hctx *Context, params json.RawMessage) (any, error)

// FallbackRequestHandlerFunc is invoked for any method without a specific
// handler installed.
type FallbackRequestHandlerFunc func(ctx context.Context, hctx *Context, method string, params json.RawMessage) (any, error)

// NotificationHandlerFunc handles a one-way notification. Returned errors
// are logged, not transmitted (notifications never reply).
type NotificationHandlerFunc func(ctx context.Context, hctx *Context, params json.RawMessage) error

// FallbackNotificationHandlerFunc is invoked for any notification method
// without a specific handler installed.
type FallbackNotificationHandlerFunc func(ctx context.Context, hctx *Context, method string, params json.RawMessage) error

// ProgressCallback receives a progress update for a request or task.
type ProgressCallback func(progress float64, total *float64, message *string)

// RequestOptions configures one outbound request (spec §6).
type RequestOptions struct {
	Timeout              time.Duration
	ResetTimeoutOnProgress bool
	MaxTotalTimeout      time.Duration
	ProgressToken        *jsonrpc.ProgressToken
	OnProgress           ProgressCallback

	// ID, if set, is used as this request's id instead of one generated by
	// the engine. Supplying it lets a caller call Engine.Cancel(id, reason)
	// at any point while the request is outstanding (spec §8 scenario 5).
	ID *jsonrpc.RequestID
	// OnID, if set, is invoked synchronously with the request's id (whether
	// caller-supplied via ID or engine-generated) before SendRequest blocks
	// for a response, so a caller that didn't supply ID can still learn it
	// in time to cancel by id.
	OnID func(jsonrpc.RequestID)
}

// DefaultRequestTimeout is used when RequestOptions.Timeout is zero.
const DefaultRequestTimeout = 60 * time.Second

// SendOptions configures one outbound send (spec §6).
type SendOptions struct {
	RelatedRequestID *jsonrpc.RequestID
}

// NotificationOptions configures one outbound notification (spec §4.5,
// §6). A notification whose RelatedRequestID is set belongs to a specific
// outgoing or incoming request stream and is never coalesced by the
// debouncer, regardless of whether its method is in DebouncedMethods.
type NotificationOptions struct {
	RelatedRequestID *jsonrpc.RequestID
}

// Options configures an Engine instance (spec §6).
type Options struct {
	// StrictLifecycle enforces initialize-before-use (spec §4.5, §8
	// property 7). Servers should set this true; a client dialing a server
	// it trusts may set it false.
	StrictLifecycle bool

	// DebouncedMethods is the set of notification methods whose sends are
	// coalesced per spec §4.5, §8 property 4.
	DebouncedMethods map[string]struct{}

	// CapabilitiesDeclared authorizes which list-changed/resource-updated
	// notifications a Context may emit (spec §4.6, §8 property 6). Nil
	// means no capabilities are declared, so all such sends fail.
	CapabilitiesDeclared *mcp.ServerCapabilities

	// MinLogLevel gates Context.SendLog: messages below this severity are
	// dropped locally without generating a frame.
	MinLogLevel mcp.LoggingLevel

	// DefaultRequestTimeout is used for an outbound request whose
	// RequestOptions.Timeout is zero. Defaults to DefaultRequestTimeout
	// (60s) when this is itself zero.
	DefaultRequestTimeout time.Duration

	// ServerInfo identifies this server in the initialize response.
	ServerInfo mcp.Implementation
	// Instructions, if set, is returned to the client at initialize time as
	// freeform guidance on how to use this server.
	Instructions string
	// OnInitialize, if set, is invoked with the client's initialize params
	// before the response is built, so the caller can record client
	// identity or reject the handshake (a non-nil error becomes the
	// initialize response's error).
	OnInitialize func(ctx context.Context, hctx *Context, params mcp.InitializeParams) error

	// OnClose fires exactly once per connect→close cycle (spec §3 invariant).
	OnClose func()
	// OnError fires for transport errors surfaced outside a specific
	// request/response cycle (spec §7).
	OnError func(error)
}

// DebouncedMethodSet builds a DebouncedMethods set from a list of method
// names, for convenient Options construction.
func DebouncedMethodSet(methods ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}
