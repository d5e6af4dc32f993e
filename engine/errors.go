package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcpcore/engine/jsonrpc"
)

// Kind is the error taxonomy of spec §7. It is a closed set of categories,
// not a type hierarchy — every MCPError carries exactly one Kind.
type Kind int

const (
	KindParseError Kind = iota
	KindInvalidRequest
	KindMethodNotFound
	KindInvalidParams
	KindInternalError
	KindResourceNotFound
	KindURLElicitationRequired
	KindServerError
	KindConnectionClosed
	KindTransportError
	KindRequestTimeout
	KindRequestCancelled
)

// MCPError is the single concrete error type implementing the spec §7
// taxonomy. Kind drives wire-code mapping; Data is the optional JSON-RPC
// error.data payload.
type MCPError struct {
	Kind     Kind
	Message  string
	Data     json.RawMessage
	Code     int32 // only meaningful for KindServerError (arbitrary server-chosen code)
	Duration time.Duration // only meaningful for KindRequestTimeout
	Reason   string        // only meaningful for KindRequestCancelled
	Wrapped  error         // only meaningful for KindTransportError
}

func (e *MCPError) Error() string {
	switch e.Kind {
	case KindRequestTimeout:
		return fmt.Sprintf("request timeout after %v", e.Duration)
	case KindRequestCancelled:
		if e.Reason != "" {
			return fmt.Sprintf("request cancelled: %s", e.Reason)
		}
		return "request cancelled"
	case KindTransportError:
		if e.Wrapped != nil {
			return fmt.Sprintf("transport error: %v", e.Wrapped)
		}
		return "transport error"
	default:
		return e.Message
	}
}

func (e *MCPError) Unwrap() error { return e.Wrapped }

func NewParseError(msg string) *MCPError       { return &MCPError{Kind: KindParseError, Message: msg} }
func NewInvalidRequest(msg string) *MCPError   { return &MCPError{Kind: KindInvalidRequest, Message: msg} }
func NewMethodNotFound(method string) *MCPError {
	return &MCPError{Kind: KindMethodNotFound, Message: "Method not found: " + method}
}
func NewInvalidParams(msg string) *MCPError { return &MCPError{Kind: KindInvalidParams, Message: msg} }
func NewInternalError() *MCPError {
	return &MCPError{Kind: KindInternalError, Message: "An internal error occurred"}
}
func NewResourceNotFound(msg string) *MCPError {
	return &MCPError{Kind: KindResourceNotFound, Message: msg}
}
func NewURLElicitationRequired(msg string) *MCPError {
	return &MCPError{Kind: KindURLElicitationRequired, Message: msg}
}
func NewServerError(code int32, msg string, data json.RawMessage) *MCPError {
	return &MCPError{Kind: KindServerError, Code: code, Message: msg, Data: data}
}
func NewConnectionClosed() *MCPError {
	return &MCPError{Kind: KindConnectionClosed, Message: "connection closed"}
}
func NewTransportError(wrapped error) *MCPError {
	return &MCPError{Kind: KindTransportError, Message: "transport error", Wrapped: wrapped}
}
func NewRequestTimeout(d time.Duration) *MCPError {
	return &MCPError{Kind: KindRequestTimeout, Message: "request timeout", Duration: d}
}
func NewRequestCancelled(reason string) *MCPError {
	return &MCPError{Kind: KindRequestCancelled, Message: "request cancelled", Reason: reason}
}

// ToWire renders the taxonomy as a JSON-RPC error object, bit-exact per
// spec §3: code and message are always present, data only when set.
func (e *MCPError) ToWire() *jsonrpc.Error {
	code := wireCode(e)
	return &jsonrpc.Error{Code: code, Message: e.Error(), Data: e.Data}
}

func wireCode(e *MCPError) int32 {
	switch e.Kind {
	case KindParseError:
		return jsonrpc.CodeParseError
	case KindInvalidRequest:
		return jsonrpc.CodeInvalidRequest
	case KindMethodNotFound:
		return jsonrpc.CodeMethodNotFound
	case KindInvalidParams:
		return jsonrpc.CodeInvalidParams
	case KindResourceNotFound:
		return jsonrpc.CodeResourceNotFound
	case KindURLElicitationRequired:
		return jsonrpc.CodeURLElicitationRequired
	case KindServerError:
		return e.Code
	case KindConnectionClosed:
		return jsonrpc.CodeConnectionClosed
	case KindTransportError:
		return jsonrpc.CodeTransportError
	case KindRequestTimeout:
		return jsonrpc.CodeRequestTimeout
	case KindRequestCancelled:
		return jsonrpc.CodeRequestCancelled
	default:
		return jsonrpc.CodeInternalError
	}
}

// FromWire reconstructs an MCPError from a decoded wire error, completing
// the round-trip law of spec §8 (from_wire(to_wire(e)) == e for the kinds
// that actually cross the wire — timeout/cancellation are local-only and
// never serialize to an error response, per spec §7).
func FromWire(w *jsonrpc.Error) *MCPError {
	switch w.Code {
	case jsonrpc.CodeParseError:
		return &MCPError{Kind: KindParseError, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeInvalidRequest:
		return &MCPError{Kind: KindInvalidRequest, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeMethodNotFound:
		return &MCPError{Kind: KindMethodNotFound, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeInvalidParams:
		return &MCPError{Kind: KindInvalidParams, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeInternalError:
		return &MCPError{Kind: KindInternalError, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeResourceNotFound:
		return &MCPError{Kind: KindResourceNotFound, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeURLElicitationRequired:
		return &MCPError{Kind: KindURLElicitationRequired, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeConnectionClosed:
		return &MCPError{Kind: KindConnectionClosed, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeTransportError:
		return &MCPError{Kind: KindTransportError, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeRequestTimeout:
		return &MCPError{Kind: KindRequestTimeout, Message: w.Message, Data: w.Data}
	case jsonrpc.CodeRequestCancelled:
		return &MCPError{Kind: KindRequestCancelled, Message: w.Message, Data: w.Data}
	default:
		return &MCPError{Kind: KindServerError, Code: w.Code, Message: w.Message, Data: w.Data}
	}
}
