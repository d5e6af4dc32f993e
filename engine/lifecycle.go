package engine

import (
	"context"
	"encoding/json"

	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/mcp"
	"github.com/mcpcore/engine/transport"
)

// handleInitializeRequest implements the initialize handshake (spec §4.5,
// §6): negotiate a protocol version, run the caller's OnInitialize hook if
// any, and reply with this engine's declared capabilities. initialize is
// answered unconditionally, even under StrictLifecycle and even if called a
// second time — the state machine only cares that notifications/initialized
// follows before other requests are accepted.
func (e *Engine) handleInitializeRequest(req *jsonrpc.Request, meta *transport.Metadata) {
	var params mcp.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			e.sendErrorResponse(req.ID, NewInvalidParams("malformed initialize params: "+err.Error()))
			return
		}
	}

	negotiated := mcp.NegotiateVersion(params.ProtocolVersion)

	e.stateMu.Lock()
	e.negotiated = negotiated
	e.stateMu.Unlock()

	if e.opts.OnInitialize != nil {
		hctx := e.newContext(req.ID, req.Params, meta)
		if err := e.opts.OnInitialize(context.Background(), hctx, params); err != nil {
			e.sendErrorResponse(req.ID, sanitizeHandlerError(err))
			return
		}
	}
	e.transport.SetProtocolVersion(negotiated)

	caps := mcp.ServerCapabilities{}
	if e.opts.CapabilitiesDeclared != nil {
		caps = *e.opts.CapabilitiesDeclared
	}

	e.sendSuccessResponse(req.ID, mcp.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    caps,
		ServerInfo:      e.opts.ServerInfo,
		Instructions:    e.opts.Instructions,
	}, nil)
}

// NegotiatedVersion reports the protocol version agreed at initialize, or
// the empty string before the handshake has happened.
func (e *Engine) NegotiatedVersion() string {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.negotiated
}
