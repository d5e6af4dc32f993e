package engine

import (
	"context"
	"encoding/json"

	"github.com/effective-security/xlog"

	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/mcpmethod"
	"github.com/mcpcore/engine/transport"
)

// cancelledParams is the wire shape of notifications/cancelled.
type cancelledParams struct {
	RequestID jsonrpc.RequestID `json:"requestId"`
	Reason    string            `json:"reason,omitempty"`
}

// progressParams is the wire shape of notifications/progress.
type progressParams struct {
	ProgressToken jsonrpc.ProgressToken `json:"progressToken"`
	Progress      float64               `json:"progress"`
	Total         *float64              `json:"total,omitempty"`
	Message       *string               `json:"message,omitempty"`
}

// handleRequest dispatches an inbound request to its registered handler (or
// a fallback, or MethodNotFound), spawning one task per request so handling
// is pipelined (spec §4.5).
func (e *Engine) handleRequest(req *jsonrpc.Request, meta *transport.Metadata) {
	if req.ID.IsZero() {
		e.sendErrorResponse(req.ID, NewInvalidRequest("request id must not be null"))
		return
	}

	if req.Method == mcpmethod.Initialize {
		e.handleInitializeRequest(req, meta)
		return
	}

	if e.opts.StrictLifecycle && !e.hasReceivedInit() {
		e.sendErrorResponse(req.ID, NewInvalidRequest("request sent before initialize handshake completed"))
		return
	}

	if req.Method == mcpmethod.Ping {
		if _, ok := e.registry.requestHandler(req.Method); !ok {
			e.sendSuccessResponse(req.ID, struct{}{}, nil)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelMu.Lock()
	e.cancels[req.ID.String()] = cancel
	e.cancelMu.Unlock()

	go func() {
		defer func() {
			e.cancelMu.Lock()
			delete(e.cancels, req.ID.String())
			e.cancelMu.Unlock()
			cancel()
		}()

		hctx := e.newContext(req.ID, req.Params, meta)

		handler, ok := e.registry.requestHandler(req.Method)
		if ok {
			e.runRequestHandler(ctx, hctx, req.ID, func() (any, error) { return handler(ctx, hctx, req.Params) })
			return
		}
		fallback, _ := e.registry.fallbacks()
		if fallback != nil {
			e.runRequestHandler(ctx, hctx, req.ID, func() (any, error) { return fallback(ctx, hctx, req.Method, req.Params) })
			return
		}
		e.sendErrorResponse(req.ID, NewMethodNotFound(req.Method))
	}()
}

func (e *Engine) runRequestHandler(ctx context.Context, hctx *Context, id jsonrpc.RequestID, call func() (any, error)) {
	result, err := call()
	if err != nil {
		e.sendErrorResponse(id, sanitizeHandlerError(err))
		return
	}
	e.sendSuccessResponse(id, result, hctx.extraResultFields)
}

// sanitizeHandlerError passes MCPError kinds through verbatim and remaps
// anything else to InternalError, so handler internals never leak over the
// wire (spec §4.5, §7).
func sanitizeHandlerError(err error) *MCPError {
	if me, ok := err.(*MCPError); ok {
		return me
	}
	return NewInternalError()
}

// sendSuccessResponse encodes result as the response to id. extraFields, if
// non-nil, is merged onto the encoded result per jsonrpc.EncodeResponse, so
// a handler that called Context.AttachResultField/PreserveUnknownFields has
// those fields survive re-encoding unchanged (spec §4.1 forward
// compatibility).
func (e *Engine) sendSuccessResponse(id jsonrpc.RequestID, result any, extraFields map[string]json.RawMessage) {
	raw, err := json.Marshal(result)
	if err != nil {
		e.sendErrorResponse(id, NewInternalError())
		return
	}
	resp := &jsonrpc.Response{ID: id, Result: raw}
	data, err := e.codec.EncodeResponse(resp, extraFields)
	if err != nil {
		e.reportError(NewTransportError(err))
		return
	}
	if err := e.transport.Send(context.Background(), data, transport.SendOptions{RelatedRequestID: &id}); err != nil {
		e.reportError(NewTransportError(err))
	}
}

func (e *Engine) sendErrorResponse(id jsonrpc.RequestID, mcpErr *MCPError) {
	resp := &jsonrpc.Response{ID: id, Err: mcpErr.ToWire()}
	data, err := e.codec.EncodeResponse(resp, nil)
	if err != nil {
		e.reportError(NewTransportError(err))
		return
	}
	if err := e.transport.Send(context.Background(), data, transport.SendOptions{RelatedRequestID: &id}); err != nil {
		e.reportError(NewTransportError(err))
	}
}

// handleNotification intercepts progress and cancellation, feeds the timeout
// controller / cancels the running handler task, then forwards the
// notification to the user handler for that method, if any (spec §4.5).
func (e *Engine) handleNotification(n *jsonrpc.Notification, meta *transport.Metadata) {
	switch n.Method {
	case mcpmethod.NotificationsInit:
		e.markReceivedInit()
	case mcpmethod.NotificationsProgress:
		e.handleProgressNotification(n)
	case mcpmethod.NotificationsCancel:
		e.handleCancelledNotification(n)
	}

	handler, ok := e.registry.notificationHandler(n.Method)
	if !ok {
		_, fallback := e.registry.fallbacks()
		if fallback == nil {
			return
		}
		hctx := e.newContext(jsonrpc.RequestID{}, n.Params, meta)
		go func() {
			if err := fallback(context.Background(), hctx, n.Method, n.Params); err != nil {
				log.ContextKV(context.Background(), 0, "event", "notification_fallback_error", "method", n.Method, "err", err.Error())
			}
		}()
		return
	}

	hctx := e.newContext(jsonrpc.RequestID{}, n.Params, meta)
	go func() {
		if err := handler(context.Background(), hctx, n.Params); err != nil {
			log.ContextKV(context.Background(), 0, "event", "notification_handler_error", "method", n.Method, "err", err.Error())
		}
	}()
}

func (e *Engine) handleProgressNotification(n *jsonrpc.Notification) {
	var params progressParams
	if err := json.Unmarshal(n.Params, &params); err != nil {
		return
	}
	sub, ok := e.progressReg.lookup(params.ProgressToken)
	if !ok {
		// Unknown token: silently dropped, per spec §3 invariant.
		return
	}
	if sub.timeout != nil {
		sub.timeout.SignalProgress()
	}
	if sub.callback != nil {
		sub.callback(params.Progress, params.Total, params.Message)
	}
}

func (e *Engine) handleCancelledNotification(n *jsonrpc.Notification) {
	var params cancelledParams
	if err := json.Unmarshal(n.Params, &params); err != nil {
		return
	}
	e.cancelMu.Lock()
	cancel, ok := e.cancels[params.RequestID.String()]
	e.cancelMu.Unlock()
	if ok {
		cancel()
	}
}

// handleResponse offers the response to external routers first (task
// plug-ins that re-route results after a request-to-task handoff); if none
// claims it, the pending table resolves it. Unclaimed, unpending responses
// are logged and dropped (spec §4.5, §9 open question on duplicate arrival).
func (e *Engine) handleResponse(resp *jsonrpc.Response) {
	e.routersMu.Lock()
	routers := append([]ResponseRouter(nil), e.routers...)
	e.routersMu.Unlock()

	for _, router := range routers {
		if router(resp.ID, resp.Result, resp.Err) {
			return
		}
	}

	entry, pending := e.pendingTable.Lookup(resp.ID)

	var claimed bool
	if resp.IsError() {
		claimed = e.pendingTable.Fail(resp.ID, FromWire(resp.Err))
	} else {
		claimed = e.pendingTable.Complete(resp.ID, resp.Result)
	}
	if claimed {
		if pending && entry.ProgressToken != nil {
			e.progressReg.removeIfUnbound(*entry.ProgressToken)
		}
		return
	}
	log.ContextKV(context.Background(), xlog.DEBUG, "event", "unknown_response", "id", resp.ID.String())
}

func (e *Engine) hasReceivedInit() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.receivedInit
}

func (e *Engine) markReceivedInit() {
	e.stateMu.Lock()
	e.receivedInit = true
	e.stateMu.Unlock()
}
