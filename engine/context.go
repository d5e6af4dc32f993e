package engine

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/mcp"
	"github.com/mcpcore/engine/mcpmethod"
	"github.com/mcpcore/engine/transport"
)

// Context is the capability bundle handed to every request and notification
// handler (spec §4.6): it carries the engine backchannel (send a
// notification, send a server-initiated request, report progress, log),
// session identity, and the per-invocation metadata a transport attached to
// the inbound frame. A handler only gets to do what its Options declared
// (capability gating, spec §8 property 6).
type Context struct {
	engine    *Engine
	requestID jsonrpc.RequestID
	hasID     bool
	params    json.RawMessage
	meta      *transport.Metadata

	extraResultFields map[string]json.RawMessage
}

// newContext builds the Context handed to a handler. Cancellation is
// observed through the context.Context the handler itself receives (the
// engine cancels it on notifications/cancelled, see dispatch.go), not
// through this struct.
func (e *Engine) newContext(id jsonrpc.RequestID, params json.RawMessage, meta *transport.Metadata) *Context {
	return &Context{engine: e, requestID: id, hasID: !id.IsZero(), params: params, meta: meta}
}

// SessionID returns the owning engine's session id (may be empty).
func (c *Context) SessionID() string { return c.engine.SessionID() }

// RequestID returns the id of the request this context was created for, and
// whether this context was created for a request at all (notifications have
// none).
func (c *Context) RequestID() (jsonrpc.RequestID, bool) { return c.requestID, c.hasID }

// AuthInfo returns the opaque identity token the transport attached to this
// invocation's frame, if any.
func (c *Context) AuthInfo() any {
	if c.meta == nil {
		return nil
	}
	return c.meta.AuthInfo
}

// HTTPHeaders returns the HTTP headers the transport attached, if any.
func (c *Context) HTTPHeaders() map[string][]string {
	if c.meta == nil {
		return nil
	}
	return c.meta.HTTPHeaders
}

// relatedTo builds the NotificationOptions that tie a send to id, so a
// multiplexing transport (or the debouncer) never separates it from the
// request/response stream it belongs to (spec §4.5 invariant).
func relatedTo(id jsonrpc.RequestID) NotificationOptions {
	return NotificationOptions{RelatedRequestID: &id}
}

// SendNotification sends an arbitrary notification back over this session,
// subject to the engine's debounce configuration.
func (c *Context) SendNotification(ctx context.Context, method string, params any) error {
	return c.engine.Notification(ctx, method, params)
}

// SendRequest issues a server-initiated (backchannel) request to the peer
// and blocks for its response, refusing outright on transports that cannot
// carry server-to-client requests (spec §4.2, §8 property 8).
func (c *Context) SendRequest(ctx context.Context, method string, params any, opts RequestOptions, result any) error {
	return c.engine.SendRequest(ctx, method, params, opts, result)
}

// SendProgress emits a notifications/progress carrying the caller-supplied
// token; it is sent whether or not the inbound request carried a progress
// token. When this context was created for a request, the notification is
// tied to that request's id, so it is never coalesced away from the
// request's own stream by the debouncer (spec §4.5 invariant); for a
// notification's context it goes out untied, subject to the debounce set.
func (c *Context) SendProgress(ctx context.Context, token jsonrpc.ProgressToken, progress float64, total *float64, message *string) error {
	opts := NotificationOptions{}
	if c.hasID {
		opts = relatedTo(c.requestID)
	}
	return c.engine.Notification(ctx, mcpmethod.NotificationsProgress, progressParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	}, opts)
}

// SendLog emits a notifications/message if level clears the engine's
// configured minimum severity (spec §4.6).
func (c *Context) SendLog(ctx context.Context, level mcp.LoggingLevel, logger string, data any) error {
	if !c.engine.opts.MinLogLevel.Allows(level) {
		return nil
	}
	return c.engine.Notification(ctx, mcpmethod.LoggingMessage, struct {
		Level  mcp.LoggingLevel `json:"level"`
		Logger string           `json:"logger,omitempty"`
		Data   any              `json:"data,omitempty"`
	}{Level: level, Logger: logger, Data: data})
}

// SendResourceUpdated notifies the peer that a subscribed resource changed,
// gated on the Resources.Subscribe capability being declared.
func (c *Context) SendResourceUpdated(ctx context.Context, uri string) error {
	caps := c.engine.opts.CapabilitiesDeclared
	if caps == nil || caps.Resources == nil || !caps.Resources.Subscribe {
		return errors.New("engine: resources.subscribe capability not declared")
	}
	return c.engine.Notification(ctx, mcpmethod.ResourcesUpdated, struct {
		URI string `json:"uri"`
	}{URI: uri})
}

// SendToolListChanged notifies the peer the tool list changed, gated on the
// Tools.ListChanged capability.
func (c *Context) SendToolListChanged(ctx context.Context) error {
	caps := c.engine.opts.CapabilitiesDeclared
	if caps == nil || caps.Tools == nil || !caps.Tools.ListChanged {
		return errors.New("engine: tools.listChanged capability not declared")
	}
	return c.engine.Notification(ctx, mcpmethod.ToolsListChanged, nil)
}

// SendPromptListChanged notifies the peer the prompt list changed, gated on
// the Prompts.ListChanged capability.
func (c *Context) SendPromptListChanged(ctx context.Context) error {
	caps := c.engine.opts.CapabilitiesDeclared
	if caps == nil || caps.Prompts == nil || !caps.Prompts.ListChanged {
		return errors.New("engine: prompts.listChanged capability not declared")
	}
	return c.engine.Notification(ctx, mcpmethod.PromptsListChanged, nil)
}

// SendResourceListChanged notifies the peer the resource list changed,
// gated on the Resources.ListChanged capability.
func (c *Context) SendResourceListChanged(ctx context.Context) error {
	caps := c.engine.opts.CapabilitiesDeclared
	if caps == nil || caps.Resources == nil || !caps.Resources.ListChanged {
		return errors.New("engine: resources.listChanged capability not declared")
	}
	return c.engine.Notification(ctx, mcpmethod.ResourcesListChanged, nil)
}

// SendCancelled tells the peer this side is abandoning requestID. Tied to
// requestID so it is never coalesced away from that request's own stream by
// the debouncer (spec §4.5 invariant).
func (c *Context) SendCancelled(ctx context.Context, requestID jsonrpc.RequestID, reason string) error {
	return c.engine.Notification(ctx, mcpmethod.NotificationsCancel, cancelledParams{RequestID: requestID, Reason: reason}, relatedTo(requestID))
}

// SendTaskStatus reports a long-running task's status, used after a request
// has been handed off to a task (spec §3 progress-subscription rebinding).
func (c *Context) SendTaskStatus(ctx context.Context, taskID, status string, data any) error {
	return c.engine.Notification(ctx, mcpmethod.TaskStatus, struct {
		TaskID string `json:"taskId"`
		Status string `json:"status"`
		Data   any    `json:"data,omitempty"`
	}{TaskID: taskID, Status: status, Data: data})
}

// BindTask rebinds this invocation's progress token to taskID so a later
// notifications/progress keyed on that token keeps being delivered after
// the original request completes (spec §3).
func (c *Context) BindTask(token jsonrpc.ProgressToken, taskID string) {
	c.engine.progressReg.bindTask(token, taskID)
}

// Elicit sends a server-initiated elicitation request and blocks for the
// client's structured reply.
func (c *Context) Elicit(ctx context.Context, message string, schema any, result any) error {
	return c.engine.SendRequest(ctx, "elicitation/create", struct {
		Message         string `json:"message"`
		RequestedSchema any    `json:"requestedSchema"`
	}{Message: message, RequestedSchema: schema}, RequestOptions{}, result)
}

// CloseStream closes just this invocation's backing HTTP+SSE stream, if the
// transport attached one, without tearing down the session.
func (c *Context) CloseStream() {
	if c.meta != nil && c.meta.CloseStream != nil {
		c.meta.CloseStream()
	}
}

// AttachResultField stashes a raw JSON value to be merged onto this
// request's success response as a top-level result field, alongside
// whatever the handler's return value itself marshals to. path is a JSON
// pointer-style path rooted at "result.", per jsonrpc.Codec.EncodeResponse.
func (c *Context) AttachResultField(path string, raw json.RawMessage) {
	if c.extraResultFields == nil {
		c.extraResultFields = make(map[string]json.RawMessage)
	}
	c.extraResultFields[path] = raw
}

// PreserveUnknownFields extracts this request's top-level params fields not
// named in known and attaches each one to the outgoing result unchanged, so
// a handler that only models a subset of an incoming payload can still
// round-trip the rest (spec §4.1, §9 forward-compatible result decoding).
func (c *Context) PreserveUnknownFields(known map[string]struct{}) {
	for k, v := range jsonrpc.ExtractUnknownResultFields(c.params, known) {
		c.AttachResultField(k, v)
	}
}
