package engine

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/mcpcore/engine/internal/pending"
	"github.com/mcpcore/engine/internal/timeoutctl"
	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/mcpmethod"
	"github.com/mcpcore/engine/transport"
)

// SendRequest sends method/params as a request, registers it in the pending
// table, and blocks until a response arrives, the Timeout Controller
// expires one of its bounds, or ctx is cancelled (spec §4.3, §4.4, §6).
// result, if non-nil, receives the decoded success payload.
func (e *Engine) SendRequest(ctx context.Context, method string, params any, opts RequestOptions, result any) error {
	if !e.transport.SupportsServerToClientRequests() {
		return NewTransportError(errors.New("transport does not support backchannel requests"))
	}

	var id jsonrpc.RequestID
	if opts.ID != nil {
		id = *opts.ID
	} else {
		id = e.generateRequestID()
	}

	var progressToken *jsonrpc.ProgressToken
	var timeout *timeoutctl.Controller
	if opts.ProgressToken != nil {
		progressToken = opts.ProgressToken
	} else if opts.OnProgress != nil {
		tok := jsonrpc.NewStringID(id.String())
		pt := jsonrpc.NewStringToken(tok.String())
		progressToken = &pt
	}

	requestTimeout := opts.Timeout
	if requestTimeout <= 0 {
		requestTimeout = e.opts.DefaultRequestTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	// The deadline/max-total ceiling applies to every outbound request;
	// ResetTimeoutOnProgress only has something to reset it when a progress
	// subscription is also registered below.
	timeout = timeoutctl.New(requestTimeout, opts.ResetTimeoutOnProgress, opts.MaxTotalTimeout)

	if progressToken != nil {
		e.progressReg.register(&progressSubscription{
			token:     *progressToken,
			callback:  opts.OnProgress,
			requestID: &id,
			timeout:   timeout,
		})
		defer e.progressReg.removeIfUnbound(*progressToken)
	}

	entry, err := e.pendingTable.Register(id, progressToken)
	if err != nil {
		return errors.Wrap(err, "engine: send request")
	}

	// Report the id before blocking, so a caller that didn't supply its own
	// via opts.ID can still learn it in time to call Engine.Cancel while
	// this call is still in flight (spec §8 scenario 5).
	if opts.OnID != nil {
		opts.OnID(id)
	}

	paramsRaw, err := marshalParams(params)
	if err != nil {
		e.pendingTable.Fail(id, err)
		return err
	}

	req := &jsonrpc.Request{ID: id, Method: method, Params: paramsRaw}
	data, err := e.codec.EncodeRequest(req)
	if err != nil {
		e.pendingTable.Fail(id, err)
		return errors.Wrap(err, "engine: encode request")
	}

	if err := e.transport.Send(ctx, data, transport.SendOptions{RelatedRequestID: &id}); err != nil {
		e.pendingTable.Fail(id, err)
		return errors.Wrap(err, "engine: transport send")
	}

	return e.awaitResponse(ctx, entry, timeout, result)
}

func (e *Engine) awaitResponse(ctx context.Context, entry *pending.Entry, timeout *timeoutctl.Controller, result any) error {
	var timeoutCh <-chan error
	if timeout != nil {
		ch := make(chan error, 1)
		go func() { ch <- timeout.Wait() }()
		timeoutCh = ch
		defer timeout.Cancel()
	}

	select {
	case env := <-entry.Await():
		if env.Err != nil {
			return env.Err
		}
		if result != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, result); err != nil {
				return errors.Wrap(err, "engine: decode response result")
			}
		}
		return nil

	case err := <-timeoutCh:
		if err == nil {
			// Cancel() was called concurrently with the real response
			// arriving; prefer the response.
			select {
			case env := <-entry.Await():
				if env.Err != nil {
					return env.Err
				}
				if result != nil && len(env.Result) > 0 {
					return json.Unmarshal(env.Result, result)
				}
				return nil
			default:
				return nil
			}
		}
		te, ok := err.(*timeoutctl.TimeoutError)
		if !ok {
			return err
		}
		e.pendingTable.Cancel(entry.ID, NewRequestTimeout(te.Elapsed))
		return NewRequestTimeout(te.Elapsed)

	case <-ctx.Done():
		e.pendingTable.Cancel(entry.ID, NewRequestCancelled("context cancelled"))
		e.sendCancelledNotification(entry.ID, "context cancelled")
		return ctx.Err()
	}
}

// Cancel abandons the outbound request identified by id: it resolves that
// request's pending call with a cancellation error and notifies the peer,
// independent of (and possibly long after) the context.Context the original
// SendRequest call was given (spec §8 scenario 5: "client starts a request
// id=7, then calls cancel(7, reason)" as a decoupled, externally-triggered
// cancel-by-id). Reports false if id is not (or is no longer) pending.
func (e *Engine) Cancel(id jsonrpc.RequestID, reason string) bool {
	entry, ok := e.pendingTable.Lookup(id)
	if !ok {
		return false
	}
	if !e.pendingTable.Cancel(id, NewRequestCancelled(reason)) {
		return false
	}
	if entry.ProgressToken != nil {
		e.progressReg.removeIfUnbound(*entry.ProgressToken)
	}
	e.sendCancelledNotification(id, reason)
	return true
}

// sendCancelledNotification tells the peer a request this side originated
// is no longer wanted, per spec §4.5's cancellation notification. It carries
// id as the related request so a multiplexing transport (or the debouncer)
// never separates it from the stream it belongs to.
func (e *Engine) sendCancelledNotification(id jsonrpc.RequestID, reason string) {
	payload, err := json.Marshal(cancelledParams{RequestID: id, Reason: reason})
	if err != nil {
		return
	}
	_ = e.Notification(context.Background(), mcpmethod.NotificationsCancel, json.RawMessage(payload), NotificationOptions{RelatedRequestID: &id})
}

// Notification sends a one-way notification, applying the debounce set
// configured in Options (spec §4.5, §8 property 4). params may be nil. opts
// is variadic so existing fire-and-forget call sites need not change; at
// most the first value is used. A notification whose RelatedRequestID is
// set belongs to a specific outgoing/incoming request stream and is sent
// immediately, bypassing the debounce set entirely (spec §4.5 invariant).
func (e *Engine) Notification(ctx context.Context, method string, params any, opts ...NotificationOptions) error {
	var o NotificationOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	paramsRaw, err := marshalParams(params)
	if err != nil {
		return err
	}
	n := &jsonrpc.Notification{Method: method, Params: paramsRaw}
	data, err := e.codec.EncodeNotification(n)
	if err != nil {
		return errors.Wrap(err, "engine: encode notification")
	}

	if o.RelatedRequestID == nil {
		if _, debounced := e.opts.DebouncedMethods[method]; debounced {
			e.debouncer.Notify(method, data)
			return nil
		}
	}
	return e.transport.Send(ctx, data, transport.SendOptions{RelatedRequestID: o.RelatedRequestID})
}

// flushNotification is the debouncer's flush callback: it transmits the
// most recent coalesced payload for method.
func (e *Engine) flushNotification(method string, payload []byte) {
	if err := e.transport.Send(context.Background(), payload, transport.SendOptions{}); err != nil {
		e.reportError(NewTransportError(err))
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "engine: marshal params")
	}
	return b, nil
}
