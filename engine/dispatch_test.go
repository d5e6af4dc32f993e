package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpcore/engine/jsonrpc"
	"github.com/mcpcore/engine/transport"
	"github.com/mcpcore/engine/transport/inmemory"
)

func TestSendRequestRoundTrip(t *testing.T) {
	clientPipe, serverPipe := inmemory.NewPair(true)
	defer clientPipe.Disconnect()

	e := New(NewRegistry(), Options{}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))
	defer e.Stop()

	// Act as the peer: receive the outbound request and answer it.
	go func() {
		frames, _ := clientPipe.Receive()
		f := <-frames
		codec := jsonrpc.NewCodec()
		msg, err := codec.Decode(f.Data)
		if err != nil || msg.Kind != jsonrpc.KindRequest {
			return
		}
		resp := &jsonrpc.Response{ID: msg.Request.ID, Result: json.RawMessage(`{"pong":true}`)}
		data, _ := codec.EncodeResponse(resp, nil)
		clientPipe.Send(context.Background(), data, transport.SendOptions{})
	}()

	var result struct {
		Pong bool `json:"pong"`
	}
	err := e.SendRequest(context.Background(), "custom/ping", nil, RequestOptions{Timeout: time.Second}, &result)
	require.NoError(t, err)
	assert.True(t, result.Pong)
}

func TestSendRequestRefusedWhenTransportLacksBackchannel(t *testing.T) {
	_, serverPipe := inmemory.NewPair(false)

	e := New(NewRegistry(), Options{}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))
	defer e.Stop()

	err := e.SendRequest(context.Background(), "custom/ping", nil, RequestOptions{}, nil)
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, KindTransportError, mcpErr.Kind)
}

func TestSendRequestTimesOutWithoutResponse(t *testing.T) {
	clientPipe, serverPipe := inmemory.NewPair(true)
	defer clientPipe.Disconnect()

	e := New(NewRegistry(), Options{}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))
	defer e.Stop()

	err := e.SendRequest(context.Background(), "custom/never-answered", nil, RequestOptions{Timeout: 30 * time.Millisecond}, nil)
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, KindRequestTimeout, mcpErr.Kind)
}

func TestStopFailsPendingRequestsFiresOnCloseOnceAndIsIdempotent(t *testing.T) {
	clientPipe, serverPipe := inmemory.NewPair(true)
	defer clientPipe.Disconnect()

	var closeCount int
	e := New(NewRegistry(), Options{OnClose: func() { closeCount++ }}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))

	// Register three pending requests (spec §8 scenario 7: "three pending
	// requests... ids 1,2,3") that nothing will ever answer.
	const n = 3
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			results <- e.SendRequest(context.Background(), "custom/never-answered", nil, RequestOptions{Timeout: 30 * time.Second}, nil)
		}()
	}

	// Let all three register in the pending table before tearing down.
	require.Eventually(t, func() bool { return e.pendingTable.Len() == n }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Stop())

	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, KindConnectionClosed, mcpErr.Kind)
		case <-time.After(time.Second):
			t.Fatal("a pending request never observed ConnectionClosed after Stop")
		}
	}

	assert.Equal(t, 1, closeCount, "OnClose must fire exactly once")
	assert.Equal(t, Disconnected, e.State())
	assert.Equal(t, 0, e.pendingTable.Len())

	// A second Stop() is a no-op: no further OnClose, no error.
	require.NoError(t, e.Stop())
	assert.Equal(t, 1, closeCount)
	assert.Equal(t, Disconnected, e.State())
}

func TestCancelResolvesPendingEntryAndNotifiesPeer(t *testing.T) {
	clientPipe, serverPipe := inmemory.NewPair(true)
	defer clientPipe.Disconnect()

	e := New(NewRegistry(), Options{}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))
	defer e.Stop()

	idCh := make(chan jsonrpc.RequestID, 1)
	sendDone := make(chan error, 1)
	go func() {
		sendDone <- e.SendRequest(context.Background(), "custom/abandoned", nil, RequestOptions{
			Timeout: time.Second,
			OnID:    func(id jsonrpc.RequestID) { idCh <- id },
		}, nil)
	}()

	frames, _ := clientPipe.Receive()
	codec := jsonrpc.NewCodec()

	select {
	case f := <-frames:
		msg, err := codec.Decode(f.Data)
		require.NoError(t, err)
		require.Equal(t, jsonrpc.KindRequest, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected to observe the original request frame")
	}

	var gotID jsonrpc.RequestID
	select {
	case gotID = <-idCh:
	case <-time.After(time.Second):
		t.Fatal("OnID was never invoked")
	}

	assert.True(t, e.Cancel(gotID, "user aborted"))
	assert.Equal(t, 0, e.pendingTable.Len(), "Cancel must remove the entry from the pending table")

	select {
	case err := <-sendDone:
		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, KindRequestCancelled, mcpErr.Kind)
		assert.Equal(t, "user aborted", mcpErr.Reason)
	case <-time.After(time.Second):
		t.Fatal("SendRequest never returned after Cancel")
	}

	select {
	case f2 := <-frames:
		msg2, err := codec.Decode(f2.Data)
		require.NoError(t, err)
		require.Equal(t, jsonrpc.KindNotification, msg2.Kind)
		assert.Equal(t, "notifications/cancelled", msg2.Notification.Method)

		var params cancelledParams
		require.NoError(t, json.Unmarshal(msg2.Notification.Params, &params))
		assert.Equal(t, gotID.String(), params.RequestID.String())
		assert.Equal(t, "user aborted", params.Reason)
	case <-time.After(time.Second):
		t.Fatal("expected a cancellation notification to follow Cancel")
	}

	// A second Cancel of the same id is a no-op: nothing left to cancel.
	assert.False(t, e.Cancel(gotID, "again"))
}

func TestSendRequestCancelledByContextNotifiesPeer(t *testing.T) {
	clientPipe, serverPipe := inmemory.NewPair(true)
	defer clientPipe.Disconnect()

	e := New(NewRegistry(), Options{}, "s1")
	e.WithTransport(serverPipe)
	require.NoError(t, e.Connect(context.Background()))
	defer e.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	sendDone := make(chan error, 1)
	go func() {
		sendDone <- e.SendRequest(ctx, "custom/abandoned", nil, RequestOptions{Timeout: time.Second}, nil)
	}()

	frames, _ := clientPipe.Receive()
	codec := jsonrpc.NewCodec()

	var f transport.Frame
	select {
	case f = <-frames:
	case <-time.After(time.Second):
		t.Fatal("expected to observe the original request frame")
	}
	msg, decErr := codec.Decode(f.Data)
	require.NoError(t, decErr)
	require.Equal(t, jsonrpc.KindRequest, msg.Kind)

	cancel()

	select {
	case err := <-sendDone:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("SendRequest never returned after cancellation")
	}

	select {
	case f2 := <-frames:
		msg2, decErr2 := codec.Decode(f2.Data)
		require.NoError(t, decErr2)
		assert.Equal(t, jsonrpc.KindNotification, msg2.Kind)
		assert.Equal(t, "notifications/cancelled", msg2.Notification.Method)
	case <-time.After(time.Second):
		t.Fatal("expected a cancellation notification to follow")
	}
}
