package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestListenerRoutesMessageToSession(t *testing.T) {
	l := NewListener()

	var got *Transport
	done := make(chan struct{})
	l.OnSession = func(tr *Transport) {
		// Connect writes the "endpoint" event, which is what first sends the
		// stream's response headers back to the GET below.
		assert.NoError(t, tr.Connect(context.Background()))
		got = tr
		close(done)
	}

	r := gin.New()
	l.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	streamResp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer streamResp.Body.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream never registered a session")
	}

	require.NotNil(t, got)
	frames, _ := got.Receive()

	resp, err := http.Post(srv.URL+"/messages?sessionId="+got.SessionID(), "application/json", strings.NewReader(`{"hello":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case f := <-frames:
		assert.Equal(t, `{"hello":1}`, string(f.Data))
	case <-time.After(time.Second):
		t.Fatal("message was not delivered to the session's frame channel")
	}
}

func TestListenerRejectsUnknownSession(t *testing.T) {
	l := NewListener()
	r := gin.New()
	l.Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/messages?sessionId=does-not-exist", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransportDoesNotSupportBackchannelRequests(t *testing.T) {
	tr := &Transport{}
	assert.False(t, tr.SupportsServerToClientRequests())
}

func TestProtocolVersionDefaultsUntilNegotiated(t *testing.T) {
	tr := &Transport{}
	assert.Equal(t, "2024-11-05", tr.ProtocolVersion())

	tr.SetProtocolVersion("2025-06-18")
	assert.Equal(t, "2025-06-18", tr.ProtocolVersion())
}
