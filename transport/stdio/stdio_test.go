package stdio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mcpcore/engine/transport"
)

func TestTransportReceiveFramesOnNewlines(t *testing.T) {
	in := bytes.NewBufferString("{\"a\":1}\n{\"b\":2}\n")
	var out bytes.Buffer

	tr := New(in, &out)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Disconnect()

	frames, errs := tr.Receive()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case f, ok := <-frames:
			if !ok {
				t.Fatal("frames channel closed early")
			}
			got = append(got, string(f.Data))
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}

	if got[0] != `{"a":1}` || got[1] != `{"b":2}` {
		t.Fatalf("unexpected frames: %v", got)
	}
}

func TestTransportSendAppendsNewline(t *testing.T) {
	in := bytes.NewBufferString("")
	var out bytes.Buffer

	tr := New(in, &out)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Disconnect()

	if err := tr.Send(context.Background(), []byte(`{"ok":true}`), transport.SendOptions{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if out.String() != "{\"ok\":true}\n" {
		t.Fatalf("unexpected written bytes: %q", out.String())
	}
}

func TestTransportSendAfterDisconnectErrors(t *testing.T) {
	in := bytes.NewBufferString("")
	var out bytes.Buffer

	tr := New(in, &out)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if err := tr.Send(context.Background(), []byte("{}"), transport.SendOptions{}); err == nil {
		t.Fatal("expected send after disconnect to error")
	}
}

func TestTransportSupportsServerToClientRequests(t *testing.T) {
	tr := New(bytes.NewBufferString(""), &bytes.Buffer{})
	if !tr.SupportsServerToClientRequests() {
		t.Fatal("stdio transport should support backchannel requests")
	}
}
