package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpcore/engine/engine"
	"github.com/mcpcore/engine/transport/inmemory"
)

func newTestMultiplexer() *Multiplexer {
	return New(engine.NewRegistry(), engine.Options{})
}

func TestCreateSessionTracksAndConnects(t *testing.T) {
	mux := newTestMultiplexer()
	client, server := inmemory.NewPair(true)
	defer client.Disconnect()

	e, err := mux.CreateSession(context.Background(), "s1", server)
	require.NoError(t, err)
	assert.Equal(t, "s1", e.SessionID())
	assert.Equal(t, 1, mux.Len())

	got, ok := mux.Session("s1")
	assert.True(t, ok)
	assert.Same(t, e, got)
}

func TestCreateSessionRejectsDuplicateID(t *testing.T) {
	mux := newTestMultiplexer()
	c1, s1 := inmemory.NewPair(true)
	defer c1.Disconnect()
	_, err := mux.CreateSession(context.Background(), "dup", s1)
	require.NoError(t, err)

	c2, s2 := inmemory.NewPair(true)
	defer c2.Disconnect()
	defer s2.Disconnect()
	_, err = mux.CreateSession(context.Background(), "dup", s2)
	assert.Error(t, err)
}

func TestCloseSessionDeregisters(t *testing.T) {
	mux := newTestMultiplexer()
	client, server := inmemory.NewPair(true)
	defer client.Disconnect()

	_, err := mux.CreateSession(context.Background(), "s1", server)
	require.NoError(t, err)

	require.NoError(t, mux.CloseSession("s1"))

	require.Eventually(t, func() bool {
		return mux.Len() == 0
	}, time.Second, time.Millisecond)

	_, ok := mux.Session("s1")
	assert.False(t, ok)
}

func TestBroadcastToolListChangedReachesEverySession(t *testing.T) {
	mux := newTestMultiplexer()

	c1, s1 := inmemory.NewPair(true)
	defer c1.Disconnect()
	c2, s2 := inmemory.NewPair(true)
	defer c2.Disconnect()

	_, err := mux.CreateSession(context.Background(), "a", s1)
	require.NoError(t, err)
	_, err = mux.CreateSession(context.Background(), "b", s2)
	require.NoError(t, err)

	errs := mux.BroadcastToolListChanged(context.Background())
	assert.Empty(t, errs)

	for _, c := range []*inmemory.Pipe{c1, c2} {
		frames, _ := c.Receive()
		select {
		case f := <-frames:
			assert.Contains(t, string(f.Data), "tools/list_changed")
		case <-time.After(time.Second):
			t.Fatal("expected a list_changed notification on every session")
		}
	}
}
