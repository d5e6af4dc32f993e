package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCoalescesBurst(t *testing.T) {
	var mu sync.Mutex
	var flushes int
	var lastPayload string

	d := New(func(method string, payload []byte) {
		mu.Lock()
		flushes++
		lastPayload = string(payload)
		mu.Unlock()
	})

	d.Notify("notifications/tools/list_changed", []byte("1"))
	d.Notify("notifications/tools/list_changed", []byte("2"))
	d.Notify("notifications/tools/list_changed", []byte("3"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushes == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "3", lastPayload, "debounced flush should carry the most recent payload")
}

func TestNotifyKeepsMethodsIndependent(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	d := New(func(method string, payload []byte) {
		mu.Lock()
		seen[method]++
		mu.Unlock()
	})

	d.Notify("a", []byte("1"))
	d.Notify("b", []byte("1"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["a"] == 1 && seen["b"] == 1
	}, time.Second, time.Millisecond)
}

func TestStopCancelsPendingFlush(t *testing.T) {
	var flushed bool
	d := New(func(method string, payload []byte) { flushed = true })

	d.Notify("m", []byte("1"))
	d.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, flushed, "Stop should cancel a flush scheduled before it ran")
}

func TestNotifyAfterStopIsNoop(t *testing.T) {
	var flushed bool
	d := New(func(method string, payload []byte) { flushed = true })
	d.Stop()
	d.Notify("m", []byte("1"))

	time.Sleep(20 * time.Millisecond)
	assert.False(t, flushed)
}
