// Package inmemory implements a duplex, in-process Transport pair, adapted
// from the teacher SDK's protocol test double (mock_transport_test.go)
// promoted to a real transport: two Pipes, each feeding the other's receive
// channel directly, with no framing needed since no byte stream is crossed.
package inmemory

import (
	"context"
	"sync"

	"github.com/mcpcore/engine/transport"
)

// Pipe is one end of an in-memory duplex connection. Use NewPair to get a
// connected client/server pair.
type Pipe struct {
	name string
	mu   sync.Mutex
	peer *Pipe

	frames  chan transport.Frame
	errs    chan error
	version string

	closeOnce sync.Once
	supportsS2C bool
}

// NewPair returns two Pipes wired to each other: sending on one delivers to
// the other's Receive channel. supportsServerToClient controls what both
// ends report from SupportsServerToClientRequests — set false to emulate a
// stateless HTTP transport for testing backchannel gating (spec §8 property 8).
func NewPair(supportsServerToClient bool) (a, b *Pipe) {
	a = &Pipe{name: "a", frames: make(chan transport.Frame, 16), errs: make(chan error, 1), supportsS2C: supportsServerToClient}
	b = &Pipe{name: "b", frames: make(chan transport.Frame, 16), errs: make(chan error, 1), supportsS2C: supportsServerToClient}
	a.peer, b.peer = b, a
	return a, b
}

func (p *Pipe) Connect(ctx context.Context) error { return nil }

func (p *Pipe) Disconnect() error {
	p.closeOnce.Do(func() {
		close(p.frames)
		close(p.errs)
	})
	return nil
}

func (p *Pipe) Send(ctx context.Context, data []byte, opts transport.SendOptions) error {
	p.mu.Lock()
	peer := p.peer
	p.mu.Unlock()
	if peer == nil {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case peer.frames <- transport.Frame{Data: cp}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipe) Receive() (<-chan transport.Frame, <-chan error) {
	return p.frames, p.errs
}

func (p *Pipe) SupportsServerToClientRequests() bool { return p.supportsS2C }

func (p *Pipe) SetProtocolVersion(version string) {
	p.mu.Lock()
	p.version = version
	p.mu.Unlock()
}

// ProtocolVersion returns the last version recorded by SetProtocolVersion,
// for assertions in tests.
func (p *Pipe) ProtocolVersion() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

var _ transport.Transport = (*Pipe)(nil)
