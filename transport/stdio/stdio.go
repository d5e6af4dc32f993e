// Package stdio implements the stdin/stdout Transport, adapted from the
// teacher SDK's stdio.go: a ReadBuffer that turns a continuous byte stream
// into newline-delimited frames, fed by a background read loop.
package stdio

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/mcpcore/engine/transport"
)

// readBuffer buffers a continuous stdio stream into discrete newline-framed
// messages. Unlike the teacher's version it returns raw frames rather than
// parsed JSON-RPC types — framing and decoding are separate concerns here.
type readBuffer struct {
	mu     sync.Mutex
	buffer []byte
}

func (rb *readBuffer) append(chunk []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buffer = append(rb.buffer, chunk...)
}

func (rb *readBuffer) readFrame() ([]byte, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for i, b := range rb.buffer {
		if b == '\n' {
			line := make([]byte, i)
			copy(line, rb.buffer[:i])
			rb.buffer = rb.buffer[i+1:]
			return line, true
		}
	}
	return nil, false
}

// Transport implements transport.Transport over os.Stdin/os.Stdout (or any
// supplied reader/writer, for tests).
type Transport struct {
	reader *bufio.Reader
	writer io.Writer

	buf readBuffer

	mu      sync.Mutex
	closed  bool
	version string

	frames chan transport.Frame
	errs   chan error
	wg     sync.WaitGroup
}

// New builds a stdio transport over the given reader/writer pair.
func New(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
		frames: make(chan transport.Frame, 16),
		errs:   make(chan error, 1),
	}
}

func (t *Transport) Connect(ctx context.Context) error {
	t.wg.Add(1)
	go t.readLoop()
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

func (t *Transport) Send(ctx context.Context, data []byte, _ transport.SendOptions) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errors.New("stdio transport is closed")
	}
	if _, err := t.writer.Write(append(append([]byte{}, data...), '\n')); err != nil {
		return errors.Wrap(err, "stdio send")
	}
	return nil
}

func (t *Transport) Receive() (<-chan transport.Frame, <-chan error) {
	return t.frames, t.errs
}

// SupportsServerToClientRequests is true: stdio is a single persistent
// duplex connection, so the peer can always receive backchannel requests.
func (t *Transport) SupportsServerToClientRequests() bool { return true }

func (t *Transport) SetProtocolVersion(version string) {
	t.mu.Lock()
	t.version = version
	t.mu.Unlock()
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	defer close(t.frames)
	defer close(t.errs)

	chunk := make([]byte, 4096)
	for {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}

		n, err := t.reader.Read(chunk)
		if n > 0 {
			t.buf.append(chunk[:n])
			for {
				line, ok := t.buf.readFrame()
				if !ok {
					break
				}
				if len(line) == 0 {
					continue
				}
				t.frames <- transport.Frame{Data: line}
			}
		}
		if err != nil {
			if err != io.EOF {
				t.errs <- errors.Wrap(err, "stdio read")
			}
			return
		}
	}
}

var _ transport.Transport = (*Transport)(nil)
