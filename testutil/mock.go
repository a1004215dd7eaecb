package testutil

import (
	"context"

	"github.com/skillwire/skillrpc"
)

// MockTransport is an in-memory skillrpc.Transport backed by channels.
// Tests feed encoded requests with Send and read encoded responses with
// Receive; notifications produce nothing on the output side.
type MockTransport struct {
	in  chan []byte
	out chan []byte
}

// NewMockTransport creates a mock transport with the given buffer size.
func NewMockTransport(buffer int) *MockTransport {
	return &MockTransport{
		in:  make(chan []byte, buffer),
		out: make(chan []byte, buffer),
	}
}

// Serve pumps messages from the input channel through the handler until
// the context is canceled or the input channel is closed.
func (m *MockTransport) Serve(ctx context.Context, h skillrpc.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-m.in:
			if !ok {
				return nil
			}
			resp, err := skillrpc.HandleMessage(ctx, h, data)
			if err != nil {
				return err
			}
			if resp != nil {
				m.out <- resp
			}
		}
	}
}

// Addr identifies the transport in logs.
func (m *MockTransport) Addr() string { return "mock" }

// Send queues an encoded request for the handler.
func (m *MockTransport) Send(data []byte) {
	m.in <- data
}

// CloseInput closes the input side, ending Serve after queued messages
// drain.
func (m *MockTransport) CloseInput() {
	close(m.in)
}

// Receive returns the next encoded response, blocking until one arrives.
func (m *MockTransport) Receive() []byte {
	return <-m.out
}

// TryReceive returns the next encoded response if one is already queued.
func (m *MockTransport) TryReceive() ([]byte, bool) {
	select {
	case data := <-m.out:
		return data, true
	default:
		return nil, false
	}
}
