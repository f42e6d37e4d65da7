// Package testingutils provides an in-memory transport for exercising the
// protocol and server without a real channel.
package testingutils

import (
	"context"
	"sync"

	"github.com/mlziade/librarian/mcp/transport"
)

// MockTransport records every message sent through it and lets tests inject
// incoming messages.
type MockTransport struct {
	mu             sync.Mutex
	started        bool
	closed         bool
	messages       []*transport.BaseJsonRpcMessage
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
}

// NewMockTransport creates an idle mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (t *MockTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	return nil
}

func (t *MockTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, message)
	return nil
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	handler := t.closeHandler
	t.closed = true
	t.mu.Unlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (t *MockTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

func (t *MockTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *MockTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SimulateMessage delivers an incoming message to the registered handler, as
// if it had arrived on the wire.
func (t *MockTransport) SimulateMessage(message *transport.BaseJsonRpcMessage) {
	t.mu.Lock()
	handler := t.messageHandler
	t.mu.Unlock()
	if handler != nil {
		handler(context.Background(), message)
	}
}

// GetMessages returns every message sent so far.
func (t *MockTransport) GetMessages() []*transport.BaseJsonRpcMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*transport.BaseJsonRpcMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Started reports whether Start was called.
func (t *MockTransport) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// Reset clears recorded messages.
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
