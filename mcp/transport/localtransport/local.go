// Package localtransport carries the JSON-RPC channel in process, with no
// wire in between. Embedders and end-to-end tests call HandleMessage directly
// and get the reply back as a value.
package localtransport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp/transport"
)

// Transport is the in-process channel. Like the HTTP channel it rewrites
// inbound ids to a process-local counter before dispatch and restores them on
// the way out, so concurrent callers reusing ids cannot collide.
type Transport struct {
	mu             sync.RWMutex
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	closeHandler   func()
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	atomicCounter  int64
}

// New creates an idle in-process transport.
func New() *Transport {
	return &Transport{
		responseMap: make(map[int64]chan *transport.BaseJsonRpcMessage),
	}
}

// Start is a no-op; the in-process channel has no listener.
func (t *Transport) Start(ctx context.Context) error {
	return nil
}

// Close fires the close handler.
func (t *Transport) Close() error {
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (t *Transport) SetErrorHandler(handler func(error)) {}

func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// Send delivers the reply to the HandleMessage call blocked on the rewritten
// id.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	if message.Type == transport.BaseMessageTypeJSONRPCNotificationType {
		return nil
	}
	key, ok := message.MessageID().Int64()
	if !ok {
		return errors.Newf("unexpected correlation id: %s", message.MessageID())
	}

	t.mu.RLock()
	responseChannel := t.responseMap[key]
	t.mu.RUnlock()

	if responseChannel == nil {
		return errors.Newf("no response channel found for key: %d", key)
	}
	responseChannel <- message
	return nil
}

// HandleMessage dispatches one decoded payload and blocks until the reply is
// available. Notifications return an empty success immediately.
func (t *Transport) HandleMessage(ctx context.Context, body []byte) (*transport.BaseJsonRpcMessage, error) {
	message, err := transport.DecodeMessage(body)
	if err != nil {
		return transport.ParseErrorMessage(err), nil
	}

	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()

	if message.Type == transport.BaseMessageTypeJSONRPCNotificationType {
		if handler != nil {
			handler(ctx, message)
		}
		return &transport.BaseJsonRpcMessage{
			Type:            transport.BaseMessageTypeJSONRPCResponseType,
			JsonRpcResponse: &transport.BaseJSONRPCResponse{Jsonrpc: "2.0", Result: []byte(`{}`)},
		}, nil
	}
	if message.Type != transport.BaseMessageTypeJSONRPCRequestType {
		return nil, errors.New("only requests and notifications are accepted")
	}

	key := atomic.AddInt64(&t.atomicCounter, 1)
	ch := make(chan *transport.BaseJsonRpcMessage, 1)
	t.mu.Lock()
	t.responseMap[key] = ch
	t.mu.Unlock()

	callerId := message.JsonRpcRequest.Id
	message.JsonRpcRequest.Id = transport.NewRequestId(key)

	if handler != nil {
		handler(ctx, message)
	}

	reply := <-ch
	t.mu.Lock()
	delete(t.responseMap, key)
	t.mu.Unlock()

	switch {
	case reply.JsonRpcResponse != nil:
		reply.JsonRpcResponse.Id = callerId
	case reply.JsonRpcError != nil:
		reply.JsonRpcError.Id = callerId
	}
	return reply, nil
}
