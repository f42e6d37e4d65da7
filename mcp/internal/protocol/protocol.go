// Package protocol implements the JSON-RPC 2.0 framing on top of a pluggable
// transport: method dispatch, response correlation and error encoding.
//
// Dispatch is synchronous on purpose: a channel services one request at a time
// in arrival order, so replies on a channel come back in the order requests
// were received. Separate channels each get their own Protocol instance and
// run independently.
package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/mlziade/librarian/mcp/transport"
	"github.com/mlziade/librarian/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian/mcp/internal", "protocol")

// RequestHandlerExtra carries per-request data into request handlers.
type RequestHandlerExtra struct {
	// Context communicates if the request was cancelled or timed out.
	Context context.Context
}

// RequestHandler serves one JSON-RPC method.
type RequestHandler func(ctx context.Context, request *transport.BaseJSONRPCRequest, extra RequestHandlerExtra) (transport.JsonRpcBody, error)

// NotificationHandler consumes a one-way message.
type NotificationHandler func(notification *transport.BaseJSONRPCNotification) error

// ErrorCode attaches a JSON-RPC error code to an error returned by a request
// handler; without it the reply carries ErrCodeInternalError.
func ErrorCode(err error, code int) error {
	return &codedError{cause: err, code: code}
}

type codedError struct {
	cause error
	code  int
}

func (e *codedError) Error() string { return e.cause.Error() }
func (e *codedError) Unwrap() error { return e.cause }

func codeOf(err error) int {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return transport.ErrCodeInternalError
}

// Protocol routes inbound requests on one transport to registered handlers
// and sends the reply back on the same transport. The handler tables are
// written before Connect and read-only afterwards.
type Protocol struct {
	transport transport.Transport

	mu                   sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler

	// OnError is called for any out-of-band failure. Never fatal.
	OnError func(error)
	// OnClose is called when the transport closes.
	OnClose func()
}

// New creates a Protocol with empty handler tables.
func New() *Protocol {
	return &Protocol{
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
	}
}

// SetRequestHandler registers a handler for a JSON-RPC method.
func (p *Protocol) SetRequestHandler(method string, handler RequestHandler) {
	p.mu.Lock()
	p.requestHandlers[method] = handler
	p.mu.Unlock()
}

// SetNotificationHandler registers a handler for a notification method.
func (p *Protocol) SetNotificationHandler(method string, handler NotificationHandler) {
	p.mu.Lock()
	p.notificationHandlers[method] = handler
	p.mu.Unlock()
}

// Connect attaches to the transport and starts it.
func (p *Protocol) Connect(tr transport.Transport) error {
	p.transport = tr

	tr.SetCloseHandler(func() {
		if p.OnClose != nil {
			p.OnClose()
		}
	})
	tr.SetErrorHandler(func(err error) {
		p.handleError(err)
	})
	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCRequestType:
			p.handleRequest(ctx, message.JsonRpcRequest)
		case transport.BaseMessageTypeJSONRPCNotificationType:
			p.handleNotification(message.JsonRpcNotification)
		default:
			// A server never receives responses; drop them.
		}
	})

	return tr.Start(context.Background())
}

// Close closes the underlying transport.
func (p *Protocol) Close() error {
	if p.transport != nil {
		return p.transport.Close()
	}
	return nil
}

func (p *Protocol) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// handleRequest runs the handler inline and sends exactly one reply. A failure
// is scoped to this request: the channel proceeds to its next message.
func (p *Protocol) handleRequest(ctx context.Context, request *transport.BaseJSONRPCRequest) {
	logger.ContextKV(ctx, xlog.DEBUG,
		"method", request.Method,
		"id", request.Id,
	)
	metricskey.StatsRPCRequests.IncrCounter(1, request.Method)

	p.mu.RLock()
	handler := p.requestHandlers[request.Method]
	p.mu.RUnlock()

	if handler == nil {
		p.sendErrorResponse(ctx, request.Id, transport.ErrCodeMethodNotFound,
			errors.Newf("method not found: %s", request.Method))
		return
	}

	result, err := safeInvoke(ctx, handler, request)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"method", request.Method,
			"id", request.Id,
			"err", err.Error(),
		)
		p.sendErrorResponse(ctx, request.Id, codeOf(err), err)
		return
	}

	jsonResult, err := json.Marshal(result)
	if err != nil {
		p.sendErrorResponse(ctx, request.Id, transport.ErrCodeInternalError,
			errors.Wrap(err, "failed to marshal result"))
		return
	}

	response := &transport.BaseJSONRPCResponse{
		Jsonrpc: "2.0",
		Id:      request.Id,
		Result:  jsonResult,
	}
	if err := p.transport.Send(ctx, transport.NewBaseMessageResponse(response)); err != nil {
		p.handleError(errors.Wrap(err, "failed to send response"))
	}
}

// safeInvoke shields the channel from handler panics.
func safeInvoke(ctx context.Context, handler RequestHandler, request *transport.BaseJSONRPCRequest) (body transport.JsonRpcBody, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("internal error: %v", r)
		}
	}()
	return handler(ctx, request, RequestHandlerExtra{Context: ctx})
}

func (p *Protocol) handleNotification(notification *transport.BaseJSONRPCNotification) {
	logger.KV(xlog.DEBUG, "method", notification.Method)

	p.mu.RLock()
	handler := p.notificationHandlers[notification.Method]
	p.mu.RUnlock()

	if handler == nil {
		return
	}
	if err := handler(notification); err != nil {
		p.handleError(errors.Wrap(err, "notification handler error"))
	}
}

func (p *Protocol) sendErrorResponse(ctx context.Context, id transport.RequestId, code int, cause error) {
	response := &transport.BaseJSONRPCError{
		Jsonrpc: "2.0",
		Id:      id,
		Error: transport.BaseJSONRPCErrorInner{
			Code:    code,
			Message: cause.Error(),
		},
	}
	if err := p.transport.Send(ctx, transport.NewBaseMessageError(response)); err != nil {
		p.handleError(errors.Wrap(err, "failed to send error response"))
	}
}
