// Package httptransport serves the JSON-RPC channel over stateless HTTP.
// Each POST carries exactly one message and the reply rides back on the same
// HTTP response, so no session state survives between calls.
package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mlziade/librarian/mcp/transport"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian/mcp/transport", "httptransport")

// HTTPTransport is the stateless HTTP channel. Inbound ids are rewritten to a
// process-local counter before dispatch and restored on the way out, so two
// concurrent POSTs carrying the same caller id cannot collide in the response
// map.
type HTTPTransport struct {
	server         *http.Server
	endpoint       string
	addr           string
	serverName     string
	serverVersion  string
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	responseMap    map[int64]chan *transport.BaseJsonRpcMessage
	atomicCounter  int64
}

// New creates an HTTP transport serving JSON-RPC on the given endpoint path.
func New(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		endpoint:      endpoint,
		responseMap:   make(map[int64]chan *transport.BaseJsonRpcMessage),
		addr:          ":8080",
		serverName:    "librarian",
		serverVersion: "dev",
	}
}

// WithAddr sets the listen address.
func (t *HTTPTransport) WithAddr(addr string) *HTTPTransport {
	t.addr = addr
	return t
}

// WithServerInfo sets the name and version reported on the landing endpoint.
func (t *HTTPTransport) WithServerInfo(name, version string) *HTTPTransport {
	t.serverName = name
	t.serverVersion = version
	return t
}

// Start begins serving; it blocks until Close or a listener error.
func (t *HTTPTransport) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", t.handleLanding)
	r.Get("/health", t.handleHealth)
	r.Post(t.endpoint, t.handleRequest)

	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http transport")
	}
	return nil
}

// Send delivers the reply to the POST handler blocked on the rewritten id.
func (t *HTTPTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
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

// Close shuts the HTTP server down.
func (t *HTTPTransport) Close() error {
	if t.server != nil {
		if err := t.server.Close(); err != nil {
			return err
		}
	}
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()
	if handler != nil {
		handler()
	}
	return nil
}

func (t *HTTPTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *HTTPTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *HTTPTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

func (t *HTTPTransport) handleLanding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     t.serverName,
		"version":  t.serverVersion,
		"protocol": "jsonrpc-2.0",
		"endpoint": t.endpoint,
	})
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (t *HTTPTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.reportError(errors.Wrap(err, "failed to read request body"))
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	response := t.handleMessage(ctx, body)

	jsonData, err := json.Marshal(response)
	if err != nil {
		t.reportError(errors.Wrap(err, "failed to marshal response"))
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonData)
}

// handleMessage decodes one payload, dispatches it, and blocks until the
// reply arrives on this request's channel. The channel is buffered so the
// dispatcher's inline Send never blocks against us.
func (t *HTTPTransport) handleMessage(ctx context.Context, body []byte) *transport.BaseJsonRpcMessage {
	message, err := transport.DecodeMessage(body)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "parse_error", "err", err.Error())
		return transport.ParseErrorMessage(err)
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
		}
	}
	if message.Type != transport.BaseMessageTypeJSONRPCRequestType {
		return transport.ParseErrorMessage(errors.New("only requests and notifications are accepted"))
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
	return reply
}

func (t *HTTPTransport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
