// Package wstransport serves the JSON-RPC channel over WebSocket. Each
// connection is an independent session: messages on it are handled serially
// in arrival order, while separate connections proceed concurrently.
package wstransport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mlziade/librarian/mcp/transport"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian/mcp/transport", "wstransport")

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

// SessionID returns the connection identifier carried in a handler context,
// or an empty string outside a WebSocket session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// WSTransport upgrades HTTP requests on its endpoint to WebSocket
// connections and bridges JSON-RPC messages over them.
type WSTransport struct {
	server   *http.Server
	endpoint string
	addr     string
	upgrader websocket.Upgrader

	mu             sync.RWMutex
	conns          map[string]*wsConn
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
}

type wsConn struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// New creates a WebSocket transport serving on the given endpoint path.
func New(endpoint string) *WSTransport {
	return &WSTransport{
		endpoint: endpoint,
		addr:     ":8081",
		conns:    make(map[string]*wsConn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The server carries no cookies or ambient credentials, so
			// cross-origin agents connecting is the normal case.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// WithAddr sets the listen address.
func (t *WSTransport) WithAddr(addr string) *WSTransport {
	t.addr = addr
	return t
}

// Start begins serving; it blocks until Close or a listener error.
func (t *WSTransport) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Get(t.endpoint, t.handleUpgrade)

	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "websocket transport")
	}
	return nil
}

// Send routes the reply to the session it belongs to.
func (t *WSTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	id := SessionID(ctx)

	t.mu.RLock()
	c := t.conns[id]
	t.mu.RUnlock()
	if c == nil {
		return errors.Newf("no session found: %q", id)
	}
	return c.writeMessage(message)
}

// Close shuts the listener down and closes every open session.
func (t *WSTransport) Close() error {
	if t.server != nil {
		if err := t.server.Close(); err != nil {
			return err
		}
	}

	t.mu.Lock()
	conns := t.conns
	t.conns = make(map[string]*wsConn)
	handler := t.closeHandler
	t.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
	if handler != nil {
		handler()
	}
	return nil
}

func (t *WSTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

func (t *WSTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *WSTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *WSTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.reportError(errors.Wrap(err, "failed to upgrade connection"))
		return
	}

	c := &wsConn{
		id:   uuid.New().String(),
		conn: conn,
	}
	t.mu.Lock()
	t.conns[c.id] = c
	t.mu.Unlock()

	logger.KV(xlog.DEBUG, "reason", "session_open", "session", c.id)
	go t.readLoop(c)
}

// readLoop services one connection. A message that fails to decode gets a
// parse error reply on that connection; the session then continues.
func (t *WSTransport) readLoop(c *wsConn) {
	defer func() {
		t.mu.Lock()
		delete(t.conns, c.id)
		t.mu.Unlock()
		_ = c.conn.Close()
		logger.KV(xlog.DEBUG, "reason", "session_closed", "session", c.id)
	}()

	ctx := context.WithValue(context.Background(), sessionKey, c.id)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.reportError(errors.Wrap(err, "websocket read"))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		message, err := transport.DecodeMessage(data)
		if err != nil {
			if sendErr := c.writeMessage(transport.ParseErrorMessage(err)); sendErr != nil {
				t.reportError(sendErr)
			}
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()
		if handler != nil {
			handler(ctx, message)
		}
	}
}

func (c *wsConn) writeMessage(message *transport.BaseJsonRpcMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(message); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

func (t *WSTransport) reportError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
