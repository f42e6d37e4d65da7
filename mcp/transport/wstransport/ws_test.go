package wstransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlziade/librarian/mcp/transport"
)

func newTestSession(t *testing.T, tr *WSTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(tr.handleUpgrade))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func Test_WS_RoundTrip(t *testing.T) {
	tr := New("/ws")
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		if msg.Type != transport.BaseMessageTypeJSONRPCRequestType {
			return
		}
		result, _ := json.Marshal(map[string]string{"echo": msg.JsonRpcRequest.Method})
		_ = tr.Send(ctx, transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
			Jsonrpc: "2.0",
			Id:      msg.JsonRpcRequest.Id,
			Result:  result,
		}))
	})

	conn := newTestSession(t, tr)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc": "2.0", "id": 7, "method": "ping"}`)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	reply, err := transport.DecodeMessage(data)
	require.NoError(t, err)
	require.Equal(t, transport.BaseMessageTypeJSONRPCResponseType, reply.Type)
	assert.Equal(t, transport.NewRequestId(7), reply.JsonRpcResponse.Id)
	assert.JSONEq(t, `{"echo": "ping"}`, string(reply.JsonRpcResponse.Result))
}

func Test_WS_StringIdEchoed(t *testing.T) {
	tr := New("/ws")
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		if msg.Type != transport.BaseMessageTypeJSONRPCRequestType {
			return
		}
		_ = tr.Send(ctx, transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
			Jsonrpc: "2.0",
			Id:      msg.JsonRpcRequest.Id,
			Result:  []byte(`{}`),
		}))
	})

	conn := newTestSession(t, tr)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc": "2.0", "id": "sess-1-req-2", "method": "ping"}`)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc": "2.0", "id": "sess-1-req-2", "result": {}}`, string(data))
}

func Test_WS_ParseError(t *testing.T) {
	tr := New("/ws")
	conn := newTestSession(t, tr)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	reply, err := transport.DecodeMessage(data)
	require.NoError(t, err)
	require.Equal(t, transport.BaseMessageTypeJSONRPCErrorType, reply.Type)
	assert.Equal(t, transport.ErrCodeParseError, reply.JsonRpcError.Error.Code)
}

func Test_WS_SessionContext(t *testing.T) {
	tr := New("/ws")
	sessions := make(chan string, 2)
	tr.SetMessageHandler(func(ctx context.Context, msg *transport.BaseJsonRpcMessage) {
		sessions <- SessionID(ctx)
	})

	connA := newTestSession(t, tr)
	connB := newTestSession(t, tr)

	require.NoError(t, connA.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`)))
	require.NoError(t, connB.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc": "2.0", "id": 1, "method": "ping"}`)))

	a := <-sessions
	b := <-sessions
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b, "each connection is its own session")
}

func Test_WS_SendWithoutSession(t *testing.T) {
	tr := New("/ws")
	err := tr.Send(context.Background(), transport.NewBaseMessageResponse(&transport.BaseJSONRPCResponse{
		Jsonrpc: "2.0",
		Id:      transport.NewRequestId(1),
		Result:  []byte(`{}`),
	}))
	require.Error(t, err)
}
