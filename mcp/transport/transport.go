// Package transport defines the JSON-RPC 2.0 message types and the Transport
// interface shared by the stdio, WebSocket and HTTP channels. Each channel
// adapter only translates its wire format to and from these types; dispatch
// logic lives once, behind the message handler.
package transport

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// RequestId is the caller-supplied correlation identifier, held as its raw
// JSON encoding so string and integer ids are both carried opaquely and
// echoed back byte for byte. The zero value marshals as null, which is what
// a reply carries when the request id could not be read at all.
type RequestId string

// NewRequestId builds an integer id. Channels that rewrite inbound ids to a
// process-local counter use it together with Int64.
func NewRequestId(n int64) RequestId {
	return RequestId(strconv.FormatInt(n, 10))
}

// Int64 parses the id as an integer, reporting false for string ids.
func (id RequestId) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id RequestId) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

// UnmarshalJSON accepts a JSON string or number and keeps its raw encoding.
// Other shapes are rejected so a malformed id fails the whole message.
func (id *RequestId) UnmarshalJSON(data []byte) error {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.(type) {
	case string, float64:
		*id = RequestId(data)
	case nil:
		*id = ""
	default:
		return errors.New("id must be a string or number")
	}
	return nil
}

// JsonRpcBody is a successful result payload.
type JsonRpcBody any

// JSON-RPC 2.0 error codes used by the channels.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// BaseJSONRPCRequest is an inbound request expecting a response.
type BaseJSONRPCRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Id      RequestId       `json:"id"`
}

// UnmarshalJSON enforces the fields that distinguish a request from the other
// message shapes; plain struct decoding would accept anything.
func (m *BaseJSONRPCRequest) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCRequest
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["method"]; !ok {
		return errors.New("request missing method")
	}
	if _, ok := probe["id"]; !ok {
		return errors.New("request missing id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCRequest(a)
	return nil
}

// BaseJSONRPCNotification is a one-way message without an id.
type BaseJSONRPCNotification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (m *BaseJSONRPCNotification) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCNotification
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["method"]; !ok {
		return errors.New("notification missing method")
	}
	if _, ok := probe["id"]; ok {
		return errors.New("notification must not carry an id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCNotification(a)
	return nil
}

// BaseJSONRPCResponse is a successful reply.
type BaseJSONRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Id      RequestId       `json:"id"`
}

func (m *BaseJSONRPCResponse) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCResponse
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["result"]; !ok {
		return errors.New("response missing result")
	}
	if _, ok := probe["id"]; !ok {
		return errors.New("response missing id")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCResponse(a)
	return nil
}

// BaseJSONRPCErrorInner is the error descriptor of a failed reply.
type BaseJSONRPCErrorInner struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// BaseJSONRPCError is a failed reply.
type BaseJSONRPCError struct {
	Jsonrpc string                `json:"jsonrpc"`
	Id      RequestId             `json:"id"`
	Error   BaseJSONRPCErrorInner `json:"error"`
}

func (m *BaseJSONRPCError) UnmarshalJSON(data []byte) error {
	type alias BaseJSONRPCError
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["error"]; !ok {
		return errors.New("error response missing error")
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = BaseJSONRPCError(a)
	return nil
}

// BaseMessageType discriminates the union below.
type BaseMessageType string

const (
	BaseMessageTypeJSONRPCRequestType      BaseMessageType = "request"
	BaseMessageTypeJSONRPCNotificationType BaseMessageType = "notification"
	BaseMessageTypeJSONRPCResponseType     BaseMessageType = "response"
	BaseMessageTypeJSONRPCErrorType        BaseMessageType = "error"
)

// BaseJsonRpcMessage is the tagged union passed between channel adapters and
// the protocol layer. Exactly one of the pointers is populated, per Type.
type BaseJsonRpcMessage struct {
	Type                BaseMessageType
	JsonRpcRequest      *BaseJSONRPCRequest
	JsonRpcNotification *BaseJSONRPCNotification
	JsonRpcResponse     *BaseJSONRPCResponse
	JsonRpcError        *BaseJSONRPCError
}

func (m *BaseJsonRpcMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return json.Marshal(m.JsonRpcRequest)
	case BaseMessageTypeJSONRPCNotificationType:
		return json.Marshal(m.JsonRpcNotification)
	case BaseMessageTypeJSONRPCResponseType:
		return json.Marshal(m.JsonRpcResponse)
	case BaseMessageTypeJSONRPCErrorType:
		return json.Marshal(m.JsonRpcError)
	}
	return nil, errors.Newf("unknown message type: %q", m.Type)
}

// MessageID returns the correlation id of the message, or the empty id for
// notifications.
func (m *BaseJsonRpcMessage) MessageID() RequestId {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Id
	case BaseMessageTypeJSONRPCResponseType:
		return m.JsonRpcResponse.Id
	case BaseMessageTypeJSONRPCErrorType:
		return m.JsonRpcError.Id
	}
	return ""
}

func NewBaseMessageRequest(request *BaseJSONRPCRequest) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:           BaseMessageTypeJSONRPCRequestType,
		JsonRpcRequest: request,
	}
}

func NewBaseMessageNotification(notification *BaseJSONRPCNotification) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:                BaseMessageTypeJSONRPCNotificationType,
		JsonRpcNotification: notification,
	}
}

func NewBaseMessageResponse(response *BaseJSONRPCResponse) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:            BaseMessageTypeJSONRPCResponseType,
		JsonRpcResponse: response,
	}
}

func NewBaseMessageError(errResp *BaseJSONRPCError) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:         BaseMessageTypeJSONRPCErrorType,
		JsonRpcError: errResp,
	}
}

// ParseErrorMessage builds the reply for a payload that could not be decoded
// into any JSON-RPC shape. It is reported on the originating channel only and
// never terminates the channel.
func ParseErrorMessage(err error) *BaseJsonRpcMessage {
	return NewBaseMessageError(&BaseJSONRPCError{
		Jsonrpc: "2.0",
		Error: BaseJSONRPCErrorInner{
			Code:    ErrCodeParseError,
			Message: "parse error: " + err.Error(),
		},
	})
}

// DecodeMessage classifies a raw payload into one of the JSON-RPC shapes,
// trying request, then notification, then response, then error.
func DecodeMessage(body []byte) (*BaseJsonRpcMessage, error) {
	var request BaseJSONRPCRequest
	if err := json.Unmarshal(body, &request); err == nil {
		return NewBaseMessageRequest(&request), nil
	}
	var notification BaseJSONRPCNotification
	if err := json.Unmarshal(body, &notification); err == nil {
		return NewBaseMessageNotification(&notification), nil
	}
	var response BaseJSONRPCResponse
	if err := json.Unmarshal(body, &response); err == nil {
		return NewBaseMessageResponse(&response), nil
	}
	var errResp BaseJSONRPCError
	if err := json.Unmarshal(body, &errResp); err == nil {
		return NewBaseMessageError(&errResp), nil
	}
	return nil, errors.New("message is not a JSON-RPC request, notification, response or error")
}

// Transport is one channel carrying JSON-RPC messages. Implementations call
// the message handler for each inbound message and write outbound messages in
// Send. A transport services one message at a time in arrival order; separate
// transports operate independently.
type Transport interface {
	// Start begins processing messages. Blocking transports return when their
	// channel is closed or the context is cancelled.
	Start(ctx context.Context) error

	// Send writes a message to the channel.
	Send(ctx context.Context, message *BaseJsonRpcMessage) error

	// Close closes the connection.
	Close() error

	// SetErrorHandler sets the callback for out-of-band errors. Errors are not
	// necessarily fatal.
	SetErrorHandler(handler func(error))

	// SetCloseHandler sets the callback for when the connection is closed for
	// any reason, including a call to Close().
	SetCloseHandler(handler func())

	// SetMessageHandler sets the callback invoked for each inbound message.
	SetMessageHandler(handler func(ctx context.Context, message *BaseJsonRpcMessage))
}
