package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlziade/librarian/mcp/internal/protocol"
	"github.com/mlziade/librarian/mcp/internal/testingutils"
	"github.com/mlziade/librarian/mcp/transport"
)

type testToolArgs struct {
	Message string `json:"message" jsonschema:"required,description=A test message"`
}

func TestServerInitialize(t *testing.T) {
	server := NewServer(WithName("librarian-test"), WithVersion("0.1.0"))

	resp, err := server.handleInitialize(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	initResp, ok := resp.(InitializeResponse)
	require.True(t, ok, "Expected InitializeResponse")
	assert.Equal(t, ProtocolVersion, initResp.ProtocolVersion)
	assert.Equal(t, "librarian-test", initResp.ServerInfo.Name)
	assert.Equal(t, "0.1.0", initResp.ServerInfo.Version)
	assert.Contains(t, initResp.Capabilities, "tools")
}

func TestServerRegisterAfterServe(t *testing.T) {
	server := NewServer()
	mockTransport := testingutils.NewMockTransport()
	require.NoError(t, server.Serve(mockTransport))

	err := server.RegisterTool("late-tool", "Too late", func(args testToolArgs) (*ToolResponse, error) {
		return NewToolResponse(), nil
	})
	assert.Error(t, err)

	err = server.RegisterPrompt("late-prompt", "Too late", func() (*PromptResponse, error) {
		return NewPromptResponse("late"), nil
	})
	assert.Error(t, err)
}

func TestServerRegisterToolInvalidHandlers(t *testing.T) {
	server := NewServer()

	err := server.RegisterTool("not-a-func", "bad", 42)
	assert.Error(t, err)

	err = server.RegisterTool("no-args", "bad", func() (*ToolResponse, error) {
		return NewToolResponse(), nil
	})
	assert.Error(t, err)

	err = server.RegisterTool("wrong-return", "bad", func(args testToolArgs) error {
		return nil
	})
	assert.Error(t, err)

	err = server.RegisterTool("non-struct-args", "bad", func(args string) (*ToolResponse, error) {
		return NewToolResponse(), nil
	})
	assert.Error(t, err)
}

func TestHandleListToolsPagination(t *testing.T) {
	server := NewServer()

	// Register tools in a non alphabetical order
	toolNames := []string{"b-tool", "a-tool", "c-tool", "e-tool", "d-tool"}
	for _, name := range toolNames {
		err := server.RegisterTool(name, "Test tool "+name, func(args testToolArgs) (*ToolResponse, error) {
			return NewToolResponse(), nil
		})
		require.NoError(t, err)
	}

	// Set pagination limit to 2 items per page
	limit := 2
	server.paginationLimit = &limit

	// Test first page (no cursor)
	resp, err := server.handleListTools(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolsResp, ok := resp.(ToolsResponse)
	require.True(t, ok, "Expected ToolsResponse")

	require.Len(t, toolsResp.Tools, 2, "Expected 2 tools on first page")
	assert.Equal(t, "a-tool", toolsResp.Tools[0].Name)
	assert.Equal(t, "b-tool", toolsResp.Tools[1].Name)
	require.NotNil(t, toolsResp.NextCursor, "Expected next cursor for first page")
	assert.NotNil(t, toolsResp.Tools[0].InputSchema)

	// Test second page
	resp, err = server.handleListTools(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"cursor":"` + *toolsResp.NextCursor + `"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolsResp, ok = resp.(ToolsResponse)
	require.True(t, ok, "Expected ToolsResponse")

	require.Len(t, toolsResp.Tools, 2, "Expected 2 tools on second page")
	assert.Equal(t, "c-tool", toolsResp.Tools[0].Name)
	assert.Equal(t, "d-tool", toolsResp.Tools[1].Name)
	require.NotNil(t, toolsResp.NextCursor, "Expected next cursor for second page")

	// Test last page
	resp, err = server.handleListTools(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"cursor":"` + *toolsResp.NextCursor + `"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolsResp, ok = resp.(ToolsResponse)
	require.True(t, ok, "Expected ToolsResponse")

	require.Len(t, toolsResp.Tools, 1, "Expected 1 tool on last page")
	assert.Equal(t, "e-tool", toolsResp.Tools[0].Name)
	assert.Nil(t, toolsResp.NextCursor, "Expected no next cursor for last page")

	// Test invalid cursor
	_, err = server.handleListTools(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"cursor":"invalid-cursor"}`),
	}, protocol.RequestHandlerExtra{})
	assert.Error(t, err, "Expected error for invalid cursor")

	// Test without pagination (should return all tools)
	server.paginationLimit = nil
	resp, err = server.handleListTools(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolsResp, ok = resp.(ToolsResponse)
	require.True(t, ok, "Expected ToolsResponse")

	assert.Len(t, toolsResp.Tools, 5, "Expected 5 tools without pagination")
	assert.Nil(t, toolsResp.NextCursor, "Expected no next cursor when pagination is disabled")
}

func TestHandleToolCall(t *testing.T) {
	server := NewServer()

	err := server.RegisterTool("test-tool", "Test tool", func(args testToolArgs) (*ToolResponse, error) {
		return NewToolResponse(NewTextContent("echo: " + args.Message)), nil
	})
	require.NoError(t, err)

	// Unknown tool
	_, err = server.handleToolCalls(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"invalid"}`),
	}, protocol.RequestHandlerExtra{})
	assert.EqualError(t, err, "unknown tool: invalid")

	// No arguments at all
	resp, err := server.handleToolCalls(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"test-tool"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolResp, ok := resp.(*ToolResponse)
	require.True(t, ok, "Expected ToolResponse")
	require.Len(t, toolResp.Content, 1)
	assert.Equal(t, "echo: ", toolResp.Content[0].Text)

	// Arguments present
	resp, err = server.handleToolCalls(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"test-tool", "arguments":{"message":"hi"}}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolResp, ok = resp.(*ToolResponse)
	require.True(t, ok, "Expected ToolResponse")
	require.Len(t, toolResp.Content, 1)
	assert.Equal(t, "echo: hi", toolResp.Content[0].Text)

	// Malformed arguments
	_, err = server.handleToolCalls(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"test-tool", "arguments":{invalid json}}`),
	}, protocol.RequestHandlerExtra{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal arguments")
}

func TestHandleToolCallWithContext(t *testing.T) {
	server := NewServer()

	type key struct{}
	err := server.RegisterTool("ctx-tool", "Context tool", func(ctx context.Context, args testToolArgs) (*ToolResponse, error) {
		val, _ := ctx.Value(key{}).(string)
		return NewToolResponse(NewTextContent(val)), nil
	})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), key{}, "from-context")
	resp, err := server.handleToolCalls(ctx, &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"ctx-tool","arguments":{"message":"x"}}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	toolResp, ok := resp.(*ToolResponse)
	require.True(t, ok)
	assert.Equal(t, "from-context", toolResp.Content[0].Text)
}

func TestHandleListPromptsPagination(t *testing.T) {
	server := NewServer()

	promptNames := []string{"b-prompt", "a-prompt", "c-prompt"}
	for _, name := range promptNames {
		err := server.RegisterPrompt(name, "Test prompt "+name, func() (*PromptResponse, error) {
			return NewPromptResponse("test", NewPromptMessage(NewTextContent("test"), RoleUser)), nil
		})
		require.NoError(t, err)
	}

	limit := 2
	server.paginationLimit = &limit

	resp, err := server.handleListPrompts(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	promptsResp, ok := resp.(ListPromptsResponse)
	require.True(t, ok, "Expected ListPromptsResponse")
	require.Len(t, promptsResp.Prompts, 2)
	assert.Equal(t, "a-prompt", promptsResp.Prompts[0].Name)
	assert.Equal(t, "b-prompt", promptsResp.Prompts[1].Name)
	require.NotNil(t, promptsResp.NextCursor)

	resp, err = server.handleListPrompts(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"cursor":"` + *promptsResp.NextCursor + `"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	promptsResp, ok = resp.(ListPromptsResponse)
	require.True(t, ok, "Expected ListPromptsResponse")
	require.Len(t, promptsResp.Prompts, 1)
	assert.Equal(t, "c-prompt", promptsResp.Prompts[0].Name)
	assert.Nil(t, promptsResp.NextCursor)

	_, err = server.handleListPrompts(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"cursor":"invalid-cursor"}`),
	}, protocol.RequestHandlerExtra{})
	assert.Error(t, err, "Expected error for invalid cursor")
}

func TestHandleGetPrompt(t *testing.T) {
	server := NewServer()

	err := server.RegisterPrompt("greeting", "A greeting prompt", func() (*PromptResponse, error) {
		return NewPromptResponse("greeting", NewPromptMessage(NewTextContent("hello"), RoleAssistant)), nil
	})
	require.NoError(t, err)

	resp, err := server.handleGetPrompt(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"greeting"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	promptResp, ok := resp.(*PromptResponse)
	require.True(t, ok, "Expected PromptResponse")
	require.Len(t, promptResp.Messages, 1)
	assert.Equal(t, "hello", promptResp.Messages[0].Content.Text)
	assert.Equal(t, RoleAssistant, promptResp.Messages[0].Role)

	_, err = server.handleGetPrompt(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"name":"missing"}`),
	}, protocol.RequestHandlerExtra{})
	assert.EqualError(t, err, "unknown prompt: missing")
}

func TestHandleListResourcesAndRead(t *testing.T) {
	server := NewServer()

	err := server.RegisterResource("test://resource", "test-resource", "Test resource", "text/plain", func() (*ResourceResponse, error) {
		return NewResourceResponse(NewTextEmbeddedResource("test://resource", "test content", "text/plain")), nil
	})
	require.NoError(t, err)

	// Test with no Params defined
	resp, err := server.handleListResources(context.Background(), &transport.BaseJSONRPCRequest{}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	resourcesResp, ok := resp.(ListResourcesResponse)
	require.True(t, ok, "Expected ListResourcesResponse")
	require.Len(t, resourcesResp.Resources, 1)
	assert.Equal(t, "test://resource", resourcesResp.Resources[0].Uri)
	assert.Equal(t, "text/plain", resourcesResp.Resources[0].MimeType)

	resp, err = server.handleReadResource(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"uri":"test://resource"}`),
	}, protocol.RequestHandlerExtra{})
	require.NoError(t, err)

	resourceResp, ok := resp.(*ResourceResponse)
	require.True(t, ok, "Expected ResourceResponse")
	require.Len(t, resourceResp.Contents, 1)

	_, err = server.handleReadResource(context.Background(), &transport.BaseJSONRPCRequest{
		Params: []byte(`{"uri":"test://missing"}`),
	}, protocol.RequestHandlerExtra{})
	assert.EqualError(t, err, "unknown resource: test://missing")
}

func TestServeDispatchesOverTransport(t *testing.T) {
	server := NewServer()

	err := server.RegisterTool("echo", "Echo tool", func(args testToolArgs) (*ToolResponse, error) {
		return NewToolResponse(NewTextContent(args.Message)), nil
	})
	require.NoError(t, err)

	mockTransport := testingutils.NewMockTransport()
	require.NoError(t, server.Serve(mockTransport))
	assert.True(t, mockTransport.Started())

	mockTransport.SimulateMessage(transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      transport.NewRequestId(7),
		Method:  "tools/call",
		Params:  []byte(`{"name":"echo","arguments":{"message":"ping"}}`),
	}))

	messages := mockTransport.GetMessages()
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].JsonRpcResponse)
	assert.Equal(t, transport.NewRequestId(7), messages[0].JsonRpcResponse.Id)

	// Unknown method yields a JSON-RPC error response
	mockTransport.Reset()
	mockTransport.SimulateMessage(transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      transport.NewRequestId(8),
		Method:  "no/such/method",
		Params:  []byte(`{}`),
	}))

	messages = mockTransport.GetMessages()
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].JsonRpcError)
	assert.Equal(t, transport.ErrCodeMethodNotFound, messages[0].JsonRpcError.Error.Code)
}

func TestHandleToolCallRecoversFromPanic(t *testing.T) {
	server := NewServer()

	err := server.RegisterTool("panic-tool", "Tool that panics", func(args testToolArgs) (*ToolResponse, error) {
		panic("tool exploded")
	})
	require.NoError(t, err)

	mockTransport := testingutils.NewMockTransport()
	require.NoError(t, server.Serve(mockTransport))

	mockTransport.SimulateMessage(transport.NewBaseMessageRequest(&transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Id:      transport.NewRequestId(5),
		Method:  "tools/call",
		Params:  []byte(`{"name":"panic-tool","arguments":{"message":"boom"}}`),
	}))

	messages := mockTransport.GetMessages()
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].JsonRpcError)
	assert.Equal(t, transport.ErrCodeInternalError, messages[0].JsonRpcError.Error.Code)
	assert.Contains(t, messages[0].JsonRpcError.Error.Message, "internal error")
}
