package mcp

import (
	"encoding/json"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// ContentType discriminates tool/prompt content blocks.
type ContentType string

const (
	ContentTypeText ContentType = "text"
)

// Content is one block of a tool or prompt payload.
type Content struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// NewTextContent creates a text content block.
func NewTextContent(text string) *Content {
	return &Content{Type: ContentTypeText, Text: text}
}

// NewJSONContent marshals a structured payload into a text content block.
func NewJSONContent(v any) *Content {
	bs, err := json.Marshal(v)
	if err != nil {
		return NewTextContent("failed to encode payload: " + err.Error())
	}
	return &Content{Type: ContentTypeText, Text: string(bs)}
}

// ToolResponse is the in-band result of one tool invocation. IsError marks a
// failure the calling agent is expected to adapt to; it is still a normal
// response, not a protocol error.
type ToolResponse struct {
	Content []*Content `json:"content"`
	IsError bool       `json:"isError,omitempty"`
}

// NewToolResponse creates a successful tool response.
func NewToolResponse(content ...*Content) *ToolResponse {
	return &ToolResponse{Content: content}
}

// NewToolErrorResponse creates an in-band failure response.
func NewToolErrorResponse(content ...*Content) *ToolResponse {
	return &ToolResponse{Content: content, IsError: true}
}

// Role identifies the speaker of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptMessage is one message of a prompt response.
type PromptMessage struct {
	Role    Role     `json:"role"`
	Content *Content `json:"content"`
}

// NewPromptMessage creates a prompt message.
func NewPromptMessage(content *Content, role Role) *PromptMessage {
	return &PromptMessage{Role: role, Content: content}
}

// PromptResponse is the result of prompts/get.
type PromptResponse struct {
	Description string           `json:"description,omitempty"`
	Messages    []*PromptMessage `json:"messages"`
}

// NewPromptResponse creates a prompt response.
func NewPromptResponse(description string, messages ...*PromptMessage) *PromptResponse {
	return &PromptResponse{Description: description, Messages: messages}
}

// EmbeddedResource is one content entry of resources/read.
type EmbeddedResource struct {
	Uri      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// NewTextEmbeddedResource creates a text resource entry.
func NewTextEmbeddedResource(uri, text, mimeType string) *EmbeddedResource {
	return &EmbeddedResource{Uri: uri, MimeType: mimeType, Text: text}
}

// ResourceResponse is the result of resources/read.
type ResourceResponse struct {
	Contents []*EmbeddedResource `json:"contents"`
}

// NewResourceResponse creates a resource response.
func NewResourceResponse(contents ...*EmbeddedResource) *ResourceResponse {
	return &ResourceResponse{Contents: contents}
}

// ToolInfo describes one registered tool in tools/list.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema"`
}

// ToolsResponse is the paginated result of tools/list.
type ToolsResponse struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// PromptInfo describes one registered prompt in prompts/list.
type PromptInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListPromptsResponse is the paginated result of prompts/list.
type ListPromptsResponse struct {
	Prompts    []PromptInfo `json:"prompts"`
	NextCursor *string      `json:"nextCursor,omitempty"`
}

// ResourceInfo describes one registered resource in resources/list.
type ResourceInfo struct {
	Uri         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResponse is the paginated result of resources/list.
type ListResourcesResponse struct {
	Resources  []ResourceInfo `json:"resources"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResponse is the result of initialize.
type InitializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

type baseCallToolRequestParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type baseGetPromptRequestParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type readResourceRequestParams struct {
	Uri string `json:"uri"`
}

type listRequestParams struct {
	Cursor *string `json:"cursor"`
}
