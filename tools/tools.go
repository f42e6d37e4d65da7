package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp"
)

// McpServerRegistrator is the part of the MCP server a tool needs to register
// itself: a name, a description and a typed handler.
type McpServerRegistrator interface {
	RegisterTool(name string, description string, handler any) error
}

// ErrFailedUnmarshalInput is returned by Call implementations when the raw
// input cannot be decoded into the tool's parameter struct.
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input")

// ITool is a tool an LLM agent can invoke against the encyclopedia.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the tool.
	Parameters() any

	// Call executes the tool with the given raw JSON input and returns the
	// result as JSON. If the input cannot be parsed, it returns
	// ErrFailedUnmarshalInput.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool with structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// IMCPTool is a tool that can additionally register itself with an MCP server.
type IMCPTool interface {
	ITool
	RegisterMCP(registrator McpServerRegistrator) error
}

// MCPTool is a typed tool whose MCP handler returns an in-band tool response,
// so domain failures reach the agent as results it can adapt to rather than
// protocol errors.
type MCPTool[I any] interface {
	IMCPTool
	RunMCP(context.Context, *I) (*mcp.ToolResponse, error)
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions renders a JSON digest of the given tools, suitable for
// inclusion in a system prompt.
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	bs, _ := json.MarshalIndent(d, "", "  ")
	return "```json\n" + string(bs) + "\n```"
}
