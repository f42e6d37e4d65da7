// Package wikipedia implements the encyclopedia tools served to LLM agents:
// page search, page info, summaries, section listing and section content.
// Each tool is pure composition of the wiki client and section navigation;
// the package itself performs no I/O.
package wikipedia

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/mlziade/librarian/mcp"
	"github.com/mlziade/librarian/tools"
	"github.com/mlziade/librarian/wiki"
)

var validate = validator.New()

// Failure is the in-band payload returned when a tool call fails for a
// domain reason: the agent sees a structured result it can adapt to,
// rather than a protocol error that would abort its chain.
type Failure struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// failureResponse converts a domain error into an in-band tool failure.
// Errors outside the domain taxonomy are returned as-is and surface as
// JSON-RPC internal errors.
func failureResponse(err error) (*mcp.ToolResponse, error) {
	kind := wiki.KindOf(err)
	if kind == wiki.KindNone || kind == wiki.KindInternal {
		return nil, err
	}
	return mcp.NewToolErrorResponse(mcp.NewJSONContent(Failure{
		Success:   false,
		Error:     string(kind),
		Message:   err.Error(),
		Retryable: wiki.Retryable(err),
	})), nil
}

// checkArgs validates a tool input struct; a failure is an InvalidArguments
// domain error, raised before any network call.
func checkArgs(req any) error {
	if err := validate.Struct(req); err != nil {
		return errors.Mark(errors.WithMessage(err, "invalid arguments"), wiki.ErrInvalidArguments)
	}
	return nil
}

// callJSON is the shared Call implementation: decode the raw input, run the
// typed handler, encode the result.
func callJSON[I any, O any](ctx context.Context, t tools.Tool[I, O], input string) (string, error) {
	var req I
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", errors.Mark(errors.WithMessage(err, tools.ErrFailedUnmarshalInput.Error()), tools.ErrFailedUnmarshalInput)
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}

// mcpResult wraps a successful typed result as an in-band tool response, or
// maps a domain error to an in-band failure.
func mcpResult(out any, err error) (*mcp.ToolResponse, error) {
	if err != nil {
		return failureResponse(err)
	}
	return mcp.NewToolResponse(mcp.NewJSONContent(out)), nil
}

// SectionRef is a section reference that arrives as a string-or-integer JSON
// value: a number addresses the flat section list by index, a string is a
// title reference even when it looks numeric, since section titles can
// themselves be numbers.
type SectionRef struct {
	Index *int
	Title string
}

func (r *SectionRef) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		r.Title = x
	case json.Number:
		i, err := strconv.Atoi(string(x))
		if err != nil {
			return errors.Mark(
				errors.Newf("section index must be an integer, got %s", x),
				wiki.ErrInvalidArguments)
		}
		r.Index = &i
	default:
		return errors.Mark(
			errors.New("section must be a string title or an integer index"),
			wiki.ErrInvalidArguments)
	}
	return nil
}

func (r SectionRef) MarshalJSON() ([]byte, error) {
	if r.Index != nil {
		return json.Marshal(*r.Index)
	}
	return json.Marshal(r.Title)
}

// Ref returns the value in the shape the section navigator resolves.
func (r SectionRef) Ref() any {
	if r.Index != nil {
		return *r.Index
	}
	return r.Title
}

// IsZero reports whether the reference is absent.
func (r SectionRef) IsZero() bool {
	return r.Index == nil && r.Title == ""
}

// JSONSchema declares the string-or-integer shape for tool listings.
func (SectionRef) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Description: "0-based index into the flat section list; 0 is the lead section"},
			{Type: "string", Description: "section title; case-insensitive exact match first, then substring"},
		},
	}
}

// Register constructs every tool against the given client and registers them
// with the MCP server.
func Register(reg tools.McpServerRegistrator, client *wiki.Client) error {
	all, err := All(client)
	if err != nil {
		return err
	}
	for _, t := range all {
		if err := t.RegisterMCP(reg); err != nil {
			return errors.WithMessagef(err, "failed to register %q", t.Name())
		}
	}
	return nil
}

// All constructs the full tool set against the given client.
func All(client *wiki.Client) ([]tools.IMCPTool, error) {
	search, err := NewSearchTool(client)
	if err != nil {
		return nil, err
	}
	pageInfo, err := NewPageInfoTool(client)
	if err != nil {
		return nil, err
	}
	summary, err := NewSummaryTool(client)
	if err != nil {
		return nil, err
	}
	sections, err := NewSectionsTool(client)
	if err != nil {
		return nil, err
	}
	sectionContent, err := NewSectionContentTool(client)
	if err != nil {
		return nil, err
	}
	exists, err := NewExistsTool(client)
	if err != nil {
		return nil, err
	}
	return []tools.IMCPTool{search, pageInfo, summary, sections, sectionContent, exists}, nil
}
