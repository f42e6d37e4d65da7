package wikipedia

import (
	"context"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp"
	"github.com/mlziade/librarian/schema"
	"github.com/mlziade/librarian/tools"
	"github.com/mlziade/librarian/wiki"
)

const ExistsToolName = "check_wikipedia_page_exists"

// ExistsRequest represents the tool input.
type ExistsRequest struct {
	Title    string `json:"title" validate:"required" jsonschema:"title=title,description=The title of the Wikipedia page to check."`
	Language string `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
}

// ExistsResult represents the tool output. A missing page is a successful
// check with Exists false, not a failure.
type ExistsResult struct {
	Success  bool   `json:"success"`
	Title    string `json:"page_title"`
	Language string `json:"language"`
	Exists   bool   `json:"exists"`
	URL      string `json:"url,omitempty"`
	Message  string `json:"message"`
}

// ExistsTool checks whether a title resolves to an article, for use before
// heavier retrieval tools.
type ExistsTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[ExistsRequest, ExistsResult] = (*ExistsTool)(nil)

func NewExistsTool(client *wiki.Client) (*ExistsTool, error) {
	sc, err := schema.New(reflect.TypeOf(ExistsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ExistsTool{
		name:        ExistsToolName,
		description: "Check if a Wikipedia page exists before trying to retrieve it",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *ExistsTool) Name() string {
	return t.name
}

func (t *ExistsTool) Description() string {
	return t.description
}

func (t *ExistsTool) Parameters() any {
	return t.funcParams
}

func (t *ExistsTool) Run(ctx context.Context, req *ExistsRequest) (*ExistsResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	lang := t.client.Language(req.Language)

	exists, err := t.client.PageExists(ctx, req.Title, lang)
	if err != nil {
		return nil, err
	}

	res := &ExistsResult{
		Success:  true,
		Title:    req.Title,
		Language: lang,
		Exists:   exists,
	}
	if exists {
		res.URL = wiki.PageURL(req.Title, lang)
		res.Message = fmt.Sprintf("Page %q exists", req.Title)
	} else {
		res.Message = fmt.Sprintf("Page %q does not exist", req.Title)
	}
	return res, nil
}

func (t *ExistsTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[ExistsRequest, ExistsResult](ctx, t, input)
}

func (t *ExistsTool) RunMCP(ctx context.Context, req *ExistsRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *ExistsTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args ExistsRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}
