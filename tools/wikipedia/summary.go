package wikipedia

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp"
	"github.com/mlziade/librarian/schema"
	"github.com/mlziade/librarian/tools"
	"github.com/mlziade/librarian/wiki"
)

const SummaryToolName = "get_wikipedia_page_summary"

// DefaultSummarySentences is used when a call omits the sentences parameter.
const DefaultSummarySentences = 5

// SummaryRequest represents the tool input. Sentences zero means the default;
// negative or fractional values fail validation before any network call.
type SummaryRequest struct {
	Title     string `json:"title" validate:"required" jsonschema:"title=title,description=The title of the Wikipedia page."`
	Language  string `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
	Sentences int    `json:"sentences,omitempty" validate:"gte=0" jsonschema:"title=sentences,description=Number of sentences to include in the extract,default=5"`
}

// SummaryResult represents the tool output.
type SummaryResult struct {
	Success     bool   `json:"success"`
	Title       string `json:"page_title"`
	Language    string `json:"language"`
	URL         string `json:"url"`
	Extract     string `json:"extract"`
	Description string `json:"description,omitempty"`
}

// SummaryTool returns the article lead truncated to a sentence count, the
// lighter alternative to the page info tool.
type SummaryTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[SummaryRequest, SummaryResult] = (*SummaryTool)(nil)

func NewSummaryTool(client *wiki.Client) (*SummaryTool, error) {
	sc, err := schema.New(reflect.TypeOf(SummaryRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SummaryTool{
		name:        SummaryToolName,
		description: "Get a quick summary of a Wikipedia page - lighter version of get_wikipedia_page_info",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *SummaryTool) Name() string {
	return t.name
}

func (t *SummaryTool) Description() string {
	return t.description
}

func (t *SummaryTool) Parameters() any {
	return t.funcParams
}

func (t *SummaryTool) Run(ctx context.Context, req *SummaryRequest) (*SummaryResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	lang := t.client.Language(req.Language)
	sentences := req.Sentences
	if sentences == 0 {
		sentences = DefaultSummarySentences
	}

	summary, err := t.client.FetchSummary(ctx, req.Title, lang, sentences)
	if err != nil {
		return nil, err
	}

	return &SummaryResult{
		Success:     true,
		Title:       summary.Title,
		Language:    lang,
		URL:         wiki.PageURL(summary.Title, lang),
		Extract:     summary.Extract,
		Description: summary.Description,
	}, nil
}

func (t *SummaryTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[SummaryRequest, SummaryResult](ctx, t, input)
}

func (t *SummaryTool) RunMCP(ctx context.Context, req *SummaryRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *SummaryTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args SummaryRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}
