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

const SearchToolName = "search_wikipedia_pages"

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query    string `json:"query" validate:"required" jsonschema:"title=query,description=The search term or phrase."`
	Language string `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
}

// SearchResultItem is one candidate page with enough context to pick the
// most relevant one.
type SearchResultItem struct {
	Title        string `json:"title"`
	Snippet      string `json:"snippet"`
	URL          string `json:"url"`
	WordCount    int    `json:"word_count"`
	LastModified string `json:"last_modified,omitempty"`
}

// SearchResult represents the tool output. Zero hits is a success with an
// empty result list, not a failure.
type SearchResult struct {
	Success      bool               `json:"success"`
	Query        string             `json:"query"`
	Language     string             `json:"language"`
	TotalResults int                `json:"total_results"`
	// TotalAvailable is the upstream match total, which can exceed the number
	// of results returned.
	TotalAvailable int `json:"total_available,omitempty"`
	// Suggestion is the upstream "did you mean" rewrite of the query, useful
	// when a misspelled query comes back empty.
	Suggestion string             `json:"suggestion,omitempty"`
	Results    []SearchResultItem `json:"results"`
}

// SearchTool searches for candidate pages on a topic.
type SearchTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[SearchRequest, SearchResult] = (*SearchTool)(nil)

func NewSearchTool(client *wiki.Client) (*SearchTool, error) {
	sc, err := schema.New(reflect.TypeOf(SearchRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SearchTool{
		name:        SearchToolName,
		description: "Search for Wikipedia pages on a certain word/topic and return the first 5 results with information to help choose the most relevant one",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *SearchTool) Name() string {
	return t.name
}

func (t *SearchTool) Description() string {
	return t.description
}

func (t *SearchTool) Parameters() any {
	return t.funcParams
}

func (t *SearchTool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	lang := t.client.Language(req.Language)

	found, err := t.client.Search(ctx, req.Query, lang)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResultItem, 0, len(found.Hits))
	for _, h := range found.Hits {
		results = append(results, SearchResultItem{
			Title:        h.Title,
			Snippet:      h.Snippet,
			URL:          h.URL(),
			WordCount:    h.WordCount,
			LastModified: h.Timestamp,
		})
	}
	return &SearchResult{
		Success:        true,
		Query:          req.Query,
		Language:       lang,
		TotalResults:   len(results),
		TotalAvailable: found.TotalHits,
		Suggestion:     found.Suggestion,
		Results:        results,
	}, nil
}

func (t *SearchTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[SearchRequest, SearchResult](ctx, t, input)
}

func (t *SearchTool) RunMCP(ctx context.Context, req *SearchRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *SearchTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args SearchRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}
