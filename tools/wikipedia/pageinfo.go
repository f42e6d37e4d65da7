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

const PageInfoToolName = "get_wikipedia_page_info"

// summarySentences is how many lead sentences the info tool includes.
const summarySentences = 5

// maxHyperlinkedWords caps the outbound link list in the response.
const maxHyperlinkedWords = 50

// PageInfoRequest represents the tool input.
type PageInfoRequest struct {
	Title              string `json:"title" validate:"required" jsonschema:"title=title,description=The title of the Wikipedia page."`
	Language           string `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
	IncludeFullContent bool   `json:"include_full_content,omitempty" jsonschema:"title=include_full_content,description=Whether to include the full plain-text content. Only use if you specifically need the whole article.,default=false"`
	IncludeCategories  bool   `json:"include_categories,omitempty" jsonschema:"title=include_categories,description=Whether to include page categories. Only use if you specifically need category information.,default=false"`
	IncludePageInfo    bool   `json:"include_page_info,omitempty" jsonschema:"title=include_page_info,description=Whether to include page metadata like length and last modified date.,default=false"`
}

// PageMetadata is the optional technical metadata block.
type PageMetadata struct {
	Length       int    `json:"length"`
	LastModified string `json:"last_modified"`
	PageID       int64  `json:"page_id"`
	CanonicalURL string `json:"canonical_url"`
}

// PageInfoResult represents the tool output.
type PageInfoResult struct {
	Success          bool          `json:"success"`
	Title            string        `json:"page_title"`
	Language         string        `json:"language"`
	URL              string        `json:"url"`
	ContentExtract   string        `json:"content_extract"`
	HyperlinkedWords []string      `json:"hyperlinked_words"`
	Categories       []string      `json:"categories,omitempty"`
	PageInfo         *PageMetadata `json:"page_info,omitempty"`
	FullContent      string        `json:"full_content,omitempty"`
}

// PageInfoTool retrieves detailed information about a page in one upstream
// round trip; the optional blocks are sliced from the same fetched page.
type PageInfoTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[PageInfoRequest, PageInfoResult] = (*PageInfoTool)(nil)

func NewPageInfoTool(client *wiki.Client) (*PageInfoTool, error) {
	sc, err := schema.New(reflect.TypeOf(PageInfoRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &PageInfoTool{
		name:        PageInfoToolName,
		description: "Get detailed information about a specific Wikipedia page including content, summary, and hyperlinked words",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *PageInfoTool) Name() string {
	return t.name
}

func (t *PageInfoTool) Description() string {
	return t.description
}

func (t *PageInfoTool) Parameters() any {
	return t.funcParams
}

func (t *PageInfoTool) Run(ctx context.Context, req *PageInfoRequest) (*PageInfoResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	lang := t.client.Language(req.Language)

	page, err := t.client.FetchPage(ctx, req.Title, lang)
	if err != nil {
		return nil, err
	}

	lead := ""
	if len(page.Sections) > 0 {
		lead = page.Sections[0].Body
	}
	links := page.Links
	if len(links) > maxHyperlinkedWords {
		links = links[:maxHyperlinkedWords]
	}

	res := &PageInfoResult{
		Success:          true,
		Title:            page.Title,
		Language:         lang,
		URL:              page.URL(),
		ContentExtract:   wiki.TruncateSentences(lead, summarySentences),
		HyperlinkedWords: links,
	}
	if req.IncludeCategories {
		res.Categories = page.Categories
		if res.Categories == nil {
			res.Categories = []string{}
		}
	}
	if req.IncludePageInfo {
		res.PageInfo = &PageMetadata{
			Length:       page.Info.Length,
			LastModified: page.Info.Touched,
			PageID:       page.Info.PageID,
			CanonicalURL: page.Info.CanonicalURL,
		}
	}
	if req.IncludeFullContent {
		res.FullContent = page.Text
	}
	return res, nil
}

func (t *PageInfoTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[PageInfoRequest, PageInfoResult](ctx, t, input)
}

func (t *PageInfoTool) RunMCP(ctx context.Context, req *PageInfoRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *PageInfoTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args PageInfoRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}
