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

const (
	SectionsToolName       = "get_wikipedia_page_sections"
	SectionContentToolName = "get_wikipedia_page_sections_info"
)

// SectionsRequest represents the section listing tool input.
type SectionsRequest struct {
	Title    string `json:"title" validate:"required" jsonschema:"title=title,description=The title of the Wikipedia page."`
	Language string `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
}

// SectionsResult lists a page's sections without body text, so large
// articles can be navigated before pulling content.
type SectionsResult struct {
	Success       bool               `json:"success"`
	Title         string             `json:"page_title"`
	Language      string             `json:"language"`
	URL           string             `json:"url"`
	TotalSections int                `json:"total_sections"`
	Sections      []wiki.SectionInfo `json:"sections"`
}

// SectionsTool lists the flat section index of a page.
type SectionsTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[SectionsRequest, SectionsResult] = (*SectionsTool)(nil)

func NewSectionsTool(client *wiki.Client) (*SectionsTool, error) {
	sc, err := schema.New(reflect.TypeOf(SectionsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SectionsTool{
		name:        SectionsToolName,
		description: "List the sections of a Wikipedia page with their index, title and nesting level, without section content. Use this first on large articles, then fetch individual sections.",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *SectionsTool) Name() string {
	return t.name
}

func (t *SectionsTool) Description() string {
	return t.description
}

func (t *SectionsTool) Parameters() any {
	return t.funcParams
}

func (t *SectionsTool) Run(ctx context.Context, req *SectionsRequest) (*SectionsResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	lang := t.client.Language(req.Language)

	page, err := t.client.FetchPage(ctx, req.Title, lang)
	if err != nil {
		return nil, err
	}

	infos := wiki.ListSections(page)
	return &SectionsResult{
		Success:       true,
		Title:         page.Title,
		Language:      lang,
		URL:           page.URL(),
		TotalSections: len(infos),
		Sections:      infos,
	}, nil
}

func (t *SectionsTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[SectionsRequest, SectionsResult](ctx, t, input)
}

func (t *SectionsTool) RunMCP(ctx context.Context, req *SectionsRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *SectionsTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args SectionsRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}

// SectionContentRequest represents the section content tool input. Section is
// a flat index or a title reference.
type SectionContentRequest struct {
	Title    string     `json:"title" validate:"required" jsonschema:"title=title,description=The title of the Wikipedia page."`
	Section  SectionRef `json:"section" jsonschema:"title=section"`
	Language string     `json:"language,omitempty" jsonschema:"title=language,description=Wikipedia language code,default=en"`
}

// SectionContent is one resolved section with its body text.
type SectionContent struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// SectionContentResult represents the section content tool output.
type SectionContentResult struct {
	Success  bool           `json:"success"`
	Title    string         `json:"page_title"`
	Language string         `json:"language"`
	URL      string         `json:"url"`
	Section  SectionContent `json:"section"`
}

// SectionContentTool resolves one section by index or title and returns its
// content. The whole page is fetched once and sliced locally.
type SectionContentTool struct {
	name        string
	description string
	funcParams  any
	client      *wiki.Client
}

var _ tools.Tool[SectionContentRequest, SectionContentResult] = (*SectionContentTool)(nil)

func NewSectionContentTool(client *wiki.Client) (*SectionContentTool, error) {
	sc, err := schema.New(reflect.TypeOf(SectionContentRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SectionContentTool{
		name:        SectionContentToolName,
		description: "Get the content of one section of a Wikipedia page, addressed by its 0-based index or by its title (case-insensitive; exact match first, then first substring match)",
		funcParams:  sc.Parameters,
		client:      client,
	}, nil
}

func (t *SectionContentTool) Name() string {
	return t.name
}

func (t *SectionContentTool) Description() string {
	return t.description
}

func (t *SectionContentTool) Parameters() any {
	return t.funcParams
}

func (t *SectionContentTool) Run(ctx context.Context, req *SectionContentRequest) (*SectionContentResult, error) {
	if err := checkArgs(req); err != nil {
		return nil, err
	}
	if req.Section.IsZero() {
		return nil, errors.Mark(
			errors.New("invalid arguments: section is required"),
			wiki.ErrInvalidArguments)
	}
	lang := t.client.Language(req.Language)

	page, err := t.client.FetchPage(ctx, req.Title, lang)
	if err != nil {
		return nil, err
	}

	section, err := wiki.ResolveSection(page, req.Section.Ref())
	if err != nil {
		return nil, err
	}

	return &SectionContentResult{
		Success:  true,
		Title:    page.Title,
		Language: lang,
		URL:      page.URL(),
		Section: SectionContent{
			Index:   section.Index,
			Title:   section.Title,
			Level:   section.Level,
			Content: section.Body,
		},
	}, nil
}

func (t *SectionContentTool) Call(ctx context.Context, input string) (string, error) {
	return callJSON[SectionContentRequest, SectionContentResult](ctx, t, input)
}

func (t *SectionContentTool) RunMCP(ctx context.Context, req *SectionContentRequest) (*mcp.ToolResponse, error) {
	out, err := t.Run(ctx, req)
	return mcpResult(out, err)
}

func (t *SectionContentTool) RegisterMCP(reg tools.McpServerRegistrator) error {
	return reg.RegisterTool(t.name, t.description, func(ctx context.Context, args SectionContentRequest) (*mcp.ToolResponse, error) {
		return t.RunMCP(ctx, &args)
	})
}
