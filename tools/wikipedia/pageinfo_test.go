package wikipedia_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlziade/librarian/tools/wikipedia"
	"github.com/mlziade/librarian/wiki"
)

func Test_PageInfoTool_Run(t *testing.T) {
	client := newTestClient(t, einsteinHandler)
	tool, err := wikipedia.NewPageInfoTool(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &wikipedia.PageInfoRequest{Title: "Albert Einstein"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Albert Einstein", res.Title)
	assert.Equal(t, "en", res.Language)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Albert_Einstein", res.URL)
	assert.Contains(t, res.ContentExtract, "Albert Einstein was a physicist.")
	assert.NotContains(t, res.ContentExtract, "Early life", "extract comes from the lead only")
	assert.Equal(t, []string{"Ulm", "Photon"}, res.HyperlinkedWords)

	assert.Nil(t, res.Categories, "optional blocks are off by default")
	assert.Nil(t, res.PageInfo)
	assert.Empty(t, res.FullContent)
}

func Test_PageInfoTool_OptionalBlocks(t *testing.T) {
	client := newTestClient(t, einsteinHandler)
	tool, err := wikipedia.NewPageInfoTool(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &wikipedia.PageInfoRequest{
		Title:              "Albert Einstein",
		IncludeFullContent: true,
		IncludeCategories:  true,
		IncludePageInfo:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Physicists"}, res.Categories)
	require.NotNil(t, res.PageInfo)
	assert.Equal(t, 12345, res.PageInfo.Length)
	assert.Equal(t, "2024-05-06T07:08:09Z", res.PageInfo.LastModified)
	assert.Equal(t, int64(736), res.PageInfo.PageID)
	assert.Contains(t, res.FullContent, "== Career ==")
}

func Test_PageInfoTool_CategoriesRequestedButAbsent(t *testing.T) {
	client := newTestClient(t, missingCategoriesHandler)
	tool, err := wikipedia.NewPageInfoTool(client)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &wikipedia.PageInfoRequest{
		Title:             "Stub",
		IncludeCategories: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Categories, "requested categories come back as an empty list, not null")
	assert.Empty(t, res.Categories)
}

func Test_PageInfoTool_PageNotFound(t *testing.T) {
	client := newTestClient(t, missingPageHandler)
	tool, err := wikipedia.NewPageInfoTool(client)
	require.NoError(t, err)

	res, err := tool.RunMCP(context.Background(), &wikipedia.PageInfoRequest{Title: "No Such Page"})
	require.NoError(t, err)
	f := decodeFailure(t, res)
	assert.Equal(t, string(wiki.KindPageNotFound), f.Error)
	assert.Contains(t, f.Message, "No Such Page")
	assert.False(t, f.Retryable)
}

func missingCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`{
		"query": {
			"pages": {
				"1": {"pageid": 1, "title": "Stub", "extract": "A stub."}
			}
		}
	}`))
}
