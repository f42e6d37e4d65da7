package wiki_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlziade/librarian/wiki"
)

func newStubServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *wiki.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := wiki.NewClient().WithBaseURL(srv.URL)
	return srv, client
}

func Test_Search(t *testing.T) {
	var gotQuery string
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("srsearch")
		assert.Equal(t, "search", r.URL.Query().Get("list"))
		_, _ = w.Write([]byte(`{
			"query": {
				"searchinfo": {"totalhits": 27, "suggestion": "golang tutorial"},
				"search": [
					{"title": "Go (programming language)", "snippet": "<span class=\"searchmatch\">Go</span> is a language", "size": 100, "wordcount": 400, "timestamp": "2024-01-02T03:04:05Z"},
					{"title": "Goroutine", "snippet": "lightweight thread", "size": 50, "wordcount": 120, "timestamp": "2024-02-03T04:05:06Z"}
				]
			}
		}`))
	})

	found, err := client.Search(context.Background(), "golang", "en")
	require.NoError(t, err)
	assert.Equal(t, "golang", gotQuery)
	require.Len(t, found.Hits, 2)
	assert.Equal(t, 27, found.TotalHits, "upstream match total rides along")
	assert.Equal(t, "golang tutorial", found.Suggestion)

	hits := found.Hits
	assert.Equal(t, "Go (programming language)", hits[0].Title)
	assert.Equal(t, "Go is a language", hits[0].Snippet, "search-match markup must be stripped")
	assert.Equal(t, 0, hits[0].Rank)
	assert.Equal(t, 400, hits[0].WordCount)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", hits[0].URL())

	assert.Equal(t, "Goroutine", hits[1].Title)
	assert.Equal(t, 1, hits[1].Rank)
}

func Test_Search_NoHits(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"query": {"searchinfo": {"totalhits": 0}, "search": []}}`))
	})

	found, err := client.Search(context.Background(), "qwxzvy nonsense", "en")
	require.NoError(t, err, "zero hits is a valid outcome, not an error")
	assert.Empty(t, found.Hits)
	assert.Zero(t, found.TotalHits)
}

func Test_Search_UpstreamError(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "golang", "en")
	require.Error(t, err)
	assert.Equal(t, wiki.KindUpstreamUnavailable, wiki.KindOf(err))
	assert.True(t, wiki.Retryable(err))
}

func Test_FetchPage(t *testing.T) {
	calls := 0
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		assert.Equal(t, "extracts|categories|links|info", q.Get("prop"))
		_, _ = w.Write([]byte(`{
			"query": {
				"pages": {
					"736": {
						"pageid": 736,
						"title": "Albert Einstein",
						"extract": "Albert Einstein was a physicist.\n== Early life ==\nBorn in Ulm.\n== Career ==\nPatent office.",
						"length": 12345,
						"touched": "2024-05-06T07:08:09Z",
						"canonicalurl": "https://en.wikipedia.org/wiki/Albert_Einstein",
						"categories": [{"title": "Category:Physicists"}, {"title": "Category:Nobel laureates"}],
						"links": [{"title": "Ulm"}, {"title": "Photon"}]
					}
				}
			}
		}`))
	})

	page, err := client.FetchPage(context.Background(), "Albert Einstein", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "everything must come from one round trip")

	assert.Equal(t, "Albert Einstein", page.Title)
	assert.Equal(t, "en", page.Language)
	assert.Equal(t, []string{"Physicists", "Nobel laureates"}, page.Categories)
	assert.Equal(t, []string{"Ulm", "Photon"}, page.Links)
	assert.Equal(t, int64(736), page.Info.PageID)
	assert.Equal(t, 12345, page.Info.Length)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Albert_Einstein", page.Info.CanonicalURL)

	require.Len(t, page.Sections, 3)
	assert.Equal(t, "Albert Einstein", page.Sections[0].Title)
	assert.Equal(t, 0, page.Sections[0].Level)
	assert.Equal(t, "Albert Einstein was a physicist.", page.Sections[0].Body)
	assert.Equal(t, "Early life", page.Sections[1].Title)
	assert.Equal(t, "Born in Ulm.", page.Sections[1].Body)
	assert.Equal(t, "Career", page.Sections[2].Title)
}

func Test_FetchPage_NotFound(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"query": {
				"normalized": [{"from": "albert einstein", "to": "Albert einstein"}],
				"pages": {"-1": {"title": "albert einstein"}}
			}
		}`))
	})

	_, err := client.FetchPage(context.Background(), "albert einstein", "en")
	require.Error(t, err)
	assert.Equal(t, wiki.KindPageNotFound, wiki.KindOf(err))
	assert.Contains(t, err.Error(), `closest match: "Albert einstein"`)
	assert.False(t, wiki.Retryable(err))
}

func Test_FetchPageInfo(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"query": {
				"pages": {
					"42": {
						"pageid": 42,
						"title": "Douglas Adams",
						"length": 777,
						"touched": "2024-03-04T05:06:07Z",
						"canonicalurl": "https://en.wikipedia.org/wiki/Douglas_Adams"
					}
				}
			}
		}`))
	})

	info, err := client.FetchPageInfo(context.Background(), "Douglas Adams", "en")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.PageID)
	assert.Equal(t, 777, info.Length)
	assert.Equal(t, "2024-03-04T05:06:07Z", info.Touched)
}

func Test_FetchSummary(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rest_v1/page/summary/Marie_Curie", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"title": "Marie Curie",
			"extract": "Marie Curie was a physicist. She discovered polonium. She won two Nobel prizes.",
			"description": "Polish-French physicist",
			"type": "standard"
		}`))
	})

	summary, err := client.FetchSummary(context.Background(), "Marie Curie", "en", 2)
	require.NoError(t, err)
	assert.Equal(t, "Marie Curie", summary.Title)
	assert.Equal(t, "Marie Curie was a physicist. She discovered polonium.", summary.Extract)
	assert.Equal(t, "Polish-French physicist", summary.Description)
}

func Test_FetchSummary_NotFound(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchSummary(context.Background(), "No Such Page", "en", 3)
	require.Error(t, err)
	assert.Equal(t, wiki.KindPageNotFound, wiki.KindOf(err))
}

func Test_FetchSummary_InvalidSentences(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no upstream call expected for invalid arguments")
	})

	_, err := client.FetchSummary(context.Background(), "Marie Curie", "en", 0)
	require.Error(t, err)
	assert.Equal(t, wiki.KindInvalidArguments, wiki.KindOf(err))
}

func Test_PageExists(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("titles")
		if title == "Albert Einstein" {
			_, _ = w.Write([]byte(`{"query": {"pages": {"736": {"pageid": 736, "title": "Albert Einstein"}}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"query": {"pages": {"-1": {"title": "` + title + `"}}}}`))
	})

	exists, err := client.PageExists(context.Background(), "Albert Einstein", "en")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.PageExists(context.Background(), "No Such Page Xyz", "en")
	require.NoError(t, err)
	assert.False(t, exists)
}

func Test_RandomPages(t *testing.T) {
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("rnlimit"))
		_, _ = w.Write([]byte(`{"query": {"random": [{"title": "A"}, {"title": "B"}, {"title": "C"}]}}`))
	})

	titles, err := client.RandomPages(context.Background(), "en", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

func Test_RateLimitRejection(t *testing.T) {
	calls := 0
	_, client := newStubServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"query": {"search": []}}`))
	})
	client.WithLimiter(wiki.NewLimiter(1, 0.0001))

	_, err := client.Search(context.Background(), "first", "en")
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "second", "en")
	require.Error(t, err)
	assert.Equal(t, wiki.KindUpstreamUnavailable, wiki.KindOf(err))
	assert.True(t, wiki.Retryable(err))
	assert.Equal(t, 1, calls, "rejected calls must not reach upstream")
}
