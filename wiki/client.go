package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/mlziade/librarian/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/mlziade/librarian", "wiki")

const (
	// DefaultUserAgent identifies the client to the Wikimedia API,
	// which rejects anonymous user agents.
	DefaultUserAgent = "librarian/1.0 (https://github.com/mlziade/librarian)"

	// DefaultTimeout bounds every upstream round trip.
	DefaultTimeout = 15 * time.Second

	// DefaultLanguage is the language edition used when a caller does not name
	// one.
	DefaultLanguage = "en"

	// SearchLimit caps search results; upstream order is kept, never re-ranked.
	SearchLimit = 5
)

// Client talks to the MediaWiki action API and the REST v1 summary endpoint
// for any language edition. It holds no mutable state between calls, so one
// Client is safe for concurrent use across transport channels.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	limiter     *Limiter
	defaultLang string
	baseURL     string // test override; empty means https://{lang}.wikipedia.org
}

// NewClient creates a client with the default timeout, user agent and
// language edition.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		defaultLang: DefaultLanguage,
	}
}

// WithHTTPClient sets the HTTP client, typically to adjust the timeout.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithUserAgent sets the User-Agent header sent upstream.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithLimiter installs a rate limiter guarding all upstream calls.
func (c *Client) WithLimiter(l *Limiter) *Client {
	c.limiter = l
	return c
}

// WithDefaultLanguage sets the language edition used when a caller does not
// name one.
func (c *Client) WithDefaultLanguage(lang string) *Client {
	if lang != "" {
		c.defaultLang = lang
	}
	return c
}

// Language resolves an optional caller override against the configured
// default edition.
func (c *Client) Language(lang string) string {
	if lang == "" {
		return c.defaultLang
	}
	return lang
}

// WithBaseURL overrides the per-language host, used by tests to point at a
// local stub server.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *Client) actionURL(language string) string {
	if c.baseURL != "" {
		return c.baseURL + "/w/api.php"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", language)
}

func (c *Client) restURL(language string) string {
	if c.baseURL != "" {
		return c.baseURL + "/api/rest_v1"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/api/rest_v1", language)
}

// get performs one upstream round trip and decodes the JSON body into out.
// A 404 is marked ErrNotFound; any transport failure, timeout or non-2xx
// status is marked ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, op, language, rawURL string, out any) error {
	if c.limiter != nil && !c.limiter.Allow() {
		metricskey.StatsWikipediaThrottled.IncrCounter(1, op)
		return errors.Mark(
			errors.New("upstream rate limit exceeded, retry later"),
			ErrUpstreamUnavailable)
	}

	started := time.Now()
	defer metricskey.PerfWikipediaCall.MeasureSince(started, op)
	metricskey.StatsWikipediaCalls.IncrCounter(1, op, language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metricskey.StatsWikipediaCallsFailed.IncrCounter(1, op, language)
		logger.ContextKV(ctx, xlog.ERROR, "url", rawURL, "err", err.Error())
		return errors.Mark(errors.Wrap(err, "upstream request failed"), ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Mark(errors.New("upstream resource not found"), ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metricskey.StatsWikipediaCallsFailed.IncrCounter(1, op, language)
		return errors.Mark(
			errors.Newf("upstream returned status %d", resp.StatusCode),
			ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metricskey.StatsWikipediaCallsFailed.IncrCounter(1, op, language)
		return errors.Mark(errors.Wrap(err, "failed to decode upstream response"), ErrUpstreamUnavailable)
	}
	return nil
}

type searchResponse struct {
	Query struct {
		SearchInfo struct {
			TotalHits  int    `json:"totalhits"`
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title     string `json:"title"`
			Snippet   string `json:"snippet"`
			Size      int    `json:"size"`
			WordCount int    `json:"wordcount"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
}

// snippetCleaner strips the HTML search-match markup upstream embeds in
// snippets so results are plain text.
var snippetCleaner = strings.NewReplacer(
	`<span class="searchmatch">`, "",
	`</span>`, "",
)

// Search returns up to SearchLimit hits for the query in the given language
// edition, preserving upstream relevance order, together with the upstream
// match total and spelling suggestion. Zero hits is a valid outcome and
// returns an empty hit list, not an error, so callers can distinguish
// "no results" from "tool broken".
func (c *Client) Search(ctx context.Context, query, language string) (*SearchResults, error) {
	params := url.Values{
		"action":   []string{"query"},
		"format":   []string{"json"},
		"list":     []string{"search"},
		"srsearch": []string{query},
		"srlimit":  []string{strconv.Itoa(SearchLimit)},
		"srprop":   []string{"snippet|size|wordcount|timestamp"},
	}

	var res searchResponse
	if err := c.get(ctx, "search", language, c.actionURL(language)+"?"+params.Encode(), &res); err != nil {
		return nil, errors.WithMessagef(err, "search %q", query)
	}

	raw := res.Query.Search
	if len(raw) > SearchLimit {
		raw = raw[:SearchLimit]
	}

	hits := make([]SearchHit, 0, len(raw))
	for i, r := range raw {
		hits = append(hits, SearchHit{
			Title:     r.Title,
			Language:  language,
			Snippet:   snippetCleaner.Replace(r.Snippet),
			Rank:      i,
			WordCount: r.WordCount,
			Size:      r.Size,
			Timestamp: r.Timestamp,
		})
	}
	return &SearchResults{
		Hits:       hits,
		TotalHits:  res.Query.SearchInfo.TotalHits,
		Suggestion: res.Query.SearchInfo.Suggestion,
	}, nil
}

type queryResponse struct {
	Query struct {
		Normalized []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"normalized"`
		Pages map[string]pageData `json:"pages"`
	} `json:"query"`
}

type pageData struct {
	PageID     int64  `json:"pageid"`
	Title      string `json:"title"`
	Extract    string `json:"extract"`
	Length     int    `json:"length"`
	Touched    string `json:"touched"`
	Canonical  string `json:"canonicalurl"`
	Categories []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Links []struct {
		Title string `json:"title"`
	} `json:"links"`
}

// missingPageKey is the sentinel key the action API uses for titles that do
// not resolve to any page.
const missingPageKey = "-1"

// FetchPage retrieves the whole article in one round trip: plain-text extract
// with section markers, categories and outbound links. Section-specific tools
// slice the returned Page locally instead of issuing per-section calls.
// Disambiguation pages are returned as-is; the caller is expected to re-query
// with a more specific title.
func (c *Client) FetchPage(ctx context.Context, title, language string) (*Page, error) {
	params := url.Values{
		"action":          []string{"query"},
		"format":          []string{"json"},
		"titles":          []string{title},
		"redirects":       []string{"1"},
		"prop":            []string{"extracts|categories|links|info"},
		"explaintext":     []string{"1"},
		"exsectionformat": []string{"wiki"},
		"cllimit":         []string{"max"},
		"pllimit":         []string{"max"},
		"plnamespace":     []string{"0"},
		"inprop":          []string{"url|length|touched"},
	}

	var res queryResponse
	if err := c.get(ctx, "fetch_page", language, c.actionURL(language)+"?"+params.Encode(), &res); err != nil {
		return nil, errors.WithMessagef(err, "fetch page %q", title)
	}

	pd, ok := findPage(res.Query.Pages)
	if !ok {
		msg := fmt.Sprintf("page %q does not exist on %s.wikipedia.org", title, language)
		if s := closestTitle(res, title); s != "" {
			msg += fmt.Sprintf(" (closest match: %q)", s)
		}
		return nil, errors.Mark(errors.New(msg), ErrPageNotFound)
	}

	p := &Page{
		Title:    pd.Title,
		Language: language,
		Text:     pd.Extract,
		Info: PageInfo{
			PageID:       pd.PageID,
			Length:       pd.Length,
			Touched:      pd.Touched,
			CanonicalURL: pd.Canonical,
		},
	}
	for _, cat := range pd.Categories {
		p.Categories = append(p.Categories, strings.TrimPrefix(cat.Title, "Category:"))
	}
	for _, l := range pd.Links {
		p.Links = append(p.Links, l.Title)
	}
	p.Sections = SplitSections(p.Title, p.Text)

	logger.ContextKV(ctx, xlog.DEBUG,
		"page", p.Title,
		"language", language,
		"sections", len(p.Sections),
	)
	return p, nil
}

// FetchPageInfo retrieves page metadata (length, last modified, page id,
// canonical URL) in one round trip.
func (c *Client) FetchPageInfo(ctx context.Context, title, language string) (*PageInfo, error) {
	params := url.Values{
		"action":    []string{"query"},
		"format":    []string{"json"},
		"titles":    []string{title},
		"redirects": []string{"1"},
		"prop":      []string{"info"},
		"inprop":    []string{"url|displaytitle|length|touched"},
	}

	var res queryResponse
	if err := c.get(ctx, "fetch_page_info", language, c.actionURL(language)+"?"+params.Encode(), &res); err != nil {
		return nil, errors.WithMessagef(err, "fetch page info %q", title)
	}

	pd, ok := findPage(res.Query.Pages)
	if !ok {
		return nil, errors.Mark(
			errors.Newf("page %q does not exist on %s.wikipedia.org", title, language),
			ErrPageNotFound)
	}
	return &PageInfo{
		PageID:       pd.PageID,
		Length:       pd.Length,
		Touched:      pd.Touched,
		CanonicalURL: pd.Canonical,
	}, nil
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// FetchSummary retrieves the article lead via the REST summary endpoint and
// truncates the extract to the first `sentenceCount` sentences on Unicode
// sentence boundaries. A lead shorter than requested is returned whole.
func (c *Client) FetchSummary(ctx context.Context, title, language string, sentenceCount int) (*Summary, error) {
	if sentenceCount < 1 {
		return nil, errors.Mark(
			errors.Newf("sentences must be >= 1, got %d", sentenceCount),
			ErrInvalidArguments)
	}

	escaped := url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var res summaryResponse
	err := c.get(ctx, "fetch_summary", language, c.restURL(language)+"/page/summary/"+escaped, &res)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Mark(
				errors.Newf("page %q does not exist on %s.wikipedia.org", title, language),
				ErrPageNotFound)
		}
		return nil, errors.WithMessagef(err, "fetch summary %q", title)
	}

	return &Summary{
		Title:       res.Title,
		Extract:     TruncateSentences(res.Extract, sentenceCount),
		Description: res.Description,
		Type:        res.Type,
	}, nil
}

// PageExists reports whether the title resolves to an article.
func (c *Client) PageExists(ctx context.Context, title, language string) (bool, error) {
	params := url.Values{
		"action":    []string{"query"},
		"format":    []string{"json"},
		"titles":    []string{title},
		"redirects": []string{"1"},
	}

	var res queryResponse
	if err := c.get(ctx, "page_exists", language, c.actionURL(language)+"?"+params.Encode(), &res); err != nil {
		return false, errors.WithMessagef(err, "check page %q", title)
	}
	_, ok := findPage(res.Query.Pages)
	return ok, nil
}

// RandomPages returns up to count random article titles.
func (c *Client) RandomPages(ctx context.Context, language string, count int) ([]string, error) {
	params := url.Values{
		"action":      []string{"query"},
		"format":      []string{"json"},
		"list":        []string{"random"},
		"rnlimit":     []string{strconv.Itoa(count)},
		"rnnamespace": []string{"0"},
	}

	var res struct {
		Query struct {
			Random []struct {
				Title string `json:"title"`
			} `json:"random"`
		} `json:"query"`
	}
	if err := c.get(ctx, "random", language, c.actionURL(language)+"?"+params.Encode(), &res); err != nil {
		return nil, errors.WithMessage(err, "fetch random pages")
	}

	titles := make([]string, 0, len(res.Query.Random))
	for _, r := range res.Query.Random {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// findPage returns the single page entry from an action API response,
// skipping the "-1" sentinel used for missing titles.
func findPage(pages map[string]pageData) (pageData, bool) {
	for key, pd := range pages {
		if key != missingPageKey {
			return pd, true
		}
	}
	return pageData{}, false
}

// closestTitle surfaces the best upstream hint for a mistyped title: the
// normalization target if the API reported one. It is reported in the error
// detail, never auto-followed.
func closestTitle(res queryResponse, title string) string {
	for _, n := range res.Query.Normalized {
		if n.From == title && n.To != title {
			return n.To
		}
	}
	return ""
}
