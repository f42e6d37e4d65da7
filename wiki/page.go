package wiki

import (
	"fmt"
	"strings"
)

// Page is one encyclopedia article in one language edition, built fresh from
// an upstream response for each invocation and discarded afterwards.
type Page struct {
	// Title is the canonical article title after redirect/normalization.
	Title string `json:"title"`
	// Language is the Wikipedia language code, e.g. "en".
	Language string `json:"language"`
	// Text is the raw plain-text extract with `== Heading ==` markers kept,
	// so sections can be sliced locally without extra round trips.
	Text string `json:"text"`
	// Sections is the ordered flat section list, index 0 being the lead.
	Sections []Section `json:"sections"`
	// Categories are the page category labels, without the namespace prefix.
	Categories []string `json:"categories,omitempty"`
	// Links are the outbound article links (the hyperlinked words).
	Links []string `json:"links,omitempty"`
	// Info is the page metadata that rides along on the same query.
	Info PageInfo `json:"info"`
}

// URL returns the canonical article URL for the page's language edition.
func (p *Page) URL() string {
	return PageURL(p.Title, p.Language)
}

// PageURL builds the canonical article URL for a title in a language edition.
func PageURL(title, language string) string {
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", language, strings.ReplaceAll(title, " ", "_"))
}

// SearchHit is one candidate result from a title/content search.
// Rank positions are contiguous from 0 and preserve upstream relevance order.
type SearchHit struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Snippet  string `json:"snippet"`
	Rank     int    `json:"rank"`

	WordCount int    `json:"word_count,omitempty"`
	Size      int    `json:"size,omitempty"`
	Timestamp string `json:"last_modified,omitempty"`
}

// URL returns the article URL for the hit.
func (h *SearchHit) URL() string {
	return PageURL(h.Title, h.Language)
}

// SearchResults is one search response: the returned hits plus the
// upstream-reported match total and spelling suggestion, when any.
type SearchResults struct {
	Hits []SearchHit `json:"hits"`
	// TotalHits is the number of matches upstream knows about, which can
	// exceed the number of hits returned.
	TotalHits int `json:"total_hits"`
	// Suggestion is the upstream "did you mean" rewrite of the query.
	Suggestion string `json:"suggestion,omitempty"`
}

// Section is one node in a page's flat section list. Indices are stable for a
// given Page instance only; the upstream document can change between fetches.
type Section struct {
	// Title is the section heading; for the lead section it is the page title.
	Title string `json:"title"`
	// Level is the nesting level, 0 for the lead.
	Level int `json:"level"`
	// Index is the 0-based position in document order across the flat list.
	Index int `json:"index"`
	// Body is the section's plain text without the heading line.
	Body string `json:"body"`
}

// SectionInfo is the body-less projection of a Section used for listings.
type SectionInfo struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// PageInfo carries page metadata from the action API info query.
type PageInfo struct {
	PageID       int64  `json:"page_id"`
	Length       int    `json:"length"`
	Touched      string `json:"last_modified"`
	CanonicalURL string `json:"canonical_url"`
}

// Summary is the article lead as served by the REST summary endpoint.
type Summary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}
