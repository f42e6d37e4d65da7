package resources

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp"
	"github.com/mlziade/librarian/schema"
	"github.com/mlziade/librarian/tools/wikipedia"
)

// SearchResultSchemaURI identifies the JSON schema of the search tool output.
const SearchResultSchemaURI = "wikipedia://schema/search-result"

// LanguagesURI identifies the supported language code list.
const LanguagesURI = "wikipedia://languages"

// languages maps supported Wikipedia language codes to their English names.
var languages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"tr": "Turkish",
	"pl": "Polish",
	"nl": "Dutch",
	"sv": "Swedish",
	"da": "Danish",
	"no": "Norwegian",
	"fi": "Finnish",
	"he": "Hebrew",
	"th": "Thai",
	"vi": "Vietnamese",
	"uk": "Ukrainian",
	"cs": "Czech",
	"hu": "Hungarian",
	"ro": "Romanian",
	"el": "Greek",
	"id": "Indonesian",
	"ms": "Malay",
	"bn": "Bengali",
	"fa": "Persian",
	"ca": "Catalan",
	"sr": "Serbian",
	"bg": "Bulgarian",
	"hr": "Croatian",
	"sk": "Slovak",
	"sl": "Slovenian",
	"et": "Estonian",
	"lv": "Latvian",
	"lt": "Lithuanian",
}

// RegisterResources adds the static resources to the server. The search
// result schema is derived from the tool's output type, so it cannot drift
// from what the tool actually returns.
func RegisterResources(s *mcp.Server) error {
	sc, err := schema.New(reflect.TypeOf(wikipedia.SearchResult{}))
	if err != nil {
		return errors.Wrap(err, "failed to derive search result schema")
	}
	searchSchema, err := json.MarshalIndent(sc.Parameters, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal search result schema")
	}

	err = s.RegisterResource(
		SearchResultSchemaURI,
		"Wikipedia Search Result Schema",
		"JSON schema for Wikipedia search results returned by search_wikipedia_pages",
		"application/json",
		staticResource(SearchResultSchemaURI, string(searchSchema)))
	if err != nil {
		return err
	}

	langJSON, err := json.MarshalIndent(languages, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal language list")
	}
	return s.RegisterResource(
		LanguagesURI,
		"Wikipedia Language Codes",
		"List of supported Wikipedia language codes and their names",
		"application/json",
		staticResource(LanguagesURI, string(langJSON)))
}

func staticResource(uri, text string) func() (*mcp.ResourceResponse, error) {
	return func() (*mcp.ResourceResponse, error) {
		return mcp.NewResourceResponse(
			mcp.NewTextEmbeddedResource(uri, text, "application/json")), nil
	}
}
