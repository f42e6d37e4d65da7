package wiki

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// TruncateSentences returns the first n sentences of text, using Unicode
// sentence-boundary detection (UAX #29) so abbreviations and non-Latin
// scripts are handled correctly. Whitespace between kept sentences is
// preserved as-is. If text has fewer than n sentences, the whole text is
// returned unchanged; no padding, no error.
func TruncateSentences(text string, n int) string {
	if n <= 0 {
		return ""
	}

	var b strings.Builder
	count := 0
	toks := sentences.FromString(text)
	for toks.Next() {
		b.WriteString(toks.Value())
		count++
		if count >= n {
			break
		}
	}
	if count == 0 {
		return text
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

// CountSentences reports the number of UAX #29 sentences in text.
func CountSentences(text string) int {
	count := 0
	toks := sentences.FromString(text)
	for toks.Next() {
		count++
	}
	return count
}
