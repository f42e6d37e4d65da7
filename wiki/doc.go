// Package wiki provides a read-only client for the MediaWiki action API and the
// REST v1 summary endpoint, plus the domain objects (Page, SearchHit, Section)
// that the Librarian tools operate on. The client is stateless: every call maps
// to exactly one upstream round trip and nothing is cached between calls.
package wiki
