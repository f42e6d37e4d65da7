package wiki

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for the stable error vocabulary surfaced to tool callers.
// Wrapped errors keep their sentinel via errors.Mark, so callers classify with
// errors.Is or KindOf regardless of how much context was added on the way up.
var (
	// ErrInvalidArguments indicates the caller-supplied parameters failed
	// schema validation. Raised before any network call is made.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPageNotFound indicates the title does not resolve to any article.
	ErrPageNotFound = errors.New("page not found")

	// ErrSectionNotFound indicates a section reference matched nothing,
	// or an index was out of range.
	ErrSectionNotFound = errors.New("section not found")

	// ErrNotFound indicates upstream reported the requested resource
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable indicates a network failure or timeout reaching
	// the upstream API. The client performs no retries; the caller may.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Kind is the wire-level error kind reported in tool failure payloads.
type Kind string

const (
	KindNone                Kind = ""
	KindInvalidArguments    Kind = "InvalidArguments"
	KindUnknownTool         Kind = "UnknownTool"
	KindMalformedRequest    Kind = "MalformedRequest"
	KindPageNotFound        Kind = "PageNotFound"
	KindSectionNotFound     Kind = "SectionNotFound"
	KindNotFound            Kind = "NotFound"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindInternal            Kind = "Internal"
)

// KindOf classifies an error into the stable vocabulary.
// Unrecognized errors are reported as Internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, ErrPageNotFound):
		return KindPageNotFound
	case errors.Is(err, ErrSectionNotFound):
		return KindSectionNotFound
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may reasonably retry the operation.
// Only upstream availability problems are retryable; validation and
// not-found outcomes are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
