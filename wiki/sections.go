package wiki

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// SplitSections rebuilds the flat section list from a plain-text extract that
// kept its `== Heading ==` markers. The lead text before the first heading is
// always index 0 at level 0, titled with the page title since it has no
// explicit heading. No parent/child tree is materialized: every consumer
// addresses sections by flat index or by title, so the index+level pair is all
// that is needed.
func SplitSections(pageTitle, text string) []Section {
	sections := []Section{{Title: pageTitle, Level: 0, Index: 0}}
	bodies := []*strings.Builder{{}}

	for _, line := range strings.Split(text, "\n") {
		if title, level, ok := parseHeading(line); ok {
			sections = append(sections, Section{
				Title: title,
				Level: level,
				Index: len(sections),
			})
			bodies = append(bodies, &strings.Builder{})
			continue
		}
		b := bodies[len(bodies)-1]
		b.WriteString(line)
		b.WriteByte('\n')
	}

	for i := range sections {
		sections[i].Body = strings.TrimSpace(bodies[i].String())
	}
	return sections
}

// parseHeading recognizes MediaWiki-style heading lines `== Title ==` through
// `====== Title ======`. The reported level is the equals count minus one, so
// top-level article sections come out at level 1 and the lead stays at 0.
func parseHeading(line string) (title string, level int, ok bool) {
	s := strings.TrimSpace(line)
	if len(s) < 5 || !strings.HasPrefix(s, "==") || !strings.HasSuffix(s, "==") {
		return "", 0, false
	}

	lead := 0
	for lead < len(s) && s[lead] == '=' {
		lead++
	}
	trail := 0
	for trail < len(s) && s[len(s)-1-trail] == '=' {
		trail++
	}
	if lead == len(s) {
		// Line is all equals signs, not a heading.
		return "", 0, false
	}

	title = strings.TrimSpace(strings.Trim(s, "="))
	if title == "" {
		return "", 0, false
	}

	depth := lead
	if trail < depth {
		depth = trail
	}
	if depth > 6 {
		depth = 6
	}
	return title, depth - 1, true
}

// ListSections returns the body-less projection of the page's section list,
// meant for large articles where full section content would blow past a
// reasonable response size.
func ListSections(p *Page) []SectionInfo {
	infos := make([]SectionInfo, len(p.Sections))
	for i, s := range p.Sections {
		infos[i] = SectionInfo{Index: s.Index, Title: s.Title, Level: s.Level}
	}
	return infos
}

// ResolveSection resolves a caller-supplied section reference, which is either
// a positional index (any JSON number) or a title string. Title resolution is
// case-insensitive: exact match first, then substring, first match in document
// order. Substring matches are intentionally not disambiguated; first match
// wins to keep the contract simple.
func ResolveSection(p *Page, ref any) (*Section, error) {
	switch v := ref.(type) {
	case int:
		return ResolveSectionIndex(p, v)
	case int64:
		return ResolveSectionIndex(p, int(v))
	case float64:
		if v != float64(int(v)) {
			return nil, errors.Mark(errors.Newf("section index must be an integer, got %v", v), ErrInvalidArguments)
		}
		return ResolveSectionIndex(p, int(v))
	case string:
		return ResolveSectionTitle(p, v)
	default:
		return nil, errors.Mark(errors.Newf("section reference must be a title or an index, got %T", ref), ErrInvalidArguments)
	}
}

// ResolveSectionIndex returns the section at the given flat index.
func ResolveSectionIndex(p *Page, idx int) (*Section, error) {
	if idx < 0 || idx >= len(p.Sections) {
		return nil, errors.Mark(
			errors.Newf("section index %d out of range [0, %d)", idx, len(p.Sections)),
			ErrSectionNotFound)
	}
	return &p.Sections[idx], nil
}

// ResolveSectionTitle returns the first section whose title equals the
// reference case-insensitively, falling back to the first substring match in
// document order.
func ResolveSectionTitle(p *Page, ref string) (*Section, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.Mark(errors.New("empty section reference"), ErrInvalidArguments)
	}

	for i := range p.Sections {
		if strings.EqualFold(p.Sections[i].Title, ref) {
			return &p.Sections[i], nil
		}
	}

	lower := strings.ToLower(ref)
	for i := range p.Sections {
		if strings.Contains(strings.ToLower(p.Sections[i].Title), lower) {
			return &p.Sections[i], nil
		}
	}

	return nil, errors.Mark(
		errors.Newf("no section matching %q in %q", ref, p.Title),
		ErrSectionNotFound)
}
