// Package wikitext locates footnotes in raw wiki markup and resolves the prose
// each footnote supports.
//
// Everything in this package is a pure function over an immutable string. No
// state is shared between calls, so callers may resolve different articles or
// footnotes concurrently without coordination.
package wikitext

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingMarkup is returned when an unnamed footnote is resolved without the
// literal markup captured when the catalog was built.
var ErrMissingMarkup = errors.New("unnamed footnote requires its original markup")

// unnamedPrefix is the string form used for unnamed footnotes.
const unnamedPrefix = "__unnamed_"

// FootnoteID identifies one footnote. It is one of Named, Unnamed or ShortForm.
type FootnoteID interface {
	// String returns the identifier used by the CLI and in JSON output.
	String() string
	isFootnoteID()
}

// Named matches <ref name="Name">…</ref> and <ref name="Name" />.
type Named struct {
	Name string
}

// Unnamed is the Ordinal-th unnamed <ref>…</ref> in document order. Markup is
// the exact source text and is the only way to find it again.
type Unnamed struct {
	Ordinal int
	Markup  string
}

// ShortForm is a literal {{sfn|…}} template. The text is its own identifier.
type ShortForm struct {
	Template string
}

func (Named) isFootnoteID()     {}
func (Unnamed) isFootnoteID()   {}
func (ShortForm) isFootnoteID() {}

func (n Named) String() string     { return n.Name }
func (u Unnamed) String() string   { return unnamedPrefix + strconv.Itoa(u.Ordinal) }
func (s ShortForm) String() string { return s.Template }

// ParseFootnoteID converts the string form of an identifier back into a
// FootnoteID. markup is required for unnamed identifiers.
func ParseFootnoteID(s, markup string) (FootnoteID, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty footnote identifier")
	case strings.HasPrefix(strings.ToLower(s), "{{sfn"):
		return ShortForm{Template: s}, nil
	case strings.HasPrefix(s, unnamedPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(s, unnamedPrefix))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid unnamed footnote identifier %q", s)
		}
		if markup == "" {
			return nil, fmt.Errorf("%s: %w", s, ErrMissingMarkup)
		}
		return Unnamed{Ordinal: n, Markup: markup}, nil
	default:
		return Named{Name: s}, nil
	}
}

// Occurrence is the byte span [Start, End) of one footnote in the wikitext.
type Occurrence struct {
	Start int
	End   int
}

// Footnote pairs an identifier with one place it appears.
type Footnote struct {
	ID         FootnoteID
	Occurrence Occurrence
	// Markup is the matched source text of this occurrence.
	Markup string
	// SelfClosing is set for <ref name="X" /> reuses.
	SelfClosing bool
}

// Kind returns "sfn" for short-form citations and "ref" for everything else.
func (f Footnote) Kind() string {
	if _, ok := f.ID.(ShortForm); ok {
		return KindSfn
	}
	return KindRef
}

// Kinds reported in the catalog.
const (
	KindRef = "ref"
	KindSfn = "sfn"
)

// Footnote patterns. Names may be bare or quoted; quoted names may contain
// spaces. Group 1, 2 or 3 holds the name depending on the quoting.
var (
	namedPairedRe = regexp.MustCompile(`(?i)<ref\s+name\s*=\s*(?:"([^"]+)"|'([^']+)'|([^"'\s>/]+))\s*>([\s\S]*?)</ref>`)
	namedSelfRe   = regexp.MustCompile(`(?i)<ref\s+name\s*=\s*(?:"([^"]+)"|'([^']+)'|([^"'\s>/]+))\s*/>`)

	// unnamedRe matches any paired ref. Candidates whose attributes start with
	// name= or end with a self-closing slash are rejected by scanUnnamed.
	unnamedRe     = regexp.MustCompile(`(?i)<ref(\s[^>]*)?>([\s\S]*?)</ref>`)
	unnamedNameRe = regexp.MustCompile(`(?i)^\s+name`)

	sfnRe = regexp.MustCompile(`(?i)\{\{sfn\|[^}]+\}\}`)

	// Landscape patterns: any footnote regardless of identity.
	anyRefRe = regexp.MustCompile(`(?i)<ref[^>]*/>|<ref[^>]*>[\s\S]*?</ref>`)
	anySfnRe = regexp.MustCompile(`(?i)\{\{sfn[^}]*\}\}`)
)

// captureName returns the first non-empty name group of a named-ref match.
func captureName(text string, loc []int) string {
	for g := 1; g <= 3; g++ {
		if loc[2*g] >= 0 {
			return strings.TrimSpace(text[loc[2*g]:loc[2*g+1]])
		}
	}
	return ""
}

func scanNamedPaired(text string) []Footnote {
	var out []Footnote
	for _, loc := range namedPairedRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Footnote{
			ID:         Named{Name: captureName(text, loc)},
			Occurrence: Occurrence{Start: loc[0], End: loc[1]},
			Markup:     text[loc[0]:loc[1]],
		})
	}
	return out
}

func scanNamedSelfClosing(text string) []Footnote {
	var out []Footnote
	for _, loc := range namedSelfRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Footnote{
			ID:          Named{Name: captureName(text, loc)},
			Occurrence:  Occurrence{Start: loc[0], End: loc[1]},
			Markup:      text[loc[0]:loc[1]],
			SelfClosing: true,
		})
	}
	return out
}

// scanUnnamed finds paired refs without a name attribute. A rejected candidate
// restarts the search just past its "<ref" so a later unnamed ref swallowed by
// the candidate is still found.
func scanUnnamed(text string) []Footnote {
	var out []Footnote
	ordinal := 0
	pos := 0
	for pos < len(text) {
		loc := unnamedRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		attrs := ""
		if loc[2] >= 0 {
			attrs = text[pos+loc[2] : pos+loc[3]]
		}
		if unnamedNameRe.MatchString(attrs) || strings.HasSuffix(strings.TrimSpace(attrs), "/") {
			pos = start + len("<ref")
			continue
		}
		ordinal++
		markup := text[start:end]
		out = append(out, Footnote{
			ID:         Unnamed{Ordinal: ordinal, Markup: markup},
			Occurrence: Occurrence{Start: start, End: end},
			Markup:     markup,
		})
		pos = end
	}
	return out
}

func scanShortForm(text string) []Footnote {
	var out []Footnote
	for _, loc := range sfnRe.FindAllStringIndex(text, -1) {
		tpl := text[loc[0]:loc[1]]
		out = append(out, Footnote{
			ID:         ShortForm{Template: tpl},
			Occurrence: Occurrence{Start: loc[0], End: loc[1]},
			Markup:     tpl,
		})
	}
	return out
}

// Scan runs the four pattern passes and returns every footnote occurrence in
// document order. Self-closing uses of a name already defined with content are
// included; they are occurrences even though they carry no content.
func Scan(text string) []Footnote {
	var all []Footnote
	all = append(all, scanNamedPaired(text)...)
	all = append(all, scanNamedSelfClosing(text)...)
	all = append(all, scanUnnamed(text)...)
	all = append(all, scanShortForm(text)...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Occurrence.Start < all[j].Occurrence.Start
	})
	return all
}

// landscape returns every footnote-like span ending strictly before pos,
// sorted by start offset.
func landscape(text string, pos int) []Occurrence {
	var spans []Occurrence
	for _, re := range []*regexp.Regexp{anyRefRe, anySfnRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[1] < pos {
				spans = append(spans, Occurrence{Start: loc[0], End: loc[1]})
			}
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// occurrencePattern builds the regexp that re-locates id in the wikitext.
func occurrencePattern(id FootnoteID) (*regexp.Regexp, error) {
	switch v := id.(type) {
	case Named:
		name := regexp.QuoteMeta(v.Name)
		return regexp.Compile(`(?i)<ref\s+name\s*=\s*["']?` + name + `["']?\s*(?:>[\s\S]*?</ref>|/?>)`)
	case Unnamed:
		if v.Markup == "" {
			return nil, fmt.Errorf("%s: %w", v, ErrMissingMarkup)
		}
		return regexp.Compile(`(?i)` + regexp.QuoteMeta(v.Markup))
	case ShortForm:
		return regexp.Compile(`(?i)` + regexp.QuoteMeta(v.Template))
	default:
		return nil, fmt.Errorf("unsupported footnote identifier %T", id)
	}
}

// Occurrences returns every span where id appears, in document order.
func Occurrences(text string, id FootnoteID) ([]Occurrence, error) {
	re, err := occurrencePattern(id)
	if err != nil {
		return nil, err
	}
	var out []Occurrence
	for _, loc := range re.FindAllStringIndex(text, -1) {
		out = append(out, Occurrence{Start: loc[0], End: loc[1]})
	}
	return out, nil
}
