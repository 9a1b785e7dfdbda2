package wikitext

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MinClaimLength is the shortest cleaned claim, in characters, that is kept.
const MinClaimLength = 10

// contextWindow is the number of raw characters reported around an occurrence.
const contextWindow = 150

// CitationInstance is one resolved use of a footnote.
type CitationInstance struct {
	Claim         string `json:"claim" yaml:"claim"`
	ContextBefore string `json:"contextBefore" yaml:"contextBefore"`
	ContextAfter  string `json:"contextAfter" yaml:"contextAfter"`
}

// ClaimSpan is the prose preceding one occurrence: wikitext[Start:Occurrence.Start].
type ClaimSpan struct {
	Occurrence Occurrence
	Start      int
	Text       string
}

// Resolve returns one CitationInstance per occurrence of id whose cleaned
// claim is at least MinClaimLength characters. An id that never appears yields
// an empty slice and no error.
func Resolve(text string, id FootnoteID) ([]CitationInstance, error) {
	spans, err := Spans(text, id)
	if err != nil {
		return nil, err
	}

	instances := make([]CitationInstance, 0, len(spans))
	for _, span := range spans {
		if utf8.RuneCountInString(span.Text) < MinClaimLength {
			continue
		}
		instances = append(instances, CitationInstance{
			Claim:         span.Text,
			ContextBefore: contextBefore(text, span.Occurrence.Start),
			ContextAfter:  contextAfter(text, span.Occurrence.End),
		})
	}
	return instances, nil
}

// Spans computes the claim span of every occurrence of id, including spans
// whose cleaned text is too short to be reported by Resolve.
func Spans(text string, id FootnoteID) ([]ClaimSpan, error) {
	occurrences, err := Occurrences(text, id)
	if err != nil {
		return nil, err
	}
	if len(occurrences) == 0 {
		return nil, nil
	}

	all := footnoteSpans(text)
	spans := make([]ClaimSpan, 0, len(occurrences))
	for _, occ := range occurrences {
		// all is sorted and non-overlapping, so End grows with the index.
		n := sort.Search(len(all), func(i int) bool { return all[i].End >= occ.Start })
		start := claimStart(text, all[:n], occ.Start)
		spans = append(spans, ClaimSpan{
			Occurrence: occ,
			Start:      start,
			Text:       CleanClaim(text[start:occ.Start]),
		})
	}
	return spans, nil
}

// footnoteSpans returns every footnote-like span in the text, sorted, with
// spans nested in (or overlapping) an earlier span dropped. An {{sfn}} inside
// a <ref> is part of that ref.
func footnoteSpans(text string) []Occurrence {
	raw := landscape(text, len(text)+1)
	out := raw[:0]
	maxEnd := -1
	for _, s := range raw {
		if s.Start < maxEnd {
			continue
		}
		out = append(out, s)
		maxEnd = s.End
	}
	return out
}

// claimStart walks the footnotes preceding pos from nearest to farthest. The
// first one separated from pos by real prose bounds the claim. Footnotes with
// only markup or whitespace in between are stacked on the same claim.
func claimStart(text string, preceding []Occurrence, pos int) int {
	for i := len(preceding) - 1; i >= 0; i-- {
		if !isBlankGap(text[preceding[i].End:pos]) {
			return preceding[i].End
		}
	}
	return markupBoundary(text, pos)
}

// markupBoundary scans backwards from pos for a blank line, a line starting
// with a heading or list marker, or a heading at line start. Offset 0 when
// none is found.
func markupBoundary(text string, pos int) int {
	for i := pos - 1; i >= 0; i-- {
		c := text[i]
		if c == '\n' && i > 0 && text[i-1] == '\n' {
			return i + 1
		}
		if c == '\n' && i < len(text)-1 && strings.IndexByte("=*#:", text[i+1]) >= 0 {
			return i + 1
		}
		if c == '=' && (i == 0 || text[i-1] == '\n') {
			return i
		}
	}
	return 0
}

func contextBefore(text string, pos int) string {
	return strings.TrimSpace(text[runesBefore(text, pos, contextWindow):pos])
}

func contextAfter(text string, pos int) string {
	return strings.TrimSpace(text[pos:runesAfter(text, pos, contextWindow)])
}

// runesBefore returns the offset n characters before pos, or 0.
func runesBefore(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

// runesAfter returns the offset n characters after pos, or len(text).
func runesAfter(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}
