package wikitext

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	archiveURLRe = regexp.MustCompile(`(?i)archive-url\s*=\s*([^|}\s]+)`)
	paramURLRe   = regexp.MustCompile(`(?i)(?:^|[|{}\s])url\s*=\s*([^|}\s]+)`)
	bareURLRe    = regexp.MustCompile("(?i)https?://[^\\s<>\"|{}\\\\^`\\[\\]]+")
)

// ExtractURL returns the most useful fetchable URL in a footnote's markup. An
// archive snapshot wins over the live url= parameter, which wins over a bare
// link. The second result is false when the markup carries no URL.
func ExtractURL(markup string) (string, bool) {
	if m := archiveURLRe.FindStringSubmatch(markup); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := paramURLRe.FindStringSubmatch(markup); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := bareURLRe.FindString(markup); m != "" {
		return strings.TrimSpace(m), true
	}
	return "", false
}

// MarkupFor returns the content-bearing markup of id: the first paired
// definition of a named ref, the literal markup of an unnamed ref, or the
// template text of a short-form citation. The second result is false when a
// named ref is only ever used self-closing or does not appear at all.
func MarkupFor(text string, id FootnoteID) (string, bool, error) {
	switch v := id.(type) {
	case Named:
		for _, f := range scanNamedPaired(text) {
			if f.ID.(Named).Name == v.Name {
				return f.Markup, true, nil
			}
		}
		return "", false, nil
	case Unnamed:
		if v.Markup == "" {
			return "", false, fmt.Errorf("%s: %w", v, ErrMissingMarkup)
		}
		return v.Markup, strings.Contains(text, v.Markup), nil
	case ShortForm:
		return v.Template, strings.Contains(strings.ToLower(text), strings.ToLower(v.Template)), nil
	default:
		return "", false, fmt.Errorf("unsupported footnote identifier %T", id)
	}
}
