package wikitext

import (
	"regexp"
	"strings"
)

var (
	pairedRefRe     = regexp.MustCompile(`(?i)<ref[^>]*>[\s\S]*?</ref>`)
	selfClosingRe   = regexp.MustCompile(`(?i)<ref[^>]*/>`)
	strayRefTagRe   = regexp.MustCompile(`(?i)</?ref[^>]*>`)
	templateRe      = regexp.MustCompile(`\{\{[^}]*\}\}`)
	wikiLinkRe      = regexp.MustCompile(`\[\[([^\]|]+)\|?([^\]]*)\]\]`)
	quoteRunRe      = regexp.MustCompile(`'{2,}`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// replaceWikiLinks rewrites [[target|label]] to label and [[target]] to target.
func replaceWikiLinks(s string) string {
	return wikiLinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikiLinkRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return sub[1]
	})
}

// stripFootnotes removes every footnote form from s. Self-closing refs go
// first so a paired match cannot start at one and run into the next </ref>.
func stripFootnotes(s string) string {
	s = selfClosingRe.ReplaceAllString(s, "")
	s = pairedRefRe.ReplaceAllString(s, "")
	return anySfnRe.ReplaceAllString(s, "")
}

// CleanClaim turns a raw claim span into plain prose. It never fails; badly
// malformed markup may leave fragments behind. The cleaning passes repeat until
// nothing changes, so CleanClaim(CleanClaim(s)) == CleanClaim(s). After the
// first pass a change can only remove text, which bounds the loop.
func CleanClaim(raw string) string {
	s := raw
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(raw string) string {
	s := strings.TrimSpace(raw)
	s = selfClosingRe.ReplaceAllString(s, "")
	s = pairedRefRe.ReplaceAllString(s, "")
	s = strayRefTagRe.ReplaceAllString(s, "")
	s = anySfnRe.ReplaceAllString(s, "")
	s = templateRe.ReplaceAllString(s, "")
	s = replaceWikiLinks(s)
	s = quoteRunRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanWikitext is the lighter cleaning used for context previews: footnotes,
// links, emphasis and templates, then whitespace.
func CleanWikitext(text string) string {
	s := stripFootnotes(text)
	s = replaceWikiLinks(s)
	s = quoteRunRe.ReplaceAllString(s, "")
	s = templateRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// isBlankGap reports whether a gap between two footnotes holds nothing but
// footnote markup and whitespace.
func isBlankGap(gap string) bool {
	return strings.TrimSpace(stripFootnotes(gap)) == ""
}
