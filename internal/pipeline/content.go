package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/wikicite/internal/model"
)

// ErrContentTooShort means a page yielded too little text to judge a claim against
var ErrContentTooShort = errors.New("extracted content too short")

const minSourceTextLength = 100

const boilerplateSelector = "script, style, nav, header, footer, aside, iframe, noscript"

var mainContentSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	".article-content",
	".post-content",
	".entry-content",
}

// ExtractContent pulls the title and main readable text out of an HTML page
func ExtractContent(rawHTML, pageURL string) (*model.SourceContent, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	title := collapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = collapseWhitespace(doc.Find("h1").First().Text())
	}

	doc.Find(boilerplateSelector).Remove()

	var body *goquery.Selection
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			body = sel
			break
		}
	}
	if body == nil {
		body = doc.Find("body")
	}

	text := collapseWhitespace(blockText(body))
	if utf8.RuneCountInString(text) < minSourceTextLength {
		return nil, fmt.Errorf("%s: %w (%d characters)", pageURL, ErrContentTooShort, utf8.RuneCountInString(text))
	}

	return &model.SourceContent{
		URL:   pageURL,
		Title: title,
		Text:  text,
	}, nil
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Blockquote: true,
	atom.Section: true, atom.Article: true, atom.Figcaption: true, atom.Pre: true,
	atom.Dt: true, atom.Dd: true,
}

// blockText concatenates text nodes, separating block-level elements so
// adjacent paragraphs do not run together
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			b.WriteByte(' ')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
