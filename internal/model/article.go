package model

import "github.com/ppiankov/wikicite/internal/wikitext"

// WikiArticle is the raw markup of one Wikipedia article. It is fetched once
// per request and never cached.
type WikiArticle struct {
	Title    string `json:"title" yaml:"title"`
	Lang     string `json:"lang" yaml:"lang"`
	URL      string `json:"url" yaml:"url"`
	Wikitext string `json:"-" yaml:"-"`
}

// SourceContent is the readable text extracted from a cited web page
type SourceContent struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Text  string `json:"text" yaml:"text"`
}

// ArticleCatalog lists every footnote identifier found in one article
type ArticleCatalog struct {
	Article    WikiArticle              `json:"article" yaml:"article"`
	References []wikitext.ReferenceInfo `json:"references" yaml:"references"`
}
