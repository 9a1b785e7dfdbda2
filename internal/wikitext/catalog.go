package wikitext

import (
	"encoding/json"
	"sort"
	"strings"
)

// PreviewMode selects how catalog previews are computed.
type PreviewMode int

const (
	// PreviewClaim uses the first resolved claim of the footnote.
	PreviewClaim PreviewMode = iota
	// PreviewContext uses the prose right before the footnote's first occurrence.
	PreviewContext
)

const (
	claimPreviewLength   = 200
	contextPreviewWindow = 100
	contextPreviewLength = 80
)

// ListOptions configures ListReferences.
type ListOptions struct {
	Preview PreviewMode
}

// ReferenceInfo is one distinct footnote in an article catalog.
type ReferenceInfo struct {
	ID      FootnoteID
	Kind    string
	Preview string
	HasURL  bool
	// FullMarkup is only set for unnamed refs; it is required to resolve them.
	FullMarkup string
	// Offset is the byte offset of the first occurrence.
	Offset int
}

type referenceInfoJSON struct {
	ID          string `json:"id" yaml:"id"`
	Type        string `json:"type" yaml:"type"`
	Preview     string `json:"preview,omitempty" yaml:"preview,omitempty"`
	HasURL      bool   `json:"hasUrl" yaml:"hasUrl"`
	FullContent string `json:"fullContent,omitempty" yaml:"fullContent,omitempty"`
}

func (r ReferenceInfo) wire() referenceInfoJSON {
	return referenceInfoJSON{
		ID:          r.ID.String(),
		Type:        r.Kind,
		Preview:     r.Preview,
		HasURL:      r.HasURL,
		FullContent: r.FullMarkup,
	}
}

// MarshalJSON encodes the identifier in its string form.
func (r ReferenceInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// MarshalYAML mirrors MarshalJSON for YAML output.
func (r ReferenceInfo) MarshalYAML() (interface{}, error) {
	return r.wire(), nil
}

// UnmarshalJSON restores a ReferenceInfo, including the unnamed markup.
func (r *ReferenceInfo) UnmarshalJSON(data []byte) error {
	var w referenceInfoJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := ParseFootnoteID(w.ID, w.FullContent)
	if err != nil {
		return err
	}
	*r = ReferenceInfo{
		ID:         id,
		Kind:       w.Type,
		Preview:    w.Preview,
		HasURL:     w.HasURL,
		FullMarkup: w.FullContent,
	}
	return nil
}

// ListReferences builds the catalog of distinct footnotes in an article. The
// order is named refs with content, then names only ever used self-closing,
// then unnamed refs, then short-form citations. Use SortByPosition for
// document order.
func ListReferences(text string, opts ListOptions) []ReferenceInfo {
	var refs []ReferenceInfo
	seen := make(map[string]bool)

	add := func(f Footnote, hasURL bool, full string) {
		refs = append(refs, ReferenceInfo{
			ID:         f.ID,
			Kind:       f.Kind(),
			Preview:    preview(text, f, opts.Preview),
			HasURL:     hasURL,
			FullMarkup: full,
			Offset:     firstOffset(text, f),
		})
	}

	for _, f := range scanNamedPaired(text) {
		key := f.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		_, hasURL := ExtractURL(f.Markup)
		add(f, hasURL, "")
	}

	for _, f := range scanNamedSelfClosing(text) {
		key := f.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		add(f, false, "")
	}

	// Every unnamed ref is its own entry, even when two share identical markup.
	for _, f := range scanUnnamed(text) {
		_, hasURL := ExtractURL(f.Markup)
		add(f, hasURL, f.Markup)
	}

	for _, f := range scanShortForm(text) {
		key := f.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		add(f, false, "")
	}

	return refs
}

// firstOffset is where a named footnote is first used. A self-closing use may
// come before the definition that carries its content.
func firstOffset(text string, f Footnote) int {
	if _, ok := f.ID.(Named); !ok {
		return f.Occurrence.Start
	}
	occ, err := Occurrences(text, f.ID)
	if err != nil || len(occ) == 0 || occ[0].Start > f.Occurrence.Start {
		return f.Occurrence.Start
	}
	return occ[0].Start
}

// SortByPosition orders a catalog by first-occurrence offset. Ties keep their
// catalog order.
func SortByPosition(refs []ReferenceInfo) {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Offset < refs[j].Offset })
}

func preview(text string, f Footnote, mode PreviewMode) string {
	if mode == PreviewContext {
		return PreviewContextAt(text, f.Occurrence.Start)
	}
	instances, err := Resolve(text, f.ID)
	if err != nil || len(instances) == 0 {
		return ""
	}
	return truncate(instances[0].Claim, claimPreviewLength)
}

// PreviewContextAt returns the cleaned prose in the 100 characters before pos,
// limited to its last 80 characters.
func PreviewContextAt(text string, pos int) string {
	start := runesBefore(text, pos, contextPreviewWindow)
	cleaned := []rune(CleanWikitext(text[start:pos]))
	if len(cleaned) > contextPreviewLength {
		cleaned = cleaned[len(cleaned)-contextPreviewLength:]
	}
	return strings.TrimSpace(string(cleaned))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
