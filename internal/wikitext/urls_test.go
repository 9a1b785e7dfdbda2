package wikitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
		found  bool
	}{
		{
			name:   "archive preferred",
			markup: "<ref>{{cite web|url=http://a.com|archive-url=http://web.archive.org/x}}</ref>",
			want:   "http://web.archive.org/x",
			found:  true,
		},
		{
			name:   "url parameter",
			markup: "<ref>{{cite web |url=https://example.org/story |title=Story}}</ref>",
			want:   "https://example.org/story",
			found:  true,
		},
		{
			name:   "case insensitive",
			markup: "{{Cite news|URL = https://news.example/a|Archive-URL = https://archive.example/a}}",
			want:   "https://archive.example/a",
			found:  true,
		},
		{
			name:   "prefixed param is not url",
			markup: "{{cite book|chapter-url=http://c.example/ch1|title=T}}",
			want:   "http://c.example/ch1",
			found:  true,
		},
		{
			name:   "bare link",
			markup: "<ref>See http://example.org/page for details</ref>",
			want:   "http://example.org/page",
			found:  true,
		},
		{
			name:   "bare link in brackets",
			markup: "<ref>[https://example.org/a?b=c Title]</ref>",
			want:   "https://example.org/a?b=c",
			found:  true,
		},
		{
			name:   "no url",
			markup: "<ref>Smith, J. (2001). A Book. p. 5</ref>",
			found:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractURL(tt.markup)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkupFor(t *testing.T) {
	text := `Claim one here.<ref name="n"/> Claim two here.<ref name="n">{{cite web|url=http://n.example}}</ref>` +
		` Three.<ref>plain</ref>{{sfn|Doe|2001}}`

	markup, ok, err := MarkupFor(text, Named{Name: "n"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `<ref name="n">{{cite web|url=http://n.example}}</ref>`, markup)

	_, ok, err = MarkupFor(text, Named{Name: "absent"})
	require.NoError(t, err)
	assert.False(t, ok)

	markup, ok, err = MarkupFor(text, Unnamed{Ordinal: 1, Markup: "<ref>plain</ref>"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<ref>plain</ref>", markup)

	_, _, err = MarkupFor(text, Unnamed{Ordinal: 1})
	require.ErrorIs(t, err, ErrMissingMarkup)

	markup, ok, err = MarkupFor(text, ShortForm{Template: "{{SFN|Doe|2001}}"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{{SFN|Doe|2001}}", markup)
}
