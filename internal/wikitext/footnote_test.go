package wikitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFootnoteID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		markup  string
		want    FootnoteID
		wantErr bool
	}{
		{name: "named", in: "smith2020", want: Named{Name: "smith2020"}},
		{name: "named with spaces", in: " BBC News ", want: Named{Name: "BBC News"}},
		{name: "sfn", in: "{{sfn|Doe|2001}}", want: ShortForm{Template: "{{sfn|Doe|2001}}"}},
		{name: "sfn upper", in: "{{Sfn|Doe|2001}}", want: ShortForm{Template: "{{Sfn|Doe|2001}}"}},
		{name: "unnamed", in: "__unnamed_3", markup: "<ref>x</ref>", want: Unnamed{Ordinal: 3, Markup: "<ref>x</ref>"}},
		{name: "unnamed without markup", in: "__unnamed_3", wantErr: true},
		{name: "unnamed bad ordinal", in: "__unnamed_zero", markup: "<ref>x</ref>", wantErr: true},
		{name: "empty", in: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFootnoteID(tt.in, tt.markup)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestScan_DocumentOrder(t *testing.T) {
	text := `A.<ref name="n">N</ref> B.{{sfn|X|1}} C.<ref>U</ref> D.<ref name='q w'/> E.<ref name=n />`

	footnotes := Scan(text)
	require.Len(t, footnotes, 5)

	var ids []string
	for i, f := range footnotes {
		ids = append(ids, f.ID.String())
		assert.Equal(t, f.Markup, text[f.Occurrence.Start:f.Occurrence.End])
		if i > 0 {
			assert.Less(t, footnotes[i-1].Occurrence.Start, f.Occurrence.Start)
		}
	}
	assert.Equal(t, []string{"n", "{{sfn|X|1}}", "__unnamed_1", "q w", "n"}, ids)
	assert.True(t, footnotes[3].SelfClosing)
	assert.Equal(t, KindSfn, footnotes[1].Kind())
	assert.Equal(t, KindRef, footnotes[2].Kind())
}

func TestScan_UnnamedAfterSwallowingCandidate(t *testing.T) {
	text := `Start.<ref name="s"/> middle <ref>first</ref> then <ref lang="en">second</ref>`

	var unnamed []Footnote
	for _, f := range Scan(text) {
		if _, ok := f.ID.(Unnamed); ok {
			unnamed = append(unnamed, f)
		}
	}
	require.Len(t, unnamed, 2)
	assert.Equal(t, Unnamed{Ordinal: 1, Markup: "<ref>first</ref>"}, unnamed[0].ID)
	assert.Equal(t, Unnamed{Ordinal: 2, Markup: `<ref lang="en">second</ref>`}, unnamed[1].ID)
}

func TestOccurrences_NamedDoesNotMatchPrefix(t *testing.T) {
	text := `x<ref name="ab">1</ref> y<ref name="a">2</ref> z<ref name=A/>`

	occ, err := Occurrences(text, Named{Name: "a"})
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, `<ref name="a">2</ref>`, text[occ[0].Start:occ[0].End])
	assert.Equal(t, `<ref name=A/>`, text[occ[1].Start:occ[1].End])
}
