package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/wikitext"
)

const testArticle = `== History ==

The town was founded in 1850 by settlers.<ref name="hist">{{cite web|url=https://example.org/history|title=History}}</ref> It grew quickly after the railway arrived.<ref name="hist"/>
The mill closed in 1990.{{sfn|Smith|2001|p=5}}`

func writeArticle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "springfield.wiki")
	require.NoError(t, os.WriteFile(path, []byte(testArticle), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRefsCommand(t *testing.T) {
	path := writeArticle(t)
	out := execute(t, "refs", "https://en.wikipedia.org/wiki/Springfield", "--wikitext-file", path, "-o", "json")

	var catalog model.ArticleCatalog
	require.NoError(t, json.Unmarshal([]byte(out), &catalog))
	assert.Equal(t, "Springfield", catalog.Article.Title)
	require.Len(t, catalog.References, 2)
	assert.Equal(t, "hist", catalog.References[0].ID.String())
	assert.True(t, catalog.References[0].HasURL)
	assert.Equal(t, wikitext.KindSfn, catalog.References[1].Kind)
}

func TestClaimsCommand(t *testing.T) {
	path := writeArticle(t)
	out := execute(t, "claims", "https://en.wikipedia.org/wiki/Springfield", "hist", "--wikitext-file", path, "-o", "json")

	var decoded struct {
		Footnote  string                      `json:"footnote"`
		Instances []wikitext.CitationInstance `json:"instances"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "hist", decoded.Footnote)
	require.Len(t, decoded.Instances, 2)
	assert.Equal(t, "The town was founded in 1850 by settlers.", decoded.Instances[0].Claim)
	assert.Equal(t, "It grew quickly after the railway arrived.", decoded.Instances[1].Claim)
}

func TestURLCommand(t *testing.T) {
	path := writeArticle(t)
	out := execute(t, "url", "https://en.wikipedia.org/wiki/Springfield", "hist", "--wikitext-file", path)
	assert.Equal(t, "https://example.org/history\n", out)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "AC_DC", sanitizeFilename("AC/DC"))
	assert.Equal(t, "Go-(programming-language)", sanitizeFilename("Go (programming language)"))
	assert.Equal(t, "article", sanitizeFilename("  "))
	assert.Equal(t, "article", sanitizeFilename(".."))
	assert.Len(t, []rune(sanitizeFilename(string(bytes.Repeat([]byte("é"), 150)))), 100)
}

func TestPreviewMode(t *testing.T) {
	mode, err := previewMode("")
	require.NoError(t, err)
	assert.Equal(t, wikitext.PreviewClaim, mode)

	mode, err = previewMode("Context")
	require.NoError(t, err)
	assert.Equal(t, wikitext.PreviewContext, mode)

	_, err = previewMode("full")
	assert.Error(t, err)
}

func TestFlattenKeys(t *testing.T) {
	flat := flattenKeys("", map[string]any{
		"http": map[string]any{"timeout": "15s", "retry": map[string]any{"max": 3}},
		"name": "x",
	})
	assert.Equal(t, map[string]any{"http.timeout": "15s", "http.retry.max": 3, "name": "x"}, flat)
}
