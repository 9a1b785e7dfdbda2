package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArticleURL(t *testing.T) {
	tests := []struct {
		url       string
		wantTitle string
		wantLang  string
	}{
		{"https://en.wikipedia.org/wiki/Go_(programming_language)", "Go_(programming_language)", "en"},
		{"https://fr.wikipedia.org/wiki/Caf%C3%A9_Society", "Café_Society", "fr"},
		{"https://en.m.wikipedia.org/wiki/Paris", "Paris", "en"},
		{"https://en.wikipedia.org/wiki/AC/DC?oldid=123#History", "AC/DC", "en"},
		{"https://zh-yue.wikipedia.org/wiki/Hong_Kong", "Hong_Kong", "zh-yue"},
		{"https://simple.wikipedia.org/wiki/Moon", "Moon", "simple"},
		{"https://wiki.example.org/wiki/Local_page", "Local_page", "de"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			title, lang, err := ParseArticleURL(tt.url, "de")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantLang, lang)
		})
	}
}

func TestParseArticleURL_Invalid(t *testing.T) {
	for _, u := range []string{
		"",
		"not a url",
		"https://en.wikipedia.org/w/index.php?title=Paris",
		"https://en.wikipedia.org/wiki/",
	} {
		_, _, err := ParseArticleURL(u, "en")
		assert.ErrorIs(t, err, ErrInvalidArticleURL, u)
	}
}

func newWikiServer(t *testing.T, handler http.HandlerFunc) *WikipediaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWikipediaClient(server.Client(), "wikicite-test", "en", server.URL)
}

func TestWikipediaClient_Fetch(t *testing.T) {
	client := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "revisions", q.Get("prop"))
		assert.Equal(t, "main", q.Get("rvslots"))
		assert.Equal(t, "2", q.Get("formatversion"))
		assert.Equal(t, "Café_Society", q.Get("titles"))
		assert.Equal(t, "wikicite-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"query":{"pages":[{"title":"Café Society","revisions":[{"slots":{"main":{"content":"Some text.<ref>x</ref>"}}}]}]}}`)
	})

	article, err := client.Fetch(context.Background(), "https://fr.wikipedia.org/wiki/Caf%C3%A9_Society")
	require.NoError(t, err)
	assert.Equal(t, "Café Society", article.Title)
	assert.Equal(t, "fr", article.Lang)
	assert.Equal(t, "https://fr.wikipedia.org/wiki/Caf%C3%A9_Society", article.URL)
	assert.Equal(t, "Some text.<ref>x</ref>", article.Wikitext)
}

func TestWikipediaClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"missing page", 200, `{"query":{"pages":[{"title":"Nope","missing":true}]}}`, ErrArticleNotFound},
		{"invalid title", 200, `{"query":{"pages":[{"title":"","invalid":true}]}}`, ErrArticleNotFound},
		{"no pages", 200, `{"query":{"pages":[]}}`, ErrArticleNotFound},
		{"no revisions", 200, `{"query":{"pages":[{"title":"Empty","revisions":[]}]}}`, ErrNoContent},
		{"forbidden", 403, ``, ErrAccessDenied},
		{"not found", 404, ``, ErrArticleNotFound},
		{"server error", 503, ``, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})
			_, err := client.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Nope")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWikipediaClient_APIError(t *testing.T) {
	client := newWikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"error":{"code":"badvalue","info":"Unrecognized value"}}`)
	})
	_, err := client.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Paris")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badvalue")
}
