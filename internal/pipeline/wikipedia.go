package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/wikicite/internal/model"
)

// Wikitext source errors
var (
	ErrInvalidArticleURL = errors.New("invalid Wikipedia article URL")
	ErrArticleNotFound   = errors.New("article not found")
	ErrNoContent         = errors.New("article has no content")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnavailable       = errors.New("service unavailable")
)

var (
	wikiTitleRe = regexp.MustCompile(`/wiki/([^?#]+)`)
	wikiHostRe  = regexp.MustCompile(`^([a-z]{2,3}(?:-[a-z]+)*|simple)\.(?:m\.)?wikipedia\.org$`)
)

// WikipediaClient reads raw article markup through the MediaWiki API
type WikipediaClient struct {
	httpClient  *http.Client
	userAgent   string
	defaultLang string
	apiURL      string
}

// NewWikipediaClient creates a client. When apiURL is empty the endpoint is
// derived from the article's language host.
func NewWikipediaClient(client *http.Client, userAgent, defaultLang, apiURL string) *WikipediaClient {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &WikipediaClient{
		httpClient:  client,
		userAgent:   userAgent,
		defaultLang: defaultLang,
		apiURL:      apiURL,
	}
}

// ParseArticleURL extracts the decoded page title and language code from an
// article URL. Hosts that are not a Wikipedia language edition get defaultLang.
func ParseArticleURL(articleURL, defaultLang string) (title, lang string, err error) {
	parsed, err := url.Parse(strings.TrimSpace(articleURL))
	if err != nil || parsed.Host == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidArticleURL, articleURL)
	}

	m := wikiTitleRe.FindStringSubmatch(parsed.EscapedPath())
	if m == nil {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidArticleURL, articleURL)
	}
	title, err = url.PathUnescape(m[1])
	if err != nil || strings.TrimSpace(title) == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidArticleURL, articleURL)
	}

	lang = defaultLang
	if hm := wikiHostRe.FindStringSubmatch(strings.ToLower(parsed.Hostname())); hm != nil {
		lang = hm[1]
	}
	return title, lang, nil
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Invalid   bool   `json:"invalid"`
			Revisions []struct {
				Slots struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fetch downloads the current wikitext of the article at articleURL
func (c *WikipediaClient) Fetch(ctx context.Context, articleURL string) (*model.WikiArticle, error) {
	title, lang, err := ParseArticleURL(articleURL, c.defaultLang)
	if err != nil {
		return nil, err
	}

	endpoint := c.apiURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("titles", title)
	params.Set("redirects", "1")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("fetch article %q: %w", title, ErrAccessDenied)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch article %q: %w", title, ErrArticleNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch article %q: %w (status %d)", title, ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch article %q: unexpected status %d", title, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if qr.Error != nil {
		return nil, fmt.Errorf("mediawiki error %s: %s", qr.Error.Code, qr.Error.Info)
	}
	if len(qr.Query.Pages) == 0 {
		return nil, fmt.Errorf("%q: %w", title, ErrArticleNotFound)
	}

	page := qr.Query.Pages[0]
	if page.Missing || page.Invalid {
		return nil, fmt.Errorf("%q: %w", title, ErrArticleNotFound)
	}
	if len(page.Revisions) == 0 || page.Revisions[0].Slots.Main.Content == "" {
		return nil, fmt.Errorf("%q: %w", title, ErrNoContent)
	}

	if page.Title != "" {
		title = page.Title
	}

	return &model.WikiArticle{
		Title:    strings.ReplaceAll(title, "_", " "),
		Lang:     lang,
		URL:      articleURL,
		Wikitext: page.Revisions[0].Slots.Main.Content,
	}, nil
}
