package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/wikicite/internal/llm"
	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/pipeline"
	"github.com/ppiankov/wikicite/internal/store"
	"github.com/ppiankov/wikicite/internal/util"
	"github.com/ppiankov/wikicite/internal/wikitext"
)

// Flags shared by several commands
var (
	wikitextFile   string
	footnoteMarkup string
)

// fileArticles serves one article read from disk, for offline use
type fileArticles struct {
	path        string
	defaultLang string
}

func (f *fileArticles) Fetch(ctx context.Context, articleURL string) (*model.WikiArticle, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read wikitext file: %w", err)
	}
	article := &model.WikiArticle{
		Title:    strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)),
		Lang:     f.defaultLang,
		URL:      articleURL,
		Wikitext: string(data),
	}
	if title, lang, err := pipeline.ParseArticleURL(articleURL, f.defaultLang); err == nil {
		article.Title = strings.ReplaceAll(title, "_", " ")
		article.Lang = lang
	}
	return article, nil
}

// articleSource reads from wikitextFile when set, else from the MediaWiki API
func articleSource(cfg *model.Config) pipeline.ArticleSource {
	if wikitextFile != "" {
		return &fileArticles{path: wikitextFile, defaultLang: cfg.Wikipedia.DefaultLang}
	}
	client := util.NewHTTPClient(util.ClientOptions{
		Timeout:     cfg.HTTP.Timeout,
		InsecureTLS: cfg.HTTP.InsecureTLS,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	})
	return pipeline.NewWikipediaClient(client, cfg.HTTP.UserAgent, cfg.Wikipedia.DefaultLang, cfg.Wikipedia.APIURL)
}

func newRenderer(out io.Writer, cfg *model.Config) (*pipeline.Renderer, error) {
	if !pipeline.ValidFormat(cfg.Output.Format) {
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, yaml)", cfg.Output.Format)
	}
	return pipeline.NewRenderer(out, cfg.Output.Format), nil
}

func previewMode(value string) (wikitext.PreviewMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "claim":
		return wikitext.PreviewClaim, nil
	case "context":
		return wikitext.PreviewContext, nil
	default:
		return 0, fmt.Errorf("unknown preview mode %q (supported: claim, context)", value)
	}
}

func newJudge(cfg *model.Config) (llm.Provider, error) {
	judge, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return judge, nil
}

// openHistory opens the history store. A store that cannot be opened is
// logged and skipped; history is never required to verify.
func openHistory(cfg *model.Config, logger *slog.Logger) *store.Store {
	if !cfg.Storage.Enabled {
		return nil
	}
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Warn("history store unavailable", "path", cfg.Storage.Path, "error", err)
		return nil
	}
	return st
}
