package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/wikicite/internal/llm"
	"github.com/ppiankov/wikicite/internal/logging"
	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/wikitext"
	"github.com/ppiankov/wikicite/internal/worker"
)

// Verification errors
var (
	ErrInvalidRequest = errors.New("invalid verification request")
	ErrNoSourceURL    = errors.New("no URL found in citation and no source text provided")
	ErrSourceFetch    = errors.New("could not auto-fetch source")
)

// ArticleSource returns the wikitext of an article
type ArticleSource interface {
	Fetch(ctx context.Context, articleURL string) (*model.WikiArticle, error)
}

// SourceFetcher returns the readable text of a cited page
type SourceFetcher interface {
	FetchSource(ctx context.Context, rawURL string) (*model.SourceContent, error)
}

// CheckRecorder persists finished verification runs
type CheckRecorder interface {
	SaveCheck(ctx context.Context, check *model.VerificationCheck) (int64, error)
}

// Verifier checks every use of one footnote against its cited source
type Verifier struct {
	articles ArticleSource
	sources  SourceFetcher
	judge    llm.Provider
	recorder CheckRecorder
	workers  int
	logger   *slog.Logger
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithRecorder stores each run. Storage failures are logged, never returned.
func WithRecorder(r CheckRecorder) VerifierOption {
	return func(v *Verifier) { v.recorder = r }
}

// WithJudgeWorkers bounds concurrent judge calls
func WithJudgeWorkers(n int) VerifierOption {
	return func(v *Verifier) { v.workers = n }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = l }
}

// NewVerifier creates a verifier
func NewVerifier(articles ArticleSource, sources SourceFetcher, judge llm.Provider, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		articles: articles,
		sources:  sources,
		judge:    judge,
		workers:  4,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify resolves every claim that cites req.FootnoteID and judges each one
// against the source text. The source is fetched from the footnote's URL
// unless req.SourceText is given. A footnote with no usable claims yields an
// empty result list without touching the source.
func (v *Verifier) Verify(ctx context.Context, req model.VerifyRequest) (*model.VerifyResponse, error) {
	if strings.TrimSpace(req.ArticleURL) == "" {
		return nil, fmt.Errorf("%w: article URL is required", ErrInvalidRequest)
	}
	id, err := wikitext.ParseFootnoteID(req.FootnoteID, req.FullMarkup)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	article, err := v.articles.Fetch(ctx, req.ArticleURL)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}

	instances, err := wikitext.Resolve(article.Wikitext, id)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}

	resp := &model.VerifyResponse{
		Results:          []model.CitationResult{},
		SourceIdentifier: id.String(),
	}
	if len(instances) == 0 {
		v.logger.Info("no citation instances", "article", article.Title, "footnote", id.String())
		return resp, nil
	}

	sourceText := strings.TrimSpace(req.SourceText)
	if sourceText == "" {
		markup, _, err := wikitext.MarkupFor(article.Wikitext, id)
		if err != nil {
			return nil, fmt.Errorf("locate footnote markup: %w", err)
		}
		sourceURL, ok := wikitext.ExtractURL(markup)
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, ErrNoSourceURL)
		}

		v.logger.Debug("fetching source", "url", sourceURL)
		content, err := v.sources.FetchSource(ctx, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceFetch, err)
		}
		sourceText = content.Text
		resp.SourceURL = sourceURL
		resp.SourceFetchedAutomatically = true
	}

	v.logger.Debug("judging claims", "footnote", id.String(), "instances", len(instances), "provider", v.judge.Name())
	resp.Results = v.judgeAll(ctx, instances, sourceText)

	v.record(ctx, req, resp, sourceText)

	return resp, nil
}

type judgeJob struct {
	index      int
	claim      string
	sourceText string
	judge      llm.Provider
}

type judgeResult struct {
	index   int
	claim   string
	verdict *model.Verdict
	err     error
}

func (r *judgeResult) GetError() error {
	return r.err
}

func (j *judgeJob) Execute(ctx context.Context) worker.Result {
	verdict, err := j.judge.Judge(ctx, llm.JudgeRequest{Claim: j.claim, SourceText: j.sourceText})
	return &judgeResult{index: j.index, claim: j.claim, verdict: verdict, err: err}
}

// judgeAll fans the claims out to the worker pool and reassembles the
// results in instance order. A failed judge call only affects its own claim.
func (v *Verifier) judgeAll(ctx context.Context, instances []wikitext.CitationInstance, sourceText string) []model.CitationResult {
	pool := worker.NewPool(ctx, v.workers)
	pool.Start()
	for i, inst := range instances {
		pool.Submit(&judgeJob{index: i, claim: inst.Claim, sourceText: sourceText, judge: v.judge})
	}

	results := make([]model.CitationResult, len(instances))
	done := make([]bool, len(instances))
	for _, r := range pool.Wait() {
		jr := r.(*judgeResult)
		done[jr.index] = true
		if jr.err != nil {
			v.logger.Warn("judge failed", "claim", jr.index+1, "error", jr.err)
			results[jr.index] = failedResult(jr.index, jr.claim, jr.err)
			continue
		}
		results[jr.index] = model.CitationResult{
			ID:             jr.index + 1,
			WikipediaClaim: jr.claim,
			SourceExcerpt:  jr.verdict.RelevantExcerpt,
			Confidence:     jr.verdict.Confidence,
			SupportStatus:  jr.verdict.SupportStatus,
			Reasoning:      jr.verdict.Reasoning,
		}
	}

	// Jobs dropped by cancellation never ran.
	for i, ok := range done {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not judged")
			}
			results[i] = failedResult(i, instances[i].Claim, err)
		}
	}

	return results
}

func failedResult(index int, claim string, err error) model.CitationResult {
	return model.CitationResult{
		ID:             index + 1,
		WikipediaClaim: claim,
		SourceExcerpt:  "Verification failed: " + err.Error(),
		Confidence:     0,
		SupportStatus:  model.StatusNotSupported,
		Reasoning:      "Error during verification: " + err.Error(),
	}
}

func (v *Verifier) record(ctx context.Context, req model.VerifyRequest, resp *model.VerifyResponse, sourceText string) {
	if v.recorder == nil {
		return
	}
	provider := req.Provider
	if provider == "" {
		provider = v.judge.Name()
	}
	check := &model.VerificationCheck{
		WikipediaURL: req.ArticleURL,
		RefTagName:   resp.SourceIdentifier,
		SourceText:   sourceText,
		SourceURL:    resp.SourceURL,
		AIProvider:   provider,
		Results:      resp.Results,
	}
	if _, err := v.recorder.SaveCheck(ctx, check); err != nil {
		v.logger.Warn("save verification check", "error", err)
		return
	}
	v.logger.Debug("verification check saved", "id", check.ID)
}

// CatalogService lists the footnotes of articles fetched from Wikipedia
type CatalogService struct {
	articles ArticleSource
	opts     wikitext.ListOptions
	ordered  bool
}

// NewCatalogService creates a catalog service. With byPosition set, entries
// are sorted by first occurrence instead of by kind.
func NewCatalogService(articles ArticleSource, opts wikitext.ListOptions, byPosition bool) *CatalogService {
	return &CatalogService{articles: articles, opts: opts, ordered: byPosition}
}

// Catalog fetches the article and builds its reference catalog
func (c *CatalogService) Catalog(ctx context.Context, articleURL string) (*model.ArticleCatalog, error) {
	article, err := c.articles.Fetch(ctx, articleURL)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	return c.CatalogArticle(article), nil
}

// CatalogArticle builds the reference catalog of an already fetched article
func (c *CatalogService) CatalogArticle(article *model.WikiArticle) *model.ArticleCatalog {
	refs := wikitext.ListReferences(article.Wikitext, c.opts)
	if c.ordered {
		wikitext.SortByPosition(refs)
	}
	if refs == nil {
		refs = []wikitext.ReferenceInfo{}
	}
	return &model.ArticleCatalog{Article: *article, References: refs}
}
