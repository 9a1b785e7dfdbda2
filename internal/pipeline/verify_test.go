package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikicite/internal/llm"
	"github.com/ppiankov/wikicite/internal/model"
	"github.com/ppiankov/wikicite/internal/wikitext"
)

const articleURL = "https://en.wikipedia.org/wiki/Springfield"

const historyWikitext = `== History ==

The town was founded in 1850 by settlers.<ref name="hist">{{cite web|url=https://example.org/history|title=History}}</ref> It grew quickly after the railway arrived.<ref name="hist"/>
The mill closed in 1990.<ref name="book">Smith, J. ''Mills of the Valley''. p. 5</ref>`

type fakeArticles struct {
	wikitext string
	err      error
}

func (f *fakeArticles) Fetch(ctx context.Context, articleURL string) (*model.WikiArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.WikiArticle{Title: "Springfield", Lang: "en", URL: articleURL, Wikitext: f.wikitext}, nil
}

type fakeSources struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []string
}

func (f *fakeSources) FetchSource(ctx context.Context, rawURL string) (*model.SourceContent, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &model.SourceContent{URL: rawURL, Text: f.text}, nil
}

type fakeJudge struct {
	mu      sync.Mutex
	sources []string
	fn      func(claim string) (*model.Verdict, error)
}

func (f *fakeJudge) Name() string                         { return "fake" }
func (f *fakeJudge) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeJudge) Judge(ctx context.Context, req llm.JudgeRequest) (*model.Verdict, error) {
	f.mu.Lock()
	f.sources = append(f.sources, req.SourceText)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req.Claim)
	}
	return &model.Verdict{
		Confidence:      90,
		SupportStatus:   model.StatusSupported,
		RelevantExcerpt: "excerpt for " + req.Claim,
		Reasoning:       "matches",
	}, nil
}

type fakeRecorder struct {
	checks []*model.VerificationCheck
	err    error
}

func (f *fakeRecorder) SaveCheck(ctx context.Context, check *model.VerificationCheck) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.checks = append(f.checks, check)
	return int64(len(f.checks)), nil
}

func TestVerify_FetchesSourceAndJudgesEveryInstance(t *testing.T) {
	sources := &fakeSources{text: "The history of the town."}
	judge := &fakeJudge{}
	recorder := &fakeRecorder{}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, sources, judge, WithRecorder(recorder))

	resp, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	require.NoError(t, err)

	assert.Equal(t, "hist", resp.SourceIdentifier)
	assert.Equal(t, "https://example.org/history", resp.SourceURL)
	assert.True(t, resp.SourceFetchedAutomatically)
	assert.Equal(t, []string{"https://example.org/history"}, sources.calls)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].ID)
	assert.Equal(t, "The town was founded in 1850 by settlers.", resp.Results[0].WikipediaClaim)
	assert.Equal(t, 2, resp.Results[1].ID)
	assert.Equal(t, "It grew quickly after the railway arrived.", resp.Results[1].WikipediaClaim)
	for _, r := range resp.Results {
		assert.Equal(t, model.StatusSupported, r.SupportStatus)
		assert.Equal(t, "excerpt for "+r.WikipediaClaim, r.SourceExcerpt)
	}
	for _, src := range judge.sources {
		assert.Equal(t, "The history of the town.", src)
	}

	require.Len(t, recorder.checks, 1)
	check := recorder.checks[0]
	assert.Equal(t, articleURL, check.WikipediaURL)
	assert.Equal(t, "hist", check.RefTagName)
	assert.Equal(t, "fake", check.AIProvider)
	assert.Equal(t, "https://example.org/history", check.SourceURL)
	assert.Equal(t, "The history of the town.", check.SourceText)
	assert.Len(t, check.Results, 2)
}

func TestVerify_ManualSourceText(t *testing.T) {
	sources := &fakeSources{}
	judge := &fakeJudge{}
	recorder := &fakeRecorder{}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, sources, judge, WithRecorder(recorder))

	resp, err := v.Verify(context.Background(), model.VerifyRequest{
		ArticleURL: articleURL,
		FootnoteID: "book",
		SourceText: "  Page five says the mill closed in 1990.  ",
		Provider:   "anthropic",
	})
	require.NoError(t, err)

	assert.Empty(t, sources.calls)
	assert.Empty(t, resp.SourceURL)
	assert.False(t, resp.SourceFetchedAutomatically)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "The mill closed in 1990.", resp.Results[0].WikipediaClaim)
	assert.Equal(t, []string{"Page five says the mill closed in 1990."}, judge.sources)

	require.Len(t, recorder.checks, 1)
	assert.Equal(t, "anthropic", recorder.checks[0].AIProvider)
}

func TestVerify_NoInstances(t *testing.T) {
	sources := &fakeSources{}
	judge := &fakeJudge{}
	recorder := &fakeRecorder{}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, sources, judge, WithRecorder(recorder))

	resp, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "absent"})
	require.NoError(t, err)

	assert.Equal(t, "absent", resp.SourceIdentifier)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Empty(t, sources.calls)
	assert.Empty(t, judge.sources)
	assert.Empty(t, recorder.checks)
}

func TestVerify_NoSourceURL(t *testing.T) {
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, &fakeSources{}, &fakeJudge{})

	_, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "book"})
	assert.ErrorIs(t, err, ErrNoSourceURL)
}

func TestVerify_SourceFetchFailure(t *testing.T) {
	sources := &fakeSources{err: ErrSourceNotFound}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, sources, &fakeJudge{})

	_, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	assert.ErrorIs(t, err, ErrSourceFetch)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestVerify_ArticleFetchFailure(t *testing.T) {
	v := NewVerifier(&fakeArticles{err: ErrArticleNotFound}, &fakeSources{}, &fakeJudge{})

	_, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestVerify_InvalidRequest(t *testing.T) {
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, &fakeSources{}, &fakeJudge{})
	ctx := context.Background()

	_, err := v.Verify(ctx, model.VerifyRequest{FootnoteID: "hist"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = v.Verify(ctx, model.VerifyRequest{ArticleURL: articleURL})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = v.Verify(ctx, model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "__unnamed_1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, wikitext.ErrMissingMarkup)
}

func TestVerify_JudgeFailureOnlyAffectsItsClaim(t *testing.T) {
	judge := &fakeJudge{fn: func(claim string) (*model.Verdict, error) {
		if strings.Contains(claim, "railway") {
			return nil, errors.New("rate limit exceeded")
		}
		return &model.Verdict{Confidence: 60, SupportStatus: model.StatusPartiallySupported, RelevantExcerpt: "1850"}, nil
	}}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, &fakeSources{text: "source"}, judge)

	resp, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, model.StatusPartiallySupported, resp.Results[0].SupportStatus)
	assert.Equal(t, 60.0, resp.Results[0].Confidence)

	failed := resp.Results[1]
	assert.Equal(t, 2, failed.ID)
	assert.Equal(t, "It grew quickly after the railway arrived.", failed.WikipediaClaim)
	assert.Equal(t, 0.0, failed.Confidence)
	assert.Equal(t, model.StatusNotSupported, failed.SupportStatus)
	assert.Equal(t, "Verification failed: rate limit exceeded", failed.SourceExcerpt)
	assert.Equal(t, "Error during verification: rate limit exceeded", failed.Reasoning)
}

func TestVerify_RecorderErrorIsNotFatal(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, &fakeSources{text: "source"}, &fakeJudge{}, WithRecorder(recorder))

	resp, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestVerify_ResultsKeepInstanceOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`Claim number 00 is here.<ref name="r">https://example.org/r</ref> `)
	for i := 1; i < 30; i++ {
		fmt.Fprintf(&b, `Claim number %02d is here.<ref name="r"/> `, i)
	}

	v := NewVerifier(&fakeArticles{wikitext: b.String()}, &fakeSources{text: "source"}, &fakeJudge{}, WithJudgeWorkers(3))

	resp, err := v.Verify(context.Background(), model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "r"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 30)
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.ID)
		assert.Equal(t, fmt.Sprintf("Claim number %02d is here.", i), r.WikipediaClaim)
	}
}

func TestVerify_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	judge := &fakeJudge{fn: func(claim string) (*model.Verdict, error) {
		cancel()
		return nil, context.Canceled
	}}
	v := NewVerifier(&fakeArticles{wikitext: historyWikitext}, &fakeSources{text: "source"}, judge, WithJudgeWorkers(1))

	resp, err := v.Verify(ctx, model.VerifyRequest{ArticleURL: articleURL, FootnoteID: "hist"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, model.StatusNotSupported, r.SupportStatus)
		assert.Contains(t, r.Reasoning, "context canceled")
	}
}

func TestCatalogService(t *testing.T) {
	text := `A fact stated here.{{sfn|Doe|2001}} Another fact stated here.<ref name="n">https://example.org/n</ref>`
	articles := &fakeArticles{wikitext: text}

	catalog, err := NewCatalogService(articles, wikitext.ListOptions{}, false).Catalog(context.Background(), articleURL)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", catalog.Article.Title)
	require.Len(t, catalog.References, 2)
	assert.Equal(t, "n", catalog.References[0].ID.String())
	assert.True(t, catalog.References[0].HasURL)
	assert.Equal(t, "{{sfn|Doe|2001}}", catalog.References[1].ID.String())

	ordered, err := NewCatalogService(articles, wikitext.ListOptions{}, true).Catalog(context.Background(), articleURL)
	require.NoError(t, err)
	require.Len(t, ordered.References, 2)
	assert.Equal(t, "{{sfn|Doe|2001}}", ordered.References[0].ID.String())

	empty := NewCatalogService(articles, wikitext.ListOptions{}, false).CatalogArticle(&model.WikiArticle{Title: "Stub"})
	assert.NotNil(t, empty.References)
	assert.Empty(t, empty.References)
}
