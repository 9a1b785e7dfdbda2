package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wikicite/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &model.VerificationCheck{
		WikipediaURL: "https://en.wikipedia.org/wiki/Example",
		RefTagName:   "smith2020",
		SourceText:   "The town was founded in 1850.",
		SourceURL:    "https://example.org/history",
		AIProvider:   "openai",
		CreatedAt:    base,
		Results: []model.CitationResult{
			{ID: 1, WikipediaClaim: "Founded in 1850.", SourceExcerpt: "founded in 1850", Confidence: 95, SupportStatus: model.StatusSupported, Reasoning: "match"},
			{ID: 2, WikipediaClaim: "It grew fast.", SourceExcerpt: "No relevant excerpt found", Confidence: 20, SupportStatus: model.StatusNotSupported, Reasoning: "absent"},
		},
	}
	id, err := s.SaveCheck(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	second := &model.VerificationCheck{
		WikipediaURL: "https://en.wikipedia.org/wiki/Example",
		RefTagName:   "__unnamed_1",
		SourceText:   "manual",
		AIProvider:   "anthropic",
		CreatedAt:    base.Add(time.Hour),
	}
	_, err = s.SaveCheck(ctx, second)
	require.NoError(t, err)

	other := &model.VerificationCheck{WikipediaURL: "https://de.wikipedia.org/wiki/Beispiel", RefTagName: "x", SourceText: "t", AIProvider: "ollama"}
	_, err = s.SaveCheck(ctx, other)
	require.NoError(t, err)
	assert.False(t, other.CreatedAt.IsZero())

	checks, err := s.ListChecks(ctx, "https://en.wikipedia.org/wiki/Example", 10)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, "__unnamed_1", checks[0].RefTagName, "newest first")
	assert.Empty(t, checks[0].Results)
	assert.Equal(t, base.Add(time.Hour), checks[0].CreatedAt)

	got := checks[1]
	assert.Equal(t, "smith2020", got.RefTagName)
	assert.Equal(t, "https://example.org/history", got.SourceURL)
	assert.Equal(t, first.Results, got.Results)

	all, err := s.ListChecks(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListChecks(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveCheck(ctx, &model.VerificationCheck{WikipediaURL: "u", RefTagName: "r", SourceText: "s", AIProvider: "openai"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	checks, err := s.ListChecks(ctx, "u", 0)
	require.NoError(t, err)
	assert.Len(t, checks, 1)
}

func TestStore_EmptyList(t *testing.T) {
	s := openTestStore(t)
	checks, err := s.ListChecks(context.Background(), "https://en.wikipedia.org/wiki/None", 5)
	require.NoError(t, err)
	assert.Empty(t, checks)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestStatementBuilder_QuestionPlaceholders(t *testing.T) {
	query, args, err := sqlb.Select("id").From("verification_checks").
		Where(sq.Eq{"title": "Ada Lovelace"}).Limit(5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM verification_checks WHERE title = ? LIMIT 5", query)
	assert.Equal(t, []interface{}{"Ada Lovelace"}, args)
}
