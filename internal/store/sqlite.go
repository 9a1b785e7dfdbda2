// Package store keeps the history of verification runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/wikicite/internal/model"
)

const schemaVersion = 1

// sqlb builds statements with SQLite "?" placeholders
var sqlb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var checkColumns = []string{
	"id", "wikipedia_url", "ref_tag_name", "source_text", "source_url", "ai_provider", "created_at_unix_ms",
}

var resultColumns = []string{
	"check_id", "position", "wikipedia_claim", "source_excerpt", "confidence", "support_status", "reasoning",
}

// Store persists verification checks and their per-claim results
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		return fmt.Errorf("pragma foreign_keys: %w", err)
	}

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS verification_checks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  wikipedia_url TEXT NOT NULL,
  ref_tag_name TEXT NOT NULL,
  source_text TEXT NOT NULL,
  source_url TEXT NOT NULL DEFAULT '',
  ai_provider TEXT NOT NULL,
  created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checks_url ON verification_checks (wikipedia_url, created_at_unix_ms);
CREATE TABLE IF NOT EXISTS citation_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  check_id INTEGER NOT NULL REFERENCES verification_checks(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  wikipedia_claim TEXT NOT NULL,
  source_excerpt TEXT NOT NULL,
  confidence REAL NOT NULL,
  support_status TEXT NOT NULL,
  reasoning TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_check ON citation_results (check_id);
`); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d;", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// SaveCheck stores a check with its results and returns the new check id.
// CreatedAt is filled in when zero.
func (s *Store) SaveCheck(ctx context.Context, check *model.VerificationCheck) (int64, error) {
	if check.CreatedAt.IsZero() {
		check.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sqlb.Insert("verification_checks").
		Columns(checkColumns[1:]...).
		Values(check.WikipediaURL, check.RefTagName, check.SourceText, check.SourceURL,
			check.AIProvider, check.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert check: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("check id: %w", err)
	}

	if len(check.Results) > 0 {
		insert := sqlb.Insert("citation_results").Columns(resultColumns...)
		for i, r := range check.Results {
			insert = insert.Values(id, i, r.WikipediaClaim, r.SourceExcerpt, r.Confidence, string(r.SupportStatus), r.Reasoning)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return 0, fmt.Errorf("build results insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("insert results: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	check.ID = id
	return id, nil
}

// ListChecks returns the most recent checks, newest first, with their
// results. An empty wikipediaURL lists checks for every article.
func (s *Store) ListChecks(ctx context.Context, wikipediaURL string, limit int) ([]model.VerificationCheck, error) {
	q := sqlb.Select(checkColumns...).
		From("verification_checks").
		OrderBy("created_at_unix_ms DESC", "id DESC")
	if wikipediaURL != "" {
		q = q.Where(sq.Eq{"wikipedia_url": wikipediaURL})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checks []model.VerificationCheck
	index := make(map[int64]int)
	for rows.Next() {
		var c model.VerificationCheck
		var createdMs int64
		if err := rows.Scan(&c.ID, &c.WikipediaURL, &c.RefTagName, &c.SourceText, &c.SourceURL, &c.AIProvider, &createdMs); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdMs).UTC()
		index[c.ID] = len(checks)
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if len(checks) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(checks))
	for _, c := range checks {
		ids = append(ids, c.ID)
	}
	if err := s.loadResults(ctx, ids, func(checkID int64, r model.CitationResult) {
		c := &checks[index[checkID]]
		c.Results = append(c.Results, r)
	}); err != nil {
		return nil, err
	}

	return checks, nil
}

func (s *Store) loadResults(ctx context.Context, checkIDs []int64, add func(int64, model.CitationResult)) error {
	query, args, err := sqlb.Select(resultColumns...).
		From("citation_results").
		Where(sq.Eq{"check_id": checkIDs}).
		OrderBy("check_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build results select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			checkID  int64
			position int
			r        model.CitationResult
			status   string
		)
		if err := rows.Scan(&checkID, &position, &r.WikipediaClaim, &r.SourceExcerpt, &r.Confidence, &status, &r.Reasoning); err != nil {
			return fmt.Errorf("scan result: %w", err)
		}
		r.ID = position + 1
		r.SupportStatus = model.SupportStatus(status)
		add(checkID, r)
	}
	return rows.Err()
}
