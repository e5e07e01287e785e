// Package store persists ingested articles in a single SQLite table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/logger"
	_ "modernc.org/sqlite"
)

const (
	// TimestampLayout is how ingestion times are written to the timestamp column.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the calendar-day prefix of TimestampLayout.
	DateLayout      = "2006-01-02"

	legacyTimestampLayout = "2006-01-02 15:04"
	busyTimeoutPragma     = "_pragma=busy_timeout(5000)"

	// WAL lets the read pool see committed rows while a write is in flight.
	walPragma = "_pragma=journal_mode(WAL)"
)

// ErrDuplicateSource is returned by InsertArticle when the unique index on
// source rejected the row.
var ErrDuplicateSource = errors.New("article with this source already stored")

type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
	strict  bool
}

// Open creates the database file if needed and ensures the schema exists.
// Writes go through a single connection; reads use their own query-only pool.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?"+busyTimeoutPragma+"&"+walPragma)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	s := &Store{writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", dbPath+"?"+busyTimeoutPragma+"&_pragma=query_only(1)")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	s.readDB = readDB
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS news (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			headline  TEXT,
			source    TEXT,
			timestamp TEXT,
			category  TEXT,
			bias      TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_news_day ON news(substr(timestamp, 1, 10));
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	// Older databases may already hold duplicate sources; the index cannot be
	// built then and ingestion falls back to check-then-insert only.
	if _, err := s.writeDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_news_source ON news(source)`); err != nil {
		logger.Warnw("unique source index unavailable, duplicates are possible under concurrent ingestion",
			"error", err)
		return nil
	}
	s.strict = true
	return nil
}

// Strict reports whether the store itself rejects duplicate sources.
func (s *Store) Strict() bool { return s.strict }

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}

// InsertArticle appends a row and returns its id. A.ID is ignored.
func (s *Store) InsertArticle(ctx context.Context, a Article) (int64, error) {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := s.writeDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO news (headline, source, timestamp, category, bias)
		VALUES (?, ?, ?, ?, ?)
	`, a.Headline, a.Source, ts.Format(TimestampLayout), nullable(a.Category), nullable(a.Bias))
	if err != nil {
		return 0, fmt.Errorf("inserting article %q: %w", a.Source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("inserting article %q: %w", a.Source, err)
	}
	if n == 0 {
		return 0, ErrDuplicateSource
	}
	return res.LastInsertId()
}

func (s *Store) ExistsBySource(ctx context.Context, source string) (bool, error) {
	var one int
	err := s.readDB.QueryRowContext(ctx, "SELECT 1 FROM news WHERE source = ? LIMIT 1", source).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking source %q: %w", source, err)
	}
	return true, nil
}

// UpdateClassification overwrites category and bias of one row. An unknown id
// is a no-op, not an error.
func (s *Store) UpdateClassification(ctx context.Context, id int64, category, bias string) error {
	_, err := s.writeDB.ExecContext(ctx,
		"UPDATE news SET category = ?, bias = ? WHERE id = ?",
		nullable(category), nullable(bias), id)
	if err != nil {
		return fmt.Errorf("classifying article %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetArticle(ctx context.Context, id int64) (Article, bool, error) {
	row := s.readDB.QueryRowContext(ctx,
		"SELECT id, headline, source, timestamp, category, bias FROM news WHERE id = ?", id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, false, nil
	}
	if err != nil {
		return Article{}, false, err
	}
	return a, true, nil
}

// ListArticles returns one page of articles, newest id first.
func (s *Store) ListArticles(ctx context.Context, opts ListOpts) (Page, error) {
	var (
		where string
		args  []interface{}
	)
	if opts.Date != "" {
		where = " WHERE substr(timestamp, 1, 10) = ?"
		args = append(args, opts.Date)
	}

	var page Page
	if err := s.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM news"+where, args...).Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("counting articles: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT id, headline, source, timestamp, category, bias FROM news" + where +
		" ORDER BY id DESC LIMIT ? OFFSET ?"
	rows, err := s.readDB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return Page{}, err
		}
		page.Articles = append(page.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("querying articles: %w", err)
	}

	page.Dates, err = s.dates(ctx)
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

func (s *Store) dates(ctx context.Context) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT DISTINCT substr(timestamp, 1, 10) AS day FROM news
		WHERE timestamp IS NOT NULL AND timestamp != ''
		ORDER BY day DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

// Stats returns the row count and the on-disk size of the database at
// dbPath, write-ahead log included.
func (s *Store) Stats(ctx context.Context, dbPath string) (int, int64, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	size := info.Size()
	if wal, err := os.Stat(dbPath + "-wal"); err == nil {
		size += wal.Size()
	}
	return count, size, nil
}

// JournalMode reports the journal mode the database file is in.
func (s *Store) JournalMode(ctx context.Context) (string, error) {
	var mode string
	if err := s.readDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return "", fmt.Errorf("reading journal mode: %w", err)
	}
	return mode, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row scanner) (Article, error) {
	var (
		a                                    Article
		headline, source, ts, category, bias sql.NullString
	)
	if err := row.Scan(&a.ID, &headline, &source, &ts, &category, &bias); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Article{}, err
		}
		return Article{}, fmt.Errorf("scanning article: %w", err)
	}
	a.Headline = headline.String
	a.Source = source.String
	a.Category = category.String
	a.Bias = bias.String
	a.Timestamp = parseTimestamp(ts.String)
	return a, nil
}

// parseTimestamp accepts both the current layout and the minute-precision
// layout written by earlier collectors. Unparseable values yield the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, legacyTimestampLayout, DateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
