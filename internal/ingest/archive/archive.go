// Package archive keeps an append-only SQLite record of ingestion passes
// and their items, with FTS5 full-text search over titles and bodies. It is
// write-behind storage: the live corpus is never rebuilt from it.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Item is an archived content item.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"content"`
	URL         string     `json:"url"`
	Category    string     `json:"category,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"created_at,omitempty"`
	Replies     int        `json:"replies,omitempty"`
	Likes       int        `json:"likes,omitempty"`
	PassID      string     `json:"pass_id"`
}

// Pass is one ingestion pass with its items.
type Pass struct {
	ID         string
	Source     string
	Category   string
	Window     string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Items      []Item
}

// Stats summarises the archive contents.
type Stats struct {
	Passes       int       `json:"passes"`
	FailedPasses int       `json:"failed_passes"`
	Items        int       `json:"items"`
	LastPassAt   time.Time `json:"last_pass_at,omitzero"`
}

// Archive is a SQLite-backed pass archive. Safe for concurrent use.
type Archive struct {
	db   *sql.DB
	path string
}

// Open opens or creates the archive at cfg.Path and migrates its schema.
func Open(ctx context.Context, cfg Config) (*Archive, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		cfg.Path = defaultDBFile
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("archive: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", cfg.Path, err)
	}
	// One connection so PRAGMAs apply to every statement.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Archive{db: db, path: cfg.Path}, nil
}

// Path returns the database file path.
func (a *Archive) Path() string { return a.path }

// Ping verifies the database and the FTS5 table are reachable.
func (a *Archive) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("archive: ping: %w", err)
	}
	var n int
	if err := a.db.QueryRowContext(ctx, "SELECT count(*) FROM items_fts").Scan(&n); err != nil {
		return fmt.Errorf("archive: FTS5 not available: %w", err)
	}
	return nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record stores a pass and its items in one transaction.
func (a *Archive) Record(ctx context.Context, p Pass) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO passes (id, source, category, date_window, started_at, finished_at, items, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Source, p.Category, p.Window,
		p.StartedAt.UTC().Format(time.RFC3339Nano),
		p.FinishedAt.UTC().Format(time.RFC3339Nano),
		len(p.Items), p.Error,
	); err != nil {
		return fmt.Errorf("archive: insert pass %s: %w", p.ID, err)
	}

	for i, it := range p.Items {
		published := ""
		if it.PublishedAt != nil {
			published = it.PublishedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO items (pass_id, seq, item_id, title, body, url, category, author, published_at, replies, likes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, it.ID, it.Title, it.Body, it.URL, it.Category, it.Author, published, it.Replies, it.Likes,
		); err != nil {
			return fmt.Errorf("archive: insert item %d of pass %s: %w", i, p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit pass %s: %w", p.ID, err)
	}
	return nil
}

// Search returns up to topK archived items matching an FTS5 query, best
// match first. An empty query or non-positive topK returns nothing.
func (a *Archive) Search(ctx context.Context, query string, topK int) ([]Item, error) {
	if query == "" || topK <= 0 {
		return nil, nil
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT i.item_id, i.title, i.body, i.url, i.category, i.author,
		       i.published_at, i.replies, i.likes, i.pass_id
		FROM items_fts
		JOIN items i ON i.rowid = items_fts.rowid
		WHERE items_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		query, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Item
	for rows.Next() {
		var (
			it        Item
			published string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Body, &it.URL, &it.Category, &it.Author,
			&published, &it.Replies, &it.Likes, &it.PassID); err != nil {
			return nil, fmt.Errorf("archive: scan item: %w", err)
		}
		if published != "" {
			if ts, err := time.Parse(time.RFC3339Nano, published); err == nil {
				it.PublishedAt = &ts
			}
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate items: %w", err)
	}
	return out, nil
}

// Stats returns pass and item counts.
func (a *Archive) Stats(ctx context.Context) (Stats, error) {
	var (
		s    Stats
		last sql.NullString
	)
	if err := a.db.QueryRowContext(ctx, `
		SELECT count(*), COALESCE(SUM(error != ''), 0), MAX(finished_at) FROM passes`,
	).Scan(&s.Passes, &s.FailedPasses, &last); err != nil {
		return Stats{}, fmt.Errorf("archive: count passes: %w", err)
	}
	if err := a.db.QueryRowContext(ctx, "SELECT count(*) FROM items").Scan(&s.Items); err != nil {
		return Stats{}, fmt.Errorf("archive: count items: %w", err)
	}
	if last.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			s.LastPassAt = ts
		}
	}
	return s, nil
}
