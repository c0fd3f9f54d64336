// Package cache keeps loaded items in SQLite so the timeline opens without
// waiting on every connector.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CrestNiraj12/tapestry/domain"
)

const DefaultLimit = 200

// Cache wraps the SQLite item table.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	c := &Cache{db: db, now: time.Now}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS items (
    feed TEXT NOT NULL,
    uri TEXT NOT NULL,
    date INTEGER NOT NULL,
    data TEXT NOT NULL,
    fetched_at INTEGER NOT NULL,
    PRIMARY KEY (feed, uri)
);
CREATE INDEX IF NOT EXISTS items_date ON items (date DESC);
`)
	return err
}

// Save upserts items for feed and returns how many rows were written.
func (c *Cache) Save(ctx context.Context, feed string, items []domain.Item) (int, error) {
	if feed == "" {
		return 0, domain.ErrMissingName
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO items (feed, uri, date, data, fetched_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (feed, uri) DO UPDATE SET
    date = excluded.date,
    data = excluded.data,
    fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	fetched := c.now().UnixNano()
	n := 0
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return n, err
		}
		data, err := json.Marshal(it)
		if err != nil {
			return n, fmt.Errorf("encode %q: %w", it.URI, err)
		}
		if _, err := stmt.ExecContext(ctx, feed, it.URI, it.Date.UnixNano(), string(data), fetched); err != nil {
			return n, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Query selects cached entries. Zero values mean every feed, DefaultLimit
// entries and no upper date bound.
type Query struct {
	Feed   string
	Limit  int
	Before time.Time
}

// List returns entries newest first.
func (c *Cache) List(ctx context.Context, q Query) ([]domain.Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	before := int64(1<<63 - 1)
	if !q.Before.IsZero() {
		before = q.Before.UnixNano()
	}

	var rows *sql.Rows
	var err error
	if q.Feed == "" {
		rows, err = c.db.QueryContext(ctx,
			`SELECT feed, data FROM items WHERE date < ? ORDER BY date DESC, uri LIMIT ?`,
			before, limit)
	} else {
		rows, err = c.db.QueryContext(ctx,
			`SELECT feed, data FROM items WHERE feed = ? AND date < ? ORDER BY date DESC, uri LIMIT ?`,
			q.Feed, before, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var feed, data string
		if err := rows.Scan(&feed, &data); err != nil {
			return nil, err
		}
		var it domain.Item
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			return nil, fmt.Errorf("decode cached item of %s: %w", feed, err)
		}
		entries = append(entries, domain.Entry{Feed: feed, Item: it})
	}
	return entries, rows.Err()
}

// Prune deletes items dated before cutoff.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE date < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteFeed drops every item of feed.
func (c *Cache) DeleteFeed(ctx context.Context, feed string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE feed = ?`, feed)
	return err
}

// Feeds lists the feeds that have cached items.
func (c *Cache) Feeds(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT feed FROM items ORDER BY feed`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var feeds []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}
