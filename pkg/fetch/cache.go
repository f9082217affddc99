package fetch

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/textchain/textchain/pkg/models"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS pages (
	url        TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	language   TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMP NOT NULL
);`

// Cache is a local page cache backed by SQLite. Entries older than the TTL
// are treated as absent and overwritten on the next fetch.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

func NewCache(path string, ttl time.Duration) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create page cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure page cache: %w", err)
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize page cache schema: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Get(pageURL string) (*Article, error) {
	row := c.db.QueryRow(
		"SELECT url, title, text, language, fetched_at FROM pages WHERE url = ?",
		pageURL,
	)

	var article Article
	err := row.Scan(
		&article.URL,
		&article.Title,
		&article.Text,
		&article.Language,
		&article.FetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("page " + pageURL)
	}
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 && time.Since(article.FetchedAt) > c.ttl {
		return nil, models.NewNotFoundError("page " + pageURL)
	}

	return &article, nil
}

func (c *Cache) Put(article *Article) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO pages (url, title, text, language, fetched_at) VALUES (?, ?, ?, ?, ?)",
		article.URL,
		article.Title,
		article.Text,
		article.Language,
		article.FetchedAt,
	)
	return err
}

func (c *Cache) Close() error {
	return c.db.Close()
}
