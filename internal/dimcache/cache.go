// Package dimcache persists the natural dimensions of images so a layout can
// reserve space for tiles before their pixels arrive.
package dimcache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/photogallery/internal/catalog"
)

// DefaultBatchSize is the number of entries to buffer before flushing to the database.
const DefaultBatchSize = 64

// Entry is the cached size of one image source.
type Entry struct {
	Src       string
	Width     int
	Height    int
	Format    string
	UpdatedAt time.Time
}

// Cache is a SQLite-backed dimension cache. It is safe for concurrent use.
type Cache struct {
	db        *sql.DB
	path      string
	batch     map[string]Entry
	batchSize int
	mu        sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Cache{
		db:        db,
		path:      path,
		batch:     make(map[string]Entry, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS dimensions (
			src TEXT PRIMARY KEY,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			format TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Put records the dimensions of src. Entries are buffered and written in batches.
func (c *Cache) Put(src string, width, height int, format string) error {
	if src == "" || width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions for %q: %dx%d", src, width, height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch[src] = Entry{
		Src:       src,
		Width:     width,
		Height:    height,
		Format:    format,
		UpdatedAt: time.Now(),
	}
	if len(c.batch) >= c.batchSize {
		return c.flushLocked()
	}
	return nil
}

// Get returns the cached entry for src.
func (c *Cache) Get(src string) (Entry, bool, error) {
	c.mu.Lock()
	if e, ok := c.batch[src]; ok {
		c.mu.Unlock()
		return e, true, nil
	}
	c.mu.Unlock()

	var e Entry
	var updated int64
	err := c.db.QueryRow(
		"SELECT src, width, height, format, updated_at FROM dimensions WHERE src = ?", src,
	).Scan(&e.Src, &e.Width, &e.Height, &e.Format, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query %q: %w", src, err)
	}
	e.UpdatedAt = time.Unix(updated, 0)
	return e, true, nil
}

// Fill returns a copy of images with unknown sizes filled from the cache,
// and the number of images that were filled.
func (c *Cache) Fill(images []catalog.Image) ([]catalog.Image, int, error) {
	out := make([]catalog.Image, len(images))
	copy(out, images)

	filled := 0
	for i, img := range out {
		if img.HasSize() {
			continue
		}
		e, ok, err := c.Get(img.Src)
		if err != nil {
			return nil, filled, err
		}
		if ok {
			out[i] = img.WithSize(e.Width, e.Height)
			filled++
		}
	}
	return out, filled, nil
}

// Len returns the number of cached entries, including buffered ones.
func (c *Cache) Len() (int, error) {
	if err := c.Flush(); err != nil {
		return 0, err
	}
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM dimensions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Flush writes any buffered entries to the database.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// flushLocked writes buffered entries. Must be called with lock held.
func (c *Cache) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO dimensions (src, width, height, format, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(src) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			format = excluded.format,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.batch {
		if _, err := stmt.Exec(e.Src, e.Width, e.Height, e.Format, e.UpdatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to insert %q: %w", e.Src, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	clear(c.batch)
	return nil
}

// Close flushes any remaining entries and closes the database.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		c.db.Close()
		return err
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
