// Package hashcache stores candidate digests in SQLite so unchanged files are
// not re-hashed on the next run. A cached row is valid only while the file's
// size and modification time are unchanged and, for archives, while the same
// image extensions are in use.
package hashcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS digests (
	path     TEXT PRIMARY KEY,
	size     INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	images   TEXT NOT NULL DEFAULT '',
	entry    TEXT NOT NULL DEFAULT '',
	digest   TEXT NOT NULL,
	hashed_at INTEGER NOT NULL
);`

// Databases created before the images column existed.
const addImages = `ALTER TABLE digests ADD COLUMN images TEXT NOT NULL DEFAULT ''`

// Cache is a digest cache backed by a SQLite file.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('digests') WHERE name = 'images'`).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = db.Exec(addImages)
	}
	return err
}

// DefaultPath is the cache location under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "romfilter", "digests.db"), nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached digest for path if size, modTime and the image
// extension set still match.
func (c *Cache) Lookup(path string, size int64, modTime time.Time, images string) (entry, digest string, ok bool) {
	abs := absPath(path)
	var (
		cachedSize   int64
		cachedTime   int64
		cachedImages string
	)
	err := c.db.QueryRow(
		`SELECT size, mod_time, images, entry, digest FROM digests WHERE path = ?`, abs,
	).Scan(&cachedSize, &cachedTime, &cachedImages, &entry, &digest)
	if err != nil {
		return "", "", false
	}
	if cachedSize != size || cachedTime != modTime.UnixNano() || cachedImages != images {
		return "", "", false
	}
	return entry, digest, true
}

// Store records the digest of path.
func (c *Cache) Store(path string, size int64, modTime time.Time, images, entry, digest string) error {
	_, err := c.db.Exec(
		`INSERT INTO digests (path, size, mod_time, images, entry, digest, hashed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mod_time = excluded.mod_time,
		   images = excluded.images,
		   entry = excluded.entry,
		   digest = excluded.digest,
		   hashed_at = excluded.hashed_at`,
		absPath(path), size, modTime.UnixNano(), images, entry, digest, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store digest for %s: %w", path, err)
	}
	return nil
}

// Prune removes rows whose files no longer exist and returns how many went.
func (c *Cache) Prune() (int, error) {
	rows, err := c.db.Query(`SELECT path FROM digests`)
	if err != nil {
		return 0, err
	}
	var gone []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			gone = append(gone, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range gone {
		if _, err := c.db.Exec(`DELETE FROM digests WHERE path = ?`, p); err != nil {
			return 0, fmt.Errorf("prune %s: %w", p, err)
		}
	}
	return len(gone), nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
