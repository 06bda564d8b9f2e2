package hashcache

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "digests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestStoreAndLookup(t *testing.T) {
	c := openTemp(t)
	mtime := time.Unix(1700000000, 123)

	require.NoError(t, c.Store("/roms/game.zip", 10, mtime, ".n64,.z64", "game.z64", "ABC"))

	entry, digest, ok := c.Lookup("/roms/game.zip", 10, mtime, ".n64,.z64")
	require.True(t, ok)
	assert.Equal(t, "game.z64", entry)
	assert.Equal(t, "ABC", digest)
}

func TestLookupInvalidatedBySizeOrTime(t *testing.T) {
	c := openTemp(t)
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, c.Store("/roms/game.z64", 10, mtime, "", "", "ABC"))

	_, _, ok := c.Lookup("/roms/game.z64", 11, mtime, "")
	assert.False(t, ok)
	_, _, ok = c.Lookup("/roms/game.z64", 10, mtime.Add(time.Second), "")
	assert.False(t, ok)
	_, _, ok = c.Lookup("/roms/other.z64", 10, mtime, "")
	assert.False(t, ok)
}

func TestLookupInvalidatedByImageSet(t *testing.T) {
	c := openTemp(t)
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, c.Store("/roms/game.zip", 10, mtime, ".bin", "game.bin", "ABC"))

	_, _, ok := c.Lookup("/roms/game.zip", 10, mtime, ".n64,.v64,.z64")
	assert.False(t, ok)
	_, _, ok = c.Lookup("/roms/game.zip", 10, mtime, "")
	assert.False(t, ok)

	entry, _, ok := c.Lookup("/roms/game.zip", 10, mtime, ".bin")
	require.True(t, ok)
	assert.Equal(t, "game.bin", entry)
}

func TestOpenAddsImagesColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE digests (
		path     TEXT PRIMARY KEY,
		size     INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		entry    TEXT NOT NULL DEFAULT '',
		digest   TEXT NOT NULL,
		hashed_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO digests VALUES ('/roms/old.zip', 1, 0, 'game.bin', 'OLD', 0)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, _, ok := c.Lookup("/roms/old.zip", 1, time.Unix(0, 0), ".z64")
	assert.False(t, ok)

	mtime := time.Unix(1, 0)
	require.NoError(t, c.Store("/roms/new.zip", 1, mtime, ".z64", "game.z64", "NEW"))
	_, digest, ok := c.Lookup("/roms/new.zip", 1, mtime, ".z64")
	require.True(t, ok)
	assert.Equal(t, "NEW", digest)

	// Reopening an up to date database leaves it alone.
	require.NoError(t, c.Close())
	c, err = Open(path)
	require.NoError(t, err)
	_, _, ok = c.Lookup("/roms/new.zip", 1, mtime, ".z64")
	assert.True(t, ok)
}

func TestStoreOverwrites(t *testing.T) {
	c := openTemp(t)
	mtime := time.Unix(1, 0)
	require.NoError(t, c.Store("/r/a.z64", 1, mtime, "", "", "OLD"))
	require.NoError(t, c.Store("/r/a.z64", 2, mtime, "", "", "NEW"))

	_, digest, ok := c.Lookup("/r/a.z64", 2, mtime, "")
	require.True(t, ok)
	assert.Equal(t, "NEW", digest)
}

func TestPruneDropsMissingFiles(t *testing.T) {
	c := openTemp(t)
	dir := t.TempDir()
	present := filepath.Join(dir, "present.z64")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	mtime := time.Unix(1, 0)
	require.NoError(t, c.Store(present, 1, mtime, "", "", "A"))
	require.NoError(t, c.Store(filepath.Join(dir, "gone.z64"), 1, mtime, "", "", "B"))

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, ok := c.Lookup(present, 1, mtime, "")
	assert.True(t, ok)
}
