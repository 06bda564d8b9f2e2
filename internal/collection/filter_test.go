package collection

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/raapi"
	"github.com/Another0Noob/romfilter/internal/romfile"
)

func digestOf(b []byte) string {
	sum := md5.Sum(b)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

type fixture struct {
	t       *testing.T
	catalog string
	roms    string
	out     string
}

func newFixture(t *testing.T, entries []catalog.Entry) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:       t,
		catalog: filepath.Join(root, "data", "n64_games_data_light.json"),
		roms:    filepath.Join(root, "roms"),
		out:     filepath.Join(root, "roms", "filtered"),
	}
	require.NoError(t, os.MkdirAll(f.roms, 0o755))
	if entries != nil {
		require.NoError(t, catalog.SaveJSON(f.catalog, entries))
	}
	return f
}

func (f *fixture) loose(name string, content []byte) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.roms, name), content, 0o644))
}

func (f *fixture) zip(name, entry string, content []byte) {
	f.t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entry)
	require.NoError(f.t, err)
	_, err = w.Write(content)
	require.NoError(f.t, err)
	require.NoError(f.t, zw.Close())
	require.NoError(f.t, os.WriteFile(filepath.Join(f.roms, name), buf.Bytes(), 0o644))
}

func (f *fixture) run() (*Report, error) {
	return NewFilter(nil, nil).Run(f.t.Context(), Options{
		CatalogPath: f.catalog,
		ROMDir:      f.roms,
		OutputDir:   f.out,
	})
}

func (f *fixture) outputs() map[string]string {
	f.t.Helper()
	entries, err := os.ReadDir(f.out)
	require.NoError(f.t, err)
	got := make(map[string]string)
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(f.out, e.Name()))
		require.NoError(f.t, err)
		got[e.Name()] = digestOf(b)
	}
	return got
}

func TestFranceWinsDespiteScanOrder(t *testing.T) {
	usa, fra := []byte("usa image"), []byte("french image")
	f := newFixture(t, []catalog.Entry{{
		GameID: 1,
		Title:  "Game",
		Hashes: []raapi.Hash{
			{MD5: digestOf(usa), Name: "Game (USA)"},
			{MD5: digestOf(fra), Name: "Game (France)"},
		},
	}})
	f.loose("game_usa.z64", usa)
	f.zip("game_fra.zip", "Game (France).z64", fra)

	rep, err := f.run()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Game (France).z64": digestOf(fra)}, f.outputs())
	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, 1, rep.Matched)
	assert.Equal(t, 1, rep.Produced)
	assert.Equal(t, 100, rep.Coverage())
	assert.Equal(t, 1, rep.Ignored())
	assert.Empty(t, rep.Missing)
	assert.Equal(t, int64(len(fra)), rep.Bytes)
}

func TestUntaggedSingleMatchIsCopied(t *testing.T) {
	rom := []byte("only version")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: strings.ToLower(digestOf(rom)), Name: "Game"}}},
		{GameID: 2, Title: "Another", Hashes: []raapi.Hash{{MD5: "00", Name: "Another (USA)"}}},
	})
	f.loose("game.n64", rom)
	f.loose("readme.txt", []byte("ignored"))

	rep, err := f.run()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"game.n64": digestOf(rom)}, f.outputs())
	assert.Equal(t, 1, rep.Scanned)
	assert.Equal(t, 50, rep.Coverage())
	assert.Equal(t, []string{"Another"}, rep.MissingNames())
	assert.Equal(t, 2, rep.Missing[0].ID)
}

func TestEmptyCatalogListsEverythingMissing(t *testing.T) {
	f := newFixture(t, []catalog.Entry{
		{GameID: 2, Title: "Zelda", Hashes: []raapi.Hash{}},
		{GameID: 1, Title: "Banjo", Hashes: nil},
	})
	f.loose("a.z64", []byte("a"))
	f.loose("b.v64", []byte("b"))

	rep, err := f.run()
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, 2, rep.Unknown)
	assert.Zero(t, rep.Matched)
	assert.Zero(t, rep.Produced)
	assert.Equal(t, []string{"Banjo", "Zelda"}, rep.MissingNames())
	assert.NoDirExists(t, f.out)
}

func TestZeroTitleCatalogCoverageIsZero(t *testing.T) {
	f := newFixture(t, []catalog.Entry{})
	f.loose("a.z64", []byte("a"))

	rep, err := f.run()
	require.NoError(t, err)
	assert.Zero(t, rep.TotalTitles)
	assert.Zero(t, rep.Coverage())
}

func TestCoverageCountsCatalogEntries(t *testing.T) {
	rom := []byte("first dump")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: digestOf(rom), Name: "Game (USA)"}}},
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: digestOf([]byte("second dump")), Name: "Game (Europe)"}}},
	})
	f.loose("game.z64", rom)

	rep, err := f.run()
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalTitles)
	assert.Equal(t, 1, rep.Produced)
	assert.Equal(t, 50, rep.Coverage())
	assert.Empty(t, rep.Missing)
}

func TestMissingCatalogAbortsWithoutOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.loose("a.z64", []byte("a"))

	_, err := f.run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrMissingArtifact))
	assert.Contains(t, err.Error(), f.catalog)
	assert.NoDirExists(t, f.out)
}

func TestBrokenArchivesAreSkipped(t *testing.T) {
	good := []byte("good")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Good", Hashes: []raapi.Hash{{MD5: digestOf(good), Name: "Good (Europe)"}}},
	})
	f.loose("broken.zip", []byte("not an archive"))
	f.zip("empty.zip", "notes.txt", []byte("x"))
	f.zip("upper.zip", "GOOD.Z64", good)
	f.loose("good.z64", good)

	rep, err := f.run()
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Scanned)
	assert.Equal(t, 3, rep.Skipped)
	assert.Equal(t, 1, rep.Produced)
	assert.Equal(t, map[string]string{"good.z64": digestOf(good)}, f.outputs())
}

func TestMaterializeFailureIsCounted(t *testing.T) {
	a, b := []byte("title a"), []byte("title b")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "A", Hashes: []raapi.Hash{{MD5: digestOf(a), Name: "A"}}},
		{GameID: 2, Title: "B", Hashes: []raapi.Hash{{MD5: digestOf(b), Name: "B"}}},
	})
	f.loose("a.z64", a)
	f.loose("b.z64", b)

	var removed bool
	filter := NewFilter(nil, nil)
	filter.OnProduce = func(index, total int, p match.Pick) {
		if p.GameID == 1 && !removed {
			require.NoError(t, os.Remove(p.Candidate.Path))
			removed = true
		}
	}
	rep, err := filter.Run(t.Context(), Options{CatalogPath: f.catalog, ROMDir: f.roms, OutputDir: f.out})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Matched)
	assert.Equal(t, 1, rep.Produced)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "A", rep.Failures[0].Title)
	assert.Equal(t, map[string]string{"b.z64": digestOf(b)}, f.outputs())
}

func TestBusyOutputDirectory(t *testing.T) {
	rom := []byte("rom")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: digestOf(rom), Name: "Game"}}},
	})
	f.loose("game.z64", rom)
	require.NoError(t, os.MkdirAll(f.out, 0o755))

	held := flock.New(filepath.Join(f.out, LockName))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = f.run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestProgressCallbacks(t *testing.T) {
	rom := []byte("rom")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: digestOf(rom), Name: "Game"}}},
	})
	f.loose("a.z64", rom)
	f.loose("b.z64", []byte("other"))

	var scanned, produced []int
	filter := NewFilter(romfile.NewScanner(romfile.DefaultExtensions(), nil, nil), nil)
	filter.OnCandidate = func(i, total int, _ romfile.Candidate) {
		assert.Equal(t, 2, total)
		scanned = append(scanned, i)
	}
	filter.OnProduce = func(i, total int, _ match.Pick) {
		assert.Equal(t, 1, total)
		produced = append(produced, i)
	}
	_, err := filter.Run(t.Context(), Options{CatalogPath: f.catalog, ROMDir: f.roms, OutputDir: f.out})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, scanned)
	assert.Equal(t, []int{1}, produced)
}

func TestDryRunWritesNothing(t *testing.T) {
	rom := []byte("rom")
	f := newFixture(t, []catalog.Entry{
		{GameID: 1, Title: "Game", Hashes: []raapi.Hash{{MD5: digestOf(rom), Name: "Game (USA)"}}},
		{GameID: 2, Title: "Other", Hashes: []raapi.Hash{{MD5: "FF", Name: "Other"}}},
	})
	f.loose("game.z64", rom)

	rep, err := NewFilter(nil, nil).Run(t.Context(), Options{
		CatalogPath: f.catalog,
		ROMDir:      f.roms,
		OutputDir:   f.out,
		DryRun:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Matched)
	assert.Zero(t, rep.Produced)
	require.Len(t, rep.Picks, 1)
	assert.Equal(t, "game.z64", rep.Picks[0].Candidate.Name())
	assert.Equal(t, []match.Title{{ID: 2, Name: "Other"}}, rep.Missing)
	assert.NoDirExists(t, f.out)
}
