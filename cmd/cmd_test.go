package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/collection"
	"github.com/Another0Noob/romfilter/internal/config"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/raapi"
)

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := executeContext(t.Context())
	return buf.String(), err
}

func fakeAPI(t *testing.T, usa, fra []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tester", r.URL.Query().Get("z"))
		switch r.URL.Path {
		case "/API_GetGameList.php":
			fmt.Fprint(w, `[{"ID":1,"Title":"Game"},{"ID":2,"Title":"~Hack~ Game"},{"ID":3,"Title":"Game [Subset - Bonus]"}]`)
		case "/API_GetGameExtended.php":
			fmt.Fprint(w, `{"ID":1,"Title":"Game","ParentGameID":null,"ConsoleName":"Nintendo 64","Publisher":"Nintendo"}`)
		case "/API_GetGameHashes.php":
			fmt.Fprintf(w, `{"Results":[{"MD5":%q,"Name":"Game (USA)"},{"MD5":%q,"Name":"Game (France)","Labels":["nointro"]}]}`,
				strings.ToLower(md5Hex(usa)), strings.ToLower(md5Hex(fra)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunFetchesAndFiltersPreferringFrance(t *testing.T) {
	t.Setenv(config.EnvUsername, "tester")
	t.Setenv(config.EnvAPIKey, "secret")

	usa, fra := []byte("usa rom"), []byte("french rom")
	server := fakeAPI(t, usa, fra)

	root := t.TempDir()
	roms := filepath.Join(root, "roms")
	out := filepath.Join(root, "out")
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(roms, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(roms, "game_usa.z64"), usa, 0o644))

	var zbuf bytes.Buffer
	zw := zip.NewWriter(&zbuf)
	w, err := zw.Create("Game (France).z64")
	require.NoError(t, err)
	_, err = w.Write(fra)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(roms, "game_fra.zip"), zbuf.Bytes(), 0o644))

	output, err := execute(t, "run",
		"--config", filepath.Join(root, "none.ini"),
		"--api-url", server.URL,
		"--data-dir", data,
		"--slug", "n64",
		"--roms", roms,
		"--output", out,
	)
	require.NoError(t, err, output)

	full, light := catalog.Paths(data, "n64")
	assert.FileExists(t, full)
	entries, err := catalog.LoadLight(light)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Game", entries[0].Title)

	files, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, files, 1)
	got, err := os.ReadFile(filepath.Join(out, files[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, fra, got)

	assert.Contains(t, output, "Catalog coverage")
	assert.Contains(t, output, "100%")
}

func TestLogFileIsClosedAfterCommand(t *testing.T) {
	data := t.TempDir()
	_, light := catalog.Paths(data, "n64")
	require.NoError(t, catalog.SaveJSON(light, []catalog.Entry{{GameID: 10, Title: "Super Mario 64"}}))
	logPath := filepath.Join(t.TempDir(), "logs", "romfilter.log")
	t.Cleanup(func() { logFile, logLevel = "", "info" })

	_, err := execute(t, "search", "--offline", "--data-dir", data, "--slug", "n64",
		"--log-level", "debug", "--log-file", logPath, "mario")
	require.NoError(t, err)

	assert.Nil(t, logCloser)
	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "DEBUG starting")
	assert.Contains(t, string(b), `command="romfilter search"`)
}

func TestSignalContextCancelsOnInterrupt(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt cannot be sent to the own process on windows")
	}
	ctx, stop := signalContext(t.Context())
	defer stop()

	self, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, self.Signal(os.Interrupt))

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by interrupt")
	}
}

func TestFetchWithoutCredentials(t *testing.T) {
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvAPIKey, "")

	_, err := execute(t, "fetch", "--config", filepath.Join(t.TempDir(), "none.ini"), "--data-dir", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrCredentials))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), config.EnvAPIKey)
}

func TestFilterWithoutCatalogReportsPath(t *testing.T) {
	data := t.TempDir()
	_, err := execute(t, "filter", "--data-dir", data, "--slug", "n64", "--roms", t.TempDir(), "--output", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrMissingArtifact))
	_, light := catalog.Paths(data, "n64")
	assert.Contains(t, err.Error(), light)
}

func TestSearchOffline(t *testing.T) {
	data := t.TempDir()
	_, light := catalog.Paths(data, "n64")
	require.NoError(t, catalog.SaveJSON(light, []catalog.Entry{
		{GameID: 10, Title: "Super Mario 64"},
		{GameID: 11, Title: "Wave Race 64"},
	}))

	output, err := execute(t, "search", "--offline", "--data-dir", data, "--slug", "n64", "mario")
	require.NoError(t, err)
	assert.Contains(t, output, "Super Mario 64")
	assert.Contains(t, output, "10")
	assert.NotContains(t, output, "Wave Race")
}

func TestWriteMissing(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	path, err := writeMissing(dir, "n64", day, []match.Title{{ID: 7, Name: "Banjo"}, {ID: 3, Name: "Zelda"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-3-5-n64-missing.txt"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raapi.GameURL(7)+"\tBanjo\n"+raapi.GameURL(3)+"\tZelda\n", string(b))
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, &collection.Report{
		Scanned:     3,
		Matched:     1,
		Produced:    1,
		Bytes:       2048,
		TotalTitles: 4,
		Failures:    []collection.Failure{{Title: "Broken", File: "broken.zip", Err: errors.New("bad crc")}},
		Missing:     []match.Title{{ID: 2, Name: "Absent"}},
	}, "/tmp/out")

	out := buf.String()
	assert.Contains(t, out, "25% (1/4)")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "bad crc")
	assert.Contains(t, out, "  - Absent")
	assert.Contains(t, out, "/tmp/out")
}

func TestRenderGameInfoMarksPreferred(t *testing.T) {
	var buf bytes.Buffer
	renderGameInfo(&buf, &raapi.GameExtended{ID: 1, Title: "Game"}, []raapi.Hash{
		{MD5: "aa", Name: "Game (USA)"},
		{MD5: "bb", Name: "Game (Europe) (En,Fr)"},
	})

	var preferredLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "*") {
			preferredLine = line
		}
	}
	assert.Contains(t, preferredLine, "BB")
	assert.Contains(t, buf.String(), "N/A")
}

func TestProgressIsSilentOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, 10, "hashing")
	p.step(3, "x")
	p.finish()
	assert.Empty(t, buf.String())
	assert.False(t, isTerminal(&buf))
}
