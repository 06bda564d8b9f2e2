package catalog

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/Another0Noob/romfilter/internal/raapi"
)

var (
	ErrCredentials     = errors.New("invalid or missing credentials")
	ErrMissingArtifact = errors.New("catalog artifact not found")
)

const (
	// hackPrefix marks hacks, homebrew, prototypes and unlicensed titles.
	hackPrefix   = "~"
	subsetMarker = "[Subset"
)

// Game is one record of the full catalog.
type Game struct {
	Info   *raapi.GameExtended `json:"game_info"`
	Hashes []raapi.Hash        `json:"supported_hashes"`
}

// Entry is one record of the light catalog.
type Entry struct {
	GameID int          `json:"game_id"`
	Title  string       `json:"game_title"`
	Hashes []raapi.Hash `json:"supported_hashes"`
}

// Skip records a title the builder could not fetch.
type Skip struct {
	GameID int
	Title  string
	Err    error
}

// Result is the outcome of a catalog build.
type Result struct {
	Games   []Game
	Skipped []Skip
	// Ignored counts titles dropped by the hack/subset filter.
	Ignored int
	Listed  int
}

// Excluded reports whether a listed title is a hack, homebrew or subset entry.
func Excluded(title string) bool {
	return strings.HasPrefix(title, hackPrefix) || strings.Contains(title, subsetMarker)
}

// Paths returns the full and light artifact paths for a console slug.
func Paths(dataDir, slug string) (full, light string) {
	full = filepath.Join(dataDir, slug+"_games_data.json")
	light = filepath.Join(dataDir, slug+"_games_data_light.json")
	return full, light
}
