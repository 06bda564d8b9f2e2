package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Another0Noob/romfilter/internal/raapi"
)

// Light projects the full catalog onto official releases: titles with no
// parent title and no hack prefix.
func Light(games []Game) []Entry {
	out := make([]Entry, 0, len(games))
	for _, g := range games {
		if g.Info == nil || g.Info.ParentGameID != nil || strings.HasPrefix(g.Info.Title, hackPrefix) {
			continue
		}
		hashes := g.Hashes
		if hashes == nil {
			hashes = []raapi.Hash{}
		}
		out = append(out, Entry{GameID: g.Info.ID, Title: g.Info.Title, Hashes: hashes})
	}
	return out
}

// StripAchievements returns a copy of games without the Achievements field in
// each raw metadata document.
func StripAchievements(games []Game) ([]Game, error) {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = g
		if g.Info == nil || len(g.Info.Raw) == 0 {
			continue
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(g.Info.Raw, &doc); err != nil {
			return nil, fmt.Errorf("game %d: %w", g.Info.ID, err)
		}
		if _, ok := doc["Achievements"]; !ok {
			continue
		}
		delete(doc, "Achievements")
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", g.Info.ID, err)
		}
		info := *g.Info
		info.Raw = raw
		out[i].Info = &info
	}
	return out, nil
}

// SaveJSON writes v as indented JSON, creating the parent directory.
func SaveJSON(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// LoadLight reads the light catalog. A missing file yields ErrMissingArtifact.
func LoadLight(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}
