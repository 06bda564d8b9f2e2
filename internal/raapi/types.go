package raapi

import (
	"encoding/json"
	"strings"
)

// Auth holds the two credential parameters attached to every request.
type Auth struct {
	Username string
	APIKey   string
}

// Valid reports whether both credentials are present.
func (a Auth) Valid() bool {
	return strings.TrimSpace(a.Username) != "" && strings.TrimSpace(a.APIKey) != ""
}

// GameListEntry is one row of API_GetGameList.
type GameListEntry struct {
	ID              int    `json:"ID"`
	Title           string `json:"Title"`
	ConsoleID       int    `json:"ConsoleID"`
	ConsoleName     string `json:"ConsoleName"`
	ImageIcon       string `json:"ImageIcon,omitempty"`
	NumAchievements int    `json:"NumAchievements"`
	NumLeaderboards int    `json:"NumLeaderboards"`
	Points          int    `json:"Points"`
	DateModified    string `json:"DateModified,omitempty"`
}

// Hash is one accepted ROM checksum for a game.
type Hash struct {
	MD5      string   `json:"MD5"`
	Name     string   `json:"Name"`
	Labels   []string `json:"Labels,omitempty"`
	PatchURL *string  `json:"PatchUrl,omitempty"`
}

// GameExtended is the API_GetGameExtended payload. The raw document is kept
// so the full catalog can persist every field the service returns.
type GameExtended struct {
	ID           int    `json:"ID"`
	Title        string `json:"Title"`
	ParentGameID *int   `json:"ParentGameID"`
	ConsoleID    int    `json:"ConsoleID"`
	ConsoleName  string `json:"ConsoleName"`
	Publisher    string `json:"Publisher"`
	Developer    string `json:"Developer"`
	Genre        string `json:"Genre"`
	Released     string `json:"Released"`

	NumAchievements int `json:"NumAchievements"`

	Raw json.RawMessage `json:"-"`
}

func (g *GameExtended) UnmarshalJSON(b []byte) error {
	type plain GameExtended
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*g = GameExtended(p)
	g.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (g GameExtended) MarshalJSON() ([]byte, error) {
	if len(g.Raw) > 0 {
		return g.Raw, nil
	}
	type plain GameExtended
	return json.Marshal(plain(g))
}

// hashesResponse wraps API_GetGameHashes.
type hashesResponse struct {
	Results []Hash `json:"Results"`
}
