package raapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// GetGameList lists the titles of a console. withAchievements restricts the
// list to titles that have an achievement set.
func (c *Client) GetGameList(ctx context.Context, consoleID int, withAchievements bool) ([]GameListEntry, error) {
	params := url.Values{}
	params.Set("i", strconv.Itoa(consoleID))
	if withAchievements {
		params.Set("f", "1")
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, "API_GetGameList.php", params, &raw); err != nil {
		return nil, err
	}
	// The service answers with an object instead of a list for unknown consoles.
	var list []GameListEntry
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return []GameListEntry{}, nil
	}
	return list, nil
}

// GetGameExtended fetches the extended metadata of a title.
func (c *Client) GetGameExtended(ctx context.Context, gameID int) (*GameExtended, error) {
	params := url.Values{}
	params.Set("i", strconv.Itoa(gameID))

	var g GameExtended
	if err := c.doJSON(ctx, "API_GetGameExtended.php", params, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGameHashes fetches the accepted checksum list of a title.
func (c *Client) GetGameHashes(ctx context.Context, gameID int) ([]Hash, error) {
	params := url.Values{}
	params.Set("i", strconv.Itoa(gameID))

	var resp hashesResponse
	if err := c.doJSON(ctx, "API_GetGameHashes.php", params, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []Hash{}, nil
	}
	return resp.Results, nil
}

// GameURL is the public page of a title.
func GameURL(gameID int) string {
	return "https://retroachievements.org/game/" + strconv.Itoa(gameID)
}
