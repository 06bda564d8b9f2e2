package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/raapi"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <game-id>",
	Short: "Show a title's metadata and accepted checksums",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid game id %q", args[0])
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		game, err := client.GetGameExtended(ctx, id)
		if err != nil {
			return fmt.Errorf("game info %d: %w", id, err)
		}
		hashes, err := client.GetGameHashes(ctx, id)
		if err != nil {
			return fmt.Errorf("game hashes %d: %w", id, err)
		}

		renderGameInfo(cmd.OutOrStdout(), game, hashes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func renderGameInfo(w io.Writer, game *raapi.GameExtended, hashes []raapi.Hash) {
	rows := [][]string{
		{"Game", orNA(game.Title)},
		{"Console", orNA(game.ConsoleName)},
		{"Publisher", orNA(game.Publisher)},
		{"Developer", orNA(game.Developer)},
		{"Genre", orNA(game.Genre)},
		{"Release date", orNA(game.Released)},
		{"Achievements", strconv.Itoa(game.NumAchievements)},
		{"Page", raapi.GameURL(game.ID)},
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))

	if len(hashes) == 0 {
		fmt.Fprintln(w, "No supported versions found.")
		return
	}

	preferred := match.BuildPriorityIndex([]catalog.Entry{{GameID: game.ID, Title: game.Title, Hashes: hashes}})
	best, _ := preferred.PreferredFor(game.ID)

	versions := make([][]string, 0, len(hashes))
	for i, h := range hashes {
		mark := ""
		if best != "" && match.NormalizeDigest(h.MD5) == best {
			mark = "*"
		}
		patch := ""
		if h.PatchURL != nil {
			patch = *h.PatchURL
		}
		versions = append(versions, []string{
			strconv.Itoa(i + 1),
			mark,
			orNA(h.Name),
			match.NormalizeDigest(h.MD5),
			strings.Join(h.Labels, ", "),
			patch,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Pref", "Supported version", "MD5", "Labels", "Patch"},
		versions,
		[]columnAlignment{alignRight},
	))
}
