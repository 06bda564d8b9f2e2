package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/match"
)

var (
	searchOffline bool
	searchAll     bool
	searchLimit   int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <title>",
	Short: "Find a title and its RetroAchievements id",
	Long: `Search looks a title up in the console's game list, by substring first and
then by fuzzy matching. With --offline the light catalog is searched instead
of the API.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		titles, err := searchTitles(ctx)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		hits := match.SearchTitles(titles, query, searchLimit)
		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintf(out, "No title matches %q.\n", query)
			return nil
		}

		rows := make([][]string, 0, len(hits))
		for _, h := range hits {
			kind := "fuzzy"
			if h.Exact {
				kind = "contains"
			}
			rows = append(rows, []string{strconv.Itoa(h.ID), h.Name, kind})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Match"}, rows, []columnAlignment{alignRight}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchOffline, "offline", false, "search the light catalog instead of the API")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "include titles without achievements")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results (0 for all)")
}

func searchTitles(ctx context.Context) ([]match.Title, error) {
	if searchOffline {
		entries, err := catalog.LoadLight(lightPath())
		if err != nil {
			return nil, err
		}
		titles := make([]match.Title, 0, len(entries))
		for _, e := range entries {
			titles = append(titles, match.Title{ID: e.GameID, Name: e.Title})
		}
		return titles, nil
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}
	games, err := client.GetGameList(ctx, consoleID, !searchAll)
	if err != nil {
		return nil, fmt.Errorf("list games for console %d: %w", consoleID, err)
	}
	titles := make([]match.Title, 0, len(games))
	for _, g := range games {
		titles = append(titles, match.Title{ID: g.ID, Name: g.Title})
	}
	return titles, nil
}
