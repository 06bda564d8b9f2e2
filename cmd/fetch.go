package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/raapi"
)

var stripAchievements bool

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the console catalog from RetroAchievements",
	Long: `Fetch lists every title of the console that has achievements, skips hacks,
homebrew and subsets, and downloads each title's metadata and accepted
checksums. Two files are written to the data directory: the full catalog
and a light catalog used by the filter command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runFetch(cmd)
		return err
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&stripAchievements, "strip-achievements", false, "drop achievement details from the full catalog")
}

func runFetch(cmd *cobra.Command) (*catalog.Result, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "--- Requesting RetroAchievements Catalog ---")

	var bar *progress
	builder := catalog.NewBuilder(client, cmdLogger())
	builder.OnTitle = func(i, total int, t raapi.GameListEntry) {
		if bar == nil {
			bar = newProgress(out, total, "fetching")
		}
		bar.step(i, t.Title)
	}
	res, err := builder.Build(ctx, consoleID)
	bar.finish()
	if err != nil {
		return res, err
	}

	games := res.Games
	if stripAchievements {
		if games, err = catalog.StripAchievements(games); err != nil {
			return res, err
		}
	}

	full, light := catalog.Paths(dataDir, slug)
	if err := catalog.SaveJSON(full, games); err != nil {
		return res, err
	}
	lightEntries := catalog.Light(res.Games)
	if err := catalog.SaveJSON(light, lightEntries); err != nil {
		return res, err
	}

	renderFetchSummary(out, res, len(lightEntries), full, light)
	return res, nil
}
