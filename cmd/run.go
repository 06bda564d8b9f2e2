package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/romfile"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the catalog, then filter the ROM folder",
	Long: `Run chains fetch and filter. Filtering is skipped when the ROM folder
does not exist or holds no ROM files, so the command can be used to refresh
the catalog alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := runFetch(cmd); err != nil {
			return err
		}

		ext := romfile.DefaultExtensions()
		if len(imageExts) > 0 {
			ext = ext.WithImages(imageExts)
		}
		candidates, err := romfile.NewScanner(ext, nil, nil).List(romDir)
		if err != nil || len(candidates) == 0 {
			cmdLogger().Info("no ROM files to filter", slog.String("dir", romDir))
			fmt.Fprintf(cmd.OutOrStdout(), "No ROM files in %s, skipping filter.\n", romDir)
			return nil
		}

		_, err = runFilter(cmd)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&stripAchievements, "strip-achievements", false, "drop achievement details from the full catalog")
	addFilterFlags(runCmd)
}
