/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/collection"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/raapi"
	"github.com/Another0Noob/romfilter/internal/romfile"
)

var missingOutDir string

// missingCmd represents the missing command
var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Export the catalog titles that have no matching ROM",
	Long: `Missing scans the ROM folder like filter does, without writing anything,
and saves the RetroAchievements page of every title left without a matching
file to a dated text file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		ext := romfile.DefaultExtensions()
		if len(imageExts) > 0 {
			ext = ext.WithImages(imageExts)
		}
		log := cmdLogger()
		filter := collection.NewFilter(romfile.NewScanner(ext, nil, log), log)
		rep, err := filter.Run(ctx, collection.Options{
			CatalogPath: lightPath(),
			ROMDir:      romDir,
			DryRun:      true,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d of %d titles have no matching file.\n", len(rep.Missing), rep.TotalTitles)
		if len(rep.Missing) == 0 {
			return nil
		}

		path, err := writeMissing(missingOutDir, slug, time.Now(), rep.Missing)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(missingCmd)
	f := missingCmd.Flags()
	f.StringVarP(&romDir, "roms", "r", "roms", "folder holding the ROM files")
	f.StringSliceVar(&imageExts, "ext", nil, "image extensions (default .z64,.n64,.v64)")
	f.StringVar(&missingOutDir, "out", ".", "directory of the exported list")
}

func writeMissing(dir, slug string, t time.Time, titles []match.Title) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d-%d-%d-%s-missing.txt", t.Year(), t.Month(), t.Day(), slug))

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := exportTitles(file, titles); err != nil {
		return "", err
	}
	return path, file.Close()
}

func exportTitles(w io.Writer, titles []match.Title) error {
	for _, t := range titles {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", raapi.GameURL(t.ID), t.Name); err != nil {
			return err
		}
	}
	return nil
}
