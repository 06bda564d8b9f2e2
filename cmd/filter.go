/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/romfilter/internal/collection"
	"github.com/Another0Noob/romfilter/internal/hashcache"
	"github.com/Another0Noob/romfilter/internal/logging"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/romfile"
)

var (
	romDir     string
	outputDir  string
	useCache   bool
	cachePath  string
	imageExts  []string
	pruneCache bool
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep one verified ROM per catalog title",
	Long: `Filter hashes every ROM of the folder (loose images and zip or 7z
archives), keeps the files whose checksum RetroAchievements accepts, one per
title, and copies or extracts them into the output folder. When a title has
several matching files the French version wins, then European, then American.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runFilter(cmd)
		return err
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
	addFilterFlags(filterCmd)
}

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&romDir, "roms", "r", "roms", "folder holding the ROM files")
	f.StringVarP(&outputDir, "output", "o", "", "destination folder (default <roms>/filtered)")
	f.BoolVar(&useCache, "cache", false, "remember checksums between runs")
	f.StringVar(&cachePath, "cache-path", "", "checksum cache database (default in the user cache directory)")
	f.BoolVar(&pruneCache, "prune-cache", false, "drop cached checksums of files that no longer exist")
	f.StringSliceVar(&imageExts, "ext", nil, "image extensions (default .z64,.n64,.v64)")
}

func resolvedOutputDir() string {
	if outputDir != "" {
		return outputDir
	}
	return filepath.Join(romDir, "filtered")
}

func runFilter(cmd *cobra.Command) (*collection.Report, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	log := cmdLogger()

	ext := romfile.DefaultExtensions()
	if len(imageExts) > 0 {
		ext = ext.WithImages(imageExts)
	}

	var cache romfile.DigestCache
	if useCache {
		c, err := openCache(log)
		if err != nil {
			log.Warn("checksum cache disabled", logging.Error(err))
		} else {
			defer c.Close()
			cache = c
		}
	}

	fmt.Fprintln(out, "--- Filtering ROMs ---")

	var scanBar, copyBar *progress
	filter := collection.NewFilter(romfile.NewScanner(ext, cache, log), log)
	filter.OnCandidate = func(i, total int, c romfile.Candidate) {
		if scanBar == nil {
			scanBar = newProgress(out, total, "hashing")
		}
		scanBar.step(i, c.Name())
	}
	filter.OnProduce = func(i, total int, p match.Pick) {
		scanBar.finish()
		if copyBar == nil {
			copyBar = newProgress(out, total, "writing")
		}
		copyBar.step(i, p.Title)
	}

	dest := resolvedOutputDir()
	rep, err := filter.Run(ctx, collection.Options{
		CatalogPath: lightPath(),
		ROMDir:      romDir,
		OutputDir:   dest,
	})
	scanBar.finish()
	copyBar.finish()
	if err != nil {
		return nil, err
	}

	renderReport(out, rep, dest)
	return rep, nil
}

func openCache(log *slog.Logger) (*hashcache.Cache, error) {
	path := cachePath
	if path == "" {
		p, err := hashcache.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("locate checksum cache: %w", err)
		}
		path = p
	}
	c, err := hashcache.Open(path)
	if err != nil {
		return nil, err
	}
	if pruneCache {
		n, err := c.Prune()
		if err != nil {
			log.Warn("checksum cache prune failed", logging.Error(err))
		} else {
			log.Info("checksum cache pruned", slog.Int("removed", n))
		}
	}
	return c, nil
}
