// Package collection selects and materializes the local ROM files that match
// the light catalog, one file per title.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/logging"
	"github.com/Another0Noob/romfilter/internal/match"
	"github.com/Another0Noob/romfilter/internal/romfile"
)

// LockName is the lock file held in the output directory while writing.
const LockName = ".romfilter.lock"

// ErrBusy is returned when another run holds the output directory lock.
var ErrBusy = errors.New("output directory is locked by another run")

// Options locates the inputs and output of a filter run.
type Options struct {
	CatalogPath string
	ROMDir      string
	OutputDir   string
	// DryRun scans and selects without writing anything.
	DryRun bool
}

// Filter runs the collection pipeline.
type Filter struct {
	Logger  *slog.Logger
	Scanner *romfile.Scanner

	// OnCandidate is called before each candidate is hashed.
	OnCandidate func(index, total int, c romfile.Candidate)
	// OnProduce is called before each kept title is materialized.
	OnProduce func(index, total int, p match.Pick)
}

// NewFilter returns a filter using scanner, which may be nil for the default
// extensions without a digest cache.
func NewFilter(scanner *romfile.Scanner, logger *slog.Logger) *Filter {
	if scanner == nil {
		scanner = romfile.NewScanner(romfile.DefaultExtensions(), nil, logger)
	}
	return &Filter{
		Logger:  logging.NewComponentLogger(logger, "filter"),
		Scanner: scanner,
	}
}

// Run loads the catalog, scans opts.ROMDir, keeps at most one candidate per
// title and writes the kept files into opts.OutputDir. Only a missing or
// unreadable catalog, an unusable ROM directory or output directory abort the
// run; per-file failures are counted in the report.
func (f *Filter) Run(ctx context.Context, opts Options) (*Report, error) {
	logger := f.logger()

	entries, err := catalog.LoadLight(opts.CatalogPath)
	if err != nil {
		return nil, err
	}
	idx := match.BuildPriorityIndex(entries)
	logger.Info("catalog loaded",
		slog.String("path", opts.CatalogPath),
		slog.Int("titles", len(idx.Order)),
		slog.Int("digests", len(idx.Names)))

	candidates, err := f.Scanner.List(opts.ROMDir)
	if err != nil {
		return nil, err
	}

	// Coverage counts catalog entries, so a game id listed twice weighs twice.
	rep := &Report{TotalTitles: len(entries)}
	sel := match.NewSelection(idx)
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.OnCandidate != nil {
			f.OnCandidate(i+1, len(candidates), c)
		}
		rep.Scanned++

		if err := f.Scanner.Digest(&c); err != nil {
			rep.Skipped++
			logger.Warn("skipping candidate",
				slog.String("file", c.Name()),
				logging.Error(err))
			continue
		}

		decision := sel.Offer(c)
		switch decision {
		case match.Unknown:
			rep.Unknown++
			logger.Debug("unknown digest", slog.String("file", c.Name()), slog.String("md5", c.Digest))
		case match.Replaced:
			logger.Info("preferred version found",
				slog.String("file", c.Name()),
				slog.String("name", idx.Names[match.NormalizeDigest(c.Digest)]))
		default:
			logger.Debug("candidate offered",
				slog.String("file", c.Name()),
				slog.String("decision", decision.String()))
		}
	}
	rep.Matched = sel.Len()

	picks := sel.Picks()
	rep.Picks = picks
	if len(picks) > 0 && !opts.DryRun {
		if err := f.produce(ctx, opts.OutputDir, picks, rep); err != nil {
			return nil, err
		}
	}

	for _, id := range idx.Order {
		if !sel.Has(id) {
			rep.Missing = append(rep.Missing, match.Title{ID: id, Name: idx.Titles[id]})
		}
	}
	rep.sortMissing()

	logger.Info("filter complete",
		slog.Int("scanned", rep.Scanned),
		slog.Int("matched", rep.Matched),
		slog.Int("produced", rep.Produced),
		slog.Int("failed", len(rep.Failures)),
		slog.Int("coverage_pct", rep.Coverage()))
	return rep, nil
}

func (f *Filter) produce(ctx context.Context, outDir string, picks []match.Pick, rep *Report) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	lock := flock.New(filepath.Join(outDir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", outDir, ErrBusy)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			f.logger().Warn("failed to release output lock", logging.Error(err))
		}
		_ = os.Remove(lock.Path())
	}()

	for i, p := range picks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.OnProduce != nil {
			f.OnProduce(i+1, len(picks), p)
		}

		out, err := romfile.Materialize(p.Candidate, outDir)
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{Title: p.Title, File: p.Candidate.Name(), Err: err})
			f.logger().Error("materialize failed",
				slog.Int("game_id", p.GameID),
				slog.String("file", p.Candidate.Name()),
				logging.Error(err))
			continue
		}
		rep.Produced++
		rep.Bytes += out.Bytes
		rep.Outputs = append(rep.Outputs, Produced{Title: p.Title, Name: p.Name, Path: out.Path, Bytes: out.Bytes})
	}
	return nil
}

func (f *Filter) logger() *slog.Logger {
	if f.Logger == nil {
		return logging.NewNop()
	}
	return f.Logger
}
