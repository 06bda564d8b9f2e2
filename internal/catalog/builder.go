package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Another0Noob/romfilter/internal/logging"
	"github.com/Another0Noob/romfilter/internal/raapi"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 30 * time.Second
)

// Source is the subset of the RetroAchievements API the builder needs.
type Source interface {
	GetGameList(ctx context.Context, consoleID int, withAchievements bool) ([]raapi.GameListEntry, error)
	GetGameExtended(ctx context.Context, gameID int) (*raapi.GameExtended, error)
	GetGameHashes(ctx context.Context, gameID int) ([]raapi.Hash, error)
}

// Builder fetches a console's catalog one title at a time.
type Builder struct {
	Source Source
	Logger *slog.Logger

	// MaxRetries bounds the retries after a rate-limit answer; the n-th retry
	// waits Backoff*n.
	MaxRetries int
	Backoff    time.Duration
	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnTitle is called before each title is fetched.
	OnTitle func(index, total int, title raapi.GameListEntry)
}

// NewBuilder returns a builder with the default retry policy.
func NewBuilder(src Source, logger *slog.Logger) *Builder {
	return &Builder{
		Source:     src,
		Logger:     logging.NewComponentLogger(logger, "catalog"),
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
	}
}

// Build lists the console's titles and fetches metadata and hashes for every
// title that passes the hack/subset filter. Only a failure to list titles is
// fatal; a single title's failure is recorded in Result.Skipped.
func (b *Builder) Build(ctx context.Context, consoleID int) (*Result, error) {
	logger := b.logger()

	listed, err := b.Source.GetGameList(ctx, consoleID, true)
	if err != nil {
		if errors.Is(err, raapi.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
		}
		return nil, fmt.Errorf("list games for console %d: %w", consoleID, err)
	}

	titles := make([]raapi.GameListEntry, 0, len(listed))
	for _, g := range listed {
		if Excluded(g.Title) {
			continue
		}
		titles = append(titles, g)
	}

	res := &Result{
		Games:   make([]Game, 0, len(titles)),
		Listed:  len(listed),
		Ignored: len(listed) - len(titles),
	}
	logger.Info("game list retrieved",
		slog.Int("console", consoleID),
		slog.Int("listed", res.Listed),
		slog.Int("ignored", res.Ignored),
		slog.Int("to_process", len(titles)))

	for i, t := range titles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if b.OnTitle != nil {
			b.OnTitle(i+1, len(titles), t)
		}

		game, err := b.fetchWithRetry(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			logger.Warn("skipping title",
				slog.Int("game_id", t.ID),
				slog.String("title", t.Title),
				logging.Error(err))
			res.Skipped = append(res.Skipped, Skip{GameID: t.ID, Title: t.Title, Err: err})
			continue
		}
		res.Games = append(res.Games, *game)
	}

	logger.Info("catalog fetched",
		slog.Int("retrieved", len(res.Games)),
		slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (b *Builder) fetchWithRetry(ctx context.Context, t raapi.GameListEntry) (*Game, error) {
	for attempt := 0; ; attempt++ {
		game, err := b.fetch(ctx, t.ID)
		if err == nil {
			return game, nil
		}
		if !errors.Is(err, raapi.ErrRateLimited) || attempt >= b.MaxRetries {
			return nil, err
		}

		wait := b.Backoff * time.Duration(attempt+1)
		b.logger().Warn("rate limit reached",
			slog.Int("game_id", t.ID),
			slog.Duration("wait", wait),
			slog.Int("retry", attempt+1),
			slog.Int("max_retries", b.MaxRetries))
		if err := b.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (b *Builder) fetch(ctx context.Context, gameID int) (*Game, error) {
	info, err := b.Source.GetGameExtended(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("game info %d: %w", gameID, err)
	}
	hashes, err := b.Source.GetGameHashes(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("game hashes %d: %w", gameID, err)
	}
	if hashes == nil {
		hashes = []raapi.Hash{}
	}
	return &Game{Info: info, Hashes: hashes}, nil
}

func (b *Builder) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return logging.NewNop()
	}
	return b.Logger
}
