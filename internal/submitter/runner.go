// Package submitter uploads prediction archives to a running scoring service
// and reports the resulting standings.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/segscore/pkg/logger"
)

// Run uploads every file in cfg concurrently, then optionally prints the
// leaderboard to out. Rejections are counted, not returned; transport
// failures are.
func Run(ctx context.Context, cfg *Config, out io.Writer) (Stats, error) {
	var stats Stats
	if len(cfg.Files) == 0 {
		return stats, ErrNoFiles
	}
	log := logger.Get().Named("submitter")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, path := range cfg.Files {
		g.Go(func() error {
			key := ""
			if cfg.Idempotent {
				key = uuid.NewString()
			}
			res, err := client.Submit(gctx, cfg.Name, path, key)

			mu.Lock()
			defer mu.Unlock()
			stats.Submitted++

			var apiErr *APIError
			switch {
			case err == nil:
				stats.Accepted++
				stats.Best = max(stats.Best, res.Score)
				fmt.Fprintf(out, "%s\t%.6f\n", path, res.Score)
				log.Debug(gctx, "submission accepted", logger.String("file", path), logger.String("id", res.ID))
				return nil
			case errors.As(err, &apiErr) && apiErr.Rejected():
				stats.Rejected++
				fmt.Fprintf(out, "%s\trejected: %s\n", path, apiErr.Message)
				return nil
			case errors.As(err, &apiErr):
				stats.Failed++
				fmt.Fprintf(out, "%s\tfailed: %s\n", path, apiErr.Message)
				return nil
			default:
				stats.Failed++
				return fmt.Errorf("submit %s: %w", path, err)
			}
		})
	}
	err := g.Wait()
	stats.Duration = time.Since(start)
	log.Info(ctx, "submissions completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)
	if err != nil {
		return stats, err
	}

	if cfg.Leaderboard {
		board, err := client.Leaderboard(ctx)
		if err != nil {
			return stats, fmt.Errorf("fetch leaderboard: %w", err)
		}
		if err := PrintLeaderboard(out, board); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// PrintLeaderboard writes the standings as an aligned table.
func PrintLeaderboard(out io.Writer, board Podium) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tDICE")
	for _, e := range append(append([]Entry{}, board.Top...), board.Others...) {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\n", e.Rank, e.Name, e.Score)
	}
	return tw.Flush()
}
