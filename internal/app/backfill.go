package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Backfill warms the price cache for a historical range. Already-covered
// hours are skipped, so re-running over an overlapping range is cheap.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if opts.Region == "" {
		return errors.New("region is required")
	}

	start := series.NormalizeHour(opts.From)
	end := series.NormalizeHour(opts.To)
	if !start.Before(end) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	if a.Config.Database.DSN == "" {
		return errors.New("database.dsn not configured; backfill needs a persistent cache")
	}

	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	coord := a.newCoordinator(store)
	result, err := coord.EnsureAndRead(ctx, opts.Region, start, end)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("region", opts.Region).
		Int("cached", len(result.Points)).
		Int("fetched", result.Fetched).
		Int("conflicts", len(result.Conflicts)).
		Int("failed_ranges", len(result.Failed)).
		Msg("backfill finished")

	if !result.Complete() {
		for _, f := range result.Failed {
			a.Logger.Error().Err(f.Err).Str("range", f.CoverageRange.String()).Msg("range could not be fetched")
		}
		return fmt.Errorf("%d range(s) could not be fetched; re-run to retry", len(result.Failed))
	}
	return nil
}
