package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/frahlg/price-negative-comparison/internal/cache"
	"github.com/frahlg/price-negative-comparison/internal/series"
	"github.com/frahlg/price-negative-comparison/internal/source"
)

// Options tune the fetch retry policy.
type Options struct {
	MaxAttempts int           // attempts per missing sub-range
	Backoff     time.Duration // first retry delay, doubled per attempt
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// FailedRange is a missing sub-range that could not be fetched within the
// retry budget. Analysis proceeds on whatever is cached; callers surface the
// incompleteness instead of silently returning gapped data.
type FailedRange struct {
	cache.CoverageRange
	Err error
}

// Result is the outcome of EnsureAndRead: everything cached for the requested
// window after fetching, plus what could not be filled.
type Result struct {
	Points    []series.PricePoint
	Failed    []FailedRange
	Fetched   int // points written during this call
	Conflicts []cache.StaleDataConflict
}

// Complete reports whether the whole requested range resolved.
func (r Result) Complete() bool {
	return len(r.Failed) == 0
}

// Coordinator orchestrates the price cache and the upstream source: it fetches
// only the missing sub-ranges of a request and commits each sub-range before
// fetching the next, so partial progress survives a later failure.
type Coordinator struct {
	cache  cache.Store
	source source.Fetcher
	opts   Options
	logger zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Coordinator.
func New(store cache.Store, fetcher source.Fetcher, opts Options, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cache:  store,
		source: fetcher,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "coordinator").Logger(),
		sleep:  sleepCtx,
	}
}

// EnsureAndRead guarantees price coverage for [start, end) and returns the
// cached points. Sub-ranges are fetched sequentially in timestamp order; a
// sub-range that exhausts its retry budget is reported in Result.Failed while
// the remaining sub-ranges are still attempted. An invalid region aborts
// immediately: no other sub-range can succeed either.
func (c *Coordinator) EnsureAndRead(ctx context.Context, region string, start, end time.Time) (Result, error) {
	start = series.NormalizeHour(start)
	end = series.NormalizeHour(end)
	if !start.Before(end) {
		return Result{}, nil
	}

	gaps, err := c.cache.Coverage(ctx, region, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("query coverage: %w", err)
	}

	var result Result
	for _, gap := range gaps {
		points, fetchErr := c.fetchWithRetry(ctx, gap)
		if fetchErr != nil {
			var invalid *source.UpstreamInvalidRegion
			if errors.As(fetchErr, &invalid) {
				return Result{}, fetchErr
			}
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			c.logger.Warn().Err(fetchErr).Stringer("range", gap).Msg("sub-range fetch failed, continuing")
			result.Failed = append(result.Failed, FailedRange{CoverageRange: gap, Err: fetchErr})
			continue
		}

		points = clip(points, gap.Start, gap.End)
		conflicts, putErr := c.cache.PutBatch(ctx, points)
		if putErr != nil {
			return result, fmt.Errorf("cache sub-range %s: %w", gap, putErr)
		}
		for _, conflict := range conflicts {
			c.logger.Warn().Str("region", conflict.Region).Time("ts", conflict.TS).
				Str("cached", conflict.Cached.String()).
				Str("upstream", conflict.Incoming.String()).
				Msg("stale data conflict, overwriting cached value")
		}
		result.Conflicts = append(result.Conflicts, conflicts...)
		result.Fetched += len(points)
	}

	result.Points, err = c.cache.GetRange(ctx, region, start, end)
	if err != nil {
		return result, fmt.Errorf("read back range: %w", err)
	}
	return result, nil
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, gap cache.CoverageRange) ([]series.PricePoint, error) {
	delay := c.opts.Backoff
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		points, err := c.source.Fetch(ctx, gap.Region, gap.Start, gap.End)
		if err == nil {
			return points, nil
		}
		lastErr = err

		var invalid *source.UpstreamInvalidRegion
		if errors.As(err, &invalid) {
			return nil, err
		}
		if attempt == c.opts.MaxAttempts {
			break
		}

		wait := delay
		var limited *source.UpstreamRateLimited
		if errors.As(err, &limited) && limited.RetryAfter > wait {
			wait = limited.RetryAfter
		}
		c.logger.Debug().Err(err).Stringer("range", gap).Int("attempt", attempt).
			Dur("backoff", wait).Msg("fetch attempt failed")
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
		delay *= 2
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", gap, c.opts.MaxAttempts, lastErr)
}

// clip drops upstream points outside the requested half-open window.
func clip(points []series.PricePoint, start, end time.Time) []series.PricePoint {
	kept := points[:0]
	for _, p := range points {
		ts := series.NormalizeHour(p.TS)
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
