package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/frahlg/price-negative-comparison/internal/analysis"
	"github.com/frahlg/price-negative-comparison/internal/cache"
	"github.com/frahlg/price-negative-comparison/internal/coordinator"
	"github.com/frahlg/price-negative-comparison/internal/detect"
	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Analyze parses a production file, ensures price coverage for its period,
// and prints the combined report.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	if opts.InputPath == "" {
		return errors.New("production input file is required")
	}
	if opts.Region == "" {
		return errors.New("price region is required")
	}
	if opts.Currency == "" {
		opts.Currency = a.Config.Currency.Default
	}

	production, parsed, err := a.parseProduction(opts.InputPath)
	if err != nil {
		return err
	}

	start, end, err := resolvePeriod(production, opts.From, opts.To)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	coord := a.newCoordinator(store)
	prices, err := coord.EnsureAndRead(ctx, opts.Region, start, end)
	if err != nil {
		return err
	}
	if !prices.Complete() {
		a.Logger.Warn().Int("failed_ranges", len(prices.Failed)).
			Msg("price coverage incomplete; analysis will be flagged")
	}

	rows, err := series.Align(prices.Points, production)
	if err != nil {
		return err
	}

	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	loc, err := a.Config.Location()
	if err != nil {
		return fmt.Errorf("resolve analysis timezone: %w", err)
	}

	result, err := engine.Analyze(rows, opts.Currency, analysis.Options{
		TopN:         a.Config.ResolveTopN(opts.TopN),
		Location:     loc,
		FailedRanges: failedCoverage(prices.Failed),
	})
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	renderReport(os.Stdout, opts.Region, parsed, result)
	return nil
}

func (a *App) parseProduction(path string) ([]series.ProductionPoint, detect.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, detect.Result{}, fmt.Errorf("open production file: %w", err)
	}
	defer file.Close()

	detector := detect.NewCSV(a.Logger)
	parsed, err := detector.Parse(file)
	if err != nil {
		return nil, detect.Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	a.Logger.Info().
		Str("timestamp_column", parsed.TimestampColumn).
		Str("value_column", parsed.ValueColumn).
		Int("points", len(parsed.Points)).
		Int("skipped_rows", parsed.SkippedRows).
		Msg("production data parsed")

	return parsed.Points, parsed, nil
}

// resolvePeriod derives the analysis window from the production data unless
// the caller pinned it explicitly. End is exclusive.
func resolvePeriod(production []series.ProductionPoint, from, to *time.Time) (time.Time, time.Time, error) {
	var start, end time.Time

	if from != nil && to != nil {
		start, end = series.NormalizeHour(*from), series.NormalizeHour(*to)
	} else {
		if len(production) == 0 {
			return time.Time{}, time.Time{}, errors.New("no production points to derive the analysis period from")
		}
		start = series.NormalizeHour(production[0].TS)
		end = start
		for _, p := range production {
			ts := series.NormalizeHour(p.TS)
			if ts.Before(start) {
				start = ts
			}
			if ts.After(end) {
				end = ts
			}
		}
		end = end.Add(time.Hour)
		if from != nil {
			start = series.NormalizeHour(*from)
		}
		if to != nil {
			end = series.NormalizeHour(*to)
		}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("analysis period is empty")
	}
	return start, end, nil
}

func failedCoverage(failed []coordinator.FailedRange) []cache.CoverageRange {
	if len(failed) == 0 {
		return nil
	}
	out := make([]cache.CoverageRange, 0, len(failed))
	for _, f := range failed {
		out = append(out, f.CoverageRange)
	}
	return out
}
