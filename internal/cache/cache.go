package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// CoverageRange is a half-open [Start, End) slice of hours missing from the
// cache for a region. Derived on demand, never stored.
type CoverageRange struct {
	Region string
	Start  time.Time
	End    time.Time
}

// Hours returns the number of whole hours the range spans.
func (r CoverageRange) Hours() int {
	return int(r.End.Sub(r.Start) / time.Hour)
}

func (r CoverageRange) String() string {
	return fmt.Sprintf("%s[%s, %s)", r.Region, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// StaleDataConflict records an upstream value that disagreed with an already
// cached hour. The overwrite proceeds; the conflict is surfaced so callers can
// log the anomaly.
type StaleDataConflict struct {
	Region   string
	TS       time.Time
	Cached   decimal.Decimal
	Incoming decimal.Decimal
}

func (c StaleDataConflict) Error() string {
	return fmt.Sprintf("stale data conflict for %s@%s: cached %s, upstream %s",
		c.Region, c.TS.Format(time.RFC3339), c.Cached, c.Incoming)
}

// RegionInfo summarises the cached data for one region.
type RegionInfo struct {
	Region   string
	Records  int64
	MinTS    time.Time
	MaxTS    time.Time
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// Store is the durable keyed price store. Writes of an identical value are
// idempotent; writes of a different value to an existing (region, hour) key
// overwrite and report a StaleDataConflict.
type Store interface {
	PutBatch(ctx context.Context, points []series.PricePoint) ([]StaleDataConflict, error)
	GetRange(ctx context.Context, region string, start, end time.Time) ([]series.PricePoint, error)
	Coverage(ctx context.Context, region string, start, end time.Time) ([]CoverageRange, error)
	Info(ctx context.Context) ([]RegionInfo, error)
	Clear(ctx context.Context, region string) (int64, error)
}

// MissingRanges computes the complement of the cached hours within
// [start, end). present must be hour-normalized and sorted ascending; hours
// outside the window are ignored. An empty cache yields one gap spanning the
// whole window.
func MissingRanges(region string, present []time.Time, start, end time.Time) []CoverageRange {
	start = series.NormalizeHour(start)
	end = series.NormalizeHour(end)
	if !start.Before(end) {
		return nil
	}

	var gaps []CoverageRange
	cursor := start
	for _, ts := range present {
		ts = series.NormalizeHour(ts)
		if ts.Before(cursor) {
			continue
		}
		if !ts.Before(end) {
			break
		}
		if ts.After(cursor) {
			gaps = append(gaps, CoverageRange{Region: region, Start: cursor, End: ts})
		}
		cursor = ts.Add(time.Hour)
	}
	if cursor.Before(end) {
		gaps = append(gaps, CoverageRange{Region: region, Start: cursor, End: end})
	}
	return gaps
}
