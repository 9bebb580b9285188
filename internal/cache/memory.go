package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Memory is an in-process Store. It backs DSN-less runs, where nothing
// survives the process, and the test suites.
type Memory struct {
	mu      sync.Mutex
	regions map[string]map[int64]decimal.Decimal
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{regions: make(map[string]map[int64]decimal.Decimal)}
}

// PutBatch upserts the points, reporting conflicts for rewritten values.
func (m *Memory) PutBatch(ctx context.Context, points []series.PricePoint) ([]StaleDataConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var conflicts []StaleDataConflict
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return conflicts, err
		}
		hours, ok := m.regions[p.Region]
		if !ok {
			hours = make(map[int64]decimal.Decimal)
			m.regions[p.Region] = hours
		}
		key := series.NormalizeHour(p.TS).Unix()
		if cached, exists := hours[key]; exists && !cached.Equal(p.Price) {
			conflicts = append(conflicts, StaleDataConflict{
				Region:   p.Region,
				TS:       time.Unix(key, 0).UTC(),
				Cached:   cached,
				Incoming: p.Price,
			})
		}
		hours[key] = p.Price
	}
	return conflicts, nil
}

// GetRange returns the cached points within [start, end), ordered ascending.
// Gaps are not synthesized.
func (m *Memory) GetRange(ctx context.Context, region string, start, end time.Time) ([]series.PricePoint, error) {
	keys := m.sortedKeys(region, start, end)

	m.mu.Lock()
	defer m.mu.Unlock()
	points := make([]series.PricePoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, series.PricePoint{
			Region: region,
			TS:     time.Unix(key, 0).UTC(),
			Price:  m.regions[region][key],
		})
	}
	return points, nil
}

// Coverage returns the missing sub-ranges of [start, end) for a region.
func (m *Memory) Coverage(ctx context.Context, region string, start, end time.Time) ([]CoverageRange, error) {
	keys := m.sortedKeys(region, start, end)
	present := make([]time.Time, 0, len(keys))
	for _, key := range keys {
		present = append(present, time.Unix(key, 0).UTC())
	}
	return MissingRanges(region, present, start, end), nil
}

// Info summarises cached data per region.
func (m *Memory) Info(ctx context.Context) ([]RegionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]RegionInfo, 0, len(m.regions))
	for region, hours := range m.regions {
		if len(hours) == 0 {
			continue
		}
		info := RegionInfo{Region: region, Records: int64(len(hours))}
		first := true
		for key, price := range hours {
			ts := time.Unix(key, 0).UTC()
			if first {
				info.MinTS, info.MaxTS = ts, ts
				info.MinPrice, info.MaxPrice = price, price
				first = false
				continue
			}
			if ts.Before(info.MinTS) {
				info.MinTS = ts
			}
			if ts.After(info.MaxTS) {
				info.MaxTS = ts
			}
			if price.LessThan(info.MinPrice) {
				info.MinPrice = price
			}
			if price.GreaterThan(info.MaxPrice) {
				info.MaxPrice = price
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Region < infos[j].Region })
	return infos, nil
}

// Clear removes one region, or everything when region is empty. Returns the
// number of records removed.
func (m *Memory) Clear(ctx context.Context, region string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	if region == "" {
		for _, hours := range m.regions {
			removed += int64(len(hours))
		}
		m.regions = make(map[string]map[int64]decimal.Decimal)
		return removed, nil
	}
	removed = int64(len(m.regions[region]))
	delete(m.regions, region)
	return removed, nil
}

func (m *Memory) sortedKeys(region string, start, end time.Time) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	startKey := series.NormalizeHour(start).Unix()
	endKey := series.NormalizeHour(end).Unix()

	keys := make([]int64, 0, len(m.regions[region]))
	for key := range m.regions[region] {
		if key >= startKey && key < endKey {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var _ Store = (*Memory)(nil)
