package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

const (
	upsertPricePointSQL = `INSERT INTO price_points (
        region,
        ts,
        price_eur_mwh
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (region, ts) DO UPDATE
    SET price_eur_mwh = EXCLUDED.price_eur_mwh;`

	selectExistingSQL = `SELECT ts, price_eur_mwh
    FROM price_points
    WHERE region = $1
      AND ts = ANY($2);`

	selectRangeSQL = `SELECT ts, price_eur_mwh
    FROM price_points
    WHERE region = $1
      AND ts >= $2
      AND ts < $3
    ORDER BY ts;`

	selectPresentSQL = `SELECT ts
    FROM price_points
    WHERE region = $1
      AND ts >= $2
      AND ts < $3
    ORDER BY ts;`

	regionInfoSQL = `SELECT
        region,
        COUNT(*),
        MIN(ts),
        MAX(ts),
        MIN(price_eur_mwh),
        MAX(price_eur_mwh)
    FROM price_points
    GROUP BY region
    ORDER BY region;`

	clearRegionSQL = `DELETE FROM price_points WHERE region = $1;`
	clearAllSQL    = `DELETE FROM price_points;`
)

// Postgres persists price points in a single (region, ts) keyed table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wires a pgx pool into a Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// PutBatch upserts the points and reports conflicts where an already cached
// hour carried a different value.
func (p *Postgres) PutBatch(ctx context.Context, points []series.PricePoint) ([]StaleDataConflict, error) {
	if len(points) == 0 {
		return nil, nil
	}

	byRegion := make(map[string][]series.PricePoint)
	for _, point := range points {
		point.TS = series.NormalizeHour(point.TS)
		byRegion[point.Region] = append(byRegion[point.Region], point)
	}

	var conflicts []StaleDataConflict
	for region, regionPoints := range byRegion {
		existing, err := p.existingPrices(ctx, region, regionPoints)
		if err != nil {
			return nil, err
		}

		batch := &pgx.Batch{}
		for _, point := range regionPoints {
			if cached, ok := existing[point.TS.Unix()]; ok && !cached.Equal(point.Price) {
				conflicts = append(conflicts, StaleDataConflict{
					Region:   region,
					TS:       point.TS,
					Cached:   cached,
					Incoming: point.Price,
				})
			}
			batch.Queue(upsertPricePointSQL, region, point.TS, point.Price.String())
		}

		if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
			return conflicts, fmt.Errorf("upsert price points: %w", err)
		}
	}
	return conflicts, nil
}

func (p *Postgres) existingPrices(ctx context.Context, region string, points []series.PricePoint) (map[int64]decimal.Decimal, error) {
	timestamps := make([]time.Time, len(points))
	for i, point := range points {
		timestamps[i] = point.TS
	}

	rows, err := p.pool.Query(ctx, selectExistingSQL, region, timestamps)
	if err != nil {
		return nil, fmt.Errorf("select existing prices: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var ts time.Time
		var priceStr string
		if err := rows.Scan(&ts, &priceStr); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse cached price: %w", err)
		}
		existing[ts.UTC().Unix()] = price
	}
	return existing, rows.Err()
}

// GetRange returns the cached points within [start, end), ordered ascending.
func (p *Postgres) GetRange(ctx context.Context, region string, start, end time.Time) ([]series.PricePoint, error) {
	rows, err := p.pool.Query(ctx, selectRangeSQL, region, series.NormalizeHour(start), series.NormalizeHour(end))
	if err != nil {
		return nil, fmt.Errorf("select price range: %w", err)
	}
	defer rows.Close()

	points := make([]series.PricePoint, 0)
	for rows.Next() {
		var ts time.Time
		var priceStr string
		if err := rows.Scan(&ts, &priceStr); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse cached price: %w", err)
		}
		points = append(points, series.PricePoint{Region: region, TS: ts.UTC(), Price: price})
	}
	return points, rows.Err()
}

// Coverage returns the missing sub-ranges of [start, end) for a region.
func (p *Postgres) Coverage(ctx context.Context, region string, start, end time.Time) ([]CoverageRange, error) {
	rows, err := p.pool.Query(ctx, selectPresentSQL, region, series.NormalizeHour(start), series.NormalizeHour(end))
	if err != nil {
		return nil, fmt.Errorf("select cached hours: %w", err)
	}
	defer rows.Close()

	var present []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		present = append(present, ts.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return MissingRanges(region, present, start, end), nil
}

// Info summarises cached data per region.
func (p *Postgres) Info(ctx context.Context) ([]RegionInfo, error) {
	rows, err := p.pool.Query(ctx, regionInfoSQL)
	if err != nil {
		return nil, fmt.Errorf("select region info: %w", err)
	}
	defer rows.Close()

	infos := make([]RegionInfo, 0)
	for rows.Next() {
		var info RegionInfo
		var minStr, maxStr string
		if err := rows.Scan(&info.Region, &info.Records, &info.MinTS, &info.MaxTS, &minStr, &maxStr); err != nil {
			return nil, err
		}
		if info.MinPrice, err = decimal.NewFromString(minStr); err != nil {
			return nil, fmt.Errorf("parse min price: %w", err)
		}
		if info.MaxPrice, err = decimal.NewFromString(maxStr); err != nil {
			return nil, fmt.Errorf("parse max price: %w", err)
		}
		info.MinTS = info.MinTS.UTC()
		info.MaxTS = info.MaxTS.UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Clear removes one region, or everything when region is empty.
func (p *Postgres) Clear(ctx context.Context, region string) (int64, error) {
	var tag pgconn.CommandTag
	var err error
	if region == "" {
		tag, err = p.pool.Exec(ctx, clearAllSQL)
	} else {
		tag, err = p.pool.Exec(ctx, clearRegionSQL, region)
	}
	if err != nil {
		return 0, fmt.Errorf("clear price points: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*Postgres)(nil)
