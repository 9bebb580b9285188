package series

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one cached hourly spot price. Prices are always stored in
// EUR/MWh; currency conversion happens at the analysis boundary only.
type PricePoint struct {
	Region string
	TS     time.Time
	Price  decimal.Decimal
}

// ProductionPoint is one metered energy reading. Readings may arrive at
// sub-hourly resolution; the aligner sums them into hour buckets.
type ProductionPoint struct {
	TS     time.Time
	Energy decimal.Decimal // kWh produced in the period
}

// AlignedRow pairs the price and production reading for one hour. A side with
// no data is nil; such rows are kept for coverage reporting but excluded from
// aggregates that need both values.
type AlignedRow struct {
	TS         time.Time
	Price      *decimal.Decimal // EUR/MWh
	Production *decimal.Decimal // kWh
}

// HasBoth reports whether the row carries a value on both sides.
func (r AlignedRow) HasBoth() bool {
	return r.Price != nil && r.Production != nil
}

// NormalizeHour maps a timestamp to its canonical hour key: truncated to the
// hour and expressed in UTC. Two readings for the same wall-clock hour under
// different stated offsets normalize to the same key.
func NormalizeHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
