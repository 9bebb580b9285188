package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/cache"
)

// Price is a converted price carrying its original EUR/MWh value for
// traceability.
type Price struct {
	Value     decimal.Decimal `json:"value"`
	Unit      string          `json:"unit"` // e.g. "SEK/kWh"
	EURPerMWh decimal.Decimal `json:"eur_per_mwh"`
}

// Money is an amount in the requested currency.
type Money struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// PriceStats are descriptive statistics over hours with a cached price.
// All fields are nil when no priced hours exist.
type PriceStats struct {
	Min    *Price `json:"min,omitempty"`
	Max    *Price `json:"max,omitempty"`
	Mean   *Price `json:"mean,omitempty"`
	Median *Price `json:"median,omitempty"`
}

// ProductionStats summarise the uploaded production series.
type ProductionStats struct {
	TotalKWh            decimal.Decimal  `json:"total_kwh"`
	MeanKWh             *decimal.Decimal `json:"mean_kwh,omitempty"`
	MaxKWh              *decimal.Decimal `json:"max_kwh,omitempty"`
	HoursWithProduction int              `json:"hours_with_production"`
}

// NegativeRun is a maximal contiguous sequence of hours with price < 0,
// uninterrupted by a data gap.
type NegativeRun struct {
	Start            time.Time        `json:"start"`
	End              time.Time        `json:"end"` // exclusive
	Hours            int              `json:"hours"`
	MinPrice         Price            `json:"min_price"`
	AvgProductionKWh *decimal.Decimal `json:"avg_production_kwh,omitempty"`
	Cost             Money            `json:"cost"`
}

// MonthlyNegativeCost breaks the negative-price cost down by calendar month.
type MonthlyNegativeCost struct {
	Month         string          `json:"month"` // YYYY-MM in the analysis zone
	ProductionKWh decimal.Decimal `json:"production_kwh"`
	Cost          Money           `json:"cost"`
}

// NegativeSummary aggregates everything about negative-price hours.
type NegativeSummary struct {
	Hours               int                   `json:"hours"`
	HoursWithProduction int                   `json:"hours_with_production"`
	ProductionKWh       decimal.Decimal       `json:"production_kwh"`
	Cost                Money                 `json:"cost"` // absolute cost of exporting at negative prices
	Runs                []NegativeRun         `json:"runs"`
	MonthlyCosts        []MonthlyNegativeCost `json:"monthly_costs,omitempty"`
}

// ExportValue is production times price summed over hours with both values.
type ExportValue struct {
	Total    Money `json:"total"`
	Positive Money `json:"positive"` // price >= 0 subset
	Negative Money `json:"negative"` // price < 0 subset, carries its sign
	// IncomeReductionPct is the negative-price cost as a share of positive
	// export income. Nil when there is no positive income.
	IncomeReductionPct *decimal.Decimal `json:"income_reduction_pct,omitempty"`
}

// DailySummary aggregates one calendar day in the analysis timezone.
type DailySummary struct {
	Date          string           `json:"date"` // YYYY-MM-DD
	ProductionKWh decimal.Decimal  `json:"production_kwh"`
	MeanPrice     *Price           `json:"mean_price,omitempty"`
	NegativeHours int              `json:"negative_hours"`
	ExportValue   *Money           `json:"export_value,omitempty"`
}

// HourDetail is one hour in a top-N listing.
type HourDetail struct {
	TS            time.Time        `json:"ts"`
	Price         Price            `json:"price"`
	ProductionKWh *decimal.Decimal `json:"production_kwh,omitempty"`
	Cost          *Money           `json:"cost,omitempty"`
}

// Period describes the analyzed window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
	Hours int       `json:"hours"`
}

// Metadata records how the result was produced.
type Metadata struct {
	Currency          string          `json:"currency"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"` // per EUR
	Rows              int             `json:"rows"`
	RowsWithBoth      int             `json:"rows_with_both"`
	MissingPrice      int             `json:"missing_price"`
	MissingProduction int             `json:"missing_production"`
}

// Result is the full analysis output. Fully derived, recomputed per request.
type Result struct {
	Period     Period          `json:"period"`
	Price      PriceStats      `json:"price"`
	Production ProductionStats `json:"production"`
	Negative   NegativeSummary `json:"negative"`
	Export     ExportValue     `json:"export"`
	Daily      []DailySummary  `json:"daily"`

	TopLowestPrice       []HourDetail `json:"top_lowest_price"`
	TopCostliestNegative []HourDetail `json:"top_costliest_negative"`

	// Correlation and volatility follow the hourly converted price; nil when
	// either series has zero variance or too few points.
	Correlation   *decimal.Decimal `json:"correlation,omitempty"`
	VolatilityStd *decimal.Decimal `json:"volatility_std,omitempty"`
	VolatilityCV  *decimal.Decimal `json:"volatility_cv,omitempty"`

	Complete     bool                  `json:"complete"`
	FailedRanges []cache.CoverageRange `json:"failed_ranges,omitempty"`

	Metadata Metadata `json:"metadata"`
}
