package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frahlg/price-negative-comparison/internal/cache"
	"github.com/frahlg/price-negative-comparison/internal/currency"
	"github.com/frahlg/price-negative-comparison/internal/series"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := currency.NewTable(map[string]float64{"SEK": 10}) // 1 EUR/MWh -> 0.01 SEK/kWh
	require.NoError(t, err)
	return New(currency.NewStore(table), zerolog.Nop())
}

// row builds an aligned row n hours after t0. Nil pointers mark missing sides.
func row(n int, priceEURMWh *float64, productionKWh *float64) series.AlignedRow {
	r := series.AlignedRow{TS: t0.Add(time.Duration(n) * time.Hour)}
	if priceEURMWh != nil {
		p := decimal.NewFromFloat(*priceEURMWh)
		r.Price = &p
	}
	if productionKWh != nil {
		p := decimal.NewFromFloat(*productionKWh)
		r.Production = &p
	}
	return r
}

func f(v float64) *float64 { return &v }

func TestAnalyzeEmptyInputIsZeroValued(t *testing.T) {
	engine := testEngine(t)

	result, err := engine.Analyze(nil, "SEK", Options{})
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Zero(t, result.Period.Hours)
	assert.Nil(t, result.Price.Mean)
	assert.True(t, result.Export.Total.Value.IsZero())
	assert.Empty(t, result.Negative.Runs)
	assert.Equal(t, "SEK", result.Metadata.Currency)
}

func TestAnalyzeUnknownCurrencyFailsFast(t *testing.T) {
	engine := testEngine(t)

	_, err := engine.Analyze([]series.AlignedRow{row(0, f(10), f(1))}, "XXX", Options{})
	require.Error(t, err)
	var cfgErr *currency.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestAnalyzePriceStatsCarryReferenceUnit(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(100), f(1)),
		row(1, f(-50), f(2)),
		row(2, f(30), nil),
		row(3, nil, f(4)), // no price: excluded from monetary stats
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)

	require.NotNil(t, result.Price.Min)
	assert.True(t, result.Price.Min.Value.Equal(decimal.NewFromFloat(-0.5)), "got %s", result.Price.Min.Value)
	assert.True(t, result.Price.Min.EURPerMWh.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, "SEK/kWh", result.Price.Min.Unit)

	assert.True(t, result.Price.Max.Value.Equal(decimal.NewFromInt(1)))
	// mean of (1, -0.5, 0.3)
	assert.True(t, result.Price.Mean.Value.Sub(decimal.NewFromFloat(0.2667)).Abs().LessThan(decimal.NewFromFloat(0.001)))
	assert.True(t, result.Price.Median.Value.Equal(decimal.NewFromFloat(0.3)))

	assert.Equal(t, 1, result.Metadata.MissingPrice)
	assert.Equal(t, 1, result.Metadata.MissingProduction)
	assert.Equal(t, 2, result.Metadata.RowsWithBoth)
}

func TestAnalyzeNegativeRunsSplitByValueSign(t *testing.T) {
	engine := testEngine(t)
	// Prices [-5, -3, 2, -1, -1, 4]: runs {len 2, hours 0-1} and {len 2, hours 3-4}.
	rows := []series.AlignedRow{
		row(0, f(-5), f(1)),
		row(1, f(-3), f(1)),
		row(2, f(2), f(1)),
		row(3, f(-1), f(1)),
		row(4, f(-1), f(1)),
		row(5, f(4), f(1)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Negative.Runs, 2)

	assert.Equal(t, t0, result.Negative.Runs[0].Start)
	assert.Equal(t, t0.Add(2*time.Hour), result.Negative.Runs[0].End)
	assert.Equal(t, 2, result.Negative.Runs[0].Hours)
	assert.True(t, result.Negative.Runs[0].MinPrice.EURPerMWh.Equal(decimal.NewFromInt(-5)))

	assert.Equal(t, t0.Add(3*time.Hour), result.Negative.Runs[1].Start)
	assert.Equal(t, 2, result.Negative.Runs[1].Hours)

	assert.Equal(t, 4, result.Negative.Hours)
}

func TestAnalyzeNullHourSplitsRun(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(-5), f(1)),
		row(1, nil, f(1)), // gap: terminates without extending
		row(2, f(-5), f(1)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Negative.Runs, 2)
	assert.Equal(t, 1, result.Negative.Runs[0].Hours)
	assert.Equal(t, 1, result.Negative.Runs[1].Hours)
}

func TestAnalyzeMissingHourSplitsRun(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(-5), f(1)),
		// hour 1 absent entirely
		row(2, f(-5), f(1)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Negative.Runs, 2)
}

func TestAnalyzeIsolatedNegativeHourIsRunOfOne(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{row(0, f(-1), f(2))}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Negative.Runs, 1)
	assert.Equal(t, 1, result.Negative.Runs[0].Hours)
	require.NotNil(t, result.Negative.Runs[0].AvgProductionKWh)
	assert.True(t, result.Negative.Runs[0].AvgProductionKWh.Equal(decimal.NewFromInt(2)))
}

func TestAnalyzeExportValueAndNegativeCost(t *testing.T) {
	engine := testEngine(t)
	// Converted prices -0.2, -0.1, 0.3 SEK/kWh <=> -20, -10, 30 EUR/MWh at rate 10.
	rows := []series.AlignedRow{
		row(0, f(-20), f(10)),
		row(1, f(-10), f(0)),
		row(2, f(30), f(5)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)

	// Negative-run cost = 10*0.2 + 0*0.1 = 2.0.
	assert.True(t, result.Negative.Cost.Value.Equal(decimal.NewFromInt(2)), "got %s", result.Negative.Cost.Value)
	// Export total = -2.0 + 1.5 = -0.5.
	assert.True(t, result.Export.Total.Value.Equal(decimal.NewFromFloat(-0.5)), "got %s", result.Export.Total.Value)
	assert.True(t, result.Export.Positive.Value.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, result.Export.Negative.Value.Equal(decimal.NewFromInt(-2)))

	require.NotNil(t, result.Export.IncomeReductionPct)
	// 2.0 / 1.5 * 100
	assert.True(t, result.Export.IncomeReductionPct.Sub(decimal.NewFromFloat(133.333)).Abs().LessThan(decimal.NewFromFloat(0.01)))
}

func TestAnalyzeDailySummaries(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(-10), f(1)),
		row(1, f(20), f(2)),
		row(24, f(40), f(3)), // next day
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Daily, 2)

	first := result.Daily[0]
	assert.Equal(t, "2025-06-01", first.Date)
	assert.True(t, first.ProductionKWh.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 1, first.NegativeHours)
	require.NotNil(t, first.MeanPrice)
	assert.True(t, first.MeanPrice.EURPerMWh.Equal(decimal.NewFromInt(5)))

	second := result.Daily[1]
	assert.Equal(t, "2025-06-02", second.Date)
	assert.Equal(t, 0, second.NegativeHours)
}

func TestAnalyzeDailyGroupingHonoursTimezone(t *testing.T) {
	engine := testEngine(t)
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	// 23:00 UTC on June 1 is 01:00 June 2 in Stockholm (CEST).
	rows := []series.AlignedRow{row(23, f(10), f(1))}

	result, err := engine.Analyze(rows, "SEK", Options{Location: stockholm})
	require.NoError(t, err)
	require.Len(t, result.Daily, 1)
	assert.Equal(t, "2025-06-02", result.Daily[0].Date)
}

func TestAnalyzeTopNListings(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(-1), f(10)),  // cost 0.1
		row(1, f(-30), f(1)),  // cost 0.3, lowest price
		row(2, f(-2), f(100)), // cost 2.0, costliest
		row(3, f(50), f(5)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{TopN: 2})
	require.NoError(t, err)

	require.Len(t, result.TopLowestPrice, 2)
	assert.True(t, result.TopLowestPrice[0].Price.EURPerMWh.Equal(decimal.NewFromInt(-30)), "most negative first")
	assert.True(t, result.TopLowestPrice[1].Price.EURPerMWh.Equal(decimal.NewFromInt(-2)))

	require.Len(t, result.TopCostliestNegative, 2)
	assert.Equal(t, t0.Add(2*time.Hour), result.TopCostliestNegative[0].TS)
	require.NotNil(t, result.TopCostliestNegative[0].Cost)
	assert.True(t, result.TopCostliestNegative[0].Cost.Value.Equal(decimal.NewFromInt(2)))
}

func TestAnalyzeMonthlyNegativeBreakdown(t *testing.T) {
	engine := testEngine(t)
	july := int(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC).Sub(t0).Hours())
	rows := []series.AlignedRow{
		row(0, f(-10), f(2)),
		row(july, f(-20), f(3)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.Len(t, result.Negative.MonthlyCosts, 2)
	assert.Equal(t, "2025-06", result.Negative.MonthlyCosts[0].Month)
	assert.Equal(t, "2025-07", result.Negative.MonthlyCosts[1].Month)
	assert.True(t, result.Negative.MonthlyCosts[1].ProductionKWh.Equal(decimal.NewFromInt(3)))
}

func TestAnalyzeIncompleteRangesFlagResult(t *testing.T) {
	engine := testEngine(t)
	failed := []cache.CoverageRange{{Region: "SE_4", Start: t0, End: t0.Add(3 * time.Hour)}}

	result, err := engine.Analyze([]series.AlignedRow{row(5, f(10), f(1))}, "SEK", Options{FailedRanges: failed})
	require.NoError(t, err)
	assert.False(t, result.Complete)
	require.Len(t, result.FailedRanges, 1)
}

func TestAnalyzeCorrelationAndVolatility(t *testing.T) {
	engine := testEngine(t)
	// Production rises exactly with price: correlation 1.
	rows := []series.AlignedRow{
		row(0, f(10), f(1)),
		row(1, f(20), f(2)),
		row(2, f(30), f(3)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	require.NotNil(t, result.Correlation)
	assert.True(t, result.Correlation.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.NewFromFloat(1e-9)))
	require.NotNil(t, result.VolatilityStd)
	require.NotNil(t, result.VolatilityCV)
}

func TestAnalyzeZeroVarianceHasNoCorrelation(t *testing.T) {
	engine := testEngine(t)
	rows := []series.AlignedRow{
		row(0, f(10), f(1)),
		row(1, f(10), f(2)),
	}

	result, err := engine.Analyze(rows, "SEK", Options{})
	require.NoError(t, err)
	assert.Nil(t, result.Correlation)
}
