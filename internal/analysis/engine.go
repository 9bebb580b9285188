package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/cache"
	"github.com/frahlg/price-negative-comparison/internal/currency"
	"github.com/frahlg/price-negative-comparison/internal/series"
)

// DefaultTopN bounds the top-N hour listings unless overridden.
const DefaultTopN = 10

// Options tune a single analysis request.
type Options struct {
	TopN     int
	Location *time.Location // timezone for daily/monthly grouping
	// FailedRanges lists sub-ranges the coordinator could not fetch; they are
	// stamped into the result so callers can warn about incompleteness.
	FailedRanges []cache.CoverageRange
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Engine computes derived metrics over aligned rows. It reads a fresh
// exchange-rate snapshot per request.
type Engine struct {
	rates  *currency.Store
	logger zerolog.Logger
}

// New constructs a metrics engine.
func New(rates *currency.Store, logger zerolog.Logger) *Engine {
	return &Engine{rates: rates, logger: logger.With().Str("component", "analysis").Logger()}
}

// pricedRow is a row with its converted price materialised once.
type pricedRow struct {
	series.AlignedRow
	converted decimal.Decimal // target currency per kWh
}

// Analyze computes the full result for the aligned rows in the requested
// currency. An empty input yields a zero-valued result, not an error. An
// unknown currency fails before any computation.
func (e *Engine) Analyze(rows []series.AlignedRow, code string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	table := e.rates.Current()
	rate, err := table.Rate(code)
	if err != nil {
		return nil, err
	}
	unit := code + "/kWh"

	result := &Result{
		Complete:     len(opts.FailedRanges) == 0,
		FailedRanges: opts.FailedRanges,
		Metadata: Metadata{
			Currency:     code,
			ExchangeRate: rate,
			Rows:         len(rows),
		},
	}
	result.Negative.Cost = Money{Currency: code}
	result.Export.Total = Money{Currency: code}
	result.Export.Positive = Money{Currency: code}
	result.Export.Negative = Money{Currency: code}
	if len(rows) == 0 {
		return result, nil
	}

	result.Period = Period{
		Start: rows[0].TS,
		End:   rows[len(rows)-1].TS.Add(time.Hour),
		Hours: len(rows),
	}
	result.Period.Days = int(result.Period.End.Sub(result.Period.Start) / (24 * time.Hour))

	priced := make([]pricedRow, 0, len(rows))
	for _, row := range rows {
		switch {
		case row.Price == nil:
			result.Metadata.MissingPrice++
		default:
			converted, convErr := table.Convert(*row.Price, code)
			if convErr != nil {
				return nil, convErr
			}
			priced = append(priced, pricedRow{AlignedRow: row, converted: converted})
		}
		if row.Production == nil {
			result.Metadata.MissingProduction++
		}
		if row.HasBoth() {
			result.Metadata.RowsWithBoth++
		}
	}

	e.priceStats(result, priced, unit)
	e.productionStats(result, rows)
	e.negativeSummary(result, priced, code, unit, opts.Location)
	e.exportValue(result, priced, code)
	e.dailySummaries(result, priced, rows, code, unit, opts.Location)
	e.topHours(result, priced, code, unit, opts.TopN)
	e.correlation(result, priced)

	e.logger.Debug().Int("rows", len(rows)).Int("priced", len(priced)).
		Str("currency", code).Msg("analysis computed")
	return result, nil
}

func (e *Engine) priceStats(result *Result, priced []pricedRow, unit string) {
	if len(priced) == 0 {
		return
	}

	converted := make([]decimal.Decimal, len(priced))
	reference := make([]decimal.Decimal, len(priced))
	sum := decimal.Zero
	for i, row := range priced {
		converted[i] = row.converted
		reference[i] = *row.Price
		sum = sum.Add(row.converted)
	}

	minIdx, maxIdx := 0, 0
	for i := 1; i < len(converted); i++ {
		if converted[i].LessThan(converted[minIdx]) {
			minIdx = i
		}
		if converted[i].GreaterThan(converted[maxIdx]) {
			maxIdx = i
		}
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(converted))))
	meanRef := decimal.Zero
	for _, ref := range reference {
		meanRef = meanRef.Add(ref)
	}
	meanRef = meanRef.Div(decimal.NewFromInt(int64(len(reference))))

	medianConv, medianRef := medianOf(converted), medianOf(reference)

	result.Price = PriceStats{
		Min:    &Price{Value: converted[minIdx], Unit: unit, EURPerMWh: reference[minIdx]},
		Max:    &Price{Value: converted[maxIdx], Unit: unit, EURPerMWh: reference[maxIdx]},
		Mean:   &Price{Value: mean, Unit: unit, EURPerMWh: meanRef},
		Median: &Price{Value: medianConv, Unit: unit, EURPerMWh: medianRef},
	}
}

func (e *Engine) productionStats(result *Result, rows []series.AlignedRow) {
	total := decimal.Zero
	count := 0
	var max *decimal.Decimal
	for _, row := range rows {
		if row.Production == nil {
			continue
		}
		total = total.Add(*row.Production)
		count++
		if max == nil || row.Production.GreaterThan(*max) {
			value := *row.Production
			max = &value
		}
		if row.Production.IsPositive() {
			result.Production.HoursWithProduction++
		}
	}
	result.Production.TotalKWh = total
	result.Production.MaxKWh = max
	if count > 0 {
		mean := total.Div(decimal.NewFromInt(int64(count)))
		result.Production.MeanKWh = &mean
	}
}

func (e *Engine) negativeSummary(result *Result, priced []pricedRow, code, unit string, loc *time.Location) {
	summary := &result.Negative
	summary.Runs = []NegativeRun{}

	monthlyProduction := map[string]decimal.Decimal{}
	monthlyCost := map[string]decimal.Decimal{}

	var run *NegativeRun
	var runProduction decimal.Decimal
	var runProductionHours int
	var prevTS time.Time

	flush := func() {
		if run == nil {
			return
		}
		if runProductionHours > 0 {
			avg := runProduction.Div(decimal.NewFromInt(int64(runProductionHours)))
			run.AvgProductionKWh = &avg
		}
		summary.Runs = append(summary.Runs, *run)
		run = nil
	}

	for _, row := range priced {
		contiguous := run != nil && row.TS.Equal(prevTS.Add(time.Hour))
		if !contiguous {
			flush()
		}
		prevTS = row.TS

		if !row.Price.IsNegative() {
			flush()
			continue
		}

		summary.Hours++
		month := row.TS.In(loc).Format("2006-01")
		if row.Production != nil {
			summary.ProductionKWh = summary.ProductionKWh.Add(*row.Production)
			monthlyProduction[month] = monthlyProduction[month].Add(*row.Production)
			if row.Production.IsPositive() {
				summary.HoursWithProduction++
			}
		}

		hourCost := decimal.Zero
		if row.Production != nil {
			hourCost = row.Production.Mul(row.converted.Abs())
		}
		summary.Cost.Value = summary.Cost.Value.Add(hourCost)
		monthlyCost[month] = monthlyCost[month].Add(hourCost)

		if run == nil {
			run = &NegativeRun{
				Start:    row.TS,
				MinPrice: Price{Value: row.converted, Unit: unit, EURPerMWh: *row.Price},
				Cost:     Money{Currency: code},
			}
			runProduction = decimal.Zero
			runProductionHours = 0
		}
		run.End = row.TS.Add(time.Hour)
		run.Hours++
		run.Cost.Value = run.Cost.Value.Add(hourCost)
		if row.converted.LessThan(run.MinPrice.Value) {
			run.MinPrice = Price{Value: row.converted, Unit: unit, EURPerMWh: *row.Price}
		}
		if row.Production != nil {
			runProduction = runProduction.Add(*row.Production)
			runProductionHours++
		}
	}
	flush()

	months := make([]string, 0, len(monthlyCost))
	for month := range monthlyCost {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		summary.MonthlyCosts = append(summary.MonthlyCosts, MonthlyNegativeCost{
			Month:         month,
			ProductionKWh: monthlyProduction[month],
			Cost:          Money{Value: monthlyCost[month], Currency: code},
		})
	}
}

func (e *Engine) exportValue(result *Result, priced []pricedRow, code string) {
	for _, row := range priced {
		if row.Production == nil {
			continue
		}
		value := row.Production.Mul(row.converted)
		result.Export.Total.Value = result.Export.Total.Value.Add(value)
		if row.Price.IsNegative() {
			result.Export.Negative.Value = result.Export.Negative.Value.Add(value)
		} else {
			result.Export.Positive.Value = result.Export.Positive.Value.Add(value)
		}
	}
	if result.Export.Positive.Value.IsPositive() {
		pct := result.Export.Negative.Value.Abs().
			Div(result.Export.Positive.Value).
			Mul(decimal.NewFromInt(100))
		result.Export.IncomeReductionPct = &pct
	}
}

func (e *Engine) dailySummaries(result *Result, priced []pricedRow, rows []series.AlignedRow, code, unit string, loc *time.Location) {
	type dayAgg struct {
		production  decimal.Decimal
		priceSum    decimal.Decimal
		refSum      decimal.Decimal
		pricedHours int
		negative    int
		exportSum   decimal.Decimal
		hasExport   bool
	}

	days := map[string]*dayAgg{}
	order := []string{}
	dayOf := func(ts time.Time) *dayAgg {
		key := ts.In(loc).Format("2006-01-02")
		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{}
			days[key] = agg
			order = append(order, key)
		}
		return agg
	}

	for _, row := range rows {
		agg := dayOf(row.TS)
		if row.Production != nil {
			agg.production = agg.production.Add(*row.Production)
		}
	}
	for _, row := range priced {
		agg := dayOf(row.TS)
		agg.priceSum = agg.priceSum.Add(row.converted)
		agg.refSum = agg.refSum.Add(*row.Price)
		agg.pricedHours++
		if row.Price.IsNegative() {
			agg.negative++
		}
		if row.Production != nil {
			agg.exportSum = agg.exportSum.Add(row.Production.Mul(row.converted))
			agg.hasExport = true
		}
	}

	sort.Strings(order)
	for _, key := range order {
		agg := days[key]
		summary := DailySummary{
			Date:          key,
			ProductionKWh: agg.production,
			NegativeHours: agg.negative,
		}
		if agg.pricedHours > 0 {
			n := decimal.NewFromInt(int64(agg.pricedHours))
			summary.MeanPrice = &Price{
				Value:     agg.priceSum.Div(n),
				Unit:      unit,
				EURPerMWh: agg.refSum.Div(n),
			}
		}
		if agg.hasExport {
			summary.ExportValue = &Money{Value: agg.exportSum, Currency: code}
		}
		result.Daily = append(result.Daily, summary)
	}
}

func (e *Engine) topHours(result *Result, priced []pricedRow, code, unit string, topN int) {
	detail := func(row pricedRow) HourDetail {
		d := HourDetail{
			TS:    row.TS,
			Price: Price{Value: row.converted, Unit: unit, EURPerMWh: *row.Price},
		}
		if row.Production != nil {
			value := *row.Production
			d.ProductionKWh = &value
			cost := Money{Value: row.Production.Mul(row.converted.Abs()), Currency: code}
			d.Cost = &cost
		}
		return d
	}

	lowest := make([]pricedRow, len(priced))
	copy(lowest, priced)
	sort.SliceStable(lowest, func(i, j int) bool {
		return lowest[i].converted.LessThan(lowest[j].converted)
	})
	for i := 0; i < len(lowest) && i < topN; i++ {
		result.TopLowestPrice = append(result.TopLowestPrice, detail(lowest[i]))
	}

	var costly []pricedRow
	for _, row := range priced {
		if row.Price.IsNegative() && row.Production != nil && row.Production.IsPositive() {
			costly = append(costly, row)
		}
	}
	sort.SliceStable(costly, func(i, j int) bool {
		ci := costly[i].Production.Mul(costly[i].converted.Abs())
		cj := costly[j].Production.Mul(costly[j].converted.Abs())
		return ci.GreaterThan(cj)
	})
	for i := 0; i < len(costly) && i < topN; i++ {
		result.TopCostliestNegative = append(result.TopCostliestNegative, detail(costly[i]))
	}
}

// correlation and volatility follow the original pandas computation; float64
// is good enough at this boundary.
func (e *Engine) correlation(result *Result, priced []pricedRow) {
	var prices, production []float64
	for _, row := range priced {
		if row.Production == nil {
			continue
		}
		prices = append(prices, row.converted.InexactFloat64())
		production = append(production, row.Production.InexactFloat64())
	}

	if len(prices) >= 2 {
		if corr, ok := pearson(production, prices); ok {
			value := decimal.NewFromFloat(corr)
			result.Correlation = &value
		}
	}

	if result.Price.Mean == nil || len(priced) < 2 {
		return
	}
	meanF := result.Price.Mean.Value.InexactFloat64()
	var sumSq float64
	for _, row := range priced {
		d := row.converted.InexactFloat64() - meanF
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(priced)-1))
	stdDec := decimal.NewFromFloat(std)
	result.VolatilityStd = &stdDec
	if meanF != 0 {
		cv := decimal.NewFromFloat(std / math.Abs(meanF))
		result.VolatilityCV = &cv
	}
}

func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

func medianOf(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}
