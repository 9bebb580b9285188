package app

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/analysis"
	"github.com/frahlg/price-negative-comparison/internal/detect"
)

func renderReport(out io.Writer, region string, parsed detect.Result, result *analysis.Result) {
	fmt.Fprintf(out, "Region: %s  Currency: %s (rate %s per EUR)\n",
		region, result.Metadata.Currency, result.Metadata.ExchangeRate.String())
	fmt.Fprintf(out, "Period: %s to %s (%d days, %d hours)\n",
		result.Period.Start.Format("2006-01-02 15:04"),
		result.Period.End.Format("2006-01-02 15:04"),
		result.Period.Days, result.Period.Hours)
	fmt.Fprintf(out, "Input:  %s / %s, %d points",
		parsed.TimestampColumn, parsed.ValueColumn, len(parsed.Points))
	if parsed.SkippedRows > 0 {
		fmt.Fprintf(out, " (%d rows skipped)", parsed.SkippedRows)
	}
	fmt.Fprintln(out)
	if !result.Complete {
		fmt.Fprintf(out, "WARNING: price coverage incomplete; %d range(s) could not be fetched\n",
			len(result.FailedRanges))
	}
	fmt.Fprintln(out)

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "-- Prices --\t")
	writePriceLine(writer, "Min", result.Price.Min)
	writePriceLine(writer, "Max", result.Price.Max)
	writePriceLine(writer, "Mean", result.Price.Mean)
	writePriceLine(writer, "Median", result.Price.Median)
	if result.VolatilityStd != nil {
		fmt.Fprintf(writer, "Volatility (std)\t%s\n", formatDecimal(*result.VolatilityStd, 4))
	}
	if result.VolatilityCV != nil {
		fmt.Fprintf(writer, "Volatility (CV)\t%s\n", formatDecimal(*result.VolatilityCV, 4))
	}

	fmt.Fprintln(writer, "\t")
	fmt.Fprintln(writer, "-- Production --\t")
	fmt.Fprintf(writer, "Total\t%s kWh\n", formatDecimal(result.Production.TotalKWh, 1))
	if result.Production.MeanKWh != nil {
		fmt.Fprintf(writer, "Mean per hour\t%s kWh\n", formatDecimal(*result.Production.MeanKWh, 2))
	}
	if result.Production.MaxKWh != nil {
		fmt.Fprintf(writer, "Max hour\t%s kWh\n", formatDecimal(*result.Production.MaxKWh, 2))
	}
	fmt.Fprintf(writer, "Hours with production\t%d\n", result.Production.HoursWithProduction)
	if result.Correlation != nil {
		fmt.Fprintf(writer, "Price/production correlation\t%s\n", formatDecimal(*result.Correlation, 3))
	}

	fmt.Fprintln(writer, "\t")
	fmt.Fprintln(writer, "-- Negative price hours --\t")
	fmt.Fprintf(writer, "Hours below zero\t%d\n", result.Negative.Hours)
	fmt.Fprintf(writer, "  with production\t%d\n", result.Negative.HoursWithProduction)
	fmt.Fprintf(writer, "Production in those hours\t%s kWh\n", formatDecimal(result.Negative.ProductionKWh, 1))
	fmt.Fprintf(writer, "Cost of exporting\t%s %s\n",
		formatDecimal(result.Negative.Cost.Value, 2), result.Negative.Cost.Currency)

	fmt.Fprintln(writer, "\t")
	fmt.Fprintln(writer, "-- Export value --\t")
	fmt.Fprintf(writer, "Total\t%s %s\n", formatDecimal(result.Export.Total.Value, 2), result.Export.Total.Currency)
	fmt.Fprintf(writer, "Positive hours\t%s %s\n", formatDecimal(result.Export.Positive.Value, 2), result.Export.Positive.Currency)
	fmt.Fprintf(writer, "Negative hours\t%s %s\n", formatDecimal(result.Export.Negative.Value, 2), result.Export.Negative.Currency)
	if result.Export.IncomeReductionPct != nil {
		fmt.Fprintf(writer, "Income reduction\t%s%%\n", formatDecimal(*result.Export.IncomeReductionPct, 2))
	}
	writer.Flush()

	if len(result.Negative.Runs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Longest negative runs:")
		runs := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(runs, "Start\tHours\tLowest price\tCost")
		for _, run := range topRuns(result.Negative.Runs, 5) {
			fmt.Fprintf(runs, "%s\t%d\t%s %s\t%s %s\n",
				run.Start.Format(time.RFC3339), run.Hours,
				formatDecimal(run.MinPrice.Value, 4), run.MinPrice.Unit,
				formatDecimal(run.Cost.Value, 2), run.Cost.Currency)
		}
		runs.Flush()
	}

	if len(result.Negative.MonthlyCosts) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Negative-price cost by month:")
		months := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(months, "Month\tProduction (kWh)\tCost")
		for _, m := range result.Negative.MonthlyCosts {
			fmt.Fprintf(months, "%s\t%s\t%s %s\n",
				m.Month, formatDecimal(m.ProductionKWh, 1),
				formatDecimal(m.Cost.Value, 2), m.Cost.Currency)
		}
		months.Flush()
	}

	if len(result.TopCostliestNegative) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Costliest negative hours:")
		hours := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(hours, "Hour\tPrice\tProduction (kWh)\tCost")
		for _, h := range result.TopCostliestNegative {
			production, cost := "-", "-"
			if h.ProductionKWh != nil {
				production = formatDecimal(*h.ProductionKWh, 2)
			}
			if h.Cost != nil {
				cost = fmt.Sprintf("%s %s", formatDecimal(h.Cost.Value, 2), h.Cost.Currency)
			}
			fmt.Fprintf(hours, "%s\t%s %s\t%s\t%s\n",
				h.TS.Format(time.RFC3339),
				formatDecimal(h.Price.Value, 4), h.Price.Unit,
				production, cost)
		}
		hours.Flush()
	}
}

func writePriceLine(w io.Writer, label string, p *analysis.Price) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "%s\t%s %s\t(%s EUR/MWh)\n",
		label, formatDecimal(p.Value, 4), p.Unit, formatDecimal(p.EURPerMWh, 2))
}

// topRuns returns the n longest runs, chronological among equals.
func topRuns(runs []analysis.NegativeRun, n int) []analysis.NegativeRun {
	if len(runs) <= n {
		return runs
	}
	picked := make([]analysis.NegativeRun, len(runs))
	copy(picked, runs)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Hours > picked[j].Hours
	})
	return picked[:n]
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
