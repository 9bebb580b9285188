package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Export renders cached prices, optionally joined with a production file, as
// CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Region == "" {
		return errors.New("region is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	var production []series.ProductionPoint
	if opts.InputPath != "" {
		points, _, err := a.parseProduction(opts.InputPath)
		if err != nil {
			return err
		}
		production = points
	}

	to := series.NormalizeHour(time.Now().UTC())
	if opts.To != nil {
		to = series.NormalizeHour(*opts.To)
	}
	from := to.Add(-time.Duration(opts.MaxPoints) * time.Hour)
	if opts.From != nil {
		from = series.NormalizeHour(*opts.From)
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	coord := a.newCoordinator(store)
	prices, err := coord.EnsureAndRead(ctx, opts.Region, from, to)
	if err != nil {
		return err
	}
	if len(prices.Points) == 0 {
		a.Logger.Info().Msg("no prices found for export window")
		return nil
	}

	rows, err := series.Align(prices.Points, production)
	if err != nil {
		return err
	}

	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().Int("total", len(rows)).Int("exported", len(downsampled)).Msg("exporting rows")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, opts.Region, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRows(rows []series.AlignedRow, max int) []series.AlignedRow {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]series.AlignedRow, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path, region string, rows []series.AlignedRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ts", "region", "price_eur_mwh", "production_kwh"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		price, production := "", ""
		if row.Price != nil {
			price = row.Price.String()
		}
		if row.Production != nil {
			production = row.Production.String()
		}
		record := []string{row.TS.UTC().Format(time.RFC3339), region, price, production}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path string, rows []series.AlignedRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var (
		priceX, productionX []time.Time
		priceY, productionY []float64
	)
	for _, row := range rows {
		if row.Price != nil {
			priceX = append(priceX, row.TS)
			priceY = append(priceY, row.Price.InexactFloat64())
		}
		if row.Production != nil {
			productionX = append(productionX, row.TS)
			productionY = append(productionY, row.Production.InexactFloat64())
		}
	}
	if len(priceX) == 0 {
		return errors.New("no priced hours to plot")
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (EUR/MWh)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Production (kWh)",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Spot price",
				XValues: priceX,
				YValues: priceY,
			},
		},
	}
	if len(productionX) > 0 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Production",
			XValues: productionX,
			YValues: productionY,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
