package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

func productionPoint(ts time.Time, kwh string) series.ProductionPoint {
	return series.ProductionPoint{TS: ts, Energy: decimal.RequireFromString(kwh)}
}

func TestResolvePeriodFromData(t *testing.T) {
	base := time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)
	production := []series.ProductionPoint{
		productionPoint(base.Add(26*time.Hour), "3"),
		productionPoint(base, "1"),
		productionPoint(base.Add(2*time.Hour), "2"),
	}

	start, end, err := resolvePeriod(production, nil, nil)
	if err != nil {
		t.Fatalf("resolvePeriod: %v", err)
	}

	wantStart := time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start should be %s, got %s", wantStart, start)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("end should be exclusive %s, got %s", wantEnd, end)
	}
}

func TestResolvePeriodExplicitWindow(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	start, end, err := resolvePeriod(nil, &from, &to)
	if err != nil {
		t.Fatalf("explicit window should not need production data: %v", err)
	}
	if !start.Equal(from) || !end.Equal(to) {
		t.Fatalf("window should pass through, got %s..%s", start, end)
	}
}

func TestResolvePeriodEmpty(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := resolvePeriod(nil, &ts, &ts); err == nil {
		t.Fatal("equal from/to should be rejected")
	}
	if _, _, err := resolvePeriod(nil, nil, nil); err == nil {
		t.Fatal("no data and no window should be rejected")
	}
}

func TestDownsampleRowsKeepsEndpoints(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]series.AlignedRow, 100)
	for i := range rows {
		rows[i] = series.AlignedRow{TS: base.Add(time.Duration(i) * time.Hour)}
	}

	got := downsampleRows(rows, 10)
	if len(got) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(got))
	}
	if !got[0].TS.Equal(rows[0].TS) || !got[9].TS.Equal(rows[99].TS) {
		t.Fatal("downsampling should keep the first and last rows")
	}

	if got := downsampleRows(rows, 0); len(got) != len(rows) {
		t.Fatal("non-positive max should disable downsampling")
	}
}
