package detect

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func parse(t *testing.T, input string) (Result, error) {
	t.Helper()
	return NewCSV(zerolog.Nop()).Parse(strings.NewReader(input))
}

func TestParseSemicolonDecimalComma(t *testing.T) {
	input := "Datum;Produktion (kWh)\n" +
		"2025-06-01 10:00;1,5\n" +
		"2025-06-01 11:00;2,25\n"

	result, err := parse(t, input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.TimestampColumn != "Datum" || result.ValueColumn != "Produktion (kWh)" {
		t.Fatalf("unexpected columns %q/%q", result.TimestampColumn, result.ValueColumn)
	}
	if len(result.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(result.Points))
	}
	if !result.Points[1].Energy.Equal(decimal.NewFromFloat(2.25)) {
		t.Fatalf("unexpected energy %s", result.Points[1].Energy)
	}
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if !result.Points[0].TS.Equal(want) {
		t.Fatalf("unexpected timestamp %s", result.Points[0].TS)
	}
}

func TestParseCommaSeparated(t *testing.T) {
	input := "timestamp,energy_kwh\n" +
		"2025-06-01T10:00:00Z,3.5\n"

	result, err := parse(t, input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
}

func TestParseSkipsMalformedRows(t *testing.T) {
	input := "date,production\n" +
		"2025-06-01 10:00,1.0\n" +
		"not-a-date,2.0\n" +
		"2025-06-01 12:00,oops\n" +
		"2025-06-01 13:00,-5\n"

	result, err := parse(t, input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if result.SkippedRows != 3 {
		t.Fatalf("expected 3 skipped rows, got %d", result.SkippedRows)
	}
}

func TestParseUnrecognizedHeader(t *testing.T) {
	input := "foo,bar\n1,2\n"

	_, err := parse(t, input)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, err := parse(t, "")
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}
