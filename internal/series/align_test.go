package series

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hour(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestAlignUnionOfHours(t *testing.T) {
	prices := []PricePoint{
		{Region: "SE_4", TS: hour(t, "2025-06-01T00:00:00Z"), Price: decimal.NewFromInt(30)},
		{Region: "SE_4", TS: hour(t, "2025-06-01T01:00:00Z"), Price: decimal.NewFromInt(-5)},
	}
	production := []ProductionPoint{
		{TS: hour(t, "2025-06-01T01:00:00Z"), Energy: decimal.NewFromInt(4)},
		{TS: hour(t, "2025-06-01T02:00:00Z"), Energy: decimal.NewFromInt(7)},
	}

	rows, err := Align(prices, production)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.NotNil(t, rows[0].Price)
	assert.Nil(t, rows[0].Production)

	require.True(t, rows[1].HasBoth())
	assert.True(t, rows[1].Price.Equal(decimal.NewFromInt(-5)))
	assert.True(t, rows[1].Production.Equal(decimal.NewFromInt(4)))

	assert.Nil(t, rows[2].Price)
	assert.NotNil(t, rows[2].Production)
}

func TestAlignNormalizesOffsets(t *testing.T) {
	// Same instant stated under two offsets must land on one row.
	prices := []PricePoint{
		{Region: "SE_4", TS: hour(t, "2025-06-01T12:00:00+02:00"), Price: decimal.NewFromInt(10)},
	}
	production := []ProductionPoint{
		{TS: hour(t, "2025-06-01T10:00:00Z"), Energy: decimal.NewFromInt(3)},
	}

	rows, err := Align(prices, production)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].HasBoth())
	assert.Equal(t, hour(t, "2025-06-01T10:00:00Z"), rows[0].TS)
}

func TestAlignSumsSubHourlyProduction(t *testing.T) {
	production := []ProductionPoint{
		{TS: hour(t, "2025-06-01T10:00:00Z"), Energy: decimal.NewFromFloat(1.5)},
		{TS: hour(t, "2025-06-01T10:15:00Z"), Energy: decimal.NewFromFloat(0.5)},
		{TS: hour(t, "2025-06-01T10:45:00Z"), Energy: decimal.NewFromInt(2)},
	}

	rows, err := Align(nil, production)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Production)
	assert.True(t, rows[0].Production.Equal(decimal.NewFromInt(4)), "got %s", rows[0].Production)
}

func TestAlignConflictingPricesFail(t *testing.T) {
	prices := []PricePoint{
		{Region: "SE_4", TS: hour(t, "2025-06-01T10:00:00Z"), Price: decimal.NewFromInt(1)},
		{Region: "SE_4", TS: hour(t, "2025-06-01T10:30:00Z"), Price: decimal.NewFromInt(2)},
	}
	_, err := Align(prices, nil)
	require.Error(t, err)
}

func TestAlignEmptyInputs(t *testing.T) {
	rows, err := Align(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
