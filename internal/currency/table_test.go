package currency

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(map[string]float64{"SEK": 11.5, "NOK": 12.0, "USD": 1.1})
	require.NoError(t, err)
	return table
}

func TestConvertEURMWhToLocalKWh(t *testing.T) {
	table := testTable(t)

	// 100 EUR/MWh at 11.5 SEK/EUR -> 1.15 SEK/kWh
	got, err := table.Convert(decimal.NewFromInt(100), "SEK")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromFloat(1.15)), "got %s", got)

	// Base currency is implied with rate 1.
	got, err = table.Convert(decimal.NewFromInt(-50), "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromFloat(-0.05)), "got %s", got)
}

func TestConvertRoundTrip(t *testing.T) {
	table := testTable(t)

	original := decimal.NewFromFloat(-13.37)
	converted, err := table.Convert(original, "NOK")
	require.NoError(t, err)
	back, err := table.Invert(converted, "NOK")
	require.NoError(t, err)

	diff := back.Sub(original).Abs()
	tolerance := original.Abs().Mul(decimal.NewFromFloat(1e-9))
	assert.True(t, diff.LessThanOrEqual(tolerance), "round-trip drift %s", diff)
}

func TestUnknownCurrencyIsConfigurationError(t *testing.T) {
	table := testTable(t)

	_, err := table.Convert(decimal.NewFromInt(10), "XYZ")
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "currency", cfgErr.Field)
}

func TestNewTableRejectsBadRates(t *testing.T) {
	_, err := NewTable(map[string]float64{"SEK": -1})
	require.Error(t, err)
}

func TestStoreReplaceIsVisibleToNewReaders(t *testing.T) {
	first := testTable(t)
	store := NewStore(first)
	assert.Same(t, first, store.Current())

	second, err := NewTable(map[string]float64{"SEK": 11.8})
	require.NoError(t, err)
	store.Replace(second)
	assert.Same(t, second, store.Current())

	store.Replace(nil)
	assert.Same(t, second, store.Current())
}
