package currency

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency prices are cached in (EUR/MWh upstream unit).
const BaseCurrency = "EUR"

var kwhPerMWh = decimal.NewFromInt(1000)

// ConfigurationError reports an unusable analysis parameter, such as an
// unknown currency code. It fails the request before any I/O happens.
type ConfigurationError struct {
	Field string
	Value string
	Hint  string
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Hint)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// Table maps currency codes to their rate relative to EUR. A Table is
// immutable once built; refreshes swap in a new one.
type Table struct {
	rates map[string]decimal.Decimal
}

// NewTable builds a table from code -> rate-per-EUR. The EUR entry is implied.
func NewTable(rates map[string]float64) (*Table, error) {
	t := &Table{rates: make(map[string]decimal.Decimal, len(rates)+1)}
	t.rates[BaseCurrency] = decimal.NewFromInt(1)
	for code, rate := range rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			return nil, fmt.Errorf("currency table: empty code")
		}
		if rate <= 0 {
			return nil, fmt.Errorf("currency table: rate for %s must be positive", code)
		}
		t.rates[code] = decimal.NewFromFloat(rate)
	}
	return t, nil
}

// Rate returns the exchange rate for a currency relative to EUR.
func (t *Table) Rate(code string) (decimal.Decimal, error) {
	rate, ok := t.rates[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return decimal.Decimal{}, &ConfigurationError{
			Field: "currency",
			Value: code,
			Hint:  "supported: " + strings.Join(t.Codes(), ", "),
		}
	}
	return rate, nil
}

// Convert renders an EUR/MWh price in the target currency per kWh.
func (t *Table) Convert(priceEURMWh decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, err := t.Rate(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return priceEURMWh.Mul(rate).Div(kwhPerMWh), nil
}

// Invert maps a converted per-kWh price back to EUR/MWh.
func (t *Table) Invert(priceKWh decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, err := t.Rate(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return priceKWh.Mul(kwhPerMWh).Div(rate), nil
}

// Codes lists the supported currency codes in stable order.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Store holds the current exchange rate table and supports hot refresh.
// Readers take a snapshot per request; an in-flight analysis never observes a
// mid-request rate change.
type Store struct {
	current atomic.Pointer[Table]
}

// NewStore seeds a store with an initial table.
func NewStore(initial *Table) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the active table snapshot.
func (s *Store) Current() *Table {
	return s.current.Load()
}

// Replace swaps in a refreshed table without disturbing in-flight readers.
func (s *Store) Replace(t *Table) {
	if t != nil {
		s.current.Store(t)
	}
}
