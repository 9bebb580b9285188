package detect

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Keywords matched case-insensitively against header names. Swedish terms
// included because meter exports from Nordic vendors use them.
var (
	timestampKeywords = []string{"datum", "date", "time", "tid", "timestamp"}
	valueKeywords     = []string{"produktion", "production", "kwh", "mwh", "power", "energy", "energi"}
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15",
	"02/01/2006 15:04",
}

// CSV is a heuristic Detector for delimiter-separated meter exports. It
// sniffs the delimiter (European exports commonly use semicolons with
// decimal commas) and infers the timestamp and value columns by header
// keywords.
type CSV struct {
	logger zerolog.Logger
}

// NewCSV constructs the heuristic CSV detector.
func NewCSV(logger zerolog.Logger) *CSV {
	return &CSV{logger: logger.With().Str("component", "format_detector").Logger()}
}

// Parse reads the whole table and returns the production points, or
// ErrUnrecognizedFormat when no column pairing can be inferred.
func (c *CSV) Parse(r io.Reader) (Result, error) {
	buffered := bufio.NewReader(r)
	headerLine, err := buffered.ReadString('\n')
	if err != nil && err != io.EOF {
		return Result{}, fmt.Errorf("read header: %w", err)
	}

	delimiter := sniffDelimiter(headerLine)
	reader := csv.NewReader(io.MultiReader(strings.NewReader(headerLine), buffered))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	if len(records) < 2 {
		return Result{}, fmt.Errorf("%w: no data rows", ErrUnrecognizedFormat)
	}

	header := records[0]
	tsCol := matchColumn(header, timestampKeywords)
	valueCol := matchColumn(header, valueKeywords)
	if tsCol < 0 || valueCol < 0 || tsCol == valueCol {
		return Result{}, fmt.Errorf("%w: no timestamp/value column pairing in header %v", ErrUnrecognizedFormat, header)
	}

	result := Result{
		TimestampColumn: strings.TrimSpace(header[tsCol]),
		ValueColumn:     strings.TrimSpace(header[valueCol]),
	}
	for _, record := range records[1:] {
		if len(record) <= tsCol || len(record) <= valueCol {
			result.SkippedRows++
			continue
		}
		ts, tsErr := parseTimestamp(strings.TrimSpace(record[tsCol]))
		energy, valueErr := parseDecimal(strings.TrimSpace(record[valueCol]))
		if tsErr != nil || valueErr != nil {
			result.SkippedRows++
			continue
		}
		if energy.IsNegative() {
			result.SkippedRows++
			continue
		}
		result.Points = append(result.Points, series.ProductionPoint{TS: ts, Energy: energy})
	}

	if len(result.Points) == 0 {
		return Result{}, fmt.Errorf("%w: no parseable rows", ErrUnrecognizedFormat)
	}

	c.logger.Debug().
		Str("timestamp_column", result.TimestampColumn).
		Str("value_column", result.ValueColumn).
		Int("points", len(result.Points)).
		Int("skipped", result.SkippedRows).
		Msg("production data parsed")
	return result, nil
}

// sniffDelimiter prefers the separator that splits the header into more
// fields; semicolon wins ties because comma may be a decimal separator.
func sniffDelimiter(header string) rune {
	if strings.Count(header, ";") >= strings.Count(header, ",") && strings.Contains(header, ";") {
		return ';'
	}
	if strings.Contains(header, "\t") && !strings.Contains(header, ",") {
		return '\t'
	}
	return ','
}

func matchColumn(header []string, keywords []string) int {
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return i
			}
		}
	}
	return -1
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// parseDecimal accepts both decimal points and European decimal commas.
func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.ReplaceAll(value, " ", "")
	if strings.Contains(value, ",") && !strings.Contains(value, ".") {
		value = strings.ReplaceAll(value, ",", ".")
	}
	return decimal.NewFromString(value)
}

var _ Detector = (*CSV)(nil)
