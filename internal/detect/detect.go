// Package detect turns heterogeneous tabular input into a canonical
// (timestamp, energy) sequence. Detection strategies are interchangeable
// behind one narrow contract; the analysis core only ever sees the parsed
// points.
package detect

import (
	"errors"
	"io"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// ErrUnrecognizedFormat signals that no timestamp/value column pairing could
// be inferred. Fatal for the request; never retried.
var ErrUnrecognizedFormat = errors.New("unrecognized production data format")

// Result is the normalized output of a successful detection.
type Result struct {
	Points          []series.ProductionPoint
	TimestampColumn string
	ValueColumn     string
	SkippedRows     int // rows dropped for unparseable timestamp or value
}

// Detector parses raw tabular input into production points.
type Detector interface {
	Parse(r io.Reader) (Result, error)
}
