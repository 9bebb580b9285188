package source

import (
	"context"
	"fmt"
	"time"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Fetcher retrieves day-ahead spot prices for an explicit, bounded range.
// Implementations are fallible, rate-limited external collaborators.
type Fetcher interface {
	Fetch(ctx context.Context, region string, start, end time.Time) ([]series.PricePoint, error)
}

// UpstreamUnavailable covers network and auth failures. Transient; callers
// retry within their budget.
type UpstreamUnavailable struct {
	Reason string
	Err    error
}

func (e *UpstreamUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream unavailable: %s", e.Reason)
}

func (e *UpstreamUnavailable) Unwrap() error { return e.Err }

// UpstreamRateLimited signals an explicit throttle from the provider, with a
// backoff hint when one was given.
type UpstreamRateLimited struct {
	RetryAfter time.Duration
}

func (e *UpstreamRateLimited) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limited, retry after %s", e.RetryAfter)
	}
	return "upstream rate limited"
}

// UpstreamInvalidRegion is permanent: the provider does not know the region.
type UpstreamInvalidRegion struct {
	Region string
}

func (e *UpstreamInvalidRegion) Error() string {
	return fmt.Sprintf("upstream rejected region %q", e.Region)
}
