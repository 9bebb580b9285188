package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/frahlg/price-negative-comparison/internal/series"
)

const pricesPath = "/day-ahead/prices"

// Options parameterise the day-ahead price client.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
	// RatePerSecond throttles outgoing requests; providers enforce strict
	// quotas on historical queries. Zero disables client-side throttling.
	RatePerSecond float64
	Burst         int
}

// Client fetches hourly day-ahead prices over HTTP.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient constructs a price client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "price_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limiter: limiter,
	}
}

// Fetch retrieves hourly prices for [start, end). Points outside the window
// are returned as-is; the coordinator clips before caching.
func (c *Client) Fetch(ctx context.Context, region string, start, end time.Time) ([]series.PricePoint, error) {
	if c.baseURL == "" {
		return nil, &UpstreamUnavailable{Reason: "base url not configured"}
	}
	if region == "" {
		return nil, &UpstreamInvalidRegion{Region: region}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamUnavailable{Reason: "rate limiter wait", Err: err}
		}
	}

	query := url.Values{}
	query.Set("region", region)
	query.Set("start", series.NormalizeHour(start).Format(time.RFC3339))
	query.Set("end", series.NormalizeHour(end).Format(time.RFC3339))

	endpoint := c.baseURL + pricesPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamUnavailable{Reason: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamUnavailable{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamUnavailable{Reason: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapHTTPError(region, resp, payload)
	}

	var body pricesResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &UpstreamUnavailable{Reason: "decode response", Err: err}
	}

	points := make([]series.PricePoint, 0, len(body.Points))
	for _, raw := range body.Points {
		ts, err := time.Parse(time.RFC3339, raw.TS)
		if err != nil {
			return nil, &UpstreamUnavailable{Reason: "parse point timestamp", Err: err}
		}
		price, err := decimal.NewFromString(raw.PriceEURMWh)
		if err != nil {
			return nil, &UpstreamUnavailable{Reason: "parse point price", Err: err}
		}
		points = append(points, series.PricePoint{
			Region: region,
			TS:     series.NormalizeHour(ts),
			Price:  price,
		})
	}

	c.logger.Debug().Str("region", region).Int("points", len(points)).Msg("fetched day-ahead prices")
	return points, nil
}

func (c *Client) mapHTTPError(region string, resp *http.Response, payload []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(payload, &apiErr)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &UpstreamRateLimited{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case http.StatusBadRequest, http.StatusNotFound:
		if strings.Contains(strings.ToLower(apiErr.Code+apiErr.Message), "region") {
			return &UpstreamInvalidRegion{Region: region}
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &UpstreamUnavailable{Reason: fmt.Sprintf("authentication rejected (%d)", resp.StatusCode)}
	}

	reason := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if apiErr.Message != "" {
		reason += ": " + apiErr.Message
	} else if len(payload) > 0 {
		reason += ": " + strings.TrimSpace(string(payload))
	}
	return &UpstreamUnavailable{Reason: reason}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

type pricesResponse struct {
	Region string     `json:"region"`
	Points []rawPoint `json:"points"`
}

type rawPoint struct {
	TS          string `json:"ts"`
	PriceEURMWh string `json:"price_eur_mwh"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var _ Fetcher = (*Client)(nil)
