package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/alerting"
	"github.com/frahlg/price-negative-comparison/internal/config"
	"github.com/frahlg/price-negative-comparison/internal/coordinator"
	"github.com/frahlg/price-negative-comparison/internal/scheduler"
	"github.com/frahlg/price-negative-comparison/internal/series"
)

// Service keeps the price cache warm for the configured regions and raises
// alerts when upcoming hours price below zero.
type Service struct {
	scheduler   *scheduler.Scheduler
	coordinator *coordinator.Coordinator
	notifier    alerting.Notifier
	logger      zerolog.Logger

	regions  []string
	horizon  time.Duration
	lookback time.Duration
	alertsOn bool

	mu      sync.Mutex
	alerted map[string]time.Time // region -> start of last alerted run
}

// New constructs the watch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, coord *coordinator.Coordinator, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:   sched,
		coordinator: coord,
		notifier:    notifier,
		logger:      logger.With().Str("component", "service").Logger(),
		regions:     cfg.Watch.Regions,
		horizon:     cfg.Watch.Horizon,
		lookback:    cfg.Watch.Lookback,
		alertsOn:    cfg.Alerting.Enabled && notifier != nil,
		alerted:     make(map[string]time.Time),
	}
}

// Run begins the periodic refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if len(s.regions) == 0 {
		return fmt.Errorf("no watch regions configured")
	}
	return s.scheduler.Run(ctx, s.RefreshAll)
}

// RefreshAll ensures coverage for every configured region around the cycle
// instant. A failing region does not stop the others.
func (s *Service) RefreshAll(ctx context.Context, cycle time.Time) error {
	start := series.NormalizeHour(cycle.Add(-s.lookback))
	end := series.NormalizeHour(cycle.Add(s.horizon))

	var firstErr error
	for _, region := range s.regions {
		if err := s.refreshRegion(ctx, region, start, end); err != nil {
			s.logger.Error().Err(err).Str("region", region).Msg("region refresh failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) refreshRegion(ctx context.Context, region string, start, end time.Time) error {
	result, err := s.coordinator.EnsureAndRead(ctx, region, start, end)
	if err != nil {
		return fmt.Errorf("ensure coverage for %s: %w", region, err)
	}

	s.logger.Info().Str("region", region).
		Int("points", len(result.Points)).
		Int("fetched", result.Fetched).
		Bool("complete", result.Complete()).
		Msg("coverage refreshed")

	if !s.alertsOn {
		return nil
	}

	for _, run := range negativeRuns(result.Points) {
		if !s.shouldAlert(region, run.start) {
			continue
		}
		note := alerting.Notification{
			Region:       region,
			Start:        run.start,
			End:          run.end,
			Hours:        run.hours,
			MinPriceEUR:  run.min,
			MeanPriceEUR: run.mean,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("region", region).Msg("failed to dispatch alert")
			continue
		}
		s.markAlerted(region, run.start)
	}
	return nil
}

func (s *Service) shouldAlert(region string, runStart time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.alerted[region]
	return !ok || runStart.After(last)
}

func (s *Service) markAlerted(region string, runStart time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerted[region] = runStart
}

type run struct {
	start time.Time
	end   time.Time // exclusive
	hours int
	min   decimal.Decimal
	mean  decimal.Decimal
}

// negativeRuns groups consecutive below-zero hours. Points must be sorted by
// timestamp, which EnsureAndRead guarantees.
func negativeRuns(points []series.PricePoint) []run {
	var runs []run
	var cur *run
	var sum decimal.Decimal

	flush := func() {
		if cur == nil {
			return
		}
		cur.mean = sum.Div(decimal.NewFromInt(int64(cur.hours)))
		runs = append(runs, *cur)
		cur = nil
	}

	for _, p := range points {
		if p.Price.Sign() >= 0 {
			flush()
			continue
		}
		if cur != nil && p.TS.Equal(cur.end) {
			cur.end = p.TS.Add(time.Hour)
			cur.hours++
			sum = sum.Add(p.Price)
			if p.Price.LessThan(cur.min) {
				cur.min = p.Price
			}
			continue
		}
		flush()
		cur = &run{start: p.TS, end: p.TS.Add(time.Hour), hours: 1, min: p.Price}
		sum = p.Price
	}
	flush()
	return runs
}
