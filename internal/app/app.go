package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/frahlg/price-negative-comparison/internal/alerting"
	"github.com/frahlg/price-negative-comparison/internal/analysis"
	"github.com/frahlg/price-negative-comparison/internal/cache"
	"github.com/frahlg/price-negative-comparison/internal/config"
	"github.com/frahlg/price-negative-comparison/internal/coordinator"
	"github.com/frahlg/price-negative-comparison/internal/currency"
	"github.com/frahlg/price-negative-comparison/internal/scheduler"
	"github.com/frahlg/price-negative-comparison/internal/service"
	"github.com/frahlg/price-negative-comparison/internal/source"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// openCache returns the configured price cache. Without a database DSN the
// in-memory store is used, which only lives for the duration of the command.
func (a *App) openCache(ctx context.Context) (cache.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory price cache")
		return cache.NewMemory(), func() {}, nil
	}

	pool, err := cache.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := cache.NewPostgres(pool)
	return store, store.Close, nil
}

func (a *App) newSource() source.Fetcher {
	return source.NewClient(source.Options{
		BaseURL:       a.Config.Upstream.BaseURL,
		Token:         a.Config.Upstream.Token,
		Timeout:       a.Config.Upstream.RequestTimeout,
		UserAgent:     a.Config.Upstream.UserAgent,
		RatePerSecond: a.Config.Upstream.RatePerSecond,
		Burst:         a.Config.Upstream.Burst,
	}, a.Logger)
}

func (a *App) newCoordinator(store cache.Store) *coordinator.Coordinator {
	return coordinator.New(store, a.newSource(), coordinator.Options{
		MaxAttempts: a.Config.Fetch.MaxAttempts,
		Backoff:     a.Config.Fetch.Backoff,
	}, a.Logger)
}

func (a *App) newEngine() (*analysis.Engine, error) {
	table, err := currency.NewTable(a.Config.Currency.Rates)
	if err != nil {
		return nil, fmt.Errorf("build exchange rate table: %w", err)
	}
	return analysis.New(currency.NewStore(table), a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running watch service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		AlignToStart:   a.Config.Watch.AlignToBucket,
		StartupDelay:   a.Config.Watch.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	coord := a.newCoordinator(store)
	notifier := a.newNotifier()
	if notifier == nil && a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}

	svc := service.New(a.Config, sched, coord, notifier, a.Logger)

	a.Logger.Info().Strs("regions", a.Config.Watch.Regions).Msg("starting watch service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch service stopped")
	return nil
}

// AnalyzeOptions configure a production-versus-price analysis.
type AnalyzeOptions struct {
	InputPath string
	Region    string
	Currency  string
	From      *time.Time
	To        *time.Time
	TopN      int
	JSON      bool
}

// BackfillOptions configure the cache warm-up job.
type BackfillOptions struct {
	Region string
	From   time.Time
	To     time.Time
}

// ExportOptions hold parameters for exporting cached prices.
type ExportOptions struct {
	Region    string
	InputPath string
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
