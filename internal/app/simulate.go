package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahlg/price-negative-comparison/internal/alerting"
	"github.com/frahlg/price-negative-comparison/internal/series"
)

// SimulateAlert sends a fabricated negative-price alert through the
// configured channel, for verifying the alert wiring end to end.
func (a *App) SimulateAlert(ctx context.Context, region string, minPrice decimal.Decimal, hours int) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	if region == "" {
		region = "SE3"
	}
	if hours <= 0 {
		hours = 1
	}
	if minPrice.Sign() >= 0 {
		minPrice = decimal.RequireFromString("-10")
	}

	start := series.NormalizeHour(time.Now().UTC().Add(time.Hour))
	note := alerting.Notification{
		Region:        region,
		Start:         start,
		End:           start.Add(time.Duration(hours) * time.Hour),
		Hours:         hours,
		MinPriceEUR:   minPrice,
		MeanPriceEUR:  minPrice,
		AdditionalMsg: "This is a simulated alert.",
	}
	return notifier.Notify(ctx, note)
}
