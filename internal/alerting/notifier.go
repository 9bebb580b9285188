package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification describes a negative-price window worth telling someone about.
type Notification struct {
	Region        string
	Start         time.Time
	End           time.Time // exclusive
	Hours         int
	MinPriceEUR   decimal.Decimal // EUR/MWh, most negative hour
	MeanPriceEUR  decimal.Decimal
	AdditionalMsg string
}

// Notifier delivers negative-price alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram alert channel.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends the alert text via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("region", note.Region).
		Time("start", note.Start).
		Int("hours", note.Hours).
		Msg("negative price alert sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Negative Price Alert]\n")
	builder.WriteString(fmt.Sprintf("Region: %s\n", note.Region))
	builder.WriteString(fmt.Sprintf("Window: %s - %s UTC\n",
		note.Start.UTC().Format(time.RFC3339), note.End.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Hours below zero: %d\n", note.Hours))
	builder.WriteString(fmt.Sprintf("Lowest price: %s EUR/MWh\n", note.MinPriceEUR.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Average price: %s EUR/MWh\n", note.MeanPriceEUR.StringFixed(2)))
	builder.WriteString("Exporting production in this window costs money.\n")
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
