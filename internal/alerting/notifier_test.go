package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func sampleNotification() Notification {
	start := time.Date(2025, 6, 14, 11, 0, 0, 0, time.UTC)
	return Notification{
		Region:       "SE3",
		Start:        start,
		End:          start.Add(3 * time.Hour),
		Hours:        3,
		MinPriceEUR:  decimal.RequireFromString("-12.50"),
		MeanPriceEUR: decimal.RequireFromString("-6.10"),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "SE3") {
		t.Fatalf("text should mention the region: %q", received["text"])
	}
	if !strings.Contains(received["text"], "-12.50") {
		t.Fatalf("text should mention the lowest price: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNotification()); err == nil {
		t.Fatal("ok=false should surface an error")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
