package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationChannel = (*WebhookChannel)(nil)

// WebhookChannel POSTs expiry notices as JSON to an operator-configured URL.
type WebhookChannel struct {
	logger    *slog.Logger
	client    *http.Client
	lookupEnv func(string) (string, bool)
}

// NewWebhookChannel creates the webhook delivery channel.
func NewWebhookChannel(logger *slog.Logger) *WebhookChannel {
	return &WebhookChannel{
		logger:    logger.With("channel", "webhook"),
		client:    &http.Client{Timeout: 15 * time.Second},
		lookupEnv: os.LookupEnv,
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	Event           string `json:"event"`
	Domain          string `json:"domain"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	ExpiresAt       string `json:"expires_at"`
	Title           string `json:"title"`
	Body            string `json:"body"`
}

// Send delivers the notice to NOTIFY_WEBHOOK_URL. Any non-2xx response is an
// error so the pass can log the failed delivery.
func (c *WebhookChannel) Send(ctx context.Context, notice model.ExpiryNotice) error {
	url, _ := c.lookupEnv("NOTIFY_WEBHOOK_URL")
	if url == "" {
		return &model.ConfigurationError{Vars: []string{"NOTIFY_WEBHOOK_URL"}}
	}

	body, err := json.Marshal(webhookPayload{
		Event:           "certificate_expiring",
		Domain:          notice.Domain,
		DaysUntilExpiry: notice.DaysUntilExpiry,
		ExpiresAt:       notice.ExpiresAt.UTC().Format(time.RFC3339),
		Title:           notice.Title,
		Body:            notice.Body,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.Info("expiry notice posted", "domain", notice.Domain)
	return nil
}
