package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationChannel = (*TelegramChannel)(nil)

// TelegramChannel delivers expiry notices through the Telegram Bot API.
type TelegramChannel struct {
	logger    *slog.Logger
	client    *http.Client
	baseURL   string
	lookupEnv func(string) (string, bool)
}

// NewTelegramChannel creates the Telegram delivery channel.
func NewTelegramChannel(logger *slog.Logger) *TelegramChannel {
	return &TelegramChannel{
		logger:    logger.With("channel", "telegram"),
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   "https://api.telegram.org",
		lookupEnv: os.LookupEnv,
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

// Send posts the notice text to the configured chat via sendMessage.
func (c *TelegramChannel) Send(ctx context.Context, notice model.ExpiryNotice) error {
	token, _ := c.lookupEnv("TELEGRAM_BOT_TOKEN")
	chatID, _ := c.lookupEnv("TELEGRAM_CHAT_ID")
	var missing []string
	if token == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if chatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return &model.ConfigurationError{Vars: missing}
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    notice.Title + "\n\n" + notice.Body,
	})
	if err != nil {
		return fmt.Errorf("encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, detail)
	}

	c.logger.Info("expiry notice sent", "domain", notice.Domain)
	return nil
}
