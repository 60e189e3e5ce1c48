package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfortner/certminder/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func testNotice() model.ExpiryNotice {
	return model.ExpiryNotice{
		Domain:          "example.com",
		DaysUntilExpiry: 7,
		ExpiresAt:       time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		Title:           "Certificate for example.com expires in 7 days",
		Body:            "The certificate for example.com expires on 2026-09-05. Renew it or enable auto-renew.",
	}
}

func TestWebhookChannel_PostsPayload(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(testLogger())
	ch.lookupEnv = envMap(map[string]string{"NOTIFY_WEBHOOK_URL": srv.URL})

	require.NoError(t, ch.Send(context.Background(), testNotice()))
	assert.Equal(t, "certificate_expiring", got.Event)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, 7, got.DaysUntilExpiry)
	assert.Equal(t, "2026-09-05T00:00:00Z", got.ExpiresAt)
	assert.NotEmpty(t, got.Title)
	assert.NotEmpty(t, got.Body)
}

func TestWebhookChannel_NonSuccessStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(testLogger())
	ch.lookupEnv = envMap(map[string]string{"NOTIFY_WEBHOOK_URL": srv.URL})

	err := ch.Send(context.Background(), testNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookChannel_MissingURLIsConfigurationError(t *testing.T) {
	t.Parallel()

	ch := NewWebhookChannel(testLogger())
	ch.lookupEnv = envMap(nil)

	err := ch.Send(context.Background(), testNotice())
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"NOTIFY_WEBHOOK_URL"}, cfgErr.Vars)
}

func TestTelegramChannel_SendsMessage(t *testing.T) {
	t.Parallel()

	var gotPath string
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(testLogger())
	ch.baseURL = srv.URL
	ch.lookupEnv = envMap(map[string]string{
		"TELEGRAM_BOT_TOKEN": "123:abc",
		"TELEGRAM_CHAT_ID":   "-100200300",
	})

	require.NoError(t, ch.Send(context.Background(), testNotice()))
	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "-100200300", got["chat_id"])
	assert.Contains(t, got["text"], "example.com")
}

func TestTelegramChannel_MissingCredentialsListsAllVars(t *testing.T) {
	t.Parallel()

	ch := NewTelegramChannel(testLogger())
	ch.lookupEnv = envMap(nil)

	err := ch.Send(context.Background(), testNotice())
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"}, cfgErr.Vars)
}

func TestEmailChannel_MissingConfigListsAllVars(t *testing.T) {
	t.Parallel()

	ch := NewEmailChannel(testLogger())
	ch.lookupEnv = envMap(nil)

	err := ch.Send(context.Background(), testNotice())
	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"SMTP_HOST", "NOTIFY_EMAIL"}, cfgErr.Vars)
}

func TestEmailChannel_InvalidPort(t *testing.T) {
	t.Parallel()

	ch := NewEmailChannel(testLogger())
	ch.lookupEnv = envMap(map[string]string{
		"SMTP_HOST":    "mail.example.com",
		"NOTIFY_EMAIL": "ops@example.com",
		"SMTP_PORT":    "not-a-port",
	})

	err := ch.Send(context.Background(), testNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
}

func TestChannelNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "email", NewEmailChannel(testLogger()).Name())
	assert.Equal(t, "webhook", NewWebhookChannel(testLogger()).Name())
	assert.Equal(t, "telegram", NewTelegramChannel(testLogger()).Name())
}
