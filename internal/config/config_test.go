package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes a variable for the test while keeping t.Setenv's restore
// registered.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	if err := os.Unsetenv(name); err != nil {
		t.Fatalf("unset %s: %v", name, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CERTMINDER_ACME_EMAIL",
		"CERTMINDER_DB_PATH",
		"CERTMINDER_LISTEN_ADDR",
		"CERTMINDER_ACME_PRODUCTION",
		"CERTMINDER_SCHEDULE",
		"CERTMINDER_RENEW_WITHIN",
		"CERTMINDER_ORDER_TIMEOUT",
		"CERTMINDER_CRON_SECRET",
	} {
		unsetEnv(t, name)
	}
}

func TestLoad_RequiresEmail(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CERTMINDER_ACME_EMAIL")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CERTMINDER_ACME_EMAIL", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "certminder.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8420", cfg.ListenAddr)
	assert.Equal(t, "ops@example.com", cfg.ACMEEmail)
	assert.True(t, cfg.UseStaging)
	assert.Equal(t, "@hourly", cfg.Schedule)
	assert.Equal(t, 30, cfg.RenewWithin)
	assert.Equal(t, 10*time.Minute, cfg.OrderTimeout)
	assert.Empty(t, cfg.CronSecret)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CERTMINDER_ACME_EMAIL", "ops@example.com")
	t.Setenv("CERTMINDER_DB_PATH", "/var/lib/certminder/state.db")
	t.Setenv("CERTMINDER_LISTEN_ADDR", "0.0.0.0:80")
	t.Setenv("CERTMINDER_ACME_PRODUCTION", "true")
	t.Setenv("CERTMINDER_SCHEDULE", "0 3 * * *")
	t.Setenv("CERTMINDER_RENEW_WITHIN", "14")
	t.Setenv("CERTMINDER_ORDER_TIMEOUT", "5m")
	t.Setenv("CERTMINDER_CRON_SECRET", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/certminder/state.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:80", cfg.ListenAddr)
	assert.False(t, cfg.UseStaging)
	assert.Equal(t, "0 3 * * *", cfg.Schedule)
	assert.Equal(t, 14, cfg.RenewWithin)
	assert.Equal(t, 5*time.Minute, cfg.OrderTimeout)
	assert.Equal(t, "hunter2", cfg.CronSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		env   string
		value string
	}{
		{name: "bad production flag", env: "CERTMINDER_ACME_PRODUCTION", value: "yep"},
		{name: "bad renew window", env: "CERTMINDER_RENEW_WITHIN", value: "soon"},
		{name: "zero renew window", env: "CERTMINDER_RENEW_WITHIN", value: "0"},
		{name: "bad order timeout", env: "CERTMINDER_ORDER_TIMEOUT", value: "fast"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CERTMINDER_ACME_EMAIL", "ops@example.com")
			t.Setenv(tc.env, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
