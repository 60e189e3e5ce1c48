// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath       string
	ListenAddr   string
	ACMEEmail    string
	UseStaging   bool
	Schedule     string
	RenewWithin  int
	OrderTimeout time.Duration
	CronSecret   string
}

// Load reads configuration from environment variables and returns a
// validated Config. CERTMINDER_ACME_EMAIL is required: CAs demand a contact
// address for account registration. Optional variables with defaults:
// CERTMINDER_DB_PATH (certminder.db), CERTMINDER_LISTEN_ADDR (127.0.0.1:8420),
// CERTMINDER_SCHEDULE (@hourly), CERTMINDER_RENEW_WITHIN (30 days),
// CERTMINDER_ORDER_TIMEOUT (10m), CERTMINDER_ACME_PRODUCTION (false, so
// orders go to staging directories until explicitly flipped), and
// CERTMINDER_CRON_SECRET (empty, leaving the manual trigger open).
func Load() (*Config, error) {
	email := os.Getenv("CERTMINDER_ACME_EMAIL")
	if email == "" {
		return nil, fmt.Errorf("CERTMINDER_ACME_EMAIL is required")
	}

	dbPath := "certminder.db"
	if v, ok := os.LookupEnv("CERTMINDER_DB_PATH"); ok {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8420"
	if v, ok := os.LookupEnv("CERTMINDER_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	production := false
	if v, ok := os.LookupEnv("CERTMINDER_ACME_PRODUCTION"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CERTMINDER_ACME_PRODUCTION has invalid boolean %q: %w", v, err)
		}
		production = parsed
	}

	schedule := "@hourly"
	if v, ok := os.LookupEnv("CERTMINDER_SCHEDULE"); ok {
		schedule = v
	}

	renewWithin := 30
	if v, ok := os.LookupEnv("CERTMINDER_RENEW_WITHIN"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("CERTMINDER_RENEW_WITHIN has invalid day count %q", v)
		}
		renewWithin = parsed
	}

	orderTimeout := 10 * time.Minute
	if v, ok := os.LookupEnv("CERTMINDER_ORDER_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CERTMINDER_ORDER_TIMEOUT has invalid duration %q: %w", v, err)
		}
		orderTimeout = parsed
	}

	return &Config{
		DBPath:       dbPath,
		ListenAddr:   listenAddr,
		ACMEEmail:    email,
		UseStaging:   !production,
		Schedule:     schedule,
		RenewWithin:  renewWithin,
		OrderTimeout: orderTimeout,
		CronSecret:   os.Getenv("CERTMINDER_CRON_SECRET"),
	}, nil
}
