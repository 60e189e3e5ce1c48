package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	acmeadapter "github.com/kfortner/certminder/internal/adapter/driven/acme"
	dnsadapter "github.com/kfortner/certminder/internal/adapter/driven/dns"
	hookadapter "github.com/kfortner/certminder/internal/adapter/driven/hook"
	"github.com/kfortner/certminder/internal/adapter/driven/notify"
	sqliteadapter "github.com/kfortner/certminder/internal/adapter/driven/sqlite"
	httphandler "github.com/kfortner/certminder/internal/adapter/driving/http"
	"github.com/kfortner/certminder/internal/application"
	"github.com/kfortner/certminder/internal/caprovider"
	"github.com/kfortner/certminder/internal/config"
	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// registryLister adapts the DNS provider registry to the handler's listing
// interface.
type registryLister struct {
	registry *dnsadapter.Registry
}

func (l *registryLister) ListAvailable() []httphandler.DNSProviderEntry {
	infos := l.registry.ListAvailable()
	entries := make([]httphandler.DNSProviderEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, httphandler.DNSProviderEntry{
			Name:       info.Name,
			Label:      info.Label,
			Configured: info.Configured,
		})
	}
	return entries
}

func (l *registryLister) PendingChallenges() []model.DNSChallenge {
	return l.registry.Pending().All()
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"schedule", cfg.Schedule,
		"renew_within_days", cfg.RenewWithin,
		"acme_staging", cfg.UseStaging,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	certStore := sqliteadapter.NewCertRepo(db)
	tokenStore := sqliteadapter.NewTokenRepo(db)
	hookLogStore := sqliteadapter.NewHookLogRepo(db)
	notificationStore := sqliteadapter.NewNotificationRepo(db)

	catalog := caprovider.NewCatalog()
	dnsRegistry := dnsadapter.NewRegistry()
	acmeClient := acmeadapter.NewClient(slog.Default())
	hookRunner := hookadapter.NewRunner(slog.Default())

	channels := []driven.NotificationChannel{
		notify.NewEmailChannel(slog.Default()),
		notify.NewWebhookChannel(slog.Default()),
		notify.NewTelegramChannel(slog.Default()),
	}

	// 6. Wire application services.
	accountKeys := application.NewAccountKeyRegistry(acmeadapter.GenerateAccountKey)
	renewSvc := application.NewRenewService(
		certStore, tokenStore, hookLogStore, notificationStore,
		acmeClient, catalog, dnsRegistry, hookRunner, accountKeys,
		cfg.ACMEEmail, cfg.UseStaging,
	)
	notifySvc := application.NewNotifyService(certStore, notificationStore, channels)
	schedSvc := application.NewSchedulerService(
		renewSvc, notifySvc, certStore,
		cfg.Schedule, cfg.RenewWithin, cfg.OrderTimeout,
	)
	if err := schedSvc.Start(); err != nil {
		return err
	}

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(
		certStore, tokenStore, hookLogStore, notificationStore,
		renewSvc, schedSvc, &registryLister{registry: dnsRegistry}, catalog,
		cfg.CronSecret, slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("certminder started", "listen_addr", cfg.ListenAddr, "schedule", cfg.Schedule)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown: drain HTTP, then let an in-flight pass finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	schedSvc.Stop(shutdownCtx)

	slog.Info("shutdown complete")
	return nil
}
