package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// RunSummary records the outcome of one scheduled pass.
type RunSummary struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Examined      int       `json:"examined"`
	Renewed       int       `json:"renewed"`
	Failed        int       `json:"failed"`
	NoticesSent   int       `json:"notices_sent"`
	NotifyFailure string    `json:"notify_failure,omitempty"`
}

// SchedulerService runs the periodic maintenance pass: renew every
// auto-renew certificate inside the renewal window, then deliver expiry
// notices. Renewals run sequentially so a slow order cannot pile up
// concurrent ACME traffic.
type SchedulerService struct {
	renew        *RenewService
	notify       *NotifyService
	certs        driven.CertStore
	schedule     string
	renewWithin  int
	orderTimeout time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	lastRun *RunSummary
}

// NewSchedulerService creates a new SchedulerService. schedule is a cron
// expression (descriptors like @hourly are accepted); renewWithin is the
// renewal window in days; orderTimeout bounds each individual order.
func NewSchedulerService(
	renew *RenewService,
	notify *NotifyService,
	certs driven.CertStore,
	schedule string,
	renewWithin int,
	orderTimeout time.Duration,
) *SchedulerService {
	return &SchedulerService{
		renew:        renew,
		notify:       notify,
		certs:        certs,
		schedule:     schedule,
		renewWithin:  renewWithin,
		orderTimeout: orderTimeout,
		cron:         cron.New(),
	}
}

// Start registers the pass on the cron schedule and starts the scheduler.
func (s *SchedulerService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunPass(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.schedule, "renew_within_days", s.renewWithin)
	return nil
}

// Stop halts the scheduler and waits for an in-flight pass to finish or the
// context to expire.
func (s *SchedulerService) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// LastRun returns the summary of the most recent pass, or nil before the
// first one.
func (s *SchedulerService) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	summary := *s.lastRun
	return &summary
}

// RunPass executes one maintenance pass immediately. Overlapping passes are
// collapsed: a pass requested while one is running returns the previous
// summary untouched.
func (s *SchedulerService) RunPass(ctx context.Context) RunSummary {
	s.mu.Lock()
	if s.running {
		defer s.mu.Unlock()
		slog.Warn("scheduler pass already running, skipping")
		if s.lastRun != nil {
			return *s.lastRun
		}
		return RunSummary{}
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	summary := RunSummary{StartedAt: time.Now().UTC()}
	slog.Info("scheduler pass started", "renew_within_days", s.renewWithin)

	due, err := s.certs.ListAutoRenewDue(ctx, s.renewWithin)
	if err != nil {
		slog.Error("failed to list certificates due for renewal", "error", err)
	}
	summary.Examined = len(due)

	for _, cert := range due {
		orderCtx, cancel := context.WithTimeout(ctx, s.orderTimeout)
		_, err := s.renew.IssueOrRenew(orderCtx, cert.ID)
		cancel()
		if err != nil {
			summary.Failed++
			continue
		}
		summary.Renewed++
	}

	sent, err := s.notify.ProcessAll(ctx)
	if err != nil {
		summary.NotifyFailure = err.Error()
		slog.Error("notification pass failed", "error", err)
	}
	summary.NoticesSent = sent

	summary.FinishedAt = time.Now().UTC()
	slog.Info("scheduler pass finished",
		"examined", summary.Examined,
		"renewed", summary.Renewed,
		"failed", summary.Failed,
		"notices_sent", summary.NoticesSent,
	)

	s.mu.Lock()
	s.lastRun = &summary
	s.mu.Unlock()
	return summary
}
