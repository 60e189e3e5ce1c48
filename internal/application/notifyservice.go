package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// expiryThresholds are the day marks at which an expiry notice goes out,
// scanned in this order. The first mark at or above the remaining days wins,
// so a certificate inside the 30-day window produces one notice per channel
// for its whole expiry generation.
var expiryThresholds = []int{30, 14, 7, 3, 1}

// NotifyService schedules deduplicated expiry notices across the configured
// delivery channels and flips overdue certificates to status expired.
type NotifyService struct {
	certs         driven.CertStore
	notifications driven.NotificationStore
	channels      []driven.NotificationChannel
	now           func() time.Time
}

// NewNotifyService creates a new NotifyService.
func NewNotifyService(
	certs driven.CertStore,
	notifications driven.NotificationStore,
	channels []driven.NotificationChannel,
) *NotifyService {
	return &NotifyService{
		certs:         certs,
		notifications: notifications,
		channels:      channels,
		now:           time.Now,
	}
}

// ProcessAll examines every certificate once: overdue ones are marked
// expired, and those inside a notice threshold are delivered on each enabled
// channel that has not yet carried that threshold for this certificate
// generation. Channel failures are logged and do not block other channels or
// certificates. It returns the number of notices delivered.
func (s *NotifyService) ProcessAll(ctx context.Context) (int, error) {
	certs, err := s.certs.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	enabled, err := s.enabledChannels(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range certs {
		sent += s.processOne(ctx, &certs[i], enabled)
	}
	return sent, nil
}

func (s *NotifyService) processOne(ctx context.Context, cert *model.Certificate, enabled map[string]bool) int {
	days, ok := cert.DaysUntilExpiry(s.now())
	if !ok {
		return 0
	}

	if days < 0 {
		if cert.Status == model.CertStatusValid {
			if err := s.certs.UpdateStatus(ctx, cert.ID, model.CertStatusExpired); err != nil {
				slog.Error("failed to mark certificate expired", "domain", cert.Domain, "error", err)
			} else {
				slog.Warn("certificate expired", "domain", cert.Domain)
			}
		}
		return 0
	}

	threshold, ok := matchThreshold(days)
	if !ok {
		return 0
	}

	notice := buildNotice(cert, days)
	notificationType := fmt.Sprintf("expiry_%dd", threshold)

	sent := 0
	for _, channel := range s.channels {
		if !enabled[channel.Name()] {
			continue
		}

		already, err := s.notifications.HasBeenSent(ctx, cert.ID, notificationType, channel.Name())
		if err != nil {
			slog.Error("failed to check notification state", "domain", cert.Domain, "channel", channel.Name(), "error", err)
			continue
		}
		if already {
			continue
		}

		if err := channel.Send(ctx, notice); err != nil {
			slog.Error("notification delivery failed", "domain", cert.Domain, "channel", channel.Name(), "error", err)
			continue
		}
		if err := s.notifications.Record(ctx, cert.ID, notificationType, channel.Name()); err != nil {
			slog.Error("failed to record notification", "domain", cert.Domain, "channel", channel.Name(), "error", err)
			continue
		}
		slog.Info("expiry notice delivered", "domain", cert.Domain, "channel", channel.Name(), "type", notificationType)
		sent++
	}
	return sent
}

// enabledChannels reads the operator settings. A channel without a stored
// setting is disabled.
func (s *NotifyService) enabledChannels(ctx context.Context) (map[string]bool, error) {
	settings, err := s.notifications.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(settings))
	for _, setting := range settings {
		enabled[setting.Channel] = setting.Enabled
	}
	return enabled, nil
}

// matchThreshold returns the first threshold at or above the given number of
// days, or false when the certificate is not yet inside any threshold.
func matchThreshold(days int) (int, bool) {
	for _, t := range expiryThresholds {
		if days <= t {
			return t, true
		}
	}
	return 0, false
}

func buildNotice(cert *model.Certificate, days int) model.ExpiryNotice {
	expires := cert.ExpiresAt.UTC()
	title := fmt.Sprintf("Certificate for %s expires in %d days", cert.Domain, days)
	if days == 0 {
		title = fmt.Sprintf("Certificate for %s expires today", cert.Domain)
	}
	return model.ExpiryNotice{
		Domain:          cert.Domain,
		DaysUntilExpiry: days,
		ExpiresAt:       expires,
		Title:           title,
		Body: fmt.Sprintf("The certificate for %s expires on %s. Renew it now or enable auto-renew.",
			cert.Domain, expires.Format("2006-01-02")),
	}
}
