// Package notify implements the expiry alert delivery channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strconv"

	"github.com/domodwyer/mailyak/v3"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationChannel = (*EmailChannel)(nil)

// EmailChannel delivers expiry notices over SMTP. Credentials come from the
// environment at send time so the operator can rotate them without a restart.
type EmailChannel struct {
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
}

// NewEmailChannel creates the SMTP delivery channel.
func NewEmailChannel(logger *slog.Logger) *EmailChannel {
	return &EmailChannel{logger: logger.With("channel", "email"), lookupEnv: os.LookupEnv}
}

func (c *EmailChannel) Name() string { return "email" }

// Send mails the notice to NOTIFY_EMAIL through SMTP_HOST. Port 465 uses
// implicit TLS; everything else goes through STARTTLS negotiation inside the
// SMTP dialog.
func (c *EmailChannel) Send(ctx context.Context, notice model.ExpiryNotice) error {
	host, recipient := c.env("SMTP_HOST"), c.env("NOTIFY_EMAIL")
	var missing []string
	if host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if recipient == "" {
		missing = append(missing, "NOTIFY_EMAIL")
	}
	if len(missing) > 0 {
		return &model.ConfigurationError{Vars: missing}
	}

	port := 587
	if raw := c.env("SMTP_PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", raw, err)
		}
		port = p
	}

	user, pass := c.env("SMTP_USER"), c.env("SMTP_PASS")
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	var (
		mail *mailyak.MailYak
		err  error
	)
	if port == 465 {
		mail, err = mailyak.NewWithTLS(addr, auth, nil)
		if err != nil {
			return fmt.Errorf("smtp tls setup for %s: %w", addr, err)
		}
	} else {
		mail = mailyak.New(addr, auth)
	}

	from := user
	if from == "" {
		from = "certminder@" + host
	}
	mail.From(from)
	mail.To(recipient)
	mail.Subject(notice.Title)
	mail.Plain().Set(notice.Body)

	if err := mail.Send(); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}

	c.logger.Info("expiry notice mailed", "domain", notice.Domain, "to", recipient)
	return nil
}

func (c *EmailChannel) env(name string) string {
	v, _ := c.lookupEnv(name)
	return v
}
