package model

import "time"

// NotificationRecord marks that a specific expiry threshold has been
// delivered on a specific channel for a certificate. Records are cleared
// wholesale when the certificate is renewed.
type NotificationRecord struct {
	ID               int64
	CertificateID    int64
	NotificationType string
	Channel          string
	SentAt           time.Time
}

// NotificationSetting is an operator toggle for a delivery channel.
type NotificationSetting struct {
	Channel   string
	Enabled   bool
	UpdatedAt time.Time
}

// ExpiryNotice is the message delivered through notification channels when a
// certificate approaches expiry.
type ExpiryNotice struct {
	Domain          string
	DaysUntilExpiry int
	ExpiresAt       time.Time
	Title           string
	Body            string
}
