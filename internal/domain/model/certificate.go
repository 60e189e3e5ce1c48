// Package model contains the core domain types for certificate lifecycle management.
package model

import "time"

// CertStatus represents the lifecycle state of a managed certificate.
type CertStatus string

const (
	CertStatusPending CertStatus = "pending"
	CertStatusValid   CertStatus = "valid"
	CertStatusExpired CertStatus = "expired"
	CertStatusError   CertStatus = "error"
)

// ChallengeType selects the ACME proof mechanism for a certificate.
type ChallengeType string

const (
	ChallengeTypeHTTP ChallengeType = "http"
	ChallengeTypeDNS  ChallengeType = "dns"
)

// Certificate is a managed certificate record. Domain is the unique key.
// CertificatePEM, PrivateKeyPEM, IssuedAt, and ExpiresAt are unset until the
// first successful issuance. DNSProvider is required iff ChallengeType is dns.
type Certificate struct {
	ID             int64
	Domain         string
	Status         CertStatus
	IssuedAt       *time.Time
	ExpiresAt      *time.Time
	CertificatePEM string
	PrivateKeyPEM  string
	ChallengeType  ChallengeType
	DNSProvider    string
	ACMEProvider   string
	AutoRenew      bool
	HookScript     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DaysUntilExpiry returns the floored number of calendar days between now and
// the certificate's expiry. The second return is false when ExpiresAt is unset.
// The result is negative for certificates that have already expired.
func (c Certificate) DaysUntilExpiry(now time.Time) (int, bool) {
	if c.ExpiresAt == nil {
		return 0, false
	}
	diff := c.ExpiresAt.Sub(now)
	days := int(diff.Hours() / 24)
	if diff < 0 && diff.Hours()/24 != float64(days) {
		days-- // integer division truncates toward zero; floor instead
	}
	return days, true
}
