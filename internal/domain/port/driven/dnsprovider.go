package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// DNSProvider defines the driven port for publishing ACME DNS-01 TXT records.
type DNSProvider interface {
	Name() string
	// CreateRecord publishes the challenge TXT record. A rejected request or
	// transport failure surfaces as a *model.ProviderError.
	CreateRecord(ctx context.Context, ch model.DNSChallenge) error
	// DeleteRecord removes the challenge TXT record. Deletion is best-effort:
	// a record that is already absent is treated as success.
	DeleteRecord(ctx context.Context, ch model.DNSChallenge) error
}

// CredentialVerifier is optionally implemented by providers that can check
// their credentials with a cheap API call.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context) bool
}
