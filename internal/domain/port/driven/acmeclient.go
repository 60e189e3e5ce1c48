package driven

import (
	"context"
	"crypto"

	"github.com/kfortner/certminder/internal/domain/model"
)

// EABCredentials is the External Account Binding pair a CA may require
// before account registration.
type EABCredentials struct {
	KeyID   string
	HMACKey string
}

// AccountParams describes the ACME account to register or reuse.
type AccountParams struct {
	DirectoryURL string
	ContactEmail string
	AccountKey   crypto.PrivateKey
	EAB          *EABCredentials
}

// ChallengeFulfiller publishes the proof for a pending challenge: an HTTP-01
// token to serve, or a DNS-01 TXT record to create.
type ChallengeFulfiller func(ctx context.Context, domain, token, keyAuthorization string) error

// ChallengeCleaner removes challenge artifacts. It is invoked whether or not
// validation succeeded.
type ChallengeCleaner func(ctx context.Context, domain, token, keyAuthorization string) error

// OrderRequest drives one certificate order. Exactly one challenge type is
// offered to the CA; there is no fallback between proof mechanisms.
type OrderRequest struct {
	Domain        string
	ChallengeType model.ChallengeType
	Fulfill       ChallengeFulfiller
	Cleanup       ChallengeCleaner
}

// IssuedCertificate is the result of a completed order.
type IssuedCertificate struct {
	CertificatePEM string
	PrivateKeyPEM  string
}

// ACMEClient defines the driven port for the ACME protocol library. The
// implementation owns account registration, key pair and CSR generation, and
// the order/authorize/finalize sequence; this application supplies only the
// challenge callbacks.
type ACMEClient interface {
	// Register creates (or reuses, when the key is already registered with
	// the CA) an ACME account and returns a handle for placing orders.
	Register(ctx context.Context, params AccountParams) (ACMEAccount, error)
}

// ACMEAccount places certificate orders against a registered account.
type ACMEAccount interface {
	Obtain(ctx context.Context, req OrderRequest) (*IssuedCertificate, error)
}
