// Package application contains use-case orchestration services.
package application

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/kfortner/certminder/internal/caprovider"
	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// DNSProviderFactory constructs DNS provider adapters by name, resolving
// their credentials. A name outside the registry yields a
// *model.UnknownProviderError; missing credentials yield a
// *model.ConfigurationError.
type DNSProviderFactory interface {
	Create(name string) (driven.DNSProvider, error)
}

// defaultPropagationWait is how long a DNS-01 order pauses after publishing
// the TXT record before the CA is asked to validate.
const defaultPropagationWait = 10 * time.Second

// RenewService orchestrates certificate issuance and renewal: it resolves
// the CA and challenge mechanism for a record, drives the ACME order through
// the protocol adapter, persists the outcome, and fires the deployment hook.
type RenewService struct {
	certs         driven.CertStore
	tokens        driven.ChallengeTokenStore
	hookLogs      driven.HookLogStore
	notifications driven.NotificationStore
	acme          driven.ACMEClient
	catalog       *caprovider.Catalog
	dnsProviders  DNSProviderFactory
	hooks         driven.HookRunner
	accountKeys   *AccountKeyRegistry

	contactEmail    string
	useStaging      bool
	propagationWait time.Duration
	now             func() time.Time
}

// NewRenewService creates a new RenewService with all required dependencies.
func NewRenewService(
	certs driven.CertStore,
	tokens driven.ChallengeTokenStore,
	hookLogs driven.HookLogStore,
	notifications driven.NotificationStore,
	acmeClient driven.ACMEClient,
	catalog *caprovider.Catalog,
	dnsProviders DNSProviderFactory,
	hooks driven.HookRunner,
	accountKeys *AccountKeyRegistry,
	contactEmail string,
	useStaging bool,
) *RenewService {
	return &RenewService{
		certs:           certs,
		tokens:          tokens,
		hookLogs:        hookLogs,
		notifications:   notifications,
		acme:            acmeClient,
		catalog:         catalog,
		dnsProviders:    dnsProviders,
		hooks:           hooks,
		accountKeys:     accountKeys,
		contactEmail:    contactEmail,
		useStaging:      useStaging,
		propagationWait: defaultPropagationWait,
		now:             time.Now,
	}
}

// WithPropagationWait overrides the pause between publishing a DNS-01 record
// and asking the CA to validate. Used by tests and fast local setups.
func (s *RenewService) WithPropagationWait(d time.Duration) *RenewService {
	s.propagationWait = d
	return s
}

// IssueOrRenew runs one complete order for the certificate record. All
// preconditions (known CA, EAB credentials, DNS provider credentials) are
// checked before the CA is contacted. On success the record carries the new
// material and status valid; on failure it is marked with status error and
// the error is returned.
func (s *RenewService) IssueOrRenew(ctx context.Context, certID int64) (*model.Certificate, error) {
	cert, err := s.certs.GetByID(ctx, certID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, model.ErrCertificateNotFound
	}

	slog.Info("starting certificate order", "domain", cert.Domain, "challenge", cert.ChallengeType)

	issued, err := s.runOrder(ctx, cert)
	if err != nil {
		if stErr := s.certs.UpdateStatus(ctx, cert.ID, model.CertStatusError); stErr != nil {
			slog.Error("failed to mark certificate errored", "domain", cert.Domain, "error", stErr)
		}
		slog.Error("certificate order failed", "domain", cert.Domain, "error", err)
		return nil, err
	}

	providerName := s.resolveProviderName(cert)
	validityDays := 90
	if p, pErr := s.catalog.Get(providerName); pErr == nil {
		validityDays = p.CertValidityDays
	}

	now := s.now().UTC()
	expires := now.AddDate(0, 0, validityDays)
	cert.Status = model.CertStatusValid
	cert.IssuedAt = &now
	cert.ExpiresAt = &expires
	cert.CertificatePEM = issued.CertificatePEM
	cert.PrivateKeyPEM = issued.PrivateKeyPEM

	if err := s.certs.Update(ctx, *cert); err != nil {
		return nil, fmt.Errorf("persist renewed certificate for %s: %w", cert.Domain, err)
	}
	if err := s.tokens.DeleteForDomain(ctx, cert.Domain); err != nil {
		slog.Warn("failed to clear challenge tokens", "domain", cert.Domain, "error", err)
	}
	// A fresh certificate starts a fresh expiry cycle.
	if err := s.notifications.ClearForCertificate(ctx, cert.ID); err != nil {
		slog.Warn("failed to clear notification state", "domain", cert.Domain, "error", err)
	}

	s.runHook(ctx, cert)

	slog.Info("certificate issued", "domain", cert.Domain, "expires_at", expires)
	return cert, nil
}

// runOrder performs the precondition checks and the ACME order itself.
func (s *RenewService) runOrder(ctx context.Context, cert *model.Certificate) (*driven.IssuedCertificate, error) {
	providerName := s.resolveProviderName(cert)

	provider, err := s.catalog.Get(providerName)
	if err != nil {
		return nil, err
	}

	var eab *driven.EABCredentials
	if provider.RequiresEAB {
		eab, err = s.catalog.EABCredentials(providerName)
		if err != nil {
			return nil, err
		}
		if eab == nil {
			return nil, &model.ConfigurationError{Vars: []string{provider.EABKeyIDVar, provider.EABMACKeyVar}}
		}
	}

	directory, err := s.catalog.Directory(providerName, s.useStaging)
	if err != nil {
		return nil, err
	}

	var fulfill driven.ChallengeFulfiller
	var cleanup driven.ChallengeCleaner
	switch cert.ChallengeType {
	case model.ChallengeTypeHTTP:
		fulfill, cleanup = s.httpChallengeCallbacks()
	case model.ChallengeTypeDNS:
		dnsProvider, dnsErr := s.dnsProviders.Create(cert.DNSProvider)
		if dnsErr != nil {
			return nil, dnsErr
		}
		if verifier, ok := dnsProvider.(driven.CredentialVerifier); ok && !verifier.VerifyCredentials(ctx) {
			return nil, &model.ProviderError{
				Provider:  dnsProvider.Name(),
				Operation: "credential verification",
				Message:   "provider rejected the configured credentials",
			}
		}
		fulfill, cleanup = s.dnsChallengeCallbacks(dnsProvider)
	default:
		return nil, fmt.Errorf("unsupported challenge type %q for %s", cert.ChallengeType, cert.Domain)
	}

	accountKey, err := s.accountKeys.KeyFor(providerName)
	if err != nil {
		return nil, fmt.Errorf("account key for %s: %w", providerName, err)
	}

	account, err := s.acme.Register(ctx, driven.AccountParams{
		DirectoryURL: directory,
		ContactEmail: s.contactEmail,
		AccountKey:   accountKey,
		EAB:          eab,
	})
	if err != nil {
		return nil, err
	}

	return account.Obtain(ctx, driven.OrderRequest{
		Domain:        cert.Domain,
		ChallengeType: cert.ChallengeType,
		Fulfill:       fulfill,
		Cleanup:       cleanup,
	})
}

func (s *RenewService) resolveProviderName(cert *model.Certificate) string {
	if cert.ACMEProvider == "" {
		return caprovider.DefaultProvider
	}
	return cert.ACMEProvider
}

// httpChallengeCallbacks stores tokens for the well-known responder and
// removes them afterwards.
func (s *RenewService) httpChallengeCallbacks() (driven.ChallengeFulfiller, driven.ChallengeCleaner) {
	fulfill := func(ctx context.Context, domain, token, keyAuth string) error {
		return s.tokens.Save(ctx, domain, token, keyAuth)
	}
	cleanup := func(ctx context.Context, domain, token, keyAuth string) error {
		return s.tokens.DeleteForDomain(ctx, domain)
	}
	return fulfill, cleanup
}

// dnsChallengeCallbacks publishes and removes the TXT record, pausing after
// publication so the record can propagate before validation.
func (s *RenewService) dnsChallengeCallbacks(provider driven.DNSProvider) (driven.ChallengeFulfiller, driven.ChallengeCleaner) {
	fulfill := func(ctx context.Context, domain, token, keyAuth string) error {
		ch := dnsChallengeFor(domain, keyAuth)
		if err := provider.CreateRecord(ctx, ch); err != nil {
			return err
		}
		select {
		case <-time.After(s.propagationWait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	cleanup := func(ctx context.Context, domain, token, keyAuth string) error {
		return provider.DeleteRecord(ctx, dnsChallengeFor(domain, keyAuth))
	}
	return fulfill, cleanup
}

// dnsChallengeFor derives the TXT record for a DNS-01 key authorization.
func dnsChallengeFor(domain, keyAuth string) model.DNSChallenge {
	digest := sha256.Sum256([]byte(keyAuth))
	return model.DNSChallenge{
		Domain:      domain,
		RecordName:  "_acme-challenge." + domain,
		RecordValue: base64.RawURLEncoding.EncodeToString(digest[:]),
	}
}

// runHook executes the record's deployment hook, if any, and appends the
// outcome to the hook log. Hook failures never fail the renewal.
func (s *RenewService) runHook(ctx context.Context, cert *model.Certificate) {
	if cert.HookScript == "" {
		return
	}

	output, err := s.hooks.Run(ctx, cert.HookScript, driven.HookMaterial{
		Domain:         cert.Domain,
		CertificatePEM: cert.CertificatePEM,
		PrivateKeyPEM:  cert.PrivateKeyPEM,
	})
	if err != nil {
		output = fmt.Sprintf("%s\n%s", output, err)
	}

	if logErr := s.hookLogs.Append(ctx, cert.ID, err == nil, output); logErr != nil {
		slog.Error("failed to record hook outcome", "domain", cert.Domain, "error", logErr)
	}
}
