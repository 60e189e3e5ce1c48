// Package acme adapts the lego ACME library to the ACMEClient port.
package acme

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ACMEClient = (*Client)(nil)

// Client talks the ACME protocol through lego. One Client serves all CAs;
// per-CA state (directory URL, account key) arrives with each registration.
type Client struct {
	logger *slog.Logger
}

// NewClient creates a new ACME protocol adapter.
func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger.With("component", "acme")}
}

// GenerateAccountKey creates a fresh P-256 account key. Account keys are
// held in memory per CA provider and never persisted.
func GenerateAccountKey() (crypto.PrivateKey, error) {
	key, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}
	return key, nil
}

// user implements lego's registration.User interface.
type user struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *user) GetEmail() string                        { return u.email }
func (u *user) GetRegistration() *registration.Resource { return u.registration }
func (u *user) GetPrivateKey() crypto.PrivateKey        { return u.key }

// Register creates or reuses an ACME account at the CA's directory. When EAB
// credentials are present the registration binds the account to them.
func (c *Client) Register(ctx context.Context, params driven.AccountParams) (driven.ACMEAccount, error) {
	u := &user{email: params.ContactEmail, key: params.AccountKey}

	cfg := lego.NewConfig(u)
	cfg.CADirURL = params.DirectoryURL
	cfg.Certificate.KeyType = certcrypto.RSA2048

	legoClient, err := lego.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client for %s: %w", params.DirectoryURL, err)
	}

	var reg *registration.Resource
	if params.EAB != nil {
		reg, err = legoClient.Registration.RegisterWithExternalAccountBinding(registration.RegisterEABOptions{
			TermsOfServiceAgreed: true,
			Kid:                  params.EAB.KeyID,
			HmacEncoded:          params.EAB.HMACKey,
		})
	} else {
		reg, err = legoClient.Registration.Register(registration.RegisterOptions{
			TermsOfServiceAgreed: true,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("register acme account at %s: %w", params.DirectoryURL, err)
	}
	u.registration = reg

	c.logger.Info("acme account ready", "directory", params.DirectoryURL, "email", params.ContactEmail)
	return &account{client: legoClient, logger: c.logger}, nil
}

// account places orders on a registered lego client.
type account struct {
	client *lego.Client
	logger *slog.Logger
}

// Obtain runs one order end to end: it wires the challenge callbacks into
// lego, generates the certificate key, and returns the bundled chain. Exactly
// one challenge type is registered per order.
func (a *account) Obtain(ctx context.Context, req driven.OrderRequest) (*driven.IssuedCertificate, error) {
	bridge := &challengeBridge{ctx: ctx, req: req, logger: a.logger}

	switch req.ChallengeType {
	case model.ChallengeTypeHTTP:
		if err := a.client.Challenge.SetHTTP01Provider(bridge); err != nil {
			return nil, &model.ProtocolError{Domain: req.Domain, Err: fmt.Errorf("set http-01 provider: %w", err)}
		}
	case model.ChallengeTypeDNS:
		// DNS propagation is slow for some providers; give lego a long
		// validation window.
		if err := a.client.Challenge.SetDNS01Provider(bridge, dns01.AddDNSTimeout(10*time.Minute)); err != nil {
			return nil, &model.ProtocolError{Domain: req.Domain, Err: fmt.Errorf("set dns-01 provider: %w", err)}
		}
	default:
		return nil, &model.ProtocolError{Domain: req.Domain, Err: fmt.Errorf("unsupported challenge type %q", req.ChallengeType)}
	}

	certKey, err := certcrypto.GeneratePrivateKey(certcrypto.RSA2048)
	if err != nil {
		return nil, &model.ProtocolError{Domain: req.Domain, Err: fmt.Errorf("generate certificate key: %w", err)}
	}

	resource, err := a.client.Certificate.Obtain(certificate.ObtainRequest{
		Domains:    []string{req.Domain},
		PrivateKey: certKey,
		Bundle:     true,
	})
	if err != nil {
		return nil, &model.ProtocolError{Domain: req.Domain, Err: err}
	}

	return &driven.IssuedCertificate{
		CertificatePEM: string(resource.Certificate),
		PrivateKeyPEM:  string(certcrypto.PEMEncode(certKey)),
	}, nil
}

// challengeBridge adapts the port's challenge callbacks to lego's
// challenge.Provider interface. lego's Present/CleanUp carry no context, so
// the bridge holds the order's context. Cleanup failures are logged and
// swallowed: a stray challenge artifact must never fail an issued order.
type challengeBridge struct {
	ctx    context.Context
	req    driven.OrderRequest
	logger *slog.Logger
}

func (b *challengeBridge) Present(domain, token, keyAuth string) error {
	return b.req.Fulfill(b.ctx, domain, token, keyAuth)
}

func (b *challengeBridge) CleanUp(domain, token, keyAuth string) error {
	if b.req.Cleanup == nil {
		return nil
	}
	if err := b.req.Cleanup(b.ctx, domain, token, keyAuth); err != nil {
		b.logger.Warn("challenge cleanup failed", "domain", domain, "error", err)
	}
	return nil
}
