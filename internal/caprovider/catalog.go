// Package caprovider is the static catalog of supported ACME certificate
// authorities and their credential requirements.
package caprovider

import (
	"os"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// DefaultProvider is used when a certificate record does not name a CA.
const DefaultProvider = "letsencrypt"

// Provider is one catalog entry. EABKeyIDVar and EABMACKeyVar name the
// environment variables holding the External Account Binding pair; they are
// set only when RequiresEAB is true.
type Provider struct {
	Name             string
	Label            string
	DirectoryURL     string
	StagingURL       string
	Website          string
	CertValidityDays int
	RequiresEAB      bool
	EABKeyIDVar      string
	EABMACKeyVar     string
}

// providers is ordered for stable listing output.
var providers = []Provider{
	{
		Name:             "letsencrypt",
		Label:            "Let's Encrypt",
		DirectoryURL:     "https://acme-v02.api.letsencrypt.org/directory",
		StagingURL:       "https://acme-staging-v02.api.letsencrypt.org/directory",
		Website:          "https://letsencrypt.org",
		CertValidityDays: 90,
	},
	{
		Name:             "zerossl",
		Label:            "ZeroSSL",
		DirectoryURL:     "https://acme.zerossl.com/v2/DV90",
		Website:          "https://zerossl.com",
		CertValidityDays: 90,
		RequiresEAB:      true,
		EABKeyIDVar:      "ZEROSSL_EAB_KID",
		EABMACKeyVar:     "ZEROSSL_EAB_HMAC_KEY",
	},
	{
		Name:             "buypass",
		Label:            "Buypass Go",
		DirectoryURL:     "https://api.buypass.com/acme/directory",
		StagingURL:       "https://api.test4.buypass.no/acme/directory",
		Website:          "https://www.buypass.com/ssl/products/acme",
		CertValidityDays: 180,
	},
	{
		Name:             "google",
		Label:            "Google Trust Services",
		DirectoryURL:     "https://dv.acme-v02.api.pki.goog/directory",
		StagingURL:       "https://dv.acme-v02.test-api.pki.goog/directory",
		Website:          "https://pki.goog",
		CertValidityDays: 90,
		RequiresEAB:      true,
		EABKeyIDVar:      "GOOGLE_EAB_KID",
		EABMACKeyVar:     "GOOGLE_EAB_HMAC_KEY",
	},
	{
		Name:             "sslcom",
		Label:            "SSL.com",
		DirectoryURL:     "https://acme.ssl.com/sslcom-dv-rsa",
		Website:          "https://ssl.com",
		CertValidityDays: 90,
		RequiresEAB:      true,
		EABKeyIDVar:      "SSLCOM_EAB_KID",
		EABMACKeyVar:     "SSLCOM_EAB_HMAC_KEY",
	},
}

// ProviderInfo is the listing shape: catalog metadata plus whether the
// required EAB credentials are present in the environment.
type ProviderInfo struct {
	Name             string
	Label            string
	Configured       bool
	RequiresEAB      bool
	CertValidityDays int
}

// Catalog resolves CA providers and their credentials. The environment
// lookup is injectable for tests; NewCatalog uses the process environment.
type Catalog struct {
	lookupEnv func(string) (string, bool)
}

// NewCatalog returns a Catalog backed by the process environment.
func NewCatalog() *Catalog {
	return &Catalog{lookupEnv: os.LookupEnv}
}

// NewCatalogWithEnv returns a Catalog using the given environment lookup.
func NewCatalogWithEnv(lookupEnv func(string) (string, bool)) *Catalog {
	return &Catalog{lookupEnv: lookupEnv}
}

// Get returns the catalog entry for name, or a *model.UnknownProviderError.
func (c *Catalog) Get(name string) (*Provider, error) {
	for i := range providers {
		if providers[i].Name == name {
			return &providers[i], nil
		}
	}
	return nil, &model.UnknownProviderError{Kind: "acme", Name: name}
}

// Directory resolves the ACME directory URL for the named provider. The
// staging URL is returned only when useStaging is set and the provider
// offers one; otherwise the production URL is used.
func (c *Catalog) Directory(name string, useStaging bool) (string, error) {
	p, err := c.Get(name)
	if err != nil {
		return "", err
	}
	if useStaging && p.StagingURL != "" {
		return p.StagingURL, nil
	}
	return p.DirectoryURL, nil
}

// EABCredentials returns the External Account Binding pair for the named
// provider. It returns (nil, nil) both when the provider does not require
// EAB and when the required variables are unset.
func (c *Catalog) EABCredentials(name string) (*driven.EABCredentials, error) {
	p, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	if !p.RequiresEAB {
		return nil, nil
	}
	kid, _ := c.lookupEnv(p.EABKeyIDVar)
	mac, _ := c.lookupEnv(p.EABMACKeyVar)
	if kid == "" || mac == "" {
		return nil, nil
	}
	return &driven.EABCredentials{KeyID: kid, HMACKey: mac}, nil
}

// ListAvailable reports every catalog entry with its configuration status.
// Providers without an EAB requirement are always configured.
func (c *Catalog) ListAvailable() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		configured := true
		if p.RequiresEAB {
			kid, _ := c.lookupEnv(p.EABKeyIDVar)
			mac, _ := c.lookupEnv(p.EABMACKeyVar)
			configured = kid != "" && mac != ""
		}
		infos = append(infos, ProviderInfo{
			Name:             p.Name,
			Label:            p.Label,
			Configured:       configured,
			RequiresEAB:      p.RequiresEAB,
			CertValidityDays: p.CertValidityDays,
		})
	}
	return infos
}
