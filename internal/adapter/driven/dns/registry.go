package dns

import (
	"net/http"
	"os"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// providerDef describes one selectable provider and the environment
// variables its credentials come from.
type providerDef struct {
	name    string
	label   string
	envVars []string
}

var providerDefs = []providerDef{
	{name: "cloudflare", label: "Cloudflare", envVars: []string{"CLOUDFLARE_API_TOKEN"}},
	{name: "route53", label: "AWS Route53", envVars: []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"}},
	{name: "godaddy", label: "GoDaddy", envVars: []string{"GODADDY_API_KEY", "GODADDY_API_SECRET"}},
	{name: "digitalocean", label: "DigitalOcean", envVars: []string{"DIGITALOCEAN_API_TOKEN"}},
	{name: "manual", label: "Manual (add TXT record yourself)"},
}

// ProviderInfo is one entry of the availability listing.
type ProviderInfo struct {
	Name       string
	Label      string
	Configured bool
}

// Registry constructs DNS provider adapters by name, resolving credentials
// from the environment at construction time. The environment lookup and the
// HTTP client are injectable for tests. The registry owns the pending store
// used by the manual provider.
type Registry struct {
	lookupEnv func(string) (string, bool)
	http      *http.Client
	pending   *PendingChallengeStore
}

// NewRegistry returns a Registry backed by the process environment.
func NewRegistry() *Registry {
	return NewRegistryWithEnv(os.LookupEnv)
}

// NewRegistryWithEnv returns a Registry using the given environment lookup.
func NewRegistryWithEnv(lookupEnv func(string) (string, bool)) *Registry {
	return &Registry{
		lookupEnv: lookupEnv,
		http:      http.DefaultClient,
		pending:   NewPendingChallengeStore(),
	}
}

// Pending exposes the manual provider's pending-challenge store for display.
func (r *Registry) Pending() *PendingChallengeStore { return r.pending }

// Create resolves credentials and constructs the named adapter. Missing
// credentials fail with a *model.ConfigurationError naming every absent
// variable; the registry never proceeds with partial credentials. An
// unrecognized name fails with a *model.UnknownProviderError.
func (r *Registry) Create(name string) (driven.DNSProvider, error) {
	switch name {
	case "cloudflare":
		vars, err := r.require("CLOUDFLARE_API_TOKEN")
		if err != nil {
			return nil, err
		}
		return NewCloudflare(vars["CLOUDFLARE_API_TOKEN"], "", r.http), nil

	case "route53":
		vars, err := r.require("AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY")
		if err != nil {
			return nil, err
		}
		region, _ := r.lookupEnv("AWS_REGION")
		return NewRoute53(vars["AWS_ACCESS_KEY_ID"], vars["AWS_SECRET_ACCESS_KEY"], region, "", r.http), nil

	case "godaddy":
		vars, err := r.require("GODADDY_API_KEY", "GODADDY_API_SECRET")
		if err != nil {
			return nil, err
		}
		return NewGoDaddy(vars["GODADDY_API_KEY"], vars["GODADDY_API_SECRET"], "", r.http), nil

	case "digitalocean":
		vars, err := r.require("DIGITALOCEAN_API_TOKEN")
		if err != nil {
			return nil, err
		}
		return NewDigitalOcean(vars["DIGITALOCEAN_API_TOKEN"], "", r.http), nil

	case "manual":
		return NewManual(r.pending), nil

	default:
		return nil, &model.UnknownProviderError{Kind: "dns", Name: name}
	}
}

// ListAvailable reports every known provider with a display label and
// whether its required credentials are present. Manual is always configured.
func (r *Registry) ListAvailable() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(providerDefs))
	for _, def := range providerDefs {
		configured := true
		for _, v := range def.envVars {
			if value, ok := r.lookupEnv(v); !ok || value == "" {
				configured = false
				break
			}
		}
		infos = append(infos, ProviderInfo{Name: def.name, Label: def.label, Configured: configured})
	}
	return infos
}

// require resolves all named variables or fails listing every missing one.
func (r *Registry) require(names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		value, ok := r.lookupEnv(name)
		if !ok || value == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = value
	}
	if len(missing) > 0 {
		return nil, &model.ConfigurationError{Vars: missing}
	}
	return values, nil
}
