package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

const godaddyAPIBase = "https://api.godaddy.com/v1"

var (
	_ driven.DNSProvider        = (*GoDaddy)(nil)
	_ driven.CredentialVerifier = (*GoDaddy)(nil)
)

// GoDaddy publishes challenge records through the GoDaddy v1 API using an
// sso-key credential pair. Records are addressed by type and host-relative
// name, so the adapter computes the subdomain relative to the root domain.
type GoDaddy struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
}

// NewGoDaddy creates a GoDaddy adapter. baseURL overrides the API endpoint
// for tests; pass "" for production.
func NewGoDaddy(apiKey, apiSecret, baseURL string, client *http.Client) *GoDaddy {
	if baseURL == "" {
		baseURL = godaddyAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoDaddy{apiKey: apiKey, apiSecret: apiSecret, baseURL: baseURL, http: client}
}

// Name implements driven.DNSProvider.
func (g *GoDaddy) Name() string { return "godaddy" }

// CreateRecord PUTs the single named TXT record.
func (g *GoDaddy) CreateRecord(ctx context.Context, ch model.DNSChallenge) error {
	root := RootDomain(ch.Domain)
	name := relativeRecordName(ch.RecordName, ch.Domain)

	payload, err := json.Marshal([]map[string]any{{
		"data": ch.RecordValue,
		"ttl":  600,
	}})
	if err != nil {
		return fmt.Errorf("marshal godaddy record: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPut, fmt.Sprintf("%s/domains/%s/records/TXT/%s", g.baseURL, root, name), payload)
	if err != nil {
		return &model.ProviderError{Provider: "godaddy", Operation: "create record", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &model.ProviderError{
			Provider:   "godaddy",
			Operation:  "create record",
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return nil
}

// DeleteRecord removes the named TXT record. A 404 means the record is
// already gone and is treated as success; other failures are logged and
// swallowed since deletion is best-effort.
func (g *GoDaddy) DeleteRecord(ctx context.Context, ch model.DNSChallenge) error {
	root := RootDomain(ch.Domain)
	name := relativeRecordName(ch.RecordName, ch.Domain)

	resp, err := g.do(ctx, http.MethodDelete, fmt.Sprintf("%s/domains/%s/records/TXT/%s", g.baseURL, root, name), nil)
	if err != nil {
		return &model.ProviderError{Provider: "godaddy", Operation: "delete record", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 || resp.StatusCode == http.StatusNotFound {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	slog.Warn("godaddy record delete rejected", "status", resp.StatusCode, "body", string(body))
	return nil
}

// VerifyCredentials issues a minimal domain listing request.
func (g *GoDaddy) VerifyCredentials(ctx context.Context) bool {
	resp, err := g.do(ctx, http.MethodGet, g.baseURL+"/domains?limit=1", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (g *GoDaddy) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("sso-key %s:%s", g.apiKey, g.apiSecret))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.http.Do(req)
}
