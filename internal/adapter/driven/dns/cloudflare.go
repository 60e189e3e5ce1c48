package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

const cloudflareAPIBase = "https://api.cloudflare.com/client/v4"

// Compile-time interface satisfaction checks.
var (
	_ driven.DNSProvider        = (*Cloudflare)(nil)
	_ driven.CredentialVerifier = (*Cloudflare)(nil)
)

// Cloudflare publishes challenge records through the Cloudflare v4 API using
// a scoped API token.
type Cloudflare struct {
	apiToken string
	baseURL  string
	http     *http.Client
}

// NewCloudflare creates a Cloudflare adapter. baseURL overrides the API
// endpoint for tests; pass "" for production.
func NewCloudflare(apiToken, baseURL string, client *http.Client) *Cloudflare {
	if baseURL == "" {
		baseURL = cloudflareAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Cloudflare{apiToken: apiToken, baseURL: baseURL, http: client}
}

// Name implements driven.DNSProvider.
func (c *Cloudflare) Name() string { return "cloudflare" }

// CreateRecord looks up the zone owning the domain and POSTs a TXT record
// into it.
func (c *Cloudflare) CreateRecord(ctx context.Context, ch model.DNSChallenge) error {
	zoneID, err := c.zoneID(ctx, ch.Domain)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"type":    "TXT",
		"name":    ch.RecordName,
		"content": ch.RecordValue,
		"ttl":     120,
	})
	if err != nil {
		return fmt.Errorf("marshal cloudflare record: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/zones/%s/dns_records", c.baseURL, zoneID), payload)
	if err != nil {
		return &model.ProviderError{Provider: "cloudflare", Operation: "create record", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &model.ProviderError{
			Provider:   "cloudflare",
			Operation:  "create record",
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return nil
}

// DeleteRecord enumerates TXT records matching the record name and removes
// each. A name with no matching records is success, not an error.
func (c *Cloudflare) DeleteRecord(ctx context.Context, ch model.DNSChallenge) error {
	zoneID, err := c.zoneID(ctx, ch.Domain)
	if err != nil {
		return err
	}

	listURL := fmt.Sprintf("%s/zones/%s/dns_records?name=%s&type=TXT", c.baseURL, zoneID, url.QueryEscape(ch.RecordName))
	resp, err := c.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return &model.ProviderError{Provider: "cloudflare", Operation: "list records", Message: err.Error()}
	}
	defer resp.Body.Close()

	var listing struct {
		Result []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return &model.ProviderError{Provider: "cloudflare", Operation: "list records", Message: err.Error()}
	}

	for _, record := range listing.Result {
		delResp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/zones/%s/dns_records/%s", c.baseURL, zoneID, record.ID), nil)
		if err != nil {
			slog.Warn("cloudflare record delete failed", "record_id", record.ID, "error", err)
			continue
		}
		delResp.Body.Close()
	}
	return nil
}

// VerifyCredentials checks the API token via the token verification endpoint.
func (c *Cloudflare) VerifyCredentials(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/user/tokens/verify", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var verification struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return false
	}
	return verification.Success
}

// zoneID resolves the Cloudflare zone id for the root domain of the given name.
func (c *Cloudflare) zoneID(ctx context.Context, domain string) (string, error) {
	root := RootDomain(domain)

	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/zones?name=%s", c.baseURL, url.QueryEscape(root)), nil)
	if err != nil {
		return "", &model.ProviderError{Provider: "cloudflare", Operation: "zone lookup", Message: err.Error()}
	}
	defer resp.Body.Close()

	var listing struct {
		Result []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return "", &model.ProviderError{Provider: "cloudflare", Operation: "zone lookup", Message: err.Error()}
	}
	if len(listing.Result) == 0 {
		return "", &model.ProviderError{
			Provider:  "cloudflare",
			Operation: "zone lookup",
			Message:   fmt.Sprintf("zone not found for %s", root),
		}
	}
	return listing.Result[0].ID, nil
}

func (c *Cloudflare) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
