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

const digitaloceanAPIBase = "https://api.digitalocean.com/v2"

var (
	_ driven.DNSProvider        = (*DigitalOcean)(nil)
	_ driven.CredentialVerifier = (*DigitalOcean)(nil)
)

// DigitalOcean publishes challenge records through the DigitalOcean v2 API
// using a bearer token.
type DigitalOcean struct {
	apiToken string
	baseURL  string
	http     *http.Client
}

// NewDigitalOcean creates a DigitalOcean adapter. baseURL overrides the API
// endpoint for tests; pass "" for production.
func NewDigitalOcean(apiToken, baseURL string, client *http.Client) *DigitalOcean {
	if baseURL == "" {
		baseURL = digitaloceanAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DigitalOcean{apiToken: apiToken, baseURL: baseURL, http: client}
}

// Name implements driven.DNSProvider.
func (d *DigitalOcean) Name() string { return "digitalocean" }

// CreateRecord POSTs a TXT record under the root domain.
func (d *DigitalOcean) CreateRecord(ctx context.Context, ch model.DNSChallenge) error {
	root := RootDomain(ch.Domain)
	name := relativeRecordName(ch.RecordName, ch.Domain)

	payload, err := json.Marshal(map[string]any{
		"type": "TXT",
		"name": name,
		"data": ch.RecordValue,
		"ttl":  120,
	})
	if err != nil {
		return fmt.Errorf("marshal digitalocean record: %w", err)
	}

	resp, err := d.do(ctx, http.MethodPost, fmt.Sprintf("%s/domains/%s/records", d.baseURL, root), payload)
	if err != nil {
		return &model.ProviderError{Provider: "digitalocean", Operation: "create record", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &model.ProviderError{
			Provider:   "digitalocean",
			Operation:  "create record",
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return nil
}

// DeleteRecord enumerates TXT records matching the name and removes only the
// one whose value matches the challenge value, so unrelated TXT records
// sharing the name survive cleanup. A missing record is success.
func (d *DigitalOcean) DeleteRecord(ctx context.Context, ch model.DNSChallenge) error {
	root := RootDomain(ch.Domain)
	name := relativeRecordName(ch.RecordName, ch.Domain)

	listURL := fmt.Sprintf("%s/domains/%s/records?type=TXT&name=%s", d.baseURL, root, url.QueryEscape(name))
	resp, err := d.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return &model.ProviderError{Provider: "digitalocean", Operation: "list records", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Best-effort: nothing to delete if we cannot even list.
		return nil
	}

	var listing struct {
		DomainRecords []struct {
			ID   int64  `json:"id"`
			Data string `json:"data"`
		} `json:"domain_records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return &model.ProviderError{Provider: "digitalocean", Operation: "list records", Message: err.Error()}
	}

	for _, record := range listing.DomainRecords {
		if record.Data != ch.RecordValue {
			continue
		}
		delResp, err := d.do(ctx, http.MethodDelete, fmt.Sprintf("%s/domains/%s/records/%d", d.baseURL, root, record.ID), nil)
		if err != nil {
			slog.Warn("digitalocean record delete failed", "record_id", record.ID, "error", err)
			continue
		}
		delResp.Body.Close()
	}
	return nil
}

// VerifyCredentials checks the token against the account endpoint.
func (d *DigitalOcean) VerifyCredentials(ctx context.Context) bool {
	resp, err := d.do(ctx, http.MethodGet, d.baseURL+"/account", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (d *DigitalOcean) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return d.http.Do(req)
}
