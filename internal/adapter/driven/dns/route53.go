package dns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

const route53APIBase = "https://route53.amazonaws.com"

// hostedZoneIDPattern extracts the zone identifier from a
// ListHostedZonesByName response without a full XML decode.
var hostedZoneIDPattern = regexp.MustCompile(`<Id>/hostedzone/([^<]+)</Id>`)

var (
	_ driven.DNSProvider        = (*Route53)(nil)
	_ driven.CredentialVerifier = (*Route53)(nil)
)

// Route53 publishes challenge records through the AWS Route53 REST API,
// signing every request with SigV4 from raw credentials. No AWS SDK is
// involved.
type Route53 struct {
	accessKeyID     string
	secretAccessKey string
	region          string
	baseURL         string
	http            *http.Client
	now             func() time.Time
}

// NewRoute53 creates a Route53 adapter. region defaults to us-east-1 and
// baseURL to the production endpoint when empty.
func NewRoute53(accessKeyID, secretAccessKey, region, baseURL string, client *http.Client) *Route53 {
	if region == "" {
		region = "us-east-1"
	}
	if baseURL == "" {
		baseURL = route53APIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Route53{
		accessKeyID:     accessKeyID,
		secretAccessKey: secretAccessKey,
		region:          region,
		baseURL:         baseURL,
		http:            client,
		now:             time.Now,
	}
}

// Name implements driven.DNSProvider.
func (r *Route53) Name() string { return "route53" }

// CreateRecord submits a single-record UPSERT change batch to the hosted
// zone owning the domain.
func (r *Route53) CreateRecord(ctx context.Context, ch model.DNSChallenge) error {
	return r.changeRecord(ctx, "UPSERT", ch)
}

// DeleteRecord submits a DELETE change batch. Route53 rejects deletes for
// records that do not exist; that rejection is swallowed since the record
// being gone is the desired end state.
func (r *Route53) DeleteRecord(ctx context.Context, ch model.DNSChallenge) error {
	err := r.changeRecord(ctx, "DELETE", ch)
	var provErr *model.ProviderError
	if errors.As(err, &provErr) {
		// 404, or 400 InvalidChangeBatch when the record is already absent:
		// the record being gone is what we wanted.
		if provErr.StatusCode == http.StatusNotFound || provErr.StatusCode == http.StatusBadRequest {
			return nil
		}
	}
	return err
}

// VerifyCredentials issues a minimal ListHostedZones request.
func (r *Route53) VerifyCredentials(ctx context.Context) bool {
	resp, err := r.signedRequest(ctx, http.MethodGet, r.baseURL+"/2013-04-01/hostedzone?maxitems=1", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (r *Route53) changeRecord(ctx context.Context, action string, ch model.DNSChallenge) error {
	zoneID, err := r.hostedZoneID(ctx, ch.Domain)
	if err != nil {
		return err
	}

	// TXT record values are quoted on the wire.
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ChangeResourceRecordSetsRequest xmlns="https://route53.amazonaws.com/doc/2013-04-01/">
  <ChangeBatch>
    <Changes>
      <Change>
        <Action>%s</Action>
        <ResourceRecordSet>
          <Name>%s</Name>
          <Type>TXT</Type>
          <TTL>120</TTL>
          <ResourceRecords>
            <ResourceRecord>
              <Value>&quot;%s&quot;</Value>
            </ResourceRecord>
          </ResourceRecords>
        </ResourceRecordSet>
      </Change>
    </Changes>
  </ChangeBatch>
</ChangeResourceRecordSetsRequest>`, action, ch.RecordName, ch.RecordValue)

	resp, err := r.signedRequest(ctx, http.MethodPost, fmt.Sprintf("%s/2013-04-01/hostedzone/%s/rrset", r.baseURL, zoneID), []byte(body))
	if err != nil {
		return &model.ProviderError{Provider: "route53", Operation: "change record set", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &model.ProviderError{
			Provider:   "route53",
			Operation:  "change record set",
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	return nil
}

// hostedZoneID resolves the hosted zone owning the root domain via a
// ListHostedZonesByName query.
func (r *Route53) hostedZoneID(ctx context.Context, domain string) (string, error) {
	root := RootDomain(domain) + "."

	resp, err := r.signedRequest(ctx, http.MethodGet, fmt.Sprintf("%s/2013-04-01/hostedzonesbyname?dnsname=%s", r.baseURL, url.QueryEscape(root)), nil)
	if err != nil {
		return "", &model.ProviderError{Provider: "route53", Operation: "zone lookup", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &model.ProviderError{Provider: "route53", Operation: "zone lookup", Message: err.Error()}
	}

	match := hostedZoneIDPattern.FindSubmatch(body)
	if match == nil {
		return "", &model.ProviderError{
			Provider:   "route53",
			Operation:  "zone lookup",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("hosted zone not found for %s", root),
		}
	}
	return string(match[1]), nil
}

// signedRequest signs and executes one Route53 API request.
func (r *Route53) signedRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	headers, err := SignV4(SignV4Params{
		Method:          method,
		URL:             u,
		Body:            body,
		Region:          r.region,
		Service:         "route53",
		AccessKeyID:     r.accessKeyID,
		SecretAccessKey: r.secretAccessKey,
		Now:             r.now(),
	})
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	for name, value := range headers {
		if name == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(name, value)
	}
	return r.http.Do(req)
}
