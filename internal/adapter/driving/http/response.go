package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kfortner/certminder/internal/application"
	"github.com/kfortner/certminder/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CertificateResponse is the JSON representation of a managed certificate.
// PEM material is never included here; it is served only by the download
// endpoint.
type CertificateResponse struct {
	ID              int64  `json:"id"`
	Domain          string `json:"domain"`
	Status          string `json:"status"`
	ChallengeType   string `json:"challenge_type"`
	DNSProvider     string `json:"dns_provider,omitempty"`
	ACMEProvider    string `json:"acme_provider"`
	AutoRenew       bool   `json:"auto_renew"`
	HookScript      string `json:"hook_script,omitempty"`
	HasCertificate  bool   `json:"has_certificate"`
	IssuedAt        string `json:"issued_at,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	DaysUntilExpiry *int   `json:"days_until_expiry,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toCertificateResponse(cert model.Certificate) CertificateResponse {
	resp := CertificateResponse{
		ID:             cert.ID,
		Domain:         cert.Domain,
		Status:         string(cert.Status),
		ChallengeType:  string(cert.ChallengeType),
		DNSProvider:    cert.DNSProvider,
		ACMEProvider:   cert.ACMEProvider,
		AutoRenew:      cert.AutoRenew,
		HookScript:     cert.HookScript,
		HasCertificate: cert.CertificatePEM != "",
		CreatedAt:      cert.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      cert.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if cert.IssuedAt != nil {
		resp.IssuedAt = cert.IssuedAt.UTC().Format(time.RFC3339)
	}
	if cert.ExpiresAt != nil {
		resp.ExpiresAt = cert.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if days, ok := cert.DaysUntilExpiry(time.Now()); ok {
		resp.DaysUntilExpiry = &days
	}
	return resp
}

// CreateCertificateRequest is the JSON body for registering a domain.
type CreateCertificateRequest struct {
	Domain        string `json:"domain"`
	ChallengeType string `json:"challenge_type"`
	DNSProvider   string `json:"dns_provider"`
	ACMEProvider  string `json:"acme_provider"`
	AutoRenew     *bool  `json:"auto_renew"`
	HookScript    string `json:"hook_script"`
}

// UpdateCertificateRequest is the JSON body for changing renewal settings.
// Absent fields are left untouched.
type UpdateCertificateRequest struct {
	ChallengeType *string `json:"challenge_type"`
	DNSProvider   *string `json:"dns_provider"`
	ACMEProvider  *string `json:"acme_provider"`
	AutoRenew     *bool   `json:"auto_renew"`
	HookScript    *string `json:"hook_script"`
}

// RenewResponse is the envelope for a synchronous renewal attempt.
type RenewResponse struct {
	Success     bool                 `json:"success"`
	Error       string               `json:"error,omitempty"`
	Certificate *CertificateResponse `json:"certificate,omitempty"`
}

// HookLogResponse is one hook execution record.
type HookLogResponse struct {
	ID         int64  `json:"id"`
	ExecutedAt string `json:"executed_at"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
}

func toHookLogResponse(entry model.HookExecution) HookLogResponse {
	return HookLogResponse{
		ID:         entry.ID,
		ExecutedAt: entry.ExecutedAt.UTC().Format(time.RFC3339),
		Success:    entry.Success,
		Output:     entry.Output,
	}
}

// DownloadResponse carries the PEM material for an issued certificate.
type DownloadResponse struct {
	Domain      string `json:"domain"`
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"private_key"`
}

// DNSProviderResponse is one row of the DNS provider listing.
type DNSProviderResponse struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Configured bool   `json:"configured"`
}

// ACMEProviderResponse is one row of the CA catalog listing.
type ACMEProviderResponse struct {
	Name             string `json:"name"`
	Label            string `json:"label"`
	Configured       bool   `json:"configured"`
	RequiresEAB      bool   `json:"requires_eab"`
	CertValidityDays int    `json:"cert_validity_days"`
}

// ManualChallengeResponse is a TXT record awaiting manual publication.
type ManualChallengeResponse struct {
	Domain      string `json:"domain"`
	RecordName  string `json:"record_name"`
	RecordValue string `json:"record_value"`
}

// SchedulerStatusResponse reports the most recent pass, nil before the first.
type SchedulerStatusResponse struct {
	LastRun *application.RunSummary `json:"last_run"`
}

// NotificationSettingRequest is the JSON body for toggling a channel.
type NotificationSettingRequest struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
}

// NotificationSettingResponse is one channel toggle.
type NotificationSettingResponse struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
}
