// Package httphandler is the HTTP driving adapter: the ACME HTTP-01
// well-known responder plus the management REST API.
package httphandler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kfortner/certminder/internal/application"
	"github.com/kfortner/certminder/internal/caprovider"
	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// DNSProviderLister reports the selectable DNS providers and the manual
// provider's pending challenges.
type DNSProviderLister interface {
	ListAvailable() []DNSProviderEntry
	PendingChallenges() []model.DNSChallenge
}

// DNSProviderEntry is one row of the DNS provider listing.
type DNSProviderEntry struct {
	Name       string
	Label      string
	Configured bool
}

// Handler serves the management API and the challenge responder.
type Handler struct {
	certs      driven.CertStore
	tokens     driven.ChallengeTokenStore
	hookLogs   driven.HookLogStore
	notifs     driven.NotificationStore
	renew      *application.RenewService
	sched      *application.SchedulerService
	dns        DNSProviderLister
	catalog    *caprovider.Catalog
	cronSecret string
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. cronSecret
// may be empty, in which case the manual scheduler trigger is open.
func NewHandler(
	certs driven.CertStore,
	tokens driven.ChallengeTokenStore,
	hookLogs driven.HookLogStore,
	notifs driven.NotificationStore,
	renew *application.RenewService,
	sched *application.SchedulerService,
	dns DNSProviderLister,
	catalog *caprovider.Catalog,
	cronSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		certs:      certs,
		tokens:     tokens,
		hookLogs:   hookLogs,
		notifs:     notifs,
		renew:      renew,
		sched:      sched,
		dns:        dns,
		catalog:    catalog,
		cronSecret: cronSecret,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /.well-known/acme-challenge/{token}", h.ServeChallenge)

	mux.HandleFunc("GET /api/v1/certificates", h.ListCertificates)
	mux.HandleFunc("POST /api/v1/certificates", h.CreateCertificate)
	mux.HandleFunc("GET /api/v1/certificates/{id}", h.GetCertificate)
	mux.HandleFunc("PUT /api/v1/certificates/{id}", h.UpdateCertificate)
	mux.HandleFunc("DELETE /api/v1/certificates/{id}", h.DeleteCertificate)
	mux.HandleFunc("POST /api/v1/certificates/{id}/renew", h.RenewCertificate)
	mux.HandleFunc("GET /api/v1/certificates/{id}/hooks", h.ListHookLogs)
	mux.HandleFunc("GET /api/v1/certificates/{id}/download", h.DownloadCertificate)

	mux.HandleFunc("GET /api/v1/dns-providers", h.ListDNSProviders)
	mux.HandleFunc("GET /api/v1/acme-providers", h.ListACMEProviders)
	mux.HandleFunc("GET /api/v1/manual-challenges", h.ListManualChallenges)

	mux.HandleFunc("GET /api/v1/scheduler", h.SchedulerStatus)
	mux.HandleFunc("POST /api/v1/scheduler/run", h.TriggerScheduler)

	mux.HandleFunc("GET /api/v1/notifications/settings", h.GetNotificationSettings)
	mux.HandleFunc("PUT /api/v1/notifications/settings", h.PutNotificationSetting)

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ServeChallenge answers ACME HTTP-01 validation requests with the stored
// key authorization as plain text.
func (h *Handler) ServeChallenge(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	ct, err := h.tokens.GetByToken(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to look up challenge token", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if ct == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(ct.KeyAuthorization))
}

// ListCertificates returns every managed certificate.
func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certs.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list certificates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CertificateResponse, 0, len(certs))
	for _, cert := range certs {
		resp = append(resp, toCertificateResponse(cert))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCertificate registers a new domain for management. Issuance does not
// start here; the caller triggers a renew or waits for the scheduler.
func (h *Handler) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req CreateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Domain = strings.TrimSpace(strings.ToLower(req.Domain))
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	challengeType := model.ChallengeTypeHTTP
	if req.ChallengeType != "" {
		challengeType = model.ChallengeType(req.ChallengeType)
	}
	switch challengeType {
	case model.ChallengeTypeHTTP:
	case model.ChallengeTypeDNS:
		if req.DNSProvider == "" {
			writeError(w, http.StatusBadRequest, "dns_provider is required for dns challenges")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "challenge_type must be http or dns")
		return
	}

	if req.ACMEProvider != "" {
		if _, err := h.catalog.Get(req.ACMEProvider); err != nil {
			writeError(w, http.StatusBadRequest, "unknown acme provider")
			return
		}
	}

	existing, err := h.certs.GetByDomain(r.Context(), req.Domain)
	if err != nil {
		h.logger.Error("failed to check for existing certificate", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "certificate for this domain already exists")
		return
	}

	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	cert, err := h.certs.Create(r.Context(), model.Certificate{
		Domain:        req.Domain,
		ChallengeType: challengeType,
		DNSProvider:   req.DNSProvider,
		ACMEProvider:  req.ACMEProvider,
		AutoRenew:     autoRenew,
		HookScript:    req.HookScript,
	})
	if err != nil {
		h.logger.Error("failed to create certificate", "domain", req.Domain, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCertificateResponse(*cert))
}

// GetCertificate returns one certificate by id.
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certByID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCertificateResponse(*cert))
}

// UpdateCertificate changes the renewal configuration of a record. The
// domain itself is immutable; delete and recreate to change it.
func (h *Handler) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certByID(w, r)
	if !ok {
		return
	}

	var req UpdateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ChallengeType != nil {
		ct := model.ChallengeType(*req.ChallengeType)
		if ct != model.ChallengeTypeHTTP && ct != model.ChallengeTypeDNS {
			writeError(w, http.StatusBadRequest, "challenge_type must be http or dns")
			return
		}
		cert.ChallengeType = ct
	}
	if req.DNSProvider != nil {
		cert.DNSProvider = *req.DNSProvider
	}
	if req.ACMEProvider != nil {
		if _, err := h.catalog.Get(*req.ACMEProvider); err != nil {
			writeError(w, http.StatusBadRequest, "unknown acme provider")
			return
		}
		cert.ACMEProvider = *req.ACMEProvider
	}
	if req.AutoRenew != nil {
		cert.AutoRenew = *req.AutoRenew
	}
	if req.HookScript != nil {
		cert.HookScript = *req.HookScript
	}

	if cert.ChallengeType == model.ChallengeTypeDNS && cert.DNSProvider == "" {
		writeError(w, http.StatusBadRequest, "dns_provider is required for dns challenges")
		return
	}

	if err := h.certs.Update(r.Context(), *cert); err != nil {
		h.logger.Error("failed to update certificate", "id", cert.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	updated, err := h.certs.GetByID(r.Context(), cert.ID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toCertificateResponse(*updated))
}

// DeleteCertificate removes a record and all its dependent state.
func (h *Handler) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.certs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrCertificateNotFound) {
			writeError(w, http.StatusNotFound, "certificate not found")
			return
		}
		h.logger.Error("failed to delete certificate", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RenewCertificate runs a synchronous order for the record and reports the
// outcome in a success envelope regardless of the HTTP status.
func (h *Handler) RenewCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// An order can outlast the server's write timeout (DNS propagation
	// alone takes tens of seconds); lift the deadline for this connection
	// so the envelope still reaches the caller.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Warn("failed to clear write deadline for renew", "error", err)
	}

	cert, err := h.renew.IssueOrRenew(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrCertificateNotFound) {
			writeError(w, http.StatusNotFound, "certificate not found")
			return
		}
		writeJSON(w, http.StatusOK, RenewResponse{Success: false, Error: err.Error()})
		return
	}

	resp := toCertificateResponse(*cert)
	writeJSON(w, http.StatusOK, RenewResponse{Success: true, Certificate: &resp})
}

// ListHookLogs returns the hook execution history for a certificate.
func (h *Handler) ListHookLogs(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certByID(w, r)
	if !ok {
		return
	}

	logs, err := h.hookLogs.ListForCertificate(r.Context(), cert.ID)
	if err != nil {
		h.logger.Error("failed to list hook logs", "id", cert.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]HookLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp = append(resp, toHookLogResponse(entry))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadCertificate returns the PEM material for an issued certificate.
func (h *Handler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	cert, ok := h.certByID(w, r)
	if !ok {
		return
	}
	if cert.CertificatePEM == "" {
		writeError(w, http.StatusNotFound, "certificate has not been issued yet")
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Domain:      cert.Domain,
		Certificate: cert.CertificatePEM,
		PrivateKey:  cert.PrivateKeyPEM,
	})
}

// ListDNSProviders reports the selectable DNS providers and whether their
// credentials are present.
func (h *Handler) ListDNSProviders(w http.ResponseWriter, r *http.Request) {
	entries := h.dns.ListAvailable()
	resp := make([]DNSProviderResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, DNSProviderResponse{Name: e.Name, Label: e.Label, Configured: e.Configured})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListACMEProviders reports the CA catalog with configuration state.
func (h *Handler) ListACMEProviders(w http.ResponseWriter, r *http.Request) {
	infos := h.catalog.ListAvailable()
	resp := make([]ACMEProviderResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, ACMEProviderResponse{
			Name:             info.Name,
			Label:            info.Label,
			Configured:       info.Configured,
			RequiresEAB:      info.RequiresEAB,
			CertValidityDays: info.CertValidityDays,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListManualChallenges returns TXT records waiting for the operator to
// publish when the manual DNS provider is in use.
func (h *Handler) ListManualChallenges(w http.ResponseWriter, r *http.Request) {
	pending := h.dns.PendingChallenges()
	resp := make([]ManualChallengeResponse, 0, len(pending))
	for _, ch := range pending {
		resp = append(resp, ManualChallengeResponse{
			Domain:      ch.Domain,
			RecordName:  ch.RecordName,
			RecordValue: ch.RecordValue,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SchedulerStatus reports the last pass summary.
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{LastRun: h.sched.LastRun()})
}

// TriggerScheduler runs a maintenance pass immediately. When a cron secret
// is configured the caller must present it as a bearer token.
func (h *Handler) TriggerScheduler(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
	}

	summary := h.sched.RunPass(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

// GetNotificationSettings returns the channel toggles.
func (h *Handler) GetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.notifs.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to get notification settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]NotificationSettingResponse, 0, len(settings))
	for _, s := range settings {
		resp = append(resp, NotificationSettingResponse{Channel: s.Channel, Enabled: s.Enabled})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutNotificationSetting stores one channel toggle.
func (h *Handler) PutNotificationSetting(w http.ResponseWriter, r *http.Request) {
	var req NotificationSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Channel == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}

	if err := h.notifs.UpsertSetting(r.Context(), req.Channel, req.Enabled); err != nil {
		h.logger.Error("failed to store notification setting", "channel", req.Channel, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, NotificationSettingResponse{Channel: req.Channel, Enabled: req.Enabled})
}

// Health is a liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid certificate id")
		return 0, false
	}
	return id, true
}

// certByID loads the record for the {id} path segment, writing the error
// response on failure.
func (h *Handler) certByID(w http.ResponseWriter, r *http.Request) (*model.Certificate, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	cert, err := h.certs.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get certificate", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if cert == nil {
		writeError(w, http.StatusNotFound, "certificate not found")
		return nil, false
	}
	return cert, true
}
