package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CertStore = (*CertRepo)(nil)

// CertRepo is the SQLite implementation of the CertStore port interface.
type CertRepo struct {
	db *DB
}

// NewCertRepo creates a new CertRepo.
func NewCertRepo(db *DB) *CertRepo {
	return &CertRepo{db: db}
}

const certColumns = `id, domain, status, issued_at, expires_at, certificate, private_key,
	challenge_type, dns_provider, acme_provider, auto_renew, hook_script, created_at, updated_at`

// Create inserts a new certificate record and returns it with its assigned id.
func (r *CertRepo) Create(ctx context.Context, cert model.Certificate) (*model.Certificate, error) {
	if cert.Status == "" {
		cert.Status = model.CertStatusPending
	}
	if cert.ChallengeType == "" {
		cert.ChallengeType = model.ChallengeTypeHTTP
	}
	if cert.ACMEProvider == "" {
		cert.ACMEProvider = "letsencrypt"
	}

	const query = `INSERT INTO certificates (domain, status, challenge_type, dns_provider, acme_provider, auto_renew, hook_script)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.Writer.ExecContext(ctx, query,
		cert.Domain,
		string(cert.Status),
		string(cert.ChallengeType),
		nullable(cert.DNSProvider),
		cert.ACMEProvider,
		boolToInt(cert.AutoRenew),
		nullable(cert.HookScript),
	)
	if err != nil {
		return nil, fmt.Errorf("create certificate %q: %w", cert.Domain, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create certificate %q: last insert id: %w", cert.Domain, err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns the certificate with the given id, or (nil, nil) if absent.
func (r *CertRepo) GetByID(ctx context.Context, id int64) (*model.Certificate, error) {
	row := r.db.Reader.QueryRowContext(ctx, `SELECT `+certColumns+` FROM certificates WHERE id = ?`, id)
	return scanCert(row)
}

// GetByDomain returns the certificate for the given domain, or (nil, nil) if absent.
func (r *CertRepo) GetByDomain(ctx context.Context, domain string) (*model.Certificate, error) {
	row := r.db.Reader.QueryRowContext(ctx, `SELECT `+certColumns+` FROM certificates WHERE domain = ?`, domain)
	return scanCert(row)
}

// ListAll returns every certificate ordered by domain.
func (r *CertRepo) ListAll(ctx context.Context) ([]model.Certificate, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `SELECT `+certColumns+` FROM certificates ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	return collectCerts(rows)
}

// ListAutoRenewDue returns auto-renew certificates expiring within the given
// number of days, plus errored ones so scheduled passes retry them, plus
// pending ones that have never been issued so creation alone is enough to
// get a certificate on the next pass.
func (r *CertRepo) ListAutoRenewDue(ctx context.Context, withinDays int) ([]model.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates
		WHERE auto_renew = 1
		  AND (status = 'error'
		    OR (status = 'pending' AND expires_at IS NULL)
		    OR (expires_at IS NOT NULL AND expires_at <= datetime('now', ?)))
		ORDER BY domain`
	rows, err := r.db.Reader.QueryContext(ctx, query, fmt.Sprintf("+%d days", withinDays))
	if err != nil {
		return nil, fmt.Errorf("list auto-renew due: %w", err)
	}
	defer rows.Close()
	return collectCerts(rows)
}

// Update persists every mutable field of the record.
func (r *CertRepo) Update(ctx context.Context, cert model.Certificate) error {
	const query = `UPDATE certificates SET
		status = ?, issued_at = ?, expires_at = ?, certificate = ?, private_key = ?,
		challenge_type = ?, dns_provider = ?, acme_provider = ?, auto_renew = ?, hook_script = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := r.db.Writer.ExecContext(ctx, query,
		string(cert.Status),
		nullableTime(cert.IssuedAt),
		nullableTime(cert.ExpiresAt),
		nullable(cert.CertificatePEM),
		nullable(cert.PrivateKeyPEM),
		string(cert.ChallengeType),
		nullable(cert.DNSProvider),
		cert.ACMEProvider,
		boolToInt(cert.AutoRenew),
		nullable(cert.HookScript),
		cert.ID,
	)
	if err != nil {
		return fmt.Errorf("update certificate %d: %w", cert.ID, err)
	}
	return requireRowAffected(result, cert.ID)
}

// UpdateStatus changes only the lifecycle status.
func (r *CertRepo) UpdateStatus(ctx context.Context, id int64, status model.CertStatus) error {
	result, err := r.db.Writer.ExecContext(ctx,
		`UPDATE certificates SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update certificate %d status: %w", id, err)
	}
	return requireRowAffected(result, id)
}

// Delete removes the certificate and, via foreign keys, its dependent rows.
func (r *CertRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM certificates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete certificate %d: %w", id, err)
	}
	return requireRowAffected(result, id)
}

func requireRowAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("certificate %d: rows affected: %w", id, err)
	}
	if n == 0 {
		return model.ErrCertificateNotFound
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCert(row rowScanner) (*model.Certificate, error) {
	var (
		cert       model.Certificate
		issuedAt   sql.NullString
		expiresAt  sql.NullString
		certPEM    sql.NullString
		keyPEM     sql.NullString
		dnsProv    sql.NullString
		hookScript sql.NullString
		autoRenew  int
		createdAt  string
		updatedAt  string
		status     string
		chalType   string
	)

	err := row.Scan(
		&cert.ID, &cert.Domain, &status, &issuedAt, &expiresAt, &certPEM, &keyPEM,
		&chalType, &dnsProv, &cert.ACMEProvider, &autoRenew, &hookScript, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}

	cert.Status = model.CertStatus(status)
	cert.ChallengeType = model.ChallengeType(chalType)
	cert.CertificatePEM = certPEM.String
	cert.PrivateKeyPEM = keyPEM.String
	cert.DNSProvider = dnsProv.String
	cert.HookScript = hookScript.String
	cert.AutoRenew = autoRenew != 0

	if issuedAt.Valid {
		t, err := parseTime(issuedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse issued_at for %q: %w", cert.Domain, err)
		}
		cert.IssuedAt = &t
	}
	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at for %q: %w", cert.Domain, err)
		}
		cert.ExpiresAt = &t
	}
	if cert.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for %q: %w", cert.Domain, err)
	}
	if cert.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for %q: %w", cert.Domain, err)
	}

	return &cert, nil
}

func collectCerts(rows *sql.Rows) ([]model.Certificate, error) {
	var certs []model.Certificate
	for rows.Next() {
		cert, err := scanCert(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certs, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
