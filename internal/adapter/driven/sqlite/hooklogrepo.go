package sqlite

import (
	"context"
	"fmt"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HookLogStore = (*HookLogRepo)(nil)

// HookLogRepo is the SQLite implementation of the HookLogStore port interface.
type HookLogRepo struct {
	db *DB
}

// NewHookLogRepo creates a new HookLogRepo.
func NewHookLogRepo(db *DB) *HookLogRepo {
	return &HookLogRepo{db: db}
}

// Append records one hook invocation outcome.
func (r *HookLogRepo) Append(ctx context.Context, certificateID int64, success bool, output string) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`INSERT INTO hook_logs (certificate_id, success, output) VALUES (?, ?, ?)`,
		certificateID, boolToInt(success), output,
	)
	if err != nil {
		return fmt.Errorf("append hook log for certificate %d: %w", certificateID, err)
	}
	return nil
}

// ListForCertificate returns the hook history for a certificate, newest first.
func (r *HookLogRepo) ListForCertificate(ctx context.Context, certificateID int64) ([]model.HookExecution, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, certificate_id, executed_at, success, output
		 FROM hook_logs WHERE certificate_id = ? ORDER BY executed_at DESC, id DESC`,
		certificateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list hook logs for certificate %d: %w", certificateID, err)
	}
	defer rows.Close()

	var logs []model.HookExecution
	for rows.Next() {
		var (
			entry      model.HookExecution
			executedAt string
			success    int
		)
		if err := rows.Scan(&entry.ID, &entry.CertificateID, &executedAt, &success, &entry.Output); err != nil {
			return nil, fmt.Errorf("scan hook log: %w", err)
		}
		entry.Success = success != 0
		if entry.ExecutedAt, err = parseTime(executedAt); err != nil {
			return nil, fmt.Errorf("parse hook log executed_at: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hook logs: %w", err)
	}
	return logs, nil
}
