package sqlite

import (
	"context"
	"fmt"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationStore = (*NotificationRepo)(nil)

// NotificationRepo is the SQLite implementation of the NotificationStore
// port interface.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// HasBeenSent reports whether a threshold notification has already gone out
// on the given channel for this certificate generation.
func (r *NotificationRepo) HasBeenSent(ctx context.Context, certificateID int64, notificationType, channel string) (bool, error) {
	var count int
	err := r.db.Reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE certificate_id = ? AND notification_type = ? AND channel = ?`,
		certificateID, notificationType, channel,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notification sent: %w", err)
	}
	return count > 0, nil
}

// Record marks a threshold notification as sent. Re-recording the same
// triple is a no-op so a crash between send and record cannot wedge a pass.
func (r *NotificationRepo) Record(ctx context.Context, certificateID int64, notificationType, channel string) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`INSERT INTO notifications (certificate_id, notification_type, channel) VALUES (?, ?, ?)
		 ON CONFLICT (certificate_id, notification_type, channel) DO NOTHING`,
		certificateID, notificationType, channel,
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// ClearForCertificate wipes dedup state after a successful renewal so the
// next expiry cycle notifies afresh.
func (r *NotificationRepo) ClearForCertificate(ctx context.Context, certificateID int64) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`DELETE FROM notifications WHERE certificate_id = ?`, certificateID)
	if err != nil {
		return fmt.Errorf("clear notifications for certificate %d: %w", certificateID, err)
	}
	return nil
}

// GetSettings returns all stored channel toggles.
func (r *NotificationRepo) GetSettings(ctx context.Context) ([]model.NotificationSetting, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT channel, enabled, updated_at FROM notification_settings ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	defer rows.Close()

	var settings []model.NotificationSetting
	for rows.Next() {
		var (
			s         model.NotificationSetting
			enabled   int
			updatedAt string
		)
		if err := rows.Scan(&s.Channel, &enabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan notification setting: %w", err)
		}
		s.Enabled = enabled != 0
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse notification setting updated_at: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification settings: %w", err)
	}
	return settings, nil
}

// UpsertSetting stores one channel toggle.
func (r *NotificationRepo) UpsertSetting(ctx context.Context, channel string, enabled bool) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`INSERT INTO notification_settings (channel, enabled) VALUES (?, ?)
		 ON CONFLICT (channel) DO UPDATE SET enabled = excluded.enabled, updated_at = CURRENT_TIMESTAMP`,
		channel, boolToInt(enabled),
	)
	if err != nil {
		return fmt.Errorf("upsert notification setting %q: %w", channel, err)
	}
	return nil
}
