package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// NotificationStore defines the driven port for expiry notification dedup
// state and per-channel operator settings.
type NotificationStore interface {
	HasBeenSent(ctx context.Context, certificateID int64, notificationType, channel string) (bool, error)
	Record(ctx context.Context, certificateID int64, notificationType, channel string) error
	ClearForCertificate(ctx context.Context, certificateID int64) error
	GetSettings(ctx context.Context) ([]model.NotificationSetting, error)
	UpsertSetting(ctx context.Context, channel string, enabled bool) error
}
