package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// NotificationChannel defines the driven port for one expiry alert delivery
// mechanism (email, webhook, chat). Channels fail independently; a send
// error on one channel never blocks the others.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, notice model.ExpiryNotice) error
}
