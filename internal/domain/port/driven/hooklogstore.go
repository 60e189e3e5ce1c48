package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// HookLogStore defines the driven port for the append-only hook execution log.
type HookLogStore interface {
	Append(ctx context.Context, certificateID int64, success bool, output string) error
	ListForCertificate(ctx context.Context, certificateID int64) ([]model.HookExecution, error)
}
