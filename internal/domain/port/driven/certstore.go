package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// CertStore defines the driven port for certificate record persistence.
// Lookups that find no record return (nil, nil).
type CertStore interface {
	Create(ctx context.Context, cert model.Certificate) (*model.Certificate, error)
	GetByID(ctx context.Context, id int64) (*model.Certificate, error)
	GetByDomain(ctx context.Context, domain string) (*model.Certificate, error)
	ListAll(ctx context.Context) ([]model.Certificate, error)
	// ListAutoRenewDue returns auto-renew certificates whose expiry falls
	// within the given number of days from now, plus those already errored
	// so a scheduled pass retries them.
	ListAutoRenewDue(ctx context.Context, withinDays int) ([]model.Certificate, error)
	Update(ctx context.Context, cert model.Certificate) error
	UpdateStatus(ctx context.Context, id int64, status model.CertStatus) error
	Delete(ctx context.Context, id int64) error
}
