package driven

import (
	"context"

	"github.com/kfortner/certminder/internal/domain/model"
)

// ChallengeTokenStore defines the driven port for HTTP-01 challenge tokens.
type ChallengeTokenStore interface {
	Save(ctx context.Context, domain, token, keyAuthorization string) error
	// GetByToken returns (nil, nil) when the token is unknown.
	GetByToken(ctx context.Context, token string) (*model.ChallengeToken, error)
	DeleteForDomain(ctx context.Context, domain string) error
}
