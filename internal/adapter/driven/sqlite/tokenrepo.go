package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChallengeTokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the ChallengeTokenStore port
// interface.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Save stores an HTTP-01 challenge token. A domain may hold several live
// tokens at once while an order is in flight.
func (r *TokenRepo) Save(ctx context.Context, domain, token, keyAuthorization string) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`INSERT INTO challenge_tokens (domain, token, key_authorization) VALUES (?, ?, ?)`,
		domain, token, keyAuthorization,
	)
	if err != nil {
		return fmt.Errorf("save challenge token for %q: %w", domain, err)
	}
	return nil
}

// GetByToken returns the token record, or (nil, nil) when unknown.
func (r *TokenRepo) GetByToken(ctx context.Context, token string) (*model.ChallengeToken, error) {
	row := r.db.Reader.QueryRowContext(ctx,
		`SELECT id, domain, token, key_authorization, created_at FROM challenge_tokens WHERE token = ?`,
		token,
	)

	var (
		ct        model.ChallengeToken
		createdAt string
	)
	err := row.Scan(&ct.ID, &ct.Domain, &ct.Token, &ct.KeyAuthorization, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge token: %w", err)
	}
	if ct.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse challenge token created_at: %w", err)
	}
	return &ct, nil
}

// DeleteForDomain removes all tokens for the domain once its order settles.
func (r *TokenRepo) DeleteForDomain(ctx context.Context, domain string) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM challenge_tokens WHERE domain = ?`, domain)
	if err != nil {
		return fmt.Errorf("delete challenge tokens for %q: %w", domain, err)
	}
	return nil
}
