package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_SaveAndGet(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "example.com", "tok-1", "tok-1.thumbprint"))

	got, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, "tok-1.thumbprint", got.KeyAuthorization)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestTokenRepo_GetUnknownReturnsNil(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewTokenRepo(db)

	got, err := repo.GetByToken(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenRepo_MultipleTokensPerDomain(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "example.com", "tok-1", "auth-1"))
	require.NoError(t, repo.Save(ctx, "example.com", "tok-2", "auth-2"))

	first, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	second, err := repo.GetByToken(ctx, "tok-2")
	require.NoError(t, err)
	assert.NotNil(t, first)
	assert.NotNil(t, second)
}

func TestTokenRepo_DeleteForDomain(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "example.com", "tok-1", "auth-1"))
	require.NoError(t, repo.Save(ctx, "example.com", "tok-2", "auth-2"))
	require.NoError(t, repo.Save(ctx, "other.com", "tok-3", "auth-3"))

	require.NoError(t, repo.DeleteForDomain(ctx, "example.com"))

	gone, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := repo.GetByToken(ctx, "tok-3")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// Deleting with no matching rows is not an error.
	require.NoError(t, repo.DeleteForDomain(ctx, "example.com"))
}
