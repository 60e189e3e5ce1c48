package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookLogRepo_AppendAndList(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	certs := NewCertRepo(db)
	repo := NewHookLogRepo(db)
	ctx := context.Background()

	cert := mustCreateCert(t, certs, "example.com")

	require.NoError(t, repo.Append(ctx, cert.ID, true, "reloaded nginx"))
	require.NoError(t, repo.Append(ctx, cert.ID, false, "exit status 1: permission denied"))

	logs, err := repo.ListForCertificate(ctx, cert.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first; same-second inserts fall back to id ordering.
	assert.False(t, logs[0].Success)
	assert.Equal(t, "exit status 1: permission denied", logs[0].Output)
	assert.True(t, logs[1].Success)
	assert.Equal(t, "reloaded nginx", logs[1].Output)
	assert.Equal(t, cert.ID, logs[0].CertificateID)
	assert.False(t, logs[0].ExecutedAt.IsZero())
}

func TestHookLogRepo_ListEmpty(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewHookLogRepo(db)

	logs, err := repo.ListForCertificate(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
