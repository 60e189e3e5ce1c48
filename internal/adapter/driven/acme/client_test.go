package acme

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfortner/certminder/internal/domain/port/driven"
)

func TestGenerateAccountKey(t *testing.T) {
	t.Parallel()

	key, err := GenerateAccountKey()
	require.NoError(t, err)

	_, ok := key.(*ecdsa.PrivateKey)
	assert.True(t, ok, "account key should be ECDSA")
}

func TestChallengeBridge_PresentForwardsContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	var gotDomain, gotToken, gotAuth string
	var gotCtx context.Context
	bridge := &challengeBridge{
		ctx: ctx,
		req: driven.OrderRequest{
			Fulfill: func(ctx context.Context, domain, token, keyAuth string) error {
				gotCtx, gotDomain, gotToken, gotAuth = ctx, domain, token, keyAuth
				return nil
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.NoError(t, bridge.Present("example.com", "tok", "tok.print"))
	assert.Equal(t, "example.com", gotDomain)
	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "tok.print", gotAuth)
	assert.Equal(t, "marker", gotCtx.Value(ctxKey{}))
}

func TestChallengeBridge_CleanUpSwallowsErrors(t *testing.T) {
	t.Parallel()

	bridge := &challengeBridge{
		ctx: context.Background(),
		req: driven.OrderRequest{
			Cleanup: func(ctx context.Context, domain, token, keyAuth string) error {
				return errors.New("record already gone")
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	assert.NoError(t, bridge.CleanUp("example.com", "tok", "tok.print"))
}

func TestChallengeBridge_CleanUpNilIsNoop(t *testing.T) {
	t.Parallel()

	bridge := &challengeBridge{
		ctx:    context.Background(),
		req:    driven.OrderRequest{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	assert.NoError(t, bridge.CleanUp("example.com", "tok", "tok.print"))
}
