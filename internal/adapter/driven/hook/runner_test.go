package hook

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfortner/certminder/internal/domain/port/driven"
)

func testRunner() *Runner {
	return NewRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunner_PassesMaterialThroughEnvironment(t *testing.T) {
	t.Parallel()

	out, err := testRunner().Run(context.Background(),
		`printf '%s|%s|%s' "$CERT_DOMAIN" "$CERT_CERTIFICATE" "$CERT_PRIVATE_KEY"`,
		driven.HookMaterial{
			Domain:         "example.com",
			CertificatePEM: "CERT-PEM",
			PrivateKeyPEM:  "KEY-PEM",
		})
	require.NoError(t, err)
	assert.Equal(t, "example.com|CERT-PEM|KEY-PEM", out)
}

func TestRunner_NonZeroExitReturnsErrorWithOutput(t *testing.T) {
	t.Parallel()

	out, err := testRunner().Run(context.Background(),
		`echo "something broke" >&2; exit 3`,
		driven.HookMaterial{Domain: "example.com"})
	require.Error(t, err)
	assert.Contains(t, out, "something broke")
}

func TestRunner_ContextTimeoutKillsScript(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testRunner().Run(ctx, `sleep 30`, driven.HookMaterial{Domain: "example.com"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
