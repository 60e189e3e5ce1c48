// Package hook executes user-supplied deployment commands after renewals.
package hook

import (
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/kfortner/certminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HookRunner = (*Runner)(nil)

// Runner executes hook scripts through the shell. The certificate material
// reaches the subprocess only via environment variables, never argv, so it
// does not leak into the process table.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a new hook Runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger.With("component", "hook")}
}

// Run executes the script with `/bin/sh -c` and returns its combined
// stdout/stderr. A non-zero exit or a context timeout returns a non-nil
// error alongside whatever output was produced.
func (r *Runner) Run(ctx context.Context, script string, material driven.HookMaterial) (string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	cmd.Env = append(os.Environ(),
		"CERT_DOMAIN="+material.Domain,
		"CERT_CERTIFICATE="+material.CertificatePEM,
		"CERT_PRIVATE_KEY="+material.PrivateKeyPEM,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Warn("hook failed", "domain", material.Domain, "error", err)
		return string(out), err
	}

	r.logger.Info("hook succeeded", "domain", material.Domain)
	return string(out), nil
}
