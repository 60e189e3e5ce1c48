package driven

import "context"

// HookMaterial is the certificate material injected into a deployment hook's
// environment. The private key crosses a trust boundary here: the hook
// subprocess sees it in plaintext.
type HookMaterial struct {
	Domain         string
	CertificatePEM string
	PrivateKeyPEM  string
}

// HookRunner defines the driven port for executing a user-supplied deployment
// command. Run returns the combined stdout/stderr and a non-nil error for a
// non-zero exit. Callers log the outcome; a hook failure never propagates
// into the renewal result.
type HookRunner interface {
	Run(ctx context.Context, script string, material HookMaterial) (output string, err error)
}
