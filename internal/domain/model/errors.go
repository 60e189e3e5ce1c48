package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCertificateNotFound is returned when a certificate id or domain does not
// resolve to a stored record.
var ErrCertificateNotFound = errors.New("certificate not found")

// ConfigurationError reports missing credentials or secrets. It is never
// retried; the operator must set the named environment variables.
type ConfigurationError struct {
	Vars []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required environment variable(s): %s", strings.Join(e.Vars, ", "))
}

// UnknownProviderError reports a provider name that is not present in the
// relevant registry or catalog. Kind is "dns" or "acme".
type UnknownProviderError struct {
	Kind string
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown %s provider %q", e.Kind, e.Name)
}

// ProviderError reports a DNS provider API rejection or transport failure.
// It is surfaced to the caller and not retried automatically.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s failed: %s", e.Provider, e.Operation, e.Message)
}

// ProtocolError reports an ACME order failure. The certificate is marked
// with status error and the next scheduled pass retries naturally.
type ProtocolError struct {
	Domain string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("acme order for %s failed: %v", e.Domain, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
