package application

import (
	"crypto"
	"sync"
)

// AccountKeyRegistry caches one ACME account key per CA provider for the
// lifetime of the process. Keys are generated lazily on first use and never
// persisted; a restart simply registers fresh accounts.
type AccountKeyRegistry struct {
	mu       sync.Mutex
	keys     map[string]crypto.PrivateKey
	generate func() (crypto.PrivateKey, error)
}

// NewAccountKeyRegistry creates a registry using the given key generator.
func NewAccountKeyRegistry(generate func() (crypto.PrivateKey, error)) *AccountKeyRegistry {
	return &AccountKeyRegistry{
		keys:     make(map[string]crypto.PrivateKey),
		generate: generate,
	}
}

// KeyFor returns the cached account key for the named CA provider,
// generating one on first use.
func (r *AccountKeyRegistry) KeyFor(provider string) (crypto.PrivateKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.keys[provider]; ok {
		return key, nil
	}
	key, err := r.generate()
	if err != nil {
		return nil, err
	}
	r.keys[provider] = key
	return key, nil
}
