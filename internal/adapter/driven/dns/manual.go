package dns

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

var (
	_ driven.DNSProvider        = (*Manual)(nil)
	_ driven.CredentialVerifier = (*Manual)(nil)
)

// PendingChallengeStore holds challenges awaiting manual TXT record creation
// by the operator. It is scoped to a Registry instance, not process-wide, so
// tests run in isolation.
type PendingChallengeStore struct {
	mu      sync.Mutex
	pending map[string]model.DNSChallenge
}

// NewPendingChallengeStore creates an empty store.
func NewPendingChallengeStore() *PendingChallengeStore {
	return &PendingChallengeStore{pending: make(map[string]model.DNSChallenge)}
}

// Put records or replaces the pending challenge for a domain.
func (s *PendingChallengeStore) Put(ch model.DNSChallenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[ch.Domain] = ch
}

// Remove drops the pending challenge for a domain, if any.
func (s *PendingChallengeStore) Remove(domain string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, domain)
}

// Get returns the pending challenge for a domain.
func (s *PendingChallengeStore) Get(domain string) (model.DNSChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[domain]
	return ch, ok
}

// All returns every pending challenge.
func (s *PendingChallengeStore) All() []model.DNSChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.DNSChallenge, 0, len(s.pending))
	for _, ch := range s.pending {
		all = append(all, ch)
	}
	return all
}

// Manual is the provider for operators who add TXT records themselves. It
// never touches the network: CreateRecord stores the challenge for display
// and DeleteRecord clears it.
type Manual struct {
	store *PendingChallengeStore
}

// NewManual creates a Manual adapter backed by the given pending store.
func NewManual(store *PendingChallengeStore) *Manual {
	return &Manual{store: store}
}

// Name implements driven.DNSProvider.
func (m *Manual) Name() string { return "manual" }

// CreateRecord stores the challenge and logs the record the operator must add.
func (m *Manual) CreateRecord(_ context.Context, ch model.DNSChallenge) error {
	m.store.Put(ch)
	slog.Info("manual DNS challenge required: add this TXT record at your DNS provider",
		"domain", ch.Domain,
		"record_name", ch.RecordName,
		"record_value", ch.RecordValue,
	)
	return nil
}

// DeleteRecord clears the pending challenge; the operator may now remove the
// TXT record.
func (m *Manual) DeleteRecord(_ context.Context, ch model.DNSChallenge) error {
	m.store.Remove(ch.Domain)
	slog.Info("manual DNS challenge complete: the TXT record can be removed",
		"domain", ch.Domain,
		"record_name", ch.RecordName,
	)
	return nil
}

// VerifyCredentials always succeeds; manual mode needs none.
func (m *Manual) VerifyCredentials(context.Context) bool { return true }
