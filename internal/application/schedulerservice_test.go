package application

import (
	"context"
	"crypto"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfortner/certminder/internal/caprovider"
	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

func TestAccountKeyRegistry_CachesPerProvider(t *testing.T) {
	t.Parallel()

	generated := 0
	gen := fakeKeyGenerator()
	reg := NewAccountKeyRegistry(func() (crypto.PrivateKey, error) {
		generated++
		return gen()
	})

	first, err := reg.KeyFor("letsencrypt")
	require.NoError(t, err)
	second, err := reg.KeyFor("letsencrypt")
	require.NoError(t, err)
	other, err := reg.KeyFor("zerossl")
	require.NoError(t, err)

	assert.Equal(t, 2, generated)
	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

type schedulerFixture struct {
	certs  *mockCertStore
	notifs *mockNotificationStore
	acme   *mockACMEClient
	email  *mockChannel
	sched  *SchedulerService
}

func newSchedulerFixture(t *testing.T, certs ...*model.Certificate) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{
		certs:  newMockCertStore(certs...),
		notifs: newMockNotificationStore("email"),
		acme:   newMockACMEClient(),
		email:  &mockChannel{name: "email"},
	}

	renew := NewRenewService(
		f.certs, &mockTokenStore{}, &mockHookLogStore{}, f.notifs,
		f.acme, caprovider.NewCatalogWithEnv(func(string) (string, bool) { return "", false }),
		&mockDNSFactory{}, &mockHookRunner{},
		NewAccountKeyRegistry(fakeKeyGenerator()),
		"ops@example.com", false,
	)
	renew.propagationWait = 0

	notify := NewNotifyService(f.certs, f.notifs, []driven.NotificationChannel{f.email})

	f.sched = NewSchedulerService(renew, notify, f.certs, "@hourly", 30, time.Minute)
	return f
}

func TestSchedulerRunPass_RenewsDueCertificates(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t,
		&model.Certificate{
			ID: 1, Domain: "due.example.com",
			Status:        model.CertStatusValid,
			ChallengeType: model.ChallengeTypeHTTP,
			AutoRenew:     true,
		},
		&model.Certificate{
			ID: 2, Domain: "broken.example.com",
			Status:        model.CertStatusValid,
			ChallengeType: model.ChallengeTypeHTTP,
			ACMEProvider:  "zerossl", // EAB vars unset, so this order fails
			AutoRenew:     true,
		},
	)

	summary := f.sched.RunPass(context.Background())

	assert.Equal(t, 2, summary.Examined)
	assert.Equal(t, 1, summary.Renewed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.StartedAt.IsZero())
	assert.False(t, summary.FinishedAt.IsZero())

	renewed, err := f.certs.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.CertStatusValid, renewed.Status)
	assert.NotNil(t, renewed.ExpiresAt)

	failed, err := f.certs.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, model.CertStatusError, failed.Status)
}

func TestSchedulerRunPass_DeliversNotices(t *testing.T) {
	t.Parallel()

	soon := time.Now().UTC().Add(5 * 24 * time.Hour)
	f := newSchedulerFixture(t, &model.Certificate{
		ID: 1, Domain: "expiring.example.com",
		Status:    model.CertStatusValid,
		ExpiresAt: &soon,
	})

	summary := f.sched.RunPass(context.Background())

	assert.Equal(t, 1, summary.NoticesSent)
	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "expiring.example.com", f.email.sent[0].Domain)
}

func TestSchedulerLastRun(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	assert.Nil(t, f.sched.LastRun())

	f.sched.RunPass(context.Background())

	last := f.sched.LastRun()
	require.NotNil(t, last)
	assert.Zero(t, last.Examined)
}

func TestSchedulerStart_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	f.sched.schedule = "not a cron line"
	assert.Error(t, f.sched.Start())
}

func TestSchedulerRunPass_RenewalClearsNotificationState(t *testing.T) {
	t.Parallel()

	soon := time.Now().UTC().Add(5 * 24 * time.Hour)
	f := newSchedulerFixture(t, &model.Certificate{
		ID: 1, Domain: "example.com",
		Status:        model.CertStatusValid,
		ChallengeType: model.ChallengeTypeHTTP,
		AutoRenew:     true,
		ExpiresAt:     &soon,
	})

	// Simulate a notice from an earlier pass.
	require.NoError(t, f.notifs.Record(context.Background(), 1, "expiry_30d", "email"))

	f.sched.RunPass(context.Background())

	// The renewal wiped dedup state; the renewed cert is far from expiry so
	// nothing re-sends either.
	assert.Contains(t, f.notifs.cleared, int64(1))
	assert.Empty(t, f.email.sent)
}

func TestSchedulerRunPass_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t,
		&model.Certificate{
			ID: 1, Domain: "a.example.com",
			ChallengeType: model.ChallengeTypeDNS,
			DNSProvider:   "route53",
			AutoRenew:     true,
		},
		&model.Certificate{
			ID: 2, Domain: "b.example.com",
			ChallengeType: model.ChallengeTypeHTTP,
			AutoRenew:     true,
		},
	)

	summary := f.sched.RunPass(context.Background())

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Renewed)
}

func TestSchedulerRunPass_ObtainErrorCounted(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t, &model.Certificate{
		ID: 1, Domain: "example.com",
		ChallengeType: model.ChallengeTypeHTTP,
		AutoRenew:     true,
	})
	f.acme.obtainErr = &model.ProtocolError{Domain: "example.com", Err: errors.New("rate limited")}

	summary := f.sched.RunPass(context.Background())
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Renewed)
}
