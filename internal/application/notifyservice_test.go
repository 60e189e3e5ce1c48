package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfortner/certminder/internal/domain/model"
	"github.com/kfortner/certminder/internal/domain/port/driven"
)

var notifyNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func validCert(id int64, domain string, daysOut int) *model.Certificate {
	expires := notifyNow.Add(time.Duration(daysOut) * 24 * time.Hour)
	return &model.Certificate{
		ID: id, Domain: domain,
		Status:    model.CertStatusValid,
		ExpiresAt: &expires,
	}
}

func newNotifySvc(certs *mockCertStore, notifs *mockNotificationStore, channels ...driven.NotificationChannel) *NotifyService {
	svc := NewNotifyService(certs, notifs, channels)
	svc.now = func() time.Time { return notifyNow }
	return svc
}

func TestMatchThreshold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		days      int
		threshold int
		ok        bool
	}{
		{days: 0, threshold: 30, ok: true},
		{days: 1, threshold: 30, ok: true},
		{days: 5, threshold: 30, ok: true},
		{days: 14, threshold: 30, ok: true},
		{days: 30, threshold: 30, ok: true},
		{days: 31, ok: false},
		{days: 90, ok: false},
	}
	for _, tc := range cases {
		got, ok := matchThreshold(tc.days)
		assert.Equal(t, tc.ok, ok, "days=%d", tc.days)
		if tc.ok {
			assert.Equal(t, tc.threshold, got, "days=%d", tc.days)
		}
	}
}

func TestProcessAll_SendsOneNoticePerGeneration(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 5))
	notifs := newMockNotificationStore("email")
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "example.com", email.sent[0].Domain)
	assert.Equal(t, 5, email.sent[0].DaysUntilExpiry)

	// The 30-day mark is the first at or above 5 remaining days, so it is
	// the one recorded; later marks never fire for this generation.
	recorded, err := notifs.HasBeenSent(context.Background(), 1, "expiry_30d", "email")
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestProcessAll_IsIdempotentAcrossPasses(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 7))
	notifs := newMockNotificationStore("email")
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessAll(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, email.sent, 1)
}

func TestProcessAll_DedupIsPerChannel(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 3))
	notifs := newMockNotificationStore("email", "webhook")
	email := &mockChannel{name: "email"}
	webhook := &mockChannel{name: "webhook"}
	svc := newNotifySvc(certs, notifs, email, webhook)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Len(t, email.sent, 1)
	assert.Len(t, webhook.sent, 1)
}

func TestProcessAll_DisabledChannelIsSkipped(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 3))
	notifs := newMockNotificationStore("email")
	require.NoError(t, notifs.UpsertSetting(context.Background(), "email", false))
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, email.sent)
}

func TestProcessAll_ChannelWithoutSettingIsDisabled(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 3))
	notifs := newMockNotificationStore()
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestProcessAll_FailedSendIsNotRecorded(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 1))
	notifs := newMockNotificationStore("email", "webhook")
	email := &mockChannel{name: "email", sendErr: errors.New("smtp down")}
	webhook := &mockChannel{name: "webhook"}
	svc := newNotifySvc(certs, notifs, email, webhook)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// The failed channel stays unrecorded so the next pass retries it.
	recorded, err := notifs.HasBeenSent(context.Background(), 1, "expiry_30d", "email")
	require.NoError(t, err)
	assert.False(t, recorded)

	recorded, err = notifs.HasBeenSent(context.Background(), 1, "expiry_30d", "webhook")
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestProcessAll_FarFromExpiryIsQuiet(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(validCert(1, "example.com", 60))
	notifs := newMockNotificationStore("email")
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, email.sent)
}

func TestProcessAll_OverdueCertificateMarkedExpired(t *testing.T) {
	t.Parallel()
	cert := validCert(1, "example.com", 0)
	past := notifyNow.Add(-48 * time.Hour)
	cert.ExpiresAt = &past
	certs := newMockCertStore(cert)
	notifs := newMockNotificationStore("email")
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, email.sent)

	stored, err := certs.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.CertStatusExpired, stored.Status)
}

func TestProcessAll_PendingCertificateIgnored(t *testing.T) {
	t.Parallel()
	certs := newMockCertStore(&model.Certificate{ID: 1, Domain: "example.com", Status: model.CertStatusPending})
	notifs := newMockNotificationStore("email")
	email := &mockChannel{name: "email"}
	svc := newNotifySvc(certs, notifs, email)

	sent, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}
