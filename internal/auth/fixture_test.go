package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/congo_auth/internal/identity"
	"github.com/congo-pay/congo_auth/internal/kvstore"
	"github.com/congo-pay/congo_auth/internal/logging"
	"github.com/congo-pay/congo_auth/internal/notification"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notification.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// lastCode pulls the code out of the most recent message sent.
func (m *mockNotifier) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.Calls, "no notification sent")
	msg := m.Calls[len(m.Calls)-1].Arguments.Get(1).(notification.Message)
	code := sixDigits.FindString(msg.Body)
	require.NotEmpty(t, code, "no code in %q", msg.Body)
	return code
}

type fixture struct {
	clock    *testClock
	store    *kvstore.MemoryStore
	notifier *mockNotifier
	users    *identity.Service
	svc      *Service
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	clock := newTestClock()
	store := kvstore.NewMemoryWithClock(clock.Now)
	notifier := &mockNotifier{}
	users := identity.NewService(identity.NewMemoryRepository())

	opts := Options{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		OTPTTL:     5 * time.Minute,
		Now:        clock.Now,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	svc, err := NewService(opts, store, notifier, users, logging.Discard())
	require.NoError(t, err)
	return &fixture{clock: clock, store: store, notifier: notifier, users: users, svc: svc}
}

func (f *fixture) acceptSMS() {
	f.notifier.On("Send", mock.Anything, mock.AnythingOfType("notification.Message")).Return(nil)
}
