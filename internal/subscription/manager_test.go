package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webpush-backend/internal/model"
)

// Test VAPID public key: 65 bytes of an uncompressed P-256 point, URL-safe
// base64 without padding.
const testServerKey = "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM"

type fakeHandle struct {
	details       *PushDetails
	subscribeErr  error
	active        *PushDetails
	unsubscribed  bool
	gotServerKey  []byte
	subscribeHits int
}

func (f *fakeHandle) Subscribe(_ context.Context, serverKey []byte) (*PushDetails, error) {
	f.subscribeHits++
	f.gotServerKey = serverKey
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.details, nil
}

func (f *fakeHandle) ActiveSubscription(context.Context) (*PushDetails, error) {
	return f.active, nil
}

func (f *fakeHandle) Unsubscribe(context.Context) (bool, error) {
	had := f.active != nil
	f.active = nil
	f.unsubscribed = true
	return had, nil
}

type fakePlatform struct {
	agents, push, notifications bool

	permission    Permission
	promptResult  Permission
	promptCalls   int
	existing      AgentHandle
	registered    AgentHandle
	registerErr   error
	registerCalls int
	shown         []string
	probeCalls    int
}

func (f *fakePlatform) SupportsAgents() bool {
	f.probeCalls++
	return f.agents
}

func (f *fakePlatform) SupportsPush() bool { return f.push }

func (f *fakePlatform) SupportsNotifications() bool { return f.notifications }

func (f *fakePlatform) Permission() Permission { return f.permission }

func (f *fakePlatform) RequestPermission(context.Context) (Permission, error) {
	f.promptCalls++
	f.permission = f.promptResult
	return f.promptResult, nil
}

func (f *fakePlatform) Registration(context.Context, string) (AgentHandle, error) {
	return f.existing, nil
}

func (f *fakePlatform) Register(context.Context, string, string) (AgentHandle, error) {
	f.registerCalls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registered, nil
}

func (f *fakePlatform) ShowNotification(_ context.Context, title, _ string) error {
	f.shown = append(f.shown, title)
	return nil
}

func (f *fakePlatform) UserAgent() string { return "test-agent/1.0" }

func (f *fakePlatform) DevicePlatform() model.Platform { return model.PlatformDesktop }

type fakeRegistry struct {
	saved []*model.PushSubscription
	err   error
}

func (f *fakeRegistry) Save(_ context.Context, sub *model.PushSubscription) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, sub)
	return nil
}

func capablePlatform() *fakePlatform {
	return &fakePlatform{
		agents:        true,
		push:          true,
		notifications: true,
		permission:    PermissionDefault,
		promptResult:  PermissionGranted,
	}
}

func newTestManager(p *fakePlatform, r *fakeRegistry) *Manager {
	return NewManager(p, r, testServerKey, "/agent.js", "/")
}

func TestIsSupported_LazyAndMemoized(t *testing.T) {
	p := capablePlatform()
	m := newTestManager(p, &fakeRegistry{})

	assert.Zero(t, p.probeCalls, "capability probe must not run at construction")

	assert.True(t, m.IsSupported())
	assert.True(t, m.IsSupported())
	assert.Equal(t, 1, p.probeCalls, "probe result is memoized")
}

func TestPermissionStatus_DeniedWhenUnsupported(t *testing.T) {
	p := capablePlatform()
	p.push = false
	p.permission = PermissionGranted
	m := newTestManager(p, &fakeRegistry{})

	assert.Equal(t, PermissionDenied, m.PermissionStatus())
}

func TestRequestPermission(t *testing.T) {
	t.Run("already granted short-circuits", func(t *testing.T) {
		p := capablePlatform()
		p.permission = PermissionGranted
		m := newTestManager(p, &fakeRegistry{})

		granted, err := m.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.True(t, granted)
		assert.Zero(t, p.promptCalls)
	})

	t.Run("already denied never re-prompts", func(t *testing.T) {
		p := capablePlatform()
		p.permission = PermissionDenied
		m := newTestManager(p, &fakeRegistry{})

		granted, err := m.RequestPermission(context.Background())
		assert.False(t, granted)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Zero(t, p.promptCalls, "platform prompt must not be invoked again")
	})

	t.Run("default prompts once", func(t *testing.T) {
		p := capablePlatform()
		m := newTestManager(p, &fakeRegistry{})

		granted, err := m.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.True(t, granted)
		assert.Equal(t, 1, p.promptCalls)
	})
}

func TestRegisterAgent_Idempotent(t *testing.T) {
	p := capablePlatform()
	p.registered = &fakeHandle{}
	m := newTestManager(p, &fakeRegistry{})

	first, err := m.RegisterAgent(context.Background())
	require.NoError(t, err)

	second, err := m.RegisterAgent(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, p.registerCalls)
}

func TestRegisterAgent_ReturnsExistingRegistration(t *testing.T) {
	existing := &fakeHandle{}
	p := capablePlatform()
	p.existing = existing
	m := newTestManager(p, &fakeRegistry{})

	handle, err := m.RegisterAgent(context.Background())
	require.NoError(t, err)
	assert.Same(t, AgentHandle(existing), handle)
	assert.Zero(t, p.registerCalls)
}

func TestRegisterAgent_ScriptNotFound(t *testing.T) {
	p := capablePlatform()
	p.registerErr = ErrScriptNotFound
	m := newTestManager(p, &fakeRegistry{})

	handle, err := m.RegisterAgent(context.Background())
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrScriptNotFound)
	assert.Contains(t, err.Error(), "/agent.js")
}

func TestSubscribe_BuildsAndPersistsRecord(t *testing.T) {
	details := &PushDetails{
		Endpoint: "https://push.example.com/box/abc",
		P256DH:   []byte{0x04, 0x01, 0x02, 0x03},
		Auth:     []byte{0xaa, 0xbb},
	}
	handle := &fakeHandle{details: details}
	p := capablePlatform()
	p.registered = handle
	reg := &fakeRegistry{}
	m := newTestManager(p, reg)

	record, err := m.Subscribe(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, record)

	// The server key reaches the platform in binary form.
	expectedKey, err := DecodeServerKey(testServerKey)
	require.NoError(t, err)
	assert.Equal(t, expectedKey, handle.gotServerKey)

	// The subscriber's raw key material travels as standard base64.
	assert.Equal(t, "42", record.UserID)
	assert.Equal(t, details.Endpoint, record.Endpoint)
	assert.Equal(t, EncodeKeyMaterial(details.P256DH), record.P256DH)
	assert.Equal(t, EncodeKeyMaterial(details.Auth), record.Auth)
	assert.Equal(t, model.PlatformDesktop, record.Platform)
	assert.False(t, record.SubscribedAt.IsZero())

	require.Len(t, reg.saved, 1)
	assert.Same(t, record, reg.saved[0])
}

func TestSubscribe_RegistryWriteFailurePropagates(t *testing.T) {
	handle := &fakeHandle{details: &PushDetails{
		Endpoint: "https://push.example.com/box/abc",
		P256DH:   []byte{0x04},
		Auth:     []byte{0x01},
	}}
	p := capablePlatform()
	p.registered = handle
	m := newTestManager(p, &fakeRegistry{err: errors.New("backend unreachable")})

	record, err := m.Subscribe(context.Background(), "42")
	assert.Nil(t, record)
	assert.ErrorContains(t, err, "backend unreachable")
}

func TestSubscribe_PlatformFailureReturnsNil(t *testing.T) {
	handle := &fakeHandle{subscribeErr: errors.New("key derivation failed")}
	p := capablePlatform()
	p.registered = handle
	m := newTestManager(p, &fakeRegistry{})

	record, err := m.Subscribe(context.Background(), "42")
	assert.Nil(t, record)
	assert.Error(t, err)
}

func TestUnsubscribe(t *testing.T) {
	t.Run("no agent registered", func(t *testing.T) {
		p := capablePlatform()
		m := newTestManager(p, &fakeRegistry{})

		ok, err := m.Unsubscribe(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("agent registered but nothing active", func(t *testing.T) {
		handle := &fakeHandle{}
		p := capablePlatform()
		p.registered = handle
		m := newTestManager(p, &fakeRegistry{})

		_, err := m.RegisterAgent(context.Background())
		require.NoError(t, err)

		// The platform is never asked to cancel anything.
		ok, err := m.Unsubscribe(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, handle.unsubscribed)
	})

	t.Run("active subscription is cancelled", func(t *testing.T) {
		handle := &fakeHandle{
			details: &PushDetails{Endpoint: "https://push.example.com/box/abc", P256DH: []byte{4}, Auth: []byte{1}},
		}
		handle.active = handle.details
		p := capablePlatform()
		p.registered = handle
		m := newTestManager(p, &fakeRegistry{})

		_, err := m.RegisterAgent(context.Background())
		require.NoError(t, err)

		ok, err := m.Unsubscribe(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, handle.unsubscribed)
	})
}

func TestSendTestNotification(t *testing.T) {
	p := capablePlatform()
	p.permission = PermissionGranted
	m := newTestManager(p, &fakeRegistry{})

	require.NoError(t, m.SendTestNotification(context.Background()))
	assert.Len(t, p.shown, 1)

	p2 := capablePlatform()
	p2.permission = PermissionDefault
	m2 := newTestManager(p2, &fakeRegistry{})
	assert.Error(t, m2.SendTestNotification(context.Background()))
	assert.Empty(t, p2.shown)
}
