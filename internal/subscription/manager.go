package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"webpush-backend/internal/model"
)

// Manager drives the client side of the push pipeline: permission, agent
// registration, key derivation, and handing the resulting record to the
// registry. Construct one per client context via the composition root.
type Manager struct {
	platform   Platform
	registry   Registry
	serverKey  string // VAPID public key, URL-safe base64 without padding
	scriptPath string
	scope      string

	mu        sync.Mutex
	supported *bool // capability probe result, memoized on first use
	handle    AgentHandle
}

// NewManager wires a manager to its platform and registry. No capability
// probing happens here: the check is meaningless before a live client
// context exists, so it is deferred to first use.
func NewManager(platform Platform, registry Registry, serverKey, scriptPath, scope string) *Manager {
	return &Manager{
		platform:   platform,
		registry:   registry,
		serverKey:  serverKey,
		scriptPath: scriptPath,
		scope:      scope,
	}
}

// IsSupported reports whether the host exposes all three required
// capabilities: persistent background execution, push delivery, and system
// notifications. Evaluated lazily and memoized.
func (m *Manager) IsSupported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.supported == nil {
		ok := m.platform.SupportsAgents() &&
			m.platform.SupportsPush() &&
			m.platform.SupportsNotifications()
		m.supported = &ok
	}
	return *m.supported
}

// PermissionStatus reflects the current authorization state. An unsupported
// platform is reported as denied.
func (m *Manager) PermissionStatus() Permission {
	if !m.IsSupported() {
		return PermissionDenied
	}
	return m.platform.Permission()
}

// RequestPermission issues the notification prompt. Already-granted
// permission short-circuits to true; already-denied permission cannot be
// re-prompted and returns false with ErrPermissionDenied.
func (m *Manager) RequestPermission(ctx context.Context) (bool, error) {
	switch m.PermissionStatus() {
	case PermissionGranted:
		return true, nil
	case PermissionDenied:
		return false, ErrPermissionDenied
	}

	perm, err := m.platform.RequestPermission(ctx)
	if err != nil {
		return false, fmt.Errorf("requesting notification permission: %w", err)
	}
	return perm == PermissionGranted, nil
}

// RegisterAgent installs the background agent for the application scope and
// waits for it to become active. Idempotent: an existing registration is
// returned as-is.
func (m *Manager) RegisterAgent(ctx context.Context) (AgentHandle, error) {
	if !m.IsSupported() {
		return nil, errors.New("push is not supported on this platform")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return m.handle, nil
	}

	existing, err := m.platform.Registration(ctx, m.scope)
	if err != nil {
		return nil, fmt.Errorf("looking up agent registration: %w", err)
	}
	if existing != nil {
		m.handle = existing
		return existing, nil
	}

	handle, err := m.platform.Register(ctx, m.scriptPath, m.scope)
	if err != nil {
		if errors.Is(err, ErrScriptNotFound) {
			return nil, fmt.Errorf("agent script missing at %s, check the server deployment: %w", m.scriptPath, err)
		}
		return nil, fmt.Errorf("registering agent: %w", err)
	}
	m.handle = handle
	return handle, nil
}

// Subscribe derives a push subscription bound to the configured server key,
// builds the registry record from it, and persists it. Registry-write
// failures are logged and returned so the caller decides on user messaging.
func (m *Manager) Subscribe(ctx context.Context, userID string) (*model.PushSubscription, error) {
	handle, err := m.RegisterAgent(ctx)
	if err != nil {
		log.Printf("subscribe for user %s: agent registration failed: %v", userID, err)
		return nil, err
	}

	serverKey, err := DecodeServerKey(m.serverKey)
	if err != nil {
		log.Printf("subscribe for user %s: bad server key: %v", userID, err)
		return nil, err
	}

	details, err := handle.Subscribe(ctx, serverKey)
	if err != nil {
		log.Printf("subscribe for user %s: platform subscribe failed: %v", userID, err)
		return nil, fmt.Errorf("deriving push subscription: %w", err)
	}

	record := &model.PushSubscription{
		UserID:       userID,
		Endpoint:     details.Endpoint,
		P256DH:       EncodeKeyMaterial(details.P256DH),
		Auth:         EncodeKeyMaterial(details.Auth),
		UserAgent:    m.platform.UserAgent(),
		Platform:     m.platform.DevicePlatform(),
		SubscribedAt: time.Now(),
	}
	if !record.Valid() {
		log.Printf("subscribe for user %s: platform returned incomplete key material", userID)
		return nil, errors.New("derived subscription is missing key material")
	}

	if err := m.registry.Save(ctx, record); err != nil {
		log.Printf("subscribe for user %s: registry write failed: %v", userID, err)
		return nil, fmt.Errorf("persisting subscription: %w", err)
	}
	return record, nil
}

// Unsubscribe cancels the active subscription at the platform level. False
// when no agent or no active subscription exists.
func (m *Manager) Unsubscribe(ctx context.Context) (bool, error) {
	m.mu.Lock()
	handle := m.handle
	m.mu.Unlock()

	if handle == nil {
		existing, err := m.platform.Registration(ctx, m.scope)
		if err != nil || existing == nil {
			return false, err
		}
		handle = existing
	}

	active, err := handle.ActiveSubscription(ctx)
	if err != nil {
		return false, fmt.Errorf("checking active subscription: %w", err)
	}
	if active == nil {
		return false, nil
	}

	ok, err := handle.Unsubscribe(ctx)
	if err != nil {
		return false, fmt.Errorf("cancelling subscription: %w", err)
	}
	return ok, nil
}

// SendTestNotification raises a local notification immediately, bypassing
// the push service. Used to validate the permission path without a server
// round trip.
func (m *Manager) SendTestNotification(ctx context.Context) error {
	if m.PermissionStatus() != PermissionGranted {
		return errors.New("notification permission is not granted")
	}
	return m.platform.ShowNotification(ctx, "Test notification", "Push notifications are working.")
}
