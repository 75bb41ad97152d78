package subscription

import (
	"context"
	"errors"

	"webpush-backend/internal/model"
)

// Permission is the notification authorization state of the client context.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ErrScriptNotFound is returned by Platform.Register when the agent script is
// missing server-side. It is distinguished from generic registration failures
// so the caller can show an actionable message.
var ErrScriptNotFound = errors.New("agent script not found")

// ErrPermissionDenied is returned when the platform has already refused
// notification access; it cannot be re-requested within the session.
var ErrPermissionDenied = errors.New("notification permission was denied and cannot be requested again")

// PushDetails is the platform-derived push subscription: the push-service
// mailbox plus the subscriber's raw key material.
type PushDetails struct {
	Endpoint string
	P256DH   []byte
	Auth     []byte
}

// AgentHandle is a registered background agent for one application scope.
type AgentHandle interface {
	// Subscribe derives a push subscription bound to the given binary
	// application-server key.
	Subscribe(ctx context.Context, applicationServerKey []byte) (*PushDetails, error)

	// ActiveSubscription returns the current subscription, or nil when the
	// device holds none.
	ActiveSubscription(ctx context.Context) (*PushDetails, error)

	// Unsubscribe cancels the active subscription at the platform level and
	// reports whether one existed.
	Unsubscribe(ctx context.Context) (bool, error)
}

// Platform abstracts the host environment of the client execution context:
// capability probes, the permission prompt, agent registration, and local
// notification display.
type Platform interface {
	SupportsAgents() bool
	SupportsPush() bool
	SupportsNotifications() bool

	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)

	// Registration returns the existing agent handle for the scope, or nil
	// when none is registered.
	Registration(ctx context.Context, scope string) (AgentHandle, error)

	// Register installs the agent script and blocks until the agent reaches
	// the active state.
	Register(ctx context.Context, scriptPath, scope string) (AgentHandle, error)

	// ShowNotification raises a local notification without a push-service
	// round trip.
	ShowNotification(ctx context.Context, title, body string) error

	UserAgent() string
	DevicePlatform() model.Platform
}

// Registry persists subscription records to the backend.
type Registry interface {
	Save(ctx context.Context, sub *model.PushSubscription) error
}
