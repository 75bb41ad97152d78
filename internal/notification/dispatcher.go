package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"webpush-backend/internal/model"
	"webpush-backend/internal/store"
)

// ErrNotConfigured is returned when either VAPID key is absent. Every send
// fails fast with it, independent of the payload.
var ErrNotConfigured = errors.New("VAPID keys are not configured")

// ErrNoSubscription is returned when the registry holds nothing for the
// target user. A normal condition, not a crash.
var ErrNoSubscription = errors.New("no subscription on file for user")

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Action is one button attached to the displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Payload is the notification body sent over the wire. Ephemeral: built per
// send, never persisted.
type Payload struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Icon    string         `json:"icon,omitempty"`
	Badge   string         `json:"badge,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions"`
}

// Delivery is the outcome of one transmission to one endpoint.
type Delivery struct {
	Endpoint   string
	StatusCode int
	Gone       bool // push service reported the endpoint dead (404/410)
	Err        error
}

// Failed reports whether this delivery did not reach the push service.
func (d Delivery) Failed() bool {
	return d.Err != nil
}

// Dispatcher signs and transmits encrypted payloads to each of a user's
// push-service endpoints. Stateless and safe for concurrent use; it performs
// no retry and never mutates the registry: dead endpoints are only reported.
type Dispatcher struct {
	store   store.Store
	options *webpush.Options
	sender  NotificationSender
	badge   string
}

// NewDispatcher creates a dispatcher bound to the registry and VAPID identity.
func NewDispatcher(s store.Store, options *webpush.Options) *Dispatcher {
	return &Dispatcher{
		store:   s,
		options: options,
		sender:  &WebPushSender{},
	}
}

// WithSender replaces the transport, e.g. with a mock in tests.
func (d *Dispatcher) WithSender(sender NotificationSender) *Dispatcher {
	d.sender = sender
	return d
}

// WithBadge sets the monochrome badge icon stamped on every notification.
func (d *Dispatcher) WithBadge(path string) *Dispatcher {
	d.badge = path
	return d
}

// Configured reports whether the dispatcher holds a complete signing keypair.
func (d *Dispatcher) Configured() bool {
	return d.options != nil && d.options.VAPIDPublicKey != "" && d.options.VAPIDPrivateKey != ""
}

// Send delivers one notification to every endpoint registered for the user.
// Per-endpoint outcomes are reported in the returned slice; the error covers
// only the preconditions (configuration, registry lookup).
func (d *Dispatcher) Send(ctx context.Context, userID, title, body, icon string, data map[string]any) ([]Delivery, error) {
	if !d.Configured() {
		return nil, ErrNotConfigured
	}

	subs, err := d.store.SubscriptionsByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSubscription
		}
		return nil, fmt.Errorf("looking up subscriptions for user %s: %w", userID, err)
	}

	payload, err := json.Marshal(Payload{
		Title: title,
		Body:  body,
		Icon:  icon,
		Badge: d.badge,
		Data:  data,
		Actions: []Action{
			{Action: "view", Title: "View"},
			{Action: "close", Title: "Close"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	deliveries := make([]Delivery, 0, len(subs))
	for _, sub := range subs {
		deliveries = append(deliveries, d.deliver(payload, &sub))
	}
	return deliveries, nil
}

// deliver sends a single web push notification.
func (d *Dispatcher) deliver(payload []byte, sub *model.PushSubscription) Delivery {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(payload, wpSub, d.options)
	if err != nil {
		return Delivery{Endpoint: sub.Endpoint, Err: fmt.Errorf("sending to push service: %w", err)}
	}
	defer resp.Body.Close()

	delivery := Delivery{Endpoint: sub.Endpoint, StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		delivery.Gone = true
		delivery.Err = fmt.Errorf("push service reports endpoint gone (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		delivery.Err = fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return delivery
}
