package model

import "time"

// Platform identifies the class of device a subscription was created on.
// Descriptive metadata only; delivery does not depend on it.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformDesktop Platform = "desktop"
)

// PushSubscription holds one device's ability to receive web push. The
// endpoint is the natural key: re-subscribing from the same device replaces
// the prior record instead of duplicating it.
type PushSubscription struct {
	UserID       string    `gorm:"index;not null" json:"userId"`
	Endpoint     string    `gorm:"primaryKey" json:"endpoint"`
	P256DH       string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth         string    `gorm:"not null" json:"auth"`
	UserAgent    string    `json:"userAgent,omitempty"`
	Platform     Platform  `json:"platform,omitempty"`
	SubscribedAt time.Time `gorm:"not null" json:"subscribedAt"`
}

// Valid reports whether the record carries the key material required by the
// push-service wire protocol. Records without it must never be persisted or
// dispatched to.
func (s *PushSubscription) Valid() bool {
	return s.Endpoint != "" && s.P256DH != "" && s.Auth != ""
}
