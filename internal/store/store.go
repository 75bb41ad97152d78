package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"webpush-backend/internal/model"
)

// ErrNotFound is returned when no subscription matches a lookup.
var ErrNotFound = errors.New("subscription not found")

// ErrInvalidSubscription is returned when a record is missing its endpoint or
// key material.
var ErrInvalidSubscription = errors.New("subscription is missing endpoint or key material")

// Store defines the interface for all subscription registry operations.
type Store interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	SubscriptionsByUserID(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	SubscriptionCount(ctx context.Context) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// UpsertSubscription persists a subscription. The endpoint is the natural key:
// a re-subscription from the same device overwrites the existing row.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if !sub.Valid() {
		return ErrInvalidSubscription
	}
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = time.Now()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent", "platform"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("upsert subscription for endpoint %s: %w", sub.Endpoint, err)
	}
	return nil
}

// SubscriptionsByUserID returns every subscription on file for a user, most
// recent first. ErrNotFound when there are none.
func (s *gormStore) SubscriptionsByUserID(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("subscribed_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions for user %s: %w", userID, err)
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return subs, nil
}

// DeleteSubscriptionByEndpoint removes the subscription for one device. Used
// both for explicit unsubscribes and when the push service reports the
// endpoint as gone.
func (s *gormStore) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("delete subscription %s: %w", endpoint, err)
	}
	return nil
}

// SubscriptionCount returns the total number of registered devices.
func (s *gormStore) SubscriptionCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.PushSubscription{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}
