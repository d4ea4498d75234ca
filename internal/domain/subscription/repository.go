package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations
type Repository interface {
	// Get retrieves a subscription by ID
	Get(ctx context.Context, id string) (*Subscription, error)

	// ListByAccount retrieves all subscriptions for an account
	ListByAccount(ctx context.Context, accountID string) ([]*Subscription, error)

	// UpdateChargedThrough advances the charged-through date of a subscription.
	// Implementations must never move the date backwards.
	UpdateChargedThrough(ctx context.Context, subscriptionID string, chargedThrough time.Time) error
}
