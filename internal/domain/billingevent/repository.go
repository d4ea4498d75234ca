package billingevent

import (
	"context"
)

// Repository defines the read-only interface to the billing event collaborator.
// The stream is re-fetchable idempotently and never rewrites events already
// consumed by a committed invoice's charged-through date.
type Repository interface {
	// GetTimeline retrieves the full billing event timeline for an account.
	// Future-dated events are included: they bound the open period of the
	// charge calculator even when they lie beyond the target date.
	GetTimeline(ctx context.Context, accountID string) (*Timeline, error)
}
