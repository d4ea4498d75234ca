package usage

import (
	"context"
	"time"
)

// Repository defines the read-only interface to the usage collaborator
type Repository interface {
	// GetRawUsage retrieves deduplicated raw usage for a subscription with
	// record dates in [start, end)
	GetRawUsage(ctx context.Context, subscriptionID string, start, end time.Time) ([]*RawUsageRecord, error)
}
