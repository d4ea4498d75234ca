package account

import (
	"context"
	"time"
)

// Repository defines the interface for account persistence operations.
// Implementations are owned by the persistence collaborator; the core relies
// on per-account write serialization being enforced at that boundary.
type Repository interface {
	// Get retrieves an account by ID
	Get(ctx context.Context, id string) (*Account, error)

	// Update updates an existing account
	Update(ctx context.Context, account *Account) error

	// Park marks the account as parked at the given time
	Park(ctx context.Context, id string, at time.Time) error

	// Unpark lifts the parked marker
	Unpark(ctx context.Context, id string) error
}
