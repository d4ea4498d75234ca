package invoice

import (
	"context"
)

// Repository defines the interface for invoice persistence operations. All
// writes of one reconciliation pass happen under a single transaction owned
// by the persistence collaborator, so partial repairs are never observed.
type Repository interface {
	// Create persists a new invoice with its items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID, including items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists changes to an existing invoice and its items
	Update(ctx context.Context, invoice *Invoice) error

	// ListByAccount retrieves all invoices of an account with their items,
	// regardless of status
	ListByAccount(ctx context.Context, accountID string) ([]*Invoice, error)

	// GetOpenDraft retrieves the open DRAFT invoice of an account, or
	// ErrInvoiceNotFound when none exists
	GetOpenDraft(ctx context.Context, accountID string) (*Invoice, error)
}
