package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/types"
)

// Item is one persisted invoice line item. Amounts are signed: native charges
// are non-negative, repair adjustments are the exact negation of the item they
// invalidate, CBA adjustments are positive when funding the credit pool and
// negative when consuming it.
type Item struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`
	// SubscriptionID is nil for account-level items (CBA_ADJ, CREDIT_ADJ,
	// EXTERNAL_CHARGE)
	SubscriptionID *string               `json:"subscription_id,omitempty"`
	Type           types.InvoiceItemType `json:"type"`

	StartDate time.Time `json:"start_date"`
	// EndDate is nil for point items (FIXED, adjustments)
	EndDate *time.Time `json:"end_date,omitempty"`

	Amount decimal.Decimal `json:"amount"`
	// Rate is the undiscounted full-period price behind a prorated amount
	Rate *decimal.Decimal `json:"rate,omitempty"`

	PlanName  string `json:"plan_name,omitempty"`
	PhaseName string `json:"phase_name,omitempty"`

	CatalogVersionID     string    `json:"catalog_version_id,omitempty"`
	CatalogEffectiveDate time.Time `json:"catalog_effective_date,omitempty"`

	// LinkedItemID points at the item this one repairs or credits
	LinkedItemID *string `json:"linked_item_id,omitempty"`

	// TrackingIDs are the raw usage idempotency keys consumed by a USAGE item
	TrackingIDs []string `json:"tracking_ids,omitempty"`

	// Unrepairable is set by the payment collaborator when the item was
	// consumed by a payment that has no refund path; a diff requiring its
	// repair is an unrecoverable inconsistency
	Unrepairable bool `json:"unrepairable,omitempty"`

	types.BaseModel
}

// CoversDate reports whether the item's [start, end) range covers the given date
func (i *Item) CoversDate(d time.Time) bool {
	if i.EndDate == nil {
		return i.StartDate.Equal(d)
	}
	return !d.Before(i.StartDate) && d.Before(*i.EndDate)
}

// Overlaps reports whether two ranged items share at least one day
func (i *Item) Overlaps(other *Item) bool {
	if i.EndDate == nil || other.EndDate == nil {
		return false
	}
	return i.StartDate.Before(*other.EndDate) && other.StartDate.Before(*i.EndDate)
}

// PeriodEnd returns the end of the item's range, or its start for point items
func (i *Item) PeriodEnd() time.Time {
	if i.EndDate != nil {
		return *i.EndDate
	}
	return i.StartDate
}

func (i *Item) Validate() error {
	if err := i.Type.Validate(); err != nil {
		return err
	}
	if i.StartDate.IsZero() {
		return NewValidationError("start_date", "must be set")
	}
	if i.EndDate != nil && !i.EndDate.After(i.StartDate) {
		return NewValidationError("end_date", "must be after start_date")
	}
	if i.Type.IsCharge() && i.Amount.IsNegative() {
		return NewValidationError("amount", "charges must be non-negative")
	}
	if i.Type == types.InvoiceItemRepairAdj {
		if i.LinkedItemID == nil {
			return NewValidationError("linked_item_id", "repair adjustments must link the repaired item")
		}
		if i.Amount.IsPositive() {
			return NewValidationError("amount", "repair adjustments must be non-positive")
		}
	}
	if i.Type == types.InvoiceItemUsage && len(i.TrackingIDs) == 0 {
		return NewValidationError("tracking_ids", "usage items must carry tracking ids")
	}
	return nil
}
