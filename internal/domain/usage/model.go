package usage

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// RawUsageRecord is one metered consumption fact recorded by the usage
// collaborator. The tracking ID is the idempotency key: reprocessing the same
// tracking ID must never double-count.
type RawUsageRecord struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	UnitType       string          `json:"unit_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	RecordDate     time.Time       `json:"record_date"`
	TrackingID     string          `json:"tracking_id"`
}

func (r *RawUsageRecord) Validate() error {
	if r.SubscriptionID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Usage records must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if r.TrackingID == "" {
		return ierr.NewError("tracking id is required").
			WithHint("Usage records must carry an idempotency tracking id").
			Mark(ierr.ErrValidation)
	}
	if r.UnitType == "" {
		return ierr.NewError("unit type is required").
			WithHint("Usage records must carry a unit type").
			Mark(ierr.ErrValidation)
	}
	if r.Quantity.IsNegative() {
		return ierr.NewError("quantity must be non-negative").
			WithHintf("got %s for tracking id %s", r.Quantity, r.TrackingID).
			Mark(ierr.ErrValidation)
	}
	return nil
}
