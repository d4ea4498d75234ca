package subscription

import (
	"time"

	"github.com/reinvoice/reinvoice/internal/types"
)

// Subscription is the thin view of a subscription this core needs: the state
// machine producing its lifecycle lives in an external collaborator, but the
// charged-through date is advanced here on invoice commit and gates the
// minimum target date of the next reconciliation.
type Subscription struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	StartDate time.Time `json:"start_date"`
	// BillCycleDay overrides the account-level BCD when non-zero
	BillCycleDay int `json:"bill_cycle_day,omitempty"`
	// ChargedThroughDate is the latest period end covered by a committed
	// RECURRING or FIXED item
	ChargedThroughDate *time.Time `json:"charged_through_date,omitempty"`
	types.BaseModel
}
