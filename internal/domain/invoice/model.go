package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/types"
)

// Invoice is the persisted ledger of charges produced by one or more
// reconciliation passes for an account.
type Invoice struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	InvoiceNumber *string `json:"invoice_number,omitempty"`

	Status   types.InvoiceStatus `json:"status"`
	Currency string              `json:"currency"`

	InvoiceDate time.Time `json:"invoice_date"`
	// TargetDate is the reconciliation target this invoice was generated for
	TargetDate time.Time `json:"target_date"`

	// AmountPaid is maintained by the external payment collaborator
	AmountPaid decimal.Decimal `json:"amount_paid"`

	CommittedAt *time.Time `json:"committed_at,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`

	Items    []*Item        `json:"items,omitempty"`
	Metadata types.Metadata `json:"metadata,omitempty"`
	types.BaseModel
}

// Total is the signed sum of all line items
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// ChargeTotal is the sum of native charge items only, excluding adjustments.
// Credit application on commit is capped at this value.
func (i *Invoice) ChargeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		if item.Type.IsCharge() {
			total = total.Add(item.Amount)
		}
	}
	return total
}

// Balance is the amount still owed: total minus payments received
func (i *Invoice) Balance() decimal.Decimal {
	return i.Total().Sub(i.AmountPaid)
}

// IsOpen reports whether the invoice can still absorb reconciliation output
func (i *Invoice) IsOpen() bool {
	return i.Status == types.InvoiceStatusDraft
}

// ItemIDs returns the set of item ids on this invoice
func (i *Invoice) ItemIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(i.Items))
	for _, item := range i.Items {
		ids[item.ID] = struct{}{}
	}
	return ids
}

func (i *Invoice) Validate() error {
	if err := i.Status.Validate(); err != nil {
		return err
	}
	if i.AccountID == "" {
		return NewValidationError("account_id", "must be set")
	}
	if i.Currency == "" {
		return NewValidationError("currency", "must be set")
	}
	if i.AmountPaid.IsNegative() {
		return NewValidationError("amount_paid", "must be non negative")
	}
	for _, item := range i.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
