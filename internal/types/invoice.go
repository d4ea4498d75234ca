package types

import (
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates the invoice is still open and its items can
	// be amended by further reconciliation passes
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusCommitted indicates the invoice is immutable and eligible
	// for payment and credit consumption
	InvoiceStatusCommitted InvoiceStatus = "COMMITTED"
	// InvoiceStatusVoid indicates the invoice has been voided; terminal state
	// reachable only from COMMITTED
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusCommitted,
		InvoiceStatusVoid,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceItemType categorizes a persisted invoice line item
type InvoiceItemType string

const (
	// InvoiceItemFixed is a one-time charge raised at a phase start
	InvoiceItemFixed InvoiceItemType = "FIXED"
	// InvoiceItemRecurring is a per-billing-period charge, possibly prorated
	InvoiceItemRecurring InvoiceItemType = "RECURRING"
	// InvoiceItemUsage is a metered charge for a billing period
	InvoiceItemUsage InvoiceItemType = "USAGE"
	// InvoiceItemRepairAdj is the exact negation of a previously billed item
	// that is no longer valid under the current billing facts
	InvoiceItemRepairAdj InvoiceItemType = "REPAIR_ADJ"
	// InvoiceItemItemAdj is a manual adjustment against a specific item
	InvoiceItemItemAdj InvoiceItemType = "ITEM_ADJ"
	// InvoiceItemCBAAdj moves money in or out of the account credit pool
	InvoiceItemCBAAdj InvoiceItemType = "CBA_ADJ"
	// InvoiceItemCreditAdj is an account-level credit applied to an invoice
	InvoiceItemCreditAdj InvoiceItemType = "CREDIT_ADJ"
	// InvoiceItemExternalCharge is a charge injected by an external collaborator
	InvoiceItemExternalCharge InvoiceItemType = "EXTERNAL_CHARGE"
)

func (t InvoiceItemType) String() string {
	return string(t)
}

func (t InvoiceItemType) Validate() error {
	allowed := []InvoiceItemType{
		InvoiceItemFixed,
		InvoiceItemRecurring,
		InvoiceItemUsage,
		InvoiceItemRepairAdj,
		InvoiceItemItemAdj,
		InvoiceItemCBAAdj,
		InvoiceItemCreditAdj,
		InvoiceItemExternalCharge,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice item type").
			WithHint("Please provide a valid invoice item type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCharge reports whether the item type is a native charge produced by the
// proration calculator or usage aggregator, as opposed to an adjustment.
func (t InvoiceItemType) IsCharge() bool {
	return t == InvoiceItemFixed ||
		t == InvoiceItemRecurring ||
		t == InvoiceItemUsage ||
		t == InvoiceItemExternalCharge
}

// IsRepairable reports whether items of this type participate in the
// repair diff. Usage items are additive and never repaired by absence.
func (t InvoiceItemType) IsRepairable() bool {
	return t == InvoiceItemFixed || t == InvoiceItemRecurring
}

// VoidBlockReason is the machine-readable reason a void request was rejected
type VoidBlockReason string

const (
	// VoidBlockReasonPaymentApplied means the invoice balance has been reduced
	// by a successful payment
	VoidBlockReasonPaymentApplied VoidBlockReason = "payment_applied"
	// VoidBlockReasonRepairTarget means an item on the invoice is the repair
	// target of an item on another invoice; dependents must be voided first
	VoidBlockReasonRepairTarget VoidBlockReason = "repair_target"
)

func (r VoidBlockReason) String() string {
	return string(r)
}
