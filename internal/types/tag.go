package types

import (
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/samber/lo"
)

// AccountTag drives invoicing behavior for an account. Tags are persisted by
// the external tag collaborator; this core only reads them.
type AccountTag string

const (
	// AccountTagDraftInvoicing keeps generated invoices in DRAFT instead of
	// committing them immediately
	AccountTagDraftInvoicing AccountTag = "DRAFT_INVOICING"
	// AccountTagReuseDraft appends new items into an open draft invoice with
	// an overlapping target date instead of opening a new one
	AccountTagReuseDraft AccountTag = "REUSE_DRAFT"
	// AccountTagAutoInvoicingOff suspends invoice generation; reconciliation
	// short-circuits to a no-op so dry-run computation remains possible
	AccountTagAutoInvoicingOff AccountTag = "AUTO_INVOICING_OFF"
	// AccountTagAutoPayOff disables automatic payment collection downstream
	AccountTagAutoPayOff AccountTag = "AUTO_PAY_OFF"
)

func (t AccountTag) String() string {
	return string(t)
}

func (t AccountTag) Validate() error {
	allowed := []AccountTag{
		AccountTagDraftInvoicing,
		AccountTagReuseDraft,
		AccountTagAutoInvoicingOff,
		AccountTagAutoPayOff,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid account tag").
			WithHint("Please provide a valid account tag").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
