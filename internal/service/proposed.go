package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	"github.com/reinvoice/reinvoice/internal/types"
)

// ProposedItem is one charge the calculator believes should exist given the
// current billing facts. Proposed items are transient: they are recomputed
// from scratch on every pass and never persisted directly; only the
// reconciliation diff against persisted items reaches storage.
type ProposedItem struct {
	Type           types.InvoiceItemType
	SubscriptionID string

	StartDate time.Time
	// EndDate is nil for point items (FIXED)
	EndDate *time.Time

	Amount decimal.Decimal
	// Rate is the full-period price behind a prorated amount
	Rate *decimal.Decimal

	PlanName  string
	PhaseName string

	CatalogVersionID     string
	CatalogEffectiveDate time.Time

	// TrackingIDs carries the raw usage idempotency keys for USAGE items
	TrackingIDs []string
}

// ToInvoiceItem materializes the proposed item as a persistable line item.
// The invoice id is attached later by the assembler.
func (p *ProposedItem) ToInvoiceItem(base types.BaseModel) *invoice.Item {
	subID := p.SubscriptionID
	item := &invoice.Item{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		Type:                 p.Type,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		Amount:               p.Amount,
		Rate:                 p.Rate,
		PlanName:             p.PlanName,
		PhaseName:            p.PhaseName,
		CatalogVersionID:     p.CatalogVersionID,
		CatalogEffectiveDate: p.CatalogEffectiveDate,
		TrackingIDs:          p.TrackingIDs,
		BaseModel:            base,
	}
	if subID != "" {
		item.SubscriptionID = &subID
	}
	return item
}
