package service

import (
	"context"
	"fmt"
	"time"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// ReconcileResult is the persistable diff of one reconciliation pass: charges
// that do not yet exist, plus repair/credit pairs for persisted charges the
// recomputation no longer supports. An empty result means the ledger already
// reflects the current billing facts.
type ReconcileResult struct {
	NewItems    []*invoice.Item
	RepairItems []*invoice.Item
}

func (r *ReconcileResult) IsEmpty() bool {
	return len(r.NewItems) == 0 && len(r.RepairItems) == 0
}

// AllItems returns new and repair items in deterministic order
func (r *ReconcileResult) AllItems() []*invoice.Item {
	items := make([]*invoice.Item, 0, len(r.NewItems)+len(r.RepairItems))
	items = append(items, r.NewItems...)
	items = append(items, r.RepairItems...)
	return items
}

// ReconcileService diffs the recomputed proposed charges against the persisted
// invoice ledger. Persisted items are never mutated: a charge that should not
// exist is cancelled by a REPAIR_ADJ of equal magnitude and opposite sign,
// paired with a CBA_ADJ that returns the money to the account credit pool.
type ReconcileService interface {
	Reconcile(ctx context.Context, acct *account.Account, proposed []*ProposedItem, persisted []*invoice.Invoice, targetDate time.Time) (*ReconcileResult, error)
}

type reconcileService struct {
	ServiceParams
}

func NewReconcileService(params ServiceParams) ReconcileService {
	return &reconcileService{ServiceParams: params}
}

func (s *reconcileService) Reconcile(ctx context.Context, acct *account.Account, proposed []*ProposedItem, persisted []*invoice.Invoice, targetDate time.Time) (*ReconcileResult, error) {
	loc, err := acct.Location(s.Config.Billing.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	target := types.ToDate(targetDate, loc)
	cutoff := target.AddDate(0, 0, -s.Config.Billing.LookbackDays)

	active := activeCharges(persisted)

	subsWithHistory := map[string]bool{}
	for _, item := range active {
		if item.SubscriptionID != nil {
			subsWithHistory[*item.SubscriptionID] = true
		}
	}

	// Persisted items whose period closed before the cutoff are trusted as
	// final and excluded from the diff entirely.
	unmatched := map[string][]*invoice.Item{}
	for _, item := range active {
		if item.PeriodEnd().Before(cutoff) {
			continue
		}
		key := persistedKey(item)
		unmatched[key] = append(unmatched[key], item)
	}

	base := types.GetDefaultBaseModel(ctx)
	result := &ReconcileResult{}
	var survivors []*invoice.Item

	for _, p := range proposed {
		// A proposed charge entirely behind the cutoff is suppressed unless the
		// subscription has never been billed at all, so a late first invoice
		// still goes out in full.
		if p.periodEnd().Before(cutoff) && subsWithHistory[p.SubscriptionID] {
			continue
		}

		key := proposedKey(p)
		if matches := unmatched[key]; len(matches) > 0 {
			survivors = append(survivors, matches[0])
			unmatched[key] = matches[1:]
			continue
		}
		item := p.ToInvoiceItem(base)
		if err := item.Validate(); err != nil {
			return nil, err
		}
		result.NewItems = append(result.NewItems, item)
		survivors = append(survivors, item)
	}

	for _, items := range unmatched {
		for _, item := range items {
			if !item.Type.IsRepairable() {
				// usage and external charges are additive; their absence from
				// the recomputation never triggers a repair
				continue
			}
			if item.Unrepairable {
				return nil, ierr.NewError("persisted item requires repair but cannot be repaired").
					WithHintf("item %s on invoice %s was consumed by a payment with no refund path", item.ID, item.InvoiceID).
					WithReportableDetails(map[string]any{
						"item_id":    item.ID,
						"invoice_id": item.InvoiceID,
					}).
					Mark(ierr.ErrDoubleBilling)
			}
			repair, credit := repairPair(item, target, base)
			result.RepairItems = append(result.RepairItems, repair, credit)
		}
	}

	if err := checkDoubleCoverage(survivors); err != nil {
		return nil, err
	}

	s.Logger.Debugw("reconciled proposed charges against ledger",
		"account_id", acct.ID,
		"new_items", len(result.NewItems),
		"repair_items", len(result.RepairItems))
	return result, nil
}

// activeCharges returns every charge item of non-void invoices that has not
// already been repaired.
func activeCharges(invoices []*invoice.Invoice) []*invoice.Item {
	repaired := map[string]bool{}
	for _, inv := range invoices {
		if inv.Status == types.InvoiceStatusVoid {
			continue
		}
		for _, item := range inv.Items {
			if item.Type == types.InvoiceItemRepairAdj && item.LinkedItemID != nil {
				repaired[*item.LinkedItemID] = true
			}
		}
	}

	var active []*invoice.Item
	for _, inv := range invoices {
		if inv.Status == types.InvoiceStatusVoid {
			continue
		}
		for _, item := range inv.Items {
			if item.Type.IsCharge() && !repaired[item.ID] {
				active = append(active, item)
			}
		}
	}
	return active
}

// repairPair builds the REPAIR_ADJ negating a stale charge and the CBA_ADJ
// crediting the same amount back to the account pool.
func repairPair(item *invoice.Item, target time.Time, base types.BaseModel) (*invoice.Item, *invoice.Item) {
	itemID := item.ID
	repair := &invoice.Item{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		SubscriptionID:       item.SubscriptionID,
		Type:                 types.InvoiceItemRepairAdj,
		StartDate:            item.StartDate,
		EndDate:              item.EndDate,
		Amount:               item.Amount.Neg(),
		PlanName:             item.PlanName,
		PhaseName:            item.PhaseName,
		CatalogVersionID:     item.CatalogVersionID,
		CatalogEffectiveDate: item.CatalogEffectiveDate,
		LinkedItemID:         &itemID,
		BaseModel:            base,
	}

	repairID := repair.ID
	credit := &invoice.Item{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		Type:         types.InvoiceItemCBAAdj,
		StartDate:    target,
		Amount:       item.Amount,
		LinkedItemID: &repairID,
		BaseModel:    base,
	}
	return repair, credit
}

// checkDoubleCoverage rejects a diff that would leave two live recurring
// charges of one subscription covering the same day.
func checkDoubleCoverage(items []*invoice.Item) error {
	bySub := map[string][]*invoice.Item{}
	for _, item := range items {
		if item.Type != types.InvoiceItemRecurring || item.SubscriptionID == nil {
			continue
		}
		bySub[*item.SubscriptionID] = append(bySub[*item.SubscriptionID], item)
	}

	for subID, subItems := range bySub {
		for i := 0; i < len(subItems); i++ {
			for j := i + 1; j < len(subItems); j++ {
				if subItems[i].Overlaps(subItems[j]) {
					return ierr.NewError("overlapping recurring charges").
						WithHintf("subscription %s would be billed twice between %s and %s",
							subID,
							subItems[j].StartDate.Format(time.DateOnly),
							subItems[i].PeriodEnd().Format(time.DateOnly)).
						Mark(ierr.ErrDoubleBilling)
				}
			}
		}
	}
	return nil
}

func (p *ProposedItem) periodEnd() time.Time {
	if p.EndDate != nil {
		return *p.EndDate
	}
	return p.StartDate
}

func proposedKey(p *ProposedItem) string {
	end := int64(0)
	if p.EndDate != nil {
		end = p.EndDate.Unix()
	}
	return matchKey(p.SubscriptionID, p.Type, p.StartDate.Unix(), end, p.Amount.Round(2).String(), p.CatalogVersionID)
}

func persistedKey(item *invoice.Item) string {
	sub := ""
	if item.SubscriptionID != nil {
		sub = *item.SubscriptionID
	}
	end := int64(0)
	if item.EndDate != nil {
		end = item.EndDate.Unix()
	}
	return matchKey(sub, item.Type, item.StartDate.Unix(), end, item.Amount.Round(2).String(), item.CatalogVersionID)
}

func matchKey(sub string, itemType types.InvoiceItemType, start, end int64, amount, versionID string) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s|%s", sub, itemType, start, end, amount, versionID)
}
