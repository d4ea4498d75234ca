package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// InvoiceAssemblerService turns a reconciliation diff into a persisted
// invoice and owns the invoice lifecycle transitions.
type InvoiceAssemblerService interface {
	// Assemble attaches the diff to an invoice: an open draft covering
	// overlapping dates when the account carries both the draft and reuse
	// tags, a fresh one otherwise. Unless the account is tagged for draft
	// invoicing the invoice is committed in the same pass.
	// In dry-run mode nothing is persisted and no signal is emitted; the
	// returned invoice is the would-be result. A nil invoice means the diff
	// was empty and nothing needed to happen.
	Assemble(ctx context.Context, acct *account.Account, result *ReconcileResult, targetDate time.Time, dryRun bool) (*invoice.Invoice, error)

	// Commit finalizes a draft invoice: applies available account credit,
	// assigns the invoice number, advances charged-through dates and emits
	// the invoice-created signal.
	Commit(ctx context.Context, acct *account.Account, invoiceID string) (*invoice.Invoice, error)

	// Void cancels a committed invoice unless a payment has been applied or
	// one of its items is the repair target of another invoice.
	Void(ctx context.Context, acct *account.Account, invoiceID string) (*invoice.Invoice, error)
}

type invoiceAssemblerService struct {
	ServiceParams
}

func NewInvoiceAssemblerService(params ServiceParams) InvoiceAssemblerService {
	return &invoiceAssemblerService{ServiceParams: params}
}

func (s *invoiceAssemblerService) Assemble(ctx context.Context, acct *account.Account, result *ReconcileResult, targetDate time.Time, dryRun bool) (*invoice.Invoice, error) {
	if result == nil || result.IsEmpty() {
		return nil, nil
	}

	var inv *invoice.Invoice
	created := false
	if acct.HasTag(types.AccountTagDraftInvoicing) && acct.HasTag(types.AccountTagReuseDraft) {
		draft, err := s.InvoiceRepo.GetOpenDraft(ctx, acct.ID)
		switch {
		case err == nil:
			if draftOverlaps(draft, result, targetDate) {
				inv = draft
			}
		case invoice.IsNotFoundError(err):
		default:
			return nil, err
		}
	}
	if inv == nil {
		inv = &invoice.Invoice{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			AccountID:   acct.ID,
			Status:      types.InvoiceStatusDraft,
			Currency:    acct.Currency,
			InvoiceDate: targetDate,
			TargetDate:  targetDate,
			AmountPaid:  decimal.Zero,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
		created = true
	}

	for _, item := range result.AllItems() {
		item.InvoiceID = inv.ID
		inv.Items = append(inv.Items, item)
	}
	if targetDate.After(inv.TargetDate) {
		inv.TargetDate = targetDate
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if dryRun {
		return inv, nil
	}

	if created {
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return nil, err
		}
	} else {
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("assembled invoice",
		"invoice_id", inv.ID,
		"account_id", acct.ID,
		"items", len(inv.Items),
		"reused_draft", !created)

	if acct.HasTag(types.AccountTagDraftInvoicing) {
		return inv, nil
	}
	return s.commit(ctx, acct, inv)
}

func (s *invoiceAssemblerService) Commit(ctx context.Context, acct *account.Account, invoiceID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, acct, inv)
}

func (s *invoiceAssemblerService) commit(ctx context.Context, acct *account.Account, inv *invoice.Invoice) (*invoice.Invoice, error) {
	if inv.Status != types.InvoiceStatusDraft {
		return nil, ierr.NewError("only draft invoices can be committed").
			WithHintf("invoice %s is %s", inv.ID, inv.Status).
			Mark(ierr.ErrInvalidOperation)
	}

	pool, err := s.creditPool(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	applied := pool
	if owed := inv.Total(); applied.GreaterThan(owed) {
		applied = owed
	}
	if chargeTotal := inv.ChargeTotal(); applied.GreaterThan(chargeTotal) {
		applied = chargeTotal
	}
	if applied.IsPositive() {
		inv.Items = append(inv.Items, &invoice.Item{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID: inv.ID,
			Type:      types.InvoiceItemCBAAdj,
			StartDate: inv.TargetDate,
			Amount:    applied.Neg(),
			BaseModel: types.GetDefaultBaseModel(ctx),
		})
	}

	now := time.Now().UTC()
	inv.Status = types.InvoiceStatusCommitted
	inv.CommittedAt = &now
	if inv.InvoiceNumber == nil {
		number := types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE)
		inv.InvoiceNumber = &number
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.advanceChargedThrough(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("committed invoice",
		"invoice_id", inv.ID,
		"invoice_number", *inv.InvoiceNumber,
		"account_id", acct.ID,
		"total", inv.Total(),
		"credit_applied", applied)

	if s.Notifier != nil {
		event := &InvoiceCreatedEvent{
			InvoiceID:  inv.ID,
			AccountID:  acct.ID,
			Balance:    inv.Balance(),
			TargetDate: inv.TargetDate,
		}
		if err := s.Notifier.InvoiceCreated(ctx, event); err != nil {
			// the invoice is already committed; delivery failures must not
			// fail the pass
			s.Logger.Errorw("failed to deliver invoice created signal",
				"invoice_id", inv.ID, "error", err)
		}
	}
	return inv, nil
}

func (s *invoiceAssemblerService) Void(ctx context.Context, acct *account.Account, invoiceID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == types.InvoiceStatusVoid {
		return nil, ierr.WithError(invoice.ErrInvoiceAlreadyVoided).
			WithHintf("invoice %s is already void", inv.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	if inv.Status != types.InvoiceStatusCommitted {
		return nil, ierr.NewError("only committed invoices can be voided").
			WithHintf("invoice %s is %s", inv.ID, inv.Status).
			Mark(ierr.ErrInvalidOperation)
	}
	if inv.AmountPaid.IsPositive() {
		return nil, ierr.NewError("invoice has payments applied").
			WithHintf("invoice %s has %s paid", inv.ID, inv.AmountPaid).
			WithReportableDetails(map[string]any{
				"reason": types.VoidBlockReasonPaymentApplied,
			}).
			Mark(ierr.ErrVoidBlocked)
	}

	itemIDs := inv.ItemIDs()
	invoices, err := s.InvoiceRepo.ListByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	for _, other := range invoices {
		if other.ID == inv.ID || other.Status == types.InvoiceStatusVoid {
			continue
		}
		for _, item := range other.Items {
			if item.Type != types.InvoiceItemRepairAdj || item.LinkedItemID == nil {
				continue
			}
			if _, ok := itemIDs[*item.LinkedItemID]; ok {
				return nil, ierr.NewError("invoice items are repair targets").
					WithHintf("item %s is repaired by invoice %s; void that invoice first", *item.LinkedItemID, other.ID).
					WithReportableDetails(map[string]any{
						"reason":            types.VoidBlockReasonRepairTarget,
						"dependent_invoice": other.ID,
					}).
					Mark(ierr.ErrVoidBlocked)
			}
		}
	}

	now := time.Now().UTC()
	inv.Status = types.InvoiceStatusVoid
	inv.VoidedAt = &now
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("voided invoice", "invoice_id", inv.ID, "account_id", acct.ID)
	return inv, nil
}

// draftOverlaps reports whether the open draft and the new diff cover
// overlapping date spans. A draft left over from a much earlier target must
// not absorb unrelated later charges.
func draftOverlaps(draft *invoice.Invoice, result *ReconcileResult, targetDate time.Time) bool {
	draftStart, draftEnd := coverage(draft.Items, draft.TargetDate)
	newStart, newEnd := coverage(result.AllItems(), targetDate)
	return !draftStart.After(newEnd) && !newStart.After(draftEnd)
}

// coverage returns the date span touched by the items, extended to the target date
func coverage(items []*invoice.Item, targetDate time.Time) (time.Time, time.Time) {
	start, end := targetDate, targetDate
	for _, item := range items {
		if item.StartDate.Before(start) {
			start = item.StartDate
		}
		if pe := item.PeriodEnd(); pe.After(end) {
			end = pe
		}
	}
	return start, end
}

// creditPool sums every CBA_ADJ item across the account's non-void invoices:
// positive entries fund the pool, negative entries record prior consumption.
func (s *invoiceAssemblerService) creditPool(ctx context.Context, accountID string) (decimal.Decimal, error) {
	invoices, err := s.InvoiceRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	pool := decimal.Zero
	for _, inv := range invoices {
		if inv.Status == types.InvoiceStatusVoid {
			continue
		}
		for _, item := range inv.Items {
			if item.Type == types.InvoiceItemCBAAdj {
				pool = pool.Add(item.Amount)
			}
		}
	}
	if pool.IsNegative() {
		pool = decimal.Zero
	}
	return pool, nil
}

// advanceChargedThrough moves each subscription's charged-through date to the
// latest period end covered by a committed fixed or recurring item.
func (s *invoiceAssemblerService) advanceChargedThrough(ctx context.Context, inv *invoice.Invoice) error {
	latest := map[string]time.Time{}
	for _, item := range inv.Items {
		if !item.Type.IsRepairable() || item.SubscriptionID == nil {
			continue
		}
		end := item.PeriodEnd()
		if current, ok := latest[*item.SubscriptionID]; !ok || end.After(current) {
			latest[*item.SubscriptionID] = end
		}
	}
	for subID, through := range latest {
		if err := s.SubscriptionRepo.UpdateChargedThrough(ctx, subID, through); err != nil {
			return err
		}
	}
	return nil
}
