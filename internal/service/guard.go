package service

import (
	"context"
	"time"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// GenerateInvoiceRequest triggers one reconciliation pass for an account
type GenerateInvoiceRequest struct {
	AccountID  string    `json:"account_id" validate:"required"`
	TargetDate time.Time `json:"target_date" validate:"required"`
	// DryRun computes the full diff without persisting anything or emitting
	// any signal
	DryRun bool `json:"dry_run"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if r.AccountID == "" {
		return ierr.NewError("account id is required").
			WithHint("Please provide the account to invoice").
			Mark(ierr.ErrValidation)
	}
	if r.TargetDate.IsZero() {
		return ierr.NewError("target date is required").
			WithHint("Please provide the reconciliation target date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GenerateInvoiceResult is the outcome of one reconciliation pass. Invoice is
// nil when the ledger already matched the recomputed charges.
type GenerateInvoiceResult struct {
	Invoice *invoice.Invoice `json:"invoice,omitempty"`
	// NextNotificationDates lists, per subscription, the earliest future date
	// at which another charge becomes billable
	NextNotificationDates map[string]time.Time `json:"next_notification_dates,omitempty"`
}

// InvoicingService is the entry point of the reconciliation core. It owns the
// account-level guards: parked accounts and accounts with auto-invoicing off
// never get new invoices, and an unrecoverable inconsistency parks the
// account before the error surfaces.
type InvoicingService interface {
	GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GenerateInvoiceResult, error)

	// Park suspends invoicing for an account
	Park(ctx context.Context, accountID string) error

	// Unpark lifts a parked marker after the inconsistency has been resolved
	// out of band
	Unpark(ctx context.Context, accountID string) error
}

type invoicingService struct {
	ServiceParams
	chargeService    ChargeService
	usageService     UsageService
	reconcileService ReconcileService
	assembler        InvoiceAssemblerService
}

func NewInvoicingService(params ServiceParams) InvoicingService {
	return &invoicingService{
		ServiceParams:    params,
		chargeService:    NewChargeService(params),
		usageService:     NewUsageService(params),
		reconcileService: NewReconcileService(params),
		assembler:        NewInvoiceAssemblerService(params),
	}
}

func (s *invoicingService) GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GenerateInvoiceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := types.ValidateTenantContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("invoicing requires a tenant context").
			Mark(ierr.ErrValidation)
	}

	acct, err := s.AccountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if acct.IsParked() && !req.DryRun {
		return nil, ierr.NewError("account is parked").
			WithHintf("account %s was parked at %s after an unrecoverable inconsistency",
				acct.ID, acct.ParkedAt.Format(time.RFC3339)).
			Mark(ierr.ErrAccountParked)
	}
	if acct.HasTag(types.AccountTagAutoInvoicingOff) && !req.DryRun {
		s.Logger.Infow("skipping invoice generation, auto invoicing is off",
			"account_id", acct.ID)
		return &GenerateInvoiceResult{}, nil
	}

	timeline, err := s.EventRepo.GetTimeline(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if timeline.IsEmpty() {
		s.Logger.Debugw("no billing events for account", "account_id", acct.ID)
		return &GenerateInvoiceResult{}, nil
	}

	chargedThrough, err := s.chargedThroughDates(ctx, acct)
	if err != nil {
		return nil, err
	}
	targetDate := req.TargetDate

	charges, err := s.chargeService.GenerateCharges(ctx, acct, timeline, targetDate, chargedThrough)
	if err != nil {
		return nil, err
	}

	persisted, err := s.InvoiceRepo.ListByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	usageItems, err := s.usageService.GenerateUsageCharges(ctx, acct, timeline, targetDate, billedTrackingIDs(persisted))
	if err != nil {
		return nil, err
	}
	proposed := append(charges.Items, usageItems...)

	diff, err := s.reconcileService.Reconcile(ctx, acct, proposed, persisted, targetDate)
	if err != nil {
		if ierr.IsDoubleBilling(err) && !req.DryRun {
			return nil, s.parkOnInconsistency(ctx, acct.ID, err)
		}
		return nil, err
	}

	inv, err := s.assembler.Assemble(ctx, acct, diff, targetDate, req.DryRun)
	if err != nil {
		return nil, err
	}

	return &GenerateInvoiceResult{
		Invoice:               inv,
		NextNotificationDates: charges.NextNotificationDates,
	}, nil
}

func (s *invoicingService) Park(ctx context.Context, accountID string) error {
	if err := s.AccountRepo.Park(ctx, accountID, time.Now().UTC()); err != nil {
		return err
	}
	s.Logger.Warnw("parked account", "account_id", accountID)
	return nil
}

func (s *invoicingService) Unpark(ctx context.Context, accountID string) error {
	if err := s.AccountRepo.Unpark(ctx, accountID); err != nil {
		return err
	}
	s.Logger.Infow("unparked account", "account_id", accountID)
	return nil
}

// chargedThroughDates collects the per-subscription charged-through dates,
// normalized to account-timezone midnights. Periods covered by them must stay
// in the proposal even when the requested target date trails them, otherwise
// a pass with an early target would repair perfectly valid charges.
func (s *invoicingService) chargedThroughDates(ctx context.Context, acct *account.Account) (map[string]time.Time, error) {
	subs, err := s.SubscriptionRepo.ListByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	loc, err := acct.Location(s.Config.Billing.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	chargedThrough := map[string]time.Time{}
	for _, sub := range subs {
		if sub.ChargedThroughDate != nil {
			chargedThrough[sub.ID] = types.ToDate(*sub.ChargedThroughDate, loc)
		}
	}
	return chargedThrough, nil
}

// parkOnInconsistency parks the account and surfaces the original failure
func (s *invoicingService) parkOnInconsistency(ctx context.Context, accountID string, cause error) error {
	s.Logger.Errorw("unrecoverable reconciliation inconsistency, parking account",
		"account_id", accountID, "error", cause)
	if parkErr := s.AccountRepo.Park(ctx, accountID, time.Now().UTC()); parkErr != nil {
		s.Logger.Errorw("failed to park account", "account_id", accountID, "error", parkErr)
	}
	return cause
}

// billedTrackingIDs collects every usage tracking id already persisted on a
// non-void invoice of the account.
func billedTrackingIDs(invoices []*invoice.Invoice) map[string]bool {
	billed := map[string]bool{}
	for _, inv := range invoices {
		if inv.Status == types.InvoiceStatusVoid {
			continue
		}
		for _, item := range inv.Items {
			for _, id := range item.TrackingIDs {
				billed[id] = true
			}
		}
	}
	return billed
}
