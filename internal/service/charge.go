package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/billingevent"
	"github.com/reinvoice/reinvoice/internal/domain/proration"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// ChargeResult is the full recomputed charge picture of an account as of a
// target date, independent of anything already invoiced.
type ChargeResult struct {
	Items []*ProposedItem
	// NextNotificationDates maps each subscription to the earliest future date
	// at which a further charge becomes billable, when one exists
	NextNotificationDates map[string]time.Time
}

// ChargeService recomputes every fixed and recurring charge an account should
// have accrued by the target date. The computation always starts from the
// beginning of the timeline; bounding against already-invoiced items is the
// reconciler's job, not the generator's. chargedThrough carries the per
// subscription charged-through dates: a period already covered by one stays
// proposed even when the target date trails it, so re-running with an earlier
// target never manufactures repairs.
type ChargeService interface {
	GenerateCharges(ctx context.Context, acct *account.Account, timeline *billingevent.Timeline, targetDate time.Time, chargedThrough map[string]time.Time) (*ChargeResult, error)
}

type chargeService struct {
	ServiceParams
}

func NewChargeService(params ServiceParams) ChargeService {
	return &chargeService{ServiceParams: params}
}

func (s *chargeService) GenerateCharges(ctx context.Context, acct *account.Account, timeline *billingevent.Timeline, targetDate time.Time, chargedThrough map[string]time.Time) (*ChargeResult, error) {
	if err := timeline.Validate(); err != nil {
		return nil, err
	}

	loc, err := acct.Location(s.Config.Billing.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	target := types.ToDate(targetDate, loc)

	result := &ChargeResult{
		NextNotificationDates: map[string]time.Time{},
	}
	for _, subID := range timeline.SubscriptionIDs() {
		items, next, err := s.subscriptionCharges(ctx, acct, subID, timeline.ForSubscription(subID), target, chargedThrough[subID], loc)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, items...)
		if next != nil {
			result.NextNotificationDates[subID] = *next
		}
	}

	s.Logger.Debugw("recomputed proposed charges",
		"account_id", acct.ID,
		"target_date", target.Format(time.DateOnly),
		"items", len(result.Items))
	return result, nil
}

// subscriptionCharges walks the ordered events of one subscription pairwise:
// each event opens a segment that the next event closes. Fixed prices bill
// once at the segment start; recurring prices bill per boundary-aligned slice
// inside the segment.
func (s *chargeService) subscriptionCharges(ctx context.Context, acct *account.Account, subID string, events []*billingevent.BillingEvent, target, chargedThrough time.Time, loc *time.Location) ([]*ProposedItem, *time.Time, error) {
	var items []*ProposedItem
	var futureDates []time.Time

	for i, ev := range events {
		if ev.Kind.IsBillingStop() {
			continue
		}

		start := types.ToDate(ev.EffectiveDate, loc)
		var segEnd *time.Time
		if i+1 < len(events) {
			e := types.ToDate(events[i+1].EffectiveDate, loc)
			segEnd = &e
		}
		// a same-day successor supersedes this event entirely
		if segEnd != nil && !segEnd.After(start) {
			continue
		}

		if ev.FixedPrice != nil {
			if start.After(target) && !start.Before(chargedThrough) {
				futureDates = append(futureDates, start)
			} else {
				items = append(items, s.proposedFrom(ev, types.InvoiceItemFixed, start, nil, ev.FixedPrice.Round(2), nil))
			}
		}

		if ev.RecurringPrice == nil {
			continue
		}
		recurring, future, err := s.recurringSlices(ctx, acct, ev, start, segEnd, target, chargedThrough, loc)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, recurring...)
		futureDates = append(futureDates, future...)
	}

	var next *time.Time
	for _, d := range futureDates {
		if d.After(target) && (next == nil || d.Before(*next)) {
			d := d
			next = &d
		}
	}
	return items, next, nil
}

// recurringSlices generates the boundary-aligned recurring charges of one
// segment. A slice shorter than its natural period is prorated by calendar
// days; whether a truncated arrear slice bills at the truncation date or at
// the next natural boundary depends on the configured in-arrear mode.
func (s *chargeService) recurringSlices(ctx context.Context, acct *account.Account, ev *billingevent.BillingEvent, start time.Time, segEnd *time.Time, target, chargedThrough time.Time, loc *time.Location) ([]*ProposedItem, []time.Time, error) {
	bcd := ev.BillCycleDay
	if bcd == 0 {
		bcd = acct.BillCycleDay
	}
	if bcd == 0 {
		bcd = start.Day()
	}

	price := *ev.RecurringPrice
	period := ev.BillingPeriod
	greedy := s.Config.Billing.InArrearMode == types.InArrearModeGreedy

	var items []*ProposedItem
	var future []time.Time

	current := start
	for {
		natural := types.NextBoundary(current, start, bcd, period, loc)
		sliceEnd := natural
		truncated := false
		if segEnd != nil && segEnd.Before(natural) {
			sliceEnd = *segEnd
			truncated = true
		}
		if !sliceEnd.After(current) {
			break
		}

		var billable bool
		var billableAt time.Time
		switch ev.Cadence {
		case types.InvoiceCadenceAdvance:
			// a period starting before the charged-through date was already
			// billed in advance and must stay in the proposal
			billable = !current.After(target) || current.Before(chargedThrough)
			billableAt = current
		default: // ARREAR
			billableAt = sliceEnd
			if truncated && !greedy {
				billableAt = natural
			}
			billable = !billableAt.After(target) || !billableAt.After(chargedThrough)
		}

		if !billable {
			future = append(future, billableAt)
			break
		}

		periodStart := types.PrevBoundary(current, start, bcd, period, loc)
		amount := price
		if !periodStart.Equal(current) || !sliceEnd.Equal(natural) {
			coeff, err := s.ProrationCalculator.Coefficient(ctx, proration.CoefficientParams{
				PeriodStart: periodStart,
				PeriodEnd:   natural,
				SliceStart:  current,
				SliceEnd:    sliceEnd,
				Timezone:    loc.String(),
			})
			if err != nil {
				return nil, nil, ierr.WithError(err).
					WithHintf("failed to prorate %s slice for subscription %s", period, ev.SubscriptionID).
					Mark(ierr.ErrSystem)
			}
			amount = price.Mul(coeff)
		}

		end := sliceEnd
		items = append(items, s.proposedFrom(ev, types.InvoiceItemRecurring, current, &end, amount.Round(2), &price))

		if truncated || (segEnd != nil && !sliceEnd.Before(*segEnd)) {
			break
		}
		current = sliceEnd
	}

	return items, future, nil
}

func (s *chargeService) proposedFrom(ev *billingevent.BillingEvent, itemType types.InvoiceItemType, start time.Time, end *time.Time, amount decimal.Decimal, rate *decimal.Decimal) *ProposedItem {
	return &ProposedItem{
		Type:                 itemType,
		SubscriptionID:       ev.SubscriptionID,
		StartDate:            start,
		EndDate:              end,
		Amount:               amount,
		Rate:                 rate,
		PlanName:             ev.PlanName,
		PhaseName:            ev.PhaseName,
		CatalogVersionID:     ev.CatalogVersionID,
		CatalogEffectiveDate: ev.CatalogEffectiveDate,
	}
}
