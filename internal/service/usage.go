package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/billingevent"
	"github.com/reinvoice/reinvoice/internal/domain/catalog"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// UsageService turns raw usage records into proposed USAGE items. Usage is
// billed strictly in arrear and is additive: a record whose tracking id was
// already billed is never billed again, and an already-billed usage item is
// never negated when its records fall out of the read window.
type UsageService interface {
	// GenerateUsageCharges aggregates unbilled raw usage into period-aligned
	// items. billedTrackingIDs holds every tracking id already present on a
	// persisted usage item of the account.
	GenerateUsageCharges(ctx context.Context, acct *account.Account, timeline *billingevent.Timeline, targetDate time.Time, billedTrackingIDs map[string]bool) ([]*ProposedItem, error)
}

type usageService struct {
	ServiceParams
	catalogService CatalogService
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{
		ServiceParams:  params,
		catalogService: NewCatalogService(params),
	}
}

// usageBucket accumulates the records of one (subscription, period, catalog
// version) cell before pricing.
type usageBucket struct {
	event      *billingevent.BillingEvent
	phase      *catalog.Phase
	start, end time.Time
	quantities map[string]decimal.Decimal
	tracking   []string
}

func (s *usageService) GenerateUsageCharges(ctx context.Context, acct *account.Account, timeline *billingevent.Timeline, targetDate time.Time, billedTrackingIDs map[string]bool) ([]*ProposedItem, error) {
	loc, err := acct.Location(s.Config.Billing.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	target := types.ToDate(targetDate, loc)

	var items []*ProposedItem
	seen := map[string]bool{}
	for _, subID := range timeline.SubscriptionIDs() {
		subItems, err := s.subscriptionUsage(ctx, acct, subID, timeline.ForSubscription(subID), target, loc, billedTrackingIDs, seen)
		if err != nil {
			return nil, err
		}
		items = append(items, subItems...)
	}
	return items, nil
}

func (s *usageService) subscriptionUsage(ctx context.Context, acct *account.Account, subID string, events []*billingevent.BillingEvent, target time.Time, loc *time.Location, billed, seen map[string]bool) ([]*ProposedItem, error) {
	if len(events) == 0 {
		return nil, nil
	}

	windowStart := rawUsageWindowStart(target, usagePeriod(events), s.Config.Billing.MaxRawUsagePreviousPeriods)
	records, err := s.UsageRepo.GetRawUsage(ctx, subID, windowStart, target)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	buckets := map[string]*usageBucket{}
	var order []string
	for _, record := range records {
		if billed[record.TrackingID] || seen[record.TrackingID] {
			continue
		}
		if err := record.Validate(); err != nil {
			return nil, err
		}

		recordDate := types.ToDate(record.RecordDate, loc)
		ev, segEnd := segmentAt(events, recordDate, loc)
		if ev == nil {
			s.Logger.Debugw("dropping usage record outside any billable segment",
				"subscription_id", subID, "tracking_id", record.TrackingID,
				"record_date", recordDate.Format(time.DateOnly))
			continue
		}

		phase, err := s.resolvePhase(ctx, ev, recordDate, events[0].EffectiveDate)
		if err != nil {
			return nil, err
		}
		if phase.Rate(record.UnitType) == nil {
			s.Logger.Debugw("dropping usage record for unit type the phase does not bill",
				"subscription_id", subID, "tracking_id", record.TrackingID,
				"unit_type", record.UnitType, "phase", ev.PhaseName)
			continue
		}

		start, end := usagePeriodBounds(acct, ev, segEnd, recordDate, loc)
		// usage bills in arrear: the period must have closed by the target date
		if end.After(target) {
			continue
		}

		key := subID + "|" + start.Format(time.DateOnly) + "|" + end.Format(time.DateOnly) + "|" + ev.CatalogVersionID
		bucket, ok := buckets[key]
		if !ok {
			bucket = &usageBucket{
				event:      ev,
				phase:      phase,
				start:      start,
				end:        end,
				quantities: map[string]decimal.Decimal{},
			}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.quantities[record.UnitType] = bucket.quantities[record.UnitType].Add(record.Quantity)
		bucket.tracking = append(bucket.tracking, record.TrackingID)
		seen[record.TrackingID] = true
	}

	var items []*ProposedItem
	for _, key := range order {
		bucket := buckets[key]

		unitTypes := make([]string, 0, len(bucket.quantities))
		for unitType := range bucket.quantities {
			unitTypes = append(unitTypes, unitType)
		}
		sort.Strings(unitTypes)

		amount := decimal.Zero
		for _, unitType := range unitTypes {
			rate := bucket.phase.Rate(unitType)
			amount = amount.Add(rate.Price(bucket.quantities[unitType]))
		}
		sort.Strings(bucket.tracking)

		end := bucket.end
		items = append(items, &ProposedItem{
			Type:                 types.InvoiceItemUsage,
			SubscriptionID:       subID,
			StartDate:            bucket.start,
			EndDate:              &end,
			Amount:               amount.Round(2),
			PlanName:             bucket.event.PlanName,
			PhaseName:            bucket.event.PhaseName,
			CatalogVersionID:     bucket.event.CatalogVersionID,
			CatalogEffectiveDate: bucket.event.CatalogEffectiveDate,
			TrackingIDs:          bucket.tracking,
		})
	}
	return items, nil
}

func (s *usageService) resolvePhase(ctx context.Context, ev *billingevent.BillingEvent, asOf, subscriptionStart time.Time) (*catalog.Phase, error) {
	var version *catalog.CatalogVersion
	var err error
	if ev.CatalogVersionID != "" {
		version, err = s.catalogService.GetVersion(ctx, ev.CatalogVersionID)
	} else {
		version, err = s.catalogService.ResolveVersion(ctx, asOf, subscriptionStart)
	}
	if err != nil {
		return nil, err
	}
	phase, err := version.ResolvePhase(ev.PlanName, ev.PhaseName)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("billing event %s references plan %s phase %s", ev.ID, ev.PlanName, ev.PhaseName).
			Mark(ierr.ErrValidation)
	}
	return phase, nil
}

// segmentAt finds the billing event in force at the given date and the end of
// its segment (nil when open-ended). Billing-stop events open no segment, so
// usage recorded during a pause or after a cancel finds none.
func segmentAt(events []*billingevent.BillingEvent, date time.Time, loc *time.Location) (*billingevent.BillingEvent, *time.Time) {
	for i := len(events) - 1; i >= 0; i-- {
		start := types.ToDate(events[i].EffectiveDate, loc)
		if start.After(date) {
			continue
		}
		if events[i].Kind.IsBillingStop() {
			return nil, nil
		}
		var segEnd *time.Time
		if i+1 < len(events) {
			e := types.ToDate(events[i+1].EffectiveDate, loc)
			segEnd = &e
		}
		return events[i], segEnd
	}
	return nil, nil
}

// usagePeriodBounds returns the boundary-aligned period containing a usage
// record, clipped to the segment so a mid-period plan change splits usage at
// the change date.
func usagePeriodBounds(acct *account.Account, ev *billingevent.BillingEvent, segEnd *time.Time, recordDate time.Time, loc *time.Location) (time.Time, time.Time) {
	bcd := ev.BillCycleDay
	if bcd == 0 {
		bcd = acct.BillCycleDay
	}
	segStart := types.ToDate(ev.EffectiveDate, loc)
	if bcd == 0 {
		bcd = segStart.Day()
	}
	period := ev.BillingPeriod
	if period == "" {
		period = types.BILLING_PERIOD_MONTHLY
	}

	start := types.PrevBoundary(recordDate, segStart, bcd, period, loc)
	if start.Before(segStart) {
		start = segStart
	}
	end := types.NextBoundary(recordDate, segStart, bcd, period, loc)
	if segEnd != nil && segEnd.Before(end) {
		end = *segEnd
	}
	return start, end
}

// usagePeriod picks the billing period that sizes the raw usage read window:
// the period of the last event that declares one.
func usagePeriod(events []*billingevent.BillingEvent) types.BillingPeriod {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].BillingPeriod != "" {
			return events[i].BillingPeriod
		}
	}
	return types.BILLING_PERIOD_MONTHLY
}

func rawUsageWindowStart(target time.Time, period types.BillingPeriod, previousPeriods int) time.Time {
	switch period {
	case types.BILLING_PERIOD_DAILY:
		return target.AddDate(0, 0, -previousPeriods)
	case types.BILLING_PERIOD_WEEKLY:
		return target.AddDate(0, 0, -7*previousPeriods)
	case types.BILLING_PERIOD_ANNUAL:
		return types.AddClampedDate(target, -previousPeriods, 0)
	default:
		return types.AddClampedDate(target, 0, -previousPeriods)
	}
}
