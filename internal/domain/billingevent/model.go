package billingevent

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// BillingEvent is one subscription lifecycle transition with its billing facts
// already resolved against the catalog: plan, phase, prices (including any
// overrides) and the catalog version that priced them. Events are produced by
// the external subscription collaborator and are append-only; a reconciliation
// pass consumes them without mutation.
type BillingEvent struct {
	ID             string               `json:"id"`
	SubscriptionID string               `json:"subscription_id"`
	EffectiveDate  time.Time            `json:"effective_date"`
	Kind           types.TransitionKind `json:"kind"`

	PlanName  string `json:"plan_name,omitempty"`
	PhaseName string `json:"phase_name,omitempty"`

	BillingPeriod types.BillingPeriod  `json:"billing_period,omitempty"`
	Cadence       types.InvoiceCadence `json:"cadence,omitempty"`
	// BillCycleDay anchors recurring boundaries; zero means "use account BCD"
	BillCycleDay int `json:"bill_cycle_day,omitempty"`

	// FixedPrice is charged once at the event date when set (even when zero)
	FixedPrice *decimal.Decimal `json:"fixed_price,omitempty"`
	// RecurringPrice is charged per billing period when set (even when zero)
	RecurringPrice *decimal.Decimal `json:"recurring_price,omitempty"`

	CatalogVersionID     string    `json:"catalog_version_id,omitempty"`
	CatalogEffectiveDate time.Time `json:"catalog_effective_date,omitempty"`
}

func (e *BillingEvent) Validate() error {
	if e.SubscriptionID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Billing events must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if e.EffectiveDate.IsZero() {
		return ierr.NewError("effective date is required").
			WithHint("Billing events must carry an effective date").
			Mark(ierr.ErrValidation)
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if e.RecurringPrice != nil {
		if err := e.BillingPeriod.Validate(); err != nil {
			return err
		}
		if err := e.Cadence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Timeline is the time-ordered view of an account's billing events. Ordering
// is per subscription by effective date, with the transition kind priority
// breaking ties so a CANCEL sorts after the transition it terminates.
type Timeline struct {
	events []*BillingEvent
}

// NewTimeline sorts the given events into a timeline. The input slice is not mutated.
func NewTimeline(events []*BillingEvent) *Timeline {
	sorted := make([]*BillingEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.EffectiveDate.Equal(b.EffectiveDate) {
			return a.EffectiveDate.Before(b.EffectiveDate)
		}
		return a.Kind.Priority() < b.Kind.Priority()
	})
	return &Timeline{events: sorted}
}

func (t *Timeline) IsEmpty() bool {
	return len(t.events) == 0
}

// Events returns all events in timeline order
func (t *Timeline) Events() []*BillingEvent {
	return t.events
}

// SubscriptionIDs returns the distinct subscription ids in first-seen order
func (t *Timeline) SubscriptionIDs() []string {
	return lo.Uniq(lo.Map(t.events, func(e *BillingEvent, _ int) string {
		return e.SubscriptionID
	}))
}

// ForSubscription returns the ordered events of one subscription
func (t *Timeline) ForSubscription(subscriptionID string) []*BillingEvent {
	return lo.Filter(t.events, func(e *BillingEvent, _ int) bool {
		return e.SubscriptionID == subscriptionID
	})
}

// Validate checks per-subscription consistency: the first event of each
// subscription must be a CREATE (or TRANSFER target) and every event must be
// individually valid.
func (t *Timeline) Validate() error {
	seen := map[string]bool{}
	for _, e := range t.events {
		if err := e.Validate(); err != nil {
			return err
		}
		if !seen[e.SubscriptionID] {
			if e.Kind != types.TransitionCreate && e.Kind != types.TransitionTransfer {
				return ierr.NewError("timeline does not start with a creation event").
					WithHintf("subscription %s starts with %s", e.SubscriptionID, e.Kind).
					Mark(ierr.ErrValidation)
			}
			seen[e.SubscriptionID] = true
		}
	}
	return nil
}
