package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// PhaseType identifies the role of a plan phase in the subscription lifecycle
type PhaseType string

const (
	PhaseTypeTrial     PhaseType = "TRIAL"
	PhaseTypeDiscount  PhaseType = "DISCOUNT"
	PhaseTypeFixedTerm PhaseType = "FIXED_TERM"
	PhaseTypeEvergreen PhaseType = "EVERGREEN"
)

// PhaseDuration bounds a non-evergreen phase or a fixed-term plan
type PhaseDuration struct {
	Period types.BillingPeriod `json:"period"`
	Count  int                 `json:"count"`
}

// UsageTier prices a slab of consumed units. UpTo is the inclusive upper bound
// of cumulative quantity priced at UnitPrice; nil means unbounded.
type UsageTier struct {
	UpTo      *decimal.Decimal `json:"up_to,omitempty"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
}

// UsageRate prices one unit type with graduated (slab) tiers
type UsageRate struct {
	UnitType string       `json:"unit_type"`
	Tiers    []*UsageTier `json:"tiers"`
}

// Price computes the slab-priced amount for the given quantity: each tier
// prices the portion of the quantity falling inside its band.
func (r *UsageRate) Price(quantity decimal.Decimal) decimal.Decimal {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	total := decimal.Zero
	remaining := quantity
	previousBound := decimal.Zero
	for _, tier := range r.Tiers {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		band := remaining
		if tier.UpTo != nil {
			width := tier.UpTo.Sub(previousBound)
			if width.LessThanOrEqual(decimal.Zero) {
				continue
			}
			if band.GreaterThan(width) {
				band = width
			}
			previousBound = *tier.UpTo
		}
		total = total.Add(band.Mul(tier.UnitPrice))
		remaining = remaining.Sub(band)
	}
	return total
}

// Phase is one pricing phase of a plan
type Phase struct {
	Name     string         `json:"name"`
	Type     PhaseType      `json:"type"`
	Duration *PhaseDuration `json:"duration,omitempty"`

	BillingPeriod types.BillingPeriod  `json:"billing_period"`
	Cadence       types.InvoiceCadence `json:"cadence"`

	FixedPrice     *decimal.Decimal `json:"fixed_price,omitempty"`
	RecurringPrice *decimal.Decimal `json:"recurring_price,omitempty"`
	UsageRates     []*UsageRate     `json:"usage_rates,omitempty"`
}

// Rate returns the usage rate for a unit type, or nil when the phase does not
// bill that unit.
func (p *Phase) Rate(unitType string) *UsageRate {
	for _, r := range p.UsageRates {
		if r.UnitType == unitType {
			return r
		}
	}
	return nil
}

// Plan is a named set of ordered phases
type Plan struct {
	Name   string   `json:"name"`
	Phases []*Phase `json:"phases"`
}

func (p *Plan) Phase(name string) (*Phase, error) {
	for _, ph := range p.Phases {
		if ph.Name == name {
			return ph, nil
		}
	}
	return nil, ierr.NewError("phase not found").
		WithHintf("plan %s has no phase %s", p.Name, name).
		Mark(ierr.ErrNotFound)
}

// PriceOverride replaces phase prices for one (plan, phase) pair in a version
type PriceOverride struct {
	PlanName       string           `json:"plan_name"`
	PhaseName      string           `json:"phase_name"`
	FixedPrice     *decimal.Decimal `json:"fixed_price,omitempty"`
	RecurringPrice *decimal.Decimal `json:"recurring_price,omitempty"`
}

// CatalogVersion is one immutable published revision of the pricing catalog.
// Versions are totally ordered by effective date.
type CatalogVersion struct {
	ID            string    `json:"id"`
	EffectiveDate time.Time `json:"effective_date"`
	// EffectiveDateForExistingSubscriptions delays the version for
	// subscriptions that already existed when it was published. Two accounts
	// created on different sides of the version boundary can therefore see
	// different versions for nominally overlapping billing periods; that
	// asymmetry is a documented property of the catalog, not a defect.
	EffectiveDateForExistingSubscriptions *time.Time       `json:"effective_date_for_existing_subscriptions,omitempty"`
	Plans                                 []*Plan          `json:"plans"`
	PriceOverrides                        []*PriceOverride `json:"price_overrides,omitempty"`
	types.BaseModel
}

// ApplicableDate returns the date from which this version governs a
// subscription, given whether the subscription predates the version.
func (v *CatalogVersion) ApplicableDate(subscriptionExisting bool) time.Time {
	if subscriptionExisting && v.EffectiveDateForExistingSubscriptions != nil {
		return *v.EffectiveDateForExistingSubscriptions
	}
	return v.EffectiveDate
}

func (v *CatalogVersion) Plan(name string) (*Plan, error) {
	for _, p := range v.Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, ierr.NewError("plan not found").
		WithHintf("catalog version %s has no plan %s", v.ID, name).
		Mark(ierr.ErrNotFound)
}

// ResolvePhase returns the phase with version price overrides applied. The
// returned phase is a copy; the version itself stays immutable.
func (v *CatalogVersion) ResolvePhase(planName, phaseName string) (*Phase, error) {
	plan, err := v.Plan(planName)
	if err != nil {
		return nil, err
	}
	phase, err := plan.Phase(phaseName)
	if err != nil {
		return nil, err
	}

	resolved := *phase
	for _, o := range v.PriceOverrides {
		if o.PlanName != planName || o.PhaseName != phaseName {
			continue
		}
		if o.FixedPrice != nil {
			resolved.FixedPrice = o.FixedPrice
		}
		if o.RecurringPrice != nil {
			resolved.RecurringPrice = o.RecurringPrice
		}
	}
	return &resolved, nil
}
