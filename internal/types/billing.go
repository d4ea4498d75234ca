package types

import (
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/samber/lo"
)

// BillingPeriod is the unit of the recurring billing cycle
type BillingPeriod string

const (
	BILLING_PERIOD_DAILY   BillingPeriod = "DAILY"
	BILLING_PERIOD_WEEKLY  BillingPeriod = "WEEKLY"
	BILLING_PERIOD_MONTHLY BillingPeriod = "MONTHLY"
	BILLING_PERIOD_ANNUAL  BillingPeriod = "ANNUAL"
)

func (p BillingPeriod) String() string {
	return string(p)
}

func (p BillingPeriod) Validate() error {
	allowed := []BillingPeriod{
		BILLING_PERIOD_DAILY,
		BILLING_PERIOD_WEEKLY,
		BILLING_PERIOD_MONTHLY,
		BILLING_PERIOD_ANNUAL,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid billing period").
			WithHint("Please provide a valid billing period").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceCadence defines when a recurring charge is raised relative to the
// billing period it covers.
// ARREAR: the charge is raised at the end of the period (after service delivery)
// ADVANCE: the charge is raised at the beginning of the period (before service delivery)
type InvoiceCadence string

const (
	InvoiceCadenceArrear  InvoiceCadence = "ARREAR"
	InvoiceCadenceAdvance InvoiceCadence = "ADVANCE"
)

func (c InvoiceCadence) String() string {
	return string(c)
}

func (c InvoiceCadence) Validate() error {
	allowed := []InvoiceCadence{
		InvoiceCadenceArrear,
		InvoiceCadenceAdvance,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid invoice cadence").
			WithHint("Please provide a valid invoice cadence").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InArrearMode controls how ARREAR charges behave when a subscription is
// cancelled or changed mid-period.
// GREEDY: the elapsed partial period is billed immediately at the change date.
// CONSERVATIVE: billing of the partial period is deferred to the next natural
// billing boundary.
type InArrearMode string

const (
	InArrearModeGreedy       InArrearMode = "GREEDY"
	InArrearModeConservative InArrearMode = "CONSERVATIVE"
)

func (m InArrearMode) String() string {
	return string(m)
}

func (m InArrearMode) Validate() error {
	allowed := []InArrearMode{
		InArrearModeGreedy,
		InArrearModeConservative,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid in-arrear mode").
			WithHint("Please provide a valid in-arrear billing mode").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
