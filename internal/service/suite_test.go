package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reinvoice/reinvoice/internal/cache"
	"github.com/reinvoice/reinvoice/internal/config"
	"github.com/reinvoice/reinvoice/internal/domain/account"
	"github.com/reinvoice/reinvoice/internal/domain/billingevent"
	"github.com/reinvoice/reinvoice/internal/domain/catalog"
	"github.com/reinvoice/reinvoice/internal/domain/proration"
	"github.com/reinvoice/reinvoice/internal/domain/subscription"
	"github.com/reinvoice/reinvoice/internal/testutil"
	"github.com/reinvoice/reinvoice/internal/types"
)

// ServiceTestSuite is the shared fixture for service tests: fresh stores, a
// fresh default configuration and a day-based proration calculator per test.
type ServiceTestSuite struct {
	testutil.BaseServiceSuite
	params ServiceParams
}

func (s *ServiceTestSuite) SetupTest() {
	s.ClearStores()
	stores := s.GetStores()
	s.params = ServiceParams{
		Logger:              s.GetLogger(),
		Config:              config.GetDefaultConfig(),
		Cache:               cache.NewInMemoryCache(false),
		AccountRepo:         stores.Account,
		SubscriptionRepo:    stores.Subscription,
		InvoiceRepo:         stores.Invoice,
		EventRepo:           stores.Event,
		UsageRepo:           stores.Usage,
		CatalogPlugin:       stores.Catalog,
		ProrationCalculator: proration.NewCalculator(proration.CalculatorTypeDay),
	}
}

func (s *ServiceTestSuite) newAccount(tags ...types.AccountTag) *account.Account {
	acct := &account.Account{
		ID:           "acct_test",
		Name:         "Test Account",
		Currency:     "USD",
		Timezone:     "UTC",
		BillCycleDay: 1,
		Tags:         tags,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetStores().Account.Create(acct)
	return acct
}

func (s *ServiceTestSuite) newSubscription(id string, start time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:        id,
		AccountID: "acct_test",
		StartDate: start,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.GetStores().Subscription.Create(sub)
	return sub
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func monthlyEvent(subID string, kind types.TransitionKind, effective time.Time, cadence types.InvoiceCadence, price string) *billingevent.BillingEvent {
	return &billingevent.BillingEvent{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		SubscriptionID:       subID,
		EffectiveDate:        effective,
		Kind:                 kind,
		PlanName:             "standard",
		PhaseName:            "evergreen",
		BillingPeriod:        types.BILLING_PERIOD_MONTHLY,
		Cadence:              cadence,
		RecurringPrice:       decPtr(price),
		CatalogVersionID:     "catver_1",
		CatalogEffectiveDate: date(2022, 1, 1),
	}
}

func stopEvent(subID string, kind types.TransitionKind, effective time.Time) *billingevent.BillingEvent {
	return &billingevent.BillingEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		SubscriptionID: subID,
		EffectiveDate:  effective,
		Kind:           kind,
	}
}

func standardCatalogVersion() *catalog.CatalogVersion {
	return &catalog.CatalogVersion{
		ID:            "catver_1",
		EffectiveDate: date(2022, 1, 1),
		Plans: []*catalog.Plan{
			{
				Name: "standard",
				Phases: []*catalog.Phase{
					{
						Name:           "evergreen",
						Type:           catalog.PhaseTypeEvergreen,
						BillingPeriod:  types.BILLING_PERIOD_MONTHLY,
						Cadence:        types.InvoiceCadenceAdvance,
						RecurringPrice: decPtr("100"),
					},
				},
			},
		},
	}
}
