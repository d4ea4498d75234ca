package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

type InvoicingServiceSuite struct {
	ServiceTestSuite
	service InvoicingService
}

func TestInvoicingServiceSuite(t *testing.T) {
	suite.Run(t, new(InvoicingServiceSuite))
}

func (s *InvoicingServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.GetStores().Catalog.SetVersions("m1", standardCatalogVersion())
	s.service = NewInvoicingService(s.params)
}

func (s *InvoicingServiceSuite) seedMonthlySubscription() {
	s.newSubscription("subs_1", date(2023, 1, 1))
	s.GetStores().Event.AddEvents("acct_test",
		monthlyEvent("subs_1", types.TransitionCreate, date(2023, 1, 1), types.InvoiceCadenceAdvance, "100"),
	)
}

func (s *InvoicingServiceSuite) TestGenerateInvoiceEndToEnd() {
	s.newAccount()
	s.seedMonthlySubscription()

	result, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID:  "acct_test",
		TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
	s.Require().NotNil(result.Invoice)
	s.Equal(types.InvoiceStatusCommitted, result.Invoice.Status)
	s.Require().Len(result.Invoice.Items, 1)
	s.True(result.Invoice.Items[0].Amount.Equal(dec("100")))
	s.True(result.NextNotificationDates["subs_1"].Equal(date(2023, 2, 1)))

	sub, err := s.GetStores().Subscription.Get(s.GetContext(), "subs_1")
	s.Require().NoError(err)
	s.Require().NotNil(sub.ChargedThroughDate)
	s.True(sub.ChargedThroughDate.Equal(date(2023, 2, 1)))
}

func (s *InvoicingServiceSuite) TestRepeatedPassIsIdempotent() {
	s.newAccount()
	s.seedMonthlySubscription()
	req := &GenerateInvoiceRequest{AccountID: "acct_test", TargetDate: date(2023, 1, 15)}

	first, err := s.service.GenerateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.Require().NotNil(first.Invoice)

	second, err := s.service.GenerateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.Nil(second.Invoice)

	invoices, err := s.GetStores().Invoice.ListByAccount(s.GetContext(), "acct_test")
	s.Require().NoError(err)
	s.Len(invoices, 1)
}

func (s *InvoicingServiceSuite) TestLaterTargetBillsNextPeriod() {
	s.newAccount()
	s.seedMonthlySubscription()

	_, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)

	result, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 2, 1),
	})
	s.Require().NoError(err)
	s.Require().NotNil(result.Invoice)
	s.Require().Len(result.Invoice.Items, 1)
	s.True(result.Invoice.Items[0].StartDate.Equal(date(2023, 2, 1)))
}

func (s *InvoicingServiceSuite) TestParkedAccountRejectsInvoicing() {
	acct := s.newAccount()
	s.seedMonthlySubscription()
	s.Require().NoError(s.service.Park(s.GetContext(), acct.ID))

	_, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: acct.ID, TargetDate: date(2023, 1, 15),
	})
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrAccountParked))

	// dry run still computes the would-be outcome
	result, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: acct.ID, TargetDate: date(2023, 1, 15), DryRun: true,
	})
	s.Require().NoError(err)
	s.NotNil(result.Invoice)

	s.Require().NoError(s.service.Unpark(s.GetContext(), acct.ID))
	_, err = s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: acct.ID, TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
}

func (s *InvoicingServiceSuite) TestAutoInvoicingOffShortCircuits() {
	s.newAccount(types.AccountTagAutoInvoicingOff)
	s.seedMonthlySubscription()

	result, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
	s.Nil(result.Invoice)

	dryRun, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15), DryRun: true,
	})
	s.Require().NoError(err)
	s.NotNil(dryRun.Invoice)
}

func (s *InvoicingServiceSuite) TestUnrecoverableInconsistencyParksAccount() {
	s.newAccount()
	s.seedMonthlySubscription()

	// a persisted charge the recomputation disagrees with, consumed by a
	// payment that cannot be refunded
	item := persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "999")
	item.Unrepairable = true
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), committedInvoice("inv_1", item)))

	_, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().Error(err)
	s.True(ierr.IsDoubleBilling(err))

	acct, err := s.GetStores().Account.Get(s.GetContext(), "acct_test")
	s.Require().NoError(err)
	s.True(acct.IsParked())
}

func (s *InvoicingServiceSuite) TestNoEventsMeansNoInvoice() {
	s.newAccount()

	result, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
	s.Nil(result.Invoice)
}

func (s *InvoicingServiceSuite) TestTenantContextRequired() {
	s.newAccount()
	s.seedMonthlySubscription()

	_, err := s.service.GenerateInvoice(context.Background(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoicingServiceSuite) TestRetroactivePriceChangeEndToEnd() {
	s.newAccount()
	s.seedMonthlySubscription()

	first, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
	billedItem := first.Invoice.Items[0]

	// the event stream is rewritten with a cheaper price for the same period
	s.GetStores().Event.Clear()
	s.GetStores().Event.AddEvents("acct_test",
		monthlyEvent("subs_1", types.TransitionCreate, date(2023, 1, 1), types.InvoiceCadenceAdvance, "80"),
	)

	second, err := s.service.GenerateInvoice(s.GetContext(), &GenerateInvoiceRequest{
		AccountID: "acct_test", TargetDate: date(2023, 1, 15),
	})
	s.Require().NoError(err)
	s.Require().NotNil(second.Invoice)

	byType := map[types.InvoiceItemType][]*invoice.Item{}
	for _, item := range second.Invoice.Items {
		byType[item.Type] = append(byType[item.Type], item)
	}
	s.Require().Len(byType[types.InvoiceItemRepairAdj], 1)
	repair := byType[types.InvoiceItemRepairAdj][0]
	s.True(repair.Amount.Equal(dec("-100")))
	s.Equal(billedItem.ID, *repair.LinkedItemID)
	s.Require().Len(byType[types.InvoiceItemRecurring], 1)
	s.True(byType[types.InvoiceItemRecurring][0].Amount.Equal(dec("80")))

	// the freed 100 funds the pool, 80 of it is consumed by the new charge
	total := second.Invoice.Total()
	s.True(total.IsZero(), "got %s", total)
}
