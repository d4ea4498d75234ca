package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

type ReconcileServiceSuite struct {
	ServiceTestSuite
	service ReconcileService
}

func TestReconcileServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconcileServiceSuite))
}

func (s *ReconcileServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.service = NewReconcileService(s.params)
}

func persistedRecurring(id, subID string, start, end time.Time, amount string) *invoice.Item {
	e := end
	sub := subID
	return &invoice.Item{
		ID:               id,
		InvoiceID:        "inv_existing",
		SubscriptionID:   &sub,
		Type:             types.InvoiceItemRecurring,
		StartDate:        start,
		EndDate:          &e,
		Amount:           dec(amount),
		PlanName:         "standard",
		PhaseName:        "evergreen",
		CatalogVersionID: "catver_1",
	}
}

func persistedUsage(id, subID string, start, end time.Time, amount string, trackingIDs ...string) *invoice.Item {
	item := persistedRecurring(id, subID, start, end, amount)
	item.Type = types.InvoiceItemUsage
	item.TrackingIDs = trackingIDs
	return item
}

func proposedRecurring(subID string, start, end time.Time, amount string) *ProposedItem {
	e := end
	return &ProposedItem{
		Type:             types.InvoiceItemRecurring,
		SubscriptionID:   subID,
		StartDate:        start,
		EndDate:          &e,
		Amount:           dec(amount),
		Rate:             decPtr(amount),
		PlanName:         "standard",
		PhaseName:        "evergreen",
		CatalogVersionID: "catver_1",
	}
}

func committedInvoice(id string, items ...*invoice.Item) *invoice.Invoice {
	for _, item := range items {
		item.InvoiceID = id
	}
	return &invoice.Invoice{
		ID:        id,
		AccountID: "acct_test",
		Status:    types.InvoiceStatusCommitted,
		Currency:  "USD",
		Items:     items,
	}
}

func (s *ReconcileServiceSuite) reconcile(proposed []*ProposedItem, persisted []*invoice.Invoice, target time.Time) (*ReconcileResult, error) {
	acct := s.newAccount()
	return s.service.Reconcile(s.GetContext(), acct, proposed, persisted, target)
}

func (s *ReconcileServiceSuite) TestEmptyDiffWhenLedgerMatches() {
	persisted := []*invoice.Invoice{committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)}
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	}

	result, err := s.reconcile(proposed, persisted, date(2023, 1, 15))
	s.Require().NoError(err)
	s.True(result.IsEmpty())
}

func (s *ReconcileServiceSuite) TestNewChargeWhenNothingPersisted() {
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	}

	result, err := s.reconcile(proposed, nil, date(2023, 1, 15))
	s.Require().NoError(err)
	s.Require().Len(result.NewItems, 1)
	s.Empty(result.RepairItems)
	s.True(result.NewItems[0].Amount.Equal(dec("100")))
}

func (s *ReconcileServiceSuite) TestRetroactiveChangeRepairsAndCredits() {
	persisted := []*invoice.Invoice{committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)}
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "80"),
	}

	result, err := s.reconcile(proposed, persisted, date(2023, 1, 15))
	s.Require().NoError(err)

	s.Require().Len(result.NewItems, 1)
	s.True(result.NewItems[0].Amount.Equal(dec("80")))

	s.Require().Len(result.RepairItems, 2)
	repair, credit := result.RepairItems[0], result.RepairItems[1]
	s.Equal(types.InvoiceItemRepairAdj, repair.Type)
	s.True(repair.Amount.Equal(dec("-100")))
	s.Require().NotNil(repair.LinkedItemID)
	s.Equal("item_1", *repair.LinkedItemID)
	s.True(repair.StartDate.Equal(date(2023, 1, 1)))

	s.Equal(types.InvoiceItemCBAAdj, credit.Type)
	s.True(credit.Amount.Equal(dec("100")))
	s.Require().NotNil(credit.LinkedItemID)
	s.Equal(repair.ID, *credit.LinkedItemID)

	// repair and credit cancel out; the net effect of the pass is the new charge
	s.True(repair.Amount.Add(credit.Amount).IsZero())
}

func (s *ReconcileServiceSuite) TestRepairedItemIsNotRepairedAgain() {
	original := persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100")
	linked := "item_1"
	repair := &invoice.Item{
		ID:             "item_repair",
		SubscriptionID: original.SubscriptionID,
		Type:           types.InvoiceItemRepairAdj,
		StartDate:      original.StartDate,
		EndDate:        original.EndDate,
		Amount:         dec("-100"),
		LinkedItemID:   &linked,
	}
	replacement := persistedRecurring("item_2", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "80")
	persisted := []*invoice.Invoice{
		committedInvoice("inv_1", original),
		committedInvoice("inv_2", repair, replacement),
	}
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "80"),
	}

	result, err := s.reconcile(proposed, persisted, date(2023, 1, 15))
	s.Require().NoError(err)
	s.True(result.IsEmpty())
}

func (s *ReconcileServiceSuite) TestUsageIsNeverRepairedByAbsence() {
	persisted := []*invoice.Invoice{committedInvoice("inv_1",
		persistedUsage("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "11", "trk_1"),
	)}

	result, err := s.reconcile(nil, persisted, date(2023, 2, 15))
	s.Require().NoError(err)
	s.True(result.IsEmpty())
}

func (s *ReconcileServiceSuite) TestLookbackCutoffFreezesOldItems() {
	// 90-day lookback from the December target puts January well behind the cutoff
	persisted := []*invoice.Invoice{committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)}
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "120"),
	}

	result, err := s.reconcile(proposed, persisted, date(2023, 12, 1))
	s.Require().NoError(err)
	s.True(result.IsEmpty())
}

func (s *ReconcileServiceSuite) TestFirstTimeBillingBypassesCutoff() {
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
		proposedRecurring("subs_1", date(2023, 2, 1), date(2023, 3, 1), "100"),
	}

	result, err := s.reconcile(proposed, nil, date(2023, 12, 1))
	s.Require().NoError(err)
	s.Len(result.NewItems, 2)
}

func (s *ReconcileServiceSuite) TestUnrepairableItemFailsThePass() {
	item := persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100")
	item.Unrepairable = true
	persisted := []*invoice.Invoice{committedInvoice("inv_1", item)}
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "80"),
	}

	_, err := s.reconcile(proposed, persisted, date(2023, 1, 15))
	s.Require().Error(err)
	s.True(ierr.IsDoubleBilling(err))
}

func (s *ReconcileServiceSuite) TestOverlappingChargesAreRejected() {
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
		proposedRecurring("subs_1", date(2023, 1, 15), date(2023, 2, 15), "100"),
	}

	_, err := s.reconcile(proposed, nil, date(2023, 2, 20))
	s.Require().Error(err)
	s.True(ierr.IsDoubleBilling(err))
}

func (s *ReconcileServiceSuite) TestVoidedInvoiceItemsAreRebilled() {
	inv := committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)
	inv.Status = types.InvoiceStatusVoid
	proposed := []*ProposedItem{
		proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	}

	result, err := s.reconcile(proposed, []*invoice.Invoice{inv}, date(2023, 1, 15))
	s.Require().NoError(err)
	s.Len(result.NewItems, 1)
	s.Empty(result.RepairItems)
}
