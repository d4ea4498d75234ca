package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

type capturingNotifier struct {
	events []*InvoiceCreatedEvent
}

func (n *capturingNotifier) InvoiceCreated(_ context.Context, event *InvoiceCreatedEvent) error {
	n.events = append(n.events, event)
	return nil
}

type AssemblerServiceSuite struct {
	ServiceTestSuite
	service  InvoiceAssemblerService
	notifier *capturingNotifier
}

func TestAssemblerServiceSuite(t *testing.T) {
	suite.Run(t, new(AssemblerServiceSuite))
}

func (s *AssemblerServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.notifier = &capturingNotifier{}
	s.params.Notifier = s.notifier
	s.service = NewInvoiceAssemblerService(s.params)
}

func (s *AssemblerServiceSuite) newDiff(amount string) *ReconcileResult {
	item := proposedRecurring("subs_1", date(2023, 1, 1), date(2023, 2, 1), amount).
		ToInvoiceItem(types.GetDefaultBaseModel(s.GetContext()))
	return &ReconcileResult{NewItems: []*invoice.Item{item}}
}

func (s *AssemblerServiceSuite) TestEmptyDiffProducesNoInvoice() {
	acct := s.newAccount()
	inv, err := s.service.Assemble(s.GetContext(), acct, &ReconcileResult{}, date(2023, 1, 15), false)
	s.Require().NoError(err)
	s.Nil(inv)
}

func (s *AssemblerServiceSuite) TestAssembleCommitsByDefault() {
	acct := s.newAccount()
	s.newSubscription("subs_1", date(2023, 1, 1))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	s.Equal(types.InvoiceStatusCommitted, inv.Status)
	s.NotNil(inv.CommittedAt)
	s.Require().NotNil(inv.InvoiceNumber)
	s.True(strings.HasPrefix(*inv.InvoiceNumber, "IN-"))
	s.True(inv.Total().Equal(dec("100")))

	stored, err := s.GetStores().Invoice.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusCommitted, stored.Status)

	sub, err := s.GetStores().Subscription.Get(s.GetContext(), "subs_1")
	s.Require().NoError(err)
	s.Require().NotNil(sub.ChargedThroughDate)
	s.True(sub.ChargedThroughDate.Equal(date(2023, 2, 1)))

	s.Require().Len(s.notifier.events, 1)
	s.Equal(inv.ID, s.notifier.events[0].InvoiceID)
	s.True(s.notifier.events[0].Balance.Equal(dec("100")))
}

func (s *AssemblerServiceSuite) TestDraftInvoicingTagKeepsInvoiceOpen() {
	acct := s.newAccount(types.AccountTagDraftInvoicing)
	s.newSubscription("subs_1", date(2023, 1, 1))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	s.Equal(types.InvoiceStatusDraft, inv.Status)
	s.Nil(inv.CommittedAt)
	s.Nil(inv.InvoiceNumber)
	s.Empty(s.notifier.events)

	sub, err := s.GetStores().Subscription.Get(s.GetContext(), "subs_1")
	s.Require().NoError(err)
	s.Nil(sub.ChargedThroughDate)
}

func (s *AssemblerServiceSuite) TestReuseDraftAppendsToOpenDraft() {
	acct := s.newAccount(types.AccountTagDraftInvoicing, types.AccountTagReuseDraft)
	s.newSubscription("subs_1", date(2023, 1, 1))

	first, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), false)
	s.Require().NoError(err)

	second := proposedRecurring("subs_1", date(2023, 2, 1), date(2023, 3, 1), "100").
		ToInvoiceItem(types.GetDefaultBaseModel(s.GetContext()))
	reused, err := s.service.Assemble(s.GetContext(), acct,
		&ReconcileResult{NewItems: []*invoice.Item{second}}, date(2023, 2, 15), false)
	s.Require().NoError(err)

	s.Equal(first.ID, reused.ID)
	s.Len(reused.Items, 2)
	s.True(reused.TargetDate.Equal(date(2023, 2, 15)))
}

func (s *AssemblerServiceSuite) TestReuseRequiresDraftModeTag() {
	acct := s.newAccount(types.AccountTagReuseDraft)
	s.newSubscription("subs_1", date(2023, 1, 1))

	open := committedInvoice("inv_open",
		persistedRecurring("item_open", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)
	open.Status = types.InvoiceStatusDraft
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), open))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), false)
	s.Require().NoError(err)
	s.Require().NotNil(inv)

	// without the draft-mode tag the open draft is left alone and the new
	// invoice commits on its own
	s.NotEqual("inv_open", inv.ID)
	s.Equal(types.InvoiceStatusCommitted, inv.Status)
	s.Len(inv.Items, 1)

	stored, err := s.GetStores().Invoice.Get(s.GetContext(), "inv_open")
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusDraft, stored.Status)
	s.Len(stored.Items, 1)
}

func (s *AssemblerServiceSuite) TestReuseSkipsNonOverlappingDraft() {
	acct := s.newAccount(types.AccountTagDraftInvoicing, types.AccountTagReuseDraft)
	s.newSubscription("subs_1", date(2023, 1, 1))

	first, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), false)
	s.Require().NoError(err)

	later := proposedRecurring("subs_1", date(2023, 6, 1), date(2023, 7, 1), "100").
		ToInvoiceItem(types.GetDefaultBaseModel(s.GetContext()))
	second, err := s.service.Assemble(s.GetContext(), acct,
		&ReconcileResult{NewItems: []*invoice.Item{later}}, date(2023, 6, 15), false)
	s.Require().NoError(err)
	s.Require().NotNil(second)

	// the January draft does not cover June; the diff gets its own draft
	s.NotEqual(first.ID, second.ID)
	s.Len(second.Items, 1)
}

func (s *AssemblerServiceSuite) TestCommitAppliesCreditPool() {
	acct := s.newAccount()
	s.newSubscription("subs_1", date(2023, 1, 1))

	fund := &invoice.Item{
		ID:        "item_cba_fund",
		InvoiceID: "inv_prior",
		Type:      types.InvoiceItemCBAAdj,
		StartDate: date(2022, 12, 1),
		Amount:    dec("100"),
	}
	prior := committedInvoice("inv_prior", fund)
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), prior))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("60"), date(2023, 1, 15), false)
	s.Require().NoError(err)

	var consumed *invoice.Item
	for _, item := range inv.Items {
		if item.Type == types.InvoiceItemCBAAdj {
			consumed = item
		}
	}
	s.Require().NotNil(consumed)
	s.True(consumed.Amount.Equal(dec("-60")))
	s.True(inv.Total().IsZero())
	s.Require().Len(s.notifier.events, 1)
	s.True(s.notifier.events[0].Balance.IsZero())
}

func (s *AssemblerServiceSuite) TestPartialCreditPool() {
	acct := s.newAccount()
	s.newSubscription("subs_1", date(2023, 1, 1))

	fund := &invoice.Item{
		ID:        "item_cba_fund",
		InvoiceID: "inv_prior",
		Type:      types.InvoiceItemCBAAdj,
		StartDate: date(2022, 12, 1),
		Amount:    dec("25"),
	}
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), committedInvoice("inv_prior", fund)))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("60"), date(2023, 1, 15), false)
	s.Require().NoError(err)
	s.True(inv.Total().Equal(dec("35")))
}

func (s *AssemblerServiceSuite) TestDryRunPersistsNothing() {
	acct := s.newAccount()
	s.newSubscription("subs_1", date(2023, 1, 1))

	inv, err := s.service.Assemble(s.GetContext(), acct, s.newDiff("100"), date(2023, 1, 15), true)
	s.Require().NoError(err)
	s.Require().NotNil(inv)
	s.Len(inv.Items, 1)

	stored, err := s.GetStores().Invoice.ListByAccount(s.GetContext(), acct.ID)
	s.Require().NoError(err)
	s.Empty(stored)
	s.Empty(s.notifier.events)

	sub, err := s.GetStores().Subscription.Get(s.GetContext(), "subs_1")
	s.Require().NoError(err)
	s.Nil(sub.ChargedThroughDate)
}

func (s *AssemblerServiceSuite) TestVoidBlockedByPayment() {
	acct := s.newAccount()
	inv := committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)
	inv.AmountPaid = dec("100")
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), inv))

	_, err := s.service.Void(s.GetContext(), acct, "inv_1")
	s.Require().Error(err)
	s.True(ierr.IsVoidBlocked(err))
}

func (s *AssemblerServiceSuite) TestVoidBlockedByRepairTargetUntilDependentVoided() {
	acct := s.newAccount()
	target := committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)
	linked := "item_1"
	repair := &invoice.Item{
		ID:           "item_repair",
		InvoiceID:    "inv_2",
		Type:         types.InvoiceItemRepairAdj,
		StartDate:    date(2023, 1, 1),
		Amount:       dec("-100"),
		LinkedItemID: &linked,
	}
	dependent := committedInvoice("inv_2", repair)
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), target))
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), dependent))

	_, err := s.service.Void(s.GetContext(), acct, "inv_1")
	s.Require().Error(err)
	s.True(ierr.IsVoidBlocked(err))

	voided, err := s.service.Void(s.GetContext(), acct, "inv_2")
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, voided.Status)
	s.NotNil(voided.VoidedAt)

	_, err = s.service.Void(s.GetContext(), acct, "inv_1")
	s.Require().NoError(err)
}

func (s *AssemblerServiceSuite) TestVoidRejectsDraft() {
	acct := s.newAccount()
	draft := committedInvoice("inv_1",
		persistedRecurring("item_1", "subs_1", date(2023, 1, 1), date(2023, 2, 1), "100"),
	)
	draft.Status = types.InvoiceStatusDraft
	s.Require().NoError(s.GetStores().Invoice.Create(s.GetContext(), draft))

	_, err := s.service.Void(s.GetContext(), acct, "inv_1")
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
