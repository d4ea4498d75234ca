package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/reinvoice/reinvoice/internal/domain/invoice"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
	"github.com/reinvoice/reinvoice/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]*invoice.Invoice
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{invoices: map[string]*invoice.Invoice{}}
}

func (s *InMemoryInvoiceStore) Create(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; ok {
		return ierr.NewError("invoice already exists").
			WithHintf("invoice %s already exists", inv.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) Get(_ context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return invoice.ErrInvoiceNotFound
	}
	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) ListByAccount(_ context.Context, accountID string) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var invoices []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.AccountID == accountID {
			invoices = append(invoices, copyInvoice(inv))
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
		}
		return invoices[i].ID < invoices[j].ID
	})
	return invoices, nil
}

func (s *InMemoryInvoiceStore) GetOpenDraft(_ context.Context, accountID string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var draft *invoice.Invoice
	for _, inv := range s.invoices {
		if inv.AccountID != accountID || inv.Status != types.InvoiceStatusDraft {
			continue
		}
		if draft == nil || inv.CreatedAt.Before(draft.CreatedAt) {
			draft = inv
		}
	}
	if draft == nil {
		return nil, invoice.ErrInvoiceNotFound
	}
	return copyInvoice(draft), nil
}

func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = map[string]*invoice.Invoice{}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	copied := *inv
	copied.Items = make([]*invoice.Item, len(inv.Items))
	for i, item := range inv.Items {
		itemCopy := *item
		copied.Items[i] = &itemCopy
	}
	return &copied
}
