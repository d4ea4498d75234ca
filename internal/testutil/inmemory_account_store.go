package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/reinvoice/reinvoice/internal/domain/account"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// InMemoryAccountStore implements account.Repository
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: map[string]*account.Account{}}
}

// Create seeds an account; test helper, not part of the repository interface
func (s *InMemoryAccountStore) Create(acct *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.ID] = acct
}

func (s *InMemoryAccountStore) Get(_ context.Context, id string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, ierr.NewError("account not found").
			WithHintf("no account with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	copied := *acct
	return &copied, nil
}

func (s *InMemoryAccountStore) Update(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; !ok {
		return ierr.NewError("account not found").
			WithHintf("no account with id %s", acct.ID).
			Mark(ierr.ErrNotFound)
	}
	s.accounts[acct.ID] = acct
	return nil
}

func (s *InMemoryAccountStore) Park(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return ierr.NewError("account not found").
			WithHintf("no account with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	acct.ParkedAt = &at
	return nil
}

func (s *InMemoryAccountStore) Unpark(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return ierr.NewError("account not found").
			WithHintf("no account with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	acct.ParkedAt = nil
	return nil
}

func (s *InMemoryAccountStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = map[string]*account.Account{}
}
