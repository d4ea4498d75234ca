package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reinvoice/reinvoice/internal/domain/subscription"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subscriptions: map[string]*subscription.Subscription{}}
}

// Create seeds a subscription; test helper
func (s *InMemorySubscriptionStore) Create(sub *subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = sub
}

func (s *InMemorySubscriptionStore) Get(_ context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, ierr.NewError("subscription not found").
			WithHintf("no subscription with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	copied := *sub
	return &copied, nil
}

func (s *InMemorySubscriptionStore) ListByAccount(_ context.Context, accountID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.AccountID == accountID {
			copied := *sub
			subs = append(subs, &copied)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (s *InMemorySubscriptionStore) UpdateChargedThrough(_ context.Context, subscriptionID string, chargedThrough time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return ierr.NewError("subscription not found").
			WithHintf("no subscription with id %s", subscriptionID).
			Mark(ierr.ErrNotFound)
	}
	if sub.ChargedThroughDate != nil && chargedThrough.Before(*sub.ChargedThroughDate) {
		return nil
	}
	sub.ChargedThroughDate = &chargedThrough
	return nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = map[string]*subscription.Subscription{}
}
