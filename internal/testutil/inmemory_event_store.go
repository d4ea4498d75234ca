package testutil

import (
	"context"
	"sync"

	"github.com/reinvoice/reinvoice/internal/domain/billingevent"
)

// InMemoryEventStore implements billingevent.Repository
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]*billingevent.BillingEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: map[string][]*billingevent.BillingEvent{}}
}

// AddEvents appends billing events to an account's stream; test helper
func (s *InMemoryEventStore) AddEvents(accountID string, events ...*billingevent.BillingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[accountID] = append(s.events[accountID], events...)
}

func (s *InMemoryEventStore) GetTimeline(_ context.Context, accountID string) (*billingevent.Timeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return billingevent.NewTimeline(s.events[accountID]), nil
}

func (s *InMemoryEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = map[string][]*billingevent.BillingEvent{}
}
