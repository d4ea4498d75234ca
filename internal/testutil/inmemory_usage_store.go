package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reinvoice/reinvoice/internal/domain/usage"
)

// InMemoryUsageStore implements usage.Repository
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string][]*usage.RawUsageRecord
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{records: map[string][]*usage.RawUsageRecord{}}
}

// AddRecords appends raw usage records for a subscription; test helper
func (s *InMemoryUsageStore) AddRecords(records ...*usage.RawUsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.SubscriptionID] = append(s.records[r.SubscriptionID], r)
	}
}

func (s *InMemoryUsageStore) GetRawUsage(_ context.Context, subscriptionID string, start, end time.Time) ([]*usage.RawUsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*usage.RawUsageRecord
	for _, r := range s.records[subscriptionID] {
		if r.RecordDate.Before(start) || !r.RecordDate.Before(end) {
			continue
		}
		copied := *r
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].RecordDate.Equal(matched[j].RecordDate) {
			return matched[i].RecordDate.Before(matched[j].RecordDate)
		}
		return matched[i].TrackingID < matched[j].TrackingID
	})
	return matched, nil
}

func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = map[string][]*usage.RawUsageRecord{}
}
