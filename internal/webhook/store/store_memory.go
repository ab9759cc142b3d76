package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taleweave/internal/sentinel"
	"taleweave/internal/webhook/models"
	id "taleweave/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps subscriptions and the delivery log in memory. It backs
// tests and single-node deployments without a database.
type InMemoryStore struct {
	mu         sync.RWMutex
	subs       map[id.SubscriptionID]*models.Subscription
	deliveries []*models.DeliveryLogEntry
}

// New constructs an empty in-memory webhook store.
func New() *InMemoryStore {
	return &InMemoryStore{subs: make(map[id.SubscriptionID]*models.Subscription)}
}

func (s *InMemoryStore) Create(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; ok {
		return sentinel.ErrConflict
	}
	copySub := *sub
	s.subs[sub.ID] = &copySub
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copySub := *sub
	return &copySub, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Subscription
	for _, sub := range s.subs {
		copySub := *sub
		out = append(out, &copySub)
	}
	return out, nil
}

func (s *InMemoryStore) ListForEvent(_ context.Context, event models.EventType) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Subscription
	for _, sub := range s.subs {
		if !sub.Active || !sub.WantsEvent(event) {
			continue
		}
		copySub := *sub
		out = append(out, &copySub)
	}
	return out, nil
}

func (s *InMemoryStore) ListForApp(_ context.Context, appID id.AppID, event models.EventType) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Subscription
	for _, sub := range s.subs {
		if sub.AppID != appID || !sub.Active || !sub.WantsEvent(event) {
			continue
		}
		copySub := *sub
		out = append(out, &copySub)
	}
	return out, nil
}

// RecordSuccess resets the failure streak and stamps the success timestamps.
func (s *InMemoryStore) RecordSuccess(_ context.Context, subID id.SubscriptionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sub.ConsecutiveFailures = 0
	sub.LastSuccessAt = &at
	sub.LastTriggeredAt = &at
	return nil
}

// RecordFailure increments the failure streak under the store lock, so
// concurrent deliveries to the same subscription never undercount.
// Returns the new streak value.
func (s *InMemoryStore) RecordFailure(_ context.Context, subID id.SubscriptionID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	sub.ConsecutiveFailures++
	sub.LastFailureAt = &at
	sub.LastTriggeredAt = &at
	return sub.ConsecutiveFailures, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sub.Active = false
	return nil
}

// Append records one delivery attempt. Entries are immutable once written.
func (s *InMemoryStore) Append(_ context.Context, entry *models.DeliveryLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyEntry := *entry
	if copyEntry.ID == uuid.Nil {
		copyEntry.ID = uuid.New()
	}
	s.deliveries = append(s.deliveries, &copyEntry)
	return nil
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, subID id.SubscriptionID, limit int) ([]*models.DeliveryLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DeliveryLogEntry
	// Newest first.
	for i := len(s.deliveries) - 1; i >= 0; i-- {
		entry := s.deliveries[i]
		if entry.SubscriptionID != subID {
			continue
		}
		copyEntry := *entry
		out = append(out, &copyEntry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
