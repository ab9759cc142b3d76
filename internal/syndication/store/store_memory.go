package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taleweave/internal/sentinel"
	"taleweave/internal/syndication/models"
	id "taleweave/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

type consentKey struct {
	story id.StoryID
	app   id.AppID
}

// InMemoryStore keeps consent records and the change log in memory. It backs
// tests and single-node deployments without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[consentKey]*models.Record
	changes []*models.ChangeLogEntry
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[consentKey]*models.Record)}
}

// Upsert inserts or replaces the record for its (story, app) pair. A fresh
// record gets an ID and CreatedAt; re-grants keep both.
func (s *InMemoryStore) Upsert(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := consentKey{rec.StoryID, rec.AppID}
	if existing, ok := s.records[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		if rec.ID.IsNil() {
			rec.ID = id.ConsentID(uuid.New())
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.UpdatedAt
		}
	}
	copyRec := *rec
	s.records[key] = &copyRec
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, storyID id.StoryID, appID id.AppID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[consentKey{storyID, appID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRec := *rec
	return &copyRec, nil
}

// ListActiveForStory returns granted, unexpired records for the story.
func (s *InMemoryStore) ListActiveForStory(_ context.Context, storyID id.StoryID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for key, rec := range s.records {
		if key.story != storyID || !rec.Granted {
			continue
		}
		copyRec := *rec
		out = append(out, &copyRec)
	}
	return out, nil
}

// ListActiveForApp returns granted records across stories for one app.
func (s *InMemoryStore) ListActiveForApp(_ context.Context, appID id.AppID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for key, rec := range s.records {
		if key.app != appID || !rec.Granted {
			continue
		}
		copyRec := *rec
		out = append(out, &copyRec)
	}
	return out, nil
}

// ListExpiredDue returns granted records whose expiry deadline has passed.
func (s *InMemoryStore) ListExpiredDue(_ context.Context, now time.Time) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, rec := range s.records {
		if !rec.Expired(now) {
			continue
		}
		copyRec := *rec
		out = append(out, &copyRec)
	}
	return out, nil
}

// AppendChange records one audit entry. Entries are immutable once written.
func (s *InMemoryStore) AppendChange(_ context.Context, entry *models.ChangeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyEntry := *entry
	if copyEntry.ID == uuid.Nil {
		copyEntry.ID = uuid.New()
	}
	s.changes = append(s.changes, &copyEntry)
	return nil
}

// ListChanges returns the audit trail for one consent, newest first.
func (s *InMemoryStore) ListChanges(_ context.Context, consentID id.ConsentID, limit int) ([]*models.ChangeLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ChangeLogEntry
	for i := len(s.changes) - 1; i >= 0; i-- {
		entry := s.changes[i]
		if entry.ConsentID != consentID {
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
