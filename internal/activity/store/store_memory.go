package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"lostfound/internal/activity/models"
	id "lostfound/pkg/domain"
)

// InMemoryStore keeps records in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, recs []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		cp := *r
		s.records = append(s.records, &cp)
	}
	return nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, userID id.UserID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.RecipientID == userID && !r.UserCleared {
			out = append(out, copyRecord(r))
		}
	}
	newestFirst(out)
	return out, nil
}

// MarkViewed stamps unviewed, uncleared records of userID. A record is viewed once.
func (s *InMemoryStore) MarkViewed(_ context.Context, userID id.UserID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.RecipientID == userID && r.ViewedAt == nil && !r.UserCleared {
			t := at
			r.ViewedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ListAudit(_ context.Context, filter models.AuditFilter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if !r.AdminCleared && filter.Matches(r) {
			out = append(out, copyRecord(r))
		}
	}
	newestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) ClearAdmin(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if !r.AdminCleared && !r.CreatedAt.After(before) {
			r.AdminCleared = true
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ClearUser(_ context.Context, userID id.UserID, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.RecipientID == userID && !r.UserCleared && !r.CreatedAt.After(before) {
			r.UserCleared = true
			n++
		}
	}
	return n, nil
}

// PurgeCleared deletes records created before cutoff that no audience can see.
func (s *InMemoryStore) PurgeCleared(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	n := 0
	for _, r := range s.records {
		if r.Purgeable() && r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

func copyRecord(r *models.Record) *models.Record {
	cp := *r
	if r.ViewedAt != nil {
		t := *r.ViewedAt
		cp.ViewedAt = &t
	}
	return &cp
}

func newestFirst(recs []*models.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
