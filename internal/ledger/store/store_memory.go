package store

import (
	"context"
	"sync"
	"time"

	"lostfound/internal/ledger/models"
)

// InMemoryStore keeps ledger rows per identity key.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]models.Attempt
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string][]models.Attempt)}
}

func (s *InMemoryStore) Append(_ context.Context, attempt *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[attempt.IdentityKey] = append(s.rows[attempt.IdentityKey], *attempt)
	return nil
}

func (s *InMemoryStore) CountFailuresSince(_ context.Context, identityKey string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.rows[identityKey] {
		if !a.Successful && !a.At.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) LatestLockUntil(_ context.Context, identityKey string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *time.Time
	for _, a := range s.rows[identityKey] {
		if a.LockedUntil != nil && (latest == nil || a.LockedUntil.After(*latest)) {
			t := *a.LockedUntil
			latest = &t
		}
	}
	return latest, nil
}

func (s *InMemoryStore) DeleteByIdentity(_ context.Context, identityKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rows[identityKey])
	delete(s.rows, identityKey)
	return n, nil
}

// PurgeExpired drops rows older than attemptCutoff whose lock (if any) ended by now.
func (s *InMemoryStore) PurgeExpired(_ context.Context, attemptCutoff, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, rows := range s.rows {
		kept := rows[:0]
		for _, a := range rows {
			if a.At.Before(attemptCutoff) && (a.LockedUntil == nil || !a.LockedUntil.After(now)) {
				purged++
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) == 0 {
			delete(s.rows, key)
		} else {
			s.rows[key] = kept
		}
	}
	return purged, nil
}
