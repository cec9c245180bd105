// Package store holds the durable auth flow flags. Flags are authoritative;
// the broadcast bus only speeds up notification.
package store

import (
	"context"
	"sync"
	"time"

	"lostfound/internal/crosstab/models"
	id "lostfound/pkg/domain"
)

type memoryEntry struct {
	flag      models.Flag
	expiresAt time.Time
}

// InMemoryStore keeps one flag per owning tab, each with its own expiry.
// Expired flags read as absent.
type InMemoryStore struct {
	mu    sync.Mutex
	flags map[id.TabID]memoryEntry
	now   func() time.Time
}

type MemoryOption func(*InMemoryStore)

// WithClock overrides time.Now for staleness checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{flags: make(map[id.TabID]memoryEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the most recently set live flag, or nil when none is live.
func (s *InMemoryStore) Get(_ context.Context) (*models.Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var latest *models.Flag
	for tab, e := range s.flags {
		if !now.Before(e.expiresAt) {
			delete(s.flags, tab)
			continue
		}
		if latest == nil || e.flag.SetAt.After(latest.SetAt) {
			cp := e.flag
			latest = &cp
		}
	}
	return latest, nil
}

// Set writes the flag under its origin tab, replacing only that tab's entry.
func (s *InMemoryStore) Set(_ context.Context, flag models.Flag, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[flag.OriginTab] = memoryEntry{flag: flag, expiresAt: s.now().Add(ttl)}
	return nil
}

// Refresh extends the TTL of tab's own flag while it is still live.
func (s *InMemoryStore) Refresh(_ context.Context, tab id.TabID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(tab)
	if !ok {
		return false, nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.flags[tab] = e
	return true, nil
}

// ClearIfOwner removes tab's own flag. Flags held by other tabs stay.
func (s *InMemoryStore) ClearIfOwner(_ context.Context, tab id.TabID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liveLocked(tab)
	delete(s.flags, tab)
	return ok, nil
}

func (s *InMemoryStore) liveLocked(tab id.TabID) (memoryEntry, bool) {
	e, ok := s.flags[tab]
	if !ok || !s.now().Before(e.expiresAt) {
		return memoryEntry{}, false
	}
	return e, true
}
