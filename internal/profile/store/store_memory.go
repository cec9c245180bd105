// Package store persists profiles.
package store

import (
	"context"
	"sort"
	"sync"

	"lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.Profile
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]models.Profile)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Save inserts or replaces the profile.
func (s *InMemoryStore) Save(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = *p
	return nil
}

func (s *InMemoryStore) ListAdmins(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var admins []models.Profile
	for _, p := range s.profiles {
		if p.IsAdmin() && p.IsActive() {
			admins = append(admins, p)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	out := make([]id.UserID, len(admins))
	for i, p := range admins {
		out[i] = p.UserID
	}
	return out, nil
}
