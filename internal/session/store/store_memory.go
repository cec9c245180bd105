// Package store persists the last allow-listed route of a browser profile.
package store

import (
	"context"
	"fmt"
	"sync"

	"lostfound/internal/session/models"
)

// InMemoryStore holds the route for tests and single-process runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	route models.Route
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// Load returns RouteNone when nothing is saved.
func (s *InMemoryStore) Load(_ context.Context) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route, nil
}

func (s *InMemoryStore) Save(_ context.Context, route models.Route) error {
	if !route.Persistable() {
		return fmt.Errorf("route %q is not persistable", route)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = route
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = models.RouteNone
	return nil
}
