// Package store persists items and claims.
//
// Error contract:
//   - lookups return sentinel.ErrNotFound when the row does not exist
//   - transitions return sentinel.ErrConflict when the row is not in the expected status
//   - SaveClaim returns sentinel.ErrConflict for a second pending claim on the
//     same (item, claimant) pair and ErrDuplicateCode when the code is taken
package store

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/platform/sentinel"
)

// ErrDuplicateCode means the claim code collided and should be regenerated.
var ErrDuplicateCode = errors.New("claim code already issued")

type InMemoryStore struct {
	mu     sync.RWMutex
	items  map[id.ItemID]*models.LostItem
	claims map[id.ClaimID]*models.Claim
	codes  map[string]id.ClaimID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		items:  make(map[id.ItemID]*models.LostItem),
		claims: make(map[id.ClaimID]*models.Claim),
		codes:  make(map[string]id.ClaimID),
	}
}

func (s *InMemoryStore) SaveItem(_ context.Context, item *models.LostItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *InMemoryStore) FindItem(_ context.Context, itemID id.ItemID) (*models.LostItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyItem(item), nil
}

func (s *InMemoryStore) ListItems(_ context.Context, filter models.ItemFilter) ([]*models.LostItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LostItem
	for _, item := range s.items {
		if filter.Matches(item) {
			out = append(out, copyItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) TransitionItem(_ context.Context, itemID id.ItemID, from, to models.ItemStatus, by id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.Status != from {
		return sentinel.ErrConflict
	}
	item.Status = to
	item.DecidedBy = by
	item.DecidedAt = &at
	return nil
}

func (s *InMemoryStore) SaveClaim(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[claim.Code]; taken {
		return ErrDuplicateCode
	}
	if claim.Status == models.ClaimPending {
		for _, c := range s.claims {
			if c.ItemID == claim.ItemID && c.ClaimantID == claim.ClaimantID && c.Status == models.ClaimPending {
				return sentinel.ErrConflict
			}
		}
	}
	s.claims[claim.ID] = copyClaim(claim)
	s.codes[claim.Code] = claim.ID
	return nil
}

func (s *InMemoryStore) FindClaim(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyClaim(c), nil
}

func (s *InMemoryStore) FindClaimByCode(_ context.Context, code string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claimID, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyClaim(s.claims[claimID]), nil
}

func (s *InMemoryStore) ListClaims(_ context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if filter.Matches(c) {
			out = append(out, copyClaim(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) TransitionClaim(_ context.Context, claimID id.ClaimID, from, to models.ClaimStatus, by id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Status != from {
		return sentinel.ErrConflict
	}
	c.Status = to
	c.DecidedBy = by
	c.DecidedAt = &at
	return nil
}

func copyItem(item *models.LostItem) *models.LostItem {
	cp := *item
	cp.Questions = slices.Clone(item.Questions)
	if item.DecidedAt != nil {
		t := *item.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}

func copyClaim(c *models.Claim) *models.Claim {
	cp := *c
	cp.Answers = slices.Clone(c.Answers)
	if c.DecidedAt != nil {
		t := *c.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}
