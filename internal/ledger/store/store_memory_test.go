package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lostfound/internal/ledger/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) add(key string, ago time.Duration, lockFor time.Duration) {
	a := &models.Attempt{IdentityKey: key, At: s.now.Add(-ago)}
	if lockFor > 0 {
		until := a.At.Add(lockFor)
		a.LockedUntil = &until
	}
	s.Require().NoError(s.store.Append(s.ctx, a))
}

func (s *InMemoryStoreSuite) TestCountFailuresSince() {
	s.add("a@x", 10*time.Minute, 0)
	s.add("a@x", 2*time.Minute, 0)
	s.add("a@x", time.Minute, 0)
	s.add("b@x", time.Minute, 0)
	s.Require().NoError(s.store.Append(s.ctx, &models.Attempt{IdentityKey: "a@x", At: s.now, Successful: true}))

	n, err := s.store.CountFailuresSince(s.ctx, "a@x", s.now.Add(-5*time.Minute))
	s.Require().NoError(err)
	s.Equal(2, n, "old failures, successes and other identities are excluded")
}

func (s *InMemoryStoreSuite) TestLatestLockUntil() {
	until, err := s.store.LatestLockUntil(s.ctx, "a@x")
	s.Require().NoError(err)
	s.Nil(until)

	s.add("a@x", 20*time.Minute, 5*time.Minute)
	s.add("a@x", time.Minute, 5*time.Minute)

	until, err = s.store.LatestLockUntil(s.ctx, "a@x")
	s.Require().NoError(err)
	s.Require().NotNil(until)
	s.True(s.now.Add(4 * time.Minute).Equal(*until))
}

func (s *InMemoryStoreSuite) TestDeleteByIdentity() {
	s.add("a@x", time.Minute, 0)
	s.add("a@x", time.Minute, 0)
	s.add("b@x", time.Minute, 0)

	n, err := s.store.DeleteByIdentity(s.ctx, "a@x")
	s.Require().NoError(err)
	s.Equal(2, n)

	left, _ := s.store.CountFailuresSince(s.ctx, "b@x", s.now.Add(-time.Hour))
	s.Equal(1, left)
}

func (s *InMemoryStoreSuite) TestPurgeExpired() {
	s.add("a@x", 30*time.Minute, 0)              // old, purged
	s.add("a@x", 30*time.Minute, time.Hour)      // old but still locked, kept
	s.add("a@x", time.Minute, 0)                 // recent, kept
	s.add("b@x", 30*time.Minute, 10*time.Minute) // old, lock ended, purged

	n, err := s.store.PurgeExpired(s.ctx, s.now.Add(-5*time.Minute), s.now)
	s.Require().NoError(err)
	s.Equal(2, n)

	until, _ := s.store.LatestLockUntil(s.ctx, "a@x")
	s.NotNil(until)
	none, _ := s.store.LatestLockUntil(s.ctx, "b@x")
	s.Nil(none)
}
