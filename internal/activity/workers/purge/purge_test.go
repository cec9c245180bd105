package purge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lostfound/internal/activity/models"
	"lostfound/internal/activity/store"
	id "lostfound/pkg/domain"
)

type stubStore struct {
	cutoff time.Time
	err    error
}

func (m *stubStore) PurgeCleared(_ context.Context, cutoff time.Time) (int, error) {
	m.cutoff = cutoff
	return 2, m.err
}

type PurgeWorkerSuite struct {
	suite.Suite
	now time.Time
}

func TestPurgeWorkerSuite(t *testing.T) {
	suite.Run(t, new(PurgeWorkerSuite))
}

func (s *PurgeWorkerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PurgeWorkerSuite) clock() time.Time { return s.now }

func (s *PurgeWorkerSuite) TestRunOnceUsesRetentionCutoff() {
	m := &stubStore{}
	res, err := New(m, 24*time.Hour, WithClock(s.clock)).RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, res.Purged)
	s.True(s.now.Add(-24 * time.Hour).Equal(m.cutoff))
}

func (s *PurgeWorkerSuite) TestRunOncePropagatesErrors() {
	_, err := New(&stubStore{err: errors.New("db down")}, time.Hour).RunOnce(context.Background())
	s.Error(err)
}

func (s *PurgeWorkerSuite) TestOnlyFullyClearedRecordsArePurged() {
	ctx := context.Background()
	mem := store.NewInMemory()
	old := s.now.Add(-48 * time.Hour)
	user := id.NewUserID()

	both := models.Notify(user, models.KindClaimApproved, id.UserID{}, "approved")
	both.ID, both.CreatedAt, both.AdminCleared, both.UserCleared = id.NewActivityID(), old, true, true
	adminOnly := models.Notify(user, models.KindClaimRejected, id.UserID{}, "rejected")
	adminOnly.ID, adminOnly.CreatedAt, adminOnly.AdminCleared = id.NewActivityID(), old, true
	noRecipient := models.Audit(models.KindItemReported, user, id.UserID{}, "reported")
	noRecipient.ID, noRecipient.CreatedAt, noRecipient.AdminCleared = id.NewActivityID(), old, true
	recent := models.Audit(models.KindItemReported, user, id.UserID{}, "reported")
	recent.ID, recent.CreatedAt, recent.AdminCleared = id.NewActivityID(), s.now, true
	s.Require().NoError(mem.Append(ctx, []*models.Record{both, adminOnly, noRecipient, recent}))

	res, err := New(mem, 24*time.Hour, WithClock(s.clock)).RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(2, res.Purged)

	feed, err := mem.ListByRecipient(ctx, user)
	s.Require().NoError(err)
	s.Require().Len(feed, 1)
	s.Equal(adminOnly.ID, feed[0].ID)
}

func (s *PurgeWorkerSuite) TestStartStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&stubStore{}, time.Hour, WithInterval(time.Hour)).Start(ctx)
	s.ErrorIs(err, context.Canceled)
}
