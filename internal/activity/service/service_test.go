package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"lostfound/internal/activity/models"
	"lostfound/internal/activity/store"
	"lostfound/internal/platform/metrics"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/requestcontext"
)

type recordingForwarder struct {
	got []*models.Record
}

func (f *recordingForwarder) Forward(_ context.Context, rec *models.Record) {
	f.got = append(f.got, rec)
}

type brokenStore struct {
	*store.InMemoryStore
}

func (brokenStore) Append(context.Context, []*models.Record) error {
	return errors.New("disk full")
}

type ActivityServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	forwarder *recordingForwarder
	metrics   *metrics.Metrics
	service   *Service
	now       time.Time
	finder    id.UserID
	owner     id.UserID
	admin     requestcontext.Principal
}

func TestActivityServiceSuite(t *testing.T) {
	suite.Run(t, new(ActivityServiceSuite))
}

func (s *ActivityServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.forwarder = &recordingForwarder{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	var err error
	s.service, err = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithForwarder(s.forwarder),
		WithConfig(Config{DefaultAuditLimit: 2, MaxAuditLimit: 3}),
	)
	s.Require().NoError(err)
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.finder = id.NewUserID()
	s.owner = id.NewUserID()
	s.admin = requestcontext.Principal{UserID: id.NewUserID(), Role: "admin"}
}

func (s *ActivityServiceSuite) at(offset time.Duration) context.Context {
	return requesttime.WithTime(context.Background(), s.now.Add(offset))
}

func (s *ActivityServiceSuite) TestRecordStampsAndForwards() {
	item := id.NewItemID()
	rec := models.Notify(s.finder, models.KindItemVerified, s.admin.UserID, "your report was verified").About(item, id.ClaimID{})
	audit := models.Audit(models.KindItemVerified, s.admin.UserID, s.finder, "item verified").About(item, id.ClaimID{})

	s.Require().NoError(s.service.Record(s.at(0), rec, audit))

	s.False(rec.ID.IsNil())
	s.True(s.now.Equal(rec.CreatedAt))
	s.Len(s.forwarder.got, 2)
	s.InDelta(1, testutil.ToFloat64(s.metrics.ActivityRecorded.WithLabelValues("user")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.ActivityRecorded.WithLabelValues("admin")), 0)
}

func (s *ActivityServiceSuite) TestRecordRejectsNotificationWithoutRecipient() {
	err := s.service.Record(s.at(0), models.Notify(id.UserID{}, models.KindClaimApproved, s.admin.UserID, "x"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	s.Empty(s.forwarder.got)
}

func (s *ActivityServiceSuite) TestRecordStoreFailureIsNotForwarded() {
	svc, err := New(brokenStore{s.store}, WithForwarder(s.forwarder))
	s.Require().NoError(err)
	err = svc.Record(s.at(0), models.Audit(models.KindItemReported, s.finder, id.UserID{}, "reported"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Empty(s.forwarder.got)
}

func (s *ActivityServiceSuite) TestUnreadCountAndAck() {
	s.Require().NoError(s.service.Record(s.at(0), models.Notify(s.owner, models.KindClaimSubmitted, s.finder, "new claim")))
	s.Require().NoError(s.service.Record(s.at(time.Minute), models.Notify(s.owner, models.KindClaimApproved, s.admin.UserID, "approved")))
	s.Require().NoError(s.service.Record(s.at(time.Minute), models.Notify(s.finder, models.KindClaimApproved, s.admin.UserID, "approved")))

	n, err := s.service.UnreadCount(s.at(2*time.Minute), s.owner)
	s.Require().NoError(err)
	s.Equal(2, n)

	acked, err := s.service.Ack(s.at(2*time.Minute), s.owner)
	s.Require().NoError(err)
	s.Equal(2, acked)

	s.Run("viewed time is set once", func() {
		acked, err := s.service.Ack(s.at(time.Hour), s.owner)
		s.Require().NoError(err)
		s.Zero(acked)

		feed, err := s.service.Notifications(s.at(time.Hour), s.owner)
		s.Require().NoError(err)
		s.Require().Len(feed, 2)
		s.True(s.now.Add(2 * time.Minute).Equal(*feed[0].ViewedAt))
	})

	s.Run("other users are untouched", func() {
		n, err := s.service.UnreadCount(s.at(time.Hour), s.finder)
		s.Require().NoError(err)
		s.Equal(1, n)
	})
}

func (s *ActivityServiceSuite) TestClearScopesAreIndependent() {
	s.Require().NoError(s.service.Record(s.at(0),
		models.Notify(s.finder, models.KindItemVerified, s.admin.UserID, "verified"),
		models.Audit(models.KindItemVerified, s.admin.UserID, s.finder, "verified"),
	))

	n, err := s.service.Clear(s.at(time.Minute), models.ScopeAdmin, s.admin)
	s.Require().NoError(err)
	s.Equal(2, n)

	log, err := s.service.AuditLog(s.at(time.Minute), models.AuditFilter{})
	s.Require().NoError(err)
	s.Empty(log)

	feed, err := s.service.Notifications(s.at(time.Minute), s.finder)
	s.Require().NoError(err)
	s.Len(feed, 2, "admin clear leaves the user's feed")

	n, err = s.service.Clear(s.at(time.Minute), models.ScopeUser, requestcontext.Principal{UserID: s.finder, Role: "finder"})
	s.Require().NoError(err)
	s.Equal(2, n)
	feed, err = s.service.Notifications(s.at(time.Minute), s.finder)
	s.Require().NoError(err)
	s.Empty(feed)
}

func (s *ActivityServiceSuite) TestClearAdminScopeRequiresAdmin() {
	_, err := s.service.Clear(s.at(0), models.ScopeAdmin, requestcontext.Principal{UserID: s.finder, Role: "finder"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Clear(s.at(0), models.ClearScope("everyone"), s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ActivityServiceSuite) TestClearKeepsLaterRecords() {
	s.Require().NoError(s.service.Record(s.at(0), models.Audit(models.KindItemReported, s.finder, id.UserID{}, "first")))
	_, err := s.service.Clear(s.at(time.Minute), models.ScopeAdmin, s.admin)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Record(s.at(2*time.Minute), models.Audit(models.KindItemReported, s.finder, id.UserID{}, "second")))

	log, err := s.service.AuditLog(s.at(3*time.Minute), models.AuditFilter{})
	s.Require().NoError(err)
	s.Require().Len(log, 1)
	s.Equal("second", log[0].Message)
}

func (s *ActivityServiceSuite) TestAuditLogFiltersAndLimits() {
	item := id.NewItemID()
	for i := range 4 {
		rec := models.Audit(models.KindItemReported, s.finder, id.UserID{}, "reported")
		if i == 0 {
			rec.About(item, id.ClaimID{})
		}
		s.Require().NoError(s.service.Record(s.at(time.Duration(i)*time.Minute), rec))
	}
	s.Require().NoError(s.service.Record(s.at(10*time.Minute), models.Audit(models.KindClaimSubmitted, s.owner, id.UserID{}, "claim")))

	s.Run("default limit, newest first", func() {
		log, err := s.service.AuditLog(s.at(time.Hour), models.AuditFilter{})
		s.Require().NoError(err)
		s.Require().Len(log, 2)
		s.Equal(models.KindClaimSubmitted, log[0].Kind)
	})

	s.Run("limit clamped to max", func() {
		log, err := s.service.AuditLog(s.at(time.Hour), models.AuditFilter{Limit: 50})
		s.Require().NoError(err)
		s.Len(log, 3)
	})

	s.Run("by kind and item", func() {
		log, err := s.service.AuditLog(s.at(time.Hour), models.AuditFilter{Kind: models.KindItemReported, ItemID: item})
		s.Require().NoError(err)
		s.Require().Len(log, 1)
		s.Equal(item, log[0].ItemID)
	})

	s.Run("bad filter", func() {
		_, err := s.service.AuditLog(s.at(time.Hour), models.AuditFilter{Kind: "exploded"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.service.AuditLog(s.at(time.Hour), models.AuditFilter{Since: s.now, Until: s.now})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
