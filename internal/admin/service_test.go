package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	activity "lostfound/internal/activity/models"
	activityservice "lostfound/internal/activity/service"
	activitystore "lostfound/internal/activity/store"
	profile "lostfound/internal/profile/models"
	profileservice "lostfound/internal/profile/service"
	profilestore "lostfound/internal/profile/store"
	workflow "lostfound/internal/workflow/models"
	workflowstore "lostfound/internal/workflow/store"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/testutil"
)

type AdminServiceSuite struct {
	suite.Suite
	ctx      context.Context
	items    *workflowstore.InMemoryStore
	profiles *profileservice.Service
	activity *activityservice.Service
	service  *Service
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requesttime.WithTime(context.Background(), time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC))
	s.items = workflowstore.NewInMemory()

	var err error
	s.profiles, err = profileservice.New(profilestore.NewInMemory(), profileservice.WithLogger(logger))
	s.Require().NoError(err)
	s.activity, err = activityservice.New(activitystore.NewInMemory(), activityservice.WithLogger(logger))
	s.Require().NoError(err)
	s.service = NewService(s.items, s.profiles, s.activity, logger)
}

func (s *AdminServiceSuite) saveItem(status workflow.ItemStatus) *workflow.LostItem {
	item := &workflow.LostItem{ID: id.NewItemID(), Type: "umbrella", Status: status, ReporterID: testutil.TestIDs.ReporterID}
	s.Require().NoError(s.items.SaveItem(s.ctx, item))
	return item
}

func (s *AdminServiceSuite) TestGetStats() {
	s.saveItem(workflow.ItemPending)
	s.saveItem(workflow.ItemPending)
	verified := s.saveItem(workflow.ItemVerified)
	s.saveItem(workflow.ItemClaimed)
	s.Require().NoError(s.items.SaveClaim(s.ctx, &workflow.Claim{
		ID: id.NewClaimID(), ItemID: verified.ID, ClaimantID: testutil.TestIDs.ClaimantID,
		Code: "LF-AAAA0000", Status: workflow.ClaimPending,
	}))

	stats, err := s.service.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Items[workflow.ItemPending])
	s.Equal(1, stats.Items[workflow.ItemVerified])
	s.Equal(0, stats.Items[workflow.ItemRejected])
	s.Equal(1, stats.Items[workflow.ItemClaimed])
	s.Equal(1, stats.PendingClaims)
}

func (s *AdminServiceSuite) TestSetAccountStatus() {
	finder, err := s.profiles.Create(s.ctx, testutil.TestIDs.OtherID, "other@campus.edu", "Other", profile.RoleFinder)
	s.Require().NoError(err)

	s.Run("deactivation is recorded in the user's feed", func() {
		p, err := s.service.SetAccountStatus(s.ctx, testutil.Admin(), finder.UserID, profile.StatusInactive)
		s.Require().NoError(err)
		s.Equal(profile.StatusInactive, p.Status)

		feed, err := s.activity.Notifications(s.ctx, finder.UserID)
		s.Require().NoError(err)
		s.Require().Len(feed, 1)
		s.Equal(activity.KindAccountStatusChanged, feed[0].Kind)
		s.Equal(activity.AudienceAdmin, feed[0].Audience)
	})

	s.Run("repeating the same status records nothing", func() {
		_, err := s.service.SetAccountStatus(s.ctx, testutil.Admin(), finder.UserID, profile.StatusInactive)
		s.Require().NoError(err)

		feed, err := s.activity.Notifications(s.ctx, finder.UserID)
		s.Require().NoError(err)
		s.Len(feed, 1)
	})

	s.Run("finders cannot change accounts", func() {
		_, err := s.service.SetAccountStatus(s.ctx, testutil.Finder(testutil.TestIDs.ClaimantID), finder.UserID, profile.StatusActive)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admins cannot lock themselves out", func() {
		_, err := s.service.SetAccountStatus(s.ctx, testutil.Admin(), testutil.TestIDs.AdminID, profile.StatusInactive)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown user", func() {
		_, err := s.service.SetAccountStatus(s.ctx, testutil.Admin(), id.NewUserID(), profile.StatusInactive)
		s.True(dErrors.HasCode(err, dErrors.CodeProfileNotFound))
	})
}
