package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"lostfound/internal/profile/models"
	"lostfound/internal/profile/store"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

type ProfileServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func TestProfileServiceSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceSuite))
}

func (s *ProfileServiceSuite) SetupTest() {
	var err error
	s.service, err = New(store.NewInMemory(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *ProfileServiceSuite) TestResolveRole() {
	finder, err := s.service.Create(s.ctx, id.NewUserID(), "Finder@Campus.edu", "Fin", "")
	s.Require().NoError(err)
	s.Equal("finder@campus.edu", finder.Email)

	s.Run("active finder", func() {
		role, err := s.service.ResolveRole(s.ctx, finder.UserID)
		s.Require().NoError(err)
		s.Equal("finder", role)
	})

	s.Run("missing profile", func() {
		_, err := s.service.ResolveRole(s.ctx, id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeProfileNotFound))
	})

	s.Run("inactive account carries a remedy", func() {
		_, err := s.service.SetStatus(s.ctx, finder.UserID, models.StatusInactive)
		s.Require().NoError(err)

		_, err = s.service.ResolveRole(s.ctx, finder.UserID)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountInactive))
		var de *dErrors.Error
		s.Require().ErrorAs(err, &de)
		s.Equal(InactiveRemedy, de.Remedy)
	})
}

func (s *ProfileServiceSuite) TestCreateRejectsUnknownRole() {
	_, err := s.service.Create(s.ctx, id.NewUserID(), "x@campus.edu", "", models.Role("janitor"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ProfileServiceSuite) TestAdminsSkipsInactiveStaff() {
	active, err := s.service.Create(s.ctx, id.NewUserID(), "a@campus.edu", "", models.RoleAdmin)
	s.Require().NoError(err)
	retired, err := s.service.Create(s.ctx, id.NewUserID(), "b@campus.edu", "", models.RoleAdmin)
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, id.NewUserID(), "c@campus.edu", "", models.RoleFinder)
	s.Require().NoError(err)

	_, err = s.service.SetStatus(s.ctx, retired.UserID, models.StatusInactive)
	s.Require().NoError(err)

	admins, err := s.service.Admins(s.ctx)
	s.Require().NoError(err)
	s.Equal([]id.UserID{active.UserID}, admins)
}
