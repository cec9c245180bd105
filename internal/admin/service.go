// Package admin serves the staff dashboard: workflow counts and account
// activation.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	activity "lostfound/internal/activity/models"
	profile "lostfound/internal/profile/models"
	workflow "lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/requestcontext"
)

// WorkflowReader is satisfied by the workflow stores.
type WorkflowReader interface {
	ListItems(ctx context.Context, filter workflow.ItemFilter) ([]*workflow.LostItem, error)
	ListClaims(ctx context.Context, filter workflow.ClaimFilter) ([]*workflow.Claim, error)
}

type ProfileManager interface {
	Get(ctx context.Context, userID id.UserID) (*profile.Profile, error)
	SetStatus(ctx context.Context, userID id.UserID, status profile.AccountStatus) (*profile.Profile, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, recs ...*activity.Record) error
}

// Service provides admin-level operations for monitoring and management
type Service struct {
	workflow WorkflowReader
	profiles ProfileManager
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewService(workflow WorkflowReader, profiles ProfileManager, recorder ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{workflow: workflow, profiles: profiles, activity: recorder, logger: logger}
}

// Stats contains overall workflow statistics
type Stats struct {
	Items         map[workflow.ItemStatus]int `json:"items"`
	PendingClaims int                         `json:"pending_claims"`
	Timestamp     time.Time                   `json:"timestamp"`
}

// GetStats counts items per status and claims still waiting for a decision.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	items, err := s.workflow.ListItems(ctx, workflow.ItemFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count items")
	}
	claims, err := s.workflow.ListClaims(ctx, workflow.ClaimFilter{Status: workflow.ClaimPending})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count claims")
	}

	stats := &Stats{
		Items: map[workflow.ItemStatus]int{
			workflow.ItemPending:  0,
			workflow.ItemVerified: 0,
			workflow.ItemRejected: 0,
			workflow.ItemClaimed:  0,
		},
		PendingClaims: len(claims),
		Timestamp:     requesttime.Now(ctx),
	}
	for _, item := range items {
		stats.Items[item.Status]++
	}
	return stats, nil
}

// SetAccountStatus activates or deactivates a user. The change is written to
// the audit log and addressed to the user so it also shows in their feed.
func (s *Service) SetAccountStatus(ctx context.Context, admin requestcontext.Principal, userID id.UserID, status profile.AccountStatus) (*profile.Profile, error) {
	if !admin.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "staff only")
	}
	if admin.UserID == userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "admins cannot change their own account status")
	}
	before, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	after, err := s.profiles.SetStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	if before.Status == after.Status {
		return after, nil
	}

	rec := activity.Audit(activity.KindAccountStatusChanged, admin.UserID, userID,
		fmt.Sprintf("Your account is now %s.", status))
	// The profile change is already saved; a lost record must not undo it.
	if err := s.activity.Record(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to record account status change",
			"error", err,
			"user_id", userID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return after, nil
}
