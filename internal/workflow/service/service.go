// Package service runs the item and claim lifecycle: reporting, admin
// verification, claim submission and claim decisions. Every status change and
// the activity records it produces commit together.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	activity "lostfound/internal/activity/models"
	"lostfound/internal/platform/metrics"
	"lostfound/internal/workflow/guard"
	"lostfound/internal/workflow/models"
	"lostfound/internal/workflow/store"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
	"lostfound/pkg/platform/sanitize"
	"lostfound/pkg/platform/sentinel"
	"lostfound/pkg/platform/tracer"
	"lostfound/pkg/requestcontext"
	"lostfound/pkg/validation"
)

// Store persists items and claims.
// Error contract:
//   - Find* return sentinel.ErrNotFound when the row does not exist
//   - Transition* return sentinel.ErrConflict when the row left the expected status
//   - SaveClaim returns sentinel.ErrConflict for a second pending claim on one
//     (item, claimant) pair and store.ErrDuplicateCode on a code collision
type Store interface {
	SaveItem(ctx context.Context, item *models.LostItem) error
	FindItem(ctx context.Context, itemID id.ItemID) (*models.LostItem, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]*models.LostItem, error)
	TransitionItem(ctx context.Context, itemID id.ItemID, from, to models.ItemStatus, by id.UserID, at time.Time) error
	SaveClaim(ctx context.Context, claim *models.Claim) error
	FindClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	FindClaimByCode(ctx context.Context, code string) (*models.Claim, error)
	ListClaims(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error)
	TransitionClaim(ctx context.Context, claimID id.ClaimID, from, to models.ClaimStatus, by id.UserID, at time.Time) error
}

// Guard rejects an action key while an earlier call holding it is running.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ActivityRecorder stores notifications and audit records.
type ActivityRecorder interface {
	Record(ctx context.Context, recs ...*activity.Record) error
}

// Guarded action names.
const (
	ActionVerifyItem  = "verify_item"
	ActionDecideClaim = "decide_claim"
	ActionSubmitClaim = "submit_claim"
)

const maxCodeAttempts = 3

type Service struct {
	store    Store
	tx       StoreTx
	guard    Guard
	activity ActivityRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithTx replaces the default in-process per-item lock, e.g. with a database transaction.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithGuard replaces the default in-process guard, e.g. with a Redis one.
func WithGuard(g Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

func New(st Store, recorder ActivityRecorder, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("workflow store is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("activity recorder is required")
	}
	svc := &Service{
		store:    st,
		activity: recorder,
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = NewShardedTx(st, svc.metrics)
	}
	if svc.guard == nil {
		svc.guard = guard.NewInMemory(guard.DefaultTTL)
	}
	return svc, nil
}

// ReportItem stores a new pending item for admin review.
func (s *Service) ReportItem(ctx context.Context, reporter requestcontext.Principal, in models.NewItem) (item *models.LostItem, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanReportItem)
	defer func() { span.End(err) }()

	if reporter.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign in to report an item")
	}
	in.Type = sanitize.PlainText(in.Type)
	in.Description = sanitize.PlainText(in.Description)
	in.Location = sanitize.PlainText(in.Location)
	for i := range in.Questions {
		in.Questions[i].Question = sanitize.PlainText(in.Questions[i].Question)
		in.Questions[i].Answer = sanitize.PlainText(in.Questions[i].Answer)
	}
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	now := requesttime.Now(ctx)
	item = &models.LostItem{
		ID:          id.NewItemID(),
		Type:        in.Type,
		Description: in.Description,
		Location:    in.Location,
		FoundAt:     in.FoundAt.UTC(),
		PhotoRef:    in.PhotoRef,
		Questions:   in.Questions,
		ReporterID:  reporter.UserID,
		Status:      models.ItemPending,
		CreatedAt:   now,
	}
	span.SetAttributes(tracer.String(tracer.AttrItemID, item.ID.String()))

	err = s.tx.RunInTx(ctx, item.ID.String(), func(ctx context.Context, st Store) error {
		if err := st.SaveItem(ctx, item); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save item")
		}
		return s.record(ctx, span,
			activity.Audit(activity.KindItemReported, reporter.UserID, id.UserID{},
				fmt.Sprintf("%s reported at %s", item.Type, item.Location)).About(item.ID, id.ClaimID{}),
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncItemsReported()
	s.logger.InfoContext(ctx, "item reported",
		"event", "item_reported",
		"item_id", item.ID.String(),
		"reporter_id", reporter.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return item, nil
}

// ListItems returns items in status, newest first. Staff see everything.
// Other callers see verified and claimed items from everyone, and items in
// any other status only when they reported them; security answers are
// stripped from items they did not report.
func (s *Service) ListItems(ctx context.Context, viewer requestcontext.Principal, status models.ItemStatus) ([]*models.LostItem, error) {
	if status != "" && !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be one of pending, verified, rejected, claimed")
	}
	filter := models.ItemFilter{Status: status}
	if !viewer.IsAdmin() && status != models.ItemVerified && status != models.ItemClaimed {
		if viewer.UserID.IsNil() {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "sign in to see your reports")
		}
		filter.ReporterID = viewer.UserID
	}
	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	if viewer.IsAdmin() {
		return items, nil
	}
	for i, item := range items {
		if item.ReporterID != viewer.UserID {
			items[i] = item.Public()
		}
	}
	return items, nil
}

// GetItem applies the visibility rules of ListItems to one item.
func (s *Service) GetItem(ctx context.Context, viewer requestcontext.Principal, itemID id.ItemID) (*models.LostItem, error) {
	item, err := s.store.FindItem(ctx, itemID)
	if err != nil {
		return nil, storeError(err, "item not found", "failed to load item")
	}
	switch {
	case viewer.IsAdmin(), item.ReporterID == viewer.UserID && !viewer.UserID.IsNil():
		return item, nil
	case item.Status == models.ItemVerified || item.Status == models.ItemClaimed:
		return item.Public(), nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
}

// VerifyItem moves a pending item to verified or rejected, notifying the
// reporter and writing one audit record for staff.
func (s *Service) VerifyItem(ctx context.Context, admin requestcontext.Principal, itemID id.ItemID, decision models.Decision) (item *models.LostItem, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyItem,
		tracer.String(tracer.AttrItemID, itemID.String()),
		tracer.Bool(tracer.AttrApprove, bool(decision)),
	)
	defer func() { span.End(err) }()

	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, ActionVerifyItem, itemID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := decision.ItemOutcome()
	err = s.tx.RunInTx(ctx, itemID.String(), func(ctx context.Context, st Store) error {
		found, err := st.FindItem(ctx, itemID)
		if err != nil {
			return storeError(err, "item not found", "failed to load item")
		}
		if found.Status != models.ItemPending {
			return alreadyTransitioned("item", string(found.Status))
		}
		now := requesttime.Now(ctx)
		if err := st.TransitionItem(ctx, itemID, models.ItemPending, outcome, admin.UserID, now); err != nil {
			return storeError(err, "item not found", "failed to update item")
		}
		found.Status, found.DecidedBy, found.DecidedAt = outcome, admin.UserID, &now
		item = found

		kind, notice := activity.KindItemVerified, fmt.Sprintf("Your %s report was verified and is now listed.", item.Type)
		if decision == models.Reject {
			kind, notice = activity.KindItemRejected, fmt.Sprintf("Your %s report was not accepted.", item.Type)
		}
		return s.record(ctx, span,
			activity.Notify(item.ReporterID, kind, admin.UserID, notice).About(item.ID, id.ClaimID{}),
			activity.Audit(kind, admin.UserID, id.UserID{}, fmt.Sprintf("item %s %s", item.ID, outcome)).About(item.ID, id.ClaimID{}),
		)
	})
	if err != nil {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(dErrors.CodeOf(err))))
		return nil, err
	}

	s.metrics.IncTransition("item", string(outcome))
	s.logger.InfoContext(ctx, "item decided",
		"event", "item_"+string(outcome),
		"log_type", "audit",
		"item_id", itemID.String(),
		"admin_id", admin.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return item, nil
}

// SubmitClaim opens a pending claim with a fresh claim code. The reporter
// cannot claim their own item and a claimant holds at most one pending
// claim per item.
func (s *Service) SubmitClaim(ctx context.Context, claimant requestcontext.Principal, in models.NewClaim) (claim *models.Claim, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmitClaim, tracer.String(tracer.AttrItemID, in.ItemID.String()))
	defer func() { span.End(err) }()

	if claimant.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign in to claim an item")
	}
	sanitize.PlainTextAll(in.Answers)
	in.ProofPhotoRef = sanitize.PlainText(in.ProofPhotoRef)
	if err := validation.Validate(in); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, ActionSubmitClaim, in.ItemID.String()+":"+claimant.UserID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.tx.RunInTx(ctx, in.ItemID.String(), func(ctx context.Context, st Store) error {
		item, err := st.FindItem(ctx, in.ItemID)
		if err != nil {
			return storeError(err, "item not found", "failed to load item")
		}
		if item.ReporterID == claimant.UserID {
			return dErrors.New(dErrors.CodeSelfClaim, "you reported this item and cannot claim it")
		}
		switch {
		case item.OpenForClaims():
		case item.Status == models.ItemPending:
			return dErrors.New(dErrors.CodeNotFound, "item not found")
		default:
			return alreadyTransitioned("item", string(item.Status))
		}
		if err := validation.CheckCount("answers", len(in.Answers), len(item.Questions)); err != nil {
			return err
		}
		pending, err := st.ListClaims(ctx, models.ClaimFilter{ItemID: item.ID, ClaimantID: claimant.UserID, Status: models.ClaimPending})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing claims")
		}
		if len(pending) > 0 {
			return duplicatePending()
		}

		claim, err = s.saveClaim(ctx, st, &models.Claim{
			ID:            id.NewClaimID(),
			ItemID:        item.ID,
			ClaimantID:    claimant.UserID,
			Answers:       in.Answers,
			ProofPhotoRef: in.ProofPhotoRef,
			Status:        models.ClaimPending,
			CreatedAt:     requesttime.Now(ctx),
		})
		if err != nil {
			return err
		}
		span.SetAttributes(tracer.String(tracer.AttrClaimID, claim.ID.String()))
		return s.record(ctx, span,
			activity.Notify(item.ReporterID, activity.KindClaimSubmitted, claimant.UserID,
				fmt.Sprintf("Someone has claimed the %s you reported.", item.Type)).About(item.ID, claim.ID),
			activity.Audit(activity.KindClaimSubmitted, claimant.UserID, id.UserID{},
				fmt.Sprintf("claim %s submitted for item %s", claim.Code, item.ID)).About(item.ID, claim.ID),
		)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncClaimsSubmitted()
	s.logger.InfoContext(ctx, "claim submitted",
		"event", "claim_submitted",
		"claim_id", claim.ID.String(),
		"item_id", claim.ItemID.String(),
		"claimant_id", claimant.UserID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return claim, nil
}

// saveClaim retries on the rare code collision.
func (s *Service) saveClaim(ctx context.Context, st Store, claim *models.Claim) (*models.Claim, error) {
	for range maxCodeAttempts {
		code, err := models.NewClaimCode()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate claim code")
		}
		claim.Code = code
		err = st.SaveClaim(ctx, claim)
		switch {
		case err == nil:
			return claim, nil
		case errors.Is(err, store.ErrDuplicateCode):
			s.logger.WarnContext(ctx, "claim code collision, regenerating")
			continue
		case errors.Is(err, sentinel.ErrConflict):
			return nil, duplicatePending()
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save claim")
		}
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique claim code")
}

// DecideClaim approves or rejects a pending claim. Approval also marks the
// item claimed and rejects every other pending claim on it, all in one
// transaction: a claim is never approved while its item is unclaimed.
func (s *Service) DecideClaim(ctx context.Context, admin requestcontext.Principal, claimID id.ClaimID, decision models.Decision) (claim *models.Claim, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDecideClaim,
		tracer.String(tracer.AttrClaimID, claimID.String()),
		tracer.Bool(tracer.AttrApprove, bool(decision)),
	)
	defer func() { span.End(err) }()

	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	release, err := s.acquire(ctx, ActionDecideClaim, claimID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.store.FindClaim(ctx, claimID)
	if err != nil {
		return nil, storeError(err, "claim not found", "failed to load claim")
	}
	span.SetAttributes(tracer.String(tracer.AttrItemID, existing.ItemID.String()))

	var siblings int
	err = s.tx.RunInTx(ctx, existing.ItemID.String(), func(ctx context.Context, st Store) error {
		c, err := st.FindClaim(ctx, claimID)
		if err != nil {
			return storeError(err, "claim not found", "failed to load claim")
		}
		if c.Status != models.ClaimPending {
			return alreadyTransitioned("claim", string(c.Status))
		}
		item, err := st.FindItem(ctx, c.ItemID)
		if err != nil {
			return storeError(err, "the claimed item no longer exists", "failed to load item")
		}
		now := requesttime.Now(ctx)

		if decision == models.Reject {
			if err := st.TransitionClaim(ctx, c.ID, models.ClaimPending, models.ClaimRejected, admin.UserID, now); err != nil {
				return storeError(err, "claim not found", "failed to update claim")
			}
			c.Status, c.DecidedBy, c.DecidedAt = models.ClaimRejected, admin.UserID, &now
			claim = c
			return s.record(ctx, span,
				activity.Notify(c.ClaimantID, activity.KindClaimRejected, admin.UserID,
					fmt.Sprintf("Your claim %s for the %s was not approved.", c.Code, item.Type)).About(item.ID, c.ID),
				activity.Audit(activity.KindClaimRejected, admin.UserID, item.ReporterID,
					fmt.Sprintf("A claim on the %s you reported was rejected.", item.Type)).About(item.ID, c.ID),
			)
		}

		if item.Status != models.ItemVerified {
			return alreadyTransitioned("item", string(item.Status))
		}
		if err := st.TransitionClaim(ctx, c.ID, models.ClaimPending, models.ClaimApproved, admin.UserID, now); err != nil {
			return storeError(err, "claim not found", "failed to update claim")
		}
		if err := st.TransitionItem(ctx, item.ID, models.ItemVerified, models.ItemClaimed, admin.UserID, now); err != nil {
			return storeError(err, "the claimed item no longer exists", "failed to update item")
		}
		c.Status, c.DecidedBy, c.DecidedAt = models.ClaimApproved, admin.UserID, &now
		claim = c

		recs := []*activity.Record{
			activity.Notify(c.ClaimantID, activity.KindClaimApproved, admin.UserID,
				fmt.Sprintf("Your claim %s was approved. Bring the code to collect your %s.", c.Code, item.Type)).About(item.ID, c.ID),
			activity.Notify(item.ReporterID, activity.KindClaimApproved, admin.UserID,
				fmt.Sprintf("The %s you reported has been returned to its owner.", item.Type)).About(item.ID, c.ID),
			activity.Audit(activity.KindClaimApproved, admin.UserID, id.UserID{},
				fmt.Sprintf("claim %s approved, item %s claimed", c.Code, item.ID)).About(item.ID, c.ID),
		}

		others, err := st.ListClaims(ctx, models.ClaimFilter{ItemID: item.ID, Status: models.ClaimPending})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load competing claims")
		}
		for _, other := range others {
			if err := st.TransitionClaim(ctx, other.ID, models.ClaimPending, models.ClaimRejected, admin.UserID, now); err != nil {
				return storeError(err, "claim not found", "failed to reject competing claim")
			}
			recs = append(recs, activity.Notify(other.ClaimantID, activity.KindClaimRejected, admin.UserID,
				fmt.Sprintf("Your claim %s was closed because the %s was returned to another claimant.", other.Code, item.Type)).About(item.ID, other.ID))
		}
		siblings = len(others)
		return s.record(ctx, span, recs...)
	})
	if err != nil {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(dErrors.CodeOf(err))))
		return nil, err
	}

	s.metrics.IncTransition("claim", string(claim.Status))
	if claim.Status == models.ClaimApproved {
		s.metrics.IncTransition("item", string(models.ItemClaimed))
	}
	if siblings > 0 {
		span.AddEvent(tracer.EventSiblingsRejected, tracer.Int64("count", int64(siblings)))
		for range siblings {
			s.metrics.IncTransition("claim", string(models.ClaimRejected))
		}
	}
	s.logger.InfoContext(ctx, "claim decided",
		"event", "claim_"+string(claim.Status),
		"log_type", "audit",
		"claim_id", claim.ID.String(),
		"item_id", claim.ItemID.String(),
		"admin_id", admin.UserID.String(),
		"siblings_rejected", siblings,
		"request_id", requestcontext.RequestID(ctx),
	)
	return claim, nil
}

// LookupByCode returns a claim and its item in any status, for staff at the
// collection desk.
func (s *Service) LookupByCode(ctx context.Context, admin requestcontext.Principal, raw string) (lookup *models.Lookup, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLookupByCode)
	defer func() { span.End(err) }()

	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	code, ok := models.NormalizeClaimCode(raw)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "claim codes look like LF-XXXXXXXX")
	}
	claim, err := s.store.FindClaimByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, "no claim with that code", "failed to look up claim")
	}
	item, err := s.store.FindItem(ctx, claim.ItemID)
	if err != nil {
		return nil, storeError(err, "the claimed item no longer exists", "failed to load item")
	}
	span.SetAttributes(
		tracer.String(tracer.AttrClaimID, claim.ID.String()),
		tracer.String(tracer.AttrItemID, item.ID.String()),
	)
	return &models.Lookup{
		Claim:           claim,
		Item:            item,
		MatchingAnswers: models.CountMatches(item.Questions, claim.Answers),
	}, nil
}

// ListClaims returns claims matching filter. Non-staff callers only ever see
// their own claims.
func (s *Service) ListClaims(ctx context.Context, viewer requestcontext.Principal, filter models.ClaimFilter) ([]*models.Claim, error) {
	if !viewer.IsAdmin() {
		if viewer.UserID.IsNil() {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "sign in to see your claims")
		}
		filter.ClaimantID = viewer.UserID
	}
	claims, err := s.store.ListClaims(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

func (s *Service) acquire(ctx context.Context, action, target string) (func(), error) {
	release, err := s.guard.Acquire(ctx, guard.Key(action, target))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInProgress) {
			s.metrics.IncGuardRejection(action)
		}
		return nil, err
	}
	return release, nil
}

func (s *Service) record(ctx context.Context, span tracer.Span, recs ...*activity.Record) error {
	if err := s.activity.Record(ctx, recs...); err != nil {
		return err
	}
	span.AddEvent(tracer.EventActivityRecorded, tracer.Int64("count", int64(len(recs))))
	return nil
}

func requireAdmin(p requestcontext.Principal) error {
	if p.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "sign in required")
	}
	if !p.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "staff only")
	}
	return nil
}

func alreadyTransitioned(entity, status string) error {
	return dErrors.WithRemedy(dErrors.CodeAlreadyTransitioned,
		fmt.Sprintf("%s is already %s", entity, status),
		"refresh to see the current status")
}

func duplicatePending() error {
	return dErrors.WithRemedy(dErrors.CodeDuplicatePending,
		"you already have a pending claim for this item",
		"wait for staff to review your existing claim")
}

// storeError translates store sentinels once. Domain errors pass through.
func storeError(err error, notFound, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return alreadyTransitioned("record", "decided by another request")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
