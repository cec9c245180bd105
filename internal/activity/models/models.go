// Package models holds activity records: the append-only log that doubles as
// the admin audit trail and the per-user notification feed.
package models

import (
	"time"

	id "lostfound/pkg/domain"
)

// Audience is who a record is primarily written for. Every record shows in
// the admin audit log; one with a recipient also shows in that user's feed.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

func (a Audience) IsValid() bool {
	return a == AudienceUser || a == AudienceAdmin
}

// Kind names what happened.
type Kind string

const (
	KindItemReported         Kind = "item_reported"
	KindItemVerified         Kind = "item_verified"
	KindItemRejected         Kind = "item_rejected"
	KindClaimSubmitted       Kind = "claim_submitted"
	KindClaimApproved        Kind = "claim_approved"
	KindClaimRejected        Kind = "claim_rejected"
	KindAccountStatusChanged Kind = "account_status_changed"
)

var kinds = map[Kind]struct{}{
	KindItemReported:         {},
	KindItemVerified:         {},
	KindItemRejected:         {},
	KindClaimSubmitted:       {},
	KindClaimApproved:        {},
	KindClaimRejected:        {},
	KindAccountStatusChanged: {},
}

func (k Kind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// Record is one activity entry. It is never edited except to set ViewedAt
// once and to raise either clear flag. The two flags are independent: an
// admin clearing the audit log does not hide a user's notification, and the
// reverse.
type Record struct {
	ID           id.ActivityID `json:"id"`
	Kind         Kind          `json:"kind"`
	Audience     Audience      `json:"audience"`
	RecipientID  id.UserID     `json:"recipient_id,omitzero"`
	ActorID      id.UserID     `json:"actor_id,omitzero"`
	ItemID       id.ItemID     `json:"item_id,omitzero"`
	ClaimID      id.ClaimID    `json:"claim_id,omitzero"`
	Message      string        `json:"message"`
	CreatedAt    time.Time     `json:"created_at"`
	ViewedAt     *time.Time    `json:"viewed_at,omitempty"`
	AdminCleared bool          `json:"admin_cleared"`
	UserCleared  bool          `json:"user_cleared"`
}

// HasRecipient reports whether the record reaches a user's feed.
func (r *Record) HasRecipient() bool {
	return !r.RecipientID.IsNil()
}

func (r *Record) Unread() bool {
	return r.HasRecipient() && r.ViewedAt == nil
}

// Purgeable reports whether neither audience can still see the record.
func (r *Record) Purgeable() bool {
	return r.AdminCleared && (!r.HasRecipient() || r.UserCleared)
}

// Notify builds a record addressed to recipient.
func Notify(recipient id.UserID, kind Kind, actor id.UserID, msg string) *Record {
	return &Record{Kind: kind, Audience: AudienceUser, RecipientID: recipient, ActorID: actor, Message: msg}
}

// Audit builds a record for the admin log. recipient is left empty when the
// record concerns no single user (zero id).
func Audit(kind Kind, actor id.UserID, recipient id.UserID, msg string) *Record {
	return &Record{Kind: kind, Audience: AudienceAdmin, RecipientID: recipient, ActorID: actor, Message: msg}
}

// About attaches the item and claim the record concerns. Either may be zero.
func (r *Record) About(item id.ItemID, claim id.ClaimID) *Record {
	r.ItemID = item
	r.ClaimID = claim
	return r
}

// ClearScope selects which suppression flag a clear sets.
type ClearScope string

const (
	ScopeAdmin ClearScope = "admin"
	ScopeUser  ClearScope = "user"
)

func (s ClearScope) IsValid() bool {
	return s == ScopeAdmin || s == ScopeUser
}

// AuditFilter narrows the admin log. Zero fields match everything.
type AuditFilter struct {
	Kind     Kind
	Audience Audience
	ActorID  id.UserID
	ItemID   id.ItemID
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Matches applies the filter to r, for stores that filter in memory.
func (f AuditFilter) Matches(r *Record) bool {
	switch {
	case f.Kind != "" && r.Kind != f.Kind:
		return false
	case f.Audience != "" && r.Audience != f.Audience:
		return false
	case !f.ActorID.IsNil() && r.ActorID != f.ActorID:
		return false
	case !f.ItemID.IsNil() && r.ItemID != f.ItemID:
		return false
	case !f.Since.IsZero() && r.CreatedAt.Before(f.Since):
		return false
	case !f.Until.IsZero() && !r.CreatedAt.Before(f.Until):
		return false
	}
	return true
}
