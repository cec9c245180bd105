// Package models holds reported items and the claims made against them.
package models

import (
	"time"

	id "lostfound/pkg/domain"
)

// ItemStatus is the item lifecycle:
//
//	pending --verify--> verified --claim approved--> claimed
//	pending --reject--> rejected
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemVerified ItemStatus = "verified"
	ItemRejected ItemStatus = "rejected"
	ItemClaimed  ItemStatus = "claimed"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemPending, ItemVerified, ItemRejected, ItemClaimed:
		return true
	}
	return false
}

// ClaimStatus is the claim lifecycle. Both decisions are terminal.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// SecurityQuestion is asked of claimants. Answer is only visible to staff.
type SecurityQuestion struct {
	Question string `json:"question" validate:"required,notblank,max=200"`
	Answer   string `json:"answer,omitempty" validate:"required,notblank,max=200"`
}

type LostItem struct {
	ID          id.ItemID          `json:"id"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location"`
	FoundAt     time.Time          `json:"found_at"`
	PhotoRef    string             `json:"photo_ref,omitempty"`
	Questions   []SecurityQuestion `json:"security_questions"`
	ReporterID  id.UserID          `json:"reporter_id"`
	Status      ItemStatus         `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty"`
	DecidedBy   id.UserID          `json:"decided_by,omitzero"`
}

// Public returns a copy without security answers, for non-staff viewers.
func (i *LostItem) Public() *LostItem {
	cp := *i
	cp.Questions = make([]SecurityQuestion, len(i.Questions))
	for n, q := range i.Questions {
		cp.Questions[n] = SecurityQuestion{Question: q.Question}
	}
	return &cp
}

// OpenForClaims reports whether claimants may submit against the item.
func (i *LostItem) OpenForClaims() bool {
	return i.Status == ItemVerified
}

type Claim struct {
	ID            id.ClaimID  `json:"id"`
	ItemID        id.ItemID   `json:"item_id"`
	ClaimantID    id.UserID   `json:"claimant_id"`
	Code          string      `json:"code"`
	Answers       []string    `json:"answers"`
	ProofPhotoRef string      `json:"proof_photo_ref,omitempty"`
	Status        ClaimStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	DecidedAt     *time.Time  `json:"decided_at,omitempty"`
	DecidedBy     id.UserID   `json:"decided_by,omitzero"`
}

// Decision is the admin's verdict on an item or claim.
type Decision bool

const (
	Approve Decision = true
	Reject  Decision = false
)

// ItemOutcome is the status an item moves to under d.
func (d Decision) ItemOutcome() ItemStatus {
	if d {
		return ItemVerified
	}
	return ItemRejected
}

func (d Decision) ClaimOutcome() ClaimStatus {
	if d {
		return ClaimApproved
	}
	return ClaimRejected
}

// NewItem carries the reporter's fields.
type NewItem struct {
	Type        string             `json:"type" validate:"required,notblank,max=100"`
	Description string             `json:"description" validate:"max=500"`
	Location    string             `json:"location" validate:"required,notblank,max=200"`
	FoundAt     time.Time          `json:"found_at" validate:"required,notfuture"`
	PhotoRef    string             `json:"photo_ref" validate:"max=1024"`
	Questions   []SecurityQuestion `json:"security_questions" validate:"required,min=1,max=3,dive"`
}

type NewClaim struct {
	ItemID        id.ItemID `json:"item_id"`
	Answers       []string  `json:"answers" validate:"required,min=1,max=3,dive,max=500"`
	ProofPhotoRef string    `json:"proof_photo_ref" validate:"max=1024"`
}

// Lookup is what staff see for a claim code.
type Lookup struct {
	Claim *Claim    `json:"claim"`
	Item  *LostItem `json:"item"`
	// MatchingAnswers counts answers equal to the item's, ignoring case and spacing.
	MatchingAnswers int `json:"matching_answers"`
}

// ItemFilter narrows item listings. Zero fields match everything.
type ItemFilter struct {
	Status     ItemStatus
	ReporterID id.UserID
}

func (f ItemFilter) Matches(i *LostItem) bool {
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if !f.ReporterID.IsNil() && i.ReporterID != f.ReporterID {
		return false
	}
	return true
}

type ClaimFilter struct {
	ItemID     id.ItemID
	ClaimantID id.UserID
	Status     ClaimStatus
}

func (f ClaimFilter) Matches(c *Claim) bool {
	switch {
	case !f.ItemID.IsNil() && c.ItemID != f.ItemID:
		return false
	case !f.ClaimantID.IsNil() && c.ClaimantID != f.ClaimantID:
		return false
	case f.Status != "" && c.Status != f.Status:
		return false
	}
	return true
}
