// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "lostfound/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing an ItemID where a ClaimID is expected.
type (
	UserID     uuid.UUID
	ItemID     uuid.UUID
	ClaimID    uuid.UUID
	ActivityID uuid.UUID
	TabID      uuid.UUID
)

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewItemID() ItemID         { return ItemID(uuid.New()) }
func NewClaimID() ClaimID       { return ClaimID(uuid.New()) }
func NewActivityID() ActivityID { return ActivityID(uuid.New()) }
func NewTabID() TabID           { return TabID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseItemID(s string) (ItemID, error) {
	id, err := parseUUID(s, "item ID")
	return ItemID(id), err
}

func ParseClaimID(s string) (ClaimID, error) {
	id, err := parseUUID(s, "claim ID")
	return ClaimID(id), err
}

func ParseTabID(s string) (TabID, error) {
	id, err := parseUUID(s, "tab ID")
	return TabID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ItemID) String() string     { return uuid.UUID(id).String() }
func (id ClaimID) String() string    { return uuid.UUID(id).String() }
func (id ActivityID) String() string { return uuid.UUID(id).String() }
func (id TabID) String() string      { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActivityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TabID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// Text marshalling - typed IDs serialize as canonical UUID strings in JSON.

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ItemID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ClaimID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ActivityID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TabID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ItemID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClaimID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ActivityID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TabID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID is the shared validation logic. Nil UUIDs are rejected at the
// boundary so services never see an all-zero identifier from user input.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
