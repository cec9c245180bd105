// Package models holds the login attempt ledger types.
package models

import (
	"fmt"
	"math"
	"time"
)

// Attempt is one append-only ledger row. A lockout is an attempt whose
// LockedUntil is set; there is no separate mutable lock field.
type Attempt struct {
	IdentityKey string
	At          time.Time
	Successful  bool
	LockedUntil *time.Time
	// Device is a coarse browser/OS label, IPPrefix an anonymized address.
	Device   string
	IPPrefix string
}

// IsLockout reports whether this row started a lockout.
func (a *Attempt) IsLockout() bool {
	return a.LockedUntil != nil
}

// LockState is the answer to "may this identity try to sign in now".
type LockState struct {
	Locked            bool       `json:"locked"`
	UnlockAt          *time.Time `json:"unlock_at,omitempty"`
	RemainingAttempts *int       `json:"remaining_attempts,omitempty"`
}

// Open returns an unlocked state with n attempts left.
func Open(remaining int) LockState {
	if remaining < 0 {
		remaining = 0
	}
	return LockState{RemainingAttempts: &remaining}
}

// LockedUntil returns a locked state ending at until.
func LockedUntil(until time.Time) LockState {
	return LockState{Locked: true, UnlockAt: &until}
}

// Remaining returns the attempts left, or 0 while locked.
func (l LockState) Remaining() int {
	if l.RemainingAttempts == nil {
		return 0
	}
	return *l.RemainingAttempts
}

// RemainingMinutes rounds the time left on the lock up to whole minutes.
func (l LockState) RemainingMinutes(now time.Time) int {
	if !l.Locked || l.UnlockAt == nil {
		return 0
	}
	left := l.UnlockAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

// Remedy is the user-facing wait instruction for a locked state.
func (l LockState) Remedy(now time.Time) string {
	m := l.RemainingMinutes(now)
	if m <= 1 {
		return "try again in 1 minute"
	}
	return fmt.Sprintf("try again in %d minutes", m)
}
