// Package models holds the per-tab session state and the routes a tab can
// land on.
package models

import (
	crosstab "lostfound/internal/crosstab/models"
	profile "lostfound/internal/profile/models"
	id "lostfound/pkg/domain"
)

// Phase is where a tab stands in the sign-in lifecycle.
type Phase string

const (
	PhaseInitializing  Phase = "initializing"
	PhaseAnonymous     Phase = "anonymous"
	PhaseInAuthFlow    Phase = "in_auth_flow"
	PhaseAuthenticated Phase = "authenticated"
	PhaseSignedOut     Phase = "signed_out"
)

// Status is the session status exposed to the UI.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusPending       Status = "pending"
	StatusAuthenticated Status = "authenticated"
)

// Session is the tab's view of who is signed in. It is pending while the
// profile is being fetched or while a provider session exists inside an auth
// flow, and authenticated only once an active profile backs it.
type Session struct {
	UserID         id.UserID             `json:"user_id"`
	Email          string                `json:"email"`
	Role           profile.Role          `json:"role,omitempty"`
	Status         Status                `json:"status"`
	EmailConfirmed bool                  `json:"email_confirmed"`
	AccountStatus  profile.AccountStatus `json:"account_status,omitempty"`
}

// State is everything a tab renders from. It is replaced, never mutated in place.
type State struct {
	Phase   Phase         `json:"phase"`
	Flow    crosstab.Flow `json:"flow,omitempty"`
	Session *Session      `json:"session,omitempty"`
	Route   Route         `json:"route"`
	// RemoteFlow is the flow another tab last broadcast. Display only; the
	// durable flag decides suppression.
	RemoteFlow crosstab.Flow `json:"remote_flow,omitempty"`
	// Err is the last error surfaced to the UI. Cleared on the next successful resolution.
	Err error `json:"-"`

	// BootResolved is set when boot found a session, so a later SIGNED_IN
	// push for it is not processed twice.
	BootResolved bool `json:"-"`
	// SavedRoute is restored once the profile confirms the session.
	SavedRoute Route `json:"-"`
}

// Initial is the state of a tab before boot.
func Initial() State {
	return State{Phase: PhaseInitializing}
}

// Authenticated reports whether the tab grants app access.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Session != nil && s.Session.Status == StatusAuthenticated
}

// Role returns the signed-in role, or "" when not authenticated.
func (s State) Role() profile.Role {
	if !s.Authenticated() {
		return ""
	}
	return s.Session.Role
}
