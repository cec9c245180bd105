// Package models holds user profile types. The identity provider knows who a
// user is; the profile knows what they may do.
package models

import (
	"time"

	id "lostfound/pkg/domain"
)

// Role is the authorization role carried by a profile.
type Role string

const (
	RoleFinder Role = "finder"
	RoleAdmin  Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleFinder || r == RoleAdmin
}

// AccountStatus gates every authenticated action.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

func (s AccountStatus) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

type Profile struct {
	UserID      id.UserID     `json:"user_id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Role        Role          `json:"role"`
	Status      AccountStatus `json:"account_status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (p *Profile) IsActive() bool {
	return p.Status == StatusActive
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
