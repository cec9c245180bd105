// Package models holds sign-in request and result types.
package models

import (
	"time"

	"lostfound/internal/identity"
	profile "lostfound/internal/profile/models"
	s "lostfound/pkg/string"
	"lostfound/pkg/validation"
)

// SignInRequest is the password sign-in body.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (r *SignInRequest) Normalize() {
	r.Email = s.NormalizeKey(r.Email)
}

func (r *SignInRequest) Validate() error {
	return validation.Validate(r)
}

// SignInResult pairs the provider session with the profile that authorized it.
type SignInResult struct {
	Session *identity.Session
	Profile *profile.Profile
}

// SignInResponse is returned to the browser on success.
type SignInResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	Role        profile.Role `json:"role"`
}

func NewSignInResponse(res *SignInResult) *SignInResponse {
	return &SignInResponse{
		AccessToken: res.Session.AccessToken,
		ExpiresAt:   res.Session.ExpiresAt,
		UserID:      res.Session.UserID.String(),
		Email:       res.Session.Email,
		Role:        res.Profile.Role,
	}
}

// SessionResponse describes the caller of GET /auth/session.
type SessionResponse struct {
	UserID        string                `json:"user_id"`
	Email         string                `json:"email"`
	Role          profile.Role          `json:"role"`
	AccountStatus profile.AccountStatus `json:"account_status"`
}
