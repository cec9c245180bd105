package models

import (
	"time"

	id "lostfound/pkg/domain"
)

type EndpointClass string

const (
	// ClassAuth covers sign-in. The ledger handles per-email lockout; this caps per-client volume.
	ClassAuth EndpointClass = "auth"
	// ClassWrite covers item reports, claims and admin decisions.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassWrite:
		return true
	}
	return false
}

// Limit is a sliding window allowance.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits apply when configuration leaves a class unset.
func DefaultLimits() map[EndpointClass]Limit {
	return map[EndpointClass]Limit{
		ClassAuth:  {Requests: 20, Window: time.Minute},
		ClassWrite: {Requests: 30, Window: time.Minute},
	}
}

type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
}

// Key identifies the bucket for a request: the signed-in user when known, the client IP otherwise.
func Key(class EndpointClass, userID id.UserID, ip string) string {
	if !userID.IsNil() {
		return "rl:" + string(class) + ":user:" + userID.String()
	}
	if ip == "" {
		ip = "unknown"
	}
	return "rl:" + string(class) + ":ip:" + ip
}

// RetryAfterSeconds rounds the wait up so clients never retry early.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}
