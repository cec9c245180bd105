// Package models holds the cross-tab auth flow flag and broadcast message types.
package models

import (
	"time"

	id "lostfound/pkg/domain"
)

// Flow is an auth flow that must not be interrupted by auto-login.
type Flow string

const (
	FlowNone        Flow = ""
	FlowRecovery    Flow = "recovery"
	FlowEmailVerify Flow = "email-verify"
)

func (f Flow) IsValid() bool {
	return f == FlowRecovery || f == FlowEmailVerify
}

// Flag is the durable marker that some tab is inside an auth flow. While it
// is present, other tabs suppress auto-login.
type Flag struct {
	Flow      Flow      `json:"flow"`
	OriginTab id.TabID  `json:"origin_tab"`
	SetAt     time.Time `json:"set_at"`
}

// MessageKind is the broadcast event type.
type MessageKind string

const (
	MessageAnnounce MessageKind = "announce"
	MessageRetract  MessageKind = "retract"
)

// Message is a best-effort broadcast. Receivers that need certainty read the Flag.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Flow      Flow        `json:"flow,omitempty"`
	OriginTab id.TabID    `json:"origin_tab"`
	SentAt    time.Time   `json:"sent_at"`
}
