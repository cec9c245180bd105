package session

import (
	crosstab "lostfound/internal/crosstab/models"
	"lostfound/internal/identity"
	profile "lostfound/internal/profile/models"
	"lostfound/internal/session/models"
	id "lostfound/pkg/domain"
)

// Event is an input to Reduce. Everything that can change a tab's state,
// whether a provider push, a lookup result or a user command, arrives as one.
type Event interface {
	isEvent()
}

// BootFlowDetected is dispatched when the boot URL carries a flow marker.
type BootFlowDetected struct {
	Flow crosstab.Flow
	// LinkErr is set when the provider reported the link as expired or invalid.
	LinkErr error
}

// BootResolved carries the provider session lookup made at boot.
type BootResolved struct {
	Session    *identity.Session
	SavedRoute models.Route
	Err        error
	// LinkErr is the provider's error for a boot link that named no flow.
	LinkErr error
}

// BootTimedOut forces a tab out of Initializing when boot could not finish in time.
type BootTimedOut struct{}

type ProfileLoaded struct {
	UserID  id.UserID
	Profile *profile.Profile
}

type ProfileFailed struct {
	UserID id.UserID
	Err    error
}

// SignedIn is a SIGNED_IN push, or the result of this tab's own sign-in when
// Explicit is set. FlagActive reports whether the durable flow flag was up.
type SignedIn struct {
	Session    *identity.Session
	FlagActive bool
	Explicit   bool
}

type SignedOut struct{}

// RecoveryStarted is a PASSWORD_RECOVERY push.
type RecoveryStarted struct {
	Session    *identity.Session
	FlagActive bool
}

type UserUpdated struct {
	Session *identity.Session
}

// FlowBroadcast is a message from another tab's coordinator.
type FlowBroadcast struct {
	Message crosstab.Message
}

type FlowAnnounceFailed struct {
	Err error
}

// Navigate is a user request to open a page.
type Navigate struct {
	Route models.Route
}

// CompleteFlow ends this tab's recovery or verification flow.
type CompleteFlow struct{}

func (BootFlowDetected) isEvent()   {}
func (BootResolved) isEvent()       {}
func (BootTimedOut) isEvent()       {}
func (ProfileLoaded) isEvent()      {}
func (ProfileFailed) isEvent()      {}
func (SignedIn) isEvent()           {}
func (SignedOut) isEvent()          {}
func (RecoveryStarted) isEvent()    {}
func (UserUpdated) isEvent()        {}
func (FlowBroadcast) isEvent()      {}
func (FlowAnnounceFailed) isEvent() {}
func (Navigate) isEvent()           {}
func (CompleteFlow) isEvent()       {}

// Effect is work Reduce asks the orchestrator to perform. Results come back
// as further events.
type Effect interface {
	isEffect()
}

type FetchProfile struct {
	UserID id.UserID
}

type AnnounceFlow struct {
	Flow crosstab.Flow
}

type RetractFlow struct{}

// ForceSignOut revokes the provider session without a route change.
type ForceSignOut struct{}

type PersistRoute struct {
	Route models.Route
}

type ClearRoute struct{}

// Suppressed records a SIGNED_IN push that was ignored because a flow was open.
type Suppressed struct {
	Reason string
}

func (FetchProfile) isEffect() {}
func (AnnounceFlow) isEffect() {}
func (RetractFlow) isEffect()  {}
func (ForceSignOut) isEffect() {}
func (PersistRoute) isEffect() {}
func (ClearRoute) isEffect()   {}
func (Suppressed) isEffect()   {}
