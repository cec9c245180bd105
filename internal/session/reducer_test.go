package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crosstab "lostfound/internal/crosstab/models"
	"lostfound/internal/identity"
	profile "lostfound/internal/profile/models"
	"lostfound/internal/session/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

func providerSession(userID id.UserID) *identity.Session {
	return &identity.Session{UserID: userID, Email: "finder@campus.edu", EmailConfirmed: true, AccessToken: "tok"}
}

func activeProfile(userID id.UserID, role profile.Role) *profile.Profile {
	return &profile.Profile{UserID: userID, Email: "finder@campus.edu", Role: role, Status: profile.StatusActive}
}

// authenticated drives a fresh state through boot to Authenticated.
func authenticated(t *testing.T, userID id.UserID, role profile.Role) models.State {
	t.Helper()
	st, _ := Reduce(models.Initial(), BootResolved{Session: providerSession(userID)})
	st, _ = Reduce(st, ProfileLoaded{UserID: userID, Profile: activeProfile(userID, role)})
	require.True(t, st.Authenticated())
	return st
}

func TestReduceBoot(t *testing.T) {
	userID := id.NewUserID()

	t.Run("flow marker enters the flow without looking up a session", func(t *testing.T) {
		st, effects := Reduce(models.Initial(), BootFlowDetected{Flow: crosstab.FlowRecovery})
		assert.Equal(t, models.PhaseInAuthFlow, st.Phase)
		assert.Equal(t, crosstab.FlowRecovery, st.Flow)
		assert.Equal(t, models.RouteResetPassword, st.Route)
		assert.Nil(t, st.Session)
		assert.Equal(t, []Effect{AnnounceFlow{Flow: crosstab.FlowRecovery}}, effects)
	})

	t.Run("no session is anonymous and clears the saved route", func(t *testing.T) {
		st, effects := Reduce(models.Initial(), BootResolved{})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.Equal(t, models.RouteLanding, st.Route)
		assert.Equal(t, []Effect{ClearRoute{}}, effects)
	})

	t.Run("rejected link without a flow surfaces its remedy", func(t *testing.T) {
		linkErr := dErrors.WithRemedy(dErrors.CodeUnauthorized, "Email link is invalid or has expired", "request a new link")
		st, effects := Reduce(models.Initial(), BootResolved{LinkErr: linkErr})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.Equal(t, linkErr, st.Err)
		assert.Equal(t, []Effect{ClearRoute{}}, effects)
	})

	t.Run("signed in session ignores a stale link error", func(t *testing.T) {
		linkErr := dErrors.New(dErrors.CodeUnauthorized, "expired")
		st, _ := Reduce(models.Initial(), BootResolved{Session: providerSession(userID), LinkErr: linkErr})
		assert.NoError(t, st.Err)
	})

	t.Run("provider error is anonymous and keeps the saved route", func(t *testing.T) {
		boom := dErrors.New(dErrors.CodeProviderUnavailable, "down")
		st, effects := Reduce(models.Initial(), BootResolved{Err: boom})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.Equal(t, boom, st.Err)
		assert.Empty(t, effects)
	})

	t.Run("unconfirmed email is signed out", func(t *testing.T) {
		sess := providerSession(userID)
		sess.EmailConfirmed = false
		st, effects := Reduce(models.Initial(), BootResolved{Session: sess})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.True(t, dErrors.HasCode(st.Err, dErrors.CodeEmailUnverified))
		assert.Equal(t, []Effect{ForceSignOut{}}, effects)
	})

	t.Run("session waits for the profile and restores the saved route", func(t *testing.T) {
		st, effects := Reduce(models.Initial(), BootResolved{Session: providerSession(userID), SavedRoute: models.RouteAdminAudit})
		assert.Equal(t, models.PhaseInitializing, st.Phase)
		assert.Equal(t, models.StatusPending, st.Session.Status)
		assert.False(t, st.Authenticated())
		assert.Equal(t, []Effect{FetchProfile{UserID: userID}}, effects)

		st, effects = Reduce(st, ProfileLoaded{UserID: userID, Profile: activeProfile(userID, profile.RoleAdmin)})
		assert.True(t, st.Authenticated())
		assert.Equal(t, profile.RoleAdmin, st.Role())
		assert.Equal(t, models.RouteAdminAudit, st.Route)
		assert.Equal(t, []Effect{PersistRoute{Route: models.RouteAdminAudit}}, effects)
	})

	t.Run("saved admin route is not restored for a finder", func(t *testing.T) {
		st, _ := Reduce(models.Initial(), BootResolved{Session: providerSession(userID), SavedRoute: models.RouteAdminAudit})
		st, _ = Reduce(st, ProfileLoaded{UserID: userID, Profile: activeProfile(userID, profile.RoleFinder)})
		assert.Equal(t, models.RouteItems, st.Route)
	})

	t.Run("inactive profile forces sign-out with a remedy", func(t *testing.T) {
		st, _ := Reduce(models.Initial(), BootResolved{Session: providerSession(userID)})
		p := activeProfile(userID, profile.RoleFinder)
		p.Status = profile.StatusInactive
		st, effects := Reduce(st, ProfileLoaded{UserID: userID, Profile: p})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.Nil(t, st.Session)
		var de *dErrors.Error
		require.True(t, errors.As(st.Err, &de))
		assert.Equal(t, dErrors.CodeAccountInactive, de.Code)
		assert.NotEmpty(t, de.Remedy)
		assert.Equal(t, []Effect{ForceSignOut{}, ClearRoute{}}, effects)
	})

	t.Run("profile failure fails closed", func(t *testing.T) {
		st, _ := Reduce(models.Initial(), BootResolved{Session: providerSession(userID)})
		st, effects := Reduce(st, ProfileFailed{UserID: userID, Err: dErrors.New(dErrors.CodeInternal, "db down")})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.False(t, st.Authenticated())
		assert.Empty(t, effects)

		st, _ = Reduce(models.Initial(), BootResolved{Session: providerSession(userID)})
		_, effects = Reduce(st, ProfileFailed{UserID: userID, Err: dErrors.New(dErrors.CodeProfileNotFound, "none")})
		assert.Equal(t, []Effect{ForceSignOut{}}, effects)
	})

	t.Run("timeout only applies while initializing", func(t *testing.T) {
		st, _ := Reduce(models.Initial(), BootTimedOut{})
		assert.Equal(t, models.PhaseAnonymous, st.Phase)
		assert.True(t, dErrors.HasCode(st.Err, dErrors.CodeProviderUnavailable))

		auth := authenticated(t, userID, profile.RoleFinder)
		st, _ = Reduce(auth, BootTimedOut{})
		assert.Equal(t, auth, st)
	})
}

func TestReduceStaleProfileResultIsIgnored(t *testing.T) {
	first, second := id.NewUserID(), id.NewUserID()
	st, _ := Reduce(models.Initial(), BootResolved{})
	st, _ = Reduce(st, SignedIn{Session: providerSession(first)})
	st, _ = Reduce(st, SignedIn{Session: providerSession(second), Explicit: true})

	next, effects := Reduce(st, ProfileLoaded{UserID: first, Profile: activeProfile(first, profile.RoleAdmin)})
	assert.Equal(t, st, next)
	assert.Empty(t, effects)
}

func TestReduceSignedIn(t *testing.T) {
	userID := id.NewUserID()
	anon, _ := Reduce(models.Initial(), BootResolved{})

	t.Run("push after anonymous boot fetches the profile", func(t *testing.T) {
		st, effects := Reduce(anon, SignedIn{Session: providerSession(userID)})
		assert.Equal(t, models.StatusPending, st.Session.Status)
		assert.Equal(t, []Effect{FetchProfile{UserID: userID}}, effects)
	})

	t.Run("push is ignored once boot resolved a session", func(t *testing.T) {
		st := authenticated(t, userID, profile.RoleFinder)
		next, effects := Reduce(st, SignedIn{Session: providerSession(id.NewUserID())})
		assert.Equal(t, st, next)
		assert.Empty(t, effects)
	})

	t.Run("push is suppressed by a cross-tab flow", func(t *testing.T) {
		st, effects := Reduce(anon, SignedIn{Session: providerSession(userID), FlagActive: true})
		assert.Equal(t, anon, st)
		assert.Equal(t, []Effect{Suppressed{Reason: "cross_tab_flow"}}, effects)
	})

	t.Run("push inside a local flow keeps the flow and grants nothing", func(t *testing.T) {
		flow, _ := Reduce(models.Initial(), BootFlowDetected{Flow: crosstab.FlowEmailVerify})
		st, effects := Reduce(flow, SignedIn{Session: providerSession(userID)})
		assert.Equal(t, models.PhaseInAuthFlow, st.Phase)
		assert.Equal(t, models.RouteVerifyEmail, st.Route)
		assert.Equal(t, models.StatusPending, st.Session.Status)
		assert.False(t, st.Authenticated())
		assert.Equal(t, []Effect{Suppressed{Reason: "local_flow"}}, effects)
	})

	t.Run("explicit sign-in is not suppressed by the flag", func(t *testing.T) {
		st, effects := Reduce(anon, SignedIn{Session: providerSession(userID), FlagActive: true, Explicit: true})
		assert.Equal(t, models.StatusPending, st.Session.Status)
		assert.Equal(t, []Effect{FetchProfile{UserID: userID}}, effects)
	})

	t.Run("explicit sign-in followed by its own push fetches once", func(t *testing.T) {
		st, _ := Reduce(anon, SignedIn{Session: providerSession(userID), Explicit: true})
		_, effects := Reduce(st, SignedIn{Session: providerSession(userID)})
		assert.Empty(t, effects)
	})
}

func TestReduceSignedOut(t *testing.T) {
	userID := id.NewUserID()

	t.Run("authenticated tab lands on the landing page", func(t *testing.T) {
		st, effects := Reduce(authenticated(t, userID, profile.RoleAdmin), SignedOut{})
		assert.Equal(t, models.PhaseSignedOut, st.Phase)
		assert.Equal(t, models.RouteLanding, st.Route)
		assert.Nil(t, st.Session)
		assert.False(t, st.BootResolved)
		assert.Equal(t, []Effect{ClearRoute{}}, effects)
	})

	t.Run("flow tab keeps its page", func(t *testing.T) {
		flow, _ := Reduce(models.Initial(), BootFlowDetected{Flow: crosstab.FlowRecovery})
		flow, _ = Reduce(flow, RecoveryStarted{Session: providerSession(userID)})
		require.NotNil(t, flow.Session)

		st, effects := Reduce(flow, SignedOut{})
		assert.Equal(t, models.PhaseInAuthFlow, st.Phase)
		assert.Equal(t, models.RouteResetPassword, st.Route)
		assert.Nil(t, st.Session)
		assert.Empty(t, effects)
	})

	t.Run("nothing to sign out is a no-op", func(t *testing.T) {
		anon, _ := Reduce(models.Initial(), BootResolved{})
		st, effects := Reduce(anon, SignedOut{})
		assert.Equal(t, anon, st)
		assert.Empty(t, effects)
	})
}

func TestReduceRecoveryPush(t *testing.T) {
	anon, _ := Reduce(models.Initial(), BootResolved{})
	sess := providerSession(id.NewUserID())

	st, effects := Reduce(anon, RecoveryStarted{Session: sess})
	assert.Equal(t, models.PhaseInAuthFlow, st.Phase)
	assert.Equal(t, crosstab.FlowRecovery, st.Flow)
	assert.Equal(t, []Effect{AnnounceFlow{Flow: crosstab.FlowRecovery}}, effects)

	st, effects = Reduce(anon, RecoveryStarted{Session: sess, FlagActive: true})
	assert.Equal(t, anon, st)
	assert.Equal(t, []Effect{Suppressed{Reason: "cross_tab_flow"}}, effects)
}

func TestReduceCompleteFlow(t *testing.T) {
	flow, _ := Reduce(models.Initial(), BootFlowDetected{Flow: crosstab.FlowRecovery})
	st, effects := Reduce(flow, CompleteFlow{})
	assert.Equal(t, models.PhaseAnonymous, st.Phase)
	assert.Equal(t, models.RouteSignIn, st.Route)
	assert.Equal(t, []Effect{RetractFlow{}}, effects)

	flow, _ = Reduce(flow, RecoveryStarted{Session: providerSession(id.NewUserID())})
	_, effects = Reduce(flow, CompleteFlow{})
	assert.Equal(t, []Effect{RetractFlow{}, ForceSignOut{}}, effects)
}

func TestReduceNavigate(t *testing.T) {
	finder := authenticated(t, id.NewUserID(), profile.RoleFinder)

	st, effects := Reduce(finder, Navigate{Route: models.RouteMyClaims})
	assert.Equal(t, models.RouteMyClaims, st.Route)
	assert.Equal(t, []Effect{PersistRoute{Route: models.RouteMyClaims}}, effects)

	st, effects = Reduce(finder, Navigate{Route: models.RouteAdminQueue})
	assert.Equal(t, finder.Route, st.Route)
	assert.True(t, dErrors.HasCode(st.Err, dErrors.CodeForbidden))
	assert.Empty(t, effects)

	st, effects = Reduce(finder, Navigate{Route: models.RouteLanding})
	assert.Equal(t, models.RouteLanding, st.Route)
	assert.Empty(t, effects, "the landing page is never persisted")

	anon, _ := Reduce(models.Initial(), BootResolved{})
	st, _ = Reduce(anon, Navigate{Route: models.RouteItems})
	assert.Equal(t, models.RouteLanding, st.Route)
	assert.True(t, dErrors.HasCode(st.Err, dErrors.CodeUnauthorized))

	flow, _ := Reduce(models.Initial(), BootFlowDetected{Flow: crosstab.FlowRecovery})
	st, _ = Reduce(flow, Navigate{Route: models.RouteSignIn})
	assert.Equal(t, models.RouteResetPassword, st.Route)
}

func TestReduceRemoteFlowIsDisplayOnly(t *testing.T) {
	anon, _ := Reduce(models.Initial(), BootResolved{})
	st, effects := Reduce(anon, FlowBroadcast{Message: crosstab.Message{Kind: crosstab.MessageAnnounce, Flow: crosstab.FlowRecovery}})
	assert.Equal(t, crosstab.FlowRecovery, st.RemoteFlow)
	assert.Empty(t, effects)

	// suppression is decided by the durable flag, not the broadcast
	_, effects = Reduce(st, SignedIn{Session: providerSession(id.NewUserID())})
	assert.Len(t, effects, 1)
	assert.IsType(t, FetchProfile{}, effects[0])

	st, _ = Reduce(st, FlowBroadcast{Message: crosstab.Message{Kind: crosstab.MessageRetract}})
	assert.Equal(t, crosstab.FlowNone, st.RemoteFlow)
}
