package session

import (
	crosstab "lostfound/internal/crosstab/models"
	"lostfound/internal/identity"
	profilesvc "lostfound/internal/profile/service"
	"lostfound/internal/session/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

const unverifiedRemedy = "open the confirmation link we emailed you, then sign in again"

// Reduce is the whole session state machine. It performs no I/O: anything
// that has to touch the provider, the flag or storage is returned as an effect.
func Reduce(st models.State, ev Event) (models.State, []Effect) {
	switch e := ev.(type) {
	case BootFlowDetected:
		return bootIntoFlow(st, e)
	case BootResolved:
		return bootResolved(st, e)
	case BootTimedOut:
		if st.Phase != models.PhaseInitializing {
			return st, nil
		}
		return anonymous(st, dErrors.New(dErrors.CodeProviderUnavailable, "session could not be resolved in time")), nil
	case ProfileLoaded:
		return profileLoaded(st, e)
	case ProfileFailed:
		return profileFailed(st, e)
	case SignedIn:
		return signedIn(st, e)
	case SignedOut:
		return signedOut(st)
	case RecoveryStarted:
		return recoveryStarted(st, e)
	case UserUpdated:
		return userUpdated(st, e)
	case FlowBroadcast:
		return flowBroadcast(st, e)
	case FlowAnnounceFailed:
		st.Err = e.Err
		return st, nil
	case Navigate:
		return navigate(st, e)
	case CompleteFlow:
		return completeFlow(st)
	}
	return st, nil
}

func bootIntoFlow(st models.State, e BootFlowDetected) (models.State, []Effect) {
	if st.Phase != models.PhaseInitializing || !e.Flow.IsValid() {
		return st, nil
	}
	return models.State{
		Phase:      models.PhaseInAuthFlow,
		Flow:       e.Flow,
		Route:      flowRoute(e.Flow),
		RemoteFlow: st.RemoteFlow,
		Err:        e.LinkErr,
	}, []Effect{AnnounceFlow{Flow: e.Flow}}
}

func bootResolved(st models.State, e BootResolved) (models.State, []Effect) {
	if st.Phase != models.PhaseInitializing {
		return st, nil
	}
	switch {
	case e.Err != nil:
		// the persisted route survives an outage
		return anonymous(st, e.Err), nil
	case e.Session == nil:
		return anonymous(st, e.LinkErr), []Effect{ClearRoute{}}
	case !e.Session.EmailConfirmed:
		err := dErrors.WithRemedy(dErrors.CodeEmailUnverified, "email address is not confirmed", unverifiedRemedy)
		return anonymous(st, err), []Effect{ForceSignOut{}}
	}
	st.Session = pending(e.Session)
	st.BootResolved = true
	st.SavedRoute = e.SavedRoute
	st.Err = nil
	return st, []Effect{FetchProfile{UserID: e.Session.UserID}}
}

func profileLoaded(st models.State, e ProfileLoaded) (models.State, []Effect) {
	if !awaitingProfile(st, e.UserID) || e.Profile == nil {
		return st, nil
	}
	p := e.Profile
	if !p.IsActive() {
		err := dErrors.WithRemedy(dErrors.CodeAccountInactive, "account is inactive", profilesvc.InactiveRemedy)
		return anonymous(st, err), []Effect{ForceSignOut{}, ClearRoute{}}
	}

	sess := *st.Session
	sess.Role = p.Role
	sess.AccountStatus = p.Status
	sess.Status = models.StatusAuthenticated

	route := st.SavedRoute
	if !route.Persistable() || !route.AllowedFor(p.Role) {
		route = models.Home(p.Role)
	}

	st.Phase = models.PhaseAuthenticated
	st.Flow = crosstab.FlowNone
	st.Session = &sess
	st.Route = route
	st.SavedRoute = models.RouteNone
	st.Err = nil
	return st, []Effect{PersistRoute{Route: route}}
}

func profileFailed(st models.State, e ProfileFailed) (models.State, []Effect) {
	if !awaitingProfile(st, e.UserID) {
		return st, nil
	}
	next := anonymous(st, e.Err)
	if dErrors.HasCode(e.Err, dErrors.CodeProfileNotFound) {
		return next, []Effect{ForceSignOut{}}
	}
	return next, nil
}

func signedIn(st models.State, e SignedIn) (models.State, []Effect) {
	if e.Session == nil {
		return st, nil
	}
	if !e.Explicit {
		switch {
		case st.Phase == models.PhaseInAuthFlow:
			// the flow may hold a provider session; it never grants access
			st.Session = pending(e.Session)
			return st, []Effect{Suppressed{Reason: "local_flow"}}
		case e.FlagActive:
			return st, []Effect{Suppressed{Reason: "cross_tab_flow"}}
		case st.BootResolved:
			return st, nil
		}
	}
	if st.Session != nil && st.Session.UserID == e.Session.UserID && st.Phase != models.PhaseInAuthFlow {
		return st, nil
	}

	var effects []Effect
	if st.Phase == models.PhaseInAuthFlow {
		effects = append(effects, RetractFlow{})
		st.Phase = models.PhaseAnonymous
		st.Flow = crosstab.FlowNone
		st.Route = models.RouteSignIn
	}
	if st.Phase == models.PhaseAuthenticated {
		// another identity took over the shared session
		st.Phase = models.PhaseAnonymous
	}
	st.Session = pending(e.Session)
	st.Err = nil
	return st, append(effects, FetchProfile{UserID: e.Session.UserID})
}

func signedOut(st models.State) (models.State, []Effect) {
	if st.Session == nil {
		return st, nil
	}
	if st.Phase == models.PhaseInAuthFlow {
		// the flow page decides where to go next
		st.Session = nil
		return st, nil
	}
	return models.State{
		Phase:      models.PhaseSignedOut,
		Route:      models.RouteLanding,
		RemoteFlow: st.RemoteFlow,
	}, []Effect{ClearRoute{}}
}

func recoveryStarted(st models.State, e RecoveryStarted) (models.State, []Effect) {
	switch {
	case st.Phase == models.PhaseInAuthFlow:
		if e.Session != nil {
			st.Session = pending(e.Session)
		}
		return st, nil
	case e.FlagActive:
		return st, []Effect{Suppressed{Reason: "cross_tab_flow"}}
	}
	next := models.State{
		Phase:      models.PhaseInAuthFlow,
		Flow:       crosstab.FlowRecovery,
		Route:      models.RouteResetPassword,
		RemoteFlow: st.RemoteFlow,
	}
	if e.Session != nil {
		next.Session = pending(e.Session)
	}
	return next, []Effect{AnnounceFlow{Flow: crosstab.FlowRecovery}}
}

func userUpdated(st models.State, e UserUpdated) (models.State, []Effect) {
	if st.Session == nil || e.Session == nil || st.Session.UserID != e.Session.UserID {
		return st, nil
	}
	sess := *st.Session
	sess.Email = e.Session.Email
	sess.EmailConfirmed = e.Session.EmailConfirmed
	st.Session = &sess
	return st, nil
}

func flowBroadcast(st models.State, e FlowBroadcast) (models.State, []Effect) {
	switch e.Message.Kind {
	case crosstab.MessageAnnounce:
		st.RemoteFlow = e.Message.Flow
	case crosstab.MessageRetract:
		st.RemoteFlow = crosstab.FlowNone
	}
	return st, nil
}

func navigate(st models.State, e Navigate) (models.State, []Effect) {
	if st.Phase == models.PhaseInAuthFlow || st.Phase == models.PhaseInitializing {
		st.Err = dErrors.New(dErrors.CodeBadRequest, "navigation is not available until the current step finishes")
		return st, nil
	}
	if e.Route.Public() {
		st.Route = e.Route
		st.Err = nil
		return st, nil
	}
	if !st.Authenticated() {
		st.Err = dErrors.New(dErrors.CodeUnauthorized, "sign in to open this page")
		return st, nil
	}
	if !e.Route.AllowedFor(st.Session.Role) {
		st.Err = dErrors.New(dErrors.CodeForbidden, "this page is not available for your role")
		return st, nil
	}
	st.Route = e.Route
	st.Err = nil
	if e.Route.Persistable() {
		return st, []Effect{PersistRoute{Route: e.Route}}
	}
	return st, nil
}

func completeFlow(st models.State) (models.State, []Effect) {
	if st.Phase != models.PhaseInAuthFlow {
		return st, nil
	}
	effects := []Effect{RetractFlow{}}
	if st.Session != nil {
		effects = append(effects, ForceSignOut{})
	}
	return models.State{
		Phase:      models.PhaseAnonymous,
		Route:      models.RouteSignIn,
		RemoteFlow: st.RemoteFlow,
	}, effects
}

// awaitingProfile guards against lookups that finished after the tab moved on.
func awaitingProfile(st models.State, userID id.UserID) bool {
	return st.Session != nil &&
		st.Session.Status == models.StatusPending &&
		st.Session.UserID == userID &&
		st.Phase != models.PhaseInAuthFlow
}

func anonymous(st models.State, err error) models.State {
	return models.State{
		Phase:      models.PhaseAnonymous,
		Route:      models.RouteLanding,
		RemoteFlow: st.RemoteFlow,
		Err:        err,
	}
}

func pending(s *identity.Session) *models.Session {
	return &models.Session{
		UserID:         s.UserID,
		Email:          s.Email,
		Status:         models.StatusPending,
		EmailConfirmed: s.EmailConfirmed,
	}
}

func flowRoute(flow crosstab.Flow) models.Route {
	if flow == crosstab.FlowRecovery {
		return models.RouteResetPassword
	}
	return models.RouteVerifyEmail
}
