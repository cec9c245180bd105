// Package session decides, per browser tab, whether the visitor is anonymous,
// inside a recovery or verification flow, or signed in with a role, and which
// page the tab shows.
//
// All state changes go through Reduce on a single goroutine per tab. Provider
// pushes, lookup results and user commands are queued into one mailbox, so
// boot resolution and push delivery can never interleave.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lostfound/internal/crosstab"
	crossmodels "lostfound/internal/crosstab/models"
	"lostfound/internal/identity"
	"lostfound/internal/platform/metrics"
	profile "lostfound/internal/profile/models"
	"lostfound/internal/session/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

// SessionClient is the per-origin provider session shared by all tabs.
type SessionClient interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	SignIn(ctx context.Context, identityKey, password string) (*identity.Session, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(identity.Event)) func()
}

type FlowCoordinator interface {
	Tab() id.TabID
	Announce(ctx context.Context, flow crossmodels.Flow) (*crosstab.Lease, error)
	Retract(ctx context.Context) error
	Active(ctx context.Context) (*crossmodels.Flag, error)
	Holding() (crossmodels.Flow, bool)
	Subscribe(ctx context.Context, fn func(crossmodels.Message)) (func(), error)
}

type ProfileSource interface {
	Get(ctx context.Context, userID id.UserID) (*profile.Profile, error)
}

type RouteStore interface {
	Load(ctx context.Context) (models.Route, error)
	Save(ctx context.Context, route models.Route) error
	Clear(ctx context.Context) error
}

// Config bounds how long a tab may wait on its collaborators.
type Config struct {
	// BootTimeout caps the whole boot resolution, profile fetch included.
	BootTimeout time.Duration
	// EffectTimeout caps each lookup or write after boot.
	EffectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BootTimeout:   5 * time.Second,
		EffectTimeout: 10 * time.Second,
	}
}

// Orchestrator runs one tab.
type Orchestrator struct {
	client   SessionClient
	coord    FlowCoordinator
	profiles ProfileSource
	routes   RouteStore
	config   Config
	logger   *slog.Logger
	metrics  *metrics.Metrics

	inbox *mailbox

	mu           sync.RWMutex
	state        models.State
	bootDeadline time.Time
	subs         map[int]func(models.State)
	nextSub      int

	ready     chan struct{}
	readyOnce sync.Once
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		if cfg.BootTimeout > 0 {
			o.config.BootTimeout = cfg.BootTimeout
		}
		if cfg.EffectTimeout > 0 {
			o.config.EffectTimeout = cfg.EffectTimeout
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func New(client SessionClient, coord FlowCoordinator, profiles ProfileSource, routes RouteStore, opts ...Option) (*Orchestrator, error) {
	if client == nil || coord == nil || profiles == nil || routes == nil {
		return nil, fmt.Errorf("session client, flow coordinator, profile source and route store are required")
	}
	o := &Orchestrator{
		client:   client,
		coord:    coord,
		profiles: profiles,
		routes:   routes,
		config:   DefaultConfig(),
		logger:   slog.Default(),
		inbox:    newMailbox(),
		state:    models.Initial(),
		subs:     make(map[int]func(models.State)),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run boots the tab from bootURL and then processes events until ctx ends.
// Cancelling ctx is the tab's unmount: any flow this tab announced is retracted.
func (o *Orchestrator) Run(ctx context.Context, bootURL string) error {
	unsubProvider := o.client.Subscribe(func(ev identity.Event) {
		o.inbox.push(providerPush{event: ev})
	})
	defer unsubProvider()

	unsubBus, err := o.coord.Subscribe(ctx, func(msg crossmodels.Message) {
		o.inbox.push(FlowBroadcast{Message: msg})
	})
	if err != nil {
		// the durable flag still works without the live channel
		o.logger.WarnContext(ctx, "auth flow broadcast unavailable", "error", err)
		unsubBus = func() {}
	}
	defer unsubBus()

	defer func() {
		if rerr := o.coord.Retract(context.WithoutCancel(ctx)); rerr != nil {
			o.logger.WarnContext(ctx, "failed to retract auth flow on unmount", "error", rerr)
		}
	}()

	o.boot(ctx, bootURL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.inbox.signal:
			for _, ev := range o.inbox.drain() {
				o.apply(ctx, ev)
			}
		}
	}
}

// State returns the current state snapshot.
func (o *Orchestrator) State() models.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Ready is closed once the tab has left Initializing.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// Subscribe calls fn on the event loop after every state change.
func (o *Orchestrator) Subscribe(fn func(models.State)) func() {
	o.mu.Lock()
	key := o.nextSub
	o.nextSub++
	o.subs[key] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, key)
			o.mu.Unlock()
		})
	}
}

// SignIn is this tab's explicit sign-in. Unlike a SIGNED_IN push it is never
// suppressed by another tab's flow.
func (o *Orchestrator) SignIn(ctx context.Context, identityKey, password string) (*identity.Session, error) {
	sess, err := o.client.SignIn(ctx, identityKey, password)
	if err != nil {
		return nil, err
	}
	o.inbox.push(SignedIn{Session: sess, Explicit: true})
	return sess, nil
}

// SignOut revokes the shared session; every tab sees SIGNED_OUT.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	return o.client.SignOut(ctx)
}

func (o *Orchestrator) Navigate(route models.Route) {
	o.inbox.push(Navigate{Route: route})
}

// CompleteFlow ends the recovery or verification flow this tab is in.
func (o *Orchestrator) CompleteFlow() {
	o.inbox.push(CompleteFlow{})
}

func (o *Orchestrator) boot(ctx context.Context, bootURL string) {
	bootCtx, cancel := context.WithTimeout(ctx, o.config.BootTimeout)
	defer cancel()
	deadline, _ := bootCtx.Deadline()
	o.mu.Lock()
	o.bootDeadline = deadline
	o.mu.Unlock()

	link := ParseLink(bootURL)
	if link.Flow != crossmodels.FlowNone {
		o.apply(ctx, BootFlowDetected{Flow: link.Flow, LinkErr: link.Err})
		return
	}
	if link.Err != nil {
		o.logger.InfoContext(ctx, "boot link rejected by provider", "error", link.Err)
	}

	sess, err := await(bootCtx, o.client.GetSession)
	if err != nil {
		err = asProviderError(err, "session lookup failed")
	}
	ev := BootResolved{Session: sess, Err: err, LinkErr: link.Err}
	if err == nil && sess != nil {
		route, rerr := await(bootCtx, o.routes.Load)
		if rerr != nil {
			o.logger.WarnContext(ctx, "failed to load saved route", "error", rerr)
		}
		ev.SavedRoute = route
	}
	o.apply(ctx, ev)

	if o.State().Phase == models.PhaseInitializing {
		o.apply(ctx, BootTimedOut{})
	}
}

// apply reduces ev and runs the resulting effects, feeding their results
// back in before the next queued event is looked at.
func (o *Orchestrator) apply(ctx context.Context, ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]
		if push, ok := ev.(providerPush); ok {
			ev = o.translate(ctx, push.event)
			if ev == nil {
				continue
			}
		}

		o.mu.Lock()
		prev := o.state
		next, effects := Reduce(prev, ev)
		o.state = next
		o.mu.Unlock()

		if !sameState(prev, next) {
			o.changed(ctx, prev, next)
		}
		for _, eff := range effects {
			if follow := o.run(ctx, eff); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
}

func (o *Orchestrator) changed(ctx context.Context, prev, next models.State) {
	if prev.Phase == models.PhaseInitializing && next.Phase != models.PhaseInitializing {
		o.metrics.IncSessionResolution(string(next.Phase))
		o.logger.InfoContext(ctx, "session_resolved",
			"phase", string(next.Phase),
			"route", string(next.Route),
			"tab_id", o.coord.Tab().String(),
		)
		o.readyOnce.Do(func() { close(o.ready) })
	}
	if next.Err != nil && next.Err != prev.Err {
		o.logger.WarnContext(ctx, "session error surfaced",
			"phase", string(next.Phase),
			"code", string(dErrors.CodeOf(next.Err)),
			"error", next.Err,
		)
	}

	o.mu.RLock()
	handlers := make([]func(models.State), 0, len(o.subs))
	for _, fn := range o.subs {
		handlers = append(handlers, fn)
	}
	o.mu.RUnlock()
	for _, fn := range handlers {
		fn(next)
	}
}

// translate turns a provider push into a reducer event, reading the durable
// flag where suppression depends on it.
func (o *Orchestrator) translate(ctx context.Context, ev identity.Event) Event {
	switch ev.Kind {
	case identity.EventSignedIn:
		return SignedIn{Session: ev.Session, FlagActive: o.flagActive(ctx)}
	case identity.EventSignedOut:
		return SignedOut{}
	case identity.EventPasswordRecovery:
		return RecoveryStarted{Session: ev.Session, FlagActive: o.flagActive(ctx)}
	case identity.EventUserUpdated:
		return UserUpdated{Session: ev.Session}
	}
	return nil
}

// flagActive fails safe: when the flag cannot be read, a flow is assumed open
// and auto-login is held back.
func (o *Orchestrator) flagActive(ctx context.Context) bool {
	if _, holding := o.coord.Holding(); holding {
		return true
	}
	ctx, cancel := o.effectContext(ctx)
	defer cancel()
	flag, err := o.coord.Active(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "auth flow flag unreadable, suppressing auto sign-in", "error", err)
		return true
	}
	return flag != nil
}

func (o *Orchestrator) run(ctx context.Context, eff Effect) Event {
	switch e := eff.(type) {
	case FetchProfile:
		ectx, cancel := o.effectContext(ctx)
		defer cancel()
		p, err := await(ectx, func(ctx context.Context) (*profile.Profile, error) {
			return o.profiles.Get(ctx, e.UserID)
		})
		if err != nil {
			return ProfileFailed{UserID: e.UserID, Err: err}
		}
		return ProfileLoaded{UserID: e.UserID, Profile: p}

	case AnnounceFlow:
		// the lease lives as long as the tab, not the effect
		if _, err := o.coord.Announce(ctx, e.Flow); err != nil {
			return FlowAnnounceFailed{Err: err}
		}

	case RetractFlow:
		if err := o.coord.Retract(ctx); err != nil {
			o.logger.WarnContext(ctx, "failed to retract auth flow", "error", err)
		}

	case ForceSignOut:
		ectx, cancel := o.effectContext(ctx)
		defer cancel()
		if err := o.client.SignOut(ectx); err != nil {
			o.logger.WarnContext(ctx, "forced sign-out failed", "error", err)
		}

	case PersistRoute:
		ectx, cancel := o.effectContext(ctx)
		defer cancel()
		if err := o.routes.Save(ectx, e.Route); err != nil {
			o.logger.WarnContext(ctx, "failed to persist route", "route", string(e.Route), "error", err)
		}

	case ClearRoute:
		ectx, cancel := o.effectContext(ctx)
		defer cancel()
		if err := o.routes.Clear(ectx); err != nil {
			o.logger.WarnContext(ctx, "failed to clear persisted route", "error", err)
		}

	case Suppressed:
		o.metrics.IncSuppressedSignIn()
		o.logger.InfoContext(ctx, "sign_in_suppressed",
			"reason", e.Reason,
			"tab_id", o.coord.Tab().String(),
		)
	}
	return nil
}

// effectContext uses the boot deadline while the tab is still booting.
func (o *Orchestrator) effectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	o.mu.RLock()
	booting := o.state.Phase == models.PhaseInitializing
	deadline := o.bootDeadline
	o.mu.RUnlock()
	if booting && !deadline.IsZero() {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, o.config.EffectTimeout)
}

// await runs fn but gives up when ctx ends, even if fn ignores ctx.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		ch <- result{val: val, err: err}
	}()
	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, &dErrors.Error{Code: dErrors.CodeProviderUnavailable, Message: "timed out", Err: ctx.Err()}
	}
}

func asProviderError(err error, msg string) error {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout:
		return &dErrors.Error{Code: dErrors.CodeProviderUnavailable, Message: msg, Err: err}
	}
	return err
}

func sameState(a, b models.State) bool {
	return a.Phase == b.Phase &&
		a.Flow == b.Flow &&
		a.Route == b.Route &&
		a.RemoteFlow == b.RemoteFlow &&
		a.Session == b.Session &&
		a.Err == b.Err
}

// providerPush carries a raw provider event until the loop translates it.
type providerPush struct {
	event identity.Event
}

func (providerPush) isEvent() {}

// mailbox is an unbounded queue so a handler running on the loop (a forced
// sign-out emitting SIGNED_OUT, say) can enqueue without deadlocking.
type mailbox struct {
	mu     sync.Mutex
	items  []Event
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(ev Event) {
	m.mu.Lock()
	m.items = append(m.items, ev)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}
