// Package crosstab lets tabs of one origin tell each other that an auth flow
// (password recovery, email verification) is in progress, so no tab
// auto-logs in on the provider's SIGNED_IN push while the flow is open.
//
// Each announcing tab owns its own durable flag, which is authoritative and
// expires unless that tab keeps heartbeating. A flow is open while any tab's
// flag is live. The broadcast bus is a best-effort fast path.
package crosstab

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lostfound/internal/crosstab/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

type Store interface {
	Get(ctx context.Context) (*models.Flag, error)
	Set(ctx context.Context, flag models.Flag, ttl time.Duration) error
	Refresh(ctx context.Context, tab id.TabID, ttl time.Duration) (bool, error)
	ClearIfOwner(ctx context.Context, tab id.TabID) (bool, error)
}

type Bus interface {
	Publish(ctx context.Context, msg models.Message) error
	Subscribe(ctx context.Context, fn func(models.Message)) (func(), error)
}

// Config holds flag lifetimes. HeartbeatInterval must be well below FlagTTL.
type Config struct {
	FlagTTL           time.Duration
	HeartbeatInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		FlagTTL:           10 * time.Minute,
		HeartbeatInterval: time.Minute,
	}
}

// Coordinator is one tab's handle on the shared flag.
type Coordinator struct {
	tab    id.TabID
	store  Store
	bus    Bus
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	lease *Lease
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(c *Coordinator) {
		if cfg.FlagTTL > 0 {
			c.config.FlagTTL = cfg.FlagTTL
		}
		if cfg.HeartbeatInterval > 0 {
			c.config.HeartbeatInterval = cfg.HeartbeatInterval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func New(tab id.TabID, store Store, bus Bus, opts ...Option) (*Coordinator, error) {
	if tab.IsNil() {
		return nil, fmt.Errorf("tab id is required")
	}
	if store == nil || bus == nil {
		return nil, fmt.Errorf("store and bus are required")
	}
	c := &Coordinator{
		tab:    tab,
		store:  store,
		bus:    bus,
		config: DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config.HeartbeatInterval >= c.config.FlagTTL {
		return nil, fmt.Errorf("heartbeat interval %s must be shorter than flag ttl %s", c.config.HeartbeatInterval, c.config.FlagTTL)
	}
	return c, nil
}

func (c *Coordinator) Tab() id.TabID {
	return c.tab
}

// Announce marks flow as active for every tab and returns a lease that keeps
// the flag alive until Release or until ctx is cancelled. A previous lease
// held by this tab is released first.
func (c *Coordinator) Announce(ctx context.Context, flow models.Flow) (*Lease, error) {
	if !flow.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown auth flow")
	}

	c.mu.Lock()
	prev := c.lease
	c.mu.Unlock()
	if prev != nil {
		_ = prev.Release(context.WithoutCancel(ctx))
	}

	flag := models.Flag{Flow: flow, OriginTab: c.tab, SetAt: c.now()}
	if err := c.store.Set(ctx, flag, c.config.FlagTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set auth flow flag")
	}
	c.publish(ctx, models.MessageAnnounce, flow)

	lease := &Lease{c: c, flow: flow, stop: make(chan struct{})}
	c.mu.Lock()
	c.lease = lease
	c.mu.Unlock()

	go lease.heartbeat(ctx)

	c.logger.InfoContext(ctx, "auth_flow_announced", "flow", string(flow), "tab_id", c.tab.String())
	return lease, nil
}

// WithFlow runs fn inside an announced flow and always releases it, including
// when fn panics.
func (c *Coordinator) WithFlow(ctx context.Context, flow models.Flow, fn func(context.Context) error) error {
	lease, err := c.Announce(ctx, flow)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			c.logger.WarnContext(ctx, "failed to release auth flow flag", "error", rerr)
		}
	}()
	return fn(ctx)
}

// Retract releases this tab's lease. With no lease it still clears a flag
// this tab owns, which covers a restart that lost its in-memory lease.
func (c *Coordinator) Retract(ctx context.Context) error {
	c.mu.Lock()
	lease := c.lease
	c.mu.Unlock()
	if lease != nil {
		return lease.Release(ctx)
	}
	if _, err := c.store.ClearIfOwner(ctx, c.tab); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth flow flag")
	}
	return nil
}

// Active returns the most recently announced live flag, or nil when no flow
// is open in any tab.
func (c *Coordinator) Active(ctx context.Context) (*models.Flag, error) {
	flag, err := c.store.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read auth flow flag")
	}
	return flag, nil
}

// Holding reports whether this tab currently holds a lease.
func (c *Coordinator) Holding() (models.Flow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lease == nil {
		return models.FlowNone, false
	}
	return c.lease.flow, true
}

// Subscribe delivers messages from other tabs. Own messages are filtered out.
func (c *Coordinator) Subscribe(ctx context.Context, fn func(models.Message)) (func(), error) {
	return c.bus.Subscribe(ctx, func(msg models.Message) {
		if msg.OriginTab == c.tab {
			return
		}
		fn(msg)
	})
}

func (c *Coordinator) publish(ctx context.Context, kind models.MessageKind, flow models.Flow) {
	msg := models.Message{Kind: kind, Flow: flow, OriginTab: c.tab, SentAt: c.now()}
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.logger.WarnContext(ctx, "auth flow broadcast failed", "kind", string(kind), "error", err)
	}
}

func (c *Coordinator) release(ctx context.Context, l *Lease) error {
	c.mu.Lock()
	if c.lease == l {
		c.lease = nil
	}
	c.mu.Unlock()

	cleared, err := c.store.ClearIfOwner(ctx, c.tab)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth flow flag")
	}
	if cleared {
		c.publish(ctx, models.MessageRetract, l.flow)
		c.logger.InfoContext(ctx, "auth_flow_released", "flow", string(l.flow), "tab_id", c.tab.String())
	}
	return nil
}

// Lease is a held auth flow. Release is idempotent.
type Lease struct {
	c    *Coordinator
	flow models.Flow
	stop chan struct{}
	once sync.Once
	err  error
}

func (l *Lease) Flow() models.Flow {
	return l.flow
}

func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		l.err = l.c.release(ctx, l)
	})
	return l.err
}

// heartbeat keeps this tab's flag from going stale. It stops when the lease
// is released, when ctx ends (releasing the lease), or once the flag has
// already expired.
func (l *Lease) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(l.c.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			_ = l.Release(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			owned, err := l.c.store.Refresh(ctx, l.c.tab, l.c.config.FlagTTL)
			if err != nil {
				l.c.logger.WarnContext(ctx, "auth flow heartbeat failed", "error", err)
				continue
			}
			if !owned {
				l.c.logger.WarnContext(ctx, "auth flow flag expired before heartbeat", "tab_id", l.c.tab.String())
				return
			}
		}
	}
}
