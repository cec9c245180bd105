package identity

import (
	"context"
	"log/slog"
	"sync"

	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/middleware/requesttime"
)

// Authenticator performs the gated sign-in (lock check, credentials, profile).
type Authenticator interface {
	SignIn(ctx context.Context, identityKey, password string) (*Session, error)
}

// Client holds the one provider session shared by every tab of an origin and
// pushes auth events to all subscribers. Tabs never own the session; they
// only react to it.
type Client struct {
	provider Provider
	auth     Authenticator
	logger   *slog.Logger

	mu      sync.Mutex
	current *Session
	subs    map[int]func(Event)
	nextSub int
}

type ClientOption func(*Client)

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client. auth may be nil, in which case SignIn goes
// straight to the provider.
func NewClient(provider Provider, auth Authenticator, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		auth:     auth,
		logger:   slog.Default(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSession returns the stored session after confirming it with the
// provider. It returns nil, nil when nobody is signed in or the token has
// lapsed.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return nil, nil
	}
	if current.Expired(requesttime.Now(ctx)) {
		c.drop(current)
		return nil, nil
	}

	fresh, err := c.provider.GetUser(ctx, current.AccessToken)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			c.drop(current)
			return nil, nil
		}
		return nil, err
	}
	fresh.AccessToken = current.AccessToken
	if fresh.ExpiresAt.IsZero() {
		fresh.ExpiresAt = current.ExpiresAt
	}
	return fresh, nil
}

// SignIn authenticates and, on success, stores the session and emits SIGNED_IN.
func (c *Client) SignIn(ctx context.Context, identityKey, password string) (*Session, error) {
	var (
		sess *Session
		err  error
	)
	if c.auth != nil {
		sess, err = c.auth.SignIn(ctx, identityKey, password)
	} else {
		sess, err = c.provider.SignInWithPassword(ctx, identityKey, password)
	}
	if err != nil {
		return nil, err
	}
	c.Adopt(sess, EventSignedIn)
	return sess, nil
}

// Adopt stores a session established outside SignIn, such as by a recovery
// or confirmation link, and emits kind.
func (c *Client) Adopt(sess *Session, kind EventKind) {
	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()
	c.emit(Event{Kind: kind, Session: sess})
}

// SignOut revokes the stored token and emits SIGNED_OUT. The local session is
// cleared even when the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()

	var err error
	if current != nil {
		err = c.provider.SignOut(ctx, current.AccessToken)
		if err != nil {
			c.logger.WarnContext(ctx, "provider sign-out failed", "error", err)
		}
	}
	c.emit(Event{Kind: EventSignedOut})
	return err
}

// Subscribe registers fn for every future event and returns its cancel func.
func (c *Client) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	key := c.nextSub
	c.nextSub++
	c.subs[key] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, key)
			c.mu.Unlock()
		})
	}
}

func (c *Client) drop(stale *Session) {
	c.mu.Lock()
	if c.current == stale {
		c.current = nil
	}
	c.mu.Unlock()
}

// emit calls subscribers outside the lock so a handler may call back into the client.
func (c *Client) emit(ev Event) {
	c.mu.Lock()
	handlers := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}
