// Package resilient guards an identity.Provider with a circuit breaker so a
// provider outage surfaces as ProviderUnavailable instead of hanging sign-ins.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lostfound/internal/identity"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/circuit"
)

// Provider wraps a delegate identity.Provider.
type Provider struct {
	delegate identity.Provider
	breaker  *circuit.Breaker
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Provider)

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Provider) {
		if b != nil {
			p.breaker = b
		}
	}
}

// WithTimeout bounds each delegate call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

func New(delegate identity.Provider, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		delegate: delegate,
		breaker:  circuit.New("identity_provider"),
		timeout:  5 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	var sess *identity.Session
	err := p.call(ctx, "sign_in", func(ctx context.Context) error {
		var err error
		sess, err = p.delegate.SignInWithPassword(ctx, email, password)
		return err
	})
	return sess, err
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (*identity.Session, error) {
	var sess *identity.Session
	err := p.call(ctx, "get_user", func(ctx context.Context) error {
		var err error
		sess, err = p.delegate.GetUser(ctx, accessToken)
		return err
	})
	return sess, err
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	return p.call(ctx, "sign_out", func(ctx context.Context) error {
		return p.delegate.SignOut(ctx, accessToken)
	})
}

// call runs fn when the breaker admits it. Answers from the provider, such as
// bad credentials, count as success; only infrastructure failures trip it.
func (p *Provider) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if !p.breaker.Allow() {
		return dErrors.New(dErrors.CodeProviderUnavailable, "identity provider unavailable")
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil || !isOutage(err) {
		if change := p.breaker.RecordSuccess(); change.Closed {
			p.logger.InfoContext(ctx, "circuit breaker closed", "circuit", p.breaker.Name())
		}
		return err
	}

	if change := p.breaker.RecordFailure(); change.Opened {
		p.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", p.breaker.Name(),
			"op", op,
			"error", err,
		)
	}
	// not Wrap: the delegate's internal code must not leak through
	return &dErrors.Error{Code: dErrors.CodeProviderUnavailable, Message: "identity provider unavailable", Err: err}
}

func isOutage(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeProviderUnavailable, dErrors.CodeTimeout:
		return true
	}
	return false
}

var _ identity.Provider = (*Provider)(nil)
