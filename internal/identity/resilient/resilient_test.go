package resilient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lostfound/internal/identity"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/platform/circuit"
)

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &identity.Session{Email: "finder@campus.edu"}, nil
}

func (s *stubProvider) GetUser(context.Context, string) (*identity.Session, error) {
	s.calls++
	return nil, s.err
}

func (s *stubProvider) SignOut(context.Context, string) error {
	s.calls++
	return s.err
}

type ResilientSuite struct {
	suite.Suite
	stub     *stubProvider
	now      time.Time
	provider *Provider
}

func TestResilientSuite(t *testing.T) {
	suite.Run(t, new(ResilientSuite))
}

func (s *ResilientSuite) SetupTest() {
	s.stub = &stubProvider{}
	s.now = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return s.now }),
	)
	s.provider = New(s.stub, slog.New(slog.NewTextHandler(io.Discard, nil)), WithBreaker(breaker))
}

func (s *ResilientSuite) TestCredentialErrorsDoNotTrip() {
	s.stub.err = dErrors.New(dErrors.CodeInvalidCredential, "bad")
	for range 5 {
		_, err := s.provider.SignInWithPassword(context.Background(), "a", "b")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	}
	s.Equal(5, s.stub.calls)
}

func (s *ResilientSuite) TestOutageOpensCircuitAndShortCircuits() {
	s.stub.err = errors.New("connection refused")

	for range 2 {
		_, err := s.provider.SignInWithPassword(context.Background(), "a", "b")
		s.True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
	}
	s.Equal(2, s.stub.calls)

	_, err := s.provider.SignInWithPassword(context.Background(), "a", "b")
	s.True(dErrors.HasCode(err, dErrors.CodeProviderUnavailable))
	s.Equal(2, s.stub.calls, "open circuit does not reach the delegate")

	s.Run("probe after cooldown closes on success", func() {
		s.now = s.now.Add(2 * time.Minute)
		s.stub.err = nil
		sess, err := s.provider.SignInWithPassword(context.Background(), "a", "b")
		s.Require().NoError(err)
		s.Equal("finder@campus.edu", sess.Email)
		s.Equal(3, s.stub.calls)
	})
}

func (s *ResilientSuite) TestInternalCodeBecomesProviderUnavailable() {
	s.stub.err = dErrors.New(dErrors.CodeInternal, "db down")
	err := s.provider.SignOut(context.Background(), "tok")
	s.Equal(dErrors.CodeProviderUnavailable, dErrors.CodeOf(err))
}
