package domainerrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "item not found"}
		s.Equal("item not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeNotFound}
		s.Equal("not_found", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("works with errors.Unwrap", func() {
		inner := errors.New("root cause")
		err := &Error{Code: CodeInternal, Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeSelfClaim, Message: "a"}
		err2 := &Error{Code: CodeSelfClaim, Message: "b"}
		s.True(errors.Is(err1, err2))
	})

	s.Run("different codes do not match", func() {
		s.False(errors.Is(New(CodeNotFound, "x"), New(CodeConflict, "x")))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code and remedy", func() {
		unlock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		inner := Locked(unlock, "try again in 5 minutes")
		wrapped := Wrap(fmt.Errorf("sign in: %w", inner), CodeInternal, "sign in failed")

		s.True(HasCode(wrapped, CodeAccountLocked))
		var de *Error
		s.Require().True(errors.As(wrapped, &de))
		s.Equal("try again in 5 minutes", de.Remedy)
		s.Require().NotNil(de.UnlockAt)
		s.True(unlock.Equal(*de.UnlockAt))
	})

	s.Run("applies code to foreign errors", func() {
		wrapped := Wrap(errors.New("boom"), CodeInternal, "failed")
		s.Equal(CodeInternal, CodeOf(wrapped))
	})
}

func (s *DomainErrorsSuite) TestIsSoft() {
	s.True(IsSoft(New(CodeAlreadyTransitioned, "done")))
	s.True(IsSoft(New(CodeDuplicatePending, "dup")))
	s.True(IsSoft(New(CodeSelfClaim, "self")))
	s.False(IsSoft(New(CodeInternal, "boom")))
	s.False(IsSoft(errors.New("plain")))
}
