package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
)

func TestTokenService(t *testing.T) {
	tokens := NewTokenService("test-signing-key", "lostfound", time.Minute)
	userID := id.NewUserID()

	t.Run("issued token validates", func(t *testing.T) {
		token, jti, expiresAt, err := tokens.Issue(context.Background(), userID, "finder@campus.edu")
		require.NoError(t, err)
		claims, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, jti, claims.ID)
		assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
	})

	t.Run("garbage is unauthorized", func(t *testing.T) {
		_, err := tokens.Validate("not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("foreign key is unauthorized", func(t *testing.T) {
		other := NewTokenService("other-key", "lostfound", time.Minute)
		token, _, _, err := other.Issue(context.Background(), userID, "x@campus.edu")
		require.NoError(t, err)
		_, err = tokens.Validate(token)
		assert.ErrorContains(t, err, "invalid token")
	})

	t.Run("foreign issuer is unauthorized", func(t *testing.T) {
		other := NewTokenService("test-signing-key", "elsewhere", time.Minute)
		token, _, _, err := other.Issue(context.Background(), userID, "x@campus.edu")
		require.NoError(t, err)
		_, err = tokens.Validate(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, expiresAt, err := tokens.Issue(context.Background(), userID, "x@campus.edu")
		require.NoError(t, err)
		_, err = tokens.ValidateAt(token, expiresAt.Add(time.Minute))
		assert.ErrorContains(t, err, "token expired")
	})
}
