package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lostfound/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseItemID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseClaimID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		parsed, err := ParseTabID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw.String(), parsed.String())
		assert.False(t, parsed.IsNil())
	})
}

func TestTypedIDsMarshalAsStrings(t *testing.T) {
	tab := NewTabID()
	raw, err := json.Marshal(struct {
		Tab TabID `json:"tab"`
	}{tab})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tab":"`+tab.String()+`"}`, string(raw))

	var back struct {
		Tab TabID `json:"tab"`
	}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, tab, back.Tab)
}
