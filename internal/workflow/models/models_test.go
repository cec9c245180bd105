package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClaimCodeIsNormalized(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code, err := NewClaimCode()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, CodePrefix))

		norm, ok := NormalizeClaimCode(code)
		require.True(t, ok, code)
		assert.Equal(t, code, norm)

		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestNormalizeClaimCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"lowercase with prefix", "lf-abcd1234", "LF-ABCD1234", true},
		{"without prefix", "ABCD1234", "LF-ABCD1234", true},
		{"confusable letters", "LF-O1LIABCD", "LF-0111ABCD", true},
		{"grouped", "LF-ABCD-1234", "LF-ABCD1234", true},
		{"too short", "LF-ABC", "", false},
		{"excluded letter", "LF-ABCDU234", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeClaimCode(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountMatches(t *testing.T) {
	questions := []SecurityQuestion{
		{Question: "Colour?", Answer: "Dark  Blue"},
		{Question: "Sticker?", Answer: "penguin"},
		{Question: "Brand?", Answer: "acme"},
	}
	assert.Equal(t, 2, CountMatches(questions, []string{"dark blue", "Penguin ", "generic"}))
	assert.Equal(t, 1, CountMatches(questions, []string{"dark blue"}))
	assert.Zero(t, CountMatches(nil, []string{"x"}))
}

func TestPublicStripsAnswers(t *testing.T) {
	item := &LostItem{Questions: []SecurityQuestion{{Question: "Colour?", Answer: "blue"}}}
	pub := item.Public()
	assert.Equal(t, "Colour?", pub.Questions[0].Question)
	assert.Empty(t, pub.Questions[0].Answer)
	assert.Equal(t, "blue", item.Questions[0].Answer)
}

func TestOpenForClaims(t *testing.T) {
	for status, want := range map[ItemStatus]bool{
		ItemPending:  false,
		ItemVerified: true,
		ItemRejected: false,
		ItemClaimed:  false,
	} {
		item := &LostItem{Status: status}
		assert.Equal(t, want, item.OpenForClaims(), status)
	}
}
