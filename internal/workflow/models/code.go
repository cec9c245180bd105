package models

import (
	"crypto/rand"
	"fmt"
	"strings"

	s "lostfound/pkg/string"
)

// Claim codes are "LF-" plus eight Crockford base32 characters (40 random bits).
const (
	CodePrefix = "LF-"
	codeLength = 8
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewClaimCode returns a random claim code.
func NewClaimCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	var b strings.Builder
	b.Grow(len(CodePrefix) + codeLength)
	b.WriteString(CodePrefix)
	for _, c := range buf {
		b.WriteByte(crockford[c&31])
	}
	return b.String(), nil
}

// NormalizeClaimCode upper-cases a code and folds the characters people
// confuse (O→0, I/L→1). It returns false when the result is not a valid code.
func NormalizeClaimCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = strings.TrimPrefix(code, CodePrefix)
	code = strings.ReplaceAll(code, "-", "")
	if len(code) != codeLength {
		return "", false
	}
	var b strings.Builder
	b.WriteString(CodePrefix)
	for _, r := range code {
		switch r {
		case 'O':
			r = '0'
		case 'I', 'L':
			r = '1'
		}
		if !strings.ContainsRune(crockford, r) {
			return "", false
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// NormalizeAnswer is the form answers are compared in.
func NormalizeAnswer(answer string) string {
	return s.Fold(answer)
}

// CountMatches compares answers position by position with the item's questions.
func CountMatches(questions []SecurityQuestion, answers []string) int {
	n := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if want := NormalizeAnswer(q.Answer); want != "" && want == NormalizeAnswer(answers[i]) {
			n++
		}
	}
	return n
}
