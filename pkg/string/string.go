// Package string holds the small text normalizers shared by request
// decoding, identity keys and answer matching.
package string

import (
	"strings"
	"unicode"
)

// CollapseSpace trims s and folds every internal whitespace run, including
// newlines and tabs, into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CollapseSlice applies CollapseSpace to every element in place. Positions
// are kept because answers line up with questions by index.
func CollapseSlice(ss []string) {
	for i := range ss {
		ss[i] = CollapseSpace(ss[i])
	}
}

// Fold is the comparison form of free text: collapsed and lowercased.
func Fold(s string) string {
	return strings.ToLower(CollapseSpace(s))
}

// NormalizeKey lowercases and trims an identity key such as an email or username.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ToSnakeCase maps Go field names to wire names: ItemID becomes item_id.
func ToSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
