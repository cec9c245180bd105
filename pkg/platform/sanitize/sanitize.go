// Package sanitize strips markup from user-supplied free text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag and returns unescaped, trimmed text. Callers
// store plain text; escaping is the renderer's job.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// PlainTextAll applies PlainText to each element in place.
func PlainTextAll(ss []string) {
	for i := range ss {
		ss[i] = PlainText(ss[i])
	}
}
