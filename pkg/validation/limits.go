package validation

import (
	"fmt"

	dErrors "lostfound/pkg/domain-errors"
)

// CheckCount rejects a list whose length differs from want. Struct tags cover
// fixed bounds; this covers bounds that come from stored data, such as one
// answer per security question on the item.
func CheckCount(field string, count, want int) error {
	if count == want {
		return nil
	}
	noun := "entries"
	if want == 1 {
		noun = "entry"
	}
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must have %d %s, got %d", field, want, noun, count))
}
