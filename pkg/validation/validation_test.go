package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "lostfound/pkg/domain-errors"
)

// ValidationSuite covers the trust-boundary validators: "max passes, max+1 fails".
type ValidationSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationSuite))
}

type reportForm struct {
	ItemType string `validate:"required,notblank"`
	Email    string `validate:"omitempty,email"`
	Location string `validate:"max=10"`
}

func (s *ValidationSuite) TestValidate() {
	s.Run("passes valid struct", func() {
		s.NoError(Validate(reportForm{ItemType: "umbrella", Email: "a@campus.edu"}))
	})

	s.Run("blank field reports snake_case name", func() {
		err := Validate(reportForm{ItemType: "   "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("item_type must not be blank", err.Error())
	})

	s.Run("bad email", func() {
		err := Validate(reportForm{ItemType: "x", Email: "nope"})
		s.Equal("email must be a valid email", err.Error())
	})

	s.Run("max passes, max+1 fails", func() {
		s.NoError(Validate(reportForm{ItemType: "x", Location: strings.Repeat("a", 10)}))
		err := Validate(reportForm{ItemType: "x", Location: strings.Repeat("a", 11)})
		s.Equal("location must be at most 10", err.Error())
	})
}

type question struct {
	Question string `json:"question" validate:"required,notblank"`
	Answer   string `json:"answer" validate:"required,notblank"`
}

type itemForm struct {
	FoundAt   time.Time  `json:"found_at" validate:"required,notfuture"`
	Questions []question `json:"security_questions" validate:"required,min=1,max=3,dive"`
}

func (s *ValidationSuite) TestNestedFieldsUseWireNames() {
	now := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	v := newValidator(func() time.Time { return now })

	s.Run("blank nested answer", func() {
		err := validate(v, itemForm{
			FoundAt:   now.Add(-time.Hour),
			Questions: []question{{Question: "colour?", Answer: "red"}, {Question: "brand?", Answer: " "}},
		})
		s.Equal("security_questions[1].answer must not be blank", err.Error())
	})

	s.Run("too many questions", func() {
		qs := make([]question, 4)
		for i := range qs {
			qs[i] = question{Question: "q", Answer: "a"}
		}
		err := validate(v, itemForm{FoundAt: now, Questions: qs})
		s.Equal("security_questions allows at most 3 entries", err.Error())
	})

	s.Run("found_at tolerates small clock skew", func() {
		s.NoError(validate(v, itemForm{
			FoundAt:   now.Add(FutureSkew),
			Questions: []question{{Question: "q", Answer: "a"}},
		}))
	})

	s.Run("found_at in the future", func() {
		err := validate(v, itemForm{
			FoundAt:   now.Add(FutureSkew + time.Second),
			Questions: []question{{Question: "q", Answer: "a"}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("found_at cannot be in the future", err.Error())
	})
}

func (s *ValidationSuite) TestCheckCount() {
	s.NoError(CheckCount("answers", 2, 2))

	err := CheckCount("answers", 3, 2)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("answers must have 2 entries, got 3", err.Error())

	s.Equal("answers must have 1 entry, got 0", CheckCount("answers", 0, 1).Error())
}
