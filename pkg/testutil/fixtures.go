package testutil

import (
	"time"

	"github.com/google/uuid"

	workflow "lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/requestcontext"
)

// TestIDs are fixed ids for deterministic test data.
var TestIDs = struct {
	AdminID    id.UserID
	ReporterID id.UserID
	ClaimantID id.UserID
	OtherID    id.UserID
}{
	AdminID:    id.UserID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	ReporterID: id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	ClaimantID: id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	OtherID:    id.UserID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
}

func Admin() requestcontext.Principal {
	return requestcontext.Principal{UserID: TestIDs.AdminID, Role: "admin"}
}

func Finder(userID id.UserID) requestcontext.Principal {
	return requestcontext.Principal{UserID: userID, Role: "finder"}
}

// ItemBuilder provides a fluent interface for building report inputs.
type ItemBuilder struct {
	item workflow.NewItem
}

// NewItemBuilder starts from a valid report with two security questions.
func NewItemBuilder() *ItemBuilder {
	return &ItemBuilder{
		item: workflow.NewItem{
			Type:     "backpack",
			Location: "Library, 2nd floor",
			FoundAt:  time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
			Questions: []workflow.SecurityQuestion{
				{Question: "What colour is it?", Answer: "navy blue"},
				{Question: "What is on the keychain?", Answer: "penguin"},
			},
		},
	}
}

func (b *ItemBuilder) WithType(t string) *ItemBuilder {
	b.item.Type = t
	return b
}

func (b *ItemBuilder) WithLocation(loc string) *ItemBuilder {
	b.item.Location = loc
	return b
}

func (b *ItemBuilder) WithQuestions(qs ...workflow.SecurityQuestion) *ItemBuilder {
	b.item.Questions = qs
	return b
}

func (b *ItemBuilder) Build() workflow.NewItem {
	b.item.Questions = append([]workflow.SecurityQuestion(nil), b.item.Questions...)
	return b.item
}

// CorrectAnswers matches the questions of NewItemBuilder.
func CorrectAnswers() []string {
	return []string{"Navy Blue", "penguin"}
}

func NewClaim(itemID id.ItemID, answers ...string) workflow.NewClaim {
	if len(answers) == 0 {
		answers = CorrectAnswers()
	}
	return workflow.NewClaim{ItemID: itemID, Answers: answers}
}
