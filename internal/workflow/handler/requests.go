package handler

import (
	"strings"

	"lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	s "lostfound/pkg/string"
	"lostfound/pkg/validation"
)

// ReportItemRequest is the body of POST /items. Markup is stripped by the
// service, so only whitespace is normalized here.
type ReportItemRequest struct {
	models.NewItem
}

func (r *ReportItemRequest) Normalize() {
	if r == nil {
		return
	}
	r.Type = s.CollapseSpace(r.Type)
	r.Location = s.CollapseSpace(r.Location)
	r.Description = strings.TrimSpace(r.Description)
	for i := range r.Questions {
		r.Questions[i].Question = s.CollapseSpace(r.Questions[i].Question)
		r.Questions[i].Answer = s.CollapseSpace(r.Questions[i].Answer)
	}
}

func (r *ReportItemRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(&r.NewItem)
}

// SubmitClaimRequest is the body of POST /claims.
type SubmitClaimRequest struct {
	ItemID        string   `json:"item_id" validate:"required,uuid"`
	Answers       []string `json:"answers" validate:"required,min=1,max=3,dive,max=500"`
	ProofPhotoRef string   `json:"proof_photo_ref" validate:"max=1024"`
}

func (r *SubmitClaimRequest) Normalize() {
	if r == nil {
		return
	}
	r.ItemID = strings.TrimSpace(r.ItemID)
	s.CollapseSlice(r.Answers)
}

func (r *SubmitClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ToCommand converts the request once it has been validated.
func (r *SubmitClaimRequest) ToCommand() (models.NewClaim, error) {
	itemID, err := id.ParseItemID(r.ItemID)
	if err != nil {
		return models.NewClaim{}, dErrors.New(dErrors.CodeBadRequest, "invalid item id")
	}
	return models.NewClaim{ItemID: itemID, Answers: r.Answers, ProofPhotoRef: r.ProofPhotoRef}, nil
}

// DecisionRequest is the admin verdict for verify and decide. Approve must be
// present so an empty body never reads as a rejection.
type DecisionRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *DecisionRequest) Decision() models.Decision {
	return models.Decision(*r.Approve)
}

type ItemListResponse struct {
	Items []*models.LostItem `json:"items"`
}

type ClaimListResponse struct {
	Claims []*models.Claim `json:"claims"`
}
