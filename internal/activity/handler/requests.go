package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"lostfound/internal/activity/models"
	id "lostfound/pkg/domain"
	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/validation"
)

type ClearRequest struct {
	Scope string `json:"scope" validate:"required,oneof=admin user"`
}

func (r *ClearRequest) Normalize() {
	if r == nil {
		return
	}
	r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
}

func (r *ClearRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// parseAuditFilter reads the audit log query string. Times are RFC 3339.
func parseAuditFilter(q url.Values) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		Kind:     models.Kind(q.Get("kind")),
		Audience: models.Audience(q.Get("audience")),
	}
	var err error
	if raw := q.Get("actor_id"); raw != "" {
		if filter.ActorID, err = id.ParseUserID(raw); err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid actor_id")
		}
	}
	if raw := q.Get("item_id"); raw != "" {
		if filter.ItemID, err = id.ParseItemID(raw); err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid item_id")
		}
	}
	if filter.Since, err = parseTime(q.Get("since")); err != nil {
		return filter, dErrors.New(dErrors.CodeBadRequest, "since must be an RFC 3339 time")
	}
	if filter.Until, err = parseTime(q.Get("until")); err != nil {
		return filter, dErrors.New(dErrors.CodeBadRequest, "until must be an RFC 3339 time")
	}
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

type NotificationsResponse struct {
	Notifications []*models.Record `json:"notifications"`
	Unread        int              `json:"unread"`
}

type UnreadResponse struct {
	Unread int `json:"unread"`
}

type AckResponse struct {
	Acknowledged int `json:"acknowledged"`
}

type ClearResponse struct {
	Cleared int `json:"cleared"`
}

type AuditLogResponse struct {
	Records []*models.Record `json:"records"`
}
