package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "lostfound/pkg/domain-errors"
	"lostfound/pkg/requestcontext"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error            string     `json:"error"`
	ErrorDescription string     `json:"error_description,omitempty"`
	Remedy           string     `json:"remedy,omitempty"`
	UnlockAt         *time.Time `json:"unlock_at,omitempty"`
	// Soft errors are guidance for the user, not failures worth retrying.
	Soft bool `json:"soft,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding error cannot change the response.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		resp := ErrorResponse{
			Error:            DomainCodeToHTTPCode(domainErr.Code),
			ErrorDescription: domainErr.Message,
			Remedy:           domainErr.Remedy,
			UnlockAt:         domainErr.UnlockAt,
			Soft:             dErrors.IsSoft(err),
		}
		if domainErr.UnlockAt != nil {
			if wait := time.Until(*domainErr.UnlockAt); wait > 0 {
				w.Header().Set("Retry-After", retryAfterSeconds(wait))
			}
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), resp)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeDuplicatePending, dErrors.CodeAlreadyTransitioned, dErrors.CodeInProgress:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidCredential:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden, dErrors.CodeSelfClaim, dErrors.CodeAccountInactive,
		dErrors.CodeEmailUnverified, dErrors.CodeProfileNotFound:
		return http.StatusForbidden
	case dErrors.CodeAccountLocked:
		return http.StatusLocked
	case dErrors.CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the JSON "error" field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation:
		return "validation_error"
	case "":
		return string(dErrors.CodeInternal)
	default:
		return string(code)
	}
}

// RequirePrincipal extracts the authenticated caller from context.
// A missing principal behind the auth middleware is a wiring bug, so it maps to internal.
func RequirePrincipal(ctx context.Context, logger *slog.Logger) (requestcontext.Principal, error) {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok {
		if logger != nil {
			logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return p, nil
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
