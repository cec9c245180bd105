// Package tracer wraps OpenTelemetry behind a narrow interface. Services take
// a Tracer option defaulting to NewNoop; cmd/server injects NewOTel.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanReportItem   = "workflow.report_item"
	SpanVerifyItem   = "workflow.verify_item"
	SpanSubmitClaim  = "workflow.submit_claim"
	SpanDecideClaim  = "workflow.decide_claim"
	SpanLookupByCode = "workflow.lookup_by_code"
	SpanSignIn       = "auth.sign_in"
)

// Attribute keys.
const (
	AttrItemID    = "item.id"
	AttrClaimID   = "claim.id"
	AttrApprove   = "decision.approve"
	AttrOutcome   = "outcome"
	AttrKeyDigest = "identity.key_digest"
)

// Event names.
const (
	EventActivityRecorded = "activity.recorded"
	EventSiblingsRejected = "claims.siblings_rejected"
	EventSoftOutcome      = "workflow.soft_outcome"
)
